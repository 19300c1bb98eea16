package scoring

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"

	"github.com/satria-tarigan/predictive-maintenance-copilot-backend/internal/models"
)

// Scorer is the opaque trained model behind the pipeline. Implementations
// receive the 5 features in fixed order: air temperature, process
// temperature, rotational speed, torque, tool wear.
type Scorer interface {
	Score(ctx context.Context, features [5]float64) (float64, error)
}

// fileModel is a logistic scorer loaded from a JSON artifact exported by
// the training job.
type fileModel struct {
	Weights   map[string]float64 `json:"weights"`
	Intercept float64            `json:"intercept"`
}

// Feature keys expected in the model artifact, in scoring order.
var featureKeys = [5]string{
	"air_temperature",
	"process_temperature",
	"rotational_speed",
	"torque",
	"tool_wear",
}

// LoadModel reads a model artifact from disk. Callers should treat a
// returned error as a degraded state, not a fatal one: a nil Scorer makes
// every prediction fail with ErrModelUnavailable while the rest of the
// service keeps serving.
func LoadModel(path string) (Scorer, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: model path not configured", models.ErrModelUnavailable)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: artifact %s not found", models.ErrModelUnavailable, path)
		}
		return nil, fmt.Errorf("%w: read artifact: %v", models.ErrModelUnavailable, err)
	}

	var model fileModel
	if err := json.Unmarshal(data, &model); err != nil {
		return nil, fmt.Errorf("%w: parse artifact: %v", models.ErrModelUnavailable, err)
	}
	for _, key := range featureKeys {
		if _, ok := model.Weights[key]; !ok {
			return nil, fmt.Errorf("%w: artifact missing weight for %s", models.ErrModelUnavailable, key)
		}
	}

	return &model, nil
}

// Score computes a failure probability via the logistic link.
func (m *fileModel) Score(ctx context.Context, features [5]float64) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	z := m.Intercept
	for i, key := range featureKeys {
		z += m.Weights[key] * features[i]
	}

	probability := 1.0 / (1.0 + math.Exp(-z))
	if math.IsNaN(probability) {
		return 0, fmt.Errorf("%w: scorer produced NaN", models.ErrModelUnavailable)
	}
	return probability, nil
}
