package scoring

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/satria-tarigan/predictive-maintenance-copilot-backend/internal/models"
)

func writeArtifact(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "model.json")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write artifact: %v", err)
	}
	return path
}

func TestLoadModelScores(t *testing.T) {
	path := writeArtifact(t, `{
  "weights": {
    "air_temperature": 0.0,
    "process_temperature": 0.0,
    "rotational_speed": 0.0,
    "torque": 0.0,
    "tool_wear": 0.01
  },
  "intercept": -2.0
}`)

	scorer, err := LoadModel(path)
	if err != nil {
		t.Fatalf("load model: %v", err)
	}

	low, err := scorer.Score(context.Background(), [5]float64{298, 308, 1500, 40, 0})
	if err != nil {
		t.Fatalf("score: %v", err)
	}
	high, err := scorer.Score(context.Background(), [5]float64{298, 308, 1500, 40, 400})
	if err != nil {
		t.Fatalf("score: %v", err)
	}

	if low <= 0 || low >= 1 || high <= 0 || high >= 1 {
		t.Fatalf("probabilities outside (0,1): low=%f high=%f", low, high)
	}
	if high <= low {
		t.Fatalf("higher tool wear should raise probability: low=%f high=%f", low, high)
	}
}

func TestLoadModelMissingFile(t *testing.T) {
	_, err := LoadModel(filepath.Join(t.TempDir(), "absent.json"))
	if !errors.Is(err, models.ErrModelUnavailable) {
		t.Fatalf("expected ErrModelUnavailable, got %v", err)
	}
}

func TestLoadModelEmptyPath(t *testing.T) {
	_, err := LoadModel("")
	if !errors.Is(err, models.ErrModelUnavailable) {
		t.Fatalf("expected ErrModelUnavailable, got %v", err)
	}
}

func TestLoadModelMissingWeight(t *testing.T) {
	path := writeArtifact(t, `{"weights": {"air_temperature": 0.1}, "intercept": 0}`)

	_, err := LoadModel(path)
	if !errors.Is(err, models.ErrModelUnavailable) {
		t.Fatalf("expected ErrModelUnavailable for incomplete weights, got %v", err)
	}
}

func TestLoadModelMalformedJSON(t *testing.T) {
	path := writeArtifact(t, `{not json`)

	_, err := LoadModel(path)
	if !errors.Is(err, models.ErrModelUnavailable) {
		t.Fatalf("expected ErrModelUnavailable for malformed artifact, got %v", err)
	}
}
