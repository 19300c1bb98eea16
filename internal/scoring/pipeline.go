// Package scoring turns a telemetry reading into a failure probability
// and a discrete status tier. The probability thresholds in Classify are
// the single source of truth for status; the raw-sensor advisory rules
// only flavour the explanation message and never override the tier.
package scoring

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/satria-tarigan/predictive-maintenance-copilot-backend/internal/models"
)

// Classification thresholds on failure probability.
const (
	WarningThreshold = 0.3
	FailureThreshold = 0.7
)

// Evaluation bundles the outputs of one full pipeline run.
type Evaluation struct {
	Probability     float64
	Status          models.Status
	Message         string
	Recommendations []string
}

// Pipeline orchestrates score → classify → explain. It owns no state
// beyond the scorer handle and is safe for concurrent use.
type Pipeline struct {
	logger  *slog.Logger
	scorer  Scorer
	advisor *Advisor
	timeout time.Duration
}

// NewPipeline constructs a scoring pipeline. A nil scorer is legal and
// makes Score fail with ErrModelUnavailable, which keeps a process whose
// artifact failed to load serving degraded responses instead of dying.
func NewPipeline(logger *slog.Logger, scorer Scorer, advisor *Advisor, timeout time.Duration) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	if advisor == nil {
		advisor = DefaultAdvisor()
	}
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &Pipeline{logger: logger, scorer: scorer, advisor: advisor, timeout: timeout}
}

// Score invokes the opaque model with the features in fixed order and
// returns a probability in [0,1]. The model call is bounded by the
// configured timeout so a wedged scorer degrades to ErrModelUnavailable
// instead of hanging the conversational surface.
func (p *Pipeline) Score(ctx context.Context, t models.Telemetry) (float64, error) {
	if err := validateTelemetry(t); err != nil {
		return 0, err
	}
	if p.scorer == nil {
		return 0, fmt.Errorf("%w: no scorer loaded", models.ErrModelUnavailable)
	}

	parent := ctx
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	features := [5]float64{t.AirTemperature, t.ProcessTemperature, t.RotationalSpeed, t.Torque, t.ToolWear}

	type outcome struct {
		probability float64
		err         error
	}
	done := make(chan outcome, 1)
	go func() {
		prob, err := p.scorer.Score(ctx, features)
		done <- outcome{probability: prob, err: err}
	}()

	select {
	case <-ctx.Done():
		// An abandoned request is the caller's doing, not a model outage.
		if err := parent.Err(); err != nil {
			return 0, err
		}
		return 0, fmt.Errorf("%w: scoring timed out after %s", models.ErrModelUnavailable, p.timeout)
	case out := <-done:
		if out.err != nil {
			return 0, fmt.Errorf("%w: %v", models.ErrModelUnavailable, out.err)
		}
		if out.probability < 0 || out.probability > 1 || math.IsNaN(out.probability) {
			return 0, fmt.Errorf("%w: probability %f out of range", models.ErrModelUnavailable, out.probability)
		}
		return out.probability, nil
	}
}

// Classify maps a probability onto a status tier. Pure and idempotent.
func Classify(probability float64) models.Status {
	switch {
	case probability < WarningThreshold:
		return models.StatusNormal
	case probability < FailureThreshold:
		return models.StatusWarning
	default:
		return models.StatusFailure
	}
}

// Explain produces a short human-readable justification for the status,
// referencing the dominant out-of-threshold features. Deterministic for
// identical inputs.
func (p *Pipeline) Explain(status models.Status, t models.Telemetry) string {
	issues := p.advisor.Issues(t)

	switch status {
	case models.StatusNormal:
		return "Mesin dalam kondisi normal dan stabil."
	case models.StatusWarning:
		msg := "Waspada, kondisi mesin menunjukkan tanda keausan. Perlu monitoring lebih lanjut."
		if len(issues) > 0 {
			msg += " Indikasi dominan: " + issues[0].Label + "."
		}
		return msg
	case models.StatusFailure:
		msg := "Kemungkinan besar mesin akan mengalami kerusakan. Segera lakukan maintenance."
		if len(issues) > 0 {
			msg = fmt.Sprintf("Kemungkinan besar mesin akan mengalami kerusakan (%s). Segera lakukan maintenance.", issues[0].Label)
		}
		return msg
	default:
		return "Status mesin belum diketahui."
	}
}

// Evaluate runs the full score → classify → explain flow.
func (p *Pipeline) Evaluate(ctx context.Context, t models.Telemetry) (Evaluation, error) {
	probability, err := p.Score(ctx, t)
	if err != nil {
		return Evaluation{}, err
	}
	status := Classify(probability)
	return Evaluation{
		Probability:     probability,
		Status:          status,
		Message:         p.Explain(status, t),
		Recommendations: p.Advise(status, t),
	}, nil
}

// Advise returns maintenance recommendations for the out-of-threshold
// features of a reading, or nil when everything is inside the advisory
// envelope.
func (p *Pipeline) Advise(status models.Status, t models.Telemetry) []string {
	if status == models.StatusNormal || status == models.StatusUnknown {
		return nil
	}
	return p.advisor.Recommend(t)
}

func validateTelemetry(t models.Telemetry) error {
	checks := []struct {
		name     string
		value    float64
		min, max float64
	}{
		{"air_temperature", t.AirTemperature, models.MinTemperatureK, models.MaxTemperatureK},
		{"process_temperature", t.ProcessTemperature, models.MinTemperatureK, models.MaxTemperatureK},
		{"rotational_speed", t.RotationalSpeed, 0, models.MaxSpeedRPM},
		{"torque", t.Torque, 0, models.MaxTorqueNm},
		{"tool_wear", t.ToolWear, 0, models.MaxToolWearMin},
	}

	for _, c := range checks {
		if math.IsNaN(c.value) || math.IsInf(c.value, 0) {
			return fmt.Errorf("%w: %s is not a number", models.ErrInvalidFeatures, c.name)
		}
		if c.value < c.min || c.value > c.max {
			return fmt.Errorf("%w: %s %.1f outside [%.1f, %.1f]", models.ErrInvalidFeatures, c.name, c.value, c.min, c.max)
		}
	}
	return nil
}
