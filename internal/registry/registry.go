// Package registry owns the fleet's current state. Every read and write
// used by the prediction API and the agent goes through a Registry
// instance; it is constructed once at process start and passed by
// reference, never held as ambient global state.
package registry

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/satria-tarigan/predictive-maintenance-copilot-backend/internal/models"
	"github.com/satria-tarigan/predictive-maintenance-copilot-backend/internal/scoring"
	"github.com/satria-tarigan/predictive-maintenance-copilot-backend/internal/utils"
)

// Evaluator runs the scoring pipeline against one telemetry reading.
type Evaluator interface {
	Evaluate(ctx context.Context, t models.Telemetry) (scoring.Evaluation, error)
}

// FleetIDs is the fixed registry of 20 machines. The prefix encodes the
// duty tier (L low, M medium, H high); the order here is the stable
// order served by List.
var FleetIDs = []string{
	"L4718", "L4720", "L4725", "L4731", "L4736", "L4742", "L4750", "L4763",
	"M14860", "M14865", "M14872", "M14880", "M14889", "M14895", "M14902",
	"H29424", "H29430", "H29437", "H29445", "H29452",
}

// record pairs a machine with its own lock. UpdateTelemetry and Predict
// take the write lock so at most one writer touches a machine at a time;
// reads take the read lock and copy, so no caller ever observes a
// partially updated record.
type record struct {
	mu      sync.RWMutex
	machine models.Machine
}

// Registry is the single shared source of truth for fleet state.
type Registry struct {
	logger    *slog.Logger
	evaluator Evaluator
	order     []string
	records   map[string]*record
}

// New constructs a Registry over the fixed fleet, seeded with the given
// initial telemetry (typically one simulator TickAll). Machines without
// a seed reading start zeroed and unscored.
func New(logger *slog.Logger, evaluator Evaluator, seed map[string]models.Telemetry) *Registry {
	if logger == nil {
		logger = slog.Default()
	}

	records := make(map[string]*record, len(FleetIDs))
	now := time.Now().UTC()
	for _, id := range FleetIDs {
		m := models.Machine{
			ID:          id,
			Class:       models.ClassOf(id),
			Status:      models.StatusUnknown,
			LastUpdated: now,
		}
		if t, ok := seed[id]; ok {
			m.Telemetry = t
		}
		records[id] = &record{machine: m}
	}

	return &Registry{
		logger:    utils.ComponentLogger(logger, "registry"),
		evaluator: evaluator,
		order:     append([]string(nil), FleetIDs...),
		records:   records,
	}
}

// IDs returns the fleet ids in registry definition order.
func (r *Registry) IDs() []string {
	return append([]string(nil), r.order...)
}

// Get returns a snapshot of one machine.
func (r *Registry) Get(machineID string) (models.Machine, error) {
	rec, ok := r.records[machineID]
	if !ok {
		return models.Machine{}, utils.NewAppError("registry.Get", fmt.Sprintf("machine %s not registered", machineID), models.ErrUnknownMachine)
	}

	rec.mu.RLock()
	defer rec.mu.RUnlock()
	return rec.machine, nil
}

// List returns snapshots of every machine in definition order.
func (r *Registry) List() []models.Machine {
	machines := make([]models.Machine, 0, len(r.order))
	for _, id := range r.order {
		rec := r.records[id]
		rec.mu.RLock()
		machines = append(machines, rec.machine)
		rec.mu.RUnlock()
	}
	return machines
}

// UpdateTelemetry replaces a machine's telemetry and bumps last_updated.
// It does not rescore; callers wanting a fresh status call Predict.
func (r *Registry) UpdateTelemetry(machineID string, t models.Telemetry) error {
	rec, ok := r.records[machineID]
	if !ok {
		return utils.NewAppError("registry.UpdateTelemetry", fmt.Sprintf("machine %s not registered", machineID), models.ErrUnknownMachine)
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()
	rec.machine.Telemetry = t
	rec.machine.LastUpdated = time.Now().UTC()
	return nil
}

// Predict reads the machine's current telemetry, runs the scoring
// pipeline, and commits probability, status, and message in one step.
// The write lock is held across the evaluation so a concurrent telemetry
// overwrite cannot interleave with the read; a failed or abandoned
// evaluation leaves the record untouched.
func (r *Registry) Predict(ctx context.Context, machineID string) (models.PredictionResult, error) {
	rec, ok := r.records[machineID]
	if !ok {
		return models.PredictionResult{}, utils.NewAppError("registry.Predict", fmt.Sprintf("machine %s not registered", machineID), models.ErrUnknownMachine)
	}
	if r.evaluator == nil {
		return models.PredictionResult{}, utils.NewAppError("registry.Predict", "scoring pipeline not configured", models.ErrModelUnavailable)
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()

	evaluation, err := r.evaluator.Evaluate(ctx, rec.machine.Telemetry)
	if err != nil {
		return models.PredictionResult{}, err
	}
	if err := ctx.Err(); err != nil {
		// Caller abandoned the request mid-flight: leave no partial state.
		return models.PredictionResult{}, err
	}

	probability := evaluation.Probability
	rec.machine.LastProbability = &probability
	rec.machine.Status = evaluation.Status

	result := models.PredictionResult{
		MachineID:       machineID,
		Probability:     evaluation.Probability,
		Status:          evaluation.Status,
		Message:         evaluation.Message,
		Recommendations: evaluation.Recommendations,
		PredictedAt:     time.Now().UTC(),
	}
	r.logger.Debug("prediction committed",
		slog.String("machine_id", machineID),
		slog.Float64("probability", evaluation.Probability),
		slog.String("status", string(evaluation.Status)))
	return result, nil
}

// HighRisk returns the machines whose current status is Warning or
// Failure, ordered by probability descending with ties broken by id
// ascending. Machines never scored are excluded.
func (r *Registry) HighRisk() []models.Machine {
	return r.filter(func(m models.Machine) bool {
		return m.Scored() && (m.Status == models.StatusWarning || m.Status == models.StatusFailure)
	})
}

// ByStatus returns machines with exactly the given status, in the same
// ordering as HighRisk.
func (r *Registry) ByStatus(status models.Status) []models.Machine {
	return r.filter(func(m models.Machine) bool {
		return m.Status == status
	})
}

// Summary returns the per-status census used to ground free-form
// answers in live fleet state.
func (r *Registry) Summary() models.FleetSummary {
	summary := models.FleetSummary{Total: len(r.order)}
	for _, m := range r.HighRisk() {
		summary.HighRisk = append(summary.HighRisk, m.ID)
	}
	for _, m := range r.List() {
		switch m.Status {
		case models.StatusNormal:
			summary.Normal++
		case models.StatusWarning:
			summary.Warning++
		case models.StatusFailure:
			summary.Failure++
		default:
			summary.Unscored++
		}
	}
	return summary
}

func (r *Registry) filter(keep func(models.Machine) bool) []models.Machine {
	matched := make([]models.Machine, 0, len(r.order))
	for _, m := range r.List() {
		if keep(m) {
			matched = append(matched, m)
		}
	}
	sort.SliceStable(matched, func(i, j int) bool {
		pi, pj := probabilityOf(matched[i]), probabilityOf(matched[j])
		if pi != pj {
			return pi > pj
		}
		return matched[i].ID < matched[j].ID
	})
	return matched
}

func probabilityOf(m models.Machine) float64 {
	if m.LastProbability == nil {
		return -1
	}
	return *m.LastProbability
}
