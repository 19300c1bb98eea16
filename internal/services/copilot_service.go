// Package services exposes the narrow contract consumed by the transport
// layer: per-machine prediction, fleet scans, and chat.
package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/satria-tarigan/predictive-maintenance-copilot-backend/internal/agent"
	"github.com/satria-tarigan/predictive-maintenance-copilot-backend/internal/feed"
	"github.com/satria-tarigan/predictive-maintenance-copilot-backend/internal/metrics"
	"github.com/satria-tarigan/predictive-maintenance-copilot-backend/internal/models"
	"github.com/satria-tarigan/predictive-maintenance-copilot-backend/internal/registry"
	"github.com/satria-tarigan/predictive-maintenance-copilot-backend/internal/simulator"
	"github.com/satria-tarigan/predictive-maintenance-copilot-backend/internal/utils"
)

// CopilotService is the facade over registry, simulator, and agent.
type CopilotService struct {
	logger    *slog.Logger
	registry  *registry.Registry
	simulator *simulator.Simulator
	agent     *agent.Agent
	publisher feed.Publisher
	latencies *utils.LatencyTracker
}

// NewCopilotService wires the facade. A nil publisher disables the feed.
func NewCopilotService(logger *slog.Logger, reg *registry.Registry, sim *simulator.Simulator, chatAgent *agent.Agent, publisher feed.Publisher) *CopilotService {
	if logger == nil {
		logger = slog.Default()
	}
	if publisher == nil {
		publisher = feed.NoopPublisher{}
	}
	return &CopilotService{
		logger:    utils.ComponentLogger(logger, "service"),
		registry:  reg,
		simulator: sim,
		agent:     chatAgent,
		publisher: publisher,
		latencies: utils.NewLatencyTracker(1024),
	}
}

// PredictOne scores a single machine and returns the fresh result.
func (s *CopilotService) PredictOne(ctx context.Context, machineID string) (models.PredictionResult, error) {
	start := time.Now()
	result, err := s.registry.Predict(ctx, machineID)
	duration := time.Since(start)

	if err != nil {
		metrics.ObservePrediction(duration, metrics.OutcomeError)
		s.logger.Warn("prediction failed", slog.String("machine_id", machineID), slog.Any("error", err))
		return models.PredictionResult{}, err
	}

	s.latencies.Observe(duration)
	metrics.ObservePrediction(duration, metrics.OutcomeSuccess)
	s.publisher.PublishPrediction(result)
	return result, nil
}

// PredictBatch scores every machine in registry order. The first
// failure aborts the batch: a missing model makes all 20 fail the same
// way, and partial batches would hide that.
func (s *CopilotService) PredictBatch(ctx context.Context) ([]models.PredictionResult, error) {
	ids := s.registry.IDs()
	results := make([]models.PredictionResult, 0, len(ids))
	for _, id := range ids {
		result, err := s.PredictOne(ctx, id)
		if err != nil {
			return nil, err
		}
		results = append(results, result)
	}
	return results, nil
}

// ListHighRisk returns Warning-or-above machines, most probable first.
func (s *CopilotService) ListHighRisk() []models.Machine {
	return s.registry.HighRisk()
}

// ListByStatus returns machines with exactly the given status.
func (s *CopilotService) ListByStatus(status models.Status) []models.Machine {
	return s.registry.ByStatus(status)
}

// ListMachines returns a snapshot of the whole fleet in definition order.
func (s *CopilotService) ListMachines() []models.Machine {
	return s.registry.List()
}

// ListMachineIDs returns the fixed fleet ids in definition order.
func (s *CopilotService) ListMachineIDs() []string {
	return s.registry.IDs()
}

// Summary returns the per-status fleet census.
func (s *CopilotService) Summary() models.FleetSummary {
	return s.registry.Summary()
}

// Chat answers one free-text query. Always returns a response string.
func (s *CopilotService) Chat(ctx context.Context, query string) string {
	start := time.Now()
	answer, route := s.agent.Chat(ctx, query)
	metrics.ObserveChat(time.Since(start), string(route))
	s.logger.Debug("chat served", slog.String("route", string(route)))
	return answer
}

// RefreshTelemetry advances the simulator one step for the whole fleet
// and writes the readings into the registry. Statuses are not rescored:
// prediction stays an explicit, on-demand operation.
func (s *CopilotService) RefreshTelemetry() {
	readings := s.simulator.TickAll(s.registry.IDs())
	for id, t := range readings {
		if err := s.registry.UpdateTelemetry(id, t); err != nil {
			s.logger.Warn("telemetry update failed", slog.String("machine_id", id), slog.Any("error", err))
		}
	}
	metrics.ObserveTelemetryRefresh()
}

// RunRefresher applies RefreshTelemetry on the given interval until the
// context is cancelled. Intended to run in its own goroutine.
func (s *CopilotService) RunRefresher(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.RefreshTelemetry()
		}
	}
}

// LatencyP95 returns the current p95 prediction latency.
func (s *CopilotService) LatencyP95() time.Duration {
	if s.latencies == nil {
		return 0
	}
	return s.latencies.Percentile(95)
}
