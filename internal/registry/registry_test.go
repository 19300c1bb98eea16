package registry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"testing"

	"github.com/satria-tarigan/predictive-maintenance-copilot-backend/internal/models"
	"github.com/satria-tarigan/predictive-maintenance-copilot-backend/internal/scoring"
)

// fakeEvaluator returns a probability keyed off tool wear so tests can
// steer the resulting status per machine.
type fakeEvaluator struct {
	err   error
	calls int
	mu    sync.Mutex
}

func (f *fakeEvaluator) Evaluate(_ context.Context, t models.Telemetry) (scoring.Evaluation, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()

	if f.err != nil {
		return scoring.Evaluation{}, f.err
	}
	probability := t.ToolWear / 500
	return scoring.Evaluation{
		Probability: probability,
		Status:      scoring.Classify(probability),
		Message:     "ok",
	}, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, nil))
}

func seedAll(wear float64) map[string]models.Telemetry {
	seed := make(map[string]models.Telemetry, len(FleetIDs))
	for _, id := range FleetIDs {
		seed[id] = models.Telemetry{
			AirTemperature:     298,
			ProcessTemperature: 308,
			RotationalSpeed:    1500,
			Torque:             40,
			ToolWear:           wear,
		}
	}
	return seed
}

func TestNewSeedsFixedFleet(t *testing.T) {
	reg := New(testLogger(), &fakeEvaluator{}, seedAll(50))

	ids := reg.IDs()
	if len(ids) != 20 {
		t.Fatalf("expected 20 machines, got %d", len(ids))
	}
	for _, id := range ids {
		m, err := reg.Get(id)
		if err != nil {
			t.Fatalf("get %s: %v", id, err)
		}
		if m.Status != models.StatusUnknown {
			t.Fatalf("machine %s should start unscored, got %s", id, m.Status)
		}
		if m.Scored() {
			t.Fatalf("machine %s should have no probability before first prediction", id)
		}
	}
}

func TestGetUnknownMachine(t *testing.T) {
	reg := New(testLogger(), &fakeEvaluator{}, nil)

	_, err := reg.Get("Z9999")
	if !errors.Is(err, models.ErrUnknownMachine) {
		t.Fatalf("expected ErrUnknownMachine, got %v", err)
	}
}

func TestPredictCommitsState(t *testing.T) {
	reg := New(testLogger(), &fakeEvaluator{}, seedAll(400)) // 0.8 -> Failure

	result, err := reg.Predict(context.Background(), "M14860")
	if err != nil {
		t.Fatalf("predict: %v", err)
	}
	if result.Status != models.StatusFailure {
		t.Fatalf("expected Failure, got %s", result.Status)
	}

	m, err := reg.Get("M14860")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !m.Scored() || *m.LastProbability != result.Probability {
		t.Fatalf("prediction not committed to registry: %+v", m)
	}
	if m.Status != models.StatusFailure {
		t.Fatalf("committed status mismatch: %s", m.Status)
	}
}

func TestPredictUnknownMachineMutatesNothing(t *testing.T) {
	evaluator := &fakeEvaluator{}
	reg := New(testLogger(), evaluator, seedAll(50))

	_, err := reg.Predict(context.Background(), "M99999")
	if !errors.Is(err, models.ErrUnknownMachine) {
		t.Fatalf("expected ErrUnknownMachine, got %v", err)
	}
	if evaluator.calls != 0 {
		t.Fatalf("evaluator should not run for unknown machines, ran %d times", evaluator.calls)
	}
	for _, m := range reg.List() {
		if m.Scored() || m.Status != models.StatusUnknown {
			t.Fatalf("machine %s mutated by failed predict", m.ID)
		}
	}
}

func TestPredictEvaluatorFailureLeavesRecordUntouched(t *testing.T) {
	reg := New(testLogger(), &fakeEvaluator{err: models.ErrModelUnavailable}, seedAll(50))

	_, err := reg.Predict(context.Background(), "L4718")
	if !errors.Is(err, models.ErrModelUnavailable) {
		t.Fatalf("expected ErrModelUnavailable, got %v", err)
	}

	m, _ := reg.Get("L4718")
	if m.Scored() || m.Status != models.StatusUnknown {
		t.Fatalf("failed evaluation must not commit state: %+v", m)
	}
}

func TestHighRiskOrderingAndExclusion(t *testing.T) {
	reg := New(testLogger(), &fakeEvaluator{}, seedAll(50))

	// Push three machines into distinct risk tiers; the rest stay unscored.
	wearByID := map[string]float64{
		"L4718":  400, // 0.8 Failure
		"M14860": 250, // 0.5 Warning
		"H29424": 175, // 0.35 Warning
		"L4720":  50,  // 0.1 Normal
	}
	for id, wear := range wearByID {
		if err := reg.UpdateTelemetry(id, models.Telemetry{
			AirTemperature:     298,
			ProcessTemperature: 308,
			RotationalSpeed:    1500,
			Torque:             40,
			ToolWear:           wear,
		}); err != nil {
			t.Fatalf("update %s: %v", id, err)
		}
		if _, err := reg.Predict(context.Background(), id); err != nil {
			t.Fatalf("predict %s: %v", id, err)
		}
	}

	risky := reg.HighRisk()
	if len(risky) != 3 {
		t.Fatalf("expected 3 high-risk machines, got %d", len(risky))
	}
	wantOrder := []string{"L4718", "M14860", "H29424"}
	for i, want := range wantOrder {
		if risky[i].ID != want {
			t.Fatalf("position %d: expected %s, got %s", i, want, risky[i].ID)
		}
	}
	for _, m := range risky {
		if m.ID == "L4720" {
			t.Fatal("Normal machine leaked into high-risk list")
		}
	}
}

func TestByStatus(t *testing.T) {
	reg := New(testLogger(), &fakeEvaluator{}, seedAll(50)) // 0.1 -> Normal

	for _, id := range []string{"L4718", "L4720"} {
		if _, err := reg.Predict(context.Background(), id); err != nil {
			t.Fatalf("predict %s: %v", id, err)
		}
	}

	normal := reg.ByStatus(models.StatusNormal)
	if len(normal) != 2 {
		t.Fatalf("expected 2 Normal machines, got %d", len(normal))
	}
	unknown := reg.ByStatus(models.StatusUnknown)
	if len(unknown) != 18 {
		t.Fatalf("expected 18 unscored machines, got %d", len(unknown))
	}
}

func TestSummaryCensus(t *testing.T) {
	reg := New(testLogger(), &fakeEvaluator{}, seedAll(50))

	reg.UpdateTelemetry("L4718", models.Telemetry{AirTemperature: 298, ProcessTemperature: 308, RotationalSpeed: 1500, Torque: 40, ToolWear: 400})
	if _, err := reg.Predict(context.Background(), "L4718"); err != nil {
		t.Fatalf("predict: %v", err)
	}
	if _, err := reg.Predict(context.Background(), "M14860"); err != nil {
		t.Fatalf("predict: %v", err)
	}

	summary := reg.Summary()
	if summary.Total != 20 {
		t.Fatalf("expected total 20, got %d", summary.Total)
	}
	if summary.Failure != 1 || summary.Normal != 1 || summary.Unscored != 18 {
		t.Fatalf("unexpected census: %+v", summary)
	}
	if len(summary.HighRisk) != 1 || summary.HighRisk[0] != "L4718" {
		t.Fatalf("unexpected high-risk list: %v", summary.HighRisk)
	}
}

func TestConcurrentPredictAndUpdate(t *testing.T) {
	reg := New(testLogger(), &fakeEvaluator{}, seedAll(100))

	const workers = 16
	var wg sync.WaitGroup
	errs := make(chan error, workers*2)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			if _, err := reg.Predict(context.Background(), "H29424"); err != nil {
				errs <- fmt.Errorf("predict: %w", err)
			}
		}(i)

		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			if err := reg.UpdateTelemetry("H29424", models.Telemetry{
				AirTemperature:     298,
				ProcessTemperature: 308,
				RotationalSpeed:    1500,
				Torque:             40,
				ToolWear:           float64(100 + n),
			}); err != nil {
				errs <- fmt.Errorf("update: %w", err)
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatal(err)
	}

	m, err := reg.Get("H29424")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !m.Scored() {
		t.Fatal("machine should be scored after concurrent predicts")
	}
	// Whatever interleaving happened, status and probability must agree.
	if scoring.Classify(*m.LastProbability) != m.Status {
		t.Fatalf("status %s does not match probability %f", m.Status, *m.LastProbability)
	}
}
