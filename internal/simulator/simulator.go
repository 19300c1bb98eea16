// Package simulator produces plausible, time-varying sensor readings for
// the fleet. It holds no fleet state of its own: mutating the registry
// with the readings it returns is the caller's job, which keeps the
// simulator testable in isolation.
package simulator

import (
	"math/rand"
	"sync"

	"github.com/satria-tarigan/predictive-maintenance-copilot-backend/internal/models"
)

// Per-class rotational speed profiles. Higher duty tiers run hotter and
// faster, with a wider spread.
var speedProfiles = map[models.MachineClass]struct {
	mean   float64
	stddev float64
}{
	models.ClassHigh:   {mean: 2000, stddev: 300},
	models.ClassMedium: {mean: 1550, stddev: 200},
	models.ClassLow:    {mean: 1300, stddev: 150},
}

// Simulator generates bounded random telemetry around class-appropriate
// baselines.
type Simulator struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// New constructs a Simulator. A zero seed yields a fixed default so runs
// are reproducible unless the caller opts into a varying seed.
func New(seed int64) *Simulator {
	if seed == 0 {
		seed = 1
	}
	return &Simulator{rng: rand.New(rand.NewSource(seed))}
}

// Tick returns a fresh reading for one machine. Values are always inside
// the declared physical bounds.
func (s *Simulator) Tick(machineID string) models.Telemetry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generate(models.ClassOf(machineID))
}

// TickAll advances every listed machine one step and returns the
// readings keyed by machine id.
func (s *Simulator) TickAll(machineIDs []string) map[string]models.Telemetry {
	s.mu.Lock()
	defer s.mu.Unlock()

	readings := make(map[string]models.Telemetry, len(machineIDs))
	for _, id := range machineIDs {
		readings[id] = s.generate(models.ClassOf(id))
	}
	return readings
}

func (s *Simulator) generate(class models.MachineClass) models.Telemetry {
	baseTemp := 298.0
	switch class {
	case models.ClassHigh:
		baseTemp += s.rng.Float64() * 5
	case models.ClassMedium:
		baseTemp += s.rng.Float64() * 3
	}

	airTemp := clamp(baseTemp+s.rng.NormFloat64()*2, models.MinTemperatureK, models.MaxTemperatureK)
	processTemp := clamp(airTemp+8+s.rng.Float64()*4+s.rng.NormFloat64(), models.MinTemperatureK, models.MaxTemperatureK)

	profile := speedProfiles[class]
	if profile.mean == 0 {
		profile = speedProfiles[models.ClassLow]
	}
	speed := clamp(profile.mean+s.rng.NormFloat64()*profile.stddev, 0, models.MaxSpeedRPM)

	// Torque falls off as the spindle spins up, mirroring a constant-power
	// operating region.
	baseTorque := 40.0
	if speed > 1500 {
		baseTorque -= (speed - 1500) * 0.01
	}
	torque := clamp(baseTorque+s.rng.NormFloat64()*10, 0, models.MaxTorqueNm)

	toolWear := s.rng.Float64() * 250

	return models.Telemetry{
		AirTemperature:     round1(airTemp),
		ProcessTemperature: round1(processTemp),
		RotationalSpeed:    float64(int(speed)),
		Torque:             round1(torque),
		ToolWear:           float64(int(toolWear)),
	}
}

func clamp(value, min, max float64) float64 {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}

func round1(value float64) float64 {
	return float64(int(value*10+0.5)) / 10
}
