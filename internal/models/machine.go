package models

import "time"

// MachineClass encodes the duty tier carried by a machine id prefix.
type MachineClass string

const (
	ClassLow    MachineClass = "L"
	ClassMedium MachineClass = "M"
	ClassHigh   MachineClass = "H"
)

// Status captures the health tier derived from failure probability.
type Status string

const (
	// StatusUnknown marks a machine that has never been scored.
	StatusUnknown Status = "Unknown"
	StatusNormal  Status = "Normal"
	StatusWarning Status = "Warning"
	StatusFailure Status = "Failure"
)

// Physical bounds for a plausible sensor reading. Values outside these
// ranges are rejected as InvalidFeatures before scoring.
const (
	MinTemperatureK = 250.0
	MaxTemperatureK = 350.0
	MaxSpeedRPM     = 3000.0
	MaxTorqueNm     = 100.0
	MaxToolWearMin  = 500.0
)

// Telemetry is the 5-feature sensor reading for one machine.
type Telemetry struct {
	AirTemperature     float64 `json:"air_temperature"`
	ProcessTemperature float64 `json:"process_temperature"`
	RotationalSpeed    float64 `json:"rotational_speed"`
	Torque             float64 `json:"torque"`
	ToolWear           float64 `json:"tool_wear"`
}

// Machine is the identity and current state of one fleet unit.
type Machine struct {
	ID              string       `json:"machine_id"`
	Class           MachineClass `json:"machine_type"`
	Telemetry       Telemetry    `json:"sensor_data"`
	LastProbability *float64     `json:"failure_probability,omitempty"`
	Status          Status       `json:"status"`
	LastUpdated     time.Time    `json:"last_updated"`
}

// Scored reports whether the machine has been run through the scoring
// pipeline at least once.
func (m Machine) Scored() bool {
	return m.LastProbability != nil
}

// PredictionResult is the ephemeral output of one prediction request.
// Recommendations are only present for Warning and Failure tiers.
type PredictionResult struct {
	MachineID       string    `json:"machine_id"`
	Probability     float64   `json:"probability"`
	Status          Status    `json:"status"`
	Message         string    `json:"message"`
	Recommendations []string  `json:"recommendations,omitempty"`
	PredictedAt     time.Time `json:"predicted_at"`
}

// FleetSummary is a compact per-status census used to ground the
// free-form branch of the agent.
type FleetSummary struct {
	Total    int      `json:"total_machines"`
	Normal   int      `json:"normal"`
	Warning  int      `json:"warning"`
	Failure  int      `json:"failure"`
	Unscored int      `json:"unscored"`
	HighRisk []string `json:"high_risk_machines"`
}

// ClassOf derives the duty class from a machine id prefix. Unrecognised
// prefixes fall back to the low-duty tier.
func ClassOf(id string) MachineClass {
	if id == "" {
		return ClassLow
	}
	switch id[0] {
	case 'H':
		return ClassHigh
	case 'M':
		return ClassMedium
	default:
		return ClassLow
	}
}

// ParseStatus maps user-facing status text onto a Status value.
func ParseStatus(value string) (Status, bool) {
	switch value {
	case string(StatusNormal), "normal":
		return StatusNormal, true
	case string(StatusWarning), "warning":
		return StatusWarning, true
	case string(StatusFailure), "failure":
		return StatusFailure, true
	default:
		return StatusUnknown, false
	}
}
