package models

import "errors"

// Failure taxonomy shared by the registry, scoring pipeline, and agent.
// All of these are recoverable: the conversational surface converts them
// into user-facing text and the HTTP boundary into status codes.
var (
	// ErrUnknownMachine signals a machine id outside the fixed fleet.
	ErrUnknownMachine = errors.New("unknown machine")

	// ErrInvalidFeatures signals telemetry that is missing, non-numeric,
	// or outside the declared physical ranges.
	ErrInvalidFeatures = errors.New("invalid features")

	// ErrModelUnavailable signals that the model artifact failed to load
	// or the scoring call exceeded its time budget.
	ErrModelUnavailable = errors.New("model unavailable")

	// ErrGenerationBackend signals that the free-form text backend is
	// unreachable or returned garbage.
	ErrGenerationBackend = errors.New("generation backend failure")
)
