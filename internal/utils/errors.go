package utils

import "fmt"

// AppError carries the failing operation, a human-facing message, and the
// wrapped cause. The cause is usually one of the models sentinel errors,
// so errors.Is keeps working across layers.
type AppError struct {
	Op  string
	Msg string
	Err error
}

// NewAppError constructs an AppError.
func NewAppError(op, msg string, err error) error {
	return &AppError{Op: op, Msg: msg, Err: err}
}

func (e *AppError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Msg)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Msg, e.Err)
}

func (e *AppError) Unwrap() error {
	return e.Err
}
