package enhance

import (
	"errors"
	"fmt"

	"go_enhance/backend"
)

var (
	// ErrNotInitialized is returned by run methods before Initialize succeeds.
	ErrNotInitialized = errors.New("enhance: engine not initialized")

	// ErrCancelled is returned when a run observed a cancellation request.
	ErrCancelled = errors.New("enhance: run cancelled")

	// ErrIntegrity is returned when an artifact failed its digest check.
	ErrIntegrity = errors.New("enhance: artifact integrity check failed")

	// ErrLoad is returned when a backend could not be created or loaded.
	ErrLoad = errors.New("enhance: backend load failed")

	// ErrInvalidInput is returned for empty images or mismatched buffers.
	ErrInvalidInput = errors.New("enhance: invalid input")
)

// StageError reports a failed pipeline stage.
type StageError struct {
	Stage string
	Op    string
	Code  backend.Status

	// DelegateFailed marks failures attributed to the accelerated delegate;
	// the engine answers them with a CPU re-run.
	DelegateFailed bool
	Cause          FallbackCause

	Err error
}

func (e *StageError) Error() string {
	msg := fmt.Sprintf("enhance: %s %s failed", e.Stage, e.Op)
	if e.Code != backend.StatusOK {
		msg += fmt.Sprintf(" (status %d)", e.Code)
	}
	if e.DelegateFailed {
		msg += " on accelerated delegate"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// LoadError reports a failure while verifying or loading one artifact.
type LoadError struct {
	Model    backend.Model
	Delegate backend.Delegate
	File     string
	Code     backend.Status
	Err      error
}

func (e *LoadError) Error() string {
	if e.Code != backend.StatusOK {
		return fmt.Sprintf("enhance: load %s (%s) from %s: status %d: %v", e.Model, e.Delegate, e.File, e.Code, e.Err)
	}
	return fmt.Sprintf("enhance: load %s (%s) from %s: %v", e.Model, e.Delegate, e.File, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// IsIntegrity reports whether the load failed the digest gate.
func (e *LoadError) IsIntegrity() bool {
	return errors.Is(e.Err, ErrIntegrity)
}
