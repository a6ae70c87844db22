package physics

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidSettings indicates settings that cannot produce a simulation.
	ErrInvalidSettings = errors.New("physics: invalid settings")

	// ErrUnknownKind indicates a strategy kind outside its enumeration.
	ErrUnknownKind = errors.New("physics: unknown strategy kind")

	// ErrUnknownPreset indicates a preset id outside the preset table.
	ErrUnknownPreset = errors.New("physics: unknown preset")

	// ErrNoVariant indicates a force cannot be converted to the requested kind.
	ErrNoVariant = errors.New("physics: no such force variant")
)

// StepError wraps a failure that happened while advancing the simulation.
// The particle state has already been advanced when it is returned.
type StepError struct {
	Step    int
	Time    float64
	Wrapped error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %d (t=%.4f): %v", e.Step, e.Time, e.Wrapped)
}

func (e *StepError) Unwrap() error {
	return e.Wrapped
}
