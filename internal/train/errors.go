package train

import (
	"errors"
	"fmt"
)

var (
	// ErrDiverged indicates a NaN or Inf loss with CheckFinite enabled.
	ErrDiverged = errors.New("train: loss diverged (NaN or Inf)")

	ErrInvalidConfig = errors.New("train: invalid config")

	ErrUnknownKind = errors.New("train: unknown objective")
)

// TrainError wraps an error with the iteration it happened at.
type TrainError struct {
	Kind    Kind
	Iter    int
	Loss    Loss
	Wrapped error
}

func (e *TrainError) Error() string {
	return fmt.Sprintf("%s iteration %d: %v", e.Kind, e.Iter, e.Wrapped)
}

func (e *TrainError) Unwrap() error {
	return e.Wrapped
}
