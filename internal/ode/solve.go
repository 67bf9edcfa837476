package ode

import (
	"context"
	"fmt"
	"math"
)

// Solve integrates sys from x0 over cfg.Duration with a fixed step. The final
// step is shortened so the last stored time equals cfg.Duration.
func Solve(ctx context.Context, sys System, integ Integrator, x0 State, cfg Config) (*Result, error) {
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}
	if len(x0) != sys.StateDim() {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(x0), sys.StateDim())
	}

	steps := int(math.Ceil(cfg.Duration/cfg.Dt - 1e-9))
	result := &Result{
		States: make([]State, 0, steps+1),
		Times:  make([]float64, 0, steps+1),
	}

	x := x0.Clone()
	t := 0.0
	result.States = append(result.States, x.Clone())
	result.Times = append(result.Times, t)

	for i := 0; i < steps; i++ {
		select {
		case <-ctx.Done():
			return result, ctx.Err()
		default:
		}

		dt := math.Min(cfg.Dt, cfg.Duration-t)
		x = integ.Step(sys, x, t, dt)
		if i == steps-1 {
			t = cfg.Duration
		} else {
			t += dt
		}

		if cfg.ValidateState && !x.IsValid() {
			return result, &SolveError{Step: i, Time: t, Wrapped: ErrInvalidState}
		}

		result.StepsTaken++
		result.States = append(result.States, x.Clone())
		result.Times = append(result.Times, t)
	}

	return result, nil
}

func validateConfig(cfg Config) error {
	if cfg.Dt <= 0 {
		return fmt.Errorf("%w: dt must be positive, got %f", ErrInvalidConfig, cfg.Dt)
	}
	if cfg.Duration <= 0 {
		return fmt.Errorf("%w: duration must be positive, got %f", ErrInvalidConfig, cfg.Duration)
	}
	return nil
}
