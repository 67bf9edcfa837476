package ode

import (
	"context"
	"errors"
	"math"
	"testing"
)

type testDecay struct{}

func (testDecay) Derive(x State, t float64) State { return State{-x[0]} }
func (testDecay) StateDim() int                   { return 1 }

type testEuler struct{}

func (testEuler) Step(sys System, x State, t, dt float64) State {
	dx := sys.Derive(x, t)
	return State{x[0] + dt*dx[0]}
}

func TestSolveRun(t *testing.T) {
	cfg := Config{Dt: 0.1, Duration: 1.0}

	result, err := Solve(context.Background(), testDecay{}, testEuler{}, State{1.0}, cfg)
	if err != nil {
		t.Fatalf("solve failed: %v", err)
	}

	if len(result.States) != 11 {
		t.Errorf("expected 11 states, got %d", len(result.States))
	}
	if len(result.Times) != 11 {
		t.Errorf("expected 11 times, got %d", len(result.Times))
	}
	if result.Times[len(result.Times)-1] != 1.0 {
		t.Errorf("expected last time 1.0, got %f", result.Times[len(result.Times)-1])
	}

	final := result.States[len(result.States)-1][0]
	expected := math.Exp(-1.0)
	if math.Abs(final-expected) > 0.2 {
		t.Errorf("expected final state ~%.4f, got %.4f", expected, final)
	}
}

func TestSolveInvalidConfig(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"zero dt", Config{Dt: 0, Duration: 1.0}},
		{"negative dt", Config{Dt: -0.1, Duration: 1.0}},
		{"zero duration", Config{Dt: 0.1, Duration: 0}},
		{"negative duration", Config{Dt: 0.1, Duration: -1.0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Solve(context.Background(), testDecay{}, testEuler{}, State{1.0}, tt.cfg)
			if !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("expected ErrInvalidConfig, got %v", err)
			}
		})
	}
}

func TestSolveDimensionMismatch(t *testing.T) {
	_, err := Solve(context.Background(), testDecay{}, testEuler{}, State{1.0, 2.0}, DefaultConfig())
	if !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("expected ErrDimensionMismatch, got %v", err)
	}
}

func TestSolveCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := Solve(ctx, testDecay{}, testEuler{}, State{1.0}, DefaultConfig())
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if len(result.States) != 1 {
		t.Errorf("expected only the initial state, got %d", len(result.States))
	}
}

type blowUp struct{}

func (blowUp) Derive(x State, t float64) State { return State{math.Inf(1)} }
func (blowUp) StateDim() int                   { return 1 }

func TestSolveInvalidState(t *testing.T) {
	cfg := Config{Dt: 0.1, Duration: 1.0, ValidateState: true}
	_, err := Solve(context.Background(), blowUp{}, testEuler{}, State{1.0}, cfg)

	var serr *SolveError
	if !errors.As(err, &serr) {
		t.Fatalf("expected SolveError, got %v", err)
	}
	if !errors.Is(err, ErrInvalidState) {
		t.Errorf("expected ErrInvalidState, got %v", serr.Wrapped)
	}
	if serr.Step != 0 {
		t.Errorf("expected failure at step 0, got %d", serr.Step)
	}
}

func TestResultComponent(t *testing.T) {
	r := &Result{States: []State{{1, 2}, {3, 4}}}
	got := r.Component(1)
	if got[0] != 2 || got[1] != 4 {
		t.Errorf("unexpected component: %v", got)
	}
}
