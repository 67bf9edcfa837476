package integrators

import (
	"math"
	"testing"

	"github.com/san-kum/pinnlab/internal/ode"
)

type oscillator struct{}

func (oscillator) Derive(x ode.State, t float64) ode.State {
	return ode.State{x[1], -x[0]}
}

func (oscillator) StateDim() int { return 2 }

type expDecay struct{ k float64 }

func (d expDecay) Derive(x ode.State, t float64) ode.State {
	return ode.State{-d.k * x[0]}
}

func (d expDecay) StateDim() int { return 1 }

func TestRK4Accuracy(t *testing.T) {
	integ := NewRK4()

	x := ode.State{1.0, 0.0}
	dt := 0.01
	steps := 100

	for i := 0; i < steps; i++ {
		x = integ.Step(oscillator{}, x, float64(i)*dt, dt)
	}

	expectedX := math.Cos(float64(steps) * dt)
	expectedV := -math.Sin(float64(steps) * dt)

	if math.Abs(x[0]-expectedX) > 1e-4 {
		t.Errorf("position error too large: got %.6f, expected %.6f", x[0], expectedX)
	}
	if math.Abs(x[1]-expectedV) > 1e-4 {
		t.Errorf("velocity error too large: got %.6f, expected %.6f", x[1], expectedV)
	}
}

func TestDecayConvergence(t *testing.T) {
	tests := []struct {
		name string
		tol  float64
	}{
		{"euler", 5e-3},
		{"midpoint", 1e-6},
		{"rk4", 1e-9},
	}

	sys := expDecay{k: 0.5}
	dt := 0.01
	steps := 1000

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			integ, err := Get(tt.name)
			if err != nil {
				t.Fatal(err)
			}

			x := ode.State{1.0}
			for i := 0; i < steps; i++ {
				x = integ.Step(sys, x, float64(i)*dt, dt)
			}

			expected := math.Exp(-0.5 * float64(steps) * dt)
			if math.Abs(x[0]-expected) > tt.tol {
				t.Errorf("got %.10f, expected %.10f (tol %g)", x[0], expected, tt.tol)
			}
		})
	}
}

func TestGetUnknown(t *testing.T) {
	if _, err := Get("leapfrog"); err == nil {
		t.Error("expected error for unknown integrator")
	}
	if len(Names()) != 3 {
		t.Errorf("expected 3 integrators, got %v", Names())
	}
}

func TestTableauConsistency(t *testing.T) {
	for _, name := range Names() {
		integ, err := Get(name)
		if err != nil {
			t.Fatal(err)
		}
		tab := integ.(*Explicit).Tableau()

		sum := 0.0
		for _, b := range tab.B {
			sum += b
		}
		if math.Abs(sum-1) > 1e-15 {
			t.Errorf("%s: weights sum to %g", name, sum)
		}
		for s, row := range tab.A {
			rowSum := 0.0
			for j, a := range row {
				if j >= s && a != 0 {
					t.Errorf("%s: a[%d][%d] = %g makes the method implicit", name, s, j, a)
				}
				rowSum += a
			}
			if math.Abs(rowSum-tab.C[s]) > 1e-15 {
				t.Errorf("%s: row %d sums to %g, node is %g", name, s, rowSum, tab.C[s])
			}
		}
	}
}

// Halving the step divides the global error by 2^order.
func TestConvergenceOrder(t *testing.T) {
	tests := []struct {
		name  string
		order float64
	}{
		{"euler", 1},
		{"midpoint", 2},
		{"rk4", 4},
	}

	sys := expDecay{k: 0.5}
	solve := func(integ ode.Integrator, dt float64) float64 {
		x := ode.State{1.0}
		steps := int(math.Round(2 / dt))
		for i := 0; i < steps; i++ {
			x = integ.Step(sys, x, float64(i)*dt, dt)
		}
		return math.Abs(x[0] - math.Exp(-0.5*2))
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			integ, err := Get(tt.name)
			if err != nil {
				t.Fatal(err)
			}
			coarse, fine := solve(integ, 0.1), solve(integ, 0.05)
			got := math.Log2(coarse / fine)
			if math.Abs(got-tt.order) > 0.2 {
				t.Errorf("observed order %.2f, want %.0f", got, tt.order)
			}
		})
	}
}

func TestStepLeavesInput(t *testing.T) {
	x := ode.State{1.0, 0.0}
	_ = NewRK4().Step(oscillator{}, x, 0, 0.1)
	if x[0] != 1 || x[1] != 0 {
		t.Errorf("input state modified: %v", x)
	}
}
