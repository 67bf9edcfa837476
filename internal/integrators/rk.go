package integrators

import "github.com/san-kum/pinnlab/internal/ode"

// Tableau holds the Butcher coefficients of an explicit Runge-Kutta method.
// A is strictly lower triangular.
type Tableau struct {
	A [][]float64
	B []float64
	C []float64
}

// Stages is the number of derivative evaluations per step.
func (tb Tableau) Stages() int { return len(tb.B) }

var (
	eulerTableau = Tableau{
		A: [][]float64{{0}},
		B: []float64{1},
		C: []float64{0},
	}
	midpointTableau = Tableau{
		A: [][]float64{
			{0, 0},
			{0.5, 0},
		},
		B: []float64{0, 1},
		C: []float64{0, 0.5},
	}
	rk4Tableau = Tableau{
		A: [][]float64{
			{0, 0, 0, 0},
			{0.5, 0, 0, 0},
			{0, 0.5, 0, 0},
			{0, 0, 1, 0},
		},
		B: []float64{1.0 / 6, 1.0 / 3, 1.0 / 3, 1.0 / 6},
		C: []float64{0, 0.5, 0.5, 1},
	}
)

// Explicit is a fixed-step explicit Runge-Kutta integrator. Stage buffers
// are reused between steps, so one value must not step two systems
// concurrently.
type Explicit struct {
	name  string
	tab   Tableau
	ks    []ode.State
	stage ode.State
}

func NewExplicit(name string, tab Tableau) *Explicit {
	return &Explicit{name: name, tab: tab}
}

func NewEuler() *Explicit { return NewExplicit("euler", eulerTableau) }

func NewMidpoint() *Explicit { return NewExplicit("midpoint", midpointTableau) }

func NewRK4() *Explicit { return NewExplicit("rk4", rk4Tableau) }

func (e *Explicit) Name() string { return e.name }

func (e *Explicit) Tableau() Tableau { return e.tab }

func (e *Explicit) buffers(n int) {
	if len(e.stage) == n && len(e.ks) == e.tab.Stages() {
		return
	}
	e.ks = make([]ode.State, e.tab.Stages())
	for i := range e.ks {
		e.ks[i] = make(ode.State, n)
	}
	e.stage = make(ode.State, n)
}

// Step advances x from t to t+dt and returns the new state; x is not
// modified.
func (e *Explicit) Step(sys ode.System, x ode.State, t, dt float64) ode.State {
	n := len(x)
	e.buffers(n)

	for s := range e.ks {
		copy(e.stage, x)
		for j := 0; j < s; j++ {
			if a := e.tab.A[s][j]; a != 0 {
				for i := 0; i < n; i++ {
					e.stage[i] += dt * a * e.ks[j][i]
				}
			}
		}
		copy(e.ks[s], sys.Derive(e.stage, t+e.tab.C[s]*dt))
	}

	next := x.Clone()
	for s, b := range e.tab.B {
		if b == 0 {
			continue
		}
		for i := 0; i < n; i++ {
			next[i] += dt * b * e.ks[s][i]
		}
	}
	return next
}
