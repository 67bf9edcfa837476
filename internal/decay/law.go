// Package decay describes first-order decay, dA/dt = -k·A, the process the
// networks learn.
package decay

import (
	"errors"
	"fmt"
	"math"

	"github.com/san-kum/pinnlab/internal/ode"
)

var ErrInvalidLaw = errors.New("decay: invalid law")

const (
	DefaultK  = 0.5
	DefaultA0 = 1.0
)

// Law is the decay process with rate K and initial concentration A0.
type Law struct {
	K  float64 `yaml:"k" json:"k"`
	A0 float64 `yaml:"a0" json:"a0"`
}

func Default() Law {
	return Law{K: DefaultK, A0: DefaultA0}
}

// Analytic returns A0·e^(-k·t).
func (l Law) Analytic(t float64) float64 {
	return l.A0 * math.Exp(-l.K*t)
}

// Derivative returns the exact dA/dt of the analytic solution.
func (l Law) Derivative(t float64) float64 {
	return -l.K * l.Analytic(t)
}

// Residual is how far (a, dadt) is from satisfying dA/dt + k·A = 0.
func (l Law) Residual(a, dadt float64) float64 {
	return dadt + l.K*a
}

// Curve samples the analytic solution at ts.
func (l Law) Curve(ts []float64) []float64 {
	out := make([]float64, len(ts))
	for i, t := range ts {
		out[i] = l.Analytic(t)
	}
	return out
}

func (l Law) Derive(x ode.State, t float64) ode.State {
	return ode.State{-l.K * x[0]}
}

func (l Law) StateDim() int { return 1 }

func (l Law) Validate() error {
	if l.K <= 0 || math.IsNaN(l.K) || math.IsInf(l.K, 0) {
		return fmt.Errorf("%w: decay rate must be positive and finite, got %f", ErrInvalidLaw, l.K)
	}
	if math.IsNaN(l.A0) || math.IsInf(l.A0, 0) {
		return fmt.Errorf("%w: initial concentration must be finite, got %f", ErrInvalidLaw, l.A0)
	}
	return nil
}

func (l Law) String() string {
	return fmt.Sprintf("dA/dt = -%g·A, A(0) = %g", l.K, l.A0)
}
