package optim

import (
	"fmt"
	"math"
)

const (
	DefaultLR    = 1e-3
	DefaultBeta1 = 0.9
	DefaultBeta2 = 0.999
	DefaultEps   = 1e-8
)

// AdamState is the moment estimates and step count for one parameter vector.
// It belongs to exactly one training run.
type AdamState struct {
	M    []float64 `json:"m"`
	V    []float64 `json:"v"`
	Step int       `json:"step"`
}

type Adam struct {
	LR    float64
	Beta1 float64
	Beta2 float64
	Eps   float64
	State AdamState
}

func NewAdam(lr float64, numParams int) *Adam {
	return &Adam{
		LR:    lr,
		Beta1: DefaultBeta1,
		Beta2: DefaultBeta2,
		Eps:   DefaultEps,
		State: AdamState{
			M: make([]float64, numParams),
			V: make([]float64, numParams),
		},
	}
}

// Step applies one bias-corrected Adam update to params in place.
func (a *Adam) Step(params, grads []float64) error {
	if len(params) != len(grads) || len(params) != len(a.State.M) {
		return fmt.Errorf("adam: %d params, %d grads, state for %d", len(params), len(grads), len(a.State.M))
	}

	st := &a.State
	st.Step++
	b1, b2 := a.Beta1, a.Beta2
	b1Corr := 1.0 - math.Pow(b1, float64(st.Step))
	b2Corr := 1.0 - math.Pow(b2, float64(st.Step))

	for j, g := range grads {
		st.M[j] = b1*st.M[j] + (1-b1)*g
		st.V[j] = b2*st.V[j] + (1-b2)*(g*g)
		mhat := st.M[j] / b1Corr
		vhat := st.V[j] / b2Corr
		params[j] -= a.LR * mhat / (math.Sqrt(vhat) + a.Eps)
	}
	return nil
}

func (a *Adam) Clone() *Adam {
	c := *a
	c.State = AdamState{
		M:    append([]float64(nil), a.State.M...),
		V:    append([]float64(nil), a.State.V...),
		Step: a.State.Step,
	}
	return &c
}
