// Package evaluate compares trained networks against the analytic solution.
package evaluate

import (
	"fmt"
	"math"

	"github.com/san-kum/pinnlab/internal/dataset"
	"github.com/san-kum/pinnlab/internal/decay"
	"github.com/san-kum/pinnlab/internal/nn"
)

// Report holds both models' predictions on the evaluation grid.
type Report struct {
	Grid   []float64
	Truth  []float64
	Plain  []float64
	PINN   []float64
	Cutoff float64
}

// Evaluate runs both networks over the grid of ds. No gradient state is kept.
func Evaluate(plain, pinn *nn.Network, ds *dataset.Dataset, law decay.Law) *Report {
	return &Report{
		Grid:   append([]float64(nil), ds.Grid...),
		Truth:  law.Curve(ds.Grid),
		Plain:  plain.Predict(ds.Grid),
		PINN:   pinn.Predict(ds.Grid),
		Cutoff: ds.Cutoff,
	}
}

// Errors measures one prediction sequence against the truth.
type Errors struct {
	MAEObserved  float64 `json:"mae_observed"`
	MAEHeldOut   float64 `json:"mae_held_out"`
	MaxHeldOut   float64 `json:"max_held_out"`
	AbsErrAtTMax float64 `json:"abs_err_at_t_max"`
}

func (r *Report) errors(pred []float64) Errors {
	var e Errors
	var nIn, nOut int
	for i, t := range r.Grid {
		d := math.Abs(pred[i] - r.Truth[i])
		if t > r.Cutoff {
			e.MAEHeldOut += d
			e.MaxHeldOut = math.Max(e.MaxHeldOut, d)
			nOut++
		} else {
			e.MAEObserved += d
			nIn++
		}
	}
	if nIn > 0 {
		e.MAEObserved /= float64(nIn)
	}
	if nOut > 0 {
		e.MAEHeldOut /= float64(nOut)
	}
	if n := len(pred); n > 0 {
		e.AbsErrAtTMax = math.Abs(pred[n-1] - r.Truth[n-1])
	}
	return e
}

func (r *Report) PlainErrors() Errors { return r.errors(r.Plain) }

func (r *Report) PINNErrors() Errors { return r.errors(r.PINN) }

// Ratio is plain held-out MAE over PINN held-out MAE. Values above one mean
// the physics-informed network extrapolates better.
func (r *Report) Ratio() float64 {
	p := r.PINNErrors().MAEHeldOut
	if p == 0 {
		return math.Inf(1)
	}
	return r.PlainErrors().MAEHeldOut / p
}

// Metrics flattens the report into named values for storage and printing.
func (r *Report) Metrics() map[string]float64 {
	pl, pn := r.PlainErrors(), r.PINNErrors()
	return map[string]float64{
		"plain_mae_observed": pl.MAEObserved,
		"plain_mae_held_out": pl.MAEHeldOut,
		"plain_max_held_out": pl.MaxHeldOut,
		"plain_err_t_max":    pl.AbsErrAtTMax,
		"pinn_mae_observed":  pn.MAEObserved,
		"pinn_mae_held_out":  pn.MAEHeldOut,
		"pinn_max_held_out":  pn.MaxHeldOut,
		"pinn_err_t_max":     pn.AbsErrAtTMax,
		"held_out_ratio":     r.Ratio(),
	}
}

func (r *Report) Summary() string {
	pl, pn := r.PlainErrors(), r.PINNErrors()
	return fmt.Sprintf("held-out MAE: plain %.4f, pinn %.4f (ratio %.1fx)", pl.MAEHeldOut, pn.MAEHeldOut, r.Ratio())
}
