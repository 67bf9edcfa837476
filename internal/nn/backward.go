package nn

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Backward accumulates parameter gradients for a loss L given dL/dA (dOut)
// and dL/d(dA/dt) (dTangent) at every sample of cache. dTangent may be nil;
// it must be nil when the cache was built without tangents. Gradients add to
// whatever Grads already holds, so several passes can share one step.
func (n *Network) Backward(cache *Cache, dOut, dTangent []float64) error {
	if len(dOut) != cache.n {
		return fmt.Errorf("%w: dOut has %d entries for a batch of %d", ErrShapeMismatch, len(dOut), cache.n)
	}
	if dTangent != nil {
		if !cache.HasTangent() {
			return fmt.Errorf("%w: tangent adjoint given for a pass without tangents", ErrShapeMismatch)
		}
		if len(dTangent) != cache.n {
			return fmt.Errorf("%w: dTangent has %d entries for a batch of %d", ErrShapeMismatch, len(dTangent), cache.n)
		}
	}
	useTangent := dTangent != nil

	last := len(n.layers) - 1
	var hbar, gbar *mat.Dense

	for i := last; i >= 0; i-- {
		l := n.layers[i]
		var zbar, ztbar *mat.Dense

		if i == last {
			zbar = mat.NewDense(1, cache.n, append([]float64(nil), dOut...))
			if useTangent {
				ztbar = mat.NewDense(1, cache.n, append([]float64(nil), dTangent...))
			}
		} else {
			zbar, ztbar = tanhAdjoint(cache.acts[i+1], pre(cache, i), hbar, gbar)
		}

		tmp := mat.NewDense(l.out, l.in, nil)
		tmp.Mul(zbar, cache.acts[i].T())
		l.gw.Add(l.gw, tmp)
		if ztbar != nil {
			tmp.Mul(ztbar, cache.tangents[i].T())
			l.gw.Add(l.gw, tmp)
		}
		accumulateRowSums(l.gb, zbar)

		if i == 0 {
			break
		}
		hbar = mat.NewDense(l.in, cache.n, nil)
		hbar.Mul(l.w.T(), zbar)
		gbar = nil
		if ztbar != nil {
			gbar = mat.NewDense(l.in, cache.n, nil)
			gbar.Mul(l.w.T(), ztbar)
		}
	}

	return nil
}

func pre(cache *Cache, i int) *mat.Dense {
	if cache.pre == nil {
		return nil
	}
	return cache.pre[i]
}

// tanhAdjoint maps adjoints of h = tanh(z) and g = (1-h²)·ż back onto z and ż.
func tanhAdjoint(h, zt, hbar, gbar *mat.Dense) (zbar, ztbar *mat.Dense) {
	rows, cols := h.Dims()
	zbar = mat.NewDense(rows, cols, nil)
	if gbar == nil {
		zbar.Apply(func(r, c int, v float64) float64 {
			a := h.At(r, c)
			return (1 - a*a) * v
		}, hbar)
		return zbar, nil
	}

	ztbar = mat.NewDense(rows, cols, nil)
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			a := h.At(r, c)
			s := 1 - a*a
			gb := gbar.At(r, c)
			ztbar.Set(r, c, s*gb)
			total := hbar.At(r, c) - 2*a*zt.At(r, c)*gb
			zbar.Set(r, c, s*total)
		}
	}
	return zbar, ztbar
}

func accumulateRowSums(gb, m *mat.Dense) {
	rows, _ := m.Dims()
	for r := 0; r < rows; r++ {
		gb.Set(r, 0, gb.At(r, 0)+mat.Sum(m.RowView(r)))
	}
}
