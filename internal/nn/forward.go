package nn

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// Cache holds the activations of one forward pass. With tangents enabled it
// also holds d(activation)/dt for every layer.
type Cache struct {
	n        int
	acts     []*mat.Dense // acts[0] is the input row, acts[i] the output of layer i-1
	tangents []*mat.Dense // nil when the pass ran without tangents
	pre      []*mat.Dense // pre-activation tangents ż per layer
}

func (c *Cache) Len() int { return c.n }

func (c *Cache) HasTangent() bool { return c.tangents != nil }

// Output returns A(t) for each input.
func (c *Cache) Output() []float64 {
	return rowCopy(c.acts[len(c.acts)-1])
}

// Tangent returns dA/dt for each input, or nil without tangents.
func (c *Cache) Tangent() []float64 {
	if c.tangents == nil {
		return nil
	}
	return rowCopy(c.tangents[len(c.tangents)-1])
}

func rowCopy(m *mat.Dense) []float64 {
	out := make([]float64, m.RawMatrix().Cols)
	mat.Row(out, 0, m)
	return out
}

// Forward runs the batch ts through the network. With withTangent set it
// propagates dh/dt alongside every activation, seeded with dt/dt = 1.
func (n *Network) Forward(ts []float64, withTangent bool) (*Cache, error) {
	if len(ts) == 0 {
		return nil, fmt.Errorf("%w: empty batch", ErrShapeMismatch)
	}

	cache := &Cache{
		n:    len(ts),
		acts: make([]*mat.Dense, len(n.layers)+1),
	}
	cache.acts[0] = mat.NewDense(1, len(ts), append([]float64(nil), ts...))

	if withTangent {
		cache.tangents = make([]*mat.Dense, len(n.layers)+1)
		cache.pre = make([]*mat.Dense, len(n.layers))
		ones := make([]float64, len(ts))
		for i := range ones {
			ones[i] = 1
		}
		cache.tangents[0] = mat.NewDense(1, len(ts), ones)
	}

	last := len(n.layers) - 1
	for i, l := range n.layers {
		z := mat.NewDense(l.out, cache.n, nil)
		z.Mul(l.w, cache.acts[i])
		addBias(z, l.b)

		var zt *mat.Dense
		if withTangent {
			zt = mat.NewDense(l.out, cache.n, nil)
			zt.Mul(l.w, cache.tangents[i])
			cache.pre[i] = zt
		}

		if i == last {
			cache.acts[i+1] = z
			if withTangent {
				cache.tangents[i+1] = zt
			}
			continue
		}

		h := z
		applyTanh(h)
		cache.acts[i+1] = h
		if withTangent {
			g := mat.NewDense(l.out, cache.n, nil)
			g.Apply(func(r, c int, v float64) float64 {
				a := h.At(r, c)
				return (1 - a*a) * v
			}, zt)
			cache.tangents[i+1] = g
		}
	}

	return cache, nil
}

func addBias(z, b *mat.Dense) {
	raw := z.RawMatrix()
	for r := 0; r < raw.Rows; r++ {
		bv := b.At(r, 0)
		row := raw.Data[r*raw.Stride : r*raw.Stride+raw.Cols]
		for j := range row {
			row[j] += bv
		}
	}
}

func applyTanh(z *mat.Dense) {
	raw := z.RawMatrix()
	for r := 0; r < raw.Rows; r++ {
		row := raw.Data[r*raw.Stride : r*raw.Stride+raw.Cols]
		for j, v := range row {
			row[j] = math.Tanh(v)
		}
	}
}
