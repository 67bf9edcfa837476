package nn

import (
	"errors"
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

var ErrShapeMismatch = errors.New("nn: shape mismatch")

// DefaultSizes is the 1→20→20→20→1 topology.
var DefaultSizes = []int{1, 20, 20, 20, 1}

type layer struct {
	w, b   *mat.Dense
	gw, gb *mat.Dense
	in     int
	out    int
}

// Network is a fully connected regressor with tanh hidden activations and a
// linear output. Parameters live in one flat slice so an optimizer can treat
// them as a single vector.
type Network struct {
	sizes  []int
	params []float64
	grads  []float64
	layers []layer
}

// NewMLP builds a network with the given layer sizes. Weights and biases are
// drawn from U(-1/sqrt(fan_in), 1/sqrt(fan_in)).
func NewMLP(rng *rand.Rand, sizes ...int) (*Network, error) {
	n, err := newEmpty(sizes)
	if err != nil {
		return nil, err
	}
	off := 0
	for _, l := range n.layers {
		bound := 1 / math.Sqrt(float64(l.in))
		for i := 0; i < l.out*l.in+l.out; i++ {
			n.params[off+i] = (2*rng.Float64() - 1) * bound
		}
		off += l.out*l.in + l.out
	}
	return n, nil
}

// NewDefault builds a fresh network with [DefaultSizes].
func NewDefault(rng *rand.Rand) *Network {
	n, err := NewMLP(rng, DefaultSizes...)
	if err != nil {
		panic(err)
	}
	return n
}

func newEmpty(sizes []int) (*Network, error) {
	if len(sizes) < 2 {
		return nil, fmt.Errorf("%w: need at least input and output sizes, got %v", ErrShapeMismatch, sizes)
	}
	if sizes[0] != 1 || sizes[len(sizes)-1] != 1 {
		return nil, fmt.Errorf("%w: input and output must be scalar, got %v", ErrShapeMismatch, sizes)
	}
	total := 0
	for i := 1; i < len(sizes); i++ {
		if sizes[i] < 1 {
			return nil, fmt.Errorf("%w: layer %d has width %d", ErrShapeMismatch, i, sizes[i])
		}
		total += sizes[i]*sizes[i-1] + sizes[i]
	}

	n := &Network{
		sizes:  append([]int(nil), sizes...),
		params: make([]float64, total),
		grads:  make([]float64, total),
		layers: make([]layer, len(sizes)-1),
	}
	n.bind()
	return n, nil
}

// bind points every layer's matrices at its slice of params and grads.
func (n *Network) bind() {
	off := 0
	for i := range n.layers {
		in, out := n.sizes[i], n.sizes[i+1]
		nw := out * in
		n.layers[i] = layer{
			w:   mat.NewDense(out, in, n.params[off:off+nw]),
			b:   mat.NewDense(out, 1, n.params[off+nw:off+nw+out]),
			gw:  mat.NewDense(out, in, n.grads[off:off+nw]),
			gb:  mat.NewDense(out, 1, n.grads[off+nw:off+nw+out]),
			in:  in,
			out: out,
		}
		off += nw + out
	}
}

func (n *Network) Sizes() []int { return append([]int(nil), n.sizes...) }

// Params returns the live parameter vector.
func (n *Network) Params() []float64 { return n.params }

// Grads returns the live gradient vector, aligned with Params.
func (n *Network) Grads() []float64 { return n.grads }

func (n *Network) NumParams() int { return len(n.params) }

// IsFinite reports whether every parameter is a finite number.
func (n *Network) IsFinite() bool {
	for _, p := range n.params {
		if math.IsNaN(p) || math.IsInf(p, 0) {
			return false
		}
	}
	return true
}

func (n *Network) ZeroGrad() {
	for i := range n.grads {
		n.grads[i] = 0
	}
}

func (n *Network) Clone() *Network {
	c, _ := newEmpty(n.sizes)
	copy(c.params, n.params)
	copy(c.grads, n.grads)
	return c
}

// Predict evaluates the network on ts without keeping anything for backward.
func (n *Network) Predict(ts []float64) []float64 {
	if len(ts) == 0 {
		return []float64{}
	}
	cache, _ := n.Forward(ts, false)
	return cache.Output()
}
