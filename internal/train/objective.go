package train

import (
	"github.com/san-kum/pinnlab/internal/dataset"
	"github.com/san-kum/pinnlab/internal/decay"
	"github.com/san-kum/pinnlab/internal/nn"
)

// dataTerm returns the MSE on the observations and, when backprop is set,
// adds weight·d(MSE)/dθ to the network gradients.
func dataTerm(net *nn.Network, ds *dataset.Dataset, weight float64, backprop bool) (float64, error) {
	cache, err := net.Forward(ds.Times(), false)
	if err != nil {
		return 0, err
	}

	pred := cache.Output()
	targets := ds.Targets()
	n := float64(len(pred))
	mse := 0.0
	dOut := make([]float64, len(pred))
	for i, y := range pred {
		r := y - targets[i]
		mse += r * r
		dOut[i] = weight * 2 * r / n
	}
	mse /= n

	if backprop {
		if err := net.Backward(cache, dOut, nil); err != nil {
			return 0, err
		}
	}
	return mse, nil
}

// physicsTerm returns mean((dA/dt + k·A)²) over the collocation points and,
// when backprop is set, adds weight·d(term)/dθ to the network gradients.
func physicsTerm(net *nn.Network, ds *dataset.Dataset, law decay.Law, weight float64, backprop bool) (float64, error) {
	cache, err := net.Forward(ds.Collocation, true)
	if err != nil {
		return 0, err
	}

	a := cache.Output()
	dadt := cache.Tangent()
	n := float64(len(a))
	mean := 0.0
	dOut := make([]float64, len(a))
	dTangent := make([]float64, len(a))
	for i := range a {
		r := law.Residual(a[i], dadt[i])
		mean += r * r
		g := weight * 2 * r / n
		dOut[i] = g * law.K
		dTangent[i] = g
	}
	mean /= n

	if backprop {
		if err := net.Backward(cache, dOut, dTangent); err != nil {
			return 0, err
		}
	}
	return mean, nil
}

// Evaluate computes both loss terms for net without touching its gradients.
// The physics term is reported for plain networks too; Total only includes
// the terms the objective trains on.
func Evaluate(kind Kind, net *nn.Network, ds *dataset.Dataset, law decay.Law, w Weights) (Loss, error) {
	data, err := dataTerm(net, ds, 1, false)
	if err != nil {
		return Loss{}, err
	}
	phys, err := physicsTerm(net, ds, law, 1, false)
	if err != nil {
		return Loss{}, err
	}

	l := Loss{Data: data, Physics: phys, Total: data}
	if kind == Physics {
		l.Total = w.Data*data + w.Physics*phys
	}
	return l, nil
}
