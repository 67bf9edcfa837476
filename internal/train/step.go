package train

import (
	"github.com/san-kum/pinnlab/internal/dataset"
	"github.com/san-kum/pinnlab/internal/decay"
)

// PlainStep runs one gradient-descent iteration on the observation MSE and
// returns the loss measured before the update.
func PlainStep(st *State, ds *dataset.Dataset) (Loss, error) {
	st.Net.ZeroGrad()

	data, err := dataTerm(st.Net, ds, 1, true)
	if err != nil {
		return Loss{}, err
	}

	loss := Loss{Iter: st.Iter + 1, Total: data, Data: data}
	if err := st.Opt.Step(st.Net.Params(), st.Net.Grads()); err != nil {
		return loss, err
	}
	st.Iter++
	return loss, nil
}

// PhysicsStep runs one iteration on w.Data·MSE + w.Physics·residual² and
// returns the loss measured before the update.
func PhysicsStep(st *State, ds *dataset.Dataset, law decay.Law, w Weights) (Loss, error) {
	st.Net.ZeroGrad()

	data, err := dataTerm(st.Net, ds, w.Data, true)
	if err != nil {
		return Loss{}, err
	}
	phys, err := physicsTerm(st.Net, ds, law, w.Physics, true)
	if err != nil {
		return Loss{}, err
	}

	loss := Loss{
		Iter:    st.Iter + 1,
		Total:   w.Data*data + w.Physics*phys,
		Data:    data,
		Physics: phys,
	}
	if err := st.Opt.Step(st.Net.Params(), st.Net.Grads()); err != nil {
		return loss, err
	}
	st.Iter++
	return loss, nil
}
