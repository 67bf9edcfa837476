package experiment

import (
	"context"

	"github.com/san-kum/pinnlab/internal/optim"
)

const (
	ParamPhysicsWeight = "physics_weight"
	ParamDataWeight    = "data_weight"
	ParamLR            = "learning_rate"
)

// Evaluator returns a grid-search evaluator that reruns the comparison with
// the searched parameters applied on top of base.
func Evaluator(base Config) optim.Evaluator {
	return func(ctx context.Context, params map[string]float64) (map[string]float64, error) {
		cfg := base
		for name, v := range params {
			switch name {
			case ParamPhysicsWeight:
				cfg.Train.PhysicsWeight = v
			case ParamDataWeight:
				cfg.Train.DataWeight = v
			case ParamLR:
				cfg.Train.LR = v
			}
		}
		out, err := New(cfg).Run(ctx)
		if err != nil {
			return nil, err
		}
		return out.Metrics, nil
	}
}
