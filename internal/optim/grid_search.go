package optim

import (
	"context"
	"errors"
	"math"
	"sort"
)

// Trial is one evaluated point of a grid.
type Trial struct {
	Params  map[string]float64
	Metrics map[string]float64
	Err     error
}

type GridSearch struct {
	paramNames []string
	ranges     [][]float64
}

func NewGridSearch(params []string, ranges [][]float64) *GridSearch {
	return &GridSearch{paramNames: params, ranges: ranges}
}

// Evaluator runs one configuration and reports its metrics.
type Evaluator func(ctx context.Context, params map[string]float64) (map[string]float64, error)

// Search evaluates every combination and returns the one minimizing
// metricName together with every trial in grid order. A canceled context
// stops the search and is returned.
func (g *GridSearch) Search(ctx context.Context, eval Evaluator, metricName string) (map[string]float64, float64, []Trial, error) {
	best := math.Inf(1)
	var bestParams map[string]float64
	trials := make([]Trial, 0)

	err := g.searchRecursive(ctx, 0, make(map[string]float64), eval, func(tr Trial) {
		trials = append(trials, tr)
		if tr.Err != nil {
			return
		}
		val, ok := tr.Metrics[metricName]
		if ok && val < best {
			best = val
			bestParams = tr.Params
		}
	})

	return bestParams, best, trials, err
}

func (g *GridSearch) searchRecursive(
	ctx context.Context,
	depth int,
	current map[string]float64,
	eval Evaluator,
	record func(Trial),
) error {
	if depth == len(g.paramNames) {
		if err := ctx.Err(); err != nil {
			return err
		}
		metrics, err := eval(ctx, current)
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		record(Trial{Params: current, Metrics: metrics, Err: err})
		return nil
	}

	paramName := g.paramNames[depth]
	for _, val := range g.ranges[depth] {
		newParams := make(map[string]float64, len(current)+1)
		for k, v := range current {
			newParams[k] = v
		}
		newParams[paramName] = val

		if err := g.searchRecursive(ctx, depth+1, newParams, eval, record); err != nil {
			return err
		}
	}
	return nil
}

// ParamNames returns the searched parameter names in sorted order.
func (g *GridSearch) ParamNames() []string {
	names := append([]string(nil), g.paramNames...)
	sort.Strings(names)
	return names
}
