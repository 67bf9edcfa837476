// Package dataset generates the observations, collocation points and
// evaluation grid for a training run.
//
// Observations only ever cover [TMin, Cutoff]; collocation points and the
// evaluation grid always span [TMin, TMax]. Extrapolation is measured on the
// gap between the two.
package dataset

import (
	"errors"
	"fmt"
	"math/rand"

	"github.com/san-kum/pinnlab/internal/decay"
)

var ErrInvalidConfig = errors.New("dataset: invalid config")

const (
	DefaultTMin        = 0.0
	DefaultTMax        = 10.0
	DefaultTrainPoints = 8
	DefaultNoise       = 0.03
	DefaultCollocation = 100
	DefaultGridPoints  = 300
	DefaultSeed        = 42
)

type Config struct {
	TMin        float64 `yaml:"t_min" json:"t_min"`
	TMax        float64 `yaml:"t_max" json:"t_max"`
	Cutoff      float64 `yaml:"cutoff" json:"cutoff"`
	TrainPoints int     `yaml:"train_points" json:"train_points"`
	Noise       float64 `yaml:"noise" json:"noise"`
	Collocation int     `yaml:"collocation_points" json:"collocation_points"`
	GridPoints  int     `yaml:"grid_points" json:"grid_points"`
	Seed        int64   `yaml:"seed" json:"seed"`
}

func DefaultConfig() Config {
	return Config{
		TMin:        DefaultTMin,
		TMax:        DefaultTMax,
		Cutoff:      DefaultTMax / 2,
		TrainPoints: DefaultTrainPoints,
		Noise:       DefaultNoise,
		Collocation: DefaultCollocation,
		GridPoints:  DefaultGridPoints,
		Seed:        DefaultSeed,
	}
}

func (c Config) Validate() error {
	if c.TMin >= c.TMax {
		return fmt.Errorf("%w: t_min %g must be below t_max %g", ErrInvalidConfig, c.TMin, c.TMax)
	}
	if c.Cutoff <= c.TMin || c.Cutoff > c.TMax {
		return fmt.Errorf("%w: cutoff %g outside (%g, %g]", ErrInvalidConfig, c.Cutoff, c.TMin, c.TMax)
	}
	if c.TrainPoints < 1 || c.Collocation < 2 || c.GridPoints < 2 {
		return fmt.Errorf("%w: point counts train=%d collocation=%d grid=%d", ErrInvalidConfig, c.TrainPoints, c.Collocation, c.GridPoints)
	}
	if c.Noise < 0 {
		return fmt.Errorf("%w: noise must be non-negative, got %g", ErrInvalidConfig, c.Noise)
	}
	return nil
}

// Observation is one noisy measurement of the concentration.
type Observation struct {
	T float64 `json:"t"`
	A float64 `json:"a"`
}

type Dataset struct {
	Observations []Observation
	Collocation  []float64
	Grid         []float64
	Cutoff       float64
}

// Generate builds a dataset for law. The same config always yields the same
// observations.
func Generate(cfg Config, law decay.Law) (*Dataset, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	rng := rand.New(rand.NewSource(cfg.Seed))

	ts := Linspace(cfg.TMin, cfg.Cutoff, cfg.TrainPoints)
	obs := make([]Observation, len(ts))
	for i, t := range ts {
		obs[i] = Observation{T: t, A: law.Analytic(t) + cfg.Noise*rng.NormFloat64()}
	}
	obs[0].A = law.A0

	return &Dataset{
		Observations: obs,
		Collocation:  Linspace(cfg.TMin, cfg.TMax, cfg.Collocation),
		Grid:         Linspace(cfg.TMin, cfg.TMax, cfg.GridPoints),
		Cutoff:       cfg.Cutoff,
	}, nil
}

// Times returns the observation times.
func (d *Dataset) Times() []float64 {
	out := make([]float64, len(d.Observations))
	for i, o := range d.Observations {
		out[i] = o.T
	}
	return out
}

// Targets returns the observed concentrations.
func (d *Dataset) Targets() []float64 {
	out := make([]float64, len(d.Observations))
	for i, o := range d.Observations {
		out[i] = o.A
	}
	return out
}

// Beyond returns the indices of grid points strictly past the cutoff.
func (d *Dataset) Beyond() []int {
	idx := make([]int, 0, len(d.Grid))
	for i, t := range d.Grid {
		if t > d.Cutoff {
			idx = append(idx, i)
		}
	}
	return idx
}

// Linspace returns n evenly spaced values from lo to hi, both included.
func Linspace(lo, hi float64, n int) []float64 {
	if n <= 0 {
		return nil
	}
	out := make([]float64, n)
	if n == 1 {
		out[0] = lo
		return out
	}
	step := (hi - lo) / float64(n-1)
	for i := range out {
		out[i] = lo + float64(i)*step
	}
	out[n-1] = hi
	return out
}
