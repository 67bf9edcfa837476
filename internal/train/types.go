package train

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/san-kum/pinnlab/internal/nn"
	"github.com/san-kum/pinnlab/internal/optim"
)

// Kind names a training objective.
type Kind string

const (
	Plain   Kind = "plain"
	Physics Kind = "pinn"
)

func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case Plain, Physics:
		return Kind(s), nil
	case "nn":
		return Plain, nil
	}
	return "", fmt.Errorf("%w: %q (want plain or pinn)", ErrUnknownKind, s)
}

// Label is the short name used in progress lines.
func (k Kind) Label() string {
	if k == Physics {
		return "PINN"
	}
	return "NN"
}

const (
	DefaultIterations  = 20000
	DefaultLogEvery    = 4000
	DefaultRecordEvery = 100
)

type Config struct {
	Iterations    int     `yaml:"iterations" json:"iterations"`
	LR            float64 `yaml:"learning_rate" json:"learning_rate"`
	LogEvery      int     `yaml:"log_every" json:"log_every"`
	RecordEvery   int     `yaml:"record_every" json:"record_every"`
	DataWeight    float64 `yaml:"data_weight" json:"data_weight"`
	PhysicsWeight float64 `yaml:"physics_weight" json:"physics_weight"`
	CheckFinite   bool    `yaml:"check_finite" json:"check_finite"`
}

func DefaultConfig() Config {
	return Config{
		Iterations:    DefaultIterations,
		LR:            optim.DefaultLR,
		LogEvery:      DefaultLogEvery,
		RecordEvery:   DefaultRecordEvery,
		DataWeight:    1.0,
		PhysicsWeight: 1.0,
	}
}

func (c Config) Validate() error {
	if c.Iterations < 0 {
		return fmt.Errorf("%w: iterations must be non-negative, got %d", ErrInvalidConfig, c.Iterations)
	}
	if c.LR <= 0 || math.IsNaN(c.LR) {
		return fmt.Errorf("%w: learning rate must be positive, got %g", ErrInvalidConfig, c.LR)
	}
	if c.LogEvery < 0 {
		return fmt.Errorf("%w: log_every must be non-negative, got %d", ErrInvalidConfig, c.LogEvery)
	}
	if c.RecordEvery < 0 {
		return fmt.Errorf("%w: record_every must be non-negative, got %d", ErrInvalidConfig, c.RecordEvery)
	}
	if c.DataWeight < 0 || c.PhysicsWeight < 0 {
		return fmt.Errorf("%w: loss weights must be non-negative", ErrInvalidConfig)
	}
	return nil
}

// Weights scales the two loss terms.
type Weights struct {
	Data    float64
	Physics float64
}

func (c Config) Weights() Weights {
	return Weights{Data: c.DataWeight, Physics: c.PhysicsWeight}
}

// Loss is the objective value at one iteration, measured before the update.
type Loss struct {
	Iter    int     `json:"iter"`
	Total   float64 `json:"total"`
	Data    float64 `json:"data"`
	Physics float64 `json:"physics"`
}

func (l Loss) IsFinite() bool {
	for _, v := range []float64{l.Total, l.Data, l.Physics} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// State is everything one training run mutates.
type State struct {
	Net  *nn.Network
	Opt  *optim.Adam
	Iter int
}

func NewState(net *nn.Network, lr float64) *State {
	return &State{
		Net: net,
		Opt: optim.NewAdam(lr, net.NumParams()),
	}
}

// NewDefaultState builds a fresh default-topology network from rng.
func NewDefaultState(rng *rand.Rand, lr float64) *State {
	return NewState(nn.NewDefault(rng), lr)
}

func (s *State) Clone() *State {
	return &State{Net: s.Net.Clone(), Opt: s.Opt.Clone(), Iter: s.Iter}
}
