// Package experiment wires the dataset, both trainers and the evaluator into
// one reproducible comparison.
package experiment

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/san-kum/pinnlab/internal/dataset"
	"github.com/san-kum/pinnlab/internal/decay"
	"github.com/san-kum/pinnlab/internal/evaluate"
	"github.com/san-kum/pinnlab/internal/integrators"
	"github.com/san-kum/pinnlab/internal/ode"
	"github.com/san-kum/pinnlab/internal/train"
)

type Config struct {
	Preset     string
	Integrator string
	Law        decay.Law
	Data       dataset.Config
	Train      train.Config
}

type Experiment struct {
	cfg       Config
	observers []train.Observer
}

func New(cfg Config) *Experiment {
	return &Experiment{cfg: cfg}
}

func (e *Experiment) Config() Config { return e.cfg }

// AddObserver attaches o to both trainers of every session.
func (e *Experiment) AddObserver(o train.Observer) {
	e.observers = append(e.observers, o)
}

// Session holds the owned state of one comparison while it trains.
type Session struct {
	Dataset *dataset.Dataset
	Plain   *train.State
	PINN    *train.State

	law        decay.Law
	integrator string
	plainTr    *train.Trainer
	pinnTr     *train.Trainer
	history    map[train.Kind][]train.Loss
	elapsed    map[train.Kind]time.Duration
}

// Setup generates the data and both networks. One source seeded from the
// config draws the observation noise, then the plain network, then the
// physics-informed one, so equal seeds give equal sessions.
func (e *Experiment) Setup() (*Session, error) {
	if err := e.cfg.Law.Validate(); err != nil {
		return nil, err
	}
	ds, err := dataset.Generate(e.cfg.Data, e.cfg.Law)
	if err != nil {
		return nil, err
	}

	plainTr, err := train.New(train.Plain, e.cfg.Train, e.cfg.Law)
	if err != nil {
		return nil, err
	}
	pinnTr, err := train.New(train.Physics, e.cfg.Train, e.cfg.Law)
	if err != nil {
		return nil, err
	}
	for _, o := range e.observers {
		plainTr.AddObserver(o)
		pinnTr.AddObserver(o)
	}

	rng := rand.New(rand.NewSource(e.cfg.Data.Seed))
	integrator := e.cfg.Integrator
	if integrator == "" {
		integrator = "rk4"
	}
	return &Session{
		Dataset:    ds,
		Plain:      train.NewDefaultState(rng, e.cfg.Train.LR),
		PINN:       train.NewDefaultState(rng, e.cfg.Train.LR),
		law:        e.cfg.Law,
		integrator: integrator,
		plainTr:    plainTr,
		pinnTr:     pinnTr,
		history:    make(map[train.Kind][]train.Loss),
		elapsed:    make(map[train.Kind]time.Duration),
	}, nil
}

// Run trains the plain network to completion, then the physics-informed one,
// and evaluates both.
func (e *Experiment) Run(ctx context.Context) (*Outcome, error) {
	s, err := e.Setup()
	if err != nil {
		return nil, err
	}
	for _, kind := range []train.Kind{train.Plain, train.Physics} {
		if err := s.train(ctx, kind, s.trainer(kind).Config().Iterations); err != nil {
			return nil, err
		}
	}
	return s.Finish(ctx)
}

func (s *Session) trainer(kind train.Kind) *train.Trainer {
	if kind == train.Physics {
		return s.pinnTr
	}
	return s.plainTr
}

func (s *Session) state(kind train.Kind) *train.State {
	if kind == train.Physics {
		return s.PINN
	}
	return s.Plain
}

func (s *Session) train(ctx context.Context, kind train.Kind, n int) error {
	start := time.Now()
	losses, err := s.trainer(kind).Advance(ctx, s.state(kind), s.Dataset, n)
	s.elapsed[kind] += time.Since(start)
	s.history[kind] = append(s.history[kind], losses...)
	return err
}

// Advance runs up to n more iterations of each trainer. It returns the
// latest loss of each model measured during this call.
func (s *Session) Advance(ctx context.Context, n int) (map[train.Kind]train.Loss, error) {
	latest := make(map[train.Kind]train.Loss, 2)
	for _, kind := range []train.Kind{train.Plain, train.Physics} {
		tr, st := s.trainer(kind), s.state(kind)
		if tr.Done(st) {
			continue
		}
		if err := s.train(ctx, kind, n); err != nil {
			return latest, err
		}
		l, err := train.Evaluate(kind, st.Net, s.Dataset, s.law, tr.Config().Weights())
		if err != nil {
			return latest, err
		}
		l.Iter = st.Iter
		latest[kind] = l
	}
	return latest, nil
}

// Progress is the fraction of the combined iteration budget used so far.
func (s *Session) Progress() float64 {
	total := s.plainTr.Config().Iterations + s.pinnTr.Config().Iterations
	if total == 0 {
		return 1
	}
	return float64(s.Plain.Iter+s.PINN.Iter) / float64(total)
}

func (s *Session) Done() bool {
	return s.plainTr.Done(s.Plain) && s.pinnTr.Done(s.PINN)
}

func (s *Session) Law() decay.Law { return s.law }

func (s *Session) History(kind train.Kind) []train.Loss {
	return s.history[kind]
}

// Outcome is a finished comparison.
type Outcome struct {
	Dataset   *dataset.Dataset
	Plain     *train.State
	PINN      *train.State
	Report    *evaluate.Report
	History   map[train.Kind][]train.Loss
	Elapsed   map[train.Kind]time.Duration
	Reference float64
	Metrics   map[string]float64
}

// Finish evaluates both networks and cross-checks the analytic curve against
// a numerical solve.
func (s *Session) Finish(ctx context.Context) (*Outcome, error) {
	report := evaluate.Evaluate(s.Plain.Net, s.PINN.Net, s.Dataset, s.law)

	dev, err := ReferenceDeviation(ctx, s.law, s.integrator, s.Dataset.Grid[len(s.Dataset.Grid)-1])
	if err != nil {
		return nil, err
	}

	metrics := report.Metrics()
	metrics["reference_max_dev"] = dev
	for kind, losses := range s.history {
		if len(losses) > 0 {
			metrics[string(kind)+"_final_loss"] = losses[len(losses)-1].Total
		}
	}

	return &Outcome{
		Dataset:   s.Dataset,
		Plain:     s.Plain,
		PINN:      s.PINN,
		Report:    report,
		History:   s.history,
		Elapsed:   s.elapsed,
		Reference: dev,
		Metrics:   metrics,
	}, nil
}

// ReferenceStep is the fixed step of the numerical reference solve.
const ReferenceStep = 0.01

// ReferenceDeviation integrates the decay law numerically up to tMax and
// returns the largest gap to the analytic curve.
func ReferenceDeviation(ctx context.Context, law decay.Law, integrator string, tMax float64) (float64, error) {
	integ, err := integrators.Get(integrator)
	if err != nil {
		return 0, err
	}
	res, err := ode.Solve(ctx, law, integ, ode.State{law.A0}, ode.Config{
		Dt:            ReferenceStep,
		Duration:      tMax,
		ValidateState: true,
	})
	if err != nil {
		return 0, fmt.Errorf("reference solve: %w", err)
	}

	dev := 0.0
	for i, t := range res.Times {
		dev = math.Max(dev, math.Abs(res.States[i][0]-law.Analytic(t)))
	}
	return dev, nil
}
