package train

import (
	"context"
	"fmt"
	"time"

	"github.com/san-kum/pinnlab/internal/dataset"
	"github.com/san-kum/pinnlab/internal/decay"
)

// Observer receives a progress report every LogEvery iterations and once for
// the final iteration.
type Observer interface {
	OnProgress(kind Kind, loss Loss, total int)
}

type ObserverFunc func(kind Kind, loss Loss, total int)

func (f ObserverFunc) OnProgress(kind Kind, loss Loss, total int) { f(kind, loss, total) }

// Result summarizes a finished run.
type Result struct {
	Kind    Kind
	Final   Loss
	History []Loss
	Elapsed time.Duration
}

type Trainer struct {
	kind      Kind
	cfg       Config
	law       decay.Law
	observers []Observer
}

func New(kind Kind, cfg Config, law decay.Law) (*Trainer, error) {
	if kind != Plain && kind != Physics {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Trainer{kind: kind, cfg: cfg, law: law}, nil
}

func (t *Trainer) AddObserver(o Observer) { t.observers = append(t.observers, o) }

func (t *Trainer) Kind() Kind { return t.kind }

func (t *Trainer) Config() Config { return t.cfg }

// Step runs a single iteration of the trainer's objective.
func (t *Trainer) Step(st *State, ds *dataset.Dataset) (Loss, error) {
	if t.kind == Physics {
		return PhysicsStep(st, ds, t.law, t.cfg.Weights())
	}
	return PlainStep(st, ds)
}

// Advance runs up to n more iterations without passing cfg.Iterations and
// returns the losses at each reporting or recording point it crossed.
func (t *Trainer) Advance(ctx context.Context, st *State, ds *dataset.Dataset, n int) ([]Loss, error) {
	reported := make([]Loss, 0)
	for i := 0; i < n && st.Iter < t.cfg.Iterations; i++ {
		select {
		case <-ctx.Done():
			return reported, ctx.Err()
		default:
		}

		loss, err := t.Step(st, ds)
		if err != nil {
			return reported, &TrainError{Kind: t.kind, Iter: st.Iter + 1, Loss: loss, Wrapped: err}
		}
		if t.cfg.CheckFinite && !loss.IsFinite() {
			return reported, &TrainError{Kind: t.kind, Iter: loss.Iter, Loss: loss, Wrapped: ErrDiverged}
		}

		report := t.shouldReport(loss.Iter)
		if report || t.shouldRecord(loss.Iter) {
			reported = append(reported, loss)
		}
		if report {
			for _, o := range t.observers {
				o.OnProgress(t.kind, loss, t.cfg.Iterations)
			}
		}
	}
	return reported, nil
}

func (t *Trainer) shouldReport(iter int) bool {
	if iter == t.cfg.Iterations {
		return true
	}
	return t.cfg.LogEvery > 0 && iter%t.cfg.LogEvery == 0
}

func (t *Trainer) shouldRecord(iter int) bool {
	return t.cfg.RecordEvery > 0 && iter%t.cfg.RecordEvery == 0
}

// Run trains st for the remaining iterations. There is no stopping criterion
// besides the iteration budget.
func (t *Trainer) Run(ctx context.Context, st *State, ds *dataset.Dataset) (*Result, error) {
	start := time.Now()
	history, err := t.Advance(ctx, st, ds, t.cfg.Iterations-st.Iter)

	res := &Result{Kind: t.kind, History: history, Elapsed: time.Since(start)}
	if len(history) > 0 {
		res.Final = history[len(history)-1]
	}
	return res, err
}

// Done reports whether st has used its whole iteration budget.
func (t *Trainer) Done(st *State) bool {
	return st.Iter >= t.cfg.Iterations
}

// FormatProgress renders a progress line in the form
//
//	PINN Epoch [4000/20000], Loss: 0.000123 (Data: 0.000100, Physics: 0.000023)
func FormatProgress(kind Kind, l Loss, total int) string {
	s := fmt.Sprintf("%s Epoch [%d/%d], Loss: %.6f", kind.Label(), l.Iter, total, l.Total)
	if kind == Physics {
		s += fmt.Sprintf(" (Data: %.6f, Physics: %.6f)", l.Data, l.Physics)
	}
	return s
}
