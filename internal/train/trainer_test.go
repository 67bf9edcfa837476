package train

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/pinnlab/internal/dataset"
	"github.com/san-kum/pinnlab/internal/decay"
	"github.com/san-kum/pinnlab/internal/nn"
)

func mustDataset(cfg dataset.Config) *dataset.Dataset {
	ds, err := dataset.Generate(cfg, decay.Default())
	Expect(err).NotTo(HaveOccurred())
	return ds
}

func shortConfig(iters int) Config {
	cfg := DefaultConfig()
	cfg.Iterations = iters
	cfg.LogEvery = iters / 4
	return cfg
}

func heldOutMAE(net *nn.Network, ds *dataset.Dataset, law decay.Law) float64 {
	pred := net.Predict(ds.Grid)
	idx := ds.Beyond()
	sum := 0.0
	for _, i := range idx {
		sum += math.Abs(pred[i] - law.Analytic(ds.Grid[i]))
	}
	return sum / float64(len(idx))
}

var _ = Describe("Config", func() {
	It("defaults to the documented hyperparameters", func() {
		cfg := DefaultConfig()
		Expect(cfg.Iterations).To(Equal(20000))
		Expect(cfg.LR).To(Equal(1e-3))
		Expect(cfg.LogEvery).To(Equal(4000))
		Expect(cfg.DataWeight).To(Equal(1.0))
		Expect(cfg.PhysicsWeight).To(Equal(1.0))
		Expect(cfg.CheckFinite).To(BeFalse())
		Expect(cfg.Validate()).To(Succeed())
	})

	DescribeTable("rejects invalid values",
		func(mutate func(*Config)) {
			cfg := DefaultConfig()
			mutate(&cfg)
			Expect(errors.Is(cfg.Validate(), ErrInvalidConfig)).To(BeTrue())
		},
		Entry("negative iterations", func(c *Config) { c.Iterations = -1 }),
		Entry("zero learning rate", func(c *Config) { c.LR = 0 }),
		Entry("negative log interval", func(c *Config) { c.LogEvery = -5 }),
		Entry("negative physics weight", func(c *Config) { c.PhysicsWeight = -1 }),
	)

	It("parses objective names", func() {
		Expect(ParseKind("plain")).To(Equal(Plain))
		Expect(ParseKind("nn")).To(Equal(Plain))
		Expect(ParseKind("pinn")).To(Equal(Physics))
		_, err := ParseKind("gan")
		Expect(errors.Is(err, ErrUnknownKind)).To(BeTrue())
	})
})

var _ = Describe("Objectives", func() {
	var (
		ds  *dataset.Dataset
		law decay.Law
	)

	BeforeEach(func() {
		cfg := dataset.DefaultConfig()
		cfg.Collocation = 12
		ds = mustDataset(cfg)
		law = decay.Default()
	})

	It("back-propagates the weighted physics-informed loss exactly", func() {
		net, err := nn.NewMLP(rand.New(rand.NewSource(3)), 1, 6, 6, 1)
		Expect(err).NotTo(HaveOccurred())
		w := Weights{Data: 0.7, Physics: 1.3}

		net.ZeroGrad()
		_, err = dataTerm(net, ds, w.Data, true)
		Expect(err).NotTo(HaveOccurred())
		_, err = physicsTerm(net, ds, law, w.Physics, true)
		Expect(err).NotTo(HaveOccurred())
		analytic := append([]float64(nil), net.Grads()...)

		const h = 1e-6
		for i := range net.Params() {
			orig := net.Params()[i]
			net.Params()[i] = orig + h
			up, err := Evaluate(Physics, net, ds, law, w)
			Expect(err).NotTo(HaveOccurred())
			net.Params()[i] = orig - h
			down, err := Evaluate(Physics, net, ds, law, w)
			Expect(err).NotTo(HaveOccurred())
			net.Params()[i] = orig

			fd := (up.Total - down.Total) / (2 * h)
			Expect(analytic[i]).To(BeNumerically("~", fd, 1e-6*math.Max(1, math.Abs(fd))), "param %d", i)
		}
	})

	It("reports the loss measured before the update", func() {
		st := NewDefaultState(rand.New(rand.NewSource(1)), 1e-3)
		before, err := Evaluate(Physics, st.Net, ds, law, Weights{Data: 1, Physics: 1})
		Expect(err).NotTo(HaveOccurred())

		loss, err := PhysicsStep(st, ds, law, Weights{Data: 1, Physics: 1})
		Expect(err).NotTo(HaveOccurred())
		Expect(loss.Iter).To(Equal(1))
		Expect(st.Iter).To(Equal(1))
		Expect(loss.Total).To(BeNumerically("~", before.Total, 1e-12))
		Expect(loss.Data).To(BeNumerically("~", before.Data, 1e-12))
		Expect(loss.Physics).To(BeNumerically("~", before.Physics, 1e-12))
	})

	It("gives a plain network no physics term in its objective", func() {
		st := NewDefaultState(rand.New(rand.NewSource(1)), 1e-3)
		l, err := Evaluate(Plain, st.Net, ds, law, Weights{Data: 1, Physics: 1})
		Expect(err).NotTo(HaveOccurred())
		Expect(l.Total).To(Equal(l.Data))
		Expect(l.Physics).To(BeNumerically(">", 0))
	})
})

var _ = Describe("Trainer", func() {
	var (
		ds  *dataset.Dataset
		law decay.Law
	)

	BeforeEach(func() {
		ds = mustDataset(dataset.DefaultConfig())
		law = decay.Default()
	})

	It("reduces the plain data loss", func() {
		tr, err := New(Plain, shortConfig(400), law)
		Expect(err).NotTo(HaveOccurred())
		st := NewDefaultState(rand.New(rand.NewSource(42)), 1e-3)

		before, _ := Evaluate(Plain, st.Net, ds, law, Weights{})
		res, err := tr.Run(context.Background(), st, ds)
		Expect(err).NotTo(HaveOccurred())
		after, _ := Evaluate(Plain, st.Net, ds, law, Weights{})

		Expect(st.Iter).To(Equal(400))
		Expect(tr.Done(st)).To(BeTrue())
		Expect(res.Final.Iter).To(Equal(400))
		Expect(after.Data).To(BeNumerically("<", before.Data))
	})

	It("reduces the physics-informed total loss", func() {
		tr, err := New(Physics, shortConfig(400), law)
		Expect(err).NotTo(HaveOccurred())
		st := NewDefaultState(rand.New(rand.NewSource(42)), 1e-3)

		w := tr.Config().Weights()
		before, _ := Evaluate(Physics, st.Net, ds, law, w)
		_, err = tr.Run(context.Background(), st, ds)
		Expect(err).NotTo(HaveOccurred())
		after, _ := Evaluate(Physics, st.Net, ds, law, w)

		Expect(after.Total).To(BeNumerically("<", before.Total))
	})

	It("reports progress every LogEvery iterations and on the last one", func() {
		cfg := shortConfig(50)
		cfg.LogEvery = 20
		tr, err := New(Plain, cfg, law)
		Expect(err).NotTo(HaveOccurred())

		var seen []int
		tr.AddObserver(ObserverFunc(func(kind Kind, l Loss, total int) {
			Expect(kind).To(Equal(Plain))
			Expect(total).To(Equal(50))
			seen = append(seen, l.Iter)
		}))

		res, err := tr.Run(context.Background(), NewDefaultState(rand.New(rand.NewSource(1)), 1e-3), ds)
		Expect(err).NotTo(HaveOccurred())
		Expect(seen).To(Equal([]int{20, 40, 50}))
		Expect(res.History).To(HaveLen(3))
	})

	It("records history more densely than it reports", func() {
		cfg := shortConfig(50)
		cfg.LogEvery = 20
		cfg.RecordEvery = 10
		tr, err := New(Plain, cfg, law)
		Expect(err).NotTo(HaveOccurred())

		reports := 0
		tr.AddObserver(ObserverFunc(func(Kind, Loss, int) { reports++ }))

		res, err := tr.Run(context.Background(), NewDefaultState(rand.New(rand.NewSource(1)), 1e-3), ds)
		Expect(err).NotTo(HaveOccurred())
		Expect(reports).To(Equal(3))

		iters := make([]int, len(res.History))
		for i, l := range res.History {
			iters[i] = l.Iter
		}
		Expect(iters).To(Equal([]int{10, 20, 30, 40, 50}))
		Expect(res.Final.Iter).To(Equal(50))
	})

	It("advances in chunks without passing the budget", func() {
		tr, err := New(Physics, shortConfig(30), law)
		Expect(err).NotTo(HaveOccurred())
		st := NewDefaultState(rand.New(rand.NewSource(1)), 1e-3)

		for !tr.Done(st) {
			_, err := tr.Advance(context.Background(), st, ds, 7)
			Expect(err).NotTo(HaveOccurred())
		}
		Expect(st.Iter).To(Equal(30))

		_, err = tr.Advance(context.Background(), st, ds, 7)
		Expect(err).NotTo(HaveOccurred())
		Expect(st.Iter).To(Equal(30))
	})

	It("stops when the context is canceled", func() {
		tr, err := New(Plain, shortConfig(100), law)
		Expect(err).NotTo(HaveOccurred())
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		st := NewDefaultState(rand.New(rand.NewSource(1)), 1e-3)
		_, err = tr.Run(ctx, st, ds)
		Expect(errors.Is(err, context.Canceled)).To(BeTrue())
		Expect(st.Iter).To(Equal(0))
	})

	It("ignores a non-finite loss by default", func() {
		bad := *ds
		bad.Observations = append([]dataset.Observation(nil), ds.Observations...)
		bad.Observations[3].A = math.NaN()

		tr, err := New(Plain, shortConfig(5), law)
		Expect(err).NotTo(HaveOccurred())
		st := NewDefaultState(rand.New(rand.NewSource(1)), 1e-3)
		_, err = tr.Run(context.Background(), st, &bad)
		Expect(err).NotTo(HaveOccurred())
		Expect(st.Iter).To(Equal(5))
	})

	It("stops with ErrDiverged when CheckFinite is set", func() {
		bad := *ds
		bad.Observations = append([]dataset.Observation(nil), ds.Observations...)
		bad.Observations[3].A = math.NaN()

		cfg := shortConfig(5)
		cfg.CheckFinite = true
		tr, err := New(Plain, cfg, law)
		Expect(err).NotTo(HaveOccurred())

		_, err = tr.Run(context.Background(), NewDefaultState(rand.New(rand.NewSource(1)), 1e-3), &bad)
		Expect(errors.Is(err, ErrDiverged)).To(BeTrue())

		var terr *TrainError
		Expect(errors.As(err, &terr)).To(BeTrue())
		Expect(terr.Iter).To(Equal(1))
		Expect(terr.Kind).To(Equal(Plain))
	})

	It("keeps two runs fully independent", func() {
		rng := rand.New(rand.NewSource(42))
		plain := NewDefaultState(rng, 1e-3)
		pinn := NewDefaultState(rng, 1e-3)
		pinnBefore := append([]float64(nil), pinn.Net.Params()...)

		tr, err := New(Plain, shortConfig(20), law)
		Expect(err).NotTo(HaveOccurred())
		_, err = tr.Run(context.Background(), plain, ds)
		Expect(err).NotTo(HaveOccurred())

		Expect(pinn.Net.Params()).To(Equal(pinnBefore))
		Expect(pinn.Opt.State.Step).To(Equal(0))
	})

	It("is deterministic for a fixed seed", func() {
		run := func() []float64 {
			tr, err := New(Physics, shortConfig(100), law)
			Expect(err).NotTo(HaveOccurred())
			st := NewDefaultState(rand.New(rand.NewSource(42)), 1e-3)
			_, err = tr.Run(context.Background(), st, ds)
			Expect(err).NotTo(HaveOccurred())
			return st.Net.Params()
		}
		Expect(run()).To(Equal(run()))
	})

	It("formats progress lines", func() {
		l := Loss{Iter: 4000, Total: 0.5, Data: 0.25, Physics: 0.25}
		Expect(FormatProgress(Plain, l, 20000)).To(Equal("NN Epoch [4000/20000], Loss: 0.500000"))
		Expect(FormatProgress(Physics, l, 20000)).To(Equal("PINN Epoch [4000/20000], Loss: 0.500000 (Data: 0.250000, Physics: 0.250000)"))
	})
})

var _ = Describe("Extrapolation", Label("slow"), func() {
	It("lets the physics-informed network track the decay past the cutoff", func() {
		if testing.Short() {
			Skip("full 20000-iteration training")
		}

		law := decay.Default()
		ds := mustDataset(dataset.DefaultConfig())
		cfg := DefaultConfig()

		rng := rand.New(rand.NewSource(dataset.DefaultSeed))
		plainState := NewDefaultState(rng, cfg.LR)
		pinnState := NewDefaultState(rng, cfg.LR)

		plainTrainer, err := New(Plain, cfg, law)
		Expect(err).NotTo(HaveOccurred())
		pinnTrainer, err := New(Physics, cfg, law)
		Expect(err).NotTo(HaveOccurred())

		_, err = plainTrainer.Run(context.Background(), plainState, ds)
		Expect(err).NotTo(HaveOccurred())
		_, err = pinnTrainer.Run(context.Background(), pinnState, ds)
		Expect(err).NotTo(HaveOccurred())

		plainMAE := heldOutMAE(plainState.Net, ds, law)
		pinnMAE := heldOutMAE(pinnState.Net, ds, law)
		Expect(plainMAE / pinnMAE).To(BeNumerically(">", 2))

		truth := law.Analytic(10)
		pinnAtT := pinnState.Net.Predict([]float64{10})[0]
		plainAtT := plainState.Net.Predict([]float64{10})[0]
		GinkgoWriter.Printf("A(10): truth %.4f, plain %.4f, pinn %.4f\n", truth, plainAtT, pinnAtT)
		Expect(math.Abs(pinnAtT - truth)).To(BeNumerically("<", 0.05))
		Expect(math.Abs(plainAtT - truth)).To(BeNumerically(">", 0.1))
	})
})
