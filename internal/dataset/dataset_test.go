package dataset

import (
	"errors"
	"math"
	"reflect"
	"testing"

	"github.com/san-kum/pinnlab/internal/decay"
)

func TestLinspace(t *testing.T) {
	tests := []struct {
		lo, hi float64
		n      int
		want   []float64
	}{
		{0, 1, 5, []float64{0, 0.25, 0.5, 0.75, 1}},
		{2, 2, 1, []float64{2}},
		{0, 10, 0, nil},
	}

	for _, tt := range tests {
		got := Linspace(tt.lo, tt.hi, tt.n)
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("Linspace(%g, %g, %d) = %v, want %v", tt.lo, tt.hi, tt.n, got, tt.want)
		}
	}
}

func TestLinspaceEndpointsExact(t *testing.T) {
	for _, n := range []int{2, 3, 7, 100, 300} {
		xs := Linspace(0, 10, n)
		if xs[0] != 0 || xs[len(xs)-1] != 10 {
			t.Errorf("n=%d: endpoints %g, %g", n, xs[0], xs[len(xs)-1])
		}
	}
}

func TestGenerateDomainSplit(t *testing.T) {
	cutoffs := []float64{1, 2.5, 5, 7.5, 10}

	for _, c := range cutoffs {
		cfg := DefaultConfig()
		cfg.Cutoff = c

		ds, err := Generate(cfg, decay.Default())
		if err != nil {
			t.Fatalf("cutoff %g: %v", c, err)
		}

		for _, o := range ds.Observations {
			if o.T > c {
				t.Errorf("cutoff %g: observation at t=%g", c, o.T)
			}
		}
		if len(ds.Observations) != cfg.TrainPoints {
			t.Errorf("expected %d observations, got %d", cfg.TrainPoints, len(ds.Observations))
		}
		if ds.Collocation[0] != cfg.TMin || ds.Collocation[len(ds.Collocation)-1] != cfg.TMax {
			t.Errorf("collocation does not span [%g, %g]", cfg.TMin, cfg.TMax)
		}
		if ds.Grid[0] != cfg.TMin || ds.Grid[len(ds.Grid)-1] != cfg.TMax {
			t.Errorf("grid does not span [%g, %g]", cfg.TMin, cfg.TMax)
		}
	}
}

func TestGenerateDefaults(t *testing.T) {
	ds, err := Generate(DefaultConfig(), decay.Default())
	if err != nil {
		t.Fatal(err)
	}

	if len(ds.Collocation) != 100 {
		t.Errorf("expected 100 collocation points, got %d", len(ds.Collocation))
	}
	if len(ds.Grid) != 300 {
		t.Errorf("expected 300 grid points, got %d", len(ds.Grid))
	}
	if ds.Observations[0].A != 1.0 || ds.Observations[0].T != 0 {
		t.Errorf("first observation not pinned: %+v", ds.Observations[0])
	}
	if last := ds.Observations[len(ds.Observations)-1]; last.T != 5 {
		t.Errorf("last observation should sit on the cutoff, got t=%g", last.T)
	}

	law := decay.Default()
	for _, o := range ds.Observations[1:] {
		if math.Abs(o.A-law.Analytic(o.T)) > 0.2 {
			t.Errorf("observation %+v too far from truth", o)
		}
	}
}

func TestGenerateDeterministic(t *testing.T) {
	a, err := Generate(DefaultConfig(), decay.Default())
	if err != nil {
		t.Fatal(err)
	}
	b, err := Generate(DefaultConfig(), decay.Default())
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(a.Observations, b.Observations) {
		t.Error("same seed produced different observations")
	}

	cfg := DefaultConfig()
	cfg.Seed = 7
	c, err := Generate(cfg, decay.Default())
	if err != nil {
		t.Fatal(err)
	}
	if reflect.DeepEqual(a.Observations, c.Observations) {
		t.Error("different seeds produced identical observations")
	}
}

func TestGenerateNoiseless(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Noise = 0
	law := decay.Default()

	ds, err := Generate(cfg, law)
	if err != nil {
		t.Fatal(err)
	}
	for _, o := range ds.Observations {
		if o.A != law.Analytic(o.T) {
			t.Errorf("expected exact value at t=%g, got %g", o.T, o.A)
		}
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"inverted domain", func(c *Config) { c.TMin, c.TMax = 10, 0 }},
		{"cutoff past domain", func(c *Config) { c.Cutoff = 11 }},
		{"cutoff at start", func(c *Config) { c.Cutoff = 0 }},
		{"no training points", func(c *Config) { c.TrainPoints = 0 }},
		{"single collocation point", func(c *Config) { c.Collocation = 1 }},
		{"negative noise", func(c *Config) { c.Noise = -0.1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			if _, err := Generate(cfg, decay.Default()); !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("expected ErrInvalidConfig, got %v", err)
			}
		})
	}
}

func TestBeyond(t *testing.T) {
	ds, err := Generate(DefaultConfig(), decay.Default())
	if err != nil {
		t.Fatal(err)
	}
	idx := ds.Beyond()
	if len(idx) == 0 {
		t.Fatal("expected held-out grid points")
	}
	for _, i := range idx {
		if ds.Grid[i] <= ds.Cutoff {
			t.Errorf("index %d at t=%g is not past the cutoff", i, ds.Grid[i])
		}
	}
	if len(idx) != 150 {
		t.Errorf("expected 150 held-out points, got %d", len(idx))
	}
}
