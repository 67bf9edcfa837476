package main

import (
	"context"
	"fmt"
	"io"
	"math"
	"math/rand"
	"os"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/pinnlab/internal/config"
	"github.com/san-kum/pinnlab/internal/dataset"
	"github.com/san-kum/pinnlab/internal/experiment"
	"github.com/san-kum/pinnlab/internal/integrators"
	"github.com/san-kum/pinnlab/internal/optim"
	"github.com/san-kum/pinnlab/internal/store"
	"github.com/san-kum/pinnlab/internal/train"
	"github.com/san-kum/pinnlab/internal/viz"
)

func openStore(cmd *cobra.Command) (*store.Store, error) {
	cfg, err := config.Resolve(preset, configFile)
	if err != nil {
		return nil, err
	}
	dir := cfg.DataDir
	if cmd.Flags().Changed("data") {
		dir = dataDir
	}
	return store.New(dir), nil
}

func listRuns(cmd *cobra.Command, args []string) error {
	st, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer st.Close()

	runs, err := st.List()
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTIME\tSEED\tITERS\tPHYS_W\tNN_MAE\tPINN_MAE\tRATIO")
	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%g\t%.4f\t%.4f\t%.1fx\n",
			run.ID,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Seed,
			run.Train.Iterations,
			run.Train.PhysicsWeight,
			run.Metrics["plain_mae_held_out"],
			run.Metrics["pinn_mae_held_out"],
			run.Metrics["held_out_ratio"],
		)
	}
	return w.Flush()
}

func plotHistory(cmd *cobra.Command, args []string) error {
	runID := args[0]
	st, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer st.Close()

	if _, err := st.Load(runID); err != nil {
		return err
	}
	ctx := context.Background()
	plain, err := st.History(ctx, runID, train.Plain)
	if err != nil {
		return err
	}
	pinn, err := st.History(ctx, runID, train.Physics)
	if err != nil {
		return err
	}
	if len(plain) < 2 && len(pinn) < 2 {
		return fmt.Errorf("no loss history recorded for %s", runID)
	}

	fmt.Printf("run: %s\n", runID)
	fmt.Printf("samples: NN %d, PINN %d\n\n", len(plain), len(pinn))
	fmt.Println(viz.LossChart(viz.LogLosses(plain), viz.LogLosses(pinn), 80, 12))
	if n := len(pinn); n > 0 {
		last := pinn[n-1]
		fmt.Printf("\nfinal PINN split at %d: data %.6f, physics %.6f\n", last.Iter, last.Data, last.Physics)
	}
	return nil
}

func plotRun(cmd *cobra.Command, args []string) error {
	runID := args[0]
	st, err := openStore(cmd)
	if err != nil {
		return err
	}
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}
	r, err := st.LoadPredictions(runID)
	if err != nil {
		return err
	}
	if len(r.Grid) == 0 {
		return fmt.Errorf("no data to plot")
	}

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("law: k=%g, A0=%g, cutoff t=%g\n\n", meta.Law.K, meta.Law.A0, r.Cutoff)
	fmt.Println(viz.PredictionChart(r, 80, 12))
	fmt.Println()
	fmt.Println(viz.Panel(viz.ModelName("NN", false), viz.PredictionPanel(r.Grid, r.Truth, r.Plain, r.Cutoff, 38, 8)))
	fmt.Println(viz.Panel(viz.ModelName("PINN", true), viz.PredictionPanel(r.Grid, r.Truth, r.PINN, r.Cutoff, 38, 8)))
	fmt.Println(r.Summary())
	return nil
}

func renderRun(cmd *cobra.Command, args []string) error {
	runID := args[0]
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	st, err := openStore(cmd)
	if err != nil {
		return err
	}
	r, err := st.LoadPredictions(runID)
	if err != nil {
		return err
	}
	obs, err := st.LoadObservations(runID)
	if err != nil {
		return err
	}

	anim := cfg.Animation()
	logger.Printf("rendering %d frames of %s to %s", anim.Frames, runID, cfg.Render.Output)
	if err := anim.Save(cfg.Render.Output, r, obs); err != nil {
		return err
	}
	fmt.Printf("animation: %s\n", cfg.Render.Output)
	return nil
}

// outputWriter returns stdout unless --output names a file.
func outputWriter() (io.Writer, func() error, error) {
	if outFile == "" {
		return os.Stdout, func() error { return nil }, nil
	}
	f, err := os.Create(outFile)
	if err != nil {
		return nil, nil, err
	}
	return f, f.Close, nil
}

func exportCSV(cmd *cobra.Command, args []string) error {
	st, err := openStore(cmd)
	if err != nil {
		return err
	}
	w, closeFn, err := outputWriter()
	if err != nil {
		return err
	}
	if err := st.ExportCSV(w, args[0]); err != nil {
		closeFn()
		return err
	}
	return closeFn()
}

func exportJSON(cmd *cobra.Command, args []string) error {
	st, err := openStore(cmd)
	if err != nil {
		return err
	}
	w, closeFn, err := outputWriter()
	if err != nil {
		return err
	}
	if err := st.ExportJSON(w, args[0]); err != nil {
		closeFn()
		return err
	}
	return closeFn()
}

func showConfig(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	if outFile != "" {
		if err := config.Save(outFile, cfg); err != nil {
			return err
		}
		fmt.Printf("config written to %s\n", outFile)
		return nil
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	fmt.Print(string(data))
	return nil
}

func printResidual(cmd *cobra.Command, args []string) error {
	cfg, err := config.Resolve(preset, configFile)
	if err != nil {
		return err
	}
	law := cfg.Law
	grid := dataset.Linspace(cfg.Data.TMin, cfg.Data.TMax, 11)

	var a, dadt []float64
	source := "analytic law"
	if len(args) == 1 {
		st, err := openStore(cmd)
		if err != nil {
			return err
		}
		meta, err := st.Load(args[0])
		if err != nil {
			return err
		}
		net, err := st.LoadNetwork(args[0], train.Physics)
		if err != nil {
			return err
		}
		law = meta.Law
		grid = dataset.Linspace(meta.Data.TMin, meta.Data.TMax, 11)
		cache, err := net.Forward(grid, true)
		if err != nil {
			return err
		}
		a, dadt = cache.Output(), cache.Tangent()
		source = "PINN of " + args[0]
	} else {
		a, dadt = law.Curve(grid), make([]float64, len(grid))
		for i, t := range grid {
			dadt[i] = law.Derivative(t)
		}
	}

	fmt.Printf("%s\nresidual dA/dt + k·A of the %s\n\n", law, source)
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "T\tA\tDA/DT\tRESIDUAL")
	worst := 0.0
	for i, t := range grid {
		res := law.Residual(a[i], dadt[i])
		worst = math.Max(worst, math.Abs(res))
		fmt.Fprintf(w, "%.2f\t%.6f\t%.6f\t%.3e\n", t, a[i], dadt[i], res)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Printf("\nmax |residual|: %.3e\n", worst)
	return nil
}

func compareIntegrators(cmd *cobra.Command, args []string) error {
	cfg, err := config.Resolve(preset, configFile)
	if err != nil {
		return err
	}

	fmt.Printf("%s on [0, %g], step %g\n\n", cfg.Law, cfg.Data.TMax, experiment.ReferenceStep)
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "INTEGRATOR\tMAX_DEV\tTIME")
	for _, name := range integrators.Names() {
		start := time.Now()
		dev, err := experiment.ReferenceDeviation(context.Background(), cfg.Law, name, cfg.Data.TMax)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%s\t%.3e\t%v\n", name, dev, time.Since(start))
	}
	return w.Flush()
}

func benchTraining(cmd *cobra.Command, args []string) error {
	cfg, err := config.Resolve(preset, configFile)
	if err != nil {
		return err
	}
	ds, err := dataset.Generate(cfg.Data, cfg.Law)
	if err != nil {
		return err
	}

	fmt.Printf("benchmarking %d iterations per model\n\n", benchIters)
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "MODEL\tITERS\tTIME\tITERS/SEC\tFINAL_LOSS")
	for _, kind := range []train.Kind{train.Plain, train.Physics} {
		tc := cfg.Train
		tc.Iterations = benchIters
		tc.LogEvery = 0
		tr, err := train.New(kind, tc, cfg.Law)
		if err != nil {
			return err
		}
		st := train.NewDefaultState(rand.New(rand.NewSource(cfg.Data.Seed)), tc.LR)
		res, err := tr.Run(context.Background(), st, ds)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%s\t%d\t%v\t%.0f\t%.6f\n",
			kind.Label(), benchIters, res.Elapsed.Round(time.Millisecond),
			float64(benchIters)/res.Elapsed.Seconds(), res.Final.Total)
	}
	return w.Flush()
}

func runSweep(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	if !cmd.Flags().Changed("iterations") {
		cfg.Train.Iterations = sweepIters
	}
	cfg.Train.LogEvery = 0

	ctx, stop := interruptContext()
	defer stop()

	weights := append([]float64(nil), sweepWeights...)
	sort.Float64s(weights)
	gs := optim.NewGridSearch([]string{experiment.ParamPhysicsWeight}, [][]float64{weights})

	logger.Printf("sweeping %d physics weights at %d iterations", len(weights), cfg.Train.Iterations)
	best, bestVal, trials, err := gs.Search(ctx, experiment.Evaluator(experimentConfig(cfg)), "pinn_mae_held_out")
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "PHYS_W\tPINN_MAE\tNN_MAE\tRATIO\tPINN_ERR_T")
	for _, tr := range trials {
		if tr.Err != nil {
			fmt.Fprintf(w, "%g\terror: %v\n", tr.Params[experiment.ParamPhysicsWeight], tr.Err)
			continue
		}
		fmt.Fprintf(w, "%g\t%.4f\t%.4f\t%.1fx\t%.4f\n",
			tr.Params[experiment.ParamPhysicsWeight],
			tr.Metrics["pinn_mae_held_out"],
			tr.Metrics["plain_mae_held_out"],
			tr.Metrics["held_out_ratio"],
			tr.Metrics["pinn_err_t_max"],
		)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	if best == nil {
		return fmt.Errorf("every trial failed")
	}
	fmt.Printf("\nbest physics weight: %g (held-out MAE %.4f)\n", best[experiment.ParamPhysicsWeight], bestVal)
	return nil
}
