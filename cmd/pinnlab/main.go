package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/san-kum/pinnlab/internal/config"
	"github.com/san-kum/pinnlab/internal/experiment"
	"github.com/san-kum/pinnlab/internal/store"
	"github.com/san-kum/pinnlab/internal/train"
	"github.com/san-kum/pinnlab/internal/viz"
)

var (
	dataDir       string
	configFile    string
	preset        string
	seed          int64
	iterations    int
	lr            float64
	physicsWeight float64
	dataWeight    float64
	logEvery      int
	integrator    string
	output        string
	still         string
	frames        int
	fps           int
	noSave        bool
	chunk         int
	outFile       string
	sweepWeights  []float64
	sweepIters    int
	benchIters    int
)

var logger = log.New(os.Stderr, "pinnlab: ", log.LstdFlags)

// main registers the commands and exits with status 1 when one fails.
func main() {
	rootCmd := &cobra.Command{
		Use:          "pinnlab",
		Short:        "physics-informed vs plain network extrapolation lab",
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", config.DefaultDataDir, "data directory")
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path (yaml)")
	rootCmd.PersistentFlags().StringVar(&preset, "preset", "", "use preset configuration")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "train both models, evaluate and render the comparison",
		Args:  cobra.NoArgs,
		RunE:  runPipeline,
	}
	addTrainingFlags(runCmd)
	runCmd.Flags().StringVar(&output, "out", "", "animation output path (gif)")
	runCmd.Flags().StringVar(&still, "still", "", "also write the last frame (png, svg, pdf, ... by extension)")
	runCmd.Flags().IntVar(&frames, "frames", 0, "animation frames")
	runCmd.Flags().IntVar(&fps, "fps", 0, "animation frame rate")
	runCmd.Flags().BoolVar(&noSave, "no-save", false, "do not store the run")

	trainCmd := &cobra.Command{
		Use:       "train [plain|pinn]",
		Short:     "train one model and plot its loss",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"plain", "pinn"},
		RunE:      trainOne,
	}
	addTrainingFlags(trainCmd)

	liveCmd := &cobra.Command{
		Use:   "live",
		Short: "train both models with a live terminal view",
		Args:  cobra.NoArgs,
		RunE:  runLive,
	}
	addTrainingFlags(liveCmd)
	liveCmd.Flags().IntVar(&chunk, "chunk", viz.DefaultChunk, "iterations per frame")
	liveCmd.Flags().BoolVar(&noSave, "no-save", false, "do not store the run")

	sweepCmd := &cobra.Command{
		Use:   "sweep",
		Short: "grid search over the physics loss weight",
		Args:  cobra.NoArgs,
		RunE:  runSweep,
	}
	addTrainingFlags(sweepCmd)
	sweepCmd.Flags().Float64SliceVar(&sweepWeights, "weights", []float64{0.1, 0.5, 1, 2, 5}, "physics weights to try")
	sweepCmd.Flags().IntVar(&sweepIters, "budget", 5000, "iterations per trial")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list runs",
		Args:  cobra.NoArgs,
		RunE:  listRuns,
	}

	historyCmd := &cobra.Command{
		Use:   "history [run_id]",
		Short: "plot stored loss curves",
		Args:  cobra.ExactArgs(1),
		RunE:  plotHistory,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot stored predictions",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}

	renderCmd := &cobra.Command{
		Use:   "render [run_id]",
		Short: "re-render the animation of a stored run",
		Args:  cobra.ExactArgs(1),
		RunE:  renderRun,
	}
	renderCmd.Flags().StringVar(&output, "out", "", "animation output path (gif)")
	renderCmd.Flags().IntVar(&frames, "frames", 0, "animation frames")
	renderCmd.Flags().IntVar(&fps, "fps", 0, "animation frame rate")

	exportCSVCmd := &cobra.Command{
		Use:   "export-csv [run_id]",
		Short: "export run predictions to CSV",
		Args:  cobra.ExactArgs(1),
		RunE:  exportCSV,
	}
	exportCSVCmd.Flags().StringVarP(&outFile, "output", "o", "", "output file (default stdout)")

	exportJSONCmd := &cobra.Command{
		Use:   "export-json [run_id]",
		Short: "export run data to JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  exportJSON,
	}
	exportJSONCmd.Flags().StringVarP(&outFile, "output", "o", "", "output file (default stdout)")

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list available presets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Println("presets:")
			for _, p := range config.ListPresets() {
				fmt.Printf("  %-8s %s\n", p, config.Describe(p))
			}
			return nil
		},
	}

	configCmd := &cobra.Command{
		Use:   "config",
		Short: "print or write the effective configuration",
		Args:  cobra.NoArgs,
		RunE:  showConfig,
	}
	addTrainingFlags(configCmd)
	configCmd.Flags().StringVarP(&outFile, "output", "o", "", "write yaml to file")

	residualCmd := &cobra.Command{
		Use:   "residual [run_id]",
		Short: "print the ODE residual of the analytic law or a stored PINN",
		Args:  cobra.MaximumNArgs(1),
		RunE:  printResidual,
	}

	compareCmd := &cobra.Command{
		Use:   "compare",
		Short: "compare integrators against the analytic curve",
		Args:  cobra.NoArgs,
		RunE:  compareIntegrators,
	}

	benchCmd := &cobra.Command{
		Use:   "bench",
		Short: "benchmark training iterations",
		Args:  cobra.NoArgs,
		RunE:  benchTraining,
	}
	benchCmd.Flags().IntVar(&benchIters, "iterations", 1000, "iterations per model")

	rootCmd.AddCommand(runCmd, trainCmd, liveCmd, sweepCmd, listCmd, historyCmd, plotCmd, renderCmd,
		exportCSVCmd, exportJSONCmd, presetsCmd, configCmd, residualCmd, compareCmd, benchCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func addTrainingFlags(cmd *cobra.Command) {
	cmd.Flags().Int64Var(&seed, "seed", 0, "random seed")
	cmd.Flags().IntVar(&iterations, "iterations", 0, "iterations per model")
	cmd.Flags().Float64Var(&lr, "lr", 0, "learning rate")
	cmd.Flags().Float64Var(&physicsWeight, "physics-weight", 0, "weight of the physics loss")
	cmd.Flags().Float64Var(&dataWeight, "data-weight", 0, "weight of the data loss")
	cmd.Flags().IntVar(&logEvery, "log-every", 0, "progress report interval")
	cmd.Flags().StringVar(&integrator, "integrator", "", "reference integrator (euler, midpoint, rk4)")
}

// resolveConfig applies preset, config file and environment, then every flag
// the user set explicitly.
func resolveConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Resolve(preset, configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	flags := cmd.Flags()
	if flags.Changed("data") {
		cfg.DataDir = dataDir
	}
	if flags.Changed("seed") {
		cfg.Data.Seed = seed
	}
	if flags.Changed("iterations") {
		cfg.Train.Iterations = iterations
	}
	if flags.Changed("lr") {
		cfg.Train.LR = lr
	}
	if flags.Changed("physics-weight") {
		cfg.Train.PhysicsWeight = physicsWeight
	}
	if flags.Changed("data-weight") {
		cfg.Train.DataWeight = dataWeight
	}
	if flags.Changed("log-every") {
		cfg.Train.LogEvery = logEvery
	}
	if flags.Changed("integrator") {
		cfg.Integrator = integrator
	}
	if flags.Changed("out") {
		cfg.Render.Output = output
	}
	if flags.Changed("still") {
		cfg.Render.Still = still
	}
	if flags.Changed("frames") {
		cfg.Render.Frames = frames
	}
	if flags.Changed("fps") {
		cfg.Render.FPS = fps
	}
	return cfg, cfg.Validate()
}

func experimentConfig(cfg *config.Config) experiment.Config {
	return experiment.Config{
		Preset:     cfg.Preset,
		Integrator: cfg.Integrator,
		Law:        cfg.Law,
		Data:       cfg.Data,
		Train:      cfg.Train,
	}
}

func progressLogger() train.Observer {
	return train.ObserverFunc(func(kind train.Kind, l train.Loss, total int) {
		logger.Println(train.FormatProgress(kind, l, total))
	})
}

func interruptContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt)
}

func runPipeline(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}

	ctx, stop := interruptContext()
	defer stop()

	exp := experiment.New(experimentConfig(cfg))
	exp.AddObserver(progressLogger())

	logger.Printf("%s, seed %d, %d iterations per model", cfg.Law, cfg.Data.Seed, cfg.Train.Iterations)
	start := time.Now()
	out, err := exp.Run(ctx)
	if err != nil {
		return err
	}
	logger.Printf("training finished in %v", time.Since(start).Round(time.Millisecond))

	anim := cfg.Animation()
	logger.Printf("rendering %d frames to %s", anim.Frames, cfg.Render.Output)
	if err := anim.Save(cfg.Render.Output, out.Report, out.Dataset.Observations); err != nil {
		return fmt.Errorf("render: %w", err)
	}
	if cfg.Render.Still != "" {
		if err := anim.SaveStill(cfg.Render.Still, out.Report, out.Dataset.Observations); err != nil {
			return fmt.Errorf("render still: %w", err)
		}
	}

	runID := ""
	if !noSave {
		runID, err = saveOutcome(ctx, cfg, out)
		if err != nil {
			return err
		}
	}

	printOutcome(runID, cfg.Render.Output, out)
	return nil
}

func saveOutcome(ctx context.Context, cfg *config.Config, out *experiment.Outcome) (string, error) {
	st := store.New(cfg.DataDir)
	if err := st.Init(); err != nil {
		return "", err
	}
	defer st.Close()

	elapsed := make(map[string]float64, len(out.Elapsed))
	for kind, d := range out.Elapsed {
		elapsed[string(kind)] = d.Seconds()
	}

	run := &store.Run{
		Meta: store.RunMetadata{
			Preset:     cfg.Preset,
			Seed:       cfg.Data.Seed,
			Law:        cfg.Law,
			Data:       cfg.Data,
			Train:      cfg.Train,
			Integrator: cfg.Integrator,
			Output:     cfg.Render.Output,
			Elapsed:    elapsed,
			Metrics:    out.Metrics,
		},
		Report:       out.Report,
		Observations: out.Dataset.Observations,
		Plain:        out.Plain.Net,
		PINN:         out.PINN.Net,
		History:      out.History,
	}
	id, err := st.Save(ctx, run)
	if err != nil {
		return "", err
	}
	for _, kind := range run.Meta.Diverged {
		logger.Printf("%s parameters are not finite; no checkpoint saved for %s", kind.Label(), id)
	}
	return id, nil
}

func printOutcome(runID, gifPath string, out *experiment.Outcome) {
	fmt.Println(viz.Panel("metrics", viz.Metrics(out.Metrics)))
	fmt.Println(out.Report.Summary())
	if runID != "" {
		fmt.Printf("run id: %s\n", runID)
	}
	if gifPath != "" {
		fmt.Printf("animation: %s\n", gifPath)
	}
}

func trainOne(cmd *cobra.Command, args []string) error {
	kind, err := train.ParseKind(args[0])
	if err != nil {
		return err
	}
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}

	ctx, stop := interruptContext()
	defer stop()

	s, err := experiment.New(experimentConfig(cfg)).Setup()
	if err != nil {
		return err
	}
	tr, err := train.New(kind, cfg.Train, cfg.Law)
	if err != nil {
		return err
	}
	tr.AddObserver(progressLogger())

	st := s.Plain
	if kind == train.Physics {
		st = s.PINN
	}
	res, err := tr.Run(ctx, st, s.Dataset)
	if err != nil {
		return err
	}

	curve := viz.LogLosses(res.History)
	if kind == train.Physics {
		fmt.Println(viz.LossChart(nil, curve, 80, 10))
	} else {
		fmt.Println(viz.LossChart(curve, nil, 80, 10))
	}
	fmt.Println(train.FormatProgress(kind, res.Final, cfg.Train.Iterations))
	fmt.Printf("trained in %v\n", res.Elapsed.Round(time.Millisecond))
	return nil
}

func runLive(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}

	s, err := experiment.New(experimentConfig(cfg)).Setup()
	if err != nil {
		return err
	}

	ctx, stop := interruptContext()
	defer stop()

	final, err := tea.NewProgram(viz.NewModel(ctx, s, chunk)).Run()
	if err != nil {
		return err
	}
	m := final.(viz.Model)
	if m.Err() != nil {
		return m.Err()
	}
	if m.Outcome() == nil {
		logger.Printf("stopped after %d/%d iterations", s.Plain.Iter+s.PINN.Iter, 2*cfg.Train.Iterations)
		return nil
	}

	runID := ""
	if !noSave {
		runID, err = saveOutcome(ctx, cfg, m.Outcome())
		if err != nil {
			return err
		}
	}
	printOutcome(runID, "", m.Outcome())
	return nil
}
