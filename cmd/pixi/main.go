package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"

	"github.com/san-kum/pixi/internal/animation"
	"github.com/san-kum/pixi/internal/config"
	"github.com/san-kum/pixi/internal/metrics"
	"github.com/san-kum/pixi/internal/physics"
	"github.com/san-kum/pixi/internal/scene"
	"github.com/san-kum/pixi/internal/storage"
	"github.com/san-kum/pixi/internal/stream"
	"github.com/san-kum/pixi/internal/viz"
)

var (
	logOut       *os.File
	logFile      string
	verbose      bool
	seed         int64
	preset       int
	settingsFile string
	period       int

	cols, rows int
	theme      string

	frames    int
	every     int
	width     int
	height    int
	outFile   string
	steps     int
	addr      string
	queueSize int
	dataDir   string
	modes     int
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "pixi",
		Short:         "particle-in-cell simulation viewer",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return setupLogging()
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return closeLog()
		},
		RunE: runLive,
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&logFile, "log", filepath.Join(".pixi", "pixi.log"), "log file")
	pf.BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	pf.Int64Var(&seed, "seed", 1, "random seed for presets")
	pf.IntVarP(&preset, "preset", "p", 0, "initial preset")
	pf.StringVarP(&settingsFile, "settings", "s", "", "settings file (yaml or toml), overrides --preset")
	pf.IntVar(&period, "period", int(animation.DefaultPeriod/time.Millisecond), "tick period in milliseconds")

	liveCmd := &cobra.Command{
		Use:   "live",
		Short: "interactive terminal view",
		RunE:  runLive,
	}
	for _, c := range []*cobra.Command{rootCmd, liveCmd} {
		c.Flags().IntVar(&cols, "cols", 60, "canvas width in cells")
		c.Flags().IntVar(&rows, "rows", 22, "canvas height in cells")
		c.Flags().StringVar(&theme, "theme", viz.ThemeCyberpunk.Name, "color theme")
	}

	recordCmd := &cobra.Command{
		Use:   "record",
		Short: "render frames headless into an animated GIF",
		RunE:  runRecord,
	}
	recordCmd.Flags().IntVar(&frames, "frames", 200, "frames to capture")
	recordCmd.Flags().IntVar(&every, "every", 1, "capture every n-th tick")
	recordCmd.Flags().IntVar(&width, "width", 320, "image width")
	recordCmd.Flags().IntVar(&height, "height", 320, "image height")
	recordCmd.Flags().StringVarP(&outFile, "out", "o", "pixi.gif", "output file")

	snapshotCmd := &cobra.Command{
		Use:   "snapshot",
		Short: "render one frame to SVG",
		RunE:  runSnapshot,
	}
	snapshotCmd.Flags().IntVar(&steps, "steps", 0, "steps to simulate before rendering")
	snapshotCmd.Flags().IntVar(&width, "width", 640, "image width")
	snapshotCmd.Flags().IntVar(&height, "height", 640, "image height")
	snapshotCmd.Flags().StringVarP(&outFile, "out", "o", "pixi.svg", "output file")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "stream frames to websocket clients",
		RunE:  runServe,
	}
	serveCmd.Flags().StringVar(&addr, "addr", ":8080", "listen address")
	serveCmd.Flags().IntVar(&every, "every", 1, "stream every n-th tick")
	serveCmd.Flags().IntVar(&queueSize, "queue", stream.DefaultQueueSize, "frames buffered per client")

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list built-in presets",
		RunE:  listPresets,
	}

	settingsCmd := &cobra.Command{
		Use:   "settings [file]",
		Short: "print or save the effective settings",
		Args:  cobra.MaximumNArgs(1),
		RunE:  saveSettings,
	}

	runsCmd := &cobra.Command{
		Use:   "runs",
		Short: "list diagnostics runs",
		RunE:  listRuns,
	}
	runsCmd.Flags().StringVar(&dataDir, "data", "output", "diagnostics directory")

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot the charge spectrum of a run",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}
	plotCmd.Flags().StringVar(&dataDir, "data", "output", "diagnostics directory")
	plotCmd.Flags().IntVar(&modes, "modes", 3, "wave numbers to plot")

	rootCmd.AddCommand(liveCmd, recordCmd, snapshotCmd, serveCmd, presetsCmd, settingsCmd, runsCmd, plotCmd)

	if err := rootCmd.Execute(); err != nil {
		closeLog()
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func setupLogging() error {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	if err := os.MkdirAll(filepath.Dir(logFile), 0755); err != nil {
		return err
	}
	f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return err
	}
	logOut = f
	slog.SetDefault(slog.New(slog.NewTextHandler(f, &slog.HandlerOptions{Level: level})))
	return nil
}

// closeLog closes the log file opened by setupLogging. Later records go to
// stderr.
func closeLog() error {
	if logOut == nil {
		return nil
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, nil)))
	err := logOut.Close()
	logOut = nil
	return err
}

// settings returns the simulation selected by the flags.
func settings() (physics.Settings, error) {
	if settingsFile != "" {
		return config.Load(settingsFile)
	}
	return physics.PresetSettings(preset, seed)
}

func newAnimation() (*animation.Animation, error) {
	cfg := animation.Config{
		Preset: preset,
		Seed:   seed,
		Period: time.Duration(period) * time.Millisecond,
		Logger: slog.Default(),
	}
	if settingsFile != "" {
		s, err := config.Load(settingsFile)
		if err != nil {
			return nil, err
		}
		cfg.Settings = &s
	}
	return animation.New(cfg)
}

// runAnimation runs anim until fn returns, then stops the loop and waits
// for it.
func runAnimation(ctx context.Context, anim *animation.Animation, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan error, 1)
	go func() { done <- anim.Run(ctx) }()

	err := fn(ctx)
	cancel()
	if runErr := <-done; !errors.Is(runErr, context.Canceled) {
		err = errors.Join(err, runErr)
	}
	return err
}

func runLive(cmd *cobra.Command, args []string) error {
	anim, err := newAnimation()
	if err != nil {
		return err
	}
	obs := viz.NewObserver(cols, rows, slog.Default())
	anim.AddObserver(obs)
	set := metrics.Default()
	anim.AddObserver(set)

	model := viz.NewModel(anim, obs, viz.ThemeByName(theme))
	model.Metrics = set
	return runAnimation(cmd.Context(), anim, func(context.Context) error {
		p := tea.NewProgram(model, tea.WithAltScreen())
		_, err := p.Run()
		return err
	})
}

// frameCounter cancels the run after n repaints.
type frameCounter struct {
	n      int
	seen   int
	cancel context.CancelFunc
}

func (c *frameCounter) Repaint(animation.Frame) {
	c.seen++
	if c.seen == c.n {
		c.cancel()
	}
}

func (c *frameCounter) Clear() {}

func runRecord(cmd *cobra.Command, args []string) error {
	if frames <= 0 {
		return fmt.Errorf("--frames must be positive")
	}
	period = int(animation.MinPeriod / time.Millisecond)
	anim, err := newAnimation()
	if err != nil {
		return err
	}
	rec := viz.NewRecorder(width, height, slog.Default())
	rec.Every = max(every, 1)
	rec.Limit = frames
	anim.AddObserver(rec)
	set := metrics.Default()
	anim.AddObserver(set)

	start := time.Now()
	err = runAnimation(cmd.Context(), anim, func(ctx context.Context) error {
		ctx, cancel := context.WithCancel(ctx)
		anim.AddObserver(&frameCounter{n: frames * rec.Every, cancel: cancel})
		if err := anim.Start(); err != nil {
			return err
		}
		<-ctx.Done()
		return nil
	})
	if err != nil {
		return err
	}

	if err := rec.Save(outFile); err != nil {
		return err
	}

	times := rec.RenderTimes()
	ms := make([]float64, len(times))
	for i, d := range times {
		ms[i] = float64(d) / float64(time.Millisecond)
	}
	fmt.Printf("recorded %d frames in %s to %s\n\n", rec.Len(), time.Since(start).Round(time.Millisecond), outFile)
	if len(ms) > 1 {
		fmt.Println(asciigraph.Plot(ms,
			asciigraph.Height(10),
			asciigraph.Width(80),
			asciigraph.Caption("render time per frame (ms)"),
		))
	}
	printMetrics(set)
	return nil
}

func printMetrics(set *metrics.Set) {
	values := set.Values()
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w)
	for _, name := range set.Names() {
		fmt.Fprintf(w, "%s\t%.6g\n", name, values[name])
	}
	w.Flush()
}

func runSnapshot(cmd *cobra.Command, args []string) error {
	s, err := settings()
	if err != nil {
		return err
	}
	sim, err := physics.NewSimulation(s)
	if err != nil {
		return err
	}
	defer sim.Close()

	sim.PrepareAllParticles()
	for range steps {
		if err := sim.Step(); err != nil {
			return err
		}
	}

	svg := scene.NewSVG(width, height)
	stats := viz.NewRenderer(slog.Default()).Paint(sim, svg, scene.NoBudget)
	if err := os.WriteFile(outFile, []byte(svg.String()), 0644); err != nil {
		return err
	}
	fmt.Printf("wrote %s: %d primitives at t=%.3f\n", outFile, stats.Painted, sim.Time())
	return nil
}

func listPresets(cmd *cobra.Command, args []string) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tBOX\tGRID\tSOLVER")
	for id, name := range physics.PresetNames() {
		s, err := physics.PresetSettings(id, seed)
		if err != nil {
			return err
		}
		ext := s.Extent()
		fmt.Fprintf(w, "%d\t%s\t%gx%gx%g\t%t\t%s\n", id, name, ext.X(), ext.Y(), ext.Z(), s.UseGrid, s.Solver)
	}
	return w.Flush()
}

func saveSettings(cmd *cobra.Command, args []string) error {
	s, err := settings()
	if err != nil {
		return err
	}
	f := config.FromSettings(s)
	if len(args) == 0 {
		return config.Write(os.Stdout, f, config.YAML)
	}
	if err := config.Save(args[0], f); err != nil {
		return err
	}
	fmt.Printf("saved %s\n", args[0])
	return nil
}

func listRuns(cmd *cobra.Command, args []string) error {
	runs, err := storage.New(dataDir).List()
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTIME\tPARTICLES\tDT\tSOLVER\tBOUNDARY")
	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%d\t%.4g\t%s\t%s\n",
			run.ID,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Particles,
			run.TimeStep,
			run.Solver,
			run.Boundary,
		)
	}
	return w.Flush()
}

func plotRun(cmd *cobra.Command, args []string) error {
	runID := args[0]
	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}
	sp, err := st.LoadSpectrum(runID)
	if err != nil {
		return err
	}

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("particles: %d\n", meta.Particles)
	fmt.Printf("spectra: %d\n\n", len(sp.Times))

	for k := 1; k <= modes; k++ {
		data := sp.Mode(k)
		if len(data) < 2 {
			break
		}
		fmt.Println(asciigraph.Plot(data,
			asciigraph.Height(10),
			asciigraph.Width(80),
			asciigraph.Caption(fmt.Sprintf("charge power, mode %d", k)),
		))
		fmt.Println()
	}
	return nil
}
