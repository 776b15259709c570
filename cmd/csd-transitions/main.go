package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ironsheep/csd-transitions/internal/config"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// app carries what every command needs once flags are parsed.
type app struct {
	settingsPath string
	cfg          config.Config
	log          *logrus.Logger
	registry     *prometheus.Registry
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "csd-transitions",
		Short: "Detect charge transitions in charge stability diagrams",
		Long: `Detect charge transitions in charge stability diagrams with an adaptive
EWMA threshold detector, and group them into line segments.

Settings are read from settings.yaml (or --config), overridden by CSD_*
environment variables, overridden by flags.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
		PersistentPostRunE: func(_ *cobra.Command, _ []string) error {
			return a.writeMetrics()
		},
	}

	flags := root.PersistentFlags()
	def := config.Default()
	flags.StringVar(&a.settingsPath, "config", "", "settings file (default ./"+config.DefaultFile+" if present)")
	flags.Float64("sigma", def.Detector.Sigma, "threshold multiplier on the noise RMS")
	flags.Bool("transconductance", false, "treat values as a derivative already")
	flags.Int("trend-window", def.Detector.TrendWindow, "filtered values averaged into the trend reference")
	flags.Int("workers", 0, "rows scanned concurrently (0 = GOMAXPROCS)")
	flags.String("log-level", def.LogLevel, "log level (debug, info, warn, error)")
	flags.String("out-dir", def.OutDir, "directory receiving scan outputs")
	flags.Bool("plot", false, "write PNG renderings next to the CSV outputs")
	flags.Int("pixel-scale", def.PixelScale, "pixels per diagram cell in renderings")
	flags.Int("min-line-length", def.MinLineLength, "shortest line segment kept, in cells")
	flags.String("metrics-file", "", "write Prometheus metrics in text format to this file on exit")

	root.AddCommand(
		newServeCmd(a),
		newScanCmd(a),
		newTraceCmd(a),
		newSynthCmd(a),
		newVersionCmd(),
	)
	return root
}

// setup layers defaults, settings file, environment and flags.
func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(a.settingsPath)
	if err != nil {
		return err
	}

	if err := applyFlags(&cfg, cmd); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	a.cfg = cfg
	a.log = cfg.NewLogger()
	a.registry = prometheus.NewRegistry()
	a.log.WithFields(logrus.Fields{
		"version": Version,
		"commit":  GitCommit,
		"sigma":   cfg.Detector.Sigma,
		"tc":      cfg.Detector.Transconductance,
	}).Debug("configuration loaded")
	return nil
}

func applyFlags(cfg *config.Config, cmd *cobra.Command) error {
	flags := cmd.Flags()
	var err error
	set := func(name string, apply func()) {
		if err == nil && flags.Changed(name) {
			apply()
		}
	}
	set("sigma", func() { cfg.Detector.Sigma, err = flags.GetFloat64("sigma") })
	set("transconductance", func() { cfg.Detector.Transconductance, err = flags.GetBool("transconductance") })
	set("trend-window", func() { cfg.Detector.TrendWindow, err = flags.GetInt("trend-window") })
	set("workers", func() { cfg.Workers, err = flags.GetInt("workers") })
	set("log-level", func() { cfg.LogLevel, err = flags.GetString("log-level") })
	set("out-dir", func() { cfg.OutDir, err = flags.GetString("out-dir") })
	set("plot", func() { cfg.PlotResults, err = flags.GetBool("plot") })
	set("pixel-scale", func() { cfg.PixelScale, err = flags.GetInt("pixel-scale") })
	set("min-line-length", func() { cfg.MinLineLength, err = flags.GetInt("min-line-length") })
	set("metrics-file", func() { cfg.MetricsFile, err = flags.GetString("metrics-file") })
	return err
}

func (a *app) writeMetrics() error {
	if a.cfg.MetricsFile == "" || a.registry == nil {
		return nil
	}
	if err := prometheus.WriteToTextfile(a.cfg.MetricsFile, a.registry); err != nil {
		return fmt.Errorf("failed to write metrics: %w", err)
	}
	a.log.WithField("path", a.cfg.MetricsFile).Debug("metrics written")
	return nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		// no settings needed
		PersistentPreRunE:  func(*cobra.Command, []string) error { return nil },
		PersistentPostRunE: func(*cobra.Command, []string) error { return nil },
		Run: func(cmd *cobra.Command, _ []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "csd-transitions %s\n", Version)
			fmt.Fprintf(out, "  Build time: %s\n", BuildTime)
			fmt.Fprintf(out, "  Git commit: %s\n", GitCommit)
		},
	}
}
