// Package config assembles the runtime settings of the transition tools.
//
// Settings are layered, later layers overriding earlier ones:
//
//  1. built-in defaults (Default)
//  2. a YAML settings file
//  3. CSD_* environment variables
//  4. command-line flags, applied by the caller after Load
//
// The result is checked with Validate before use.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v2"

	"github.com/ironsheep/csd-transitions/internal/detector"
)

// DefaultFile is the settings file looked up in the working directory when no
// path is given.
const DefaultFile = "settings.yaml"

// EnvPrefix prefixes every environment override.
const EnvPrefix = "CSD_"

// ErrInvalid is returned by Validate for out-of-range settings.
var ErrInvalid = errors.New("invalid configuration")

// Config is the full settings of a run.
type Config struct {
	Detector detector.Config `yaml:",inline"`

	// Workers bounds concurrent rows per scan; 0 selects GOMAXPROCS.
	Workers int `yaml:"workers" validate:"gte=0"`

	LogLevel string `yaml:"log_level" validate:"oneof=trace debug info warn warning error fatal panic"`

	// OutDir receives scan outputs.
	OutDir string `yaml:"out_dir" validate:"required"`

	// PlotResults enables PNG renderings next to the CSV mask.
	PlotResults bool `yaml:"plot_results"`

	// PixelScale is the upscale factor of rendered masks.
	PixelScale int `yaml:"pixel_scale" validate:"gte=1,lte=64"`

	// MinLineLength is the shortest segment, in pixels, kept by line extraction.
	MinLineLength int `yaml:"min_line_length" validate:"gte=2"`

	// MetricsFile, when set, receives Prometheus metrics in text format after a run.
	MetricsFile string `yaml:"metrics_file"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Detector:      detector.DefaultConfig(),
		LogLevel:      "info",
		OutDir:        "out",
		PixelScale:    4,
		MinLineLength: 5,
	}
}

// Load builds a Config from defaults, the YAML file at path and the
// environment. An empty path reads DefaultFile if it exists; an explicit path
// must exist.
func Load(path string) (Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultFile
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.UnmarshalStrict(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	case explicit || !errors.Is(err, os.ErrNotExist):
		return cfg, fmt.Errorf("failed to read settings: %w", err)
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return cfg, err
	}
	return cfg, nil
}

type lookupFunc func(key string) (string, bool)

func (c *Config) applyEnv(lookup lookupFunc) error {
	floats := map[string]*float64{
		"SIGMA":             &c.Detector.Sigma,
		"TREND_DECAY":       &c.Detector.TrendDecay,
		"FILTER_DECAY":      &c.Detector.FilterDecay,
		"CALIBRATION_ROW":   &c.Detector.CalibrationRow,
		"CALIBRATION_WIDTH": &c.Detector.CalibrationWidth,
	}
	ints := map[string]*int{
		"TREND_WINDOW":    &c.Detector.TrendWindow,
		"WORKERS":         &c.Workers,
		"PIXEL_SCALE":     &c.PixelScale,
		"MIN_LINE_LENGTH": &c.MinLineLength,
	}
	bools := map[string]*bool{
		"TRANSCONDUCTANCE": &c.Detector.Transconductance,
		"PLOT_RESULTS":     &c.PlotResults,
	}
	strs := map[string]*string{
		"LOG_LEVEL":    &c.LogLevel,
		"OUT_DIR":      &c.OutDir,
		"METRICS_FILE": &c.MetricsFile,
	}

	for name, dst := range floats {
		if v, ok := lookup(EnvPrefix + name); ok {
			f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
			if err != nil {
				return fmt.Errorf("%s%s: %w", EnvPrefix, name, err)
			}
			*dst = f
		}
	}
	for name, dst := range ints {
		if v, ok := lookup(EnvPrefix + name); ok {
			n, err := strconv.Atoi(strings.TrimSpace(v))
			if err != nil {
				return fmt.Errorf("%s%s: %w", EnvPrefix, name, err)
			}
			*dst = n
		}
	}
	for name, dst := range bools {
		if v, ok := lookup(EnvPrefix + name); ok {
			b, err := strconv.ParseBool(strings.TrimSpace(v))
			if err != nil {
				return fmt.Errorf("%s%s: %w", EnvPrefix, name, err)
			}
			*dst = b
		}
	}
	for name, dst := range strs {
		if v, ok := lookup(EnvPrefix + name); ok {
			*dst = v
		}
	}
	return nil
}

var validate = validator.New()

// Validate checks every setting against its allowed range.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %q (value %v)", fe.Namespace(), fe.Tag(), fe.Value()))
			}
			return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(msgs, "; "))
		}
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return nil
}

// Level returns the parsed log level.
func (c Config) Level() logrus.Level {
	lvl, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		return logrus.InfoLevel
	}
	return lvl
}

// NewLogger returns a logger writing to stderr at the configured level.
// Stdout stays free for protocol traffic when serving.
func (c Config) NewLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetLevel(c.Level())
	l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	return l
}
