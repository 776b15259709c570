package detector

// Default tuning values.
const (
	DefaultSigma            = 3.0
	DefaultTrendDecay       = 0.1
	DefaultFilterDecay      = 0.2
	DefaultCalibrationRow   = 0.8
	DefaultCalibrationWidth = 0.5
	DefaultTrendWindow      = 30
)

const (
	// LeadIn is the number of leading output positions that are never
	// reported.
	LeadIn = 4

	// trendLag is the number of most recent filtered values left out of the
	// trend reference.
	trendLag = 2

	// minThresholds is the number of thresholds that must exist before a
	// decision is taken.
	minThresholds = 3
)

// Config holds the tuning of one detector. It is fixed for the lifetime of
// the detectors built from it.
type Config struct {
	// Sigma multiplies the noise RMS to form the detection threshold.
	Sigma float64 `yaml:"sigma" json:"sigma" validate:"gte=0"`

	// TrendDecay smooths the raw signal trend and the calibration derivative.
	TrendDecay float64 `yaml:"trend_decay" json:"trend_decay" validate:"gt=0,lt=1"`

	// FilterDecay smooths the working derivative.
	FilterDecay float64 `yaml:"filter_decay" json:"filter_decay" validate:"gt=0,lt=1"`

	// Transconductance switches the working value from the derivative to the
	// raw sample, for data that already is a derivative.
	Transconductance bool `yaml:"transconductance" json:"transconductance"`

	// CalibrationRow is the fractional vertical position of the calibration row.
	CalibrationRow float64 `yaml:"calibration_row" json:"calibration_row" validate:"gte=0,lte=1"`

	// CalibrationWidth is the fraction of columns, from the left, used for calibration.
	CalibrationWidth float64 `yaml:"calibration_width" json:"calibration_width" validate:"gt=0,lte=1"`

	// TrendWindow is the number of filtered values (most recent two
	// excluded) averaged into the trend reference.
	TrendWindow int `yaml:"trend_window" json:"trend_window" validate:"gte=3"`
}

// DefaultConfig returns the reference tuning.
func DefaultConfig() Config {
	return Config{
		Sigma:            DefaultSigma,
		TrendDecay:       DefaultTrendDecay,
		FilterDecay:      DefaultFilterDecay,
		CalibrationRow:   DefaultCalibrationRow,
		CalibrationWidth: DefaultCalibrationWidth,
		TrendWindow:      DefaultTrendWindow,
	}
}

// warmup returns the number of buffered samples before a working value exists.
func (c Config) warmup() int {
	if c.Transconductance {
		return 2
	}
	return 3
}
