package detector

import (
	"fmt"
	"math"

	"github.com/ironsheep/csd-transitions/internal/ewma"
	"github.com/ironsheep/csd-transitions/internal/trace"
)

// Calibration is the noise baseline estimated from a transition-free region.
//
// It is computed once, before any detection decision, and never updated.
type Calibration struct {
	// Residuals is derivative minus its lagged EWMA over the window, or the
	// raw window values in transconductance mode.
	Residuals []float64 `json:"residuals"`

	// Row is the diagram row the window was taken from, -1 for a 1D trace.
	Row int `json:"row"`

	// Columns is the number of samples in the calibration window.
	Columns int `json:"columns"`

	// Transconductance records the mode the calibration was computed for.
	Transconductance bool `json:"transconductance"`
}

// NoiseSeed returns the residuals that seed every detector's noise history:
// all of them except the last.
func (c *Calibration) NoiseSeed() []float64 {
	if len(c.Residuals) == 0 {
		return nil
	}
	return c.Residuals[:len(c.Residuals)-1]
}

// RMS returns the root mean square of the noise seed, the initial noise
// standard deviation seen by a detector.
func (c *Calibration) RMS() float64 {
	return ewma.NewRunningRMS(c.NoiseSeed()).Value()
}

// CalibrateDiagram estimates the noise baseline of a diagram from row
// int(CalibrationRow*rows), columns [0, int(CalibrationWidth*cols)).
func CalibrateDiagram(d *trace.Diagram, cfg Config) (*Calibration, error) {
	rows := d.Rows()
	if rows == 0 {
		return nil, fmt.Errorf("diagram has no rows: %w", ErrEmptyCalibrationWindow)
	}
	if err := d.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTraceLength, err)
	}

	row := int(cfg.CalibrationRow * float64(rows))
	if row >= rows {
		row = rows - 1
	}
	width := int(cfg.CalibrationWidth * float64(d.Cols()))

	cal, err := calibrateWindow(d.Row(row).Window(0, width), cfg)
	if err != nil {
		return nil, fmt.Errorf("calibration row %d: %w", row, err)
	}
	cal.Row = row
	return cal, nil
}

// CalibrateTrace estimates the noise baseline of a single trace from its
// first int(CalibrationWidth*n) samples.
func CalibrateTrace(t trace.Trace, cfg Config) (*Calibration, error) {
	if err := t.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTraceLength, err)
	}
	width := int(cfg.CalibrationWidth * float64(t.Len()))

	cal, err := calibrateWindow(t.Window(0, width), cfg)
	if err != nil {
		return nil, err
	}
	cal.Row = -1
	return cal, nil
}

func calibrateWindow(w trace.Trace, cfg Config) (*Calibration, error) {
	cal := &Calibration{Columns: w.Len(), Transconductance: cfg.Transconductance}

	if cfg.Transconductance {
		if w.Len() == 0 {
			return nil, fmt.Errorf("window has no samples: %w", ErrEmptyCalibrationWindow)
		}
		cal.Residuals = make([]float64, w.Len())
		for i, v := range w.Y {
			if !isFinite(v) {
				return nil, fmt.Errorf("calibration sample %d: %w", i, ErrNonFiniteSample)
			}
			cal.Residuals[i] = v
		}
		return cal, nil
	}

	gradient := trace.Differentiate(w.Y, w.X)
	if len(gradient) == 0 {
		return nil, fmt.Errorf("window of %d samples has no derivative: %w", w.Len(), ErrEmptyCalibrationWindow)
	}
	for i, g := range gradient {
		if !isFinite(g) {
			return nil, fmt.Errorf("calibration derivative %d: %w", i, ErrDegenerateAxis)
		}
	}

	smoothed := ewma.Smooth(gradient, cfg.TrendDecay)
	cal.Residuals = make([]float64, len(gradient))
	for i := range gradient {
		cal.Residuals[i] = gradient[i] - smoothed[i]
	}
	return cal, nil
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
