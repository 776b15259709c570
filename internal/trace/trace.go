package trace

import (
	"errors"
	"fmt"
)

// ErrShapeMismatch is returned when a row length differs from its axis length.
var ErrShapeMismatch = errors.New("shape mismatch")

// Trace is one ordered sequence of (coordinate, value) samples.
//
// X is assumed strictly increasing. It is not re-validated here; see
// Differentiate for what happens when two adjacent coordinates are equal.
type Trace struct {
	X []float64 `json:"x"`
	Y []float64 `json:"y"`
}

// Len returns the number of samples in the trace.
func (t Trace) Len() int {
	return len(t.Y)
}

// Validate checks that the coordinate and value sequences have equal length.
func (t Trace) Validate() error {
	if len(t.X) != len(t.Y) {
		return fmt.Errorf("trace has %d values but %d coordinates: %w", len(t.Y), len(t.X), ErrShapeMismatch)
	}
	return nil
}

// Window returns the sub-trace [from, to). Bounds are clamped to the trace.
// The returned trace shares storage with t.
func (t Trace) Window(from, to int) Trace {
	from = clamp(from, 0, len(t.Y))
	to = clamp(to, from, len(t.Y))
	return Trace{X: t.X[from:to], Y: t.Y[from:to]}
}

// Diagram is a 2D charge stability diagram: Values[r][c] measured at X[c].
type Diagram struct {
	// Name identifies the diagram, usually the source file base name.
	Name string `json:"name,omitempty"`

	// X holds the column (horizontal) coordinates shared by every row.
	X []float64 `json:"x"`

	// Values holds the row-major measurements.
	Values [][]float64 `json:"values"`
}

// Rows returns the number of rows (vertical extent).
func (d *Diagram) Rows() int {
	return len(d.Values)
}

// Cols returns the number of columns (horizontal extent).
func (d *Diagram) Cols() int {
	return len(d.X)
}

// Row returns row r as a Trace sharing the diagram's column axis.
func (d *Diagram) Row(r int) Trace {
	return Trace{X: d.X, Y: d.Values[r]}
}

// Validate checks that every row has one value per column coordinate.
func (d *Diagram) Validate() error {
	for r, row := range d.Values {
		if len(row) != len(d.X) {
			return fmt.Errorf("row %d has %d values but axis has %d: %w", r, len(row), len(d.X), ErrShapeMismatch)
		}
	}
	return nil
}

// Differentiate returns the forward finite-difference derivative of y
// against x:
//
//	d[i] = (y[i+1] - y[i]) / (x[i+1] - x[i])
//
// The result has length n-1, or is nil when fewer than two samples exist.
//
// Precondition: adjacent coordinates differ. Equal neighbours produce NaN or
// ±Inf at the corresponding index; callers that need a guarantee must check
// the output with math.IsNaN / math.IsInf.
func Differentiate(y, x []float64) []float64 {
	n := len(y)
	if len(x) < n {
		n = len(x)
	}
	if n < 2 {
		return nil
	}
	d := make([]float64, n-1)
	for i := 1; i < n; i++ {
		d[i-1] = (y[i] - y[i-1]) / (x[i] - x[i-1])
	}
	return d
}

func clamp(val, min, max int) int {
	if val < min {
		return min
	}
	if val > max {
		return max
	}
	return val
}
