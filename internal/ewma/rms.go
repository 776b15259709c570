package ewma

import "math"

// RunningRMS accumulates the root mean square of a growing residual history.
//
// It replaces recomputing sqrt(mean(h^2)) over the full history at every
// step: squares are summed in insertion order, so the result matches the
// full recomputation over the same sequence.
type RunningRMS struct {
	sumSquares float64
	n          int
}

// NewRunningRMS returns an accumulator seeded with history.
func NewRunningRMS(history []float64) *RunningRMS {
	r := &RunningRMS{}
	for _, v := range history {
		r.Add(v)
	}
	return r
}

// Add appends one residual to the history.
func (r *RunningRMS) Add(v float64) {
	r.sumSquares += v * v
	r.n++
}

// Count returns the history length.
func (r *RunningRMS) Count() int {
	return r.n
}

// Value returns the root mean square of the history, or 0 when it is empty.
func (r *RunningRMS) Value() float64 {
	if r.n == 0 {
		return 0
	}
	return math.Sqrt(r.sumSquares / float64(r.n))
}
