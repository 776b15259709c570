// Package synth builds reproducible synthetic traces and diagrams: noisy
// sloped backgrounds with injected steps. The noise source is a plain linear
// congruential generator so fixtures are bit-identical across platforms.
package synth

import "github.com/ironsheep/csd-transitions/internal/trace"

// Noise is a deterministic uniform noise source in [0, 1).
type Noise struct {
	state uint64
}

// NewNoise returns a generator started at seed.
func NewNoise(seed uint64) *Noise {
	return &Noise{state: seed % 2147483648}
}

// Next returns the next value in [0, 1).
func (n *Noise) Next() float64 {
	n.state = (n.state*1103515245 + 12345) % 2147483648
	return float64(n.state) / 2147483648.0
}

// Axis returns the coordinates 0, 1, ..., n-1.
func Axis(n int) []float64 {
	x := make([]float64, n)
	for i := range x {
		x[i] = float64(i)
	}
	return x
}

// Step describes a sloped noisy background with a step of Height starting
// at sample At. Amplitude is the peak-to-peak width of the uniform noise.
type Step struct {
	N         int
	At        int
	Height    float64
	Slope     float64
	Amplitude float64
	Seed      uint64
}

// DefaultStep is a 101-sample trace with a +10 step at sample 50 over a
// -0.1/sample background.
func DefaultStep() Step {
	return Step{N: 101, At: 50, Height: 10, Slope: -0.1, Amplitude: 1.5, Seed: 42}
}

// Values returns the step signal.
func (s Step) Values() []float64 {
	g := NewNoise(s.Seed)
	y := make([]float64, s.N)
	for i := range y {
		v := s.Slope*float64(i) + (g.Next()-0.5)*s.Amplitude
		if i >= s.At {
			v += s.Height
		}
		y[i] = v
	}
	return y
}

// Trace returns the step signal on a unit axis.
func (s Step) Trace() trace.Trace {
	return trace.Trace{X: Axis(s.N), Y: s.Values()}
}

// Diagonal returns a diagram whose row r carries a step at column offset+r,
// so the transitions form one diagonal line. Row r uses noise seed r+1.
func Diagonal(rows, cols, offset int) *trace.Diagram {
	d := &trace.Diagram{
		Name:   "diagonal",
		X:      Axis(cols),
		Values: make([][]float64, rows),
	}
	for r := 0; r < rows; r++ {
		s := DefaultStep()
		s.N = cols
		s.At = offset + r
		s.Seed = uint64(r + 1)
		d.Values[r] = s.Values()
	}
	return d
}

// Constant returns a flat trace of n samples at value v.
func Constant(n int, v float64) trace.Trace {
	y := make([]float64, n)
	for i := range y {
		y[i] = v
	}
	return trace.Trace{X: Axis(n), Y: y}
}

// Negate returns a copy of t with every value sign-flipped.
func Negate(t trace.Trace) trace.Trace {
	y := make([]float64, len(t.Y))
	for i, v := range t.Y {
		y[i] = -v
	}
	return trace.Trace{X: t.X, Y: y}
}
