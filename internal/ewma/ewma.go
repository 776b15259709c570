// Package ewma implements the streaming statistics used by the transition
// detector: exponentially weighted moving averages, a running root mean
// square of residuals and a lagged bounded window for trend references.
//
// None of the types in this package are safe for concurrent use. Each
// detector owns its own instances.
package ewma

// Tracker is an exponentially weighted moving average:
//
//	s_t = decay*x_t + (1-decay)*s_{t-1}
//
// The first observation seeds the average unchanged.
type Tracker struct {
	decay   float64
	value   float64
	samples int
}

// NewTracker returns an unseeded tracker. decay must lie in (0, 1).
func NewTracker(decay float64) *Tracker {
	return &Tracker{decay: decay}
}

// Seed sets the current average without smoothing. Seeding resets the
// sample count to one.
func (t *Tracker) Seed(v float64) {
	t.value = v
	t.samples = 1
}

// Update folds x into the average and returns the new value. On an unseeded
// tracker x becomes the seed.
func (t *Tracker) Update(x float64) float64 {
	if t.samples == 0 {
		t.Seed(x)
		return t.value
	}
	t.value = t.decay*x + (1-t.decay)*t.value
	t.samples++
	return t.value
}

// Value returns the current average (zero before seeding).
func (t *Tracker) Value() float64 {
	return t.value
}

// Samples returns the number of observations folded in, seed included.
func (t *Tracker) Samples() int {
	return t.samples
}

// Decay returns the smoothing constant.
func (t *Tracker) Decay() float64 {
	return t.decay
}

// Smooth returns the lagged EWMA of xs used for noise calibration: the
// first output is xs[0] and output k (k >= 1) folds in xs[k-1], so every
// output only depends on strictly earlier samples.
func Smooth(xs []float64, decay float64) []float64 {
	if len(xs) == 0 {
		return nil
	}
	out := make([]float64, len(xs))
	t := NewTracker(decay)
	t.Seed(xs[0])
	out[0] = t.Value()
	for k := 1; k < len(xs); k++ {
		out[k] = t.Update(xs[k-1])
	}
	return out
}
