package detector

import (
	"fmt"

	"github.com/ironsheep/csd-transitions/internal/ewma"
	"github.com/ironsheep/csd-transitions/internal/trace"
)

// Direction is the sign of a threshold crossing or of a trend change.
type Direction int8

const (
	None    Direction = 0
	Rising  Direction = 1
	Falling Direction = -1
)

func (d Direction) String() string {
	switch d {
	case Rising:
		return "rising"
	case Falling:
		return "falling"
	default:
		return "none"
	}
}

func sign(v float64) Direction {
	switch {
	case v > 0:
		return Rising
	case v < 0:
		return Falling
	default:
		return None
	}
}

// MarshalText renders the direction by name.
func (d Direction) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText parses a direction name as produced by MarshalText.
func (d *Direction) UnmarshalText(b []byte) error {
	switch string(b) {
	case "rising":
		*d = Rising
	case "falling":
		*d = Falling
	case "none":
		*d = None
	default:
		return fmt.Errorf("unknown direction %q", b)
	}
	return nil
}

// Step reports everything the detector computed for one sample. Fields past
// Index are zero until the corresponding stage has enough history.
type Step struct {
	Index int `json:"index"`

	// Working is the derivative against the previous sample, or the raw
	// value in transconductance mode.
	Working float64 `json:"working"`

	// Filtered is the EWMA of the working values.
	Filtered float64 `json:"filtered"`

	// Residual is Working minus the previous Filtered value.
	Residual float64 `json:"residual"`

	// Std is the noise RMS the decision was sized with.
	Std float64 `json:"std"`

	// Threshold is Sigma*Std; the lower threshold is its negation.
	Threshold float64 `json:"threshold"`

	// TrendRef is the lagged filtered mean, set only when a threshold was crossed.
	TrendRef float64 `json:"trend_ref"`

	// Trend is the direction of the raw signal EWMA at this sample. It is
	// informational and never gates a decision.
	Trend Direction `json:"trend"`

	// Decided is true once enough thresholds exist for a decision.
	Decided bool `json:"decided"`

	// Crossing is the threshold crossed by Residual, if any.
	Crossing Direction `json:"crossing"`

	// Transition is the confirmed transition direction, None when the
	// sample was judged to be noise.
	Transition Direction `json:"transition"`
}

// Confirmed reports whether the sample is a confirmed transition.
func (s Step) Confirmed() bool {
	return s.Transition != None
}

// Detector is the streaming state machine for one trace.
//
// Feed samples in coordinate order with Push. A Detector must not be reused
// for another trace; build a new one per trace.
type Detector struct {
	cfg     Config
	warmup  int
	samples int

	prevX, prevY float64

	trend      *ewma.Tracker
	filtered   *ewma.Tracker
	noise      *ewma.RunningRMS
	lagged     *ewma.LagWindow
	thresholds int
}

// New returns a detector seeded with the calibration noise history.
func New(cfg Config, cal *Calibration) *Detector {
	var seed []float64
	if cal != nil {
		seed = cal.NoiseSeed()
	}
	return &Detector{
		cfg:      cfg,
		warmup:   cfg.warmup(),
		trend:    ewma.NewTracker(cfg.TrendDecay),
		filtered: ewma.NewTracker(cfg.FilterDecay),
		noise:    ewma.NewRunningRMS(seed),
		lagged:   ewma.NewLagWindow(cfg.TrendWindow, trendLag),
	}
}

// NoiseCount returns the current length of the noise history.
func (d *Detector) NoiseCount() int {
	return d.noise.Count()
}

// Push consumes the next sample (coordinate x, value y) and returns the
// decision for it.
//
// Errors are not recoverable: the detector state is undefined afterwards.
func (d *Detector) Push(x, y float64) (Step, error) {
	i := d.samples
	d.samples++
	step := Step{Index: i}

	if !isFinite(y) {
		return step, fmt.Errorf("sample %d: %w", i, ErrNonFiniteSample)
	}

	prevX, prevY := d.prevX, d.prevY
	d.prevX, d.prevY = x, y

	if i == 0 {
		d.trend.Seed(y)
	}
	if i < d.warmup {
		return step, nil
	}

	before := d.trend.Value()
	step.Trend = sign(d.trend.Update(prevY) - before)

	w := y
	if !d.cfg.Transconductance {
		w = (y - prevY) / (x - prevX)
		if !isFinite(w) {
			return step, fmt.Errorf("sample %d: derivative between x=%g and x=%g: %w", i, prevX, x, ErrDegenerateAxis)
		}
	}
	step.Working = w

	first := d.filtered.Samples() == 0
	previous := d.filtered.Value()
	step.Filtered = d.filtered.Update(w)
	d.lagged.Push(step.Filtered)
	if first {
		return step, nil
	}

	r := w - previous
	std := d.noise.Value()
	d.thresholds++
	step.Residual = r
	step.Std = std
	step.Threshold = d.cfg.Sigma * std

	if d.thresholds >= minThresholds {
		step.Decided = true
		switch {
		case r > step.Threshold:
			step.Crossing = Rising
			if ref, ok := d.lagged.Mean(); ok {
				step.TrendRef = ref
				if w > 0 && ref < 0 {
					step.Transition = Rising
				}
			}
		case r < -step.Threshold:
			step.Crossing = Falling
			if ref, ok := d.lagged.Mean(); ok {
				step.TrendRef = ref
				if w < 0 && ref > 0 {
					step.Transition = Falling
				}
			}
		}
	}

	if step.Transition == None {
		d.noise.Add(r)
	}
	return step, nil
}

// Result is the outcome of running a detector over a whole trace.
type Result struct {
	// Transitions has one entry per input sample; true marks a confirmed
	// transition. The first LeadIn entries are always false.
	Transitions []bool `json:"transitions"`

	// Directions holds the confirmed direction per sample, None elsewhere.
	Directions []Direction `json:"directions"`

	// Rising and Falling count the confirmed transitions by direction.
	Rising  int `json:"rising"`
	Falling int `json:"falling"`
}

// Count returns the number of confirmed transitions.
func (r *Result) Count() int {
	return r.Rising + r.Falling
}

// Indices returns the sample indices of the confirmed transitions.
func (r *Result) Indices() []int {
	idx := make([]int, 0, r.Count())
	for i, ok := range r.Transitions {
		if ok {
			idx = append(idx, i)
		}
	}
	return idx
}

func newResult(n int) *Result {
	return &Result{
		Transitions: make([]bool, n),
		Directions:  make([]Direction, n),
	}
}

// Detect runs a fresh detector over t using an existing calibration.
//
// Traces shorter than LeadIn yield an all-false result. A nil calibration is
// rejected with ErrEmptyCalibrationWindow.
func Detect(t trace.Trace, cfg Config, cal *Calibration) (*Result, error) {
	if len(t.X) != len(t.Y) {
		return nil, fmt.Errorf("%d coordinates for %d values: %w", len(t.X), len(t.Y), ErrInvalidTraceLength)
	}
	res := newResult(t.Len())
	if t.Len() < LeadIn {
		return res, nil
	}
	if cal == nil {
		return nil, fmt.Errorf("no calibration: %w", ErrEmptyCalibrationWindow)
	}

	det := New(cfg, cal)
	for i := range t.Y {
		step, err := det.Push(t.X[i], t.Y[i])
		if err != nil {
			return nil, err
		}
		if i < LeadIn || !step.Confirmed() {
			continue
		}
		res.Transitions[i] = true
		res.Directions[i] = step.Transition
		if step.Transition == Rising {
			res.Rising++
		} else {
			res.Falling++
		}
	}
	return res, nil
}

// Steps runs a fresh detector over t and returns the diagnostics of every
// sample. It fails under the same conditions as Detect.
func Steps(t trace.Trace, cfg Config, cal *Calibration) ([]Step, error) {
	if len(t.X) != len(t.Y) {
		return nil, fmt.Errorf("%d coordinates for %d values: %w", len(t.X), len(t.Y), ErrInvalidTraceLength)
	}
	if cal == nil {
		return nil, fmt.Errorf("no calibration: %w", ErrEmptyCalibrationWindow)
	}

	det := New(cfg, cal)
	steps := make([]Step, 0, t.Len())
	for i := range t.Y {
		step, err := det.Push(t.X[i], t.Y[i])
		if err != nil {
			return nil, err
		}
		steps = append(steps, step)
	}
	return steps, nil
}

// DetectTrace calibrates on the first part of t itself and runs Detect.
func DetectTrace(t trace.Trace, cfg Config) (*Result, error) {
	if len(t.X) != len(t.Y) {
		return nil, fmt.Errorf("%d coordinates for %d values: %w", len(t.X), len(t.Y), ErrInvalidTraceLength)
	}
	if t.Len() < LeadIn {
		return newResult(t.Len()), nil
	}
	cal, err := CalibrateTrace(t, cfg)
	if err != nil {
		return nil, err
	}
	return Detect(t, cfg, cal)
}
