package ewma

import "github.com/gammazero/deque"

// LagWindow keeps the trend reference window of a filtered history.
//
// Values are pushed as they are produced. The lag most recent values are
// held back; of the remaining ones only the last size-lag are retained. With
// size 30 and lag 2 the window covers history[:-2] while the history holds at
// most 30 values and history[-30:-2] afterwards.
type LagWindow struct {
	lag      int
	capacity int
	pushed   int
	pending  *deque.Deque[float64]
	window   *deque.Deque[float64]
}

// NewLagWindow returns a window over the last size values excluding the lag
// most recent ones.
func NewLagWindow(size, lag int) *LagWindow {
	if lag < 0 {
		lag = 0
	}
	capacity := size - lag
	if capacity < 1 {
		capacity = 1
	}
	return &LagWindow{
		lag:      lag,
		capacity: capacity,
		pending:  deque.New[float64](),
		window:   deque.New[float64](),
	}
}

// Push appends the newest history value.
func (w *LagWindow) Push(v float64) {
	w.pushed++
	w.pending.PushBack(v)
	if w.pending.Len() <= w.lag {
		return
	}
	w.window.PushBack(w.pending.PopFront())
	if w.window.Len() > w.capacity {
		w.window.PopFront()
	}
}

// Pushed returns the total number of values pushed.
func (w *LagWindow) Pushed() int {
	return w.pushed
}

// Len returns the number of values currently averaged by Mean.
func (w *LagWindow) Len() int {
	return w.window.Len()
}

// Mean returns the arithmetic mean of the window, oldest value first.
// ok is false while the window is empty.
func (w *LagWindow) Mean() (mean float64, ok bool) {
	n := w.window.Len()
	if n == 0 {
		return 0, false
	}
	var sum float64
	for i := 0; i < n; i++ {
		sum += w.window.At(i)
	}
	return sum / float64(n), true
}
