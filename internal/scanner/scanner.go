// Package scanner applies the transition detector to every row of a charge
// stability diagram and assembles the 2D transition mask.
//
// The noise calibration is computed once per diagram and shared read-only by
// all rows. Each row gets a fresh detector, so rows are independent and are
// processed concurrently by a bounded worker group. Results are collected
// over a channel and placed by row index, so the mask does not depend on the
// order in which rows complete.
package scanner

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/ironsheep/csd-transitions/internal/detector"
	"github.com/ironsheep/csd-transitions/internal/trace"
)

// Scanner turns diagrams into transition masks.
type Scanner struct {
	cfg     detector.Config
	workers int
	log     logrus.FieldLogger
	metrics *Metrics
	order   func(rows int) []int
}

// Option configures a Scanner.
type Option func(*Scanner)

// WithWorkers bounds the number of rows processed at once. Values below 1
// select GOMAXPROCS.
func WithWorkers(n int) Option {
	return func(s *Scanner) {
		s.workers = n
	}
}

// WithLogger sets the logger used for scan summaries.
func WithLogger(l logrus.FieldLogger) Option {
	return func(s *Scanner) {
		s.log = l
	}
}

// WithMetrics records scans on m.
func WithMetrics(m *Metrics) Option {
	return func(s *Scanner) {
		s.metrics = m
	}
}

// WithRowOrder sets the order in which rows are submitted to the worker
// group. order must return a permutation of [0, rows).
func WithRowOrder(order func(rows int) []int) Option {
	return func(s *Scanner) {
		s.order = order
	}
}

// New creates a scanner for cfg.
func New(cfg detector.Config, opts ...Option) *Scanner {
	s := &Scanner{
		cfg: cfg,
		log: logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.workers < 1 {
		s.workers = runtime.GOMAXPROCS(0)
	}
	if s.order == nil {
		s.order = sequential
	}
	return s
}

// Config returns the detector configuration of the scanner.
func (s *Scanner) Config() detector.Config {
	return s.cfg
}

// Scan calibrates on d and returns its transition mask.
//
// The first row failure cancels the remaining rows; the error names the row
// and no partial mask is returned.
func (s *Scanner) Scan(ctx context.Context, d *trace.Diagram) (*Mask, error) {
	cal, err := detector.CalibrateDiagram(d, s.cfg)
	if err != nil {
		s.record(nil, 0, err)
		return nil, fmt.Errorf("calibrate %q: %w", d.Name, err)
	}
	return s.ScanWithCalibration(ctx, d, cal)
}

type rowResult struct {
	row int
	res *detector.Result
}

// ScanWithCalibration runs every row of d against an existing calibration.
func (s *Scanner) ScanWithCalibration(ctx context.Context, d *trace.Diagram, cal *detector.Calibration) (*Mask, error) {
	start := time.Now()
	rows := d.Rows()

	results := make(chan rowResult, rows)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)

	for _, r := range s.order(rows) {
		r := r
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res, err := detector.Detect(d.Row(r), s.cfg, cal)
			if err != nil {
				return fmt.Errorf("row %d: %w", r, err)
			}
			results <- rowResult{row: r, res: res}
			return nil
		})
	}
	err := g.Wait()
	close(results)
	if err != nil {
		s.record(nil, 0, err)
		return nil, err
	}

	mask := newMask(rows, d.Cols())
	for rr := range results {
		mask.setRow(rr.row, rr.res)
	}

	elapsed := time.Since(start)
	s.record(mask, elapsed, nil)
	s.log.WithFields(logrus.Fields{
		"diagram":     d.Name,
		"rows":        rows,
		"cols":        mask.Cols,
		"calibration": cal.Row,
		"noise_rms":   cal.RMS(),
		"rising":      mask.Rising,
		"falling":     mask.Falling,
		"elapsed":     elapsed,
	}).Info("scanned diagram")
	return mask, nil
}

func (s *Scanner) record(mask *Mask, elapsed time.Duration, err error) {
	if s.metrics == nil {
		return
	}
	if err != nil {
		s.metrics.Scans.WithLabelValues("error").Inc()
		return
	}
	s.metrics.Scans.WithLabelValues("ok").Inc()
	s.metrics.RowsScanned.Add(float64(mask.Rows))
	s.metrics.Transitions.WithLabelValues(detector.Rising.String()).Add(float64(mask.Rising))
	s.metrics.Transitions.WithLabelValues(detector.Falling.String()).Add(float64(mask.Falling))
	s.metrics.ScanDuration.Observe(elapsed.Seconds())
}

func sequential(rows int) []int {
	order := make([]int, rows)
	for i := range order {
		order[i] = i
	}
	return order
}
