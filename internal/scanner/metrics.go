package scanner

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics instruments diagram scans.
type Metrics struct {
	Scans        *prometheus.CounterVec
	RowsScanned  prometheus.Counter
	Transitions  *prometheus.CounterVec
	ScanDuration prometheus.Histogram
}

// NewMetrics creates the scan metrics and registers them on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Scans: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "csd",
			Subsystem: "scanner",
			Name:      "scans_total",
			Help:      "Diagram scans by outcome.",
		}, []string{"outcome"}),
		RowsScanned: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "csd",
			Subsystem: "scanner",
			Name:      "rows_total",
			Help:      "Rows run through the transition detector.",
		}),
		Transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "csd",
			Subsystem: "scanner",
			Name:      "transitions_total",
			Help:      "Confirmed transitions by direction.",
		}, []string{"direction"}),
		ScanDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "csd",
			Subsystem: "scanner",
			Name:      "scan_duration_seconds",
			Help:      "Wall time of a full diagram scan.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 8),
		}),
	}
	reg.MustRegister(m.Scans, m.RowsScanned, m.Transitions, m.ScanDuration)
	return m
}
