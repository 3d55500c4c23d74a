// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks the overdue scanner.
type Metrics struct {
	// ScanRunsTotal counts scans by result: ok, failed, skipped_locked.
	ScanRunsTotal *prometheus.CounterVec

	// ScanDuration is the wall time of one completed scan.
	ScanDuration prometheus.Histogram

	// EscalationsTotal counts per-entry outcomes of each scan.
	EscalationsTotal *prometheus.CounterVec

	// OpenEntriesScanned is the number of active entries seen by the last scan.
	OpenEntriesScanned prometheus.Gauge
}

// New registers the collectors on reg. Pass prometheus.DefaultRegisterer in
// production and a fresh registry in tests.
func New(reg prometheus.Registerer, namespace string) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		ScanRunsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "overdue_scan_runs_total",
				Help:      "Total number of overdue scans by result",
			},
			[]string{"result"},
		),

		ScanDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "overdue_scan_duration_seconds",
				Help:      "Time to complete one overdue scan",
				Buckets:   []float64{.05, .1, .5, 1, 2, 5, 10, 30},
			},
		),

		EscalationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "escalations_total",
				Help:      "Total number of escalation outcomes by kind",
			},
			[]string{"outcome"},
		),

		OpenEntriesScanned: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "open_entries_scanned",
				Help:      "Active entries seen by the last overdue scan",
			},
		),
	}
}

// IncRun increments the run counter for a result.
func (m *Metrics) IncRun(result string) {
	m.ScanRunsTotal.WithLabelValues(result).Inc()
}

// ObserveScan records duration and the per-outcome counts of one scan.
func (m *Metrics) ObserveScan(d time.Duration, scanned int, outcomes map[string]int) {
	m.ScanDuration.Observe(d.Seconds())
	m.OpenEntriesScanned.Set(float64(scanned))
	for outcome, n := range outcomes {
		if n > 0 {
			m.EscalationsTotal.WithLabelValues(outcome).Add(float64(n))
		}
	}
}
