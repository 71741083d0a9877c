package oem

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics exposes Prometheus counters and gauges for the hardware
// programming step: how many firings and triggers the last sequence
// programmed, and how many times programming failed with each error
// kind, so an operator dashboard can track sequencer health alongside
// acquisition throughput.
type Metrics struct {
	Firings         *prometheus.GaugeVec
	Triggers        prometheus.Gauge
	ProgramErrors   *prometheus.CounterVec
	ProgramDuration prometheus.Histogram
}

// NewMetrics registers the sequencer's Prometheus collectors against reg.
// Pass prometheus.NewRegistry() in tests to avoid colliding with the
// default global registry across parallel test runs.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Firings: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "oemseq",
			Subsystem: "oem",
			Name:      "firings",
			Help:      "Number of firings programmed on the last upload, per OEM.",
		}, []string{"oem"}),
		Triggers: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "oemseq",
			Subsystem: "oem",
			Name:      "triggers",
			Help:      "Length of the trigger table programmed on the last upload.",
		}),
		ProgramErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "oemseq",
			Subsystem: "oem",
			Name:      "program_errors_total",
			Help:      "Count of hardware-programming failures by error kind.",
		}, []string{"kind"}),
		ProgramDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "oemseq",
			Subsystem: "oem",
			Name:      "program_duration_seconds",
			Help:      "Wall time spent lowering a Plan into hardware commands.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
}
