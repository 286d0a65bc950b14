package toolchain

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Build outcomes recorded by Metrics.
const (
	OutcomeCompiled = "compiled"
	OutcomeCached   = "cached"
	OutcomeLoaded   = "loaded"
	OutcomeFailed   = "failed"
)

// Metrics records toolchain activity.
type Metrics struct {
	Builds   *prometheus.CounterVec
	Duration prometheus.Histogram
}

// NewMetrics creates the collectors and registers them with reg when it is not nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Builds: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "actgraph_builds_total",
				Help: "Module builds by outcome: compiled, cached, loaded or failed.",
			},
			[]string{"outcome"},
		),
		Duration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "actgraph_compile_duration_seconds",
				Help:    "Duration of go toolchain invocations.",
				Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
			},
		),
	}
	if reg != nil {
		reg.MustRegister(m.Builds, m.Duration)
	}
	return m
}

func (m *Metrics) record(outcome string) {
	if m == nil {
		return
	}
	m.Builds.WithLabelValues(outcome).Inc()
}

func (m *Metrics) observe(seconds float64) {
	if m == nil {
		return
	}
	m.Duration.Observe(seconds)
}
