package fault

import (
	"strconv"
	"time"

	"github.com/aretw0/faultline/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics records flag evaluations and injected faults.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	evaluations *prometheus.CounterVec
	injections  *prometheus.CounterVec
	lookups     *prometheus.HistogramVec
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		evaluations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "faultline_flag_evaluations_total",
				Help: "Total number of flag evaluations by resolved state",
			},
			[]string{"flag", "enabled"},
		),
		injections: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "faultline_faults_injected_total",
				Help: "Total number of faults injected into requests",
			},
			[]string{"flag", "kind"},
		),
		lookups: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "faultline_flag_lookup_duration_seconds",
				Help:    "Duration of flag state lookups",
				Buckets: prometheus.ExponentialBuckets(0.0005, 4, 8),
			},
			[]string{"flag"},
		),
	}
	reg.MustRegister(m.evaluations, m.injections, m.lookups)
	return m
}

func (m *Metrics) observeLookup(flag domain.FlagName, enabled bool, took time.Duration) {
	if m == nil {
		return
	}
	m.lookups.WithLabelValues(flag).Observe(took.Seconds())
	m.evaluations.WithLabelValues(flag, strconv.FormatBool(enabled)).Inc()
}

func (m *Metrics) observeInjection(flag domain.FlagName, kind Kind) {
	if m == nil {
		return
	}
	m.injections.WithLabelValues(flag, string(kind)).Inc()
}
