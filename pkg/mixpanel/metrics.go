package mixpanel

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus collectors describing delivery. A nil
// *Metrics is valid and records nothing.
type Metrics struct {
	duration *prometheus.HistogramVec
	drops    *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them on reg. When reg is
// nil the collectors are created but not registered.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "pagermaid",
			Subsystem: "analytics",
			Name:      "dispatch_duration_seconds",
			Help:      "Wall-clock duration of ingestion requests.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"endpoint", "outcome"}),
		drops: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pagermaid",
			Subsystem: "analytics",
			Name:      "dropped_total",
			Help:      "Payloads dropped before an ingestion request was attempted.",
		}, []string{"reason"}),
	}

	if reg == nil {
		return m, nil
	}
	for _, c := range []prometheus.Collector{m.duration, m.drops} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) observe(endpoint, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.duration.WithLabelValues(endpoint, outcome).Observe(elapsed.Seconds())
}

func (m *Metrics) dropped(reason string) {
	if m == nil {
		return
	}
	m.drops.WithLabelValues(reason).Inc()
}
