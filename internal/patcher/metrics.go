package patcher

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics are the Prometheus collectors of a planner. Batch runs are short
// lived, so the CLI dumps them as a node-exporter textfile instead of serving
// a scrape endpoint.
type Metrics struct {
	placements *prometheus.CounterVec
	duration   prometheus.Histogram
}

// NewMetrics creates the planner collectors and registers them on reg. A nil
// reg leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		placements: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "staticpatcher",
			Subsystem: "plan",
			Name:      "placements_total",
			Help:      "Placements evaluated by the planner, by outcome",
		}, []string{"outcome"}),
		duration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: "staticpatcher",
			Subsystem: "plan",
			Name:      "duration_seconds",
			Help:      "Wall time of a planning run",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60},
		}),
	}
}

func (m *Metrics) recordOutcome(o Outcome) {
	if m == nil {
		return
	}
	m.placements.WithLabelValues(string(o)).Inc()
}

func (m *Metrics) observeDuration(d time.Duration) {
	if m == nil {
		return
	}
	m.duration.Observe(d.Seconds())
}
