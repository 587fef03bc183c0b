package expiry

import (
	"github.com/prometheus/client_golang/prometheus"
)

const (
	KindDuel          = "duel"
	KindLaunchedEvent = "launched_event"
)

type Metrics struct {
	settled  *prometheus.CounterVec
	skipped  *prometheus.CounterVec
	failed   *prometheus.CounterVec
	duration prometheus.Histogram
}

// NewMetrics registers the scheduler collectors on reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		settled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "expiry_settled_total",
			Help: "Entities transitioned to a terminal state by the expiry scheduler.",
		}, []string{"kind"}),
		skipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "expiry_skipped_total",
			Help: "Due entities skipped because their lock was held or they were already settled.",
		}, []string{"kind"}),
		failed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "expiry_failed_total",
			Help: "Due entities whose settlement failed and will be retried next tick.",
		}, []string{"kind"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "expiry_tick_duration_seconds",
			Help:    "Wall time of one scheduler tick.",
			Buckets: prometheus.DefBuckets,
		}),
	}

	for _, c := range []prometheus.Collector{m.settled, m.skipped, m.failed, m.duration} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func ProvideMetrics() (*Metrics, error) {
	return NewMetrics(prometheus.DefaultRegisterer)
}
