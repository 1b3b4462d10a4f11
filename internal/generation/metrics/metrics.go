package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	Runs             *prometheus.CounterVec
	ProviderDuration *prometheus.HistogramVec
	ProviderFailures *prometheus.CounterVec
	Unaccounted      *prometheus.CounterVec
}

// New registers the generation metrics with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Runs: f.NewCounterVec(prometheus.CounterOpts{
			Name: "hearth_generation_runs_total",
			Help: "Generation runs by provider and outcome",
		}, []string{"provider", "outcome"}),
		ProviderDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "hearth_generation_provider_duration_seconds",
			Help:    "Wall-clock duration of adapter calls",
			Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 20, 40, 60, 120},
		}, []string{"provider"}),
		ProviderFailures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "hearth_generation_provider_failures_total",
			Help: "Adapter failures by provider and normalized category",
		}, []string{"provider", "category"}),
		Unaccounted: f.NewCounterVec(prometheus.CounterOpts{
			Name: "hearth_usage_unaccounted_total",
			Help: "Generations whose usage event could not be written to the ledger",
		}, []string{"module"}),
	}
}

func (m *Metrics) ObserveRun(provider, outcome string, elapsed time.Duration) {
	m.Runs.WithLabelValues(provider, outcome).Inc()
	m.ProviderDuration.WithLabelValues(provider).Observe(elapsed.Seconds())
}

func (m *Metrics) IncProviderFailure(provider, category string) {
	m.ProviderFailures.WithLabelValues(provider, category).Inc()
}

func (m *Metrics) IncUnaccounted(module string) {
	m.Unaccounted.WithLabelValues(module).Inc()
}
