package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	Transitions   *prometheus.CounterVec
	Rejections    *prometheus.CounterVec
	CacheRequests *prometheus.CounterVec
}

// New registers the module registry metrics with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Transitions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "hearth_module_transitions_total",
			Help: "Installation state changes by transition",
		}, []string{"transition"}),
		Rejections: f.NewCounterVec(prometheus.CounterOpts{
			Name: "hearth_module_rejections_total",
			Help: "Registry mutations refused by the installation state machine",
		}, []string{"operation"}),
		CacheRequests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "hearth_module_cache_requests_total",
			Help: "Enabled-module cache lookups by result",
		}, []string{"result"}),
	}
}

func (m *Metrics) IncTransition(transition string) {
	m.Transitions.WithLabelValues(transition).Inc()
}

func (m *Metrics) IncRejection(operation string) {
	m.Rejections.WithLabelValues(operation).Inc()
}

func (m *Metrics) IncCache(result string) {
	m.CacheRequests.WithLabelValues(result).Inc()
}
