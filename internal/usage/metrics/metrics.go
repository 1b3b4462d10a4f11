package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	EventsAppended *prometheus.CounterVec
	AppendFailures prometheus.Counter
	UnitsRecorded  *prometheus.CounterVec
	TokensRecorded *prometheus.CounterVec
}

// New registers the ledger metrics with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		EventsAppended: f.NewCounterVec(prometheus.CounterOpts{
			Name: "hearth_usage_events_appended_total",
			Help: "Usage events written to the ledger",
		}, []string{"module"}),
		AppendFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "hearth_usage_append_failures_total",
			Help: "Usage events the ledger failed to persist",
		}),
		UnitsRecorded: f.NewCounterVec(prometheus.CounterOpts{
			Name: "hearth_usage_units_total",
			Help: "Metered units recorded in the ledger",
		}, []string{"module"}),
		TokensRecorded: f.NewCounterVec(prometheus.CounterOpts{
			Name: "hearth_usage_tokens_total",
			Help: "Tokens recorded in the ledger",
		}, []string{"module", "direction"}),
	}
}

func (m *Metrics) ObserveAppend(module string, tokensIn, tokensOut, units int64) {
	if module == "" {
		module = "none"
	}
	m.EventsAppended.WithLabelValues(module).Inc()
	m.UnitsRecorded.WithLabelValues(module).Add(float64(units))
	m.TokensRecorded.WithLabelValues(module, "input").Add(float64(tokensIn))
	m.TokensRecorded.WithLabelValues(module, "output").Add(float64(tokensOut))
}

func (m *Metrics) IncAppendFailure() {
	m.AppendFailures.Inc()
}
