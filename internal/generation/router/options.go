package router

import (
	"log/slog"
	"time"

	"hearth/internal/generation/metrics"
	"hearth/internal/platform/tracer"
)

type Option func(*Router)

func WithLogger(logger *slog.Logger) Option {
	return func(r *Router) { r.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Router) { r.metrics = m }
}

func WithTracer(t tracer.Tracer) Option {
	return func(r *Router) { r.tracer = t }
}

// WithCost replaces the default of one unit per started 1000 tokens.
func WithCost(cost CostFunc) Option {
	return func(r *Router) {
		if cost != nil {
			r.cost = cost
		}
	}
}

func WithUnaccountedSink(sink UnaccountedSink) Option {
	return func(r *Router) { r.unaccounted = sink }
}

// WithClock overrides the time source used to measure adapter duration.
func WithClock(now func() time.Time) Option {
	return func(r *Router) { r.now = now }
}
