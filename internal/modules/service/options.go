package service

import (
	"log/slog"
	"time"

	"hearth/internal/modules/metrics"
	"hearth/internal/platform/tracer"
	txcontext "hearth/pkg/platform/tx"
)

type registryConfig struct {
	logger  *slog.Logger
	tx      txcontext.Runner
	now     func() time.Time
	metrics *metrics.Metrics
	tracer  tracer.Tracer
	cache   EnabledCache
}

type Option func(c *registryConfig)

func WithLogger(logger *slog.Logger) Option {
	return func(c *registryConfig) {
		c.logger = logger
	}
}

// WithStoreTx sets the transactional boundary for state transitions.
func WithStoreTx(tx txcontext.Runner) Option {
	return func(c *registryConfig) {
		c.tx = tx
	}
}

func WithClock(now func() time.Time) Option {
	return func(c *registryConfig) {
		c.now = now
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *registryConfig) {
		c.metrics = m
	}
}

func WithTracer(t tracer.Tracer) Option {
	return func(c *registryConfig) {
		c.tracer = t
	}
}

// WithEnabledCache puts a read-through cache in front of IsEnabled.
func WithEnabledCache(cache EnabledCache) Option {
	return func(c *registryConfig) {
		c.cache = cache
	}
}
