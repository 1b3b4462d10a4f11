package service

import (
	"log/slog"
	"time"

	txcontext "hearth/pkg/platform/tx"
)

// serviceConfig holds optional dependencies for services.
type serviceConfig struct {
	logger *slog.Logger
	tx     txcontext.Runner
	now    func() time.Time
}

// Option configures a service.
type Option func(c *serviceConfig)

func WithLogger(logger *slog.Logger) Option {
	return func(c *serviceConfig) {
		c.logger = logger
	}
}

// WithStoreTx sets the transactional boundary, e.g. a PostgreSQL transaction runner.
func WithStoreTx(tx txcontext.Runner) Option {
	return func(c *serviceConfig) {
		c.tx = tx
	}
}

// WithClock overrides the time source, used by tests.
func WithClock(now func() time.Time) Option {
	return func(c *serviceConfig) {
		c.now = now
	}
}
