// Package store persists usage events. Writers receive an Appender, whose
// method set has no way to change or remove a stored event.
package store

import (
	"context"

	"hearth/internal/usage/models"
)

// Appender is the only write capability over the ledger.
type Appender interface {
	Append(ctx context.Context, event *models.UsageEvent) error
}

// Reader serves scoped history reads, newest first.
type Reader interface {
	History(ctx context.Context, scope models.Scope, q models.Query) ([]*models.UsageEvent, error)
}
