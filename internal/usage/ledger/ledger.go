// Package ledger is the single write path for metered usage and the scoped
// read path for usage history.
package ledger

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"hearth/internal/platform/tracer"
	"hearth/internal/sentinel"
	"hearth/internal/usage/metrics"
	"hearth/internal/usage/models"
	"hearth/internal/usage/store"
	id "hearth/pkg/domain"
	dErrors "hearth/pkg/domain-errors"
)

type Ledger struct {
	appender store.Appender
	reader   store.Reader
	logger   *slog.Logger
	metrics  *metrics.Metrics
	tracer   tracer.Tracer
	now      func() time.Time
	newID    func() id.UsageEventID
}

type Option func(*Ledger)

func WithLogger(logger *slog.Logger) Option {
	return func(l *Ledger) { l.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(l *Ledger) { l.metrics = m }
}

func WithTracer(t tracer.Tracer) Option {
	return func(l *Ledger) { l.tracer = t }
}

func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

// New builds a ledger over an append-only capability and a reader.
func New(appender store.Appender, reader store.Reader, opts ...Option) *Ledger {
	l := &Ledger{
		appender: appender,
		reader:   reader,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		tracer:   tracer.NewNoop(),
		now:      time.Now,
		newID:    id.NewUsageEventID,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Append validates entry, stamps it and persists it. Validation failures
// happen before any storage write.
func (l *Ledger) Append(ctx context.Context, entry models.Entry) (*models.UsageEvent, error) {
	event, err := models.NewUsageEvent(l.newID(), entry, l.now().UTC())
	if err != nil {
		return nil, err
	}

	ctx, span := l.tracer.Start(ctx, tracer.SpanLedgerAppend,
		tracer.String(tracer.AttrAction, event.Action),
		tracer.String(tracer.AttrModuleID, event.ModuleID.String()),
	)
	err = l.appender.Append(ctx, event)
	span.End(err)
	if err != nil {
		if l.metrics != nil {
			l.metrics.IncAppendFailure()
		}
		if errors.Is(err, sentinel.ErrAlreadyUsed) {
			return nil, dErrors.Wrap(err, dErrors.CodeConflict, "usage event already recorded")
		}
		return nil, dErrors.Wrap(err, dErrors.CodePersistence, "failed to append usage event")
	}

	if l.metrics != nil {
		l.metrics.ObserveAppend(event.ModuleID.String(), event.TokensInput, event.TokensOutput, event.Units)
	}
	l.logger.DebugContext(ctx, "usage event appended",
		"event_id", event.ID,
		"action", event.Action,
		"units", event.Units,
	)
	return event, nil
}

// History returns events within scope, newest first.
func (l *Ledger) History(ctx context.Context, scope models.Scope, q models.Query) ([]*models.UsageEvent, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}
	q, err := q.Normalize()
	if err != nil {
		return nil, err
	}
	events, err := l.reader.History(ctx, scope, q)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodePersistence, "failed to read usage history")
	}
	return events, nil
}
