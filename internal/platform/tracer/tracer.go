// Package tracer is a small tracing abstraction over OpenTelemetry so that
// generation and storage code can open spans without importing otel directly.
package tracer

import (
	"context"
	"time"
)

// Span is an active trace span. End must be called exactly once.
type Span interface {
	End(err error)
	SetAttributes(attrs ...Attribute)
	AddEvent(name string, attrs ...Attribute)
}

// Tracer creates spans. Implementations must be safe for concurrent use.
type Tracer interface {
	Start(ctx context.Context, name string, attrs ...Attribute) (context.Context, Span)
}

type Attribute struct {
	Key   string
	Value any
}

func String(key, value string) Attribute {
	return Attribute{Key: key, Value: value}
}

func Bool(key string, value bool) Attribute {
	return Attribute{Key: key, Value: value}
}

func Int64(key string, value int64) Attribute {
	return Attribute{Key: key, Value: value}
}

// Duration records value in milliseconds.
func Duration(key string, value time.Duration) Attribute {
	return Attribute{Key: key, Value: value.Milliseconds()}
}

// Span names.
const (
	SpanGenerationRun  = "generation.run"
	SpanProviderCall   = "generation.provider.call"
	SpanLedgerAppend   = "usage.ledger.append"
	SpanRegistryMutate = "modules.registry.mutate"
	SpanRegistryLookup = "modules.registry.lookup"
)

// Attribute keys.
const (
	AttrProvider    = "provider"
	AttrModuleID    = "module_id"
	AttrTaskType    = "task_type"
	AttrAction      = "action"
	AttrTokensTotal = "tokens.total"
	AttrUnits       = "units"
	AttrOK          = "ok"
	AttrCacheHit    = "cache.hit"
)

// EventLedgerFailed marks a generation whose usage could not be recorded.
const EventLedgerFailed = "usage.unaccounted"
