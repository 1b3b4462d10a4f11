// Package router runs generation tasks against a provider adapter and records
// exactly one usage event per attempted generation.
package router

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"runtime/debug"
	"strings"
	"time"

	"hearth/internal/generation/metrics"
	"hearth/internal/generation/providers"
	"hearth/internal/generation/schema"
	"hearth/internal/platform/tracer"
	"hearth/internal/session"
	usagemodels "hearth/internal/usage/models"
	id "hearth/pkg/domain"
	dErrors "hearth/pkg/domain-errors"
)

// taskTypePattern is domain.task.
var taskTypePattern = regexp.MustCompile(`^[a-z0-9_-]+\.[a-z0-9_-]+$`)

// ledgerWriteTimeout bounds the usage write, which outlives caller cancellation.
const ledgerWriteTimeout = 5 * time.Second

// Task is one structured-output generation request.
type Task struct {
	TenantID     id.TenantRef
	UserID       id.UserID
	ModuleID     id.ModuleID
	TaskType     string
	SystemPrompt string
	UserPrompt   string
	Schema       *schema.Schema
	// Provider overrides the configured default when set.
	Provider providers.Provider
	Options  providers.ModelOptions
	Metadata id.Settings
}

// NewTask fills the caller identity from sess.
func NewTask(sess *session.Context, module id.ModuleID, taskType string) (Task, error) {
	if sess == nil || sess.UserID.IsNil() {
		return Task{}, session.ErrUnauthenticated
	}
	return Task{
		TenantID: sess.TenantRef(),
		UserID:   sess.UserID,
		ModuleID: module,
		TaskType: taskType,
	}, nil
}

// Ledger is the usage sink the router writes to.
type Ledger interface {
	Append(ctx context.Context, entry usagemodels.Entry) (*usagemodels.UsageEvent, error)
}

// UnaccountedSink receives usage that could not be written to the ledger so
// the host can re-queue it.
type UnaccountedSink func(ctx context.Context, entry usagemodels.Entry, err error)

type Router struct {
	adapters        providers.Set
	defaultProvider providers.Provider
	ledger          Ledger
	cost            CostFunc
	unaccounted     UnaccountedSink
	logger          *slog.Logger
	metrics         *metrics.Metrics
	tracer          tracer.Tracer
	now             func() time.Time
}

func New(adapters providers.Set, defaultProvider providers.Provider, ledger Ledger, opts ...Option) (*Router, error) {
	if ledger == nil {
		return nil, errors.New("router: ledger is required")
	}
	if defaultProvider == providers.ProviderUnspecified {
		return nil, errors.New("router: default provider is required")
	}
	r := &Router{
		adapters:        adapters,
		defaultProvider: defaultProvider,
		ledger:          ledger,
		cost:            PerThousandTokens(1),
		logger:          slog.New(slog.NewTextHandler(io.Discard, nil)),
		tracer:          tracer.NewNoop(),
		now:             time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Run validates task, calls the selected adapter and appends one usage event
// whatever the adapter returned. It never panics and never returns nil.
//
// A task that fails validation is rejected before any adapter call and costs
// nothing: no usage event is written for it.
func (r *Router) Run(ctx context.Context, task Task) Outcome {
	suffix, err := validate(task)
	if err != nil {
		return Failed{Err: err}
	}

	p := task.Provider
	if p == providers.ProviderUnspecified {
		p = r.defaultProvider
	}
	action := task.ModuleID.String() + ":" + suffix + ":generate"

	ctx, span := r.tracer.Start(ctx, tracer.SpanGenerationRun,
		tracer.String(tracer.AttrProvider, p.String()),
		tracer.String(tracer.AttrModuleID, task.ModuleID.String()),
		tracer.String(tracer.AttrTaskType, task.TaskType),
	)

	start := r.now()
	result := r.call(ctx, p, task)
	elapsed := max(r.now().Sub(start), 0)

	usage := Usage{DurationMs: elapsed.Milliseconds()}
	var out Outcome
	switch res := result.(type) {
	case providers.Generated:
		usage.PromptTokens = res.Usage.PromptTokens
		usage.CompletionTokens = res.Usage.CompletionTokens
		usage.TotalTokens = res.Usage.PromptTokens + res.Usage.CompletionTokens
		usage.Units = r.units(ctx, usage.TotalTokens, task.ModuleID)
		out = Succeeded{Data: res.Value, Usage: usage}
	case providers.Rejected:
		out = Failed{Err: dErrors.Wrap(res.Err, dErrors.CodeProvider, "generation failed: "+string(res.Err.Category)), Usage: usage}
	}

	entry := usagemodels.Entry{
		Action:       action,
		TenantID:     task.TenantID,
		UserID:       task.UserID,
		ModuleID:     task.ModuleID,
		TokensInput:  usage.PromptTokens,
		TokensOutput: usage.CompletionTokens,
		Units:        usage.Units,
		DurationMs:   usage.DurationMs,
		Metadata:     eventMetadata(task, p, result),
	}
	r.record(ctx, entry, out)

	span.SetAttributes(
		tracer.Bool(tracer.AttrOK, isSuccess(out)),
		tracer.Int64(tracer.AttrTokensTotal, usage.TotalTokens),
		tracer.Int64(tracer.AttrUnits, usage.Units),
	)
	if f, ok := out.(Failed); ok {
		span.End(f.Err)
	} else {
		span.End(nil)
	}
	r.observe(ctx, p, action, out, elapsed)
	return out
}

func validate(task Task) (string, error) {
	if !taskTypePattern.MatchString(task.TaskType) {
		return "", dErrors.New(dErrors.CodeValidation, "task type must match domain.task")
	}
	if _, err := id.ParseModuleID(task.ModuleID.String()); err != nil {
		return "", dErrors.New(dErrors.CodeValidation, "invalid module id")
	}
	if task.UserID.IsNil() {
		return "", dErrors.New(dErrors.CodeValidation, "user id is required")
	}
	if task.Schema == nil {
		return "", dErrors.New(dErrors.CodeValidation, "output schema is required")
	}
	_, suffix, _ := strings.Cut(task.TaskType, ".")
	return suffix, nil
}

// call resolves the adapter and invokes it, converting panics and nil results
// into a Rejected value.
func (r *Router) call(ctx context.Context, p providers.Provider, task Task) (res providers.Result) {
	adapter, err := r.adapters.Adapter(p)
	if err != nil {
		var perr *providers.ProviderError
		if !errors.As(err, &perr) {
			perr = providers.NewProviderError(providers.ErrorInternal, p, "adapter lookup failed", err)
		}
		return providers.Rejected{Err: perr}
	}

	ctx, span := r.tracer.Start(ctx, tracer.SpanProviderCall, tracer.String(tracer.AttrProvider, p.String()))
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.ErrorContext(ctx, "generation adapter panicked",
				"provider", p.String(),
				"panic", fmt.Sprint(rec),
				"stack", string(debug.Stack()),
			)
			res = providers.Rejected{Err: providers.NewProviderError(providers.ErrorInternal, p, "adapter panicked", fmt.Errorf("%v", rec))}
		}
		if rej, ok := res.(providers.Rejected); ok {
			span.End(rej.Err)
			return
		}
		span.End(nil)
	}()

	res = adapter.Generate(ctx, task.SystemPrompt, task.UserPrompt, task.Schema, task.Options)
	switch v := res.(type) {
	case providers.Generated:
		return v
	case providers.Rejected:
		if v.Err == nil {
			return providers.Rejected{Err: providers.NewProviderError(providers.ErrorInternal, p, "adapter rejected without error", nil)}
		}
		return v
	default:
		return providers.Rejected{Err: providers.NewProviderError(providers.ErrorInternal, p, "adapter returned no result", nil)}
	}
}

// units applies the cost function; a panicking or negative cost is recorded as zero.
func (r *Router) units(ctx context.Context, tokens int64, module id.ModuleID) (units int64) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.ErrorContext(ctx, "cost function panicked", "module_id", module, "panic", fmt.Sprint(rec))
			units = 0
		}
	}()
	return max(r.cost(tokens, module), 0)
}

// record appends the usage event. The write is detached from caller
// cancellation; a failure never changes the outcome returned to the caller.
func (r *Router) record(ctx context.Context, entry usagemodels.Entry, out Outcome) {
	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), ledgerWriteTimeout)
	defer cancel()

	err := r.append(writeCtx, entry)
	if err == nil {
		return
	}

	if r.metrics != nil {
		r.metrics.IncUnaccounted(entry.ModuleID.String())
	}
	msg := "usage ledger append failed after failed generation"
	if isSuccess(out) {
		msg = "usage ledger append failed after successful generation"
	}
	r.logger.ErrorContext(ctx, msg,
		"error", err,
		"action", entry.Action,
		"tenant_id", tenantAttr(entry.TenantID),
		"user_id", entry.UserID,
		"module_id", entry.ModuleID,
		"tokens_input", entry.TokensInput,
		"tokens_output", entry.TokensOutput,
		"units", entry.Units,
		"duration_ms", entry.DurationMs,
	)
	if r.unaccounted != nil {
		r.unaccounted(writeCtx, entry, err)
	}
}

func (r *Router) append(ctx context.Context, entry usagemodels.Entry) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("ledger panicked: %v", rec)
		}
	}()
	_, err = r.ledger.Append(ctx, entry)
	return err
}

func (r *Router) observe(ctx context.Context, p providers.Provider, action string, out Outcome, elapsed time.Duration) {
	switch v := out.(type) {
	case Succeeded:
		if r.metrics != nil {
			r.metrics.ObserveRun(p.String(), "ok", elapsed)
		}
		r.logger.InfoContext(ctx, "generation completed",
			"provider", p.String(),
			"action", action,
			"tokens_total", v.Usage.TotalTokens,
			"units", v.Usage.Units,
			"duration_ms", v.Usage.DurationMs,
		)
	case Failed:
		category := providers.GetCategory(v.Err)
		if r.metrics != nil {
			r.metrics.ObserveRun(p.String(), "failed", elapsed)
			r.metrics.IncProviderFailure(p.String(), string(category))
		}
		r.logger.WarnContext(ctx, "generation failed",
			"provider", p.String(),
			"action", action,
			"category", category,
			"error", v.Err,
			"duration_ms", v.Usage.DurationMs,
		)
	}
}

func eventMetadata(task Task, p providers.Provider, result providers.Result) id.Settings {
	md := task.Metadata.Clone()
	md["provider"] = p.String()
	md["task_type"] = task.TaskType
	if task.Options.Model != "" {
		md["model"] = task.Options.Model
	}
	if rej, ok := result.(providers.Rejected); ok {
		md["outcome"] = "failed"
		md["error_category"] = string(rej.Err.Category)
	} else {
		md["outcome"] = "ok"
	}
	return md
}

func isSuccess(o Outcome) bool {
	_, ok := o.(Succeeded)
	return ok
}

func tenantAttr(ref id.TenantRef) string {
	if ref == nil {
		return ""
	}
	return ref.String()
}
