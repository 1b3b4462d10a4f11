package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"hearth/internal/generation/providers"
	"hearth/internal/generation/router"
	"hearth/internal/platform/middleware"
	"hearth/internal/session"
	id "hearth/pkg/domain"
	dErrors "hearth/pkg/domain-errors"
	"hearth/pkg/platform/httputil"
)

type Generator interface {
	Run(ctx context.Context, task router.Task) router.Outcome
}

// ModuleGate reports whether a tenant has a module enabled.
type ModuleGate interface {
	IsEnabled(ctx context.Context, sess *session.Context, tenantID id.TenantID, moduleID id.ModuleID) (bool, error)
}

type Handler struct {
	generator Generator
	modules   ModuleGate
	catalog   *Catalog
	logger    *slog.Logger
}

func New(generator Generator, modules ModuleGate, catalog *Catalog, logger *slog.Logger) *Handler {
	return &Handler{generator: generator, modules: modules, catalog: catalog, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Post("/v1/tenants/{tenant_id}/modules/{module_id}/generate", h.HandleGenerate)
}

type generateRequest struct {
	TaskType string   `json:"task_type" validate:"required"`
	Prompt   string   `json:"prompt" validate:"required,max=8000"`
	Provider string   `json:"provider" validate:"omitempty,oneof=anthropic openai gemini"`
	Model    string   `json:"model" validate:"omitempty,max=128"`
	MaxTok   int      `json:"max_tokens" validate:"omitempty,min=1,max=32000"`
	Temp     *float64 `json:"temperature" validate:"omitempty,min=0,max=2"`
}

func (r *generateRequest) Normalize() {
	r.TaskType = strings.TrimSpace(r.TaskType)
	r.Provider = strings.ToLower(strings.TrimSpace(r.Provider))
}

type usageResponse struct {
	PromptTokens     int64 `json:"prompt_tokens"`
	CompletionTokens int64 `json:"completion_tokens"`
	TotalTokens      int64 `json:"total_tokens"`
	DurationMs       int64 `json:"duration_ms"`
	Units            int64 `json:"units"`
}

type generateResponse struct {
	Data  json.RawMessage `json:"data"`
	Usage usageResponse   `json:"usage"`
}

// HandleGenerate runs a catalogued task for a module the tenant has enabled.
// Every attempt that reaches the router is metered, including failures.
func (h *Handler) HandleGenerate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sess := middleware.GetSession(ctx)

	tenantID, err := id.ParseTenantID(chi.URLParam(r, "tenant_id"))
	if err != nil {
		h.fail(ctx, w, "invalid tenant id", err)
		return
	}
	moduleID, err := id.ParseModuleID(chi.URLParam(r, "module_id"))
	if err != nil {
		h.fail(ctx, w, "invalid module id", err)
		return
	}

	enabled, err := h.modules.IsEnabled(ctx, sess, tenantID, moduleID)
	if err != nil {
		h.fail(ctx, w, "module lookup failed", err)
		return
	}
	if !enabled {
		h.fail(ctx, w, "generation for disabled module", dErrors.New(dErrors.CodeForbidden, "module is not enabled for this tenant"))
		return
	}

	req, ok := httputil.DecodeAndPrepare[generateRequest](w, r, h.logger, ctx, middleware.GetRequestID(ctx))
	if !ok {
		return
	}
	spec, ok := h.catalog.Lookup(moduleID, req.TaskType)
	if !ok {
		h.fail(ctx, w, "unknown task", dErrors.New(dErrors.CodeNotFound, "task not found for module"))
		return
	}

	task, err := router.NewTask(sess, moduleID, spec.TaskType)
	if err != nil {
		h.fail(ctx, w, "task rejected", err)
		return
	}
	task.SystemPrompt = spec.SystemPrompt
	task.UserPrompt = req.Prompt
	task.Schema = spec.Schema
	task.Options = providers.ModelOptions{Model: req.Model, MaxTokens: req.MaxTok, Temperature: req.Temp}
	if req.Provider != "" {
		// oneof above guarantees a known name
		task.Provider, _ = providers.ParseProvider(req.Provider)
	}

	switch out := h.generator.Run(ctx, task).(type) {
	case router.Succeeded:
		httputil.WriteJSON(w, http.StatusOK, generateResponse{Data: out.Data, Usage: toUsage(out.Usage)})
	case router.Failed:
		h.fail(ctx, w, "generation failed", out.Err)
	default:
		h.fail(ctx, w, "generation failed", dErrors.New(dErrors.CodeInternal, "unknown generation outcome"))
	}
}

func toUsage(u router.Usage) usageResponse {
	return usageResponse{
		PromptTokens:     u.PromptTokens,
		CompletionTokens: u.CompletionTokens,
		TotalTokens:      u.TotalTokens,
		DurationMs:       u.DurationMs,
		Units:            u.Units,
	}
}

func (h *Handler) fail(ctx context.Context, w http.ResponseWriter, msg string, err error) {
	h.logger.WarnContext(ctx, msg,
		"error", err,
		"request_id", middleware.GetRequestID(ctx),
	)
	httputil.WriteError(w, err)
}
