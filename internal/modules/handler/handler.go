package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"hearth/internal/modules/models"
	"hearth/internal/platform/middleware"
	"hearth/internal/session"
	id "hearth/pkg/domain"
	dErrors "hearth/pkg/domain-errors"
	"hearth/pkg/platform/httputil"
)

// Service is the slice of the module registry exposed over HTTP.
type Service interface {
	Install(ctx context.Context, sess *session.Context, tenantID id.TenantID, moduleID id.ModuleID, settings id.Settings) (*models.Installation, error)
	Uninstall(ctx context.Context, sess *session.Context, tenantID id.TenantID, moduleID id.ModuleID, hardDelete bool) error
	IsEnabled(ctx context.Context, sess *session.Context, tenantID id.TenantID, moduleID id.ModuleID) (bool, error)
	ListInstalled(ctx context.Context, sess *session.Context, tenantID id.TenantID, includeDisabled bool) ([]*models.Installation, error)
	RegisterDefinition(ctx context.Context, moduleID id.ModuleID, name, version string) (*models.Definition, error)
	SetDefinitionActive(ctx context.Context, moduleID id.ModuleID, active bool) error
	ListDefinitions(ctx context.Context) ([]*models.Definition, error)
}

// Handler serves the per-tenant module routes and the operator definition routes.
type Handler struct {
	registry Service
	logger   *slog.Logger
}

func New(registry Service, logger *slog.Logger) *Handler {
	return &Handler{registry: registry, logger: logger}
}

// Register mounts the tenant routes. RequireSession must run before them.
func (h *Handler) Register(r chi.Router) {
	r.Get("/v1/tenants/{tenant_id}/modules", h.HandleList)
	r.Post("/v1/tenants/{tenant_id}/modules/{module_id}", h.HandleInstall)
	r.Delete("/v1/tenants/{tenant_id}/modules/{module_id}", h.HandleUninstall)
	r.Get("/v1/tenants/{tenant_id}/modules/{module_id}/status", h.HandleStatus)
}

// RegisterOperator mounts the definition routes. RequireOperatorToken must run before them.
func (h *Handler) RegisterOperator(r chi.Router) {
	r.Get("/v1/modules", h.HandleListDefinitions)
	r.Post("/v1/modules", h.HandleRegisterDefinition)
	r.Put("/v1/modules/{module_id}/active", h.HandleSetDefinitionActive)
}

type installRequest struct {
	Settings id.Settings `json:"settings"`
}

type statusResponse struct {
	TenantID id.TenantID `json:"tenant_id"`
	ModuleID id.ModuleID `json:"module_id"`
	Enabled  bool        `json:"enabled"`
}

type listResponse struct {
	Modules []*models.Installation `json:"modules"`
}

type registerDefinitionRequest struct {
	ID      string `json:"id" validate:"required"`
	Name    string `json:"name" validate:"required,max=128"`
	Version string `json:"version" validate:"required,max=32"`
}

type setActiveRequest struct {
	Active *bool `json:"active" validate:"required"`
}

type definitionsResponse struct {
	Definitions []*models.Definition `json:"definitions"`
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID, ok := h.tenantParam(w, r)
	if !ok {
		return
	}
	includeDisabled, err := boolQuery(r, "include_disabled")
	if err != nil {
		h.fail(ctx, w, "invalid include_disabled", err)
		return
	}

	installed, err := h.registry.ListInstalled(ctx, middleware.GetSession(ctx), tenantID, includeDisabled)
	if err != nil {
		h.fail(ctx, w, "failed to list modules", err)
		return
	}
	if installed == nil {
		installed = []*models.Installation{}
	}
	httputil.WriteJSON(w, http.StatusOK, listResponse{Modules: installed})
}

func (h *Handler) HandleInstall(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID, moduleID, ok := h.moduleParams(w, r)
	if !ok {
		return
	}

	req := &installRequest{}
	if r.ContentLength != 0 {
		decoded, ok := httputil.DecodeJSON[installRequest](w, r, h.logger, ctx, middleware.GetRequestID(ctx))
		if !ok {
			return
		}
		req = decoded
	}

	inst, err := h.registry.Install(ctx, middleware.GetSession(ctx), tenantID, moduleID, req.Settings)
	if err != nil {
		h.fail(ctx, w, "install failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, inst)
}

func (h *Handler) HandleUninstall(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID, moduleID, ok := h.moduleParams(w, r)
	if !ok {
		return
	}
	hard, err := boolQuery(r, "hard")
	if err != nil {
		h.fail(ctx, w, "invalid hard flag", err)
		return
	}

	if err := h.registry.Uninstall(ctx, middleware.GetSession(ctx), tenantID, moduleID, hard); err != nil {
		h.fail(ctx, w, "uninstall failed", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID, moduleID, ok := h.moduleParams(w, r)
	if !ok {
		return
	}

	enabled, err := h.registry.IsEnabled(ctx, middleware.GetSession(ctx), tenantID, moduleID)
	if err != nil {
		h.fail(ctx, w, "status lookup failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, statusResponse{TenantID: tenantID, ModuleID: moduleID, Enabled: enabled})
}

func (h *Handler) HandleListDefinitions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	defs, err := h.registry.ListDefinitions(ctx)
	if err != nil {
		h.fail(ctx, w, "failed to list definitions", err)
		return
	}
	if defs == nil {
		defs = []*models.Definition{}
	}
	httputil.WriteJSON(w, http.StatusOK, definitionsResponse{Definitions: defs})
}

func (h *Handler) HandleRegisterDefinition(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[registerDefinitionRequest](w, r, h.logger, ctx, middleware.GetRequestID(ctx))
	if !ok {
		return
	}
	moduleID, err := id.ParseModuleID(req.ID)
	if err != nil {
		h.fail(ctx, w, "invalid module id", err)
		return
	}

	def, err := h.registry.RegisterDefinition(ctx, moduleID, req.Name, req.Version)
	if err != nil {
		h.fail(ctx, w, "register definition failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, def)
}

func (h *Handler) HandleSetDefinitionActive(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	moduleID, err := id.ParseModuleID(chi.URLParam(r, "module_id"))
	if err != nil {
		h.fail(ctx, w, "invalid module id", err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[setActiveRequest](w, r, h.logger, ctx, middleware.GetRequestID(ctx))
	if !ok {
		return
	}

	if err := h.registry.SetDefinitionActive(ctx, moduleID, *req.Active); err != nil {
		h.fail(ctx, w, "set definition active failed", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) tenantParam(w http.ResponseWriter, r *http.Request) (id.TenantID, bool) {
	tenantID, err := id.ParseTenantID(chi.URLParam(r, "tenant_id"))
	if err != nil {
		h.fail(r.Context(), w, "invalid tenant id", err)
		return id.TenantID{}, false
	}
	return tenantID, true
}

func (h *Handler) moduleParams(w http.ResponseWriter, r *http.Request) (id.TenantID, id.ModuleID, bool) {
	tenantID, ok := h.tenantParam(w, r)
	if !ok {
		return id.TenantID{}, "", false
	}
	moduleID, err := id.ParseModuleID(chi.URLParam(r, "module_id"))
	if err != nil {
		h.fail(r.Context(), w, "invalid module id", err)
		return id.TenantID{}, "", false
	}
	return tenantID, moduleID, true
}

func (h *Handler) fail(ctx context.Context, w http.ResponseWriter, msg string, err error) {
	h.logger.WarnContext(ctx, msg,
		"error", err,
		"request_id", middleware.GetRequestID(ctx),
	)
	httputil.WriteError(w, err)
}

func boolQuery(r *http.Request, name string) (bool, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return false, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, dErrors.New(dErrors.CodeBadRequest, name+" must be a boolean")
	}
	return v, nil
}
