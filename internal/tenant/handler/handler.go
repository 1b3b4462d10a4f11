package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"hearth/internal/platform/middleware"
	"hearth/internal/session"
	"hearth/internal/tenant/models"
	tenantService "hearth/internal/tenant/service"
	id "hearth/pkg/domain"
	"hearth/pkg/platform/httputil"
)

type Service interface {
	CreateTenant(ctx context.Context, cmd tenantService.CreateTenantCommand) (*models.Tenant, error)
	GetTenant(ctx context.Context, sess *session.Context, tenantID id.TenantID) (*models.Tenant, error)
	AddMember(ctx context.Context, sess *session.Context, userID id.UserID, role models.Role) (*models.Membership, error)
}

type Handler struct {
	tenants Service
	logger  *slog.Logger
}

func New(tenants Service, logger *slog.Logger) *Handler {
	return &Handler{tenants: tenants, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Post("/v1/tenants", h.HandleCreateTenant)
	r.Get("/v1/tenants/{tenant_id}", h.HandleGetTenant)
	r.Post("/v1/tenants/{tenant_id}/members", h.HandleAddMember)
}

type createTenantRequest struct {
	Name         string `json:"name" validate:"required,max=128"`
	Slug         string `json:"slug" validate:"required,max=64"`
	Kind         string `json:"kind" validate:"required,oneof=household organization"`
	BillingEmail string `json:"billing_email" validate:"omitempty,email"`
}

func (r *createTenantRequest) Normalize() {
	r.Name = strings.TrimSpace(r.Name)
	r.Slug = strings.ToLower(strings.TrimSpace(r.Slug))
	r.Kind = strings.ToLower(strings.TrimSpace(r.Kind))
	r.BillingEmail = strings.TrimSpace(r.BillingEmail)
}

type addMemberRequest struct {
	UserID string `json:"user_id" validate:"required,uuid"`
	Role   string `json:"role" validate:"required,oneof=admin member"`
}

// HandleCreateTenant creates a household or organization owned by the caller.
func (h *Handler) HandleCreateTenant(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)
	req, ok := httputil.DecodeAndPrepare[createTenantRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	sess := middleware.GetSession(ctx)
	if sess == nil {
		h.fail(ctx, w, "create tenant without session", session.ErrUnauthenticated)
		return
	}
	tenant, err := h.tenants.CreateTenant(ctx, tenantService.CreateTenantCommand{
		Owner:        sess.UserID,
		Name:         req.Name,
		Slug:         req.Slug,
		Kind:         models.Kind(req.Kind),
		BillingEmail: req.BillingEmail,
	})
	if err != nil {
		h.fail(ctx, w, "create tenant failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, tenant)
}

func (h *Handler) HandleGetTenant(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID, err := id.ParseTenantID(chi.URLParam(r, "tenant_id"))
	if err != nil {
		h.fail(ctx, w, "invalid tenant id", err)
		return
	}
	tenant, err := h.tenants.GetTenant(ctx, middleware.GetSession(ctx), tenantID)
	if err != nil {
		h.fail(ctx, w, "get tenant failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, tenant)
}

// HandleAddMember records an accepted invite into the caller's current tenant.
func (h *Handler) HandleAddMember(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID, err := id.ParseTenantID(chi.URLParam(r, "tenant_id"))
	if err != nil {
		h.fail(ctx, w, "invalid tenant id", err)
		return
	}
	sess := middleware.GetSession(ctx)
	if err := sess.RequireManager(tenantID); err != nil {
		h.fail(ctx, w, "add member rejected", err)
		return
	}

	req, ok := httputil.DecodeAndPrepare[addMemberRequest](w, r, h.logger, ctx, middleware.GetRequestID(ctx))
	if !ok {
		return
	}
	userID, err := id.ParseUserID(req.UserID)
	if err != nil {
		h.fail(ctx, w, "invalid user id", err)
		return
	}

	m, err := h.tenants.AddMember(ctx, sess, userID, models.Role(req.Role))
	if err != nil {
		h.fail(ctx, w, "add member failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, m)
}

func (h *Handler) fail(ctx context.Context, w http.ResponseWriter, msg string, err error) {
	h.logger.WarnContext(ctx, msg,
		"error", err,
		"request_id", middleware.GetRequestID(ctx),
	)
	httputil.WriteError(w, err)
}
