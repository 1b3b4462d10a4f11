package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"hearth/internal/platform/middleware"
	"hearth/internal/session"
	"hearth/internal/usage/models"
	id "hearth/pkg/domain"
	dErrors "hearth/pkg/domain-errors"
	"hearth/pkg/platform/httputil"
)

type History interface {
	History(ctx context.Context, scope models.Scope, q models.Query) ([]*models.UsageEvent, error)
}

// Handler serves read access to the usage ledger.
type Handler struct {
	ledger History
	logger *slog.Logger
}

func New(ledger History, logger *slog.Logger) *Handler {
	return &Handler{ledger: ledger, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Get("/v1/usage", h.HandleHistory)
}

type eventResponse struct {
	ID           id.UsageEventID `json:"id"`
	Action       string          `json:"action"`
	TenantID     id.TenantRef    `json:"tenant_id"`
	UserID       id.UserID       `json:"user_id"`
	ModuleID     id.ModuleID     `json:"module_id,omitempty"`
	TokensInput  int64           `json:"tokens_input"`
	TokensOutput int64           `json:"tokens_output"`
	TokensTotal  int64           `json:"tokens_total"`
	Units        int64           `json:"units"`
	DurationMs   int64           `json:"duration_ms"`
	Metadata     id.Settings     `json:"metadata,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
}

type historyResponse struct {
	Events []eventResponse `json:"events"`
	Limit  int             `json:"limit"`
	Offset int             `json:"offset"`
}

// HandleHistory returns the caller's visible usage, newest first. Tenant
// managers see the whole tenant and may narrow by user_id; members see only
// their own rows; personal callers see only their tenant-less rows.
func (h *Handler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sess := middleware.GetSession(ctx)

	scope, err := scopeFor(sess, r.URL.Query().Get("user_id"))
	if err != nil {
		h.fail(ctx, w, "usage scope rejected", err)
		return
	}
	q, err := parseQuery(r)
	if err == nil {
		q, err = q.Normalize()
	}
	if err != nil {
		h.fail(ctx, w, "invalid usage query", err)
		return
	}

	events, err := h.ledger.History(ctx, scope, q)
	if err != nil {
		h.fail(ctx, w, "usage history failed", err)
		return
	}

	resp := historyResponse{Events: make([]eventResponse, 0, len(events)), Limit: q.Limit, Offset: q.Offset}
	for _, e := range events {
		resp.Events = append(resp.Events, toResponse(e))
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

func scopeFor(sess *session.Context, userFilter string) (models.Scope, error) {
	if sess == nil || sess.UserID.IsNil() {
		return models.Scope{}, session.ErrUnauthenticated
	}
	tenantID, ok := sess.TenantID()
	if !ok {
		if userFilter != "" {
			return models.Scope{}, dErrors.New(dErrors.CodeBadRequest, "user_id filter requires a tenant")
		}
		return models.PersonalScope(sess.UserID), nil
	}
	if err := sess.RequireMember(tenantID); err != nil {
		return models.Scope{}, err
	}

	scope := models.TenantScope(tenantID)
	if !sess.Role().CanManage() {
		if userFilter != "" && userFilter != sess.UserID.String() {
			return models.Scope{}, dErrors.New(dErrors.CodeForbidden, "owner or admin role required")
		}
		userID := sess.UserID
		scope.UserID = &userID
		return scope, nil
	}
	if userFilter != "" {
		userID, err := id.ParseUserID(userFilter)
		if err != nil {
			return models.Scope{}, err
		}
		scope.UserID = &userID
	}
	return scope, nil
}

func parseQuery(r *http.Request) (models.Query, error) {
	v := r.URL.Query()
	q := models.Query{Action: v.Get("action")}

	var err error
	if q.Since, err = timeParam(v.Get("since"), "since"); err != nil {
		return q, err
	}
	if q.Until, err = timeParam(v.Get("until"), "until"); err != nil {
		return q, err
	}
	if q.Limit, err = intParam(v.Get("limit"), "limit"); err != nil {
		return q, err
	}
	if q.Offset, err = intParam(v.Get("offset"), "offset"); err != nil {
		return q, err
	}
	return q, nil
}

func timeParam(raw, name string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, dErrors.New(dErrors.CodeBadRequest, name+" must be an RFC 3339 timestamp")
	}
	return t, nil
}

func intParam(raw, name string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, dErrors.New(dErrors.CodeBadRequest, name+" must be an integer")
	}
	return n, nil
}

func toResponse(e *models.UsageEvent) eventResponse {
	return eventResponse{
		ID:           e.ID,
		Action:       e.Action,
		TenantID:     e.TenantID,
		UserID:       e.UserID,
		ModuleID:     e.ModuleID,
		TokensInput:  e.TokensInput,
		TokensOutput: e.TokensOutput,
		TokensTotal:  e.TokensTotal(),
		Units:        e.Units,
		DurationMs:   e.DurationMs,
		Metadata:     e.Metadata,
		CreatedAt:    e.CreatedAt,
	}
}

func (h *Handler) fail(ctx context.Context, w http.ResponseWriter, msg string, err error) {
	h.logger.WarnContext(ctx, msg,
		"error", err,
		"request_id", middleware.GetRequestID(ctx),
	)
	httputil.WriteError(w, err)
}
