package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"hearth/internal/platform/metrics"
	"hearth/internal/session"
	dErrors "hearth/pkg/domain-errors"
	"hearth/pkg/platform/httputil"
)

type sessionKey struct{}

// WithSession stores the resolved caller in ctx.
func WithSession(ctx context.Context, sess *session.Context) context.Context {
	return context.WithValue(ctx, sessionKey{}, sess)
}

// GetSession returns the caller resolved by RequireSession, or nil.
func GetSession(ctx context.Context) *session.Context {
	sess, _ := ctx.Value(sessionKey{}).(*session.Context)
	return sess
}

// RequireSession resolves the bearer credential into a session.Context.
// Handlers behind it can rely on GetSession returning a non-nil caller.
func RequireSession(provider session.Provider, logger *slog.Logger, m *metrics.HTTP) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || strings.TrimSpace(token) == "" {
				reject(ctx, w, logger, m, session.ErrUnauthenticated)
				return
			}

			sess, err := provider.Resolve(ctx, strings.TrimSpace(token))
			if err != nil {
				reject(ctx, w, logger, m, err)
				return
			}
			if sess == nil {
				reject(ctx, w, logger, m, session.ErrUnauthenticated)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithSession(ctx, sess)))
		})
	}
}

func reject(ctx context.Context, w http.ResponseWriter, logger *slog.Logger, m *metrics.HTTP, err error) {
	if m != nil {
		m.IncAuthFailure()
	}
	logger.WarnContext(ctx, "request rejected - no session",
		"error", err,
		"request_id", GetRequestID(ctx),
	)
	if !dErrors.HasCode(err, dErrors.CodeForbidden) && !dErrors.HasCode(err, dErrors.CodeInternal) {
		err = dErrors.New(dErrors.CodeUnauthorized, "invalid or expired token")
	}
	httputil.WriteError(w, err)
}
