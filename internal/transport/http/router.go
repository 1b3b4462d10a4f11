package httptransport

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"hearth/internal/platform/metrics"
	"hearth/internal/platform/middleware"
	"hearth/internal/session"
)

const requestTimeout = 30 * time.Second

// Routes is implemented by every per-context handler.
type Routes interface {
	Register(r chi.Router)
}

// Deps collects what the router mounts. Health is public, Authenticated sits
// behind RequireSession and Operator behind RequireOperatorToken. A nil
// Operator or empty OperatorToken leaves the operator routes unmounted.
type Deps struct {
	Logger   *slog.Logger
	Metrics  *metrics.HTTP
	Gatherer prometheus.Gatherer
	Sessions session.Provider

	Health        Routes
	Authenticated []Routes

	Operator      OperatorRoutes
	OperatorToken string
}

type OperatorRoutes interface {
	RegisterOperator(r chi.Router)
}

// NewRouter wires all public endpoints with middleware.
func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recovery(d.Logger))
	r.Use(middleware.Logger(d.Logger, d.Metrics))
	r.Use(middleware.Timeout(requestTimeout))
	r.Use(middleware.ContentTypeJSON)

	if d.Health != nil {
		d.Health.Register(r)
	}
	if d.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireSession(d.Sessions, d.Logger, d.Metrics))
		for _, routes := range d.Authenticated {
			routes.Register(r)
		}
	})

	if d.Operator != nil && d.OperatorToken != "" {
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireOperatorToken(d.OperatorToken, d.Logger))
			d.Operator.RegisterOperator(r)
		})
	}

	return r
}
