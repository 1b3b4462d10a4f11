// Package health serves the unauthenticated liveness, readiness and status probes.
package health

import (
	"context"
	"maps"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"

	"hearth/pkg/platform/httputil"
)

// Version is set at build time via ldflags.
var Version = "dev"

const checkTimeout = 2 * time.Second

// CheckFunc returns nil when the dependency is healthy.
type CheckFunc func(ctx context.Context) error

type check struct {
	fn       CheckFunc
	optional bool
}

type Handler struct {
	startTime   time.Time
	environment string

	mu      sync.RWMutex
	checks  map[string]check
	details map[string][]string
}

func New(environment string) *Handler {
	return &Handler{
		startTime:   time.Now(),
		environment: environment,
		checks:      make(map[string]check),
		details:     make(map[string][]string),
	}
}

// RegisterCheck adds a dependency the service cannot run without.
func (h *Handler) RegisterCheck(name string, fn CheckFunc) {
	h.register(name, check{fn: fn})
}

// RegisterOptionalCheck adds a dependency whose failure degrades the service
// without taking it out of rotation, such as the module cache.
func (h *Handler) RegisterOptionalCheck(name string, fn CheckFunc) {
	h.register(name, check{fn: fn, optional: true})
}

func (h *Handler) register(name string, c check) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checks[name] = c
}

// SetDetail attaches static information to the readiness report,
// e.g. the generation providers that have credentials.
func (h *Handler) SetDetail(name string, values []string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.details[name] = append([]string(nil), values...)
}

func (h *Handler) Register(r chi.Router) {
	r.Get("/health", h.HandleStatus)
	r.Get("/health/live", h.HandleLiveness)
	r.Get("/health/ready", h.HandleReadiness)
}

type LivenessResponse struct {
	Status string `json:"status"`
}

func (h *Handler) HandleLiveness(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, LivenessResponse{Status: "alive"})
}

type ReadinessResponse struct {
	Status  string              `json:"status"`
	Checks  map[string]string   `json:"checks,omitempty"`
	Details map[string][]string `json:"details,omitempty"`
}

// HandleReadiness runs every check concurrently. A failed required check
// answers 503 "not_ready"; a failed optional one answers 200 "degraded".
func (h *Handler) HandleReadiness(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	checks := maps.Clone(h.checks)
	details := maps.Clone(h.details)
	h.mu.RUnlock()

	ctx, cancel := context.WithTimeout(r.Context(), checkTimeout)
	defer cancel()

	var (
		g                  errgroup.Group
		mu                 sync.Mutex
		required, optional bool
		results            = make(map[string]string, len(checks))
	)
	for name, c := range checks {
		g.Go(func() error {
			err := c.fn(ctx)
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				results[name] = "up"
				return nil
			}
			results[name] = "down: " + err.Error()
			if c.optional {
				optional = true
			} else {
				required = true
			}
			return nil
		})
	}
	_ = g.Wait()

	response := ReadinessResponse{Status: "ready", Checks: results, Details: details}
	switch {
	case required:
		response.Status = "not_ready"
		httputil.WriteJSON(w, http.StatusServiceUnavailable, response)
		return
	case optional:
		response.Status = "degraded"
	}
	httputil.WriteJSON(w, http.StatusOK, response)
}

type StatusResponse struct {
	Status        string `json:"status"`
	Version       string `json:"version"`
	Environment   string `json:"environment"`
	UptimeSeconds int64  `json:"uptime_seconds"`
	Timestamp     string `json:"timestamp"`
}

func (h *Handler) HandleStatus(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, StatusResponse{
		Status:        "healthy",
		Version:       Version,
		Environment:   h.environment,
		UptimeSeconds: int64(time.Since(h.startTime).Seconds()),
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
	})
}
