package api

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/okian/scoreboard/internal/errs"
	"github.com/okian/scoreboard/pkg/metrics"
)

const healthTimeout = 2 * time.Second

// HealthDependencies reports store reachability.
type HealthDependencies interface {
	Ping(ctx context.Context) error
}

// HealthHandler handles health check requests.
type HealthHandler struct {
	deps HealthDependencies
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(deps HealthDependencies) *HealthHandler {
	return &HealthHandler{deps: deps}
}

type healthResponse struct {
	Status string `json:"status"`
	Store  string `json:"store"`
}

// HandleHealth handles GET /healthz requests with a JSON liveness report.
// An unreachable store answers 503.
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
	defer cancel()

	if err := h.deps.Ping(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, healthResponse{Status: "unavailable", Store: errs.Code(err)})
		return
	}
	writeJSON(w, http.StatusOK, healthResponse{Status: "ok", Store: "ok"})
}

// NewMetricsHandler serves the custom Prometheus registry.
func NewMetricsHandler() http.Handler {
	return promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{})
}

// IndexHandler answers the root path.
type IndexHandler struct{}

// NewIndexHandler creates a new index handler.
func NewIndexHandler() *IndexHandler {
	return &IndexHandler{}
}

// HandleIndex handles GET / with a plain-text banner. Every other unmatched
// path is a 404.
func (h *IndexHandler) HandleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" || r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("scoreboard\n\nGET  /scoreboard/top?total=N&timeframe=daily|weekly|alltime&unique=true|false\nGET  /scoreboard/new?total=N\nPOST /score/new\n"))
}
