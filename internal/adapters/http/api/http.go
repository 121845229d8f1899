// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/okian/scoreboard/internal/adapters/http/swagger"
	"github.com/okian/scoreboard/internal/domain/model"
	"github.com/okian/scoreboard/internal/domain/timeframe"
	"github.com/okian/scoreboard/internal/errs"
	"github.com/okian/scoreboard/pkg/logger"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	ScoreboardDependencies
	SubmitDependencies
	HealthDependencies
	StatsProvider
}

// ScoreboardDependencies defines the ranked and recent reads.
type ScoreboardDependencies interface {
	TopScores(ctx context.Context, token string, limit int, unique bool) ([]model.RankedEntry, error)
	Recent(ctx context.Context, limit int) ([]model.RankedEntry, error)
}

// SubmitDependencies defines the write path.
type SubmitDependencies interface {
	Submit(ctx context.Context, in model.ScoreInput) (int64, error)
}

// Server wires HTTP routes for the business API.
type Server struct {
	indexHandler      *IndexHandler
	healthHandler     *HealthHandler
	metricsHandler    http.Handler
	statsHandler      *StatsHandler
	scoreboardHandler *ScoreboardHandler
	submitHandler     *SubmitHandler

	corsOrigin  string
	rateLimiter *RateLimiter
	logger      logger.Logger
}

type serverOptions struct {
	defaultTimeframe string
	corsOrigin       string
	ratePerSec       float64
	burst            int
	now              func() time.Time
	logger           logger.Logger
}

// Option configures the Server.
type Option func(*serverOptions)

// WithDefaultTimeframe sets the timeframe used when a ranked query names none.
func WithDefaultTimeframe(token string) Option {
	return func(o *serverOptions) {
		if token != "" {
			o.defaultTimeframe = token
		}
	}
}

// WithCORSOrigin sets the Access-Control-Allow-Origin value. Empty disables CORS headers.
func WithCORSOrigin(origin string) Option {
	return func(o *serverOptions) { o.corsOrigin = origin }
}

// WithSubmitRateLimit bounds submissions per client IP. A non-positive rate disables it.
func WithSubmitRateLimit(perSec float64, burst int) Option {
	return func(o *serverOptions) {
		o.ratePerSec = perSec
		o.burst = burst
	}
}

// WithClock sets the clock used for relative times in text responses.
func WithClock(now func() time.Time) Option {
	return func(o *serverOptions) {
		if now != nil {
			o.now = now
		}
	}
}

// WithLogger sets the request logger.
func WithLogger(l logger.Logger) Option {
	return func(o *serverOptions) {
		if l != nil {
			o.logger = l
		}
	}
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, opts ...Option) *Server {
	o := serverOptions{
		defaultTimeframe: timeframe.TokenAllTime,
		corsOrigin:       "*",
		now:              time.Now,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = logger.Named("http")
	}

	return &Server{
		indexHandler:      NewIndexHandler(),
		healthHandler:     NewHealthHandler(deps),
		metricsHandler:    NewMetricsHandler(),
		statsHandler:      NewStatsHandler(deps, o.now),
		scoreboardHandler: NewScoreboardHandler(deps, o.defaultTimeframe, o.now),
		submitHandler:     NewSubmitHandler(deps, o.logger),
		corsOrigin:        o.corsOrigin,
		rateLimiter:       NewRateLimiter(o.ratePerSec, o.burst),
		logger:            o.logger,
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(mux *http.ServeMux) {
	// Specific paths first (most specific to least specific)
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.Handle("/metrics", s.metricsHandler)
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/scoreboard/top", MetricsMiddleware(s.scoreboardHandler.HandleTop, "scoreboard_top"))
	mux.HandleFunc("/scoreboard/new", MetricsMiddleware(s.scoreboardHandler.HandleRecent, "scoreboard_new"))
	mux.HandleFunc("/score/new", MetricsMiddleware(
		s.rateLimiter.Middleware(s.submitHandler.HandlePostScore, "score_new"), "score_new"))
	mux.HandleFunc("/", MetricsMiddleware(s.indexHandler.HandleIndex, "index"))

	swagger.Register(mux)
}

// Handler returns the registered routes wrapped in the request-scoped middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.Register(mux)
	return RequestIDMiddleware(CORSMiddleware(LoggingMiddleware(mux, s.logger), s.corsOrigin))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeKindError maps the kind carried by err to a status and writes it.
func writeKindError(w http.ResponseWriter, err error) {
	writeError(w, statusFor(err), errs.Code(err), err)
}

// statusFor translates core error kinds to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, errs.ErrRecordNotFound):
		return http.StatusNotFound
	case errors.Is(err, errs.ErrAlreadyExists):
		return http.StatusConflict
	case errors.Is(err, errs.ErrStorageUnavailable):
		return http.StatusServiceUnavailable
	}
	switch errs.KindOf(err) {
	case errs.ErrInvalidTimeframe,
		errs.ErrInvalidLimit,
		errs.ErrMissingField,
		errs.ErrInvalidSpuriousSelector,
		errs.ErrInvalidDate,
		errs.ErrConflictingArguments,
		errs.ErrInvalidArgument:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
