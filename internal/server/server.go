package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/hongminglow/smartdash-be/internal/alerting"
	"github.com/hongminglow/smartdash-be/internal/auth"
	"github.com/hongminglow/smartdash-be/internal/config"
	"github.com/hongminglow/smartdash-be/internal/http/handlers"
	"github.com/hongminglow/smartdash-be/internal/metrics"
	"github.com/hongminglow/smartdash-be/internal/middleware"
	"github.com/hongminglow/smartdash-be/internal/session"
	"github.com/hongminglow/smartdash-be/internal/storage"
)

const tokenIssuer = "smartdash"

// Deps are the collaborators the server routes requests to.
type Deps struct {
	Store     storage.Store
	Sessions  session.Store
	Predictor handlers.Predictor
	Metrics   *metrics.Metrics
	Logger    *slog.Logger
}

// Server wraps an http.Server with configured routes.
type Server struct {
	inner *http.Server
}

// New wires up middleware, routes, and returns a ready server.
func New(cfg config.Config, deps Deps) *Server {
	httpServer := &http.Server{
		Addr:              cfg.HTTPAddress(),
		Handler:           Handler(cfg, deps),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      writeTimeout(cfg.AIEngine),
		IdleTimeout:       120 * time.Second,
	}
	return &Server{inner: httpServer}
}

// Handler builds the routed handler with CORS and request logging applied.
func Handler(cfg config.Config, deps Deps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	m := deps.Metrics
	if m == nil {
		m = metrics.New()
	}

	tokens := auth.NewTokenManager(cfg.SessionSecret, tokenIssuer)
	sessions := middleware.NewSessions(deps.Sessions, tokens, cfg.SessionTTL, cfg.Production(), logger)
	evaluator := alerting.NewEvaluator(deps.Store, deps.Store, logger, m)

	mux := http.NewServeMux()
	handlers.NewHealthHandler(time.Now()).Register(mux)
	handlers.NewStatsHandler(deps.Store, logger).Register(mux)
	handlers.NewAuthHandler(deps.Store, sessions, middleware.NewRateLimiter(cfg.AuthRate), cfg.FrontendURL, logger).Register(mux)
	handlers.NewDataHandler(deps.Store, evaluator, logger, m).Register(mux, sessions)
	handlers.NewPredictionHandler(deps.Store, deps.Predictor, logger).Register(mux, sessions)
	handlers.NewAlertHandler(deps.Store, logger).Register(mux, sessions)
	mux.Handle("GET /metrics", m.Handler())

	return middleware.CORS(cfg.CORSOrigins, middleware.Logging(logger, m, mux))
}

// writeTimeout leaves room for every prediction attempt plus the waits between them.
func writeTimeout(ai config.AIEngine) time.Duration {
	attempts := time.Duration(ai.Retries + 1)
	return attempts*ai.Timeout + time.Duration(ai.Retries)*ai.RetryDelay + 15*time.Second
}

// Start begins serving HTTP traffic.
func (s *Server) Start() error {
	return s.inner.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.inner.Shutdown(ctx)
}
