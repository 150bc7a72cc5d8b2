package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"

	"budget/internal/auth"
	applog "budget/internal/log"
	"budget/internal/middleware/ratelimit"
	"budget/internal/middleware/security"
	"budget/internal/middleware/trace"
	"budget/internal/services"
)

const (
	defaultReadyTimeout = 2 * time.Second
	maxBodyBytes        = 1 << 20
)

// Config wires the server to its collaborators.
type Config struct {
	Addr          string
	Service       *services.PeriodService
	Auth          *auth.Authenticator
	Logger        *applog.Logger
	SecureCookies bool
	LoginLimit    ratelimit.Config
	ReadyTimeout  time.Duration
}

type Server struct {
	http.Server
	svc           *services.PeriodService
	auth          *auth.Authenticator
	logger        *applog.Logger
	validate      *validator.Validate
	secureCookies bool
	readyTimeout  time.Duration
	started       time.Time

	loginLimiter     *ratelimit.Limiter
	securityDetector *security.Detector
	traceMiddleware  *trace.Middleware

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run http.Server.
func NewServer(cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = applog.FromContext(context.Background())
	}
	logger = logger.WithComponent(applog.ComponentHTTP)
	readyTimeout := cfg.ReadyTimeout
	if readyTimeout <= 0 {
		readyTimeout = defaultReadyTimeout
	}

	detector := security.NewDetector(logger)
	s := &Server{
		svc:              cfg.Service,
		auth:             cfg.Auth,
		logger:           logger,
		validate:         newValidator(),
		secureCookies:    cfg.SecureCookies,
		readyTimeout:     readyTimeout,
		started:          time.Now(),
		loginLimiter:     ratelimit.NewLimiter(cfg.LoginLimit),
		securityDetector: detector,
		traceMiddleware:  trace.NewMiddleware(detector.ExtractClientIP, logger),
	}
	s.Server = http.Server{
		Addr:              cfg.Addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(s.traceMiddleware.Middleware)
	r.Use(applog.Middleware(s.logger))
	r.Use(applog.RequestIDMiddleware(trace.RequestIDFromRequest))
	r.Use(chimw.Recoverer)
	r.Use(security.NewHeadersMiddleware(security.APIHeadersConfig()).Middleware)
	r.Use(s.securityDetector.Middleware)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "not_found", "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
	})

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Get("/metrics", s.handleMetrics)

	r.With(s.loginLimiter.Middleware(s.securityDetector.ExtractClientIP, rateLimited)).
		Post("/login", s.handleLogin)
	r.Post("/logout", s.handleLogout)

	r.Route("/api", func(r chi.Router) {
		r.Use(s.auth.Middleware)

		r.Get("/config", s.handleConfig)
		r.Get("/trend", s.handleTrend)

		r.Route("/periods", func(r chi.Router) {
			r.Get("/", s.handleListPeriods)
			r.Post("/", s.handleCreatePeriod)
			r.Route("/{key}", func(r chi.Router) {
				r.Get("/", s.handleGetPeriod)
				r.Put("/", s.handleUpdatePeriod)
				r.Get("/dashboard", s.handleDashboard)
				r.Get("/totals", s.handleTotals)
				r.Get("/sankey", s.handleSankey)
			})
		})
	})
	return r
}

// Shutdown stops background helpers and then the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		if s.loginLimiter != nil {
			s.loginLimiter.Stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func rateLimited(w http.ResponseWriter, _ *http.Request) {
	writeError(w, http.StatusTooManyRequests, "rate_limited", "too many login attempts, try again later")
}
