package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/keydesk/keydesk/internal/handler"
	"github.com/keydesk/keydesk/internal/openapi"
	"github.com/keydesk/keydesk/internal/server/middleware"
	"github.com/keydesk/keydesk/internal/service"
	"github.com/keydesk/keydesk/internal/session"
	"github.com/keydesk/keydesk/internal/store"
	"github.com/keydesk/keydesk/internal/ui"
)

// Config holds the HTTP server configuration.
type Config struct {
	Host            string
	Port            int
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
	CORSOrigins     []string
	BaseURL         string // advertised in the OpenAPI document; optional
	Version         string
}

// DefaultConfig returns a Config with sensible production defaults.
func DefaultConfig() Config {
	return Config{
		Host:            "0.0.0.0",
		Port:            3000,
		RequestTimeout:  30 * time.Second,
		ShutdownTimeout: 30 * time.Second,
		Version:         "dev",
	}
}

// Addr returns the host:port the server listens on.
func (c Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Server is the keydesk HTTP server. It owns the router and the resources
// that must be released on shutdown.
type Server struct {
	cfg        Config
	router     chi.Router
	store      *store.Store
	sessions   *session.Manager
	authSvc    *service.AuthService
	httpServer *http.Server
	logger     *slog.Logger
}

// New creates a new Server, wires up all routes and middleware, and returns
// it ready to listen. Call ListenAndServe to start accepting connections.
func New(cfg Config, st *store.Store, sessions *session.Manager, authSvc *service.AuthService, logger *slog.Logger) *Server {
	s := &Server{
		cfg:      cfg,
		store:    st,
		sessions: sessions,
		authSvc:  authSvc,
		logger:   logger,
	}
	s.setupRouter()
	return s
}

func (s *Server) setupRouter() {
	r := chi.NewRouter()

	// --- Global middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(s.logger))
	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)
	if len(s.cfg.CORSOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   s.cfg.CORSOrigins,
			AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Content-Type", "X-Requested-With", middleware.RequestIDHeader},
			ExposedHeaders:   []string{middleware.RequestIDHeader},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}
	if s.cfg.RequestTimeout > 0 {
		// Bounds the wait for a pooled connection along with everything else.
		r.Use(chimw.Timeout(s.cfg.RequestTimeout))
	}
	r.Use(chimw.Compress(5))

	// --- Health checks ---
	r.Get("/healthz", s.handleHealthz)
	r.Get("/readyz", s.handleReadyz)

	doc := openapi.Generate(s.cfg.Version, s.cfg.BaseURL, s.sessions.CookieName())
	r.Get("/openapi.json", handler.NewOpenAPIHandler(doc).ServeSpec)

	authH := handler.NewAuthHandler(s.authSvc, s.sessions, s.logger)
	keyH := handler.NewKeyHandler(s.store, s.logger)
	userH := handler.NewUserHandler(s.store, s.logger)
	pageH := handler.NewPageHandler(ui.Pages())

	// Everything below sees the caller's session, if any.
	r.Group(func(r chi.Router) {
		r.Use(middleware.LoadSession(s.sessions, s.logger))

		r.Route("/api", func(r chi.Router) {
			r.Post("/register", authH.Register)
			r.Post("/login", authH.Login)
			r.Post("/logout", authH.Logout)
			r.Get("/check-auth", authH.CheckAuth)

			// Public: anyone may mint a key and register against it.
			r.Post("/generate-apikey", keyH.Generate)
			r.Post("/create-user", userH.Create)

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireSession())
				r.Get("/users", userH.List)
				r.Get("/apikeys", keyH.List)
			})
		})

		r.Get("/", pageH.Index)
		r.Get("/dashboard", pageH.Dashboard)
		r.Get("/create-user", pageH.CreateUser)
	})

	r.Handle("/assets/*", pageH.Assets())

	s.router = r
}

// handleHealthz is a liveness probe. Returns 200 if the process is running.
func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}

// pinger is implemented by session stores backed by a remote service.
type pinger interface {
	Ping(ctx context.Context) error
}

// handleReadyz is a readiness probe. Returns 200 when the database and the
// session store are reachable, or 503 otherwise.
func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	httpStatus := http.StatusOK
	checks := map[string]string{}

	check := func(name string, err error) {
		if err != nil {
			checks[name] = "error: " + err.Error()
			status = "degraded"
			return
		}
		checks[name] = "ok"
	}

	check("database", s.store.Ping(r.Context()))
	if p, ok := s.sessions.Store().(pinger); ok {
		check("sessions", p.Ping(r.Context()))
	} else {
		checks["sessions"] = "ok"
	}

	if status != "ok" {
		httpStatus = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpStatus)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status": status,
		"checks": checks,
	})
}

// ListenAndServe starts the HTTP server and blocks until a SIGINT or SIGTERM
// is received. It then performs a graceful shutdown: in-flight requests are
// drained, the session sweeper stops, and the database pool and session
// store are closed.
func (s *Server) ListenAndServe() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return s.Serve(ctx)
}

// Serve runs the server until ctx is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	addr := s.cfg.Addr()

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      s.cfg.RequestTimeout + 15*time.Second,
		IdleTimeout:       120 * time.Second,
	}

	sweepCtx, stopSweep := context.WithCancel(context.Background())
	sweepDone := make(chan struct{})
	go func() {
		defer close(sweepDone)
		s.sessions.Run(sweepCtx)
	}()

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server starting", "addr", addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	var serveErr error
	select {
	case err := <-errCh:
		serveErr = fmt.Errorf("server listen: %w", err)
	case <-ctx.Done():
		s.logger.Info("shutdown signal received, draining connections...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			serveErr = fmt.Errorf("server shutdown: %w", err)
		}
		cancel()
	}

	stopSweep()
	<-sweepDone
	s.close()
	s.logger.Info("server stopped")
	return serveErr
}

func (s *Server) close() {
	if c, ok := s.sessions.Store().(io.Closer); ok {
		if err := c.Close(); err != nil {
			s.logger.Warn("close session store", "error", err)
		}
	}
	if err := s.store.Close(); err != nil {
		s.logger.Warn("close database", "error", err)
	}
}

// Router returns the underlying Chi router, useful for testing.
func (s *Server) Router() chi.Router {
	return s.router
}

// ServeHTTP implements http.Handler, delegating to the router.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
