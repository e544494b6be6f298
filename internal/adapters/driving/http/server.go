package http

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/quarry-labs/quarry-core/internal/core/ports/driven"
	"github.com/quarry-labs/quarry-core/internal/core/ports/driving"
)

// Pinger is the minimal health-check surface an infrastructure
// dependency has to offer to show up in /ready.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server is the HTTP front of the service. It owns routing and the
// middleware chain; all behaviour lives in the driving services.
type Server struct {
	httpServer *http.Server
	router     *http.ServeMux
	version    string
	logger     *slog.Logger

	authService   driving.AuthService
	userService   driving.UserService
	searchService driving.SearchService

	taskQueue   driven.TaskQueue
	db          Pinger
	redisClient Pinger
	executor    driven.SearchExecutor
}

// Config holds listener settings.
type Config struct {
	Host    string
	Port    int
	Version string
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Host:    "0.0.0.0",
		Port:    8080,
		Version: "dev",
	}
}

// Deps bundles everything the server calls into. RedisClient may be nil
// when sessions and the queue run on PostgreSQL; /ready then skips the
// Redis check.
type Deps struct {
	AuthService   driving.AuthService
	UserService   driving.UserService
	SearchService driving.SearchService
	TaskQueue     driven.TaskQueue
	DB            Pinger
	RedisClient   Pinger
	Executor      driven.SearchExecutor
	Logger        *slog.Logger
}

// NewServer wires routes and middleware around the given dependencies.
func NewServer(cfg Config, deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		router:        http.NewServeMux(),
		version:       cfg.Version,
		logger:        logger,
		authService:   deps.AuthService,
		userService:   deps.UserService,
		searchService: deps.SearchService,
		taskQueue:     deps.TaskQueue,
		db:            deps.DB,
		redisClient:   deps.RedisClient,
		executor:      deps.Executor,
	}

	logging := NewLoggingMiddleware(logger)
	recovery := NewRecoveryMiddleware(logger)

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      recovery.Handler(logging.Handler(s.router)),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	auth := NewAuthMiddleware(s.authService)

	authed := func(h http.HandlerFunc) http.Handler {
		return auth.Authenticate(h)
	}
	admin := func(h http.HandlerFunc) http.Handler {
		return auth.Authenticate(auth.RequireAdmin(h))
	}

	// Unauthenticated surface: health probes, login, bootstrap.
	s.router.HandleFunc("GET /health", s.handleHealth)
	s.router.HandleFunc("GET /ready", s.handleReady)
	s.router.HandleFunc("GET /version", s.handleVersion)
	s.router.HandleFunc("POST /api/v1/auth/login", s.handleLogin)
	s.router.HandleFunc("POST /api/v1/auth/refresh", s.handleRefresh)
	s.router.HandleFunc("POST /api/v1/setup", s.handleSetup)

	// Session management for the logged-in user.
	s.router.Handle("POST /api/v1/auth/logout", authed(s.handleLogout))
	s.router.Handle("POST /api/v1/auth/logout-all", authed(s.handleLogoutAll))
	s.router.Handle("PUT /api/v1/auth/password", authed(s.handleChangePassword))
	s.router.Handle("GET /api/v1/me", authed(s.handleGetMe))

	// User management is admin-only.
	s.router.Handle("GET /api/v1/users", admin(s.handleListUsers))
	s.router.Handle("POST /api/v1/users", admin(s.handleCreateUser))
	s.router.Handle("GET /api/v1/users/{id}", admin(s.handleGetUser))
	s.router.Handle("PUT /api/v1/users/{id}", admin(s.handleUpdateUser))
	s.router.Handle("DELETE /api/v1/users/{id}", admin(s.handleDeleteUser))
	s.router.Handle("PUT /api/v1/users/{id}/password", admin(s.handleSetPassword))

	// Search surface.
	s.router.Handle("POST /api/v1/search", authed(s.handleSearch))
	s.router.Handle("GET /api/v1/search/suggest", authed(s.handleSuggest))
	s.router.Handle("GET /api/v1/search/history", authed(s.handleHistory))
}

// Handler exposes the full middleware chain, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start blocks until the listener fails or the server is shut down.
func (s *Server) Start() error {
	s.logger.Info("starting http server", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// Stop drains in-flight requests and closes the listener.
func (s *Server) Stop(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
