// Package api provides the HTTP surface of the officewatch presence bot:
// the presence check endpoint, user registration, the Slack events webhook,
// and operational endpoints.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	gorillahandlers "github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"github.com/officewatch/officewatch/internal/api/handlers"
	"github.com/officewatch/officewatch/internal/config"
	"github.com/officewatch/officewatch/internal/logging"
	"github.com/officewatch/officewatch/internal/metrics"
)

// Server represents the API server.
type Server struct {
	httpServer *http.Server
	router     *mux.Router
	config     *config.Config
	logger     *slog.Logger
	prom       *metrics.PrometheusMetrics
	startTime  time.Time
}

// Deps bundles the collaborators the HTTP layer exposes. Everything is an
// interface so tests can run the full router with fakes.
type Deps struct {
	Checker    handlers.PresenceChecker
	Store      handlers.UserStore
	Pinger     handlers.Pinger
	Dispatcher handlers.EventDispatcher
	Prom       *metrics.PrometheusMetrics
}

// New creates a new API server instance.
func New(cfg *config.Config, deps Deps) *Server {
	logger := logging.Default().With("component", "api")

	server := &Server{
		router:    mux.NewRouter(),
		config:    cfg,
		logger:    logger,
		prom:      deps.Prom,
		startTime: time.Now(),
	}

	server.setupRoutes(deps)
	server.setupMiddleware()

	server.httpServer = &http.Server{
		Addr:         net.JoinHostPort(cfg.API.ListenAddr, strconv.Itoa(cfg.API.Port)),
		Handler:      server.router,
		ReadTimeout:  cfg.API.ReadTimeout,
		WriteTimeout: cfg.API.WriteTimeout,
		IdleTimeout:  cfg.API.IdleTimeout,
	}

	return server
}

// Start starts the API server and blocks until ctx is canceled or the
// listener fails.
func (s *Server) Start(ctx context.Context) error {
	s.logger.Info("Starting API server",
		"address", s.httpServer.Addr,
		"read_timeout", s.httpServer.ReadTimeout,
		"write_timeout", s.httpServer.WriteTimeout)

	errChan := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("API server failed: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		return s.Stop()
	case err := <-errChan:
		return err
	}
}

// Stop gracefully stops the API server.
func (s *Server) Stop() error {
	s.logger.Info("Stopping API server")

	ctx, cancel := context.WithTimeout(context.Background(), s.config.API.ShutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.Error("API server shutdown error", "error", err)
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	s.logger.Info("API server stopped successfully")
	return nil
}

// setupRoutes configures all API routes.
func (s *Server) setupRoutes(deps Deps) {
	presenceHandler := handlers.NewPresenceHandler(deps.Checker, s.logger)
	userHandler := handlers.NewUserHandler(deps.Store, s.config.Slack.WorkspaceID, s.logger)
	healthHandler := handlers.NewHealthHandler(deps.Pinger, s.logger)
	formHandler := handlers.NewFormHandler(s.config.API.TemplatesDir, s.logger)

	s.router.HandleFunc("/check", presenceHandler.Check).Methods("GET")
	s.router.HandleFunc("/create-user", userHandler.CreateUser).Methods("POST")
	s.router.HandleFunc("/users", userHandler.ListUsers).Methods("GET")
	s.router.HandleFunc("/register", formHandler.Register).Methods("GET")

	if deps.Dispatcher != nil {
		slackHandler := handlers.NewSlackHandler(deps.Dispatcher, s.config.Slack.SigningSecret, s.logger)
		s.router.HandleFunc("/slack/events", slackHandler.Events).Methods("POST")
	}

	s.router.HandleFunc("/healthz", healthHandler.Liveness).Methods("GET")
	s.router.HandleFunc("/health", healthHandler.Health).Methods("GET")

	if s.prom != nil {
		s.router.Handle("/metrics", s.prom.Handler()).Methods("GET")
	}

	s.router.HandleFunc("/", s.serviceIndex).Methods("GET")
}

// setupMiddleware configures middleware for the API server.
func (s *Server) setupMiddleware() {
	s.router.Use(s.recoveryMiddleware)
	s.router.Use(s.requestIDMiddleware)
	s.router.Use(s.loggingMiddleware)

	if s.config.API.CORS.Enabled {
		corsOptions := gorillahandlers.AllowedOrigins(s.config.API.CORS.AllowedOrigins)
		corsHeaders := gorillahandlers.AllowedHeaders(s.config.API.CORS.AllowedHeaders)
		corsMethods := gorillahandlers.AllowedMethods(s.config.API.CORS.AllowedMethods)
		s.router.Use(gorillahandlers.CORS(corsOptions, corsHeaders, corsMethods))
	}
}

// serviceIndex returns service information for root requests.
func (s *Server) serviceIndex(w http.ResponseWriter, _ *http.Request) {
	response := map[string]interface{}{
		"service": "officewatch",
		"endpoints": map[string]string{
			"check":    "/check",
			"register": "/register",
			"users":    "/users",
			"health":   "/health",
			"metrics":  "/metrics",
		},
		"timestamp": time.Now().UTC(),
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		s.logger.Error("Failed to encode service index", "error", err)
	}
}

// GetRouter returns the configured router. Used by tests.
func (s *Server) GetRouter() *mux.Router {
	return s.router
}

// GetAddress returns the server address.
func (s *Server) GetAddress() string {
	return s.httpServer.Addr
}

// Middleware functions.

// recoveryMiddleware recovers from panics and returns a 500 error.
func (s *Server) recoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				s.logger.Error("Panic in API handler",
					"error", err,
					"path", r.URL.Path,
					"method", r.Method)
				http.Error(w, "internal server error", http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// requestIDMiddleware attaches a request id to the context, preferring an
// inbound X-Request-ID header.
func (s *Server) requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		ctx := context.WithValue(r.Context(), handlers.RequestIDKey, requestID)
		w.Header().Set("X-Request-ID", requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// loggingMiddleware logs HTTP requests and records request metrics.
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(wrapped, r)

		duration := time.Since(start)

		s.logger.Info("HTTP request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", wrapped.statusCode,
			"duration", duration,
			"remote_addr", r.RemoteAddr)

		if s.prom != nil {
			s.prom.ObserveHTTPRequest(r.Method, r.URL.Path,
				strconv.Itoa(wrapped.statusCode), duration)
		}
	})
}

// responseWriter wraps http.ResponseWriter to capture status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
