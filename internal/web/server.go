package web

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/kozaktomas/facelens/internal/config"
	"github.com/kozaktomas/facelens/internal/controller"
	"github.com/kozaktomas/facelens/internal/logging"
	"github.com/kozaktomas/facelens/internal/web/middleware"
)

// Server represents the web server
type Server struct {
	config     *config.Config
	router     *chi.Mux
	httpServer *http.Server
	controller *controller.Controller
	validate   *validator.Validate

	// streams is the base context of every request. Cancelling it on
	// shutdown ends SSE and WebSocket streams, which Shutdown does not close.
	streams     context.Context
	stopStreams context.CancelFunc
}

// NewServer creates a new web server
func NewServer(cfg *config.Config, ctrl *controller.Controller) *Server {
	r := chi.NewRouter()

	streams, stopStreams := context.WithCancel(context.Background())
	s := &Server{
		config:      cfg,
		router:      r,
		controller:  ctrl,
		validate:    validator.New(),
		streams:     streams,
		stopStreams: stopStreams,
	}

	// Set up middleware stack
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(middleware.RequestLogger())
	r.Use(chiMiddleware.Recoverer)
	r.Use(middleware.CORS(cfg.Web.AllowedOrigins))

	// Set up routes
	s.setupRoutes()

	// Create HTTP server
	s.httpServer = &http.Server{
		Addr:        fmt.Sprintf("%s:%d", cfg.Web.Host, cfg.Web.Port),
		Handler:     r,
		ReadTimeout: 30 * time.Second,
		// No write timeout: event streams stay open for the lifetime of the client.
		IdleTimeout: 60 * time.Second,
		BaseContext: func(net.Listener) context.Context { return s.streams },
	}

	return s
}

// Start listens on the configured address and serves until Shutdown.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return s.Serve(ln)
}

// Serve accepts connections on ln until Shutdown.
func (s *Server) Serve(ln net.Listener) error {
	logging.Info(logging.Fields{"addr": ln.Addr().String()}, "starting web server")
	if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

// Shutdown ends open event streams and waits for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	logging.Info(nil, "shutting down web server")
	s.stopStreams()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down server: %w", err)
	}
	return nil
}

// Router returns the chi router for testing
func (s *Server) Router() *chi.Mux {
	return s.router
}
