package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/nerrad567/chimera-core/internal/device"
	"github.com/nerrad567/chimera-core/internal/infrastructure/config"
	"github.com/nerrad567/chimera-core/internal/infrastructure/logging"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config   config.APIConfig
	WS       config.WebSocketConfig
	Security config.SecurityConfig
	Logger   *logging.Logger
	Service  *device.Service
	Hub      *Hub     // optional; created when nil
	Metrics  *Metrics // optional; created when nil
	Checks   map[string]HealthChecker
	Version  string
}

// HealthChecker is an optional backend reported by /api/health.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Server is the HTTP API server for Chimera Core.
//
// It owns the HTTP listener, routes, middleware, and WebSocket hub.
// The server is created with New() and started with Start().
//
// Thread Safety: All methods are safe for concurrent use from multiple goroutines.
type Server struct {
	cfg     config.APIConfig
	secCfg  config.SecurityConfig
	logger  *logging.Logger
	service *device.Service
	hub     *Hub
	metrics *Metrics
	checks  map[string]HealthChecker
	version string
	router  http.Handler
	server  *http.Server
	cancel  context.CancelFunc // cancels background goroutines on Close()
}

// New creates a new API server with the given dependencies.
//
// The hub and metrics collector are registered as observers on the
// service, so New must run before the service handles mutations.
// The server is not listening until Start() is called.
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Service == nil {
		return nil, fmt.Errorf("device service is required")
	}

	s := &Server{
		cfg:     deps.Config,
		secCfg:  deps.Security,
		logger:  deps.Logger.With("component", "api"),
		service: deps.Service,
		hub:     deps.Hub,
		metrics: deps.Metrics,
		checks:  deps.Checks,
		version: deps.Version,
	}
	if s.hub == nil {
		s.hub = NewHub(deps.WS, deps.Logger)
	}
	if s.metrics == nil {
		s.metrics = NewMetrics()
	}

	s.service.AddObserver(s.hub)
	s.service.AddObserver(s.metrics)

	s.router = s.buildRouter()
	return s, nil
}

// Handler returns the fully wired router. Useful for httptest servers.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start begins listening for HTTP connections.
//
// It starts the WebSocket hub and launches the HTTP listener in a
// background goroutine. ctx bounds the hub, not the listener; stop the
// listener with Close(). Starting twice is an error.
func (s *Server) Start(ctx context.Context) error {
	if s.server != nil {
		return fmt.Errorf("api server already started")
	}

	var srvCtx context.Context
	srvCtx, s.cancel = context.WithCancel(ctx)
	go s.hub.Run(srvCtx)

	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           s.router,
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	go func() {
		var err error
		if s.cfg.TLS.Enabled {
			s.logger.Info("API server starting with TLS",
				"address", s.server.Addr,
				"cert", s.cfg.TLS.CertFile,
			)
			err = s.server.ListenAndServeTLS(s.cfg.TLS.CertFile, s.cfg.TLS.KeyFile)
		} else {
			s.logger.Info("API server starting", "address", s.server.Addr)
			err = s.server.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	return nil
}

// Close gracefully shuts down the API server.
//
// It waits up to 10 seconds for in-flight requests to complete,
// then forcefully closes remaining connections.
func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}

	if s.cancel != nil {
		s.cancel()
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("API server shutting down")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}
