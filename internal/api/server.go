package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/homebot/homebot-core/internal/control"
	"github.com/homebot/homebot-core/internal/identity"
	"github.com/homebot/homebot-core/internal/infrastructure/config"
	"github.com/homebot/homebot-core/internal/infrastructure/logging"
	"github.com/homebot/homebot-core/internal/sensor"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config   config.APIConfig
	WS       config.WebSocketConfig
	Security config.SecurityConfig
	Reports  config.ReportsConfig
	Metrics  config.MetricsConfig
	Logger   *logging.Logger
	Router   *control.Router
	Sensors  *sensor.Service
	Identity *identity.Gateway
	Hub      *Hub // optional; the router's notifier usually shares it
	Version  string
}

// Server is the HTTP API server for HomeBot Core.
//
// It manages the HTTP listener, routes, middleware, and WebSocket hub.
// The server is created with New() and started with Start().
type Server struct {
	cfg         config.APIConfig
	wsCfg       config.WebSocketConfig
	secCfg      config.SecurityConfig
	reportsCfg  config.ReportsConfig
	metricsCfg  config.MetricsConfig
	logger      *logging.Logger
	router      *control.Router
	sensors     *sensor.Service
	identity    *identity.Gateway
	version     string
	server      *http.Server
	hub         *Hub
	externalHub bool               // true if hub was injected
	cancel      context.CancelFunc // cancels background goroutines on Close()
	now         func() time.Time
}

// New creates a new API server with the given dependencies.
//
// The server is not started until Start() is called.
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Router == nil {
		return nil, fmt.Errorf("device state router is required")
	}
	if deps.Sensors == nil {
		return nil, fmt.Errorf("sensor service is required")
	}
	if deps.Identity == nil {
		return nil, fmt.Errorf("identity gateway is required")
	}

	s := &Server{
		cfg:        deps.Config,
		wsCfg:      deps.WS,
		secCfg:     deps.Security,
		reportsCfg: deps.Reports,
		metricsCfg: deps.Metrics,
		logger:     deps.Logger.With("component", "api"),
		router:     deps.Router,
		sensors:    deps.Sensors,
		identity:   deps.Identity,
		version:    deps.Version,
		hub:        deps.Hub,
		now:        time.Now,
	}
	if s.hub != nil {
		s.externalHub = true
	} else {
		s.hub = NewHub(deps.WS, deps.Logger)
	}
	if s.wsCfg.Path == "" {
		s.wsCfg.Path = "/ws"
	}
	return s, nil
}

// Hub returns the server's WebSocket hub.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Handler returns the fully wired HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.buildRouter()
}

// Start begins listening for HTTP connections in a background goroutine.
// The server can be stopped with Close().
func (s *Server) Start(ctx context.Context) error {
	var srvCtx context.Context
	srvCtx, s.cancel = context.WithCancel(ctx)

	// An injected hub is run by its owner.
	if !s.externalHub {
		go s.hub.Run(srvCtx)
	}

	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           s.buildRouter(),
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	go func() {
		s.logger.Info("API server starting", "address", s.server.Addr)
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
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

// HealthCheck verifies the API server is running.
func (s *Server) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("api health check: %w", ctx.Err())
	default:
	}

	if s.server == nil {
		return fmt.Errorf("api server not started")
	}

	return nil
}
