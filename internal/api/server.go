package api

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/skyroof/safetymonitor/internal/auth"
	"github.com/skyroof/safetymonitor/internal/infrastructure/config"
	"github.com/skyroof/safetymonitor/internal/infrastructure/logging"
	"github.com/skyroof/safetymonitor/internal/observability"
	"github.com/skyroof/safetymonitor/internal/safety"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// SafetyService is the decision engine surface the handlers call.
type SafetyService interface {
	Evaluate(ctx context.Context) safety.Decision
	SolarStatus(ctx context.Context) safety.SolarStatus
	LockoutPeriod(ctx context.Context) safety.LockoutPeriod
	Override(ctx context.Context) safety.Override
	SetOverride(ctx context.Context, o safety.Override) error
	SelectRoof(ctx context.Context, name string) error
	UpdateSolarSettings(ctx context.Context, in safety.SolarSettings) error
	Settings(ctx context.Context) safety.Settings
	Registry(ctx context.Context) safety.Registry
	RoofStatus(ctx context.Context) safety.RoofStatus
}

// HealthChecker is implemented by infrastructure clients that can report
// their own health.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Connectivity reports whether an optional client is connected.
type Connectivity interface {
	IsConnected() bool
}

// DBStatser exposes connection pool statistics.
type DBStatser interface {
	Stats() sql.DBStats
}

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config   config.APIConfig
	WS       config.WebSocketConfig
	Site     config.SiteConfig
	Logger   *logging.Logger
	Service  SafetyService
	Signer   *auth.Signer           // nil leaves the setup routes open
	Metrics  *observability.Metrics // nil disables /metrics
	Hub      *Hub                   // if set, the server uses this hub instead of creating its own
	Checks   map[string]HealthChecker
	MQTT     Connectivity
	DB       DBStatser
	Version  string
	UniqueID string
}

// Server is the HTTP API server.
//
// It manages the HTTP listener, routes, middleware, and WebSocket hub.
// The server is created with New() and started with Start().
type Server struct {
	cfg         config.APIConfig
	wsCfg       config.WebSocketConfig
	site        config.SiteConfig
	logger      *logging.Logger
	service     SafetyService
	signer      *auth.Signer
	metrics     *observability.Metrics
	checks      map[string]HealthChecker
	mqtt        Connectivity
	db          DBStatser
	version     string
	uniqueID    string
	startTime   time.Time
	hub         *Hub
	externalHub bool // true if hub was injected externally
	handler     http.Handler
	server      *http.Server
	listener    net.Listener
	cancel      context.CancelFunc // cancels background goroutines on Close()

	// transactionID numbers every Alpaca response.
	transactionID atomic.Uint32
}

// New creates a new API server with the given dependencies.
//
// The server is not started until Start() is called, but Handler() is
// usable immediately.
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Service == nil {
		return nil, fmt.Errorf("safety service is required")
	}

	s := &Server{
		cfg:       deps.Config,
		wsCfg:     deps.WS,
		site:      deps.Site,
		logger:    deps.Logger,
		service:   deps.Service,
		signer:    deps.Signer,
		metrics:   deps.Metrics,
		checks:    deps.Checks,
		mqtt:      deps.MQTT,
		db:        deps.DB,
		version:   deps.Version,
		uniqueID:  deps.UniqueID,
		startTime: time.Now(),
	}
	if s.uniqueID == "" {
		s.uniqueID = UniqueID(deps.Site.ID)
	}

	if deps.Hub != nil {
		s.hub = deps.Hub
		s.externalHub = true
	} else {
		s.hub = NewHub(s.wsCfg, s.logger)
	}

	s.handler = s.buildRouter()
	return s, nil
}

// Handler returns the fully wired router.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Hub returns the WebSocket hub.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Start binds the listener and serves in a background goroutine. A bind
// failure is returned immediately. The server can be stopped with Close().
func (s *Server) Start(ctx context.Context) error {
	var srvCtx context.Context
	srvCtx, s.cancel = context.WithCancel(ctx)

	if !s.externalHub {
		go s.hub.Run(srvCtx)
	}

	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           s.handler,
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	ln, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		s.cancel()
		return fmt.Errorf("listening on %s: %w", s.server.Addr, err)
	}
	s.listener = ln

	s.logger.Info("API server starting", "address", ln.Addr().String())
	go func() {
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	return nil
}

// Addr returns the bound listener address, or "" before Start.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Close gracefully shuts down the API server.
//
// It waits up to 10 seconds for in-flight requests to complete,
// then forcefully closes remaining connections.
func (s *Server) Close() error {
	if s.cancel != nil {
		s.cancel()
	}
	if s.server == nil {
		return nil
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
