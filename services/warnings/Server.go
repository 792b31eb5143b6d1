package warnings

import (
	"context"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/ordishs/gocore"
	"github.com/peercoin/warnd/errors"
	"github.com/peercoin/warnd/settings"
	"github.com/peercoin/warnd/ulogger"
	"github.com/peercoin/warnd/util/health"
)

// Server exposes a Registry over HTTP.
type Server struct {
	logger   ulogger.Logger
	settings *settings.Settings
	registry *Registry
	stats    *gocore.Stat

	e         *echo.Echo
	startTime time.Time

	mu       sync.Mutex
	listener net.Listener
	checks   []health.Check
}

// New will return a server instance with the logger stored within it
func New(logger ulogger.Logger, tSettings *settings.Settings, registry *Registry) *Server {
	initPrometheusMetrics()

	return &Server{
		logger:   logger,
		settings: tSettings,
		registry: registry,
		stats:    gocore.NewStat("warnings"),
	}
}

// AddHealthCheck includes check in the readiness result of Health.
func (s *Server) AddHealthCheck(check health.Check) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.checks = append(s.checks, check)
}

// Health returns 200 for liveness as long as the process runs. Readiness
// also runs every check added with AddHealthCheck.
func (s *Server) Health(ctx context.Context, checkLiveness bool) (int, string, error) {
	prometheusHealth.Inc()

	if checkLiveness {
		return http.StatusOK, "OK", nil
	}

	s.mu.Lock()
	checks := make([]health.Check, len(s.checks))
	copy(checks, s.checks)
	s.mu.Unlock()

	return health.CheckAll(ctx, checkLiveness, checks)
}

func (s *Server) Init(_ context.Context) error {
	if s.registry == nil {
		return errors.NewConfigurationError("[Warnings] registry is required")
	}

	s.e = s.newEcho()
	s.startTime = time.Now()

	return nil
}

// Start serves until ctx is cancelled or Stop is called.
func (s *Server) Start(ctx context.Context) error {
	if s.e == nil {
		return errors.NewServiceNotStartedError("[Warnings] Start called before Init")
	}

	addr := s.settings.Warnings.HTTPListenAddress

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return errors.NewServiceError("[Warnings] failed to listen on %s", addr, err)
	}

	s.mu.Lock()
	s.listener = listener
	s.mu.Unlock()

	s.e.Listener = listener

	go func() {
		<-ctx.Done()

		s.logger.Infof("[Warnings] HTTP service shutting down")

		if err := s.e.Shutdown(context.Background()); err != nil {
			s.logger.Errorf("[Warnings] HTTP service shutdown error: %s", err)
		}
	}()

	s.logger.Infof("[Warnings] HTTP service listening on %s", listener.Addr())

	if err = s.e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.NewServiceError("[Warnings] HTTP service failed", err)
	}

	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	if s.e == nil {
		return nil
	}

	return s.e.Shutdown(ctx)
}

// Addr is the address the server is listening on, nil before Start.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listener == nil {
		return nil
	}

	return s.listener.Addr()
}

// Handler returns the router, available after Init.
func (s *Server) Handler() http.Handler {
	return s.e
}
