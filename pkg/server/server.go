package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"

	"mercator-hq/taskgate/pkg/config"
	"mercator-hq/taskgate/pkg/proxy/handlers"
	"mercator-hq/taskgate/pkg/proxy/middleware"
	"mercator-hq/taskgate/pkg/telemetry/health"
	"mercator-hq/taskgate/pkg/telemetry/metrics"
	"mercator-hq/taskgate/pkg/telemetry/tracing"
)

// Options holds the components the server routes to.
type Options struct {
	// Config is the full gateway configuration. Required.
	Config *config.Config

	// Forwarder serves the proxy route. Required.
	Forwarder handlers.Forwarder

	// Status serves the task status read path. Required.
	Status handlers.StatusReader

	// Health backs /health and /ready. Defaults to a checker with no checks.
	Health *health.Checker

	// Metrics backs the metrics endpoint when metrics are enabled.
	Metrics *metrics.Collector

	// Version, Commit and BuildTime are reported by /version.
	Version   string
	Commit    string
	BuildTime string

	Logger *slog.Logger
}

// Server is the gateway HTTP server.
type Server struct {
	opts         Options
	config       *config.ProxyConfig
	logger       *slog.Logger
	httpServer   *http.Server
	listener     net.Listener
	shutdownChan chan struct{}
	shutdownOnce sync.Once
	mu           sync.RWMutex
	isRunning    bool
}

// NewServer creates a new gateway server.
func NewServer(opts Options) (*Server, error) {
	if opts.Config == nil {
		return nil, errors.New("server requires a configuration")
	}
	if opts.Forwarder == nil {
		return nil, errors.New("server requires a forwarder")
	}
	if opts.Status == nil {
		return nil, errors.New("server requires a status reader")
	}
	if opts.Health == nil {
		opts.Health = health.New(0)
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	return &Server{
		opts:         opts,
		config:       &opts.Config.Proxy,
		logger:       opts.Logger.With("component", "server"),
		shutdownChan: make(chan struct{}),
	}, nil
}

// Start listens on the configured address and serves until ctx is
// cancelled, Stop is called, or the server fails.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return fmt.Errorf("server is already running")
	}

	ln, err := net.Listen("tcp", s.config.ListenAddress)
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("failed to listen on %s: %w", s.config.ListenAddress, err)
	}

	s.listener = ln
	s.httpServer = &http.Server{
		Handler:           s.Handler(),
		ReadTimeout:       s.config.ReadTimeout,
		ReadHeaderTimeout: s.config.ReadHeaderTimeout,
		WriteTimeout:      s.config.WriteTimeout,
		IdleTimeout:       s.config.IdleTimeout,
		MaxHeaderBytes:    s.config.MaxHeaderBytes,
		ErrorLog:          slog.NewLogLogger(s.logger.Handler(), slog.LevelWarn),
	}
	s.isRunning = true
	s.mu.Unlock()

	errChan := make(chan error, 1)
	go func() {
		s.logger.Info("starting gateway server",
			"address", ln.Addr().String(),
			"route_prefix", s.config.RoutePrefix,
			"upstream", s.opts.Config.Upstream.BaseURL,
		)

		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("context cancelled, initiating shutdown")
		return s.Shutdown(context.Background())
	case err := <-errChan:
		s.mu.Lock()
		s.isRunning = false
		s.mu.Unlock()
		return err
	case <-s.shutdownChan:
		s.logger.Info("shutdown requested")
		return s.Shutdown(context.Background())
	}
}

// Stop asks a running Start to shut down gracefully.
func (s *Server) Stop() {
	select {
	case <-s.shutdownChan:
	default:
		close(s.shutdownChan)
	}
}

// Shutdown gracefully shuts down the server, waiting up to the configured
// shutdown timeout for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.mu.Lock()
		if !s.isRunning {
			s.mu.Unlock()
			return
		}
		s.mu.Unlock()

		s.logger.Info("initiating graceful shutdown", "timeout", s.config.ShutdownTimeout.String())

		shutdownCtx, cancel := context.WithTimeout(ctx, s.config.ShutdownTimeout)
		defer cancel()

		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("error during server shutdown", "error", err)
			shutdownErr = fmt.Errorf("server shutdown error: %w", err)
			// Cut connections that outlived the timeout so their request
			// contexts are cancelled and their tasks are finalised.
			_ = s.httpServer.Close()
		}

		s.mu.Lock()
		s.isRunning = false
		s.mu.Unlock()

		s.logger.Info("gateway server stopped")
	})

	return shutdownErr
}

// Addr returns the bound listen address, or the configured one before
// Start.
func (s *Server) Addr() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.config.ListenAddress
}

// IsRunning returns true if the server is running.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// Handler returns the routed handler with the middleware chain applied.
func (s *Server) Handler() http.Handler {
	return s.setupRoutes()
}

// setupRoutes configures HTTP routes and middleware chain.
func (s *Server) setupRoutes() http.Handler {
	mux := http.NewServeMux()
	cfg := s.opts.Config

	var proxyHandler http.Handler = handlers.NewProxyHandler(s.opts.Forwarder, s.opts.Logger)
	proxyHandler = middleware.TaskIDMiddleware(proxyHandler)
	proxyHandler = tracing.HTTPMiddleware(proxyHandler)

	statusHandler := handlers.NewStatusHandler(
		s.opts.Status,
		cfg.Status.ListDefaultLimit,
		cfg.Status.ListMaxLimit,
		s.opts.Logger,
	)

	mux.HandleFunc("GET /tasks/status/{task_id}", statusHandler.Get)
	mux.HandleFunc("GET /tasks/status", statusHandler.List)
	mux.HandleFunc("GET /health", s.opts.Health.LivenessHandler())
	mux.HandleFunc("GET /ready", s.opts.Health.ReadinessHandler())
	mux.HandleFunc("GET /version", health.VersionHandler(s.opts.Version, s.opts.Commit, s.opts.BuildTime))

	if s.opts.Metrics != nil && s.opts.Metrics.Enabled() {
		mux.Handle("GET "+cfg.Telemetry.Metrics.Path, s.opts.Metrics.Handler())
	}

	// Apply middleware chain
	var handler http.Handler = dispatch(cfg.Proxy.RoutePrefix, proxyHandler, mux)

	// CORS middleware
	handler = middleware.CORSMiddleware(middleware.NewCORSConfig(cfg.Proxy.CORS))(handler)

	// Logging middleware
	handler = middleware.LoggingMiddleware(handler)

	// Recovery middleware (outermost)
	handler = middleware.RecoveryMiddleware(handler)

	return handler
}

// dispatch sends every path under prefix to proxy as it arrived and
// everything else to mux. ServeMux would clean "//" and ".." segments and
// answer them with a redirect instead of forwarding.
func dispatch(prefix string, proxy, mux http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, prefix) {
			proxy.ServeHTTP(w, r)
			return
		}
		mux.ServeHTTP(w, r)
	})
}
