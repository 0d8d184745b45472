package serve

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/server"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	grpchealth "google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"

	"github.com/zero-day-ai/sarcasm/dispatch"
	"github.com/zero-day-ai/sarcasm/registry"
)

// Server runs the HTTP surface and, optionally, the gRPC ToolService over a
// single dispatcher.
type Server struct {
	config *Config
	logger *slog.Logger

	httpServer   *http.Server
	httpListener net.Listener
	sse          *server.SSEServer
	cancelBase   context.CancelFunc

	grpcServer   *grpc.Server
	grpcListener net.Listener
	healthServer *grpchealth.Server

	instance registry.ServiceInfo
}

// NewServer binds the configured listeners. Nothing is served until Serve.
func NewServer(d *dispatch.Dispatcher, opts ...Option) (*Server, error) {
	if d == nil {
		return nil, errors.New("serve: dispatcher is required")
	}

	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = DefaultConfig().ShutdownTimeout
	}

	s := &Server{
		config: cfg,
		logger: cfg.Logger.With("component", "serve"),
	}

	httpListener, err := net.Listen("tcp", cfg.HTTPAddr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", cfg.HTTPAddr, err)
	}
	s.httpListener = httpListener

	handler, sse := newHTTPHandler(d, cfg)
	baseCtx, cancel := context.WithCancel(context.Background())
	s.sse = sse
	s.cancelBase = cancel
	s.httpServer = &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return baseCtx },
	}

	if cfg.GRPCAddr != "" {
		grpcListener, err := net.Listen("tcp", cfg.GRPCAddr)
		if err != nil {
			httpListener.Close()
			cancel()
			return nil, fmt.Errorf("failed to listen on %s: %w", cfg.GRPCAddr, err)
		}
		s.grpcListener = grpcListener

		var grpcOpts []grpc.ServerOption
		if cfg.TracerProvider != nil || cfg.MeterProvider != nil {
			var otelOpts []otelgrpc.Option
			if cfg.TracerProvider != nil {
				otelOpts = append(otelOpts, otelgrpc.WithTracerProvider(cfg.TracerProvider))
			}
			if cfg.MeterProvider != nil {
				otelOpts = append(otelOpts, otelgrpc.WithMeterProvider(cfg.MeterProvider))
			}
			grpcOpts = append(grpcOpts, grpc.StatsHandler(otelgrpc.NewServerHandler(otelOpts...)))
		}

		s.grpcServer = grpc.NewServer(grpcOpts...)
		RegisterToolService(s.grpcServer, d)

		s.healthServer = grpchealth.NewServer()
		grpc_health_v1.RegisterHealthServer(s.grpcServer, s.healthServer)
		s.healthServer.SetServingStatus(ToolServiceName, grpc_health_v1.HealthCheckResponse_SERVING)
	}

	s.instance = registry.ServiceInfo{
		Kind:       registry.KindMCPServer,
		Name:       cfg.Name,
		Version:    cfg.Version,
		InstanceID: uuid.New().String(),
		Endpoint:   endpointURL(cfg.BaseURL, httpListener.Addr()),
		Metadata: map[string]string{
			"profile": cfg.Profile,
			"tools":   strings.Join(d.Registry().Names(), ","),
		},
	}
	if s.grpcListener != nil {
		s.instance.Metadata["grpc"] = s.grpcListener.Addr().String()
	}

	return s, nil
}

// HTTPAddr returns the bound HTTP address. Useful with ":0".
func (s *Server) HTTPAddr() string {
	return s.httpListener.Addr().String()
}

// GRPCAddr returns the bound gRPC address, or "" when gRPC is disabled.
func (s *Server) GRPCAddr() string {
	if s.grpcListener == nil {
		return ""
	}
	return s.grpcListener.Addr().String()
}

// Instance returns the registration record of this process.
func (s *Server) Instance() registry.ServiceInfo {
	return s.instance
}

// Serve blocks until ctx is done or a listener fails, then shuts down
// gracefully. A shutdown triggered by ctx returns nil.
func (s *Server) Serve(ctx context.Context) error {
	errCh := make(chan error, 2)

	go func() {
		if err := s.httpServer.Serve(s.httpListener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	if s.grpcServer != nil {
		go func() {
			if err := s.grpcServer.Serve(s.grpcListener); err != nil {
				errCh <- fmt.Errorf("gRPC server error: %w", err)
			}
		}()
	}

	s.logger.Info("server started",
		"name", s.config.Name,
		"profile", s.config.Profile,
		"http", s.HTTPAddr(),
		"grpc", s.GRPCAddr(),
	)

	s.register(ctx)

	var serveErr error
	select {
	case <-ctx.Done():
		s.logger.Info("shutting down", "reason", context.Cause(ctx))
	case serveErr = <-errCh:
		s.logger.Error("server failed", "error", serveErr)
	}

	return errors.Join(serveErr, s.Shutdown())
}

// Shutdown deregisters the instance and stops both transports, waiting up
// to ShutdownTimeout for in-flight requests.
func (s *Server) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
	defer cancel()

	if s.config.Registry != nil {
		if err := s.config.Registry.Deregister(ctx, s.instance); err != nil {
			s.logger.Warn("failed to deregister", "error", err)
		}
	}

	if s.healthServer != nil {
		s.healthServer.Shutdown()
	}

	if err := s.sse.Shutdown(ctx); err != nil {
		s.logger.Debug("sse shutdown", "error", err)
	}
	// SSE streams only end when their request context does.
	s.cancelBase()

	var errs []error
	if err := s.httpServer.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("HTTP shutdown: %w", err))
		s.httpServer.Close()
	}

	if s.grpcServer != nil {
		done := make(chan struct{})
		go func() {
			s.grpcServer.GracefulStop()
			close(done)
		}()

		select {
		case <-done:
		case <-ctx.Done():
			s.logger.Warn("graceful shutdown timeout, forcing stop")
			s.grpcServer.Stop()
		}
	}

	s.logger.Info("server stopped")
	return errors.Join(errs...)
}

func (s *Server) register(ctx context.Context) {
	if s.config.Registry == nil {
		return
	}

	s.instance.StartedAt = time.Now()
	if err := s.config.Registry.Register(ctx, s.instance); err != nil {
		s.logger.Warn("failed to register with registry", "error", err)
		return
	}
	s.logger.Info("registered with registry",
		"instance_id", s.instance.InstanceID,
		"endpoint", s.instance.Endpoint,
	)
}

// endpointURL prefers the configured public URL; otherwise it derives one
// from the bound address, using the hostname for wildcard binds.
func endpointURL(baseURL string, addr net.Addr) string {
	if baseURL != "" {
		return baseURL
	}
	host, port, err := net.SplitHostPort(addr.String())
	if err != nil {
		return "http://" + addr.String()
	}
	if ip := net.ParseIP(host); ip == nil || ip.IsUnspecified() {
		if hostname, err := os.Hostname(); err == nil {
			host = hostname
		}
	}
	return "http://" + net.JoinHostPort(host, port)
}
