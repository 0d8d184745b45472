package serve

import (
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/zero-day-ai/sarcasm/component"
	"github.com/zero-day-ai/sarcasm/health"
	"github.com/zero-day-ai/sarcasm/registry"
)

// Config holds serve configuration.
type Config struct {
	// Name, Version and Profile are reported by discovery endpoints.
	Name    string
	Version string
	Profile string

	// HTTPAddr is the listen address of the HTTP surface.
	// Default: ":8080"
	HTTPAddr string

	// GRPCAddr is the listen address of the gRPC ToolService.
	// Empty disables gRPC.
	GRPCAddr string

	// BaseURL is the public URL advertised to MCP SSE clients.
	// Empty advertises relative message endpoints.
	BaseURL string

	// ShutdownTimeout is the maximum duration to wait for active
	// requests to complete during graceful shutdown.
	// Default: 10 seconds
	ShutdownTimeout time.Duration

	Logger         *slog.Logger
	TracerProvider trace.TracerProvider
	MeterProvider  metric.MeterProvider

	// Registry, when set, receives the running instance on start and is
	// deregistered on shutdown.
	Registry registry.Registry

	// Checks are run by GET /healthz.
	Checks []health.Check
}

// DefaultConfig returns default serve configuration.
func DefaultConfig() *Config {
	return &Config{
		Name:            component.DefaultName,
		Version:         component.DefaultVersion,
		Profile:         component.DefaultProfile,
		HTTPAddr:        component.DefaultHTTPAddr,
		ShutdownTimeout: 10 * time.Second,
		Logger:          slog.Default(),
	}
}

// Option is a functional option for configuring a Server.
type Option func(*Config)

// FromComponent copies the service settings of a loaded configuration file.
func FromComponent(cfg *component.Config) Option {
	return func(c *Config) {
		if cfg == nil {
			return
		}
		c.Name = cfg.Name
		c.Version = cfg.Version
		c.Profile = cfg.Profile
		for _, opt := range []Option{
			WithHTTPAddr(cfg.HTTP.Addr),
			WithGRPCAddr(cfg.GRPC.Addr),
			WithGracefulShutdown(cfg.HTTP.GetShutdownTimeout()),
		} {
			opt(c)
		}
	}
}

// WithHTTPAddr sets the HTTP listen address. Use ":0" to pick a free port.
func WithHTTPAddr(addr string) Option {
	return func(c *Config) {
		c.HTTPAddr = addr
	}
}

// WithGRPCAddr enables the gRPC ToolService on addr.
func WithGRPCAddr(addr string) Option {
	return func(c *Config) {
		c.GRPCAddr = addr
	}
}

// WithBaseURL sets the public URL advertised to MCP SSE clients.
func WithBaseURL(url string) Option {
	return func(c *Config) {
		c.BaseURL = url
	}
}

// WithGracefulShutdown sets the maximum duration to wait for active
// requests to complete during graceful shutdown.
func WithGracefulShutdown(timeout time.Duration) Option {
	return func(c *Config) {
		c.ShutdownTimeout = timeout
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Config) {
		c.Logger = logger
	}
}

// WithTelemetry instruments the transports with the providers of t.
func WithTelemetry(t *Telemetry) Option {
	return func(c *Config) {
		if t == nil {
			return
		}
		c.TracerProvider = t.TracerProvider
		c.MeterProvider = t.MeterProvider
	}
}

// WithRegistry enables service registration with the provided registry.
// The caller keeps ownership and closes it.
func WithRegistry(reg registry.Registry) Option {
	return func(c *Config) {
		c.Registry = reg
	}
}

// WithChecks adds dependency checks to GET /healthz.
func WithChecks(checks ...health.Check) Option {
	return func(c *Config) {
		c.Checks = append(c.Checks, checks...)
	}
}
