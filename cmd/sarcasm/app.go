package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/urfave/cli/v3"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/zero-day-ai/sarcasm/component"
	"github.com/zero-day-ai/sarcasm/dispatch"
	"github.com/zero-day-ai/sarcasm/health"
	"github.com/zero-day-ai/sarcasm/queue"
	"github.com/zero-day-ai/sarcasm/registry"
	"github.com/zero-day-ai/sarcasm/sarcasm"
	"github.com/zero-day-ai/sarcasm/serve"
	"github.com/zero-day-ai/sarcasm/worker"
)

func newApp() *cli.Command {
	return &cli.Command{
		Name:    "sarcasm",
		Usage:   "Absolutely not helpful tools over HTTP, MCP, gRPC and Redis",
		Version: appVersion(),

		Suggest: true,

		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Configuration file or directory (default: search upwards for sarcasm.yaml)",
				Sources: cli.EnvVars("SARCASM_CONFIG"),
			},
			&cli.StringFlag{
				Name:    "profile",
				Usage:   "Tool profile: connector or classic",
				Sources: cli.EnvVars("SARCASM_PROFILE"),
			},
			&cli.StringFlag{
				Name:    "expose",
				Usage:   "CEL expression over name, title and tags selecting the exposed tools",
				Sources: cli.EnvVars("SARCASM_EXPOSE"),
			},
			&cli.StringFlag{
				Name:    "log-format",
				Usage:   "Log format: text or json",
				Sources: cli.EnvVars("SARCASM_LOG_FORMAT"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level: debug, info, warn or error",
				Sources: cli.EnvVars("SARCASM_LOG_LEVEL"),
			},
		},

		Commands: []*cli.Command{
			serveCommand(),
			workerCommand(),
			toolsCommand(),
			callCommand(),
		},
	}
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the tools over HTTP, MCP and optionally gRPC",

		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "http-addr",
				Usage:   "HTTP listen address",
				Sources: cli.EnvVars("SARCASM_HTTP_ADDR"),
			},
			&cli.StringFlag{
				Name:    "grpc-addr",
				Usage:   "gRPC listen address (empty disables gRPC)",
				Sources: cli.EnvVars("SARCASM_GRPC_ADDR"),
			},
			&cli.StringFlag{
				Name:    "base-url",
				Usage:   "Public URL advertised to MCP clients and the registry",
				Sources: cli.EnvVars("SARCASM_BASE_URL"),
			},
			&cli.StringSliceFlag{
				Name:    "registry-endpoints",
				Usage:   "etcd endpoints to register this instance with",
				Sources: cli.EnvVars("SARCASM_REGISTRY_ENDPOINTS"),
			},
			&cli.BoolFlag{
				Name:    "tracing",
				Usage:   "Export traces over OTLP/HTTP",
				Sources: cli.EnvVars("SARCASM_TRACING"),
			},
			&cli.BoolFlag{
				Name:    "metrics",
				Usage:   "Export metrics over OTLP/HTTP",
				Sources: cli.EnvVars("SARCASM_METRICS"),
			},
		},

		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			logger := newLogger(cfg.Log, cmd.Root().ErrWriter)

			tel, err := serve.NewTelemetry(ctx, serve.TelemetryConfig{
				ServiceName:    cfg.Name,
				ServiceVersion: cfg.Version,
				Tracing:        cfg.Telemetry.Tracing,
				Metrics:        cfg.Telemetry.Metrics,
			}, logger)
			if err != nil {
				return err
			}
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
				defer cancel()
				if err := tel.Shutdown(shutdownCtx); err != nil {
					logger.Warn("telemetry shutdown", "error", err)
				}
			}()

			d, err := buildDispatcher(cfg, logger, tel)
			if err != nil {
				return err
			}

			opts := []serve.Option{
				serve.FromComponent(cfg),
				serve.WithBaseURL(cmd.String("base-url")),
				serve.WithLogger(logger),
				serve.WithTelemetry(tel),
			}

			if cfg.Registry != nil {
				reg, err := registry.NewClient(registry.Config{
					Endpoints: cfg.Registry.Endpoints,
					Namespace: cfg.Registry.GetNamespace(),
					TTL:       cfg.Registry.GetTTL(),
				}, logger)
				if err != nil {
					logger.Warn("service registry unavailable, continuing unregistered", "error", err)
				} else {
					defer reg.Close()
					opts = append(opts,
						serve.WithRegistry(reg),
						serve.WithChecks(health.PingCheck("etcd", false, reg.Ping)),
					)
				}
			}

			if cfg.Redis != nil {
				check, closeRedis, err := redisCheck(cfg, logger)
				if err != nil {
					return err
				}
				defer closeRedis()
				opts = append(opts, serve.WithChecks(check))
			}

			srv, err := serve.NewServer(d, opts...)
			if err != nil {
				return err
			}
			logger.Info("starting server", "instance_id", srv.Instance().InstanceID, "profile", cfg.Profile)
			return srv.Serve(ctx)
		},
	}
}

func workerCommand() *cli.Command {
	return &cli.Command{
		Name:  "worker",
		Usage: "Run tools from the Redis work queue",

		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "redis-url",
				Usage:   "Redis connection URL",
				Sources: cli.EnvVars("SARCASM_REDIS_URL"),
			},
			&cli.IntFlag{
				Name:    "concurrency",
				Usage:   "Number of worker goroutines",
				Sources: cli.EnvVars("SARCASM_WORKER_CONCURRENCY"),
			},
			serviceFlag(),
		},

		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			logger := newLogger(cfg.Log, cmd.Root().ErrWriter)

			d, err := buildDispatcher(cfg, logger, nil)
			if err != nil {
				return err
			}

			client, err := queue.NewRedisClient(queue.RedisOptions{URL: cfg.Redis.GetURL()})
			if err != nil {
				return err
			}
			defer client.Close()

			return worker.Run(ctx, d, worker.Options{
				Client:      client,
				Service:     cfg.Worker.GetService(),
				Version:     cfg.Version,
				Concurrency: int(cmd.Int("concurrency")),
				Config:      cfg.Worker,
				Logger:      logger,
			})
		},
	}
}

func toolsCommand() *cli.Command {
	return &cli.Command{
		Name:  "tools",
		Usage: "Print the exposed tool descriptors as JSON",

		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "queue",
				Usage: "List the tools workers announced in Redis instead of the local ones",
			},
			&cli.StringFlag{
				Name:    "redis-url",
				Usage:   "Redis connection URL used with --queue",
				Sources: cli.EnvVars("SARCASM_REDIS_URL"),
			},
			&cli.StringFlag{
				Name:  "tag",
				Usage: "Only list announced tools carrying this tag (with --queue)",
			},
		},

		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if cmd.Bool("queue") {
				client, err := queue.NewRedisClient(queue.RedisOptions{URL: cfg.Redis.GetURL()})
				if err != nil {
					return err
				}
				defer client.Close()

				announced, err := announcedTools(ctx, client, cmd.String("tag"))
				if err != nil {
					return err
				}
				return printJSON(cmd.Root().Writer, announced)
			}
			d, err := buildDispatcher(cfg, newLogger(cfg.Log, cmd.Root().ErrWriter), nil)
			if err != nil {
				return err
			}
			return printJSON(cmd.Root().Writer, d.ListTools())
		},
	}
}

func callCommand() *cli.Command {
	return &cli.Command{
		Name:      "call",
		Usage:     "Invoke a tool and print the result envelope",
		ArgsUsage: "<name> [json-arguments]",

		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "grpc-target",
				Usage: "Call a running ToolService instead of dispatching locally",
			},
			&cli.BoolFlag{
				Name:  "queue",
				Usage: "Submit the call to the Redis work queue and wait for a worker",
			},
			&cli.StringFlag{
				Name:    "redis-url",
				Usage:   "Redis connection URL used with --queue",
				Sources: cli.EnvVars("SARCASM_REDIS_URL"),
			},
			serviceFlag(),
			&cli.BoolFlag{
				Name:  "discover",
				Usage: "Find a registered instance with gRPC in etcd and call it",
			},
			&cli.StringSliceFlag{
				Name:    "registry-endpoints",
				Usage:   "etcd endpoints used with --discover",
				Sources: cli.EnvVars("SARCASM_REGISTRY_ENDPOINTS"),
			},
			&cli.DurationFlag{
				Name:  "timeout",
				Usage: "Maximum time to wait for a remote result",
				Value: 30 * time.Second,
			},
		},

		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.Args().Len() < 1 {
				return errors.New("call: tool name is required")
			}
			name := cmd.Args().Get(0)

			args, err := parseArguments(cmd.Args().Get(1))
			if err != nil {
				return err
			}

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			logger := newLogger(cfg.Log, cmd.Root().ErrWriter)

			ctx, cancel := context.WithTimeout(ctx, cmd.Duration("timeout"))
			defer cancel()

			target := cmd.String("grpc-target")
			if cmd.Bool("discover") && target == "" {
				target, err = discoverTarget(ctx, cfg, logger)
				if err != nil {
					return err
				}
			}

			var res dispatch.Result
			switch {
			case target != "":
				res, err = callGRPC(ctx, target, name, args)
			case cmd.Bool("queue"):
				res, err = callQueue(ctx, cfg, name, args)
			default:
				var d *dispatch.Dispatcher
				d, err = buildDispatcher(cfg, logger, nil)
				if err == nil {
					res, err = d.RunTool(ctx, name, args)
				}
			}
			if err != nil {
				return err
			}
			return printJSON(cmd.Root().Writer, res)
		},
	}
}

// loadConfig reads the configuration file, if any, and overlays every
// flag that was set explicitly or through its environment variable.
func loadConfig(cmd *cli.Command) (*component.Config, error) {
	var (
		cfg *component.Config
		err error
	)
	if path := cmd.String("config"); path != "" {
		cfg, err = component.Load(path)
	} else {
		cfg, err = component.LoadFromCurrentDir()
		if errors.Is(err, component.ErrNotFound) {
			cfg, err = component.Default(), nil
		}
	}
	if err != nil {
		return nil, err
	}

	if cmd.IsSet("profile") {
		cfg.Profile = cmd.String("profile")
	}
	if cmd.IsSet("expose") {
		cfg.Expose = cmd.String("expose")
	}
	if cmd.IsSet("log-format") {
		cfg.Log.Format = cmd.String("log-format")
	}
	if cmd.IsSet("log-level") {
		cfg.Log.Level = cmd.String("log-level")
	}
	if hasFlag(cmd, "http-addr") && cmd.IsSet("http-addr") {
		cfg.HTTP.Addr = cmd.String("http-addr")
	}
	if hasFlag(cmd, "grpc-addr") && cmd.IsSet("grpc-addr") {
		cfg.GRPC.Addr = cmd.String("grpc-addr")
	}
	if hasFlag(cmd, "redis-url") && cmd.IsSet("redis-url") {
		cfg.Redis = &component.RedisConfig{URL: cmd.String("redis-url")}
	}
	if hasFlag(cmd, "registry-endpoints") && cmd.IsSet("registry-endpoints") {
		if cfg.Registry == nil {
			cfg.Registry = &component.RegistryConfig{}
		}
		cfg.Registry.Endpoints = cmd.StringSlice("registry-endpoints")
	}
	if hasFlag(cmd, "service") && cmd.IsSet("service") {
		if cfg.Worker == nil {
			cfg.Worker = &component.WorkerConfig{}
		}
		cfg.Worker.Service = cmd.String("service")
	}
	if hasFlag(cmd, "tracing") && cmd.IsSet("tracing") {
		cfg.Telemetry.Tracing = cmd.Bool("tracing")
	}
	if hasFlag(cmd, "metrics") && cmd.IsSet("metrics") {
		cfg.Telemetry.Metrics = cmd.Bool("metrics")
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func hasFlag(cmd *cli.Command, name string) bool {
	for _, f := range cmd.Flags {
		for _, n := range f.Names() {
			if n == name {
				return true
			}
		}
	}
	return false
}

// buildDispatcher builds the profile's tools, applies the exposure filter
// and wraps the resulting registry.
func buildDispatcher(cfg *component.Config, logger *slog.Logger, tel *serve.Telemetry) (*dispatch.Dispatcher, error) {
	profile, err := sarcasm.ParseProfile(cfg.Profile)
	if err != nil {
		return nil, err
	}
	tools, err := profile.Tools(sarcasm.DefaultSource())
	if err != nil {
		return nil, err
	}
	tools, err = dispatch.FilterTools(cfg.Expose, tools)
	if err != nil {
		return nil, err
	}
	reg, err := dispatch.NewRegistry(tools...)
	if err != nil {
		return nil, err
	}

	opts := []dispatch.Option{dispatch.WithLogger(logger)}
	if tel != nil {
		opts = append(opts,
			dispatch.WithTracerProvider(tel.TracerProvider),
			dispatch.WithMeterProvider(tel.MeterProvider),
		)
	}
	return dispatch.New(reg, opts...), nil
}

func callGRPC(ctx context.Context, target, name string, args map[string]any) (dispatch.Result, error) {
	conn, err := grpc.NewClient(target, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return dispatch.Result{}, fmt.Errorf("dial %s: %w", target, err)
	}
	defer conn.Close()

	return serve.NewToolServiceClient(conn).CallTool(ctx, name, args)
}

func callQueue(ctx context.Context, cfg *component.Config, name string, args map[string]any) (dispatch.Result, error) {
	client, err := queue.NewRedisClient(queue.RedisOptions{URL: cfg.Redis.GetURL()})
	if err != nil {
		return dispatch.Result{}, err
	}
	defer client.Close()

	queueName := queue.QueueName(cfg.Worker.GetQueuePrefix(), cfg.Worker.GetService())
	res, err := queue.Submit(ctx, client, queueName, name, args)
	if err != nil {
		return dispatch.Result{}, err
	}
	if res.HasError() {
		return dispatch.Result{}, fmt.Errorf("%s (%s)", res.Error, res.Code)
	}

	var content any
	if err := json.Unmarshal(res.Content, &content); err != nil {
		return dispatch.Result{}, fmt.Errorf("decode result: %w", err)
	}
	return dispatch.Result{Content: content}, nil
}

// parseArguments decodes the optional JSON object argument of call.
func parseArguments(raw string) (map[string]any, error) {
	if raw == "" {
		return nil, nil
	}
	var args map[string]any
	if err := json.Unmarshal([]byte(raw), &args); err != nil {
		return nil, fmt.Errorf("arguments must be a JSON object: %w", err)
	}
	return args, nil
}

func newLogger(cfg component.LogConfig, w io.Writer) *slog.Logger {
	if w == nil {
		w = os.Stderr
	}
	opts := &slog.HandlerOptions{Level: cfg.SlogLevel()}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

func printJSON(w io.Writer, v any) error {
	if w == nil {
		w = os.Stdout
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func appVersion() string {
	if version != "" {
		return version
	}
	return component.DefaultVersion
}
