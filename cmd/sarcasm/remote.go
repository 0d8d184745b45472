package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"slices"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/zero-day-ai/sarcasm/component"
	"github.com/zero-day-ai/sarcasm/health"
	"github.com/zero-day-ai/sarcasm/queue"
	"github.com/zero-day-ai/sarcasm/registry"
)

func serviceFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:    "service",
		Usage:   "Queue service name (default: " + component.DefaultWorkerService + ")",
		Sources: cli.EnvVars("SARCASM_WORKER_SERVICE"),
	}
}

// redisCheck reports the queue's workers when Redis answers at startup and
// only its TCP reachability otherwise.
func redisCheck(cfg *component.Config, logger *slog.Logger) (health.Check, func(), error) {
	client, err := queue.NewRedisClient(queue.RedisOptions{URL: cfg.Redis.GetURL()})
	if err == nil {
		return queue.WorkerCheck(client, cfg.Worker.GetService()), func() { client.Close() }, nil
	}

	addr, addrErr := queue.RedisAddr(cfg.Redis.GetURL())
	if addrErr != nil {
		return nil, nil, addrErr
	}
	logger.Warn("redis unavailable, reporting reachability only", "addr", addr, "error", err)
	return health.AddressCheck("redis", addr), func() {}, nil
}

// announcement is the output of tools --queue.
type announcement struct {
	Tools   []queue.ToolMeta `json:"tools"`
	Workers map[string]int   `json:"workers"`
}

// announcedTools lists the tools workers registered in Redis, sorted by
// name, with the worker count of every service they belong to.
func announcedTools(ctx context.Context, c queue.Client, tag string) (announcement, error) {
	metas, err := c.ListTools(ctx)
	if err != nil {
		return announcement{}, err
	}

	out := announcement{Tools: []queue.ToolMeta{}, Workers: map[string]int{}}
	for _, meta := range metas {
		if tag != "" && !meta.HasTag(tag) {
			continue
		}
		out.Tools = append(out.Tools, meta)

		if _, ok := out.Workers[meta.Service]; ok {
			continue
		}
		n, err := c.GetWorkerCount(ctx, meta.Service)
		if err != nil {
			return announcement{}, err
		}
		out.Workers[meta.Service] = n
	}

	slices.SortFunc(out.Tools, func(a, b queue.ToolMeta) int {
		return strings.Compare(a.Name, b.Name)
	})
	return out, nil
}

// discoverTarget looks up the instances of cfg.Name in etcd and returns the
// gRPC address of the first one serving gRPC.
func discoverTarget(ctx context.Context, cfg *component.Config, logger *slog.Logger) (string, error) {
	if cfg.Registry == nil || len(cfg.Registry.Endpoints) == 0 {
		return "", errors.New("call --discover: no registry endpoints configured")
	}

	reg, err := registry.NewClient(registry.Config{
		Endpoints: cfg.Registry.Endpoints,
		Namespace: cfg.Registry.GetNamespace(),
		TTL:       cfg.Registry.GetTTL(),
	}, logger)
	if err != nil {
		return "", err
	}
	defer reg.Close()

	instances, err := reg.Discover(ctx, registry.KindMCPServer, cfg.Name)
	if err != nil {
		return "", err
	}
	return grpcTarget(instances)
}

// grpcTarget picks the first instance advertising a gRPC address. A wildcard
// listen host is replaced by the host of the instance endpoint.
func grpcTarget(instances []registry.ServiceInfo) (string, error) {
	for _, info := range instances {
		host, port, err := net.SplitHostPort(info.Metadata["grpc"])
		if err != nil {
			continue
		}
		if ip := net.ParseIP(host); host == "" || (ip != nil && ip.IsUnspecified()) {
			u, err := url.Parse(info.Endpoint)
			if err != nil || u.Hostname() == "" {
				continue
			}
			host = u.Hostname()
		}
		return net.JoinHostPort(host, port), nil
	}
	return "", fmt.Errorf("no registered instance serves gRPC (%d found)", len(instances))
}
