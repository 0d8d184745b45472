// Package health aggregates dependency checks into the status served on /healthz.
package health

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/zero-day-ai/sarcasm/types"
)

// DefaultTimeout bounds a check whose context carries no deadline.
const DefaultTimeout = 5 * time.Second

// Check reports the state of one dependency.
type Check func(ctx context.Context) types.HealthStatus

// PingCheck adapts a ping function (redis Ping, etcd Status) to a Check.
// A failing ping marks the dependency degraded unless required is set, in
// which case it is unhealthy.
func PingCheck(name string, required bool, ping func(ctx context.Context) error) Check {
	return func(ctx context.Context) types.HealthStatus {
		if err := ping(ctx); err != nil {
			details := map[string]any{"dependency": name, "error": err.Error()}
			msg := fmt.Sprintf("%s unreachable", name)
			if required {
				return types.NewUnhealthyStatus(msg, details)
			}
			return types.NewDegradedStatus(msg, details)
		}
		return types.NewHealthyStatus(name + " ok")
	}
}

// AddressCheck reports whether a TCP connection to address can be opened.
// An unreachable address marks the dependency degraded.
func AddressCheck(name, address string) Check {
	return func(ctx context.Context) types.HealthStatus {
		status := NetworkCheck(ctx, address)
		if status.IsHealthy() {
			return types.NewHealthyStatus(name + " ok")
		}
		return types.NewDegradedStatus(fmt.Sprintf("%s unreachable", name), map[string]any{
			"dependency": name,
			"address":    address,
			"error":      status.Details["error"],
		})
	}
}

// NetworkCheck verifies TCP connectivity to address (host:port).
//
// Example:
//
//	ctx, cancel := context.WithTimeout(ctx, time.Second)
//	defer cancel()
//	status := health.NetworkCheck(ctx, "localhost:6379")
func NetworkCheck(ctx context.Context, address string) types.HealthStatus {
	host, port, err := net.SplitHostPort(address)
	if err != nil || port == "" {
		return types.NewUnhealthyStatus(
			fmt.Sprintf("invalid address: %q", address),
			map[string]any{"address": address},
		)
	}
	if host == "" {
		address = net.JoinHostPort("localhost", port)
	}

	if ctx == nil {
		ctx = context.Background()
	}
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, DefaultTimeout)
		defer cancel()
	}

	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "tcp", address)
	if err != nil {
		return types.NewUnhealthyStatus(
			fmt.Sprintf("failed to connect to %s", address),
			map[string]any{
				"address": address,
				"error":   err.Error(),
			},
		)
	}
	conn.Close()

	return types.NewHealthyStatus(fmt.Sprintf("connected to %s", address))
}

// Run executes every check and combines the results.
func Run(ctx context.Context, checks ...Check) types.HealthStatus {
	statuses := make([]types.HealthStatus, 0, len(checks))
	for _, check := range checks {
		statuses = append(statuses, check(ctx))
	}
	return Combine(statuses...)
}

// Combine aggregates multiple health checks into a single status.
// The result follows this priority:
//   - If any check is unhealthy, the result is unhealthy
//   - If any check is degraded (and none unhealthy), the result is degraded
//   - If all checks are healthy, the result is healthy
func Combine(checks ...types.HealthStatus) types.HealthStatus {
	if len(checks) == 0 {
		return types.NewHealthyStatus("no checks provided")
	}

	var unhealthy, degraded []string
	var healthyCount int

	for _, check := range checks {
		msg := check.Message
		if msg == "" {
			msg = "unnamed check"
		}
		switch {
		case check.IsUnhealthy():
			unhealthy = append(unhealthy, msg)
		case check.IsDegraded():
			degraded = append(degraded, msg)
		case check.IsHealthy():
			healthyCount++
		}
	}

	details := map[string]any{
		"total":     len(checks),
		"unhealthy": len(unhealthy),
		"degraded":  len(degraded),
		"healthy":   healthyCount,
	}

	switch {
	case len(unhealthy) > 0:
		details["failed_checks"] = unhealthy
		return types.NewUnhealthyStatus(fmt.Sprintf("%d check(s) failed", len(unhealthy)), details)
	case len(degraded) > 0:
		details["degraded_checks"] = degraded
		return types.NewDegradedStatus(fmt.Sprintf("%d check(s) degraded", len(degraded)), details)
	}

	return types.NewHealthyStatus(fmt.Sprintf("all %d check(s) passed", len(checks)))
}
