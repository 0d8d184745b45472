package queue

import (
	"context"
	"fmt"

	"github.com/zero-day-ai/sarcasm/health"
	"github.com/zero-day-ai/sarcasm/types"
)

// WorkerCheck reports the number of workers serving service. An unreachable
// Redis or an empty worker count marks the queue degraded.
func WorkerCheck(c Client, service string) health.Check {
	return func(ctx context.Context) types.HealthStatus {
		n, err := c.GetWorkerCount(ctx, service)
		if err != nil {
			return types.NewDegradedStatus("redis unreachable", map[string]any{
				"dependency": "redis",
				"error":      err.Error(),
			})
		}
		if n <= 0 {
			return types.NewDegradedStatus(fmt.Sprintf("no workers for %s", service), nil).
				WithDetail("service", service).
				WithDetail("workers", 0)
		}
		return types.NewHealthyStatus(fmt.Sprintf("%d worker(s) for %s", n, service)).
			WithDetail("service", service).
			WithDetail("workers", n)
	}
}
