package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Submit pushes an invocation of name onto queue and waits for its result.
// The caller's context bounds the wait.
func Submit(ctx context.Context, c Client, queue, name string, args map[string]any) (*Result, error) {
	item := WorkItem{
		JobID:       uuid.New().String(),
		Name:        name,
		Arguments:   args,
		SubmittedAt: time.Now().UnixMilli(),
	}

	subCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Subscribe before pushing so a fast worker cannot publish into the void.
	results, err := c.Subscribe(subCtx, ResultChannel(item.JobID))
	if err != nil {
		return nil, err
	}

	if err := c.Push(ctx, queue, item); err != nil {
		return nil, err
	}

	select {
	case res, ok := <-results:
		if !ok {
			if err := ctx.Err(); err != nil {
				return nil, fmt.Errorf("waiting for job %s: %w", item.JobID, err)
			}
			return nil, fmt.Errorf("result channel for job %s closed", item.JobID)
		}
		return &res, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("waiting for job %s: %w", item.JobID, ctx.Err())
	}
}
