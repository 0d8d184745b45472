package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/zero-day-ai/sarcasm/component"
	"github.com/zero-day-ai/sarcasm/dispatch"
	"github.com/zero-day-ai/sarcasm/queue"
	"github.com/zero-day-ai/sarcasm/toolerr"
)

// DefaultPopTimeout bounds each blocking pop so cancellation is noticed.
const DefaultPopTimeout = time.Second

// Options configures the worker behavior.
type Options struct {
	// Client is the queue connection. Required.
	Client queue.Client

	// Service names the queue and the worker counter. Default: "sarcasm"
	Service string

	// Version is recorded in the announced tool metadata.
	Version string

	// Concurrency is the number of worker goroutines.
	// If 0, uses Config or the default (4).
	Concurrency int

	// ShutdownTimeout is the time to wait for in-flight items on shutdown.
	// If 0, uses Config or the default (30s).
	ShutdownTimeout time.Duration

	// HeartbeatInterval is the interval between tool heartbeats.
	// If 0, uses Config or the default (10s).
	HeartbeatInterval time.Duration

	// QueuePrefix is the Redis key prefix. If empty, uses Config or "tool".
	QueuePrefix string

	// PopTimeout bounds each blocking pop. Default: 1s
	PopTimeout time.Duration

	// Config is the worker section of the configuration file, if any.
	Config *component.WorkerConfig

	// Logger is the structured logger for worker operations.
	// If nil, slog.Default() is used.
	Logger *slog.Logger
}

// QueueName returns the queue the worker consumes from.
func (o Options) QueueName() string {
	return queue.QueueName(o.QueuePrefix, o.Service)
}

// Run announces every tool of d, then pops work items and runs them through
// d until ctx is done. Items already being processed when ctx is cancelled
// are allowed to finish within ShutdownTimeout.
//
// Configuration priority (highest to lowest):
//  1. Explicit Options values (if non-zero)
//  2. Options.Config
//  3. Default values
func Run(ctx context.Context, d *dispatch.Dispatcher, opts Options) error {
	if opts.Client == nil {
		return errors.New("worker: queue client is required")
	}
	if d == nil {
		return errors.New("worker: dispatcher is required")
	}
	opts = applyConfig(opts)

	workerID := generateWorkerID()
	logger := opts.Logger.With(
		"service", opts.Service,
		"worker_id", workerID,
	)

	if err := announce(ctx, opts, d); err != nil {
		logger.Error("failed to register tools", "error", err)
		return fmt.Errorf("failed to register tools: %w", err)
	}
	logger.Info("tools registered", "count", d.Registry().Len())

	if err := opts.Client.IncrementWorkerCount(ctx, opts.Service); err != nil {
		logger.Error("failed to increment worker count", "error", err)
	}
	defer func() {
		cleanupCtx, cleanupCancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cleanupCancel()
		if err := opts.Client.DecrementWorkerCount(cleanupCtx, opts.Service); err != nil {
			logger.Error("failed to decrement worker count", "error", err)
		}
	}()

	go runHeartbeat(ctx, opts.Client, d.Registry().Names(), opts.HeartbeatInterval, logger)

	var wg sync.WaitGroup
	queueName := opts.QueueName()
	for i := 0; i < opts.Concurrency; i++ {
		wg.Add(1)
		go func(workerNum int) {
			defer wg.Done()
			workerLoop(ctx, workerNum, d, opts, queueName, workerID, logger)
		}(i)
	}

	logger.Info("worker started",
		"workers", opts.Concurrency,
		"queue", queueName,
	)

	<-ctx.Done()
	logger.Info("initiating graceful shutdown", "reason", context.Cause(ctx))

	doneChan := make(chan struct{})
	go func() {
		wg.Wait()
		close(doneChan)
	}()

	select {
	case <-doneChan:
		logger.Info("worker shutdown complete")
	case <-time.After(opts.ShutdownTimeout):
		logger.Warn("worker shutdown timeout exceeded", "timeout", opts.ShutdownTimeout)
	}

	return nil
}

// announce stores the metadata of every tool so submitters can discover them.
func announce(ctx context.Context, opts Options, d *dispatch.Dispatcher) error {
	for _, desc := range d.ListTools() {
		schemaJSON, err := json.Marshal(desc.InputSchema)
		if err != nil {
			return fmt.Errorf("marshal schema for %s: %w", desc.Name, err)
		}
		meta := queue.ToolMeta{
			Name:        desc.Name,
			Title:       desc.Title,
			Description: desc.Description,
			Service:     opts.Service,
			Version:     opts.Version,
			Schema:      string(schemaJSON),
			Tags:        desc.Tags,
		}
		if err := opts.Client.RegisterTool(ctx, meta); err != nil {
			return err
		}
		if err := opts.Client.Heartbeat(ctx, desc.Name); err != nil {
			return err
		}
	}
	return nil
}

// runHeartbeat refreshes the health key of every tool until ctx is done.
func runHeartbeat(ctx context.Context, client queue.Client, names []string, interval time.Duration, logger *slog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, name := range names {
				if err := client.Heartbeat(ctx, name); err != nil {
					logger.Debug("heartbeat failed", "tool", name, "error", err)
				}
			}
		}
	}
}

// workerLoop pops and processes work items until ctx is cancelled.
func workerLoop(ctx context.Context, workerNum int, d *dispatch.Dispatcher, opts Options, queueName, workerID string, logger *slog.Logger) {
	logger = logger.With("worker_num", workerNum)
	logger.Debug("worker loop started", "queue", queueName)

	for {
		if ctx.Err() != nil {
			logger.Debug("worker loop stopped")
			return
		}

		item, err := opts.Client.Pop(ctx, queueName, opts.PopTimeout)
		if err != nil {
			if ctx.Err() != nil {
				logger.Debug("worker loop stopped")
				return
			}
			logger.Error("failed to pop work item", "error", err)
			continue
		}
		if item == nil {
			continue
		}

		logger.Info("received work item",
			"job_id", item.JobID,
			"tool", item.Name,
		)

		// The item was taken off the queue, so it runs to completion.
		workCtx := context.WithoutCancel(ctx)
		result := processWorkItem(workCtx, d, *item, workerID, logger)

		if err := opts.Client.Publish(workCtx, queue.ResultChannel(item.JobID), result); err != nil {
			logger.Error("failed to publish result", "job_id", item.JobID, "error", err)
		}
	}
}

// processWorkItem runs one item and always returns a result.
func processWorkItem(ctx context.Context, d *dispatch.Dispatcher, item queue.WorkItem, workerID string, logger *slog.Logger) queue.Result {
	queuedFor := item.Age()
	result := queue.Result{
		JobID:     item.JobID,
		WorkerID:  workerID,
		StartedAt: time.Now().UnixMilli(),
	}

	if err := item.IsValid(); err != nil {
		result.Error = err.Error()
		result.Code = toolerr.ErrCodeMalformedRequest
		result.CompletedAt = time.Now().UnixMilli()
		logger.Error("invalid work item", "job_id", item.JobID, "error", err)
		return result
	}

	res, err := d.RunTool(ctx, item.Name, item.Arguments)
	if err != nil {
		result.Error = err.Error()
		result.Code = toolerr.CodeOf(err)
		result.CompletedAt = time.Now().UnixMilli()
		logger.Error("tool execution failed", "job_id", item.JobID, "tool", item.Name, "error", err)
		return result
	}

	content, err := json.Marshal(res.Content)
	if err != nil {
		result.Error = fmt.Sprintf("failed to marshal content: %v", err)
		result.Code = toolerr.ErrCodeExecutionFailed
		result.CompletedAt = time.Now().UnixMilli()
		logger.Error("failed to marshal content", "job_id", item.JobID, "error", err)
		return result
	}

	result.Content = content
	result.CompletedAt = time.Now().UnixMilli()

	logger.Info("work item completed",
		"job_id", item.JobID,
		"tool", item.Name,
		"queued_for", queuedFor,
		"duration", result.Duration(),
	)

	return result
}

// generateWorkerID creates a unique identifier for this worker instance.
func generateWorkerID() string {
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}
	return fmt.Sprintf("%s-%d-%s", hostname, os.Getpid(), uuid.New().String()[:8])
}

// applyConfig fills unset options from opts.Config, whose getters carry
// the defaults.
func applyConfig(opts Options) Options {
	cfg := opts.Config
	if opts.Service == "" {
		opts.Service = cfg.GetService()
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = cfg.GetConcurrency()
	}
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = cfg.GetShutdownTimeout()
	}
	if opts.HeartbeatInterval <= 0 {
		opts.HeartbeatInterval = cfg.GetHeartbeatInterval()
	}
	if opts.QueuePrefix == "" {
		opts.QueuePrefix = cfg.GetQueuePrefix()
	}
	if opts.PopTimeout <= 0 {
		opts.PopTimeout = DefaultPopTimeout
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	opts.Logger = opts.Logger.With("component", "worker")
	return opts
}
