package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zero-day-ai/sarcasm/component"
	"github.com/zero-day-ai/sarcasm/dispatch"
	"github.com/zero-day-ai/sarcasm/queue"
	"github.com/zero-day-ai/sarcasm/sarcasm"
	"github.com/zero-day-ai/sarcasm/toolerr"
)

type harness struct {
	mr     *miniredis.Miniredis
	client *queue.RedisClient
	opts   Options
	done   chan error
	cancel context.CancelFunc
	once   sync.Once
}

func startWorker(t *testing.T, profile sarcasm.Profile) *harness {
	t.Helper()

	mr := miniredis.RunT(t)
	client, err := queue.NewRedisClient(queue.RedisOptions{URL: fmt.Sprintf("redis://%s", mr.Addr())})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	tools, err := profile.Tools(sarcasm.Fixed(0))
	require.NoError(t, err)
	reg, err := dispatch.NewRegistry(tools...)
	require.NoError(t, err)

	opts := Options{
		Client:          client,
		Version:         "2.0.0",
		Concurrency:     2,
		ShutdownTimeout: 5 * time.Second,
	}

	ctx, cancel := context.WithCancel(context.Background())
	h := &harness{mr: mr, client: client, opts: applyConfig(opts), done: make(chan error, 1), cancel: cancel}
	go func() { h.done <- Run(ctx, dispatch.New(reg), opts) }()

	require.Eventually(t, func() bool {
		n, err := client.GetWorkerCount(context.Background(), component.DefaultWorkerService)
		return err == nil && n == 1
	}, 5*time.Second, 10*time.Millisecond)

	t.Cleanup(func() { h.stop(t) })
	return h
}

func (h *harness) stop(t *testing.T) {
	h.once.Do(func() {
		h.cancel()
		select {
		case err := <-h.done:
			assert.NoError(t, err)
		case <-time.After(10 * time.Second):
			t.Error("worker did not stop")
		}
	})
}

func (h *harness) submit(t *testing.T, name string, args map[string]any) *queue.Result {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	res, err := queue.Submit(ctx, h.client, h.opts.QueueName(), name, args)
	require.NoError(t, err)
	return res
}

func TestRun_ProcessesItems(t *testing.T) {
	h := startWorker(t, sarcasm.ProfileConnector)

	res := h.submit(t, "motivation", map[string]any{"name": "Dave"})
	assert.False(t, res.HasError())
	assert.JSONEq(t, `"Cheer up, Dave. Things could be worse. You could be me listening to you."`, string(res.Content))
	assert.NotEmpty(t, res.WorkerID)
	assert.GreaterOrEqual(t, res.CompletedAt, res.StartedAt)

	res = h.submit(t, "fetch", map[string]any{"ids": []any{"1"}})
	assert.False(t, res.HasError())
	assert.Contains(t, string(res.Content), `"documents"`)
}

func TestRun_DefaultsApplied(t *testing.T) {
	h := startWorker(t, sarcasm.ProfileConnector)

	res := h.submit(t, "motivation", nil)
	assert.JSONEq(t, `"Cheer up, Human. Things could be worse. You could be me listening to you."`, string(res.Content))
}

func TestRun_UnknownToolIsSoftFailure(t *testing.T) {
	h := startWorker(t, sarcasm.ProfileConnector)

	res := h.submit(t, "nonexistent", nil)
	assert.False(t, res.HasError())
	assert.JSONEq(t, `{"error":"Unknown tool: nonexistent. Shocking."}`, string(res.Content))
}

func TestRun_InvalidInput(t *testing.T) {
	h := startWorker(t, sarcasm.ProfileConnector)

	res := h.submit(t, "search", map[string]any{})
	assert.True(t, res.HasError())
	assert.Equal(t, toolerr.ErrCodeInvalidInput, res.Code)
	assert.Contains(t, res.Error, "invalid arguments for search")
	assert.Empty(t, res.Content)
}

func TestRun_AnnouncesTools(t *testing.T) {
	h := startWorker(t, sarcasm.ProfileClassic)

	tools, err := h.client.ListTools(context.Background())
	require.NoError(t, err)
	require.Len(t, tools, 6)

	byName := map[string]queue.ToolMeta{}
	for _, meta := range tools {
		byName[meta.Name] = meta
	}
	roast := byName["roast_code_quality"]
	assert.Equal(t, "Code roast", roast.Title)
	assert.Equal(t, component.DefaultWorkerService, roast.Service)
	assert.Equal(t, "2.0.0", roast.Version)
	assert.True(t, roast.HasTag(sarcasm.TagClassic))
	assert.Contains(t, roast.Schema, `"language"`)

	assert.True(t, h.mr.Exists("tool:roast_code_quality:health"))
}

func TestRun_ShutdownReleasesWorkerCount(t *testing.T) {
	h := startWorker(t, sarcasm.ProfileConnector)

	h.stop(t)

	n, err := h.client.GetWorkerCount(context.Background(), component.DefaultWorkerService)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestRun_RequiresClientAndDispatcher(t *testing.T) {
	err := Run(context.Background(), dispatch.New(nil), Options{})
	assert.ErrorContains(t, err, "queue client is required")

	mr := miniredis.RunT(t)
	client, err := queue.NewRedisClient(queue.RedisOptions{URL: fmt.Sprintf("redis://%s", mr.Addr())})
	require.NoError(t, err)
	defer client.Close()

	err = Run(context.Background(), nil, Options{Client: client})
	assert.ErrorContains(t, err, "dispatcher is required")
}

func TestProcessWorkItem_InvalidItem(t *testing.T) {
	res := processWorkItem(context.Background(), dispatch.New(nil), queue.WorkItem{Name: "x"}, "w1", applyConfig(Options{}).Logger)
	assert.True(t, res.HasError())
	assert.Equal(t, toolerr.ErrCodeMalformedRequest, res.Code)
	assert.Equal(t, "w1", res.WorkerID)
}

func TestProcessWorkItem_LogsTimings(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	tools, err := sarcasm.ProfileConnector.Tools(sarcasm.Fixed(0))
	require.NoError(t, err)
	reg, err := dispatch.NewRegistry(tools...)
	require.NoError(t, err)

	item := queue.WorkItem{
		JobID:       "job-7",
		Name:        "tips_provider",
		SubmittedAt: time.Now().Add(-2 * time.Second).UnixMilli(),
	}
	res := processWorkItem(context.Background(), dispatch.New(reg), item, "w1", logger)
	require.False(t, res.HasError())
	assert.GreaterOrEqual(t, res.Duration(), time.Duration(0))

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "work item completed", entry["msg"])
	assert.Equal(t, "job-7", entry["job_id"])
	assert.GreaterOrEqual(t, entry["queued_for"].(float64), float64(2*time.Second))
	assert.Contains(t, entry, "duration")
}

func TestApplyConfig(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		opts := applyConfig(Options{})
		assert.Equal(t, component.DefaultWorkerService, opts.Service)
		assert.Equal(t, 4, opts.Concurrency)
		assert.Equal(t, 30*time.Second, opts.ShutdownTimeout)
		assert.Equal(t, 10*time.Second, opts.HeartbeatInterval)
		assert.Equal(t, "tool", opts.QueuePrefix)
		assert.Equal(t, DefaultPopTimeout, opts.PopTimeout)
		assert.Equal(t, "tool:sarcasm:queue", opts.QueueName())
	})

	t.Run("config file values", func(t *testing.T) {
		opts := applyConfig(Options{Config: &component.WorkerConfig{
			Concurrency:       8,
			ShutdownTimeout:   "1m",
			QueuePrefix:       "jobs",
			HeartbeatInterval: "5s",
			Service:           "roasts",
		}})
		assert.Equal(t, 8, opts.Concurrency)
		assert.Equal(t, time.Minute, opts.ShutdownTimeout)
		assert.Equal(t, 5*time.Second, opts.HeartbeatInterval)
		assert.Equal(t, "roasts", opts.Service)
		assert.Equal(t, "jobs:roasts:queue", opts.QueueName())
	})

	t.Run("explicit options win", func(t *testing.T) {
		opts := applyConfig(Options{
			Service:     "roasts",
			Concurrency: 1,
			Config:      &component.WorkerConfig{Concurrency: 8},
		})
		assert.Equal(t, 1, opts.Concurrency)
		assert.Equal(t, "tool:roasts:queue", opts.QueueName())
	})
}

func TestGenerateWorkerID(t *testing.T) {
	a, b := generateWorkerID(), generateWorkerID()
	assert.NotEqual(t, a, b)
	assert.Contains(t, a, fmt.Sprintf("-%d-", os.Getpid()))
}
