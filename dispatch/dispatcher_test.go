package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/zero-day-ai/sarcasm/sarcasm"
	"github.com/zero-day-ai/sarcasm/tool"
	"github.com/zero-day-ai/sarcasm/toolerr"
)

func newTestDispatcher(t *testing.T, profile sarcasm.Profile, opts ...Option) *Dispatcher {
	t.Helper()
	tools, err := profile.Tools(sarcasm.Fixed(0))
	require.NoError(t, err)
	reg, err := NewRegistry(tools...)
	require.NoError(t, err)
	return New(reg, opts...)
}

func toJSON(t *testing.T, v any) string {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return string(data)
}

func TestDispatcher_ListTools(t *testing.T) {
	d := newTestDispatcher(t, sarcasm.ProfileConnector)

	descs := d.ListTools()
	require.Len(t, descs, 5)

	seen := map[string]bool{}
	for _, desc := range descs {
		assert.NotEmpty(t, desc.Name)
		assert.NotEmpty(t, desc.Description)
		assert.Equal(t, "object", desc.InputSchema.Type)
		assert.False(t, seen[desc.Name], "duplicate %s", desc.Name)
		seen[desc.Name] = true
	}

	assert.Equal(t, d.ListTools(), descs, "listing is deterministic")
}

func TestDispatcher_ListTools_FetchSchema(t *testing.T) {
	d := newTestDispatcher(t, sarcasm.ProfileConnector)

	descs := d.ListTools()
	fetch := descs[4]
	assert.JSONEq(t, `{
		"name": "fetch",
		"title": "Fetch",
		"description": "Fetch full content of documents by ID.",
		"tags": ["catalog"],
		"input_schema": {
			"type": "object",
			"properties": {"ids": {"type": "array", "description": "Document ids to fetch", "items": {"type": "string"}}},
			"required": ["ids"]
		}
	}`, toJSON(t, fetch))
}

func TestDispatcher_RunTool(t *testing.T) {
	d := newTestDispatcher(t, sarcasm.ProfileConnector)
	ctx := context.Background()

	tests := []struct {
		name string
		tool string
		args map[string]any
		want string
	}{
		{
			name: "motivation with name",
			tool: "motivation",
			args: map[string]any{"name": "Dave"},
			want: `{"content":"Cheer up, Dave. Things could be worse. You could be me listening to you."}`,
		},
		{
			name: "motivation default",
			tool: "motivation",
			args: nil,
			want: `{"content":"Cheer up, Human. Things could be worse. You could be me listening to you."}`,
		},
		{
			name: "answer default question",
			tool: "answer_questions",
			args: map[string]any{},
			want: `{"content":"You asked: ''. And honestly? I wish you hadn’t."}`,
		},
		{
			name: "tips ignores extra args",
			tool: "tips_provider",
			args: map[string]any{"unused": 1},
			want: `{"content":"Have you tried turning your expectations down?"}`,
		},
		{
			name: "search hit",
			tool: "search",
			args: map[string]any{"query": "life"},
			want: `{"content":{"results":[{"id":"1","title":"Sarcastic Life Advice","summary":"Advice that definitely won't help."}]}}`,
		},
		{
			name: "search miss",
			tool: "search",
			args: map[string]any{"query": "zzz"},
			want: `{"content":{"results":[]}}`,
		},
		{
			name: "fetch drops unknown",
			tool: "fetch",
			args: map[string]any{"ids": []any{"1", "3"}},
			want: `{"content":{"documents":[{"id":"1","content":"This is the full sarcastic life advice document."}]}}`,
		},
		{
			name: "fetch empty",
			tool: "fetch",
			args: map[string]any{"ids": []any{}},
			want: `{"content":{"documents":[]}}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := d.RunTool(ctx, tt.tool, tt.args)
			require.NoError(t, err)
			assert.JSONEq(t, tt.want, toJSON(t, res))
		})
	}
}

func TestDispatcher_UnknownTool(t *testing.T) {
	d := newTestDispatcher(t, sarcasm.ProfileConnector)

	for _, name := range []string{"n", "Motivation", "", "roast_code_quality"} {
		res, err := d.RunTool(context.Background(), name, map[string]any{"x": 1})
		require.NoError(t, err)
		assert.Equal(t, UnknownTool(name), res)
		assert.JSONEq(t, `{"content":{"error":"Unknown tool: `+name+`. Shocking."}}`, toJSON(t, res))
	}
}

func TestDispatcher_UnknownToolLogsSuggestion(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	d := newTestDispatcher(t, sarcasm.ProfileConnector, WithLogger(logger))

	_, err := d.RunTool(context.Background(), "motivaton", nil)
	require.NoError(t, err)

	assert.Contains(t, buf.String(), `"suggestion":"motivation"`)
	assert.Contains(t, buf.String(), `"component":"dispatch"`)
}

func TestDispatcher_InvalidInput(t *testing.T) {
	d := newTestDispatcher(t, sarcasm.ProfileConnector)

	tests := []struct {
		name    string
		tool    string
		args    map[string]any
		message string
	}{
		{"search missing query", "search", nil, "invalid arguments for search: required field query is missing"},
		{"search wrong type", "search", map[string]any{"query": 3}, "invalid arguments for search: property query: expected string, got int"},
		{"fetch missing ids", "fetch", map[string]any{}, "invalid arguments for fetch: required field ids is missing"},
		{"fetch ids not array", "fetch", map[string]any{"ids": "1"}, "invalid arguments for fetch: property ids: expected array, got string"},
		{"fetch bad item", "fetch", map[string]any{"ids": []any{"1", 2.0}}, "invalid arguments for fetch: property ids: item 1: expected string, got float64"},
		{"motivation name null", "motivation", map[string]any{"name": nil}, "invalid arguments for motivation: property name: expected type string, got nil"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := d.RunTool(context.Background(), tt.tool, tt.args)
			require.Error(t, err)
			assert.Nil(t, res.Content)

			var toolErr *toolerr.Error
			require.ErrorAs(t, err, &toolErr)
			assert.Equal(t, toolerr.ErrCodeInvalidInput, toolErr.Code)
			assert.Equal(t, toolerr.ErrorClassSemantic, toolErr.Class)
			assert.Equal(t, tt.message, err.Error())
		})
	}
}

func TestDispatcher_DoesNotMutateArgs(t *testing.T) {
	d := newTestDispatcher(t, sarcasm.ProfileConnector)

	args := map[string]any{}
	_, err := d.RunTool(context.Background(), "motivation", args)
	require.NoError(t, err)
	assert.Empty(t, args)
}

func TestDispatcher_HandlerErrors(t *testing.T) {
	failing := tool.MustNew(tool.NewConfig().
		SetName("failing").
		SetDescription("always fails").
		SetExecuteFunc(func(context.Context, map[string]any) (any, error) {
			return nil, errors.New("boom")
		}))
	panicking := tool.MustNew(tool.NewConfig().
		SetName("panicking").
		SetDescription("always panics").
		SetExecuteFunc(func(context.Context, map[string]any) (any, error) {
			panic("kaboom")
		}))
	typed := tool.MustNew(tool.NewConfig().
		SetName("typed").
		SetDescription("returns a tool error").
		SetExecuteFunc(func(context.Context, map[string]any) (any, error) {
			return nil, toolerr.New("typed", "execute", toolerr.ErrCodeTimeout, "too slow")
		}))

	reg, err := NewRegistry(failing, panicking, typed)
	require.NoError(t, err)
	d := New(reg)

	_, err = d.RunTool(context.Background(), "failing", nil)
	require.Error(t, err)
	assert.Equal(t, toolerr.ErrCodeExecutionFailed, toolerr.CodeOf(err))
	assert.Equal(t, "failing [execute/EXECUTION_FAILED]: handler failed: boom", err.Error())
	assert.False(t, toolerr.IsRetryable(err))

	_, err = d.RunTool(context.Background(), "panicking", nil)
	require.Error(t, err)
	assert.Equal(t, toolerr.ErrCodeExecutionFailed, toolerr.CodeOf(err))
	assert.Contains(t, err.Error(), "kaboom")

	_, err = d.RunTool(context.Background(), "typed", nil)
	assert.Equal(t, toolerr.ErrCodeTimeout, toolerr.CodeOf(err))
}

func TestDispatcher_HandlerContextErrors(t *testing.T) {
	waiting := tool.MustNew(tool.NewConfig().
		SetName("waiting").
		SetDescription("returns the context error").
		SetExecuteFunc(func(ctx context.Context, _ map[string]any) (any, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		}))
	reg, err := NewRegistry(waiting)
	require.NoError(t, err)
	d := New(reg)

	t.Run("cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := d.RunTool(ctx, "waiting", nil)
		require.Error(t, err)
		assert.Equal(t, toolerr.ErrCodeExecutionFailed, toolerr.CodeOf(err))
		assert.True(t, toolerr.IsRetryable(err))
		assert.ErrorIs(t, err, context.Canceled)
	})

	t.Run("deadline", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(context.Background(), time.Millisecond)
		defer cancel()

		_, err := d.RunTool(ctx, "waiting", nil)
		require.Error(t, err)
		assert.Equal(t, toolerr.ErrCodeTimeout, toolerr.CodeOf(err))
		assert.True(t, toolerr.IsRetryable(err))
	})
}

func TestDispatcher_Call(t *testing.T) {
	d := newTestDispatcher(t, sarcasm.ProfileClassic)

	res, err := d.Call(context.Background(), Request{Name: "roast_code_quality", Arguments: map[string]any{"language": "Go"}})
	require.NoError(t, err)
	assert.Equal(t, "Go? Bold choice. Wrong, but bold.", res.Content)
}

func TestDispatcher_NilRegistry(t *testing.T) {
	d := New(nil)
	assert.Empty(t, d.ListTools())

	res, err := d.RunTool(context.Background(), "motivation", nil)
	require.NoError(t, err)
	assert.Equal(t, UnknownTool("motivation"), res)
}

func TestDispatcher_Concurrent(t *testing.T) {
	d := newTestDispatcher(t, sarcasm.ProfileConnector)

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := d.RunTool(context.Background(), "search", map[string]any{"query": "art"})
			assert.NoError(t, err)
			assert.Len(t, res.Content.(sarcasm.SearchResult).Results, 1)
		}()
	}
	wg.Wait()
}

func TestDispatcher_Spans(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	defer tp.Shutdown(context.Background())

	d := newTestDispatcher(t, sarcasm.ProfileConnector, WithTracerProvider(tp))

	_, _ = d.RunTool(context.Background(), "search", map[string]any{"query": "x"})
	_, _ = d.RunTool(context.Background(), "search", nil)

	spans := recorder.Ended()
	require.Len(t, spans, 2)

	outcome := func(i int) string {
		for _, kv := range spans[i].Attributes() {
			if kv.Key == "tool.outcome" {
				return kv.Value.AsString()
			}
		}
		return ""
	}

	assert.Equal(t, "dispatch.run_tool", spans[0].Name())
	assert.Equal(t, OutcomeOK, outcome(0))
	assert.Equal(t, OutcomeInvalid, outcome(1))
	assert.NotEmpty(t, spans[1].Events(), "error recorded as span event")
}

func TestDispatcher_Metrics(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer mp.Shutdown(context.Background())

	d := newTestDispatcher(t, sarcasm.ProfileConnector, WithMeterProvider(mp))
	ctx := context.Background()

	_, _ = d.RunTool(ctx, "tips_provider", nil)
	_, _ = d.RunTool(ctx, "tips_provider", nil)
	_, _ = d.RunTool(ctx, "nope", nil)
	_, _ = d.RunTool(ctx, "also-nope", nil)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))

	counts := map[string]int64{}
	series := 0
	var found bool
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != "sarcasm.tool.calls" {
				continue
			}
			found = true
			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok)
			series += len(sum.DataPoints)
			for _, dp := range sum.DataPoints {
				name, _ := dp.Attributes.Value(attribute.Key("tool.name"))
				counts[name.AsString()] += dp.Value
			}
		}
	}

	require.True(t, found, "call counter not exported")
	assert.Equal(t, int64(2), counts["tips_provider"])
	assert.Equal(t, int64(2), counts[UnknownToolLabel])
	assert.NotContains(t, counts, "nope")
	assert.NotContains(t, counts, "also-nope")
	assert.Equal(t, 2, series, "unknown names share one series")
}
