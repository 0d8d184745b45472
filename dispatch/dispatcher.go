package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/zero-day-ai/sarcasm/tool"
	"github.com/zero-day-ai/sarcasm/toolerr"
)

const instrumentationName = "github.com/zero-day-ai/sarcasm/dispatch"

// Outcome values recorded on spans and the call counter.
const (
	OutcomeOK      = "ok"
	OutcomeUnknown = "unknown_tool"
	OutcomeInvalid = "invalid_input"
	OutcomeError   = "error"
)

// UnknownToolLabel is the tool.name metric label recorded for every
// unregistered name. Spans and logs keep the requested name.
const UnknownToolLabel = "_unknown"

// Request is an invocation of a named tool.
type Request struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments,omitempty"`
}

// Result is the uniform invocation envelope.
type Result struct {
	Content any `json:"content"`
}

// UnknownTool builds the soft-failure result for a name that is not registered.
func UnknownTool(name string) Result {
	return Result{Content: map[string]any{
		"error": fmt.Sprintf("Unknown tool: %s. Shocking.", name),
	}}
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithLogger sets the logger. Default: slog.Default()
func WithLogger(logger *slog.Logger) Option {
	return func(d *Dispatcher) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// WithTracerProvider sets the provider used for invocation spans.
// Default: the global provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(d *Dispatcher) {
		if tp != nil {
			d.tracerProvider = tp
		}
	}
}

// WithMeterProvider sets the provider used for call metrics.
// Default: the global provider.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(d *Dispatcher) {
		if mp != nil {
			d.meterProvider = mp
		}
	}
}

// Dispatcher lists and runs the tools of a Registry. It holds no mutable
// state and is safe for concurrent use.
type Dispatcher struct {
	registry *Registry
	logger   *slog.Logger

	tracerProvider trace.TracerProvider
	meterProvider  metric.MeterProvider

	tracer   trace.Tracer
	calls    metric.Int64Counter
	duration metric.Float64Histogram
}

// New creates a dispatcher over registry. A nil registry is treated as empty.
func New(registry *Registry, opts ...Option) *Dispatcher {
	if registry == nil {
		registry, _ = NewRegistry()
	}

	d := &Dispatcher{
		registry:       registry,
		logger:         slog.Default(),
		tracerProvider: otel.GetTracerProvider(),
		meterProvider:  otel.GetMeterProvider(),
	}
	for _, opt := range opts {
		opt(d)
	}
	d.logger = d.logger.With("component", "dispatch")

	d.tracer = d.tracerProvider.Tracer(instrumentationName)
	meter := d.meterProvider.Meter(instrumentationName)

	var err error
	d.calls, err = meter.Int64Counter(
		"sarcasm.tool.calls",
		metric.WithDescription("Number of tool invocations"),
		metric.WithUnit("1"),
	)
	if err != nil {
		d.logger.Warn("failed to create call counter", "error", err)
	}
	d.duration, err = meter.Float64Histogram(
		"sarcasm.tool.duration",
		metric.WithDescription("Tool invocation duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		d.logger.Warn("failed to create duration histogram", "error", err)
	}

	return d
}

// Registry returns the registry the dispatcher serves.
func (d *Dispatcher) Registry() *Registry {
	return d.registry
}

// ListTools returns the descriptors of every tool in registration order.
func (d *Dispatcher) ListTools() []tool.Descriptor {
	return d.registry.Descriptors()
}

// Call runs req.
func (d *Dispatcher) Call(ctx context.Context, req Request) (Result, error) {
	return d.RunTool(ctx, req.Name, req.Arguments)
}

// RunTool invokes the named tool. Absent parameters are filled from their
// schema defaults and the result is validated before the handler runs; args
// itself is never modified.
//
// An unknown name is not an error: the returned Result carries the
// UnknownTool content. Invalid arguments yield a *toolerr.Error with code
// INVALID_INPUT; handler failures yield EXECUTION_FAILED.
func (d *Dispatcher) RunTool(ctx context.Context, name string, args map[string]any) (res Result, err error) {
	ctx, span := d.tracer.Start(ctx, "dispatch.run_tool",
		trace.WithAttributes(attribute.String("tool.name", name)))
	start := time.Now()
	outcome := OutcomeOK

	defer func() {
		span.SetAttributes(attribute.String("tool.outcome", outcome))
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
		d.record(ctx, name, outcome, time.Since(start))
	}()

	t, ok := d.registry.Lookup(name)
	if !ok {
		outcome = OutcomeUnknown
		d.logger.WarnContext(ctx, "unknown tool requested",
			"tool", name,
			"suggestion", d.registry.Suggest(name),
		)
		return UnknownTool(name), nil
	}

	input := t.InputSchema()
	callArgs := input.ApplyDefaults(args)
	if verr := input.Validate(callArgs); verr != nil {
		outcome = OutcomeInvalid
		d.logger.DebugContext(ctx, "invalid tool arguments", "tool", name, "error", verr)
		return Result{}, toolerr.InvalidInput(name, verr)
	}

	content, err := d.execute(ctx, t, callArgs)
	if err != nil {
		outcome = OutcomeError
		if toolerr.CodeOf(err) == toolerr.ErrCodeInvalidInput {
			outcome = OutcomeInvalid
		}
		d.logger.ErrorContext(ctx, "tool execution failed", "tool", name, "error", err)
		return Result{}, err
	}

	return Result{Content: content}, nil
}

func (d *Dispatcher) execute(ctx context.Context, t tool.Tool, args map[string]any) (content any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = toolerr.New(t.Name(), "execute", toolerr.ErrCodeExecutionFailed, "handler panicked").
				WithCause(fmt.Errorf("%v", r))
		}
	}()

	content, err = t.Execute(ctx, args)
	if err == nil {
		return content, nil
	}

	var toolErr *toolerr.Error
	if errors.As(err, &toolErr) {
		return nil, err
	}
	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		return nil, toolerr.New(t.Name(), "execute", toolerr.ErrCodeTimeout, "handler timed out").WithCause(err)
	case ctx.Err() != nil:
		return nil, toolerr.New(t.Name(), "execute", toolerr.ErrCodeExecutionFailed, "handler cancelled").
			WithCause(err).
			WithClass(toolerr.ErrorClassTransient)
	}
	return nil, toolerr.New(t.Name(), "execute", toolerr.ErrCodeExecutionFailed, "handler failed").WithCause(err)
}

func (d *Dispatcher) record(ctx context.Context, name, outcome string, elapsed time.Duration) {
	if outcome == OutcomeUnknown {
		name = UnknownToolLabel
	}
	attrs := metric.WithAttributes(
		attribute.String("tool.name", name),
		attribute.String("tool.outcome", outcome),
	)
	if d.calls != nil {
		d.calls.Add(ctx, 1, attrs)
	}
	if d.duration != nil {
		d.duration.Record(ctx, float64(elapsed.Microseconds())/1000, attrs)
	}
}
