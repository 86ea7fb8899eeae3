// Package o11y provides observability in the form of tracing and metrics.
//
// There is no separate logger in rfapi. Log lines are zero duration spans, and
// every unit of work (a request, a startup step, a worker loop) is a span with
// fields attached.
package o11y

import (
	"context"
	"errors"
	"net/http"
)

// Provider is the backend spans and metrics are sent to. Application code
// reaches it through the package functions, which find it on the context.
type Provider interface {
	// AddGlobalField adds a field to every span, such as version or mode.
	AddGlobalField(key string, val interface{})

	// StartSpan begins a unit of work. The caller must end it, usually with
	//
	//	ctx, span := o11y.StartSpan(ctx, "api: put-counter")
	//	defer o11y.End(span, &err)
	StartSpan(ctx context.Context, name string) (context.Context, Span)

	// GetSpan returns the active span, or nil.
	GetSpan(ctx context.Context) Span

	// AddField adds an "app." prefixed field to the active span.
	AddField(ctx context.Context, key string, val interface{})

	// AddFieldToTrace adds an "app." prefixed field to the root span and every span below it.
	AddFieldToTrace(ctx context.Context, key string, val interface{})

	// Log sends a zero duration span.
	Log(ctx context.Context, name string, fields ...Pair)

	// Close flushes anything buffered. Spans sent after Close are dropped.
	Close(ctx context.Context)

	// MetricsProvider sends metrics directly, outside of any span.
	MetricsProvider() MetricsProvider

	Helpers() Helpers
}

type Span interface {
	// AddField adds an "app." prefixed field.
	AddField(key string, val interface{})

	// AddRawField adds an unprefixed field. It is meant for plumbing such as
	// result, warning or http.status_code.
	AddRawField(key string, val interface{})

	// RecordMetric emits metric from the span's fields when it ends.
	RecordMetric(metric Metric)

	// End sends the span. It must not be used afterwards.
	End()
}

// Helpers carry trace context across process boundaries.
type Helpers interface {
	ExtractPropagation(ctx context.Context) PropagationContext
	// InjectPropagation starts a root span continuing the propagated trace.
	InjectPropagation(context.Context, PropagationContext) (context.Context, Span)
	// TraceIDs is mostly useful in tests.
	TraceIDs(ctx context.Context) (traceID, parentID string)
}

// PropagationContext holds the trace headers passed between services.
type PropagationContext struct {
	// Parent is the serialised trace parent on its own.
	Parent string
	// Headers holds every propagation header.
	Headers http.Header
}

// PropagationContextFromHeader reads the propagation headers of an incoming request.
func PropagationContextFromHeader(h http.Header) PropagationContext {
	return PropagationContext{Headers: h}
}

type providerKey struct{}

// WithProvider returns a child context carrying p.
func WithProvider(ctx context.Context, p Provider) context.Context {
	return context.WithValue(ctx, providerKey{}, p)
}

// FromContext returns the provider on ctx, or a provider that discards everything.
func FromContext(ctx context.Context) Provider {
	if p, ok := ctx.Value(providerKey{}).(Provider); ok {
		return p
	}
	return defaultProvider
}

func StartSpan(ctx context.Context, name string) (context.Context, Span) {
	return FromContext(ctx).StartSpan(ctx, name)
}

func AddField(ctx context.Context, key string, val interface{}) {
	FromContext(ctx).AddField(ctx, key, val)
}

func AddFieldToTrace(ctx context.Context, key string, val interface{}) {
	FromContext(ctx).AddFieldToTrace(ctx, key, val)
}

func Log(ctx context.Context, name string, fields ...Pair) {
	FromContext(ctx).Log(ctx, name, fields...)
}

// LogError sends a zero duration span recording err.
func LogError(ctx context.Context, name string, err error, fields ...Pair) {
	_, span := StartSpan(ctx, name)
	for _, f := range fields {
		span.AddField(f.Key, f.Value)
	}
	End(span, &err)
}

// End records the outcome held in *err, which may be nil, and sends the span.
// Pass the address of a named return so the deferred call sees its final value:
//
//	defer o11y.End(span, &err)
func End(span Span, err *error) {
	var e error
	if err != nil {
		e = *err
	}
	AddResultToSpan(span, e)
	span.End()
}

// AddResultToSpan sets the result field and, for failures, the error or warning field.
//
//   - nil: result=success
//   - a warning: result=success, warning=<message>
//   - cancellation or deadline: result=canceled, warning=<message>
//   - anything else: result=error, error=<message>
func AddResultToSpan(span Span, err error) {
	switch {
	case err == nil:
		span.AddRawField("result", "success")
	case IsWarning(err):
		span.AddRawField("result", "success")
		span.AddRawField("warning", err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		span.AddRawField("result", "canceled")
		span.AddRawField("warning", err.Error())
	default:
		span.AddRawField("result", "error")
		span.AddRawField("error", err.Error())
	}
}

// Pair is a field passed to Log.
type Pair struct {
	Key   string
	Value interface{}
}

func Field(key string, value interface{}) Pair {
	return Pair{Key: key, Value: value}
}
