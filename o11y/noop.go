package o11y

import (
	"context"

	"github.com/DataDog/datadog-go/statsd"
)

var defaultProvider Provider = noopProvider{}

type noopProvider struct{}

func (noopProvider) AddGlobalField(string, interface{}) {}

func (noopProvider) StartSpan(ctx context.Context, _ string) (context.Context, Span) {
	return ctx, noopSpan{}
}

func (noopProvider) GetSpan(context.Context) Span                    { return noopSpan{} }
func (noopProvider) AddField(context.Context, string, interface{})        {}
func (noopProvider) AddFieldToTrace(context.Context, string, interface{}) {}
func (noopProvider) Log(context.Context, string, ...Pair)                 {}
func (noopProvider) Close(context.Context)                                {}
func (noopProvider) MetricsProvider() MetricsProvider                     { return &statsd.NoOpClient{} }
func (noopProvider) Helpers() Helpers                                     { return noopHelpers{} }

type noopHelpers struct{}

func (noopHelpers) ExtractPropagation(context.Context) PropagationContext {
	return PropagationContext{}
}

func (noopHelpers) InjectPropagation(ctx context.Context, _ PropagationContext) (context.Context, Span) {
	return ctx, noopSpan{}
}

func (noopHelpers) TraceIDs(context.Context) (traceID, parentID string) {
	return "", ""
}

type noopSpan struct{}

func (noopSpan) AddField(string, interface{})    {}
func (noopSpan) AddRawField(string, interface{}) {}
func (noopSpan) RecordMetric(Metric)             {}
func (noopSpan) End()                            {}
