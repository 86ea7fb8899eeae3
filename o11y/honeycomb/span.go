package honeycomb

import (
	"context"
	"net/http"

	"github.com/honeycombio/beeline-go/propagation"
	"github.com/honeycombio/beeline-go/trace"

	"github.com/circleci/rfapi/o11y"
)

// WrapSpan adapts a beeline span to o11y.Span. It returns nil for a nil span.
func WrapSpan(s *trace.Span) o11y.Span {
	if s == nil {
		return nil
	}
	return &span{span: s}
}

type span struct {
	span    *trace.Span
	metrics []o11y.Metric
}

func (s *span) AddField(key string, val interface{}) {
	s.AddRawField("app."+key, val)
}

func (s *span) AddRawField(key string, val interface{}) {
	mustValidateKey(key)
	if err, ok := val.(error); ok {
		val = err.Error()
	}
	s.span.AddField(key, val)
}

func (s *span) RecordMetric(m o11y.Metric) {
	s.metrics = append(s.metrics, m)
	s.span.AddField(metricKey, s.metrics)
}

func (s *span) End() {
	s.span.Send()
}

type helpers struct{}

func (helpers) ExtractPropagation(ctx context.Context) o11y.PropagationContext {
	s := trace.GetSpanFromContext(ctx)
	if s == nil {
		return o11y.PropagationContext{}
	}
	parent := s.SerializeHeaders()
	return o11y.PropagationContext{
		Parent: parent,
		Headers: http.Header{
			propagation.TracePropagationHTTPHeader: []string{parent},
		},
	}
}

// InjectPropagation prefers the honeycomb header and falls back to w3c traceparent.
// Without either a fresh trace is started.
func (helpers) InjectPropagation(ctx context.Context, p o11y.PropagationContext) (context.Context, o11y.Span) {
	var prop *propagation.PropagationContext

	hc := p.Parent
	if hc == "" {
		hc = p.Headers.Get(propagation.TracePropagationHTTPHeader)
	}
	if hc != "" {
		prop, _ = propagation.UnmarshalHoneycombTraceContext(hc)
	} else if tp := p.Headers.Get(propagation.TraceparentHeader); tp != "" {
		_, prop, _ = propagation.UnmarshalW3CTraceContext(ctx, map[string]string{
			propagation.TraceparentHeader: tp,
		})
	}

	ctx, tr := trace.NewTrace(ctx, prop)
	return ctx, WrapSpan(tr.GetRootSpan())
}

func (helpers) TraceIDs(ctx context.Context) (traceID, parentID string) {
	t := trace.GetTraceFromContext(ctx)
	if t == nil {
		return "", ""
	}
	return t.GetTraceID(), t.GetParentID()
}
