// Package o11ygin wires the o11y provider into a gin engine, giving every
// request a span and a handler timing metric.
package o11ygin

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/circleci/rfapi/o11y"
)

const contextCancelledKey = "o11y-context-cancelled-key"

// statusClientClosedRequest is nginx's status for a client that went away first.
const statusClientClosedRequest = 499

type tracer struct {
	provider    o11y.Provider
	metrics     o11y.MetricsProvider
	server      string
	queryParams map[string]struct{}
}

// Middleware starts a span for each request, continuing any trace propagated
// in the request headers, and records the handler timing once the chain has run.
// Only the query params named in queryParams are added to the span.
func Middleware(provider o11y.Provider, serverName string, queryParams map[string]struct{}) gin.HandlerFunc {
	t := &tracer{
		provider:    provider,
		metrics:     provider.MetricsProvider(),
		server:      serverName,
		queryParams: queryParams,
	}
	return t.handle
}

func (t *tracer) handle(c *gin.Context) {
	start := time.Now()

	ctx := o11y.WithProvider(c.Request.Context(), t.provider)
	ctx, span := t.startSpan(ctx, c)
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	route := c.FullPath()
	if route == "" {
		c.Header("X-Route", "not-found")
	} else {
		c.Header("X-Route", route)
	}
	t.requestFields(span, c)

	defer func() {
		status := c.Writer.Status()
		if c.GetBool(contextCancelledKey) {
			status = statusClientClosedRequest
		}
		span.AddRawField("http.status_code", status)
		span.AddRawField("http.response_content_length", c.Writer.Size())

		elapsed := float64(time.Since(start).Nanoseconds()) / float64(time.Millisecond)
		_ = t.metrics.TimeInMilliseconds("handler", elapsed, []string{
			"http.server_name:" + t.server,
			"http.method:" + c.Request.Method,
			"http.route:" + route,
			"http.status_code:" + strconv.Itoa(status),
		}, 1)
	}()

	c.Next()
}

func (t *tracer) requestFields(span o11y.Span, c *gin.Context) {
	r := c.Request
	span.AddRawField("meta.type", "http_server")
	span.AddRawField("http.server_name", t.server)
	span.AddRawField("http.route", c.FullPath())
	span.AddRawField("http.method", r.Method)
	span.AddRawField("http.url", r.URL.String())
	span.AddRawField("http.host", r.Host)
	span.AddRawField("http.client_ip", c.ClientIP())
	span.AddRawField("http.user_agent", r.UserAgent())
	span.AddRawField("http.request_content_length", r.ContentLength)

	for _, p := range c.Params {
		span.AddRawField("handler.vars."+p.Key, p.Value)
	}
	for key, values := range r.URL.Query() {
		if _, ok := t.queryParams[key]; !ok {
			continue
		}
		var v interface{} = values
		if len(values) == 1 {
			v = values[0]
		}
		span.AddRawField("handler.query."+key, v)
	}
}

// startSpan continues the active trace, or the caller's if it sent trace headers.
func (t *tracer) startSpan(ctx context.Context, c *gin.Context) (context.Context, o11y.Span) {
	name := fmt.Sprintf("http-server %s: %s %s", t.server, c.Request.Method, c.FullPath())
	if t.provider.GetSpan(ctx) != nil {
		return o11y.StartSpan(ctx, name)
	}

	ctx, span := t.provider.Helpers().InjectPropagation(ctx, o11y.PropagationContextFromHeader(c.Request.Header))
	span.AddRawField("name", name)
	return ctx, span
}

// ClientCancelled reports a request whose context was cancelled, because the
// client went away, as a 499.
func ClientCancelled() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		c.Next()

		if errors.Is(ctx.Err(), context.Canceled) {
			c.Set(contextCancelledKey, true)
			return
		}
		if len(c.Errors) > 0 {
			o11y.AddField(ctx, "gin_internal_error", c.Errors.String())
		}
	}
}

// Recovery turns a handler panic into a 500, recording the panic on the request span.
func Recovery() gin.HandlerFunc {
	return gin.CustomRecoveryWithWriter(nil, func(c *gin.Context, recovered interface{}) {
		c.AbortWithStatus(http.StatusInternalServerError)

		ctx := c.Request.Context()
		span := o11y.FromContext(ctx).GetSpan(ctx)
		if span == nil {
			_, span = o11y.StartSpan(ctx, "panic")
			defer span.End()
		}

		// http.ErrAbortHandler means the client or a proxy went away mid response.
		// See https://github.com/golang/go/issues/28239
		if err, ok := recovered.(error); ok && errors.Is(err, http.ErrAbortHandler) {
			o11y.AddResultToSpan(span, err)
			return
		}
		_ = o11y.HandlePanic(ctx, span, recovered, c.Request)
	})
}
