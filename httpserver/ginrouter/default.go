// Package ginrouter builds the gin engines rfapi serves, with o11y already wired in.
package ginrouter

import (
	"context"
	"sync"

	"github.com/gin-gonic/gin"

	"github.com/circleci/rfapi/o11y"
	"github.com/circleci/rfapi/o11y/wrappers/o11ygin"
)

type Option func(*options)

type options struct {
	queryParams map[string]struct{}
}

// WithTracedQueryParams records the named query parameters on request spans.
// Others are never recorded, since they may carry data that should not be logged.
func WithTracedQueryParams(names ...string) Option {
	return func(o *options) {
		if o.queryParams == nil {
			o.queryParams = map[string]struct{}{}
		}
		for _, n := range names {
			o.queryParams[n] = struct{}{}
		}
	}
}

var releaseMode sync.Once

// Default returns an engine which traces each request with the provider in ctx,
// recovers from handler panics and reports client cancellations as 499.
// A known path requested with the wrong method is answered with 405, not 404.
func Default(ctx context.Context, serverName string, opts ...Option) *gin.Engine {
	releaseMode.Do(func() {
		gin.SetMode(gin.ReleaseMode)
	})

	var o options
	for _, opt := range opts {
		opt(&o)
	}

	r := gin.New()
	r.UseRawPath = true
	r.HandleMethodNotAllowed = true
	r.Use(
		o11ygin.Middleware(o11y.FromContext(ctx), serverName, o.queryParams),
		o11ygin.Recovery(),
		o11ygin.ClientCancelled(),
	)
	return r
}
