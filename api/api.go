// Package api serves the counter over HTTP.
package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/circleci/rfapi/counter"
	"github.com/circleci/rfapi/httpserver/ginrouter"
	"github.com/circleci/rfapi/openapi"
)

// DefaultMaxBodyBytes is the request body limit used when Options leaves it unset.
const DefaultMaxBodyBytes = 1024

type API struct {
	router  *gin.Engine
	counter *counter.Service
	docs    []byte
}

type Options struct {
	Counter *counter.Service
	// Version is reported in the API description
	Version string
	// MaxBodyBytes bounds every request body. Defaults to DefaultMaxBodyBytes.
	MaxBodyBytes int64
}

func New(ctx context.Context, opts Options) (*API, error) {
	if opts.Counter == nil {
		opts.Counter = counter.NewService(nil)
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = DefaultMaxBodyBytes
	}

	docs, err := openapi.Describe(openapi.DefaultInfo(opts.Version)).JSON()
	if err != nil {
		return nil, fmt.Errorf("failed to render api description: %w", err)
	}

	r := ginrouter.Default(ctx, "api")
	a := &API{
		router:  r,
		counter: opts.Counter,
		docs:    docs,
	}

	r.Use(limitBody(opts.MaxBodyBytes))

	r.GET("/", a.getIndex)
	r.GET("/openapi.json", a.getDocs)
	r.GET("/counter", a.getCounter)
	r.PUT("/counter", a.putCounter)

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, errorResponse{
			ErrorCode: codeNotFound,
			Message:   fmt.Sprintf("no route for %s %s", c.Request.Method, c.Request.URL.Path),
		})
	})
	r.NoMethod(func(c *gin.Context) {
		c.JSON(http.StatusMethodNotAllowed, errorResponse{
			ErrorCode: codeMethodNotAllowed,
			Message:   fmt.Sprintf("%s is not supported on %s", c.Request.Method, c.Request.URL.Path),
		})
	})

	return a, nil
}

func (a *API) Handler() http.Handler {
	return a.router
}

func (a *API) getIndex(c *gin.Context) {
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte("testing abc"))
}

func (a *API) getDocs(c *gin.Context) {
	c.Data(http.StatusOK, "application/json", a.docs)
}
