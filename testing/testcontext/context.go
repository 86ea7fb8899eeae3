// Package testcontext provides a context with a working o11y provider for tests.
package testcontext

import (
	"context"

	"github.com/circleci/rfapi/config/o11y"
)

// ctx is a global singleton, initialised at package time because the
// honeycomb beeline it wraps is itself a global.
var ctx = newContext()

// Background returns a context for use in tests which contains a working o11y, so you get logs.
func Background() context.Context {
	return ctx
}

func newContext() context.Context {
	cx, _, err := o11y.Setup(context.Background(), o11y.Config{
		Format:  "color",
		Service: "test-service",
		Version: "test",
	})
	if err != nil {
		panic(err)
	}
	return cx
}
