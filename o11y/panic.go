package o11y

import (
	"context"
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/rollbar/rollbar-go"
)

// HandlePanic records a recovered panic on span and returns it as an error.
// When the provider reports to rollbar the panic goes there too, with the
// request attached if there is one.
func HandlePanic(ctx context.Context, span Span, recovered interface{}, r *http.Request) error {
	err := fmt.Errorf("panic handled: %+v", recovered)
	span.AddRawField("panic", recovered)
	span.AddRawField("has_panicked", "true")
	span.AddRawField("stack", string(debug.Stack()))
	span.RecordMetric(Incr("panics", "name"))

	if rb, ok := FromContext(ctx).(rollbarAble); ok {
		reportPanic(rb.RollBarClient(), recovered, err, r)
	}
	return err
}

type rollbarAble interface {
	RollBarClient() *rollbar.Client
}

func reportPanic(c *rollbar.Client, recovered interface{}, err error, r *http.Request) {
	if r == nil {
		c.LogPanic(recovered, true)
		return
	}
	c.RequestError(rollbar.CRIT, r, err)
}
