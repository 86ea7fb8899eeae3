// Package termination turns process signals into an error for the system run group.
package termination

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/circleci/rfapi/o11y"
)

var ErrTerminated = errors.New("terminated")

// Handle blocks until SIGINT or SIGTERM is received, or ctx is done.
// On a signal it calls onSignal, if set, then waits for delay before returning
// ErrTerminated. onSignal is where servers are marked unready, so load
// balancers have the delay to stop routing requests to us.
func Handle(ctx context.Context, delay time.Duration, onSignal func()) error {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case sig := <-quit:
		o11y.Log(ctx, "termination: signal received",
			o11y.Field("signal", sig.String()),
			o11y.Field("delay", delay.String()),
		)
	case <-ctx.Done():
		return nil
	}
	if onSignal != nil {
		onSignal()
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
	}
	return ErrTerminated
}
