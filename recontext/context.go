// Package recontext derives contexts that outlive their parent's cancellation
// while keeping its values, such as the o11y provider.
package recontext

import (
	"context"
	"time"
)

// detached hides the parent's deadline and cancellation but not its values.
// It is only ever handed out wrapped in a context with its own timeout.
type detached struct{ context.Context }

func (detached) Deadline() (deadline time.Time, ok bool) { return time.Time{}, false }
func (detached) Done() <-chan struct{}                   { return nil }
func (detached) Err() error                              { return nil }

// WithNewTimeout returns a context carrying parent's values which ignores the
// parent being cancelled, and instead expires after timeout.
func WithNewTimeout(parent context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(detached{parent}, timeout)
}
