package o11y

import (
	"context"
	"errors"
)

// NewWarning returns an error that is recorded on spans as a warning rather than an error.
// Handled client errors, such as a rejected counter update, are warnings.
// No two errors created with NewWarning will be tested as equal with Is.
func NewWarning(warn string) error {
	return &wrapWarnError{
		msg: warn,
		err: errWarning,
	}
}

// AsWarning wraps err so that it is recorded as a warning, keeping err in the chain.
func AsWarning(err error) error {
	if err == nil {
		return nil
	}
	return &wrapWarnError{
		msg:   err.Error(),
		err:   errWarning,
		cause: err,
	}
}

// sentinel warning to use with errors.Is in IsWarning
var errWarning = errors.New("")

// IsWarning returns true if any error in the chain is a warning.
func IsWarning(err error) bool {
	return errors.Is(err, errWarning)
}

// DontErrorTrace returns true if the error is a warning or a context canceled or deadline error.
func DontErrorTrace(err error) bool {
	return IsWarning(err) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

type wrapWarnError struct {
	msg   string
	err   error
	cause error
}

func (e *wrapWarnError) Error() string {
	return e.msg
}

func (e *wrapWarnError) Unwrap() []error {
	if e.cause == nil {
		return []error{e.err}
	}
	return []error{e.err, e.cause}
}
