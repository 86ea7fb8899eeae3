package o11y

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"gotest.tools/v3/assert"
	"gotest.tools/v3/assert/cmp"
)

func TestWarning(t *testing.T) {
	msg := "a managed error string"

	origErr := NewWarning(msg)
	warning := &wrapWarnError{}
	assert.Check(t, errors.As(origErr, &warning))
	assert.Check(t, cmp.Equal(origErr.Error(), msg))
	assert.Check(t, IsWarning(origErr))

	err := fmt.Errorf("some other error: %w", origErr)
	assert.Check(t, errors.As(err, &warning), "one wrap")
	assert.Check(t, errors.Is(err, origErr))
	assert.Check(t, cmp.ErrorContains(err, msg))
	assert.Check(t, IsWarning(err))
}

func TestWarning_TwoWarningsNotIs(t *testing.T) {
	err1 := NewWarning("warning 1")
	err2 := NewWarning("warning 2")

	assert.Check(t, !errors.Is(err1, err2))
}

func TestAsWarning(t *testing.T) {
	cause := errors.New("do not like the number 10")

	err := AsWarning(cause)
	assert.Check(t, IsWarning(err))
	assert.Check(t, cmp.ErrorIs(err, cause))
	assert.Check(t, cmp.Error(err, "do not like the number 10"))

	assert.Check(t, AsWarning(nil) == nil)
}

func TestDontErrorTrace(t *testing.T) {
	assert.Check(t, DontErrorTrace(NewWarning("warn")))
	assert.Check(t, DontErrorTrace(fmt.Errorf("wrapped: %w", context.DeadlineExceeded)))
	assert.Check(t, DontErrorTrace(fmt.Errorf("wrapped: %w", context.Canceled)))
	assert.Check(t, !DontErrorTrace(errors.New("real error")))
}
