package closer

import (
	"errors"
	"testing"

	"gotest.tools/v3/assert"
	"gotest.tools/v3/assert/cmp"
)

func TestErrorHandler(t *testing.T) {
	closeErr := errors.New("close failed")
	earlierErr := errors.New("write failed")

	tests := []struct {
		name     string
		closeErr error
		in       error
		want     error
	}{
		{name: "both fine", closeErr: nil, in: nil, want: nil},
		{name: "close fails", closeErr: closeErr, in: nil, want: closeErr},
		{name: "earlier failure wins", closeErr: closeErr, in: earlierErr, want: earlierErr},
		{name: "earlier failure kept", closeErr: nil, in: earlierErr, want: earlierErr},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			err := tt.in
			ErrorHandler(closerFunc(func() error {
				called = true
				return tt.closeErr
			}), &err)
			assert.Check(t, called)
			if tt.want == nil {
				assert.Check(t, err)
				return
			}
			assert.Check(t, cmp.ErrorIs(err, tt.want))
		})
	}
}

type closerFunc func() error

func (f closerFunc) Close() error {
	return f()
}
