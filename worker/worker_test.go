package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"gotest.tools/v3/assert"
	"gotest.tools/v3/assert/cmp"

	"github.com/circleci/rfapi/testing/testcontext"
)

func TestRun_SleepsAfterNoWorkCycle(t *testing.T) {
	ctx, cancel := context.WithCancel(testcontext.Background())
	defer cancel()

	counter := 0
	expected := 10
	waitCalls := 0
	backOff := new(fakeBackOff)
	Run(ctx, Config{
		Name:          "test-loop",
		NoWorkBackOff: backOff,
		WorkFunc: func(ctx context.Context) error {
			counter++
			if counter == expected {
				cancel()
			}
			return ErrShouldBackoff
		},
		waiter: func(_ context.Context, delay time.Duration) {
			waitCalls++
		},
	})

	assert.Check(t, cmp.Equal(backOff.nextCallCount, expected))
	assert.Check(t, cmp.Equal(waitCalls, expected))
	assert.Check(t, cmp.Equal(backOff.resetCallCount, 1), "reset only initialises the back off")
}

func TestRun_DoesNotSleepAfterWorkOrErrors(t *testing.T) {
	for _, result := range []error{nil, errors.New("something went horribly wrong")} {
		result := result
		t.Run("result "+errString(result), func(t *testing.T) {
			ctx, cancel := context.WithCancel(testcontext.Background())
			defer cancel()

			counter := 0
			expected := 3
			backOff := new(fakeBackOff)
			Run(ctx, Config{
				NoWorkBackOff: backOff,
				WorkFunc: func(ctx context.Context) error {
					counter++
					if counter == expected {
						cancel()
					}
					return result
				},
				waiter: func(_ context.Context, delay time.Duration) {
					panic("wait should never be called")
				},
			})

			assert.Check(t, cmp.Equal(backOff.nextCallCount, 0))
			assert.Check(t, cmp.Equal(backOff.resetCallCount, expected+1))
		})
	}
}

func TestRun_ExitsWhenContextIsCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(testcontext.Background())

	var calls int64
	ran := make(chan struct{})
	go func() {
		Run(ctx, Config{
			WorkFunc: func(ctx context.Context) error {
				atomic.AddInt64(&calls, 1)
				time.Sleep(time.Millisecond)
				return nil
			},
		})
		close(ran)
	}()

	time.Sleep(time.Millisecond * 100)
	cancel()

	select {
	case <-ran:
	case <-time.After(time.Second):
		t.Fatal("run did not finish in time")
	}

	assert.Check(t, atomic.LoadInt64(&calls) > 1)
}

func TestIterate_WorkFuncPanics(t *testing.T) {
	ctx := testcontext.Background()
	b := &fakeBackOff{nextBackOff: 3 * time.Second}
	l := newLoop(ctx, Config{
		Name:          "panicky",
		NoWorkBackOff: b,
		WorkFunc: func(ctx context.Context) error {
			panic("Oops")
		},
	})
	delay, idle := l.iterate()
	assert.Check(t, idle, "a panic backs off rather than retrying straight away")
	assert.Check(t, cmp.Equal(delay, 3*time.Second))
	assert.Check(t, cmp.Equal(b.nextCallCount, 1))
}

func TestEvery_PanickingFuncWaitsForInterval(t *testing.T) {
	ctx, cancel := context.WithCancel(testcontext.Background())
	defer cancel()

	var calls int
	cfg := Every("gauges", time.Minute, func(ctx context.Context) {
		calls++
		panic("producer failed")
	})

	var delays []time.Duration
	cfg.waiter = func(_ context.Context, delay time.Duration) {
		delays = append(delays, delay)
		if len(delays) == 2 {
			cancel()
		}
	}
	Run(ctx, cfg)

	assert.Check(t, cmp.Equal(calls, 2))
	assert.Check(t, cmp.DeepEqual(delays, []time.Duration{time.Minute, time.Minute}))
}

func TestEvery(t *testing.T) {
	ctx, cancel := context.WithCancel(testcontext.Background())
	defer cancel()

	cfg := Every("tick", 25*time.Millisecond, func(ctx context.Context) {
		_, ok := ctx.Deadline()
		assert.Check(t, ok, "each call is bounded by the interval")
	})
	assert.Check(t, cmp.Equal(cfg.Name, "tick"))
	assert.Check(t, cmp.Equal(cfg.MaxWorkTime, 25*time.Millisecond))

	var delays []time.Duration
	cfg.waiter = func(_ context.Context, delay time.Duration) {
		delays = append(delays, delay)
		if len(delays) == 3 {
			cancel()
		}
	}
	Run(ctx, cfg)

	assert.Check(t, cmp.DeepEqual(delays, []time.Duration{
		25 * time.Millisecond, 25 * time.Millisecond, 25 * time.Millisecond,
	}))
}

type fakeBackOff struct {
	nextBackOff    time.Duration
	nextCallCount  int
	resetCallCount int
}

func (b *fakeBackOff) NextBackOff() time.Duration {
	b.nextCallCount++
	return b.nextBackOff
}

func (b *fakeBackOff) Reset() {
	b.resetCallCount++
}

var _ backoff.BackOff = &fakeBackOff{}

func errString(err error) string {
	if err == nil {
		return "nil"
	}
	return "error"
}
