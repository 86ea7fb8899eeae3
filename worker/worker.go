package worker

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/circleci/rfapi/o11y"
)

// ErrShouldBackoff is returned by a WorkFunc when there was nothing to do.
var ErrShouldBackoff = errors.New("should back off")

type Config struct {
	Name string
	// NoWorkBackOff controls the wait after a WorkFunc returns ErrShouldBackoff
	NoWorkBackOff backoff.BackOff
	// MaxWorkTime bounds each call to WorkFunc. Defaults to 10s.
	MaxWorkTime time.Duration
	// WorkFunc should return ErrShouldBackoff if it wants the loop to begin backing off
	WorkFunc func(ctx context.Context) error

	waiter func(ctx context.Context, delay time.Duration)
}

// Every builds a Config that calls fn once per interval. A slow fn delays the
// next call rather than overlapping with it.
func Every(name string, interval time.Duration, fn func(ctx context.Context)) Config {
	return Config{
		Name:          name,
		NoWorkBackOff: backoff.NewConstantBackOff(interval),
		MaxWorkTime:   interval,
		WorkFunc: func(ctx context.Context) error {
			fn(ctx)
			return ErrShouldBackoff
		},
	}
}

// Run calls WorkFunc in a loop until ctx is cancelled.
func Run(ctx context.Context, cfg Config) {
	l := newLoop(ctx, cfg)
	for ctx.Err() == nil {
		delay, idle := l.iterate()
		if !idle {
			l.cfg.NoWorkBackOff.Reset()
			continue
		}
		l.cfg.waiter(ctx, delay)
	}
}

type loop struct {
	cfg      Config
	provider o11y.Provider
}

func newLoop(ctx context.Context, cfg Config) *loop {
	cfg = setDefaults(cfg)
	cfg.NoWorkBackOff.Reset()
	return &loop{
		cfg:      cfg,
		provider: o11y.FromContext(ctx),
	}
}

func setDefaults(cfg Config) Config {
	if cfg.waiter == nil {
		cfg.waiter = sleep
	}
	if cfg.NoWorkBackOff == nil {
		cfg.NoWorkBackOff = &backoff.ExponentialBackOff{
			InitialInterval: 50 * time.Millisecond,
			Multiplier:      2,
			MaxInterval:     5 * time.Second,
			Clock:           backoff.SystemClock,
		}
	}
	if cfg.MaxWorkTime == 0 {
		cfg.MaxWorkTime = 10 * time.Second
	}
	return cfg
}

func sleep(ctx context.Context, delay time.Duration) {
	t := time.NewTimer(delay)
	defer t.Stop()

	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

// iterate runs WorkFunc once, detached from the loop's context so that a
// shutdown does not abort work already under way. idle reports whether the
// WorkFunc asked to back off or panicked, and delay is how long to wait if so.
func (l *loop) iterate() (delay time.Duration, idle bool) {
	ctx, cancel := context.WithTimeout(context.Background(), l.cfg.MaxWorkTime)
	defer cancel()

	ctx = o11y.WithProvider(ctx, l.provider)
	ctx, span := o11y.StartSpan(ctx, "worker: "+l.cfg.Name)
	span.AddField("loop_name", l.cfg.Name)
	span.RecordMetric(o11y.Timing("worker_loop", "loop_name", "result"))

	var err error
	defer func() {
		if r := recover(); r != nil {
			err = o11y.HandlePanic(ctx, span, r, nil)
			delay, idle = l.cfg.NoWorkBackOff.NextBackOff(), true
		}
		if idle {
			span.AddField("backoff_ms", delay.Milliseconds())
		}
		o11y.End(span, &err)
	}()

	err = l.cfg.WorkFunc(ctx)
	if errors.Is(err, ErrShouldBackoff) {
		err = nil
		return l.cfg.NoWorkBackOff.NextBackOff(), true
	}
	return 0, false
}
