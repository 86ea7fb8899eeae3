package system

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/circleci/rfapi/o11y"
	"github.com/circleci/rfapi/recontext"
	"github.com/circleci/rfapi/termination"
)

// HealthChecker is anything that wants its health reported by the admin API.
// Either check may be nil.
type HealthChecker interface {
	HealthChecks() (name string, ready, live func(ctx context.Context) error)
}

// Drainer is a HealthChecker that can report itself unready ahead of shutdown.
type Drainer interface {
	Drain()
}

const cleanupTimeout = 10 * time.Second

// System collects what the process runs, checks, measures and tears down.
// Everything is added before Run, which is called once.
type System struct {
	ctx   context.Context
	group *errgroup.Group

	services  []func(context.Context) error
	checkers  []HealthChecker
	producers []MetricProducer
	cleanups  []func(context.Context) error
}

func New(ctx context.Context) *System {
	g, ctx := errgroup.WithContext(ctx)
	return &System{ctx: ctx, group: g}
}

// waitForTermination is swapped out in tests.
var waitForTermination = termination.Handle

// Run starts every service, plus the metrics loop when there are producers,
// and blocks until the process is terminated or any service fails. The first
// error stops everything else and is returned; a signal drains the health
// checkers, then after delay gives termination.ErrTerminated.
func (s *System) Run(delay time.Duration) (err error) {
	_, span := o11y.StartSpan(s.ctx, "system: run")
	defer o11y.End(span, &err)
	span.AddField("services", len(s.services))
	span.AddField("metric_producers", len(s.producers))
	span.RecordMetric(o11y.Timing("system.run", "result"))

	s.group.Go(func() error {
		return waitForTermination(s.ctx, delay, s.drain)
	})
	for _, run := range s.services {
		run := run
		s.group.Go(func() error {
			return run(s.ctx)
		})
	}
	if len(s.producers) > 0 {
		s.group.Go(metricsReporter(s.ctx, s.producers))
	}

	return s.group.Wait()
}

// drain marks every Drainer unready once termination starts.
func (s *System) drain() {
	o11y.Log(s.ctx, "system: draining", o11y.Field("checkers", len(s.checkers)))
	for _, c := range s.checkers {
		if d, ok := c.(Drainer); ok {
			d.Drain()
		}
	}
}

// AddService adds a long running func. It must return once its context is done.
func (s *System) AddService(run func(ctx context.Context) error) {
	s.services = append(s.services, run)
}

func (s *System) AddHealthCheck(h HealthChecker) {
	s.checkers = append(s.checkers, h)
}

func (s *System) AddMetrics(m MetricProducer) {
	s.producers = append(s.producers, m)
}

// AddCleanup adds a func for Cleanup to call.
func (s *System) AddCleanup(c func(ctx context.Context) error) {
	s.cleanups = append(s.cleanups, c)
}

// HealthChecks returns the checkers added so far.
func (s *System) HealthChecks() []HealthChecker {
	return s.checkers
}

// Cleanup calls the cleanups, most recently added first. They share a context
// that is detached from ctx's cancellation and bounded by cleanupTimeout, so
// they still run after a shutdown. Failures are logged, not returned.
func (s *System) Cleanup(ctx context.Context) {
	ctx, cancel := recontext.WithNewTimeout(ctx, cleanupTimeout)
	defer cancel()

	for i := len(s.cleanups) - 1; i >= 0; i-- {
		if err := s.cleanups[i](ctx); err != nil {
			o11y.LogError(ctx, "system: cleanup", err)
		}
	}
}
