package httpserver

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/circleci/rfapi/o11y"
	"github.com/circleci/rfapi/recontext"
	"github.com/circleci/rfapi/system"
)

type HTTPServer struct {
	name            string
	listener        *trackedListener
	server          *http.Server
	shutdownTimeout time.Duration
	serving         atomic.Bool
	draining        atomic.Bool
}

type Config struct {
	// Name is the name of the server in o11y
	Name string
	// Addr is the address to listen on
	Addr string
	// Handler is the HTTP handler to delegate requests to.
	Handler http.Handler

	// Optional
	// Network must be "tcp", "tcp4", "tcp6", "unix", "unixpacket" or "" (which defaults to tcp).
	Network string
	// ShutdownTimeout bounds how long in flight requests get on shutdown. Defaults to 10s.
	ShutdownTimeout time.Duration
}

// New listens on the configured address straight away, so that Addr reports the
// bound port, but does not serve requests until Serve is called.
func New(ctx context.Context, cfg Config) (s *HTTPServer, err error) {
	_, span := o11y.StartSpan(ctx, "server: new-server "+cfg.Name)
	defer o11y.End(span, &err)
	if cfg.Network == "" {
		cfg.Network = "tcp"
	}
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}
	span.AddField("server_name", cfg.Name)
	span.AddField("network", cfg.Network)

	ln, err := net.Listen(cfg.Network, cfg.Addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %q: %w", cfg.Addr, err)
	}

	tr := &trackedListener{
		Listener: ln,
		name:     cfg.Name,
	}

	span.AddField("address", tr.Addr().String())

	return &HTTPServer{
		name:            cfg.Name,
		listener:        tr,
		shutdownTimeout: cfg.ShutdownTimeout,
		server: &http.Server{
			Addr:              cfg.Addr,
			Handler:           cfg.Handler,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       55 * time.Second,
			WriteTimeout:      55 * time.Second,
		},
	}, nil
}

// Serve the http server. On context cancellation the server is shutdown giving some time
// for the in flight requests to be handled.
func (s *HTTPServer) Serve(ctx context.Context) error {
	s.serving.Store(true)
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		<-ctx.Done()
		s.serving.Store(false)
		cctx, cancel := recontext.WithNewTimeout(ctx, s.shutdownTimeout)
		defer cancel()
		return s.shutdown(cctx)
	})

	g.Go(func() error {
		err := s.server.Serve(s.listener)
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	return g.Wait()
}

func (s *HTTPServer) shutdown(ctx context.Context) (err error) {
	ctx, span := o11y.StartSpan(ctx, "server: shutdown "+s.name)
	defer o11y.End(span, &err)
	span.AddField("server_name", s.name)

	err = s.server.Shutdown(ctx)
	if err != nil {
		return fmt.Errorf("server %q shutdown failed: %w", s.name, err)
	}
	return nil
}

// MetricsProducer reports the listener's connection gauges.
func (s *HTTPServer) MetricsProducer() system.MetricProducer {
	return s.listener
}

// HealthChecks reports the server ready only while it is serving and not draining.
func (s *HTTPServer) HealthChecks() (name string, ready, live func(context.Context) error) {
	return s.name, func(context.Context) error {
		if s.draining.Load() {
			return fmt.Errorf("server %q is draining", s.name)
		}
		if !s.serving.Load() {
			return fmt.Errorf("server %q is not serving", s.name)
		}
		return nil
	}, nil
}

// Drain marks the server not ready while it carries on serving, so load
// balancers stop routing to it before Serve's context is cancelled.
func (s *HTTPServer) Drain() {
	s.draining.Store(true)
}

func (s *HTTPServer) Addr() string {
	return s.listener.Addr().String()
}
