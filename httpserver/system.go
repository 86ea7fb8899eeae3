package httpserver

import (
	"context"
	"fmt"

	"github.com/circleci/rfapi/system"
)

// Load creates the server and adds it to sys: as a service, as a readiness
// check and as a source of connection gauges. Load the admin server last, so
// that its readiness covers every other server.
func Load(ctx context.Context, cfg Config, sys *system.System) (*HTTPServer, error) {
	s, err := New(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("error starting %q server: %w", cfg.Name, err)
	}

	sys.AddService(s.Serve)
	sys.AddHealthCheck(s)
	sys.AddMetrics(s.MetricsProducer())
	return s, nil
}
