package healthcheck

import (
	"context"
	"fmt"

	"github.com/circleci/rfapi/httpserver"
	"github.com/circleci/rfapi/system"
)

// Load serves the admin API on addr, reporting on every health check already
// added to sys, so call it after everything else has been loaded.
func Load(ctx context.Context, addr string, sys *system.System) (*httpserver.HTTPServer, error) {
	api, err := New(ctx, sys.HealthChecks())
	if err != nil {
		return nil, fmt.Errorf("failed to create admin api: %w", err)
	}

	return httpserver.Load(ctx, httpserver.Config{
		Name:    "admin",
		Addr:    addr,
		Handler: api.Handler(),
	}, sys)
}
