package healthcheck

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"gotest.tools/v3/assert"
	"gotest.tools/v3/assert/cmp"
	"gotest.tools/v3/poll"

	"github.com/circleci/rfapi/internal/syncbuffer"
	"github.com/circleci/rfapi/o11y"
	"github.com/circleci/rfapi/o11y/honeycomb"
	"github.com/circleci/rfapi/system"
	"github.com/circleci/rfapi/testing/testcontext"
)

func TestAPI_Checks(t *testing.T) {
	ok := func(context.Context) error { return nil }
	failing := func(msg string) func(context.Context) error {
		return func(context.Context) error { return errors.New(msg) }
	}

	tests := []struct {
		name        string
		checker     *mockHealthChecks
		liveStatus  int
		readyStatus int
		readyBody   string
	}{
		{
			name:        "healthy",
			checker:     &mockHealthChecks{ready: ok, live: ok},
			liveStatus:  http.StatusOK,
			readyStatus: http.StatusOK,
			readyBody:   `"status":"OK"`,
		},
		{
			name:        "dead but ready",
			checker:     &mockHealthChecks{ready: ok, live: failing("dead")},
			liveStatus:  http.StatusServiceUnavailable,
			readyStatus: http.StatusOK,
			readyBody:   `"status":"OK"`,
		},
		{
			name:        "live but not ready",
			checker:     &mockHealthChecks{ready: failing("not serving"), live: ok},
			liveStatus:  http.StatusOK,
			readyStatus: http.StatusServiceUnavailable,
			readyBody:   "not serving",
		},
		{
			name:        "no checks registered",
			checker:     &mockHealthChecks{},
			liveStatus:  http.StatusOK,
			readyStatus: http.StatusOK,
			readyBody:   `"status":"OK"`,
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			baseurl := startAPI(t, tt.checker)

			_, status := get(t, baseurl, "live")
			assert.Check(t, cmp.Equal(status, tt.liveStatus))

			body, status := get(t, baseurl, "ready")
			assert.Check(t, cmp.Equal(status, tt.readyStatus))
			assert.Check(t, cmp.Contains(body, tt.readyBody))
		})
	}
}

func TestAPI_Debug(t *testing.T) {
	baseurl := startAPI(t)

	t.Run("standard", func(t *testing.T) {
		// The index page html
		body, status := get(t, baseurl, "debug/pprof")
		assert.Check(t, cmp.Equal(status, http.StatusOK))
		assert.Check(t, cmp.Contains(body, `Types of profiles available`))

		// Index served sub profiles
		body, status = get(t, baseurl, "debug/pprof/heap")
		assert.Check(t, cmp.Equal(status, http.StatusOK))
		assert.Check(t, len(body) > 100) // we should have some content

		_, status = get(t, baseurl, "debug/pprof/mutex")
		assert.Check(t, cmp.Equal(status, http.StatusOK))

	})

	// The special profiles
	for _, p := range []string{"cmdline", "profile", "symbol", "trace"} {
		t.Run(p, func(t *testing.T) {
			_, status := get(t, baseurl, fmt.Sprintf("debug/pprof/%s?seconds=1", p))
			assert.Check(t, cmp.Equal(status, http.StatusOK))
		})
	}

	t.Run("not-found", func(t *testing.T) {
		_, status := get(t, baseurl, "debug/pprof/nowt")
		assert.Check(t, cmp.Equal(status, http.StatusNotFound))
	})

}

type mockHealthChecks struct {
	ready, live func(ctx context.Context) error
}

func (m *mockHealthChecks) HealthChecks() (name string, ready, live func(ctx context.Context) error) {
	return "mock healthcheck", m.ready, m.live
}

func TestAPI_DebugTracesProfileParams(t *testing.T) {
	b := &syncbuffer.SyncBuffer{}
	p := honeycomb.New(honeycomb.Config{
		Format: "text",
		Writer: b,
	})
	ctx := o11y.WithProvider(context.Background(), p)
	t.Cleanup(func() {
		p.Close(ctx)
	})

	baseurl := startAPIWithContext(ctx, t)

	_, status := get(t, baseurl, "debug/pprof/goroutine?debug=1&token=abc")
	assert.Check(t, cmp.Equal(status, http.StatusOK))

	poll.WaitOn(t, func(t poll.LogT) poll.Result {
		if !strings.Contains(b.String(), "handler.query.debug=1") {
			return poll.Continue("no traced debug param in %q", b.String())
		}
		return poll.Success()
	})
	assert.Check(t, !strings.Contains(b.String(), "handler.query.token"))
}

func startAPI(t *testing.T, checked ...system.HealthChecker) string {
	t.Helper()
	return startAPIWithContext(testcontext.Background(), t, checked...)
}

func startAPIWithContext(ctx context.Context, t *testing.T, checked ...system.HealthChecker) string {
	t.Helper()

	api, err := New(ctx, checked)
	assert.Assert(t, err)

	srv := httptest.NewServer(api.Handler())
	t.Cleanup(func() {
		srv.Close()
	})

	return srv.URL
}

func get(t *testing.T, baseurl, path string) (string, int) {
	t.Helper()

	r, err := http.Get(fmt.Sprintf("%s/%s", baseurl, path))
	assert.Assert(t, err)

	defer func() {
		assert.Assert(t, r.Body.Close())
	}()

	b, err := io.ReadAll(r.Body)
	assert.Assert(t, err)

	return string(b), r.StatusCode
}

func TestLoad(t *testing.T) {
	ctx := testcontext.Background()
	sys := system.New(ctx)
	sys.AddHealthCheck(&mockHealthChecks{
		ready: func(_ context.Context) error {
			return errors.New("warming up")
		},
	})

	srv, err := Load(ctx, "localhost:0", sys)
	assert.Assert(t, err)

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan error, 1)
	go func() {
		done <- srv.Serve(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		assert.Check(t, <-done)
	})

	body, status := get(t, "http://"+srv.Addr(), "ready")
	assert.Check(t, cmp.Equal(status, http.StatusServiceUnavailable))
	assert.Check(t, cmp.Contains(body, "warming up"))

	_, status = get(t, "http://"+srv.Addr(), "live")
	assert.Check(t, cmp.Equal(status, http.StatusOK))
}
