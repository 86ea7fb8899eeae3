package runner

import (
	"errors"
	"os/exec"
	"strings"
	"testing"
	"time"

	"gotest.tools/v3/assert"
	"gotest.tools/v3/assert/cmp"

	"github.com/circleci/rfapi/internal/syncbuffer"
)

func TestRunner_Start_Environment(t *testing.T) {
	env, err := exec.LookPath("env")
	if err != nil {
		t.Skip("no env binary available")
	}

	r := New("a=a", "b=b")

	res, err := r.Start(env, "c=c", "d=d")
	assert.Assert(t, err)
	assert.Assert(t, <-res.Wait())

	lines := strings.Fields(res.Logs())
	assert.Check(t, cmp.DeepEqual(lines, []string{"a=a", "b=b", "c=c", "d=d"}))
}

func TestGetPort(t *testing.T) {
	tests := []struct {
		name       string
		line       string
		server     string
		expectPort string
	}{
		{
			name:       "ipv4",
			line:       "12:00:00 abcde 0.100ms server: new-server api app.address=127.0.0.1:8000 app.network=tcp",
			server:     "api",
			expectPort: "8000",
		},
		{
			name:       "ipv6",
			line:       "12:00:00 abcde 0.100ms server: new-server admin app.address=[::1]:8001",
			server:     "admin",
			expectPort: "8001",
		},
		{
			name:       "other server",
			line:       "12:00:00 abcde 0.100ms server: new-server admin app.address=127.0.0.1:8001",
			server:     "api",
			expectPort: "",
		},
		{
			name:       "no host",
			line:       "server: new-server api app.address=:80",
			server:     "api",
			expectPort: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Check(t, cmp.Equal(getPort([]string{tt.line}, tt.server), tt.expectPort))
		})
	}
}

func TestResult_ScanAddrs(t *testing.T) {
	res := &Result{logs: &syncbuffer.SyncBuffer{}}

	_, _ = res.logs.Write([]byte("12:00:00 abcde 0.100ms server: new-server admin app.address=127.0.0.1:8001\n"))
	assert.Check(t, cmp.ErrorContains(res.scanAddrs("api"), `no address logged for "api"`))

	_, _ = res.logs.Write([]byte("12:00:00 abcde 0.100ms server: new-server api app.address=127.0.0.1:8000\n"))
	assert.Assert(t, res.scanAddrs("api"))
	assert.Check(t, cmp.Equal(res.APIAddr(), "http://localhost:8000"))
	assert.Check(t, cmp.Equal(res.AdminAddr(), "http://localhost:8001"))
}

func TestWaitFor(t *testing.T) {
	t.Run("eventually", func(t *testing.T) {
		calls := 0
		err := waitFor(time.Second, func() error {
			calls++
			if calls < 3 {
				return errors.New("not yet")
			}
			return nil
		})
		assert.Check(t, err)
		assert.Check(t, cmp.Equal(calls, 3))
	})

	t.Run("timeout", func(t *testing.T) {
		err := waitFor(100*time.Millisecond, func() error {
			return errors.New("never")
		})
		assert.Check(t, cmp.ErrorContains(err, "timeout hit after 100ms: never"))
	})
}
