package runner

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/sync/errgroup"

	"github.com/circleci/rfapi/internal/syncbuffer"
)

const (
	portsTimeout = 20 * time.Second
	readyTimeout = 10 * time.Second
	stopTimeout  = 11 * time.Second
)

// Runner starts service binaries with a shared base environment and stops
// every one it launched.
type Runner struct {
	env []string

	mu      sync.Mutex
	running []*Result
}

func New(env ...string) *Runner {
	return &Runner{env: env}
}

// Run starts binary and waits until both the admin server and serverName have
// logged their addresses, and the admin server reports ready. On success the
// process is stopped by Stop; on failure it has already been stopped.
func (r *Runner) Run(serverName, binary string, extraEnv ...string) (res *Result, err error) {
	res, err = r.Start(binary, extraEnv...)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			_ = res.Stop()
			err = fmt.Errorf("%w\n%s", err, res.Logs())
			res = nil
		}
	}()

	err = waitFor(portsTimeout, func() error {
		return res.scanAddrs(serverName)
	})
	if err != nil {
		return nil, err
	}

	err = waitFor(readyTimeout, res.ready)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.running = append(r.running, res)
	r.mu.Unlock()
	return res, nil
}

// Start launches binary without waiting for it. The caller must Stop the result.
func (r *Runner) Start(binary string, extraEnv ...string) (*Result, error) {
	cmd := exec.Command(binary) //#nosec:G204 // running the binary under test
	cmd.Env = append(append([]string{}, r.env...), extraEnv...)

	res := &Result{cmd: cmd, logs: &syncbuffer.SyncBuffer{}}
	cmd.Stdout = io.MultiWriter(res.logs, os.Stdout)
	cmd.Stderr = io.MultiWriter(res.logs, os.Stderr)

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start %s: %w", binary, err)
	}
	res.exited = make(chan error, 1)
	go func() {
		res.exited <- cmd.Wait()
		close(res.exited)
	}()
	return res, nil
}

// Stop interrupts every process started by Run, concurrently.
func (r *Runner) Stop() error {
	r.mu.Lock()
	running := r.running
	r.running = nil
	r.mu.Unlock()

	var g errgroup.Group
	for _, res := range running {
		g.Go(res.Stop)
	}
	return g.Wait()
}

type Result struct {
	cmd    *exec.Cmd
	logs   *syncbuffer.SyncBuffer
	exited chan error

	apiAddr   string
	adminAddr string
}

// Logs is everything the process has written to stdout and stderr so far.
func (r *Result) Logs() string {
	return r.logs.String()
}

func (r *Result) APIAddr() string {
	return r.apiAddr
}

func (r *Result) AdminAddr() string {
	return r.adminAddr
}

// Wait returns a channel that receives the exit error once the process exits.
func (r *Result) Wait() <-chan error {
	return r.exited
}

// Stop interrupts the process and waits for it to exit, killing it if it
// does not exit in time. The process is expected to exit cleanly.
func (r *Result) Stop() error {
	// works around missing output in go test -json: https://github.com/golang/go/issues/38063
	defer fmt.Println("sub-process stopped")

	if err := r.cmd.Process.Signal(os.Interrupt); err != nil {
		return fmt.Errorf("failed to interrupt: %w", err)
	}

	select {
	case err := <-r.exited:
		return err
	case <-time.After(stopTimeout):
		_ = r.cmd.Process.Kill()
		return fmt.Errorf("process did not exit within %s of an interrupt", stopTimeout)
	}
}

func (r *Result) scanAddrs(serverName string) error {
	lines := strings.Split(r.logs.String(), "\n")
	admin := getPort(lines, "admin")
	api := getPort(lines, serverName)
	if admin == "" || api == "" {
		return fmt.Errorf("no address logged for %q and admin yet", serverName)
	}
	r.adminAddr = "http://localhost:" + admin
	r.apiAddr = "http://localhost:" + api
	return nil
}

func (r *Result) ready() error {
	resp, err := http.Get(r.adminAddr + "/ready") //#nosec:G107 // url built from a logged port
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("not ready: %d: %s", resp.StatusCode, b)
	}
	return nil
}

var portRegexp = regexp.MustCompile(`app\.address=(?:127\.0\.0\.1|\[::1?\]):(\d+)`)

// getPort finds the port serverName bound, from the span httpserver.New emits.
func getPort(lines []string, serverName string) string {
	for _, l := range lines {
		if !strings.Contains(l, "server: new-server "+serverName) {
			continue
		}
		if m := portRegexp.FindStringSubmatch(l); m != nil {
			return m[1]
		}
	}
	return ""
}

// waitFor polls check until it succeeds or timeout passes, returning the last failure.
func waitFor(timeout time.Duration, check func() error) error {
	b := backoff.NewConstantBackOff(20 * time.Millisecond)
	deadline := time.Now().Add(timeout)

	var last error
	err := backoff.Retry(func() error {
		last = check()
		if last != nil && time.Now().After(deadline) {
			return backoff.Permanent(last)
		}
		return last
	}, b)
	if err != nil {
		return fmt.Errorf("timeout hit after %s: %w", timeout, last)
	}
	return nil
}
