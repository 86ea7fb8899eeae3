// Package fakestatsd is a UDP statsd server for tests, recording every metric
// it is sent so that the statsd wiring can be checked end to end.
package fakestatsd

import (
	"bufio"
	"bytes"
	"errors"
	"net"
	"strings"
	"sync"
	"testing"

	"gotest.tools/v3/assert"
)

// Metric is one line of the datadog statsd protocol: name:value|type[|@rate][|#tags]
type Metric struct {
	Name  string
	Value string
	Type  string
	Tags  []string
}

type Server struct {
	conn *net.UDPConn

	mu       sync.RWMutex
	received []Metric
}

// New listens on a random local port until the test ends.
func New(t testing.TB) *Server {
	t.Helper()

	conn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	assert.Assert(t, err)

	s := &Server{conn: conn}
	go s.serve()
	t.Cleanup(func() {
		_ = s.conn.Close()
	})
	return s
}

func (s *Server) Addr() string {
	return s.conn.LocalAddr().String()
}

// Metrics returns a copy of everything received so far.
func (s *Server) Metrics() []Metric {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Metric(nil), s.received...)
}

// Named returns the received metrics called name.
func (s *Server) Named(name string) []Metric {
	var found []Metric
	for _, m := range s.Metrics() {
		if m.Name == name {
			found = append(found, m)
		}
	}
	return found
}

func (s *Server) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.received = nil
}

func (s *Server) serve() {
	packet := make([]byte, 65535)
	for {
		n, err := s.conn.Read(packet)
		if errors.Is(err, net.ErrClosed) {
			return
		}

		// the client buffers several metrics into one packet, a line each
		sc := bufio.NewScanner(bytes.NewReader(packet[:n]))
		for sc.Scan() {
			line := strings.TrimSpace(sc.Text())
			if line == "" {
				continue
			}
			m := parse(line)
			s.mu.Lock()
			s.received = append(s.received, m)
			s.mu.Unlock()
		}
	}
}

func parse(line string) Metric {
	var m Metric
	name, rest, _ := strings.Cut(line, ":")
	m.Name = name

	for i, part := range strings.Split(rest, "|") {
		switch {
		case i == 0:
			m.Value = part
		case i == 1:
			m.Type = part
		case strings.HasPrefix(part, "#"):
			m.Tags = strings.Split(part[1:], ",")
		}
	}
	return m
}
