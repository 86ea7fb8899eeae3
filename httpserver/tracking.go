package httpserver

import (
	"context"
	"net"
	"net/url"
	"sync"
)

// trackedListener counts the connections it accepts, and the remote hosts they
// come from, until each connection is closed.
type trackedListener struct {
	net.Listener

	mu         sync.RWMutex
	name       string
	accepted   int
	activeConn int
	remotes    map[string]int
}

func (l *trackedListener) Accept() (net.Conn, error) {
	con, err := l.Listener.Accept()
	if err != nil {
		return con, err
	}
	tracked := &trackedConnection{
		l:    l,
		Conn: con,
	}
	l.trackConn(tracked, true)

	return tracked, nil
}

// MetricName satisfies system.MetricProducer
func (l *trackedListener) MetricName() string {
	return l.name + "-listener"
}

// Gauges satisfies system.MetricProducer
func (l *trackedListener) Gauges(_ context.Context) map[string]float64 {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var most, least int
	if l.activeConn > 0 {
		least = -1
		for _, c := range l.remotes {
			if c > most {
				most = c
			}
			if least < 0 || c < least {
				least = c
			}
		}
	}
	return map[string]float64{
		"number_of_remotes":  float64(len(l.remotes)),
		"total_connections":  float64(l.accepted),
		"active_connections": float64(l.activeConn),
		// shows whether clients are balancing across replicas
		"max_connections_per_remote": float64(most),
		"min_connections_per_remote": float64(least),
	}
}

func (l *trackedListener) trackConn(c *trackedConnection, add bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.remotes == nil {
		l.remotes = make(map[string]int)
	}
	// the remote host without the port
	host := (&url.URL{Host: c.RemoteAddr().String()}).Hostname()
	if add {
		l.accepted++
		l.activeConn++
		l.remotes[host]++
		return
	}
	l.activeConn--
	l.remotes[host]--
	if l.remotes[host] == 0 {
		delete(l.remotes, host)
	}
}

type trackedConnection struct {
	net.Conn

	l         *trackedListener
	closeOnce sync.Once
}

// Close untracks the connection, once, and closes it.
func (c *trackedConnection) Close() error {
	c.closeOnce.Do(func() {
		c.l.trackConn(c, false)
	})
	return c.Conn.Close()
}
