// Package fakemetrics records the metrics calls made through an o11y metrics
// provider so tests can assert on them.
package fakemetrics

import (
	"sync"
)

// MetricCall is one recorded call. Value holds timers, gauges and histograms,
// ValueInt holds counts.
type MetricCall struct {
	Metric   string
	Name     string
	Value    float64
	ValueInt int64
	Tags     []string
	Rate     float64
}

// Provider satisfies o11y.ClosableMetricsProvider. The zero value is ready to use.
type Provider struct {
	mu    sync.Mutex
	calls []MetricCall
}

func (p *Provider) record(c MetricCall) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, c)
	return nil
}

// Calls returns a copy of every call so far, in order.
func (p *Provider) Calls() []MetricCall {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]MetricCall(nil), p.calls...)
}

// Named returns the recorded calls of the given metric type and name, in order.
func (p *Provider) Named(metric, name string) []MetricCall {
	var found []MetricCall
	for _, c := range p.Calls() {
		if c.Metric == metric && c.Name == name {
			found = append(found, c)
		}
	}
	return found
}

func (p *Provider) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = nil
}

func (p *Provider) TimeInMilliseconds(name string, value float64, tags []string, rate float64) error {
	return p.record(MetricCall{Metric: "timer", Name: name, Value: value, Tags: tags, Rate: rate})
}

func (p *Provider) Gauge(name string, value float64, tags []string, rate float64) error {
	return p.record(MetricCall{Metric: "gauge", Name: name, Value: value, Tags: tags, Rate: rate})
}

func (p *Provider) Count(name string, value int64, tags []string, rate float64) error {
	return p.record(MetricCall{Metric: "count", Name: name, ValueInt: value, Tags: tags, Rate: rate})
}

func (p *Provider) Histogram(name string, value float64, tags []string, rate float64) error {
	return p.record(MetricCall{Metric: "histogram", Name: name, Value: value, Tags: tags, Rate: rate})
}

func (p *Provider) Close() error {
	return nil
}
