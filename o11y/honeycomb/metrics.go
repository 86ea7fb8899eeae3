package honeycomb

import (
	"fmt"
	"time"

	"github.com/circleci/rfapi/o11y"
)

// metricKey is the span field RecordMetric stashes metric definitions under.
// It is removed before the event is sent.
const metricKey = "__MAGIC_METRIC_KEY__"

// spanMetrics turns the metrics recorded on a span into statsd calls once the
// span's fields are final.
type spanMetrics struct {
	mp o11y.MetricsProvider
}

func (s *spanMetrics) hook(fields map[string]interface{}) {
	recorded, _ := fields[metricKey].([]o11y.Metric)
	delete(fields, metricKey)
	if s.mp == nil {
		return
	}

	s.results(fields)
	for _, m := range recorded {
		s.send(m, fields)
	}
}

// results counts every errored or warned span, whatever it recorded.
func (s *spanMetrics) results(fields map[string]interface{}) {
	tags := []string{tag("type", "o11y")}
	for _, name := range []string{"error", "warning"} {
		if _, ok := fields[name]; ok {
			_ = s.mp.Count(name, 1, tags, 1)
		}
	}
}

// send emits m. A metric whose value field is missing is skipped; one whose
// value cannot be coerced is a programming error and panics.
func (s *spanMetrics) send(m o11y.Metric, fields map[string]interface{}) {
	tags := tagsFrom(m.TagFields, fields)

	var value float64 = 1
	if m.Field != "" {
		raw, ok := lookup(m.Field, fields)
		if !ok {
			return
		}
		value, ok = number(raw)
		if !ok {
			panic(fmt.Sprintf("%s metric %q: field %s (%T) is not numeric", m.Type, m.Name, m.Field, raw))
		}
	}

	switch m.Type {
	case o11y.MetricTimer:
		_ = s.mp.TimeInMilliseconds(m.Name, value, tags, 1)
	case o11y.MetricGauge:
		_ = s.mp.Gauge(m.Name, value, tags, 1)
	case o11y.MetricCount:
		if m.FixedTag != nil {
			tags = append(tags, tag(m.FixedTag.Name, m.FixedTag.Value))
		}
		_ = s.mp.Count(m.Name, int64(value), tags, 1)
	}
}

func tagsFrom(names []string, fields map[string]interface{}) []string {
	tags := make([]string, 0, len(names))
	for _, name := range names {
		if v, ok := lookup(name, fields); ok {
			tags = append(tags, tag(name, v))
		}
	}
	return tags
}

// lookup finds a raw field, or failing that the app. prefixed field AddField writes.
func lookup(name string, fields map[string]interface{}) (interface{}, bool) {
	if v, ok := fields[name]; ok {
		return v, true
	}
	v, ok := fields["app."+name]
	return v, ok
}

// number coerces the field types spans carry. Durations become milliseconds.
func number(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case time.Duration:
		return float64(n.Milliseconds()), true
	}
	return 0, false
}

func tag(name string, v interface{}) string {
	return fmt.Sprintf("%s:%v", name, v)
}

type noMetrics struct{}

func (noMetrics) Histogram(string, float64, []string, float64) error          { return nil }
func (noMetrics) TimeInMilliseconds(string, float64, []string, float64) error { return nil }
func (noMetrics) Gauge(string, float64, []string, float64) error              { return nil }
func (noMetrics) Count(string, int64, []string, float64) error                { return nil }
