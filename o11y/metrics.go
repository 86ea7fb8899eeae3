package o11y

type MetricType string

const (
	MetricTimer MetricType = "timer"
	MetricGauge MetricType = "gauge"
	MetricCount MetricType = "count"
)

// Metric describes a statsd metric derived from a span's fields when it ends.
type Metric struct {
	Type MetricType
	Name string
	// Field names the span field holding the value. Counts without one count 1.
	Field string
	// FixedTag is added to every emission.
	FixedTag *Tag
	// TagFields name span fields sent as tags, when present.
	TagFields []string
}

type Tag struct {
	Name  string
	Value interface{}
}

func NewTag(name string, value interface{}) *Tag {
	return &Tag{Name: name, Value: value}
}

// Timing times the span, tagged with tagFields.
func Timing(name string, tagFields ...string) Metric {
	return Metric{Type: MetricTimer, Name: name, Field: "duration_ms", TagFields: tagFields}
}

// Incr counts one per span.
func Incr(name string, tagFields ...string) Metric {
	return Metric{Type: MetricCount, Name: name, TagFields: tagFields}
}

func Gauge(name, valueField string, tagFields ...string) Metric {
	return Metric{Type: MetricGauge, Name: name, Field: valueField, TagFields: tagFields}
}

func Count(name, valueField string, fixedTag *Tag, tagFields ...string) Metric {
	return Metric{Type: MetricCount, Name: name, Field: valueField, FixedTag: fixedTag, TagFields: tagFields}
}

// MetricsProvider matches the subset of the datadog statsd client rfapi uses.
type MetricsProvider interface {
	Histogram(name string, value float64, tags []string, rate float64) error
	TimeInMilliseconds(name string, value float64, tags []string, rate float64) error
	Gauge(name string, value float64, tags []string, rate float64) error
	Count(name string, value int64, tags []string, rate float64) error
}

type ClosableMetricsProvider interface {
	MetricsProvider
	Close() error
}
