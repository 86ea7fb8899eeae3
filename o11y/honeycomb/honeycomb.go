// Package honeycomb implements the o11y provider on top of the honeycomb beeline.
//
// Events are always written locally (json, text or color) and are optionally
// also sent to a honeycomb server. Span metrics are forwarded to the
// configured statsd client just before each event is sent.
package honeycomb

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/honeycombio/beeline-go"
	"github.com/honeycombio/beeline-go/client"
	"github.com/honeycombio/beeline-go/trace"
	"github.com/honeycombio/dynsampler-go"
	"github.com/honeycombio/libhoney-go"
	"github.com/honeycombio/libhoney-go/transmission"

	"github.com/circleci/rfapi/o11y"
)

type Config struct {
	Host    string
	Dataset string
	Key     string
	// Format is one of json (the default), text, color or none.
	Format string
	// SendTraces sends events to the honeycomb server as well as writing them locally.
	SendTraces bool
	// Sender replaces the default honeycomb transmission, mostly for tests.
	Sender        transmission.Sender
	SampleTraces  bool
	SampleKeyFunc func(map[string]interface{}) string
	SampleRates   map[string]int
	// Writer receives locally formatted events. Defaults to stderr.
	Writer      io.Writer
	Metrics     o11y.ClosableMetricsProvider
	ServiceName string

	Debug bool
}

func (c *Config) Validate() error {
	if c.SendTraces && c.Key == "" && c.Sender == nil {
		return errors.New("honeycomb_key key required for honeycomb")
	}
	if c.Format == "none" && !c.SendTraces && c.Sender == nil {
		return errors.New("format none requires traces to be sent")
	}
	return nil
}

func (c *Config) writer() io.Writer {
	if c.Writer == nil {
		return os.Stderr
	}
	return c.Writer
}

func (c *Config) remote() transmission.Sender {
	if c.Sender != nil {
		return c.Sender
	}
	return &transmission.Honeycomb{
		MaxBatchSize:         libhoney.DefaultMaxBatchSize,
		BatchTimeout:         libhoney.DefaultBatchTimeout,
		MaxConcurrentBatches: libhoney.DefaultMaxConcurrentBatches,
		PendingWorkCapacity:  libhoney.DefaultPendingWorkCapacity,
		UserAgentAddition:    c.ServiceName,
	}
}

func (c *Config) local() transmission.Sender {
	w := c.writer()
	switch c.Format {
	case "none":
		return nil
	case "text":
		return &TextSender{w: w}
	case "colour", "color":
		return &TextSender{w: w, colour: true}
	default:
		return &transmission.WriterSender{W: w}
	}
}

// sender fans events out to the honeycomb server, when enabled, and the local writer.
func (c *Config) sender() transmission.Sender {
	s := &MultiSender{}
	if c.SendTraces {
		s.Senders = append(s.Senders, c.remote())
	}
	if l := c.local(); l != nil {
		s.Senders = append(s.Senders, l)
	}
	return s
}

// samplerHook keeps the span metrics flowing for sampled out events, since the
// beeline skips the presend hook for those.
func (c *Config) samplerHook(metrics *spanMetrics) func(map[string]interface{}) (bool, int) {
	rates := c.SampleRates
	if rates == nil {
		rates = map[string]int{}
	}
	sampler := &TraceSampler{
		KeyFunc: c.SampleKeyFunc,
		Sampler: &dynsampler.Static{Default: 1, Rates: rates},
	}
	return func(fields map[string]interface{}) (bool, int) {
		metrics.hook(fields)
		return sampler.Hook(fields)
	}
}

type honeycomb struct {
	metrics o11y.ClosableMetricsProvider
}

// New creates a honeycomb o11y provider and initialises the global beeline with it.
func New(conf Config) o11y.Provider {
	// beeline's own constructor ignores this error too; the sender is never nil.
	lh, _ := libhoney.NewClient(libhoney.ClientConfig{
		APIKey:       conf.Key,
		Dataset:      conf.Dataset,
		APIHost:      conf.Host,
		Transmission: conf.sender(),
	})

	metrics := &spanMetrics{mp: conf.Metrics}
	bc := beeline.Config{
		Client:      lh,
		Debug:       conf.Debug,
		WriteKey:    conf.Key,
		ServiceName: conf.ServiceName,
	}
	if conf.SampleTraces {
		bc.SamplerHook = conf.samplerHook(metrics)
	} else {
		bc.PresendHook = metrics.hook
	}
	beeline.Init(bc)

	return &honeycomb{metrics: conf.Metrics}
}

func (h *honeycomb) AddGlobalField(key string, val interface{}) {
	mustValidateKey(key)
	client.AddField(key, val)
}

func (h *honeycomb) StartSpan(ctx context.Context, name string) (context.Context, o11y.Span) {
	var s *trace.Span
	if parent := trace.GetSpanFromContext(ctx); parent != nil {
		ctx, s = parent.CreateAsyncChild(ctx)
	} else {
		var tr *trace.Trace
		ctx, tr = trace.NewTrace(ctx, nil)
		s = tr.GetRootSpan()
	}
	s.AddField("name", name)
	return ctx, WrapSpan(s)
}

func (h *honeycomb) GetSpan(ctx context.Context) o11y.Span {
	return WrapSpan(trace.GetSpanFromContext(ctx))
}

func (h *honeycomb) AddField(ctx context.Context, key string, val interface{}) {
	mustValidateKey(key)
	beeline.AddField(ctx, key, val)
}

func (h *honeycomb) AddFieldToTrace(ctx context.Context, key string, val interface{}) {
	mustValidateKey(key)
	beeline.AddFieldToTrace(ctx, key, val)
}

// Log sends a span with no duration, carrying fields as app. fields.
func (h *honeycomb) Log(ctx context.Context, name string, fields ...o11y.Pair) {
	_, s := h.StartSpan(ctx, name)
	for _, f := range fields {
		s.AddField(f.Key, f.Value)
	}
	s.End()
}

// Close flushes the beeline, then the metrics client.
func (h *honeycomb) Close(context.Context) {
	beeline.Close()
	if h.metrics != nil {
		_ = h.metrics.Close()
	}
}

func (h *honeycomb) MetricsProvider() o11y.MetricsProvider {
	if h.metrics == nil {
		return noMetrics{}
	}
	return h.metrics
}

func (h *honeycomb) Helpers() o11y.Helpers {
	return helpers{}
}

// mustValidateKey panics on dashed keys, which statsd tags and honeycomb
// queries both handle badly.
func mustValidateKey(key string) {
	if strings.Contains(key, "-") {
		panic(fmt.Errorf("key %q cannot contain '-'", key))
	}
}
