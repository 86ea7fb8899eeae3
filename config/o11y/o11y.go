// Package o11y builds the o11y provider from service configuration: a
// honeycomb beeline writing locally and optionally to honeycomb, statsd span
// metrics, and rollbar panic reporting.
package o11y

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/DataDog/datadog-go/statsd"
	"github.com/rollbar/rollbar-go"

	"github.com/circleci/rfapi/config/secret"
	"github.com/circleci/rfapi/o11y"
	"github.com/circleci/rfapi/o11y/honeycomb"
)

type Config struct {
	// Statsd is the agent address. Metrics are discarded when it is empty.
	Statsd         string
	StatsNamespace string

	// RollbarToken enables panic reporting when set.
	RollbarToken      secret.String
	RollbarEnv        string
	RollbarServerRoot string

	HoneycombEnabled bool
	HoneycombDataset string
	HoneycombKey     secret.String
	SampleTraces     bool
	// SampleKeyFunc defaults to "<server> <route> <status>" for gin requests.
	SampleKeyFunc func(map[string]interface{}) string
	SampleRates   map[string]int

	// Format is the local output: json, text, color or none.
	Format  string
	Version string
	Service string

	// Optional
	Mode                    string
	Debug                   bool
	RollbarDisabled         bool
	StatsdTelemetryDisabled bool
	Writer                  io.Writer
}

// Setup returns a context carrying the provider, and a func that flushes and
// closes it. It is used the same way in development and production; only the
// config differs.
func Setup(ctx context.Context, o Config) (context.Context, func(context.Context), error) {
	hc := beelineConfig(o)
	if err := hc.Validate(); err != nil {
		return nil, nil, err
	}

	host, _ := os.Hostname()

	var err error
	hc.Metrics, err = statsdClient(o, host)
	if err != nil {
		return nil, nil, err
	}

	var p o11y.Provider = honeycomb.New(hc)
	p.AddGlobalField("service", o.Service)
	p.AddGlobalField("version", o.Version)
	if o.Mode != "" {
		p.AddGlobalField("mode", o.Mode)
	}

	if o.RollbarToken.IsSet() {
		rc := rollbar.NewAsync(o.RollbarToken.Raw(), o.RollbarEnv, o.Version, host, o.RollbarServerRoot)
		rc.SetEnabled(!o.RollbarDisabled)
		rc.Message(rollbar.INFO, "Deployment")
		p = rollbarProvider{Provider: p, rollbarClient: rc}
	}

	return o11y.WithProvider(ctx, p), p.Close, nil
}

func statsdClient(o Config, host string) (o11y.ClosableMetricsProvider, error) {
	if o.Statsd == "" {
		return &statsd.NoOpClient{}, nil
	}

	tags := []string{"service:" + o.Service, "version:" + o.Version, "hostname:" + host}
	if o.Mode != "" {
		tags = append(tags, "mode:"+o.Mode)
	}
	opts := []statsd.Option{
		statsd.WithNamespace(o.StatsNamespace),
		statsd.WithTags(tags),
	}
	if o.StatsdTelemetryDisabled {
		opts = append(opts, statsd.WithoutTelemetry())
	}

	c, err := statsd.New(o.Statsd, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create statsd client: %w", err)
	}
	return c, nil
}

func beelineConfig(o Config) honeycomb.Config {
	key := o.SampleKeyFunc
	if key == nil {
		key = routeSampleKey
	}
	return honeycomb.Config{
		Dataset:       o.HoneycombDataset,
		Key:           o.HoneycombKey.Raw(),
		Format:        o.Format,
		SendTraces:    o.HoneycombEnabled,
		SampleTraces:  o.SampleTraces,
		SampleKeyFunc: key,
		SampleRates:   o.SampleRates,
		Writer:        o.Writer,
		ServiceName:   o.Service,
		Debug:         o.Debug,
	}
}

// routeSampleKey groups request spans by server, route and status.
func routeSampleKey(fields map[string]interface{}) string {
	return fmt.Sprintf("%s %s %v",
		fields["http.server_name"],
		fields["http.route"],
		fields["http.status_code"],
	)
}

// rollbarProvider lets o11y.HandlePanic find the rollbar client.
type rollbarProvider struct {
	o11y.Provider
	rollbarClient *rollbar.Client
}

func (p rollbarProvider) Close(ctx context.Context) {
	p.Provider.Close(ctx)
	_ = p.rollbarClient.Close()
}

func (p rollbarProvider) RollBarClient() *rollbar.Client {
	return p.rollbarClient
}
