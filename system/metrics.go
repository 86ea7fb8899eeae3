package system

import (
	"context"
	"strings"
	"time"

	"github.com/circleci/rfapi/o11y"
	"github.com/circleci/rfapi/worker"
)

// MetricProducer is anything with instantaneous values worth publishing, such
// as the counter itself or a server's connection tracker.
type MetricProducer interface {
	// MetricName prefixes every gauge the producer reports. Dashes become underscores.
	MetricName() string
	Gauges(context.Context) map[string]float64
}

const metricsInterval = 10 * time.Second

// publishGauges sends every producer's gauges as gauge.<producer>.<gauge>.
func publishGauges(ctx context.Context, producers []MetricProducer) {
	metrics := o11y.FromContext(ctx).MetricsProvider()
	for _, p := range producers {
		prefix := "gauge." + strings.ReplaceAll(p.MetricName(), "-", "_") + "."
		for name, v := range p.Gauges(ctx) {
			_ = metrics.Gauge(prefix+name, v, []string{}, 1)
		}
	}
}

// metricsReporter returns a func for errgroup.Go that publishes the producers'
// gauges every metricsInterval until ctx is done.
func metricsReporter(ctx context.Context, producers []MetricProducer) func() error {
	return func() error {
		worker.Run(ctx, worker.Every("metrics", metricsInterval, func(ctx context.Context) {
			publishGauges(ctx, producers)
		}))
		return nil
	}
}
