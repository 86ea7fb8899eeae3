// Package setup contains the wiring shared by the rfapi binaries.
package setup

import (
	"context"
	"fmt"
	_ "time/tzdata" // include embedded timezone data

	"github.com/gwatts/rootcerts"

	"github.com/circleci/rfapi/config/o11y"
	"github.com/circleci/rfapi/config/secret"
)

type CLI struct {
	AdminAddr string `env:"ADMIN_ADDR" default:":8001" help:"The address for the admin api to listen on"`

	O11yStatsd           string        `name:"o11y-statsd" env:"O11Y_STATSD" help:"Address to send statsd metrics, disabled when empty"`
	O11yHoneycombEnabled bool          `name:"o11y-honeycomb" env:"O11Y_HONEYCOMB" default:"false" help:"Send traces to honeycomb"`
	O11yHoneycombDataset string        `name:"o11y-honeycomb-dataset" env:"O11Y_HONEYCOMB_DATASET" default:"rfapi"`
	O11yHoneycombKey     secret.String `name:"o11y-honeycomb-key" env:"O11Y_HONEYCOMB_KEY"`
	O11ySampleTraces     bool          `name:"o11y-sample-traces" env:"O11Y_SAMPLE_TRACES" default:"false" help:"Sample successful counter reads"`
	O11yFormat           string        `name:"o11y-format" env:"O11Y_FORMAT" enum:"json,color,text,none" default:"json" help:"Format used for stderr logging"`
	O11yRollbarToken     secret.String `name:"o11y-rollbar-token" env:"O11Y_ROLLBAR_TOKEN"`
	O11yRollbarEnv       string        `name:"o11y-rollbar-env" env:"O11Y_ROLLBAR_ENV" default:"production"`
}

func init() {
	err := rootcerts.UpdateDefaultTransport()
	if err != nil {
		panic(fmt.Errorf("failed to inject rootcerts: %w", err))
	}
}

// SampleRates keeps one in every hundred successful counter reads, and every
// other request. Keys match the default sample key: server, route and status.
var SampleRates = map[string]int{
	"api /counter 200": 100,
}

func LoadO11y(version, mode string, cli CLI) (context.Context, func(context.Context), error) {
	cfg := o11y.Config{
		Statsd:            cli.O11yStatsd,
		RollbarToken:      cli.O11yRollbarToken,
		RollbarEnv:        cli.O11yRollbarEnv,
		RollbarServerRoot: "github.com/circleci/rfapi",
		HoneycombEnabled:  cli.O11yHoneycombEnabled,
		HoneycombDataset:  cli.O11yHoneycombDataset,
		HoneycombKey:      cli.O11yHoneycombKey,
		SampleTraces:      cli.O11ySampleTraces,
		SampleRates:       SampleRates,
		Format:            cli.O11yFormat,
		Version:           version,
		Service:           "rfapi",
		StatsNamespace:    "rfapi.",
		Mode:              mode,
	}
	return o11y.Setup(context.Background(), cfg)
}
