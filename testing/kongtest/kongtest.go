// Package kongtest helps test kong command line definitions.
package kongtest

import (
	"strings"
	"testing"

	"github.com/alecthomas/kong"
	"gotest.tools/v3/assert"
)

func parser(t *testing.T, cli interface{}, opts ...kong.Option) *kong.Kong {
	t.Helper()
	app, err := kong.New(cli, append([]kong.Option{kong.Name("test-app")}, opts...)...)
	assert.Assert(t, err)
	return app
}

// Help renders the --help output for cli, checking it exits 0.
func Help(t *testing.T, cli interface{}) string {
	t.Helper()

	var out strings.Builder
	exit := -1
	app := parser(t, cli,
		kong.Writers(&out, &out),
		kong.Exit(func(code int) { exit = code }),
	)

	_, err := app.Parse([]string{"--help"})
	assert.Check(t, err)
	assert.Check(t, exit == 0, "help exited with %d", exit)
	return out.String()
}

// Parse parses args into cli, failing the test on error. Environment variables
// are read from the process environment, so use t.Setenv to set them.
func Parse(t *testing.T, cli interface{}, args ...string) {
	t.Helper()
	_, err := parser(t, cli).Parse(args)
	assert.Assert(t, err)
}
