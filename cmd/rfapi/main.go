package main

import (
	"context"
	"errors"
	"fmt"
	"log" //nolint:depguard // non-o11y log is allowed for a top-level fatal
	"time"

	"github.com/alecthomas/kong"

	"github.com/circleci/rfapi/api"
	"github.com/circleci/rfapi/cmd"
	"github.com/circleci/rfapi/cmd/setup"
	"github.com/circleci/rfapi/counter"
	"github.com/circleci/rfapi/httpserver"
	"github.com/circleci/rfapi/httpserver/healthcheck"
	"github.com/circleci/rfapi/o11y"
	"github.com/circleci/rfapi/openapi"
	"github.com/circleci/rfapi/system"
	"github.com/circleci/rfapi/termination"
)

type cli struct {
	setup.CLI

	ShutdownDelay       time.Duration `env:"SHUTDOWN_DELAY" default:"5s" help:"Delay shutdown by this amount" hidden:""`
	APIAddr             string        `env:"API_ADDR" default:":8000" help:"The address for the API to listen on"`
	RequestBodyMaxBytes int64         `env:"REQUEST_BODY_MAX_BYTES" default:"1024" help:"Largest request body the API will read"`
	DocsPath            string        `env:"DOCS_PATH" default:"docs.json" help:"Where to write the OpenAPI description on startup, empty to skip"`
}

func main() {
	err := run(cmd.Version, cmd.Date)
	if err != nil && !errors.Is(err, termination.ErrTerminated) {
		log.Fatal("Unexpected Error: ", err)
	}
	log.Println("exited 0")
}

func run(version, date string) (err error) {
	cli := cli{}
	kong.Parse(&cli,
		kong.Name("rfapi"),
		kong.Description("Serves a single shared counter over HTTP."),
	)

	ctx, o11yCleanup, err := setup.LoadO11y(version, "api", cli.CLI)
	if err != nil {
		return err
	}
	defer o11yCleanup(ctx)

	ctx, runSpan := o11y.StartSpan(ctx, "main: run")
	defer o11y.End(runSpan, &err)

	o11y.Log(ctx, "starting rfapi",
		o11y.Field("version", version),
		o11y.Field("date", date),
	)

	sys := system.New(ctx)
	defer sys.Cleanup(ctx)

	err = exportDocs(ctx, cli.DocsPath, version)
	if err != nil {
		return err
	}

	err = loadAPI(ctx, cli, version, sys)
	if err != nil {
		return err
	}

	// Should be last so it collects all the health checks
	_, err = healthcheck.Load(ctx, cli.AdminAddr, sys)
	if err != nil {
		return err
	}

	return sys.Run(cli.ShutdownDelay)
}

func exportDocs(ctx context.Context, path, version string) (err error) {
	if path == "" {
		return nil
	}
	_, span := o11y.StartSpan(ctx, "main: export-docs")
	defer o11y.End(span, &err)
	span.AddField("path", path)

	err = openapi.WriteFile(path, openapi.Describe(openapi.DefaultInfo(version)))
	if err != nil {
		return fmt.Errorf("failed to export api description: %w", err)
	}
	return nil
}

func loadAPI(ctx context.Context, cli cli, version string, sys *system.System) error {
	state := counter.NewState()
	sys.AddMetrics(state)
	sys.AddCleanup(func(ctx context.Context) error {
		// the counter does not outlive the process
		o11y.Log(ctx, "counter: discarded", o11y.Field("value", state.Get()))
		return nil
	})

	a, err := api.New(ctx, api.Options{
		Counter:      counter.NewService(state),
		Version:      version,
		MaxBodyBytes: cli.RequestBodyMaxBytes,
	})
	if err != nil {
		return err
	}

	_, err = httpserver.Load(ctx, httpserver.Config{
		Name:    "api",
		Addr:    cli.APIAddr,
		Handler: a.Handler(),
	}, sys)
	return err
}
