package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/google/subcommands"
)

type healthcheckCmd struct {
	timeout time.Duration
}

func (*healthcheckCmd) Name() string     { return "healthcheck" }
func (*healthcheckCmd) Synopsis() string { return "probe /healthz of a running server" }
func (*healthcheckCmd) Usage() string {
	return `papertrade healthcheck [-timeout <duration>]

  Sends GET localhost:$PORT/healthz and exits 0 on a 200 response, 1
  otherwise.
`
}

func (c *healthcheckCmd) SetFlags(f *flag.FlagSet) {
	f.DurationVar(&c.timeout, "timeout", 2*time.Second, "Give up after this long.")
}

func (c *healthcheckCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("http://localhost:%s/healthz", port), nil)
	if err != nil {
		return subcommands.ExitFailure
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		fmt.Fprintf(os.Stderr, "unhealthy: %s\n", resp.Status)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
