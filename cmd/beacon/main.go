// Package main provides the beacon CLI entrypoint: toggling opt-in,
// running the tracker/publisher as a long-lived process, and
// reporting status.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
)

var (
	version = "0.1.0"
	commit  = "unknown"
)

func main() {
	app := &cli.App{
		Name:           "beacon",
		Usage:          "desktop usage-analytics client core",
		Version:        fmt.Sprintf("%s (commit: %s)", version, commit),
		ExitErrHandler: exitErrHandler,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Usage: "path to beacon.yaml"},
			&cli.StringFlag{Name: "log-level", Value: "info", Usage: "error|warn|info|verbose (not applied: every severity is logged)"},
		},
		Commands: []*cli.Command{
			optInCommand(),
			optOutCommand(),
			runCommand(),
			statusCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		os.Exit(1)
	}
}

// exitErrHandler preserves exit codes from cli.Exit() while still
// printing unwrapped errors with a generic code 1.
func exitErrHandler(_ *cli.Context, err error) {
	if err == nil {
		return
	}

	var exitCoder cli.ExitCoder
	if errors.As(err, &exitCoder) {
		code := exitCoder.ExitCode()
		msg := exitCoder.Error()
		if msg != "" && msg != fmt.Sprintf("exit status %d", code) {
			fmt.Fprintln(os.Stderr, msg)
		}
		os.Exit(code)
	}

	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}
