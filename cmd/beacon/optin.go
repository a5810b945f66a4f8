package main

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/justapithecus/beacon/internal/clock"
	"github.com/justapithecus/beacon/internal/paths"
	"github.com/justapithecus/beacon/internal/settings"
)

func optInCommand() *cli.Command {
	return &cli.Command{
		Name:  "optin",
		Usage: "enable usage analytics",
		Action: func(c *cli.Context) error {
			return setOptIn(c, true)
		},
	}
}

func optOutCommand() *cli.Command {
	return &cli.Command{
		Name:  "optout",
		Usage: "disable usage analytics",
		Action: func(c *cli.Context) error {
			return setOptIn(c, false)
		},
	}
}

func setOptIn(c *cli.Context, optIn bool) error {
	logger := newLogger(c)
	st := settings.GetInstance(logger, paths.SettingsFile(), clock.System)
	if err := st.SetOptedIn(optIn); err != nil {
		return cli.Exit(fmt.Sprintf("failed to update settings: %v", err), 1)
	}
	fmt.Printf("opted in: %v\n", st.HasOptedIn())
	return nil
}
