package main

import (
	"github.com/urfave/cli/v2"

	"github.com/justapithecus/beacon/internal/logx"
)

func newLogger(c *cli.Context) logx.Logger {
	return logx.NewZapStderr()
}

func configPath(c *cli.Context) string {
	if p := c.String("config"); p != "" {
		return p
	}
	return "beacon.yaml"
}
