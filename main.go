package main

import (
	"os"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"
	"github.com/urldev/plugin-monitor/cmd/fetch"
	"github.com/urldev/plugin-monitor/cmd/run"
)

func main() {
	err := newApp().Run(os.Args)
	if err != nil {
		log.Fatal().Err(err).Msg("Error while executing command")
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "Plugin Monitor CLI",
		Usage: "Monitor WordPress.org plugins",
		Commands: []*cli.Command{
			run.Command(),
			fetch.Command(),
		},
	}
}
