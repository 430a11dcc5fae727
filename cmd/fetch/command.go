// Package fetch implements a one-shot refresh printing the plugin data.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/ettle/strcase"
	"github.com/urfave/cli/v2"
	"github.com/urldev/plugin-monitor/cmd/run"
	"github.com/urldev/plugin-monitor/internal/export"
	"github.com/urldev/plugin-monitor/internal/monitor"
	"github.com/urldev/plugin-monitor/pkg/logger"
	"github.com/urldev/plugin-monitor/pkg/store"
)

const (
	flagLogLevel = "log-level"
	flagSlugs    = "slugs"
	flagFormat   = "format"
)

// Command creates the fetch command.
func Command() *cli.Command {
	cmd := &cli.Command{
		Name:        "fetch",
		Usage:       "Fetch plugin data once",
		Description: "Run a single refresh cycle and print the result",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    flagLogLevel,
				Usage:   "Log level",
				EnvVars: []string{strcase.ToSNAKE(flagLogLevel)},
				Value:   "error",
			},
			&cli.StringFlag{
				Name:     flagSlugs,
				Usage:    "Comma-separated plugin slugs",
				EnvVars:  []string{strcase.ToSNAKE(flagSlugs)},
				Required: true,
			},
			&cli.StringFlag{
				Name:    flagFormat,
				Usage:   fmt.Sprintf("Output format (%s, %s, %s)", export.FormatJSON, export.FormatYAML, export.FormatTOML),
				EnvVars: []string{strcase.ToSNAKE(flagFormat)},
				Value:   export.FormatJSON,
			},
		},
		Action: func(cliCtx *cli.Context) error {
			logger.Setup(cliCtx.String(flagLogLevel), logger.FormatConsole)

			cfg := run.BuildCatalogConfig(cliCtx)

			return fetch(cliCtx.Context, cliCtx.App.Writer, cfg, cliCtx.String(flagSlugs), cliCtx.String(flagFormat))
		},
	}

	cmd.Flags = append(cmd.Flags, run.CatalogFlags()...)

	return cmd
}

func fetch(ctx context.Context, w io.Writer, cfg run.CatalogConfig, rawSlugs, format string) error {
	slugs := monitor.ParseSlugs(rawSlugs)
	if len(slugs) == 0 {
		return errors.New("no plugin slug")
	}

	refresher, err := run.NewRefresher(ctx, cfg, store.NewMemory(), false)
	if err != nil {
		return err
	}

	entry, err := refresher.Refresh(ctx, slugs)
	if err != nil {
		return err
	}

	return export.Write(w, entry, format)
}
