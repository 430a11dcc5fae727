package run

import (
	"fmt"

	"github.com/ettle/strcase"
	"github.com/urfave/cli/v2"
	"github.com/urldev/plugin-monitor/internal/monitor"
	"github.com/urldev/plugin-monitor/internal/wporg"
	"github.com/urldev/plugin-monitor/pkg/logger"
	"github.com/urldev/plugin-monitor/pkg/store"
)

const (
	flagLogLevel        = "log-level"
	flagLogFormat       = "log-format"
	flagConfigFile      = "config-file"
	flagListenAddress   = "listen-address"
	flagCatalogURL      = "catalog-url"
	flagCatalogToken    = "catalog-token"
	flagUserAgent       = "user-agent"
	flagRequestFields   = "request-fields"
	flagRetryMax        = "retry-max"
	flagLookupDelay     = "lookup-delay"
	flagCacheTTL        = "cache-ttl"
	flagRefreshInterval = "refresh-interval"
	flagInitialSlugs    = "initial-slugs"

	flagStore      = "store"
	flagSQLitePath = "sqlite-path"
	flagS3Bucket   = "s3-bucket"
	flagS3Prefix   = "s3-prefix"

	flagSessionSecret = "session-secret"
	flagAdminUsername = "admin-username"
	flagAdminPassword = "admin-password"
	flagSecureCookie  = "secure-cookie"

	flagEnableMetrics   = "enable-metrics"
	flagMetricsAddress  = "metrics-address"
	flagMetricsInsecure = "metrics-insecure"
	flagMetricsUsername = "metrics-username"
	flagMetricsPassword = "metrics-password"

	flagEnableTracing      = "enable-tracing"
	flagTracingAddress     = "tracing-address"
	flagTracingInsecure    = "tracing-insecure"
	flagTracingUsername    = "tracing-username"
	flagTracingPassword    = "tracing-password"
	flagTracingProbability = "tracing-probability"
)

// DefaultUserAgent the User-Agent sent to the catalog.
const DefaultUserAgent = "plugin-monitor/1.0 (+https://urldev.com/plugin-monitor)"

// Command creates the run command.
func Command() *cli.Command {
	cmd := &cli.Command{
		Name:        "run",
		Usage:       "Run Plugin Monitor",
		Description: "Serve the admin page and refresh the plugin data every hour",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    flagLogLevel,
				Usage:   "Log level",
				EnvVars: []string{strcase.ToSNAKE(flagLogLevel)},
				Value:   "info",
			},
			&cli.StringFlag{
				Name:    flagLogFormat,
				Usage:   "Log format (json, console)",
				EnvVars: []string{strcase.ToSNAKE(flagLogFormat)},
				Value:   logger.FormatJSON,
			},
			&cli.StringFlag{
				Name:    flagConfigFile,
				Usage:   "Configuration file (TOML or YAML), explicit flags take precedence",
				EnvVars: []string{strcase.ToSNAKE(flagConfigFile)},
			},
			&cli.StringFlag{
				Name:    flagListenAddress,
				Usage:   "Address of the admin page",
				EnvVars: []string{strcase.ToSNAKE(flagListenAddress)},
				Value:   ":8080",
			},
			&cli.StringFlag{
				Name:    flagInitialSlugs,
				Usage:   "Comma-separated plugin slugs stored when no slug list has been saved yet",
				EnvVars: []string{strcase.ToSNAKE(flagInitialSlugs)},
			},
			&cli.DurationFlag{
				Name:    flagRefreshInterval,
				Usage:   "Interval between two scheduled refreshes",
				EnvVars: []string{strcase.ToSNAKE(flagRefreshInterval)},
				Value:   monitor.DefaultInterval,
			},
		},
		Action: func(cliCtx *cli.Context) error {
			logger.Setup(cliCtx.String(flagLogLevel), cliCtx.String(flagLogFormat))

			cfg, err := buildConfig(cliCtx)
			if err != nil {
				return err
			}

			return run(cliCtx.Context, cfg)
		},
	}

	cmd.Flags = append(cmd.Flags, CatalogFlags()...)
	cmd.Flags = append(cmd.Flags, getStoreFlags()...)
	cmd.Flags = append(cmd.Flags, getWebFlags()...)
	cmd.Flags = append(cmd.Flags, getMetricsFlags()...)
	cmd.Flags = append(cmd.Flags, getTracingFlags()...)

	return cmd
}

// CatalogFlags the flags configuring the catalog lookups.
func CatalogFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    flagCatalogURL,
			Usage:   "Plugin catalog API URL",
			EnvVars: []string{strcase.ToSNAKE(flagCatalogURL)},
			Value:   wporg.DefaultBaseURL,
		},
		&cli.StringFlag{
			Name:    flagCatalogToken,
			Usage:   "Bearer token for a private catalog mirror",
			EnvVars: []string{strcase.ToSNAKE(flagCatalogToken)},
		},
		&cli.StringFlag{
			Name:    flagUserAgent,
			Usage:   "User-Agent sent to the catalog",
			EnvVars: []string{strcase.ToSNAKE(flagUserAgent)},
			Value:   DefaultUserAgent,
		},
		// flagRequestFields fields included (name or name=true) or excluded (name=false) from lookups.
		&cli.StringSliceFlag{
			Name:    flagRequestFields,
			Usage:   "Fields requested from the catalog",
			EnvVars: []string{strcase.ToSNAKE(flagRequestFields)},
			Value:   cli.NewStringSlice("short_description=false", "downloaded=true"),
		},
		&cli.IntFlag{
			Name:    flagRetryMax,
			Usage:   "Maximum number of retries of a failed lookup (0 disables retries)",
			EnvVars: []string{strcase.ToSNAKE(flagRetryMax)},
			Value:   0,
		},
		&cli.DurationFlag{
			Name:    flagLookupDelay,
			Usage:   "Pause after each lookup (0 disables it)",
			EnvVars: []string{strcase.ToSNAKE(flagLookupDelay)},
			Value:   monitor.DefaultDelay,
		},
		&cli.DurationFlag{
			Name:    flagCacheTTL,
			Usage:   "Lifetime of the cached plugin data",
			EnvVars: []string{strcase.ToSNAKE(flagCacheTTL)},
			Value:   monitor.DefaultTTL,
		},
	}
}

func getStoreFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    flagStore,
			Usage:   fmt.Sprintf("Store backend (%s, %s, %s)", store.BackendMemory, store.BackendSQLite, store.BackendS3),
			EnvVars: []string{strcase.ToSNAKE(flagStore)},
			Value:   store.BackendMemory,
		},
		&cli.StringFlag{
			Name:    flagSQLitePath,
			Usage:   "SQLite database path",
			EnvVars: []string{strcase.ToSNAKE(flagSQLitePath)},
			Value:   "plugin-monitor.db",
		},
		&cli.StringFlag{
			Name:    flagS3Bucket,
			Usage:   "S3 bucket",
			EnvVars: []string{strcase.ToSNAKE(flagS3Bucket)},
		},
		&cli.StringFlag{
			Name:    flagS3Prefix,
			Usage:   "S3 key prefix",
			EnvVars: []string{strcase.ToSNAKE(flagS3Prefix)},
			Value:   "plugin-monitor",
		},
	}
}

func getWebFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    flagSessionSecret,
			Usage:   "Secret used to sign the session cookies",
			EnvVars: []string{strcase.ToSNAKE(flagSessionSecret)},
		},
		&cli.StringFlag{
			Name:    flagAdminUsername,
			Usage:   "Admin username (enables basic authentication)",
			EnvVars: []string{strcase.ToSNAKE(flagAdminUsername)},
		},
		&cli.StringFlag{
			Name:    flagAdminPassword,
			Usage:   "Admin password",
			EnvVars: []string{strcase.ToSNAKE(flagAdminPassword)},
		},
		&cli.BoolFlag{
			Name:    flagSecureCookie,
			Usage:   "Only send the session cookie over HTTPS",
			EnvVars: []string{strcase.ToSNAKE(flagSecureCookie)},
		},
	}
}

func getMetricsFlags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{
			Name:    flagEnableMetrics,
			Usage:   "Export metrics",
			EnvVars: []string{strcase.ToSNAKE(flagEnableMetrics)},
		},
		&cli.StringFlag{
			Name:    flagMetricsAddress,
			Usage:   "Address to send metrics",
			EnvVars: []string{strcase.ToSNAKE(flagMetricsAddress)},
			Value:   "localhost:4318",
		},
		&cli.BoolFlag{
			Name:    flagMetricsInsecure,
			Usage:   "use HTTP instead of HTTPS",
			EnvVars: []string{strcase.ToSNAKE(flagMetricsInsecure)},
			Value:   true,
		},
		&cli.StringFlag{
			Name:    flagMetricsUsername,
			Usage:   "Username to connect to OTEL",
			EnvVars: []string{strcase.ToSNAKE(flagMetricsUsername)},
		},
		&cli.StringFlag{
			Name:    flagMetricsPassword,
			Usage:   "Password to connect to OTEL",
			EnvVars: []string{strcase.ToSNAKE(flagMetricsPassword)},
		},
	}
}

func getTracingFlags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{
			Name:    flagEnableTracing,
			Usage:   "Export traces",
			EnvVars: []string{strcase.ToSNAKE(flagEnableTracing)},
		},
		&cli.StringFlag{
			Name:    flagTracingAddress,
			Usage:   "Address to send traces",
			EnvVars: []string{strcase.ToSNAKE(flagTracingAddress)},
			Value:   "localhost:4318",
		},
		&cli.BoolFlag{
			Name:    flagTracingInsecure,
			Usage:   "use HTTP instead of HTTPS",
			EnvVars: []string{strcase.ToSNAKE(flagTracingInsecure)},
			Value:   true,
		},
		&cli.StringFlag{
			Name:    flagTracingUsername,
			Usage:   "Username to connect to the trace collector",
			EnvVars: []string{strcase.ToSNAKE(flagTracingUsername)},
		},
		&cli.StringFlag{
			Name:    flagTracingPassword,
			Usage:   "Password to connect to the trace collector",
			EnvVars: []string{strcase.ToSNAKE(flagTracingPassword)},
		},
		&cli.Float64Flag{
			Name:    flagTracingProbability,
			Usage:   "Probability to send traces",
			EnvVars: []string{strcase.ToSNAKE(flagTracingProbability)},
			Value:   0,
		},
	}
}
