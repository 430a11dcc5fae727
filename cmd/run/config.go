package run

import (
	"fmt"
	"time"

	pfile "github.com/traefik/paerser/file"
	"github.com/urfave/cli/v2"
	"github.com/urldev/plugin-monitor/internal/web"
	"github.com/urldev/plugin-monitor/pkg/meter"
	"github.com/urldev/plugin-monitor/pkg/store"
	"github.com/urldev/plugin-monitor/pkg/tracer"
)

const serviceName = "plugin-monitor"

// Config represents the configuration for the run command.
type Config struct {
	ListenAddress   string
	InitialSlugs    string
	RefreshInterval time.Duration

	Catalog CatalogConfig
	Store   store.Config
	Web     web.Config

	EnableMetrics bool
	Metrics       meter.Config
	EnableTracing bool
	Tracing       tracer.Config
}

// CatalogConfig represents the configuration of the catalog lookups.
type CatalogConfig struct {
	URL           string
	Token         string
	UserAgent     string
	RequestFields []string
	RetryMax      int
	LookupDelay   time.Duration
	CacheTTL      time.Duration
}

type setter struct {
	flag string
	set  func(cliCtx *cli.Context, cfg *Config)
}

var setters = []setter{
	{flagListenAddress, func(c *cli.Context, cfg *Config) { cfg.ListenAddress = c.String(flagListenAddress) }},
	{flagInitialSlugs, func(c *cli.Context, cfg *Config) { cfg.InitialSlugs = c.String(flagInitialSlugs) }},
	{flagRefreshInterval, func(c *cli.Context, cfg *Config) { cfg.RefreshInterval = c.Duration(flagRefreshInterval) }},

	{flagStore, func(c *cli.Context, cfg *Config) { cfg.Store.Backend = c.String(flagStore) }},
	{flagSQLitePath, func(c *cli.Context, cfg *Config) { cfg.Store.SQLitePath = c.String(flagSQLitePath) }},
	{flagS3Bucket, func(c *cli.Context, cfg *Config) { cfg.Store.S3Bucket = c.String(flagS3Bucket) }},
	{flagS3Prefix, func(c *cli.Context, cfg *Config) { cfg.Store.S3Prefix = c.String(flagS3Prefix) }},

	{flagSessionSecret, func(c *cli.Context, cfg *Config) { cfg.Web.SessionSecret = c.String(flagSessionSecret) }},
	{flagAdminUsername, func(c *cli.Context, cfg *Config) { cfg.Web.AdminUsername = c.String(flagAdminUsername) }},
	{flagAdminPassword, func(c *cli.Context, cfg *Config) { cfg.Web.AdminPassword = c.String(flagAdminPassword) }},
	{flagSecureCookie, func(c *cli.Context, cfg *Config) { cfg.Web.SecureCookie = c.Bool(flagSecureCookie) }},

	{flagEnableMetrics, func(c *cli.Context, cfg *Config) { cfg.EnableMetrics = c.Bool(flagEnableMetrics) }},
	{flagMetricsAddress, func(c *cli.Context, cfg *Config) { cfg.Metrics.Address = c.String(flagMetricsAddress) }},
	{flagMetricsInsecure, func(c *cli.Context, cfg *Config) { cfg.Metrics.Insecure = c.Bool(flagMetricsInsecure) }},
	{flagMetricsUsername, func(c *cli.Context, cfg *Config) { cfg.Metrics.Username = c.String(flagMetricsUsername) }},
	{flagMetricsPassword, func(c *cli.Context, cfg *Config) { cfg.Metrics.Password = c.String(flagMetricsPassword) }},

	{flagEnableTracing, func(c *cli.Context, cfg *Config) { cfg.EnableTracing = c.Bool(flagEnableTracing) }},
	{flagTracingAddress, func(c *cli.Context, cfg *Config) { cfg.Tracing.Address = c.String(flagTracingAddress) }},
	{flagTracingInsecure, func(c *cli.Context, cfg *Config) { cfg.Tracing.Insecure = c.Bool(flagTracingInsecure) }},
	{flagTracingUsername, func(c *cli.Context, cfg *Config) { cfg.Tracing.Username = c.String(flagTracingUsername) }},
	{flagTracingPassword, func(c *cli.Context, cfg *Config) { cfg.Tracing.Password = c.String(flagTracingPassword) }},
	{flagTracingProbability, func(c *cli.Context, cfg *Config) { cfg.Tracing.Probability = c.Float64(flagTracingProbability) }},
}

// catalogSetters are shared with the fetch command.
var catalogSetters = []struct {
	flag string
	set  func(cliCtx *cli.Context, cfg *CatalogConfig)
}{
	{flagCatalogURL, func(c *cli.Context, cfg *CatalogConfig) { cfg.URL = c.String(flagCatalogURL) }},
	{flagCatalogToken, func(c *cli.Context, cfg *CatalogConfig) { cfg.Token = c.String(flagCatalogToken) }},
	{flagUserAgent, func(c *cli.Context, cfg *CatalogConfig) { cfg.UserAgent = c.String(flagUserAgent) }},
	{flagRequestFields, func(c *cli.Context, cfg *CatalogConfig) { cfg.RequestFields = c.StringSlice(flagRequestFields) }},
	{flagRetryMax, func(c *cli.Context, cfg *CatalogConfig) { cfg.RetryMax = c.Int(flagRetryMax) }},
	{flagLookupDelay, func(c *cli.Context, cfg *CatalogConfig) { cfg.LookupDelay = c.Duration(flagLookupDelay) }},
	{flagCacheTTL, func(c *cli.Context, cfg *CatalogConfig) { cfg.CacheTTL = c.Duration(flagCacheTTL) }},
}

// BuildCatalogConfig reads the catalog flags.
func BuildCatalogConfig(cliCtx *cli.Context) CatalogConfig {
	var cfg CatalogConfig
	for _, s := range catalogSetters {
		s.set(cliCtx, &cfg)
	}

	return cfg
}

func buildConfig(cliCtx *cli.Context) (Config, error) {
	cfg := Config{
		Catalog: BuildCatalogConfig(cliCtx),
		Metrics: meter.Config{ServiceName: serviceName},
		Tracing: tracer.Config{ServiceName: serviceName},
	}

	for _, s := range setters {
		s.set(cliCtx, &cfg)
	}

	path := cliCtx.String(flagConfigFile)
	if path == "" {
		return cfg, nil
	}

	err := pfile.Decode(path, &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read configuration file %s: %w", path, err)
	}

	// explicit flags win over the file.
	for _, s := range setters {
		if cliCtx.IsSet(s.flag) {
			s.set(cliCtx, &cfg)
		}
	}

	for _, s := range catalogSetters {
		if cliCtx.IsSet(s.flag) {
			s.set(cliCtx, &cfg.Catalog)
		}
	}

	return cfg, nil
}
