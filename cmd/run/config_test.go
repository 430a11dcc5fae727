package run

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
	"github.com/urldev/plugin-monitor/internal/monitor"
	"github.com/urldev/plugin-monitor/internal/wporg"
	"github.com/urldev/plugin-monitor/pkg/store"
)

func parseConfig(t *testing.T, args ...string) (Config, error) {
	t.Helper()

	var cfg Config
	var cfgErr error

	cmd := Command()
	cmd.Action = func(cliCtx *cli.Context) error {
		cfg, cfgErr = buildConfig(cliCtx)
		return nil
	}

	app := &cli.App{Name: "plugin-monitor", Commands: []*cli.Command{cmd}}

	err := app.Run(append([]string{"plugin-monitor", "run"}, args...))
	require.NoError(t, err)

	return cfg, cfgErr
}

func TestBuildConfig_defaults(t *testing.T) {
	cfg, err := parseConfig(t)
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.ListenAddress)
	assert.Equal(t, monitor.DefaultInterval, cfg.RefreshInterval)
	assert.Equal(t, wporg.DefaultBaseURL, cfg.Catalog.URL)
	assert.Equal(t, []string{"short_description=false", "downloaded=true"}, cfg.Catalog.RequestFields)
	assert.Equal(t, 100*time.Millisecond, cfg.Catalog.LookupDelay)
	assert.Equal(t, 24*time.Hour, cfg.Catalog.CacheTTL)
	assert.Zero(t, cfg.Catalog.RetryMax)
	assert.Equal(t, store.BackendMemory, cfg.Store.Backend)
	assert.Equal(t, serviceName, cfg.Metrics.ServiceName)
	assert.False(t, cfg.EnableMetrics)
	assert.False(t, cfg.EnableTracing)

	fields, err := wporg.ParseFields(cfg.Catalog.RequestFields)
	require.NoError(t, err)
	assert.Equal(t, wporg.DefaultFields(), fields)
}

func TestBuildConfig_flags(t *testing.T) {
	cfg, err := parseConfig(t,
		"--listen-address", ":9000",
		"--store", "sqlite",
		"--request-fields", "active_installs",
		"--request-fields", "last_updated=true",
		"--lookup-delay", "250ms",
		"--admin-username", "admin",
	)
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.ListenAddress)
	assert.Equal(t, store.BackendSQLite, cfg.Store.Backend)
	assert.Equal(t, []string{"active_installs", "last_updated=true"}, cfg.Catalog.RequestFields)
	assert.Equal(t, 250*time.Millisecond, cfg.Catalog.LookupDelay)
	assert.Equal(t, "admin", cfg.Web.AdminUsername)
}

func TestBuildConfig_file(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plugin-monitor.toml")

	content := `
listenAddress = ":9090"
initialSlugs = "akismet,jetpack"

[store]
  backend = "sqlite"
  sqlitePath = "/var/lib/plugin-monitor.db"

[catalog]
  retryMax = 2
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := parseConfig(t, "--config-file", path, "--listen-address", ":7070")
	require.NoError(t, err)

	assert.Equal(t, ":7070", cfg.ListenAddress, "explicit flag must win")
	assert.Equal(t, "akismet,jetpack", cfg.InitialSlugs)
	assert.Equal(t, store.BackendSQLite, cfg.Store.Backend)
	assert.Equal(t, "/var/lib/plugin-monitor.db", cfg.Store.SQLitePath)
	assert.Equal(t, 2, cfg.Catalog.RetryMax)
	assert.Equal(t, wporg.DefaultBaseURL, cfg.Catalog.URL, "values absent from the file keep the flag defaults")
}

func TestBuildConfig_missingFile(t *testing.T) {
	_, err := parseConfig(t, "--config-file", filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}
