package run

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/urldev/plugin-monitor/internal/monitor"
	"github.com/urldev/plugin-monitor/internal/web"
	"github.com/urldev/plugin-monitor/internal/wporg"
	"github.com/urldev/plugin-monitor/pkg/client"
	"github.com/urldev/plugin-monitor/pkg/meter"
	"github.com/urldev/plugin-monitor/pkg/scheduler"
	"github.com/urldev/plugin-monitor/pkg/store"
	"github.com/urldev/plugin-monitor/pkg/tracer"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
)

const shutdownTimeout = 10 * time.Second

func run(ctx context.Context, cfg Config) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.EnableMetrics {
		provider, err := meter.NewOTLPProvider(ctx, cfg.Metrics)
		if err != nil {
			log.Error().Err(err).Msg("Unable to configure metrics provider.")
			return err
		}

		provider.Install()
		defer func() { _ = provider.Stop(context.Background()) }()
	}

	if cfg.EnableTracing {
		provider, err := tracer.Setup(ctx, cfg.Tracing)
		if err != nil {
			log.Error().Err(err).Msg("Unable to configure new exporter.")
			return err
		}

		defer func() { _ = provider.Stop(context.Background()) }()
	}

	st, closeStore, err := store.New(ctx, cfg.Store)
	if err != nil {
		return fmt.Errorf("failed to create store: %w", err)
	}

	defer func() { _ = closeStore() }()

	refresher, err := NewRefresher(ctx, cfg.Catalog, st, cfg.EnableMetrics)
	if err != nil {
		return err
	}

	settings := monitor.NewSettings(st)
	refresher.RefreshOnSave(settings)

	if cfg.InitialSlugs != "" {
		seeded, err := settings.Seed(ctx, cfg.InitialSlugs)
		if err != nil {
			return err
		}

		if seeded {
			log.Info().Str("slugs", cfg.InitialSlugs).Msg("Initial slug list stored")
		}
	}

	handler, err := web.New(cfg.Web, settings, refresher)
	if err != nil {
		return err
	}

	sched := scheduler.New(ctx)
	defer sched.Stop()

	refresher.Arm(sched, cfg.RefreshInterval)

	server := &http.Server{
		Addr:              cfg.ListenAddress,
		Handler:           otelhttp.NewHandler(handler.Routes(), "admin"),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("address", cfg.ListenAddress).Msg("Serving admin page")
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("admin server: %w", err)
		}

		return nil

	case <-ctx.Done():
		log.Info().Msg("Shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		return server.Shutdown(shutdownCtx)
	}
}

// NewRefresher creates the refresher and its catalog client.
func NewRefresher(ctx context.Context, cfg CatalogConfig, st store.Store, enableMetrics bool) (*monitor.Refresher, error) {
	fields, err := wporg.ParseFields(cfg.RequestFields)
	if err != nil {
		return nil, err
	}

	if len(fields) == 0 {
		fields = wporg.DefaultFields()
	}

	httpClient, err := client.New(ctx,
		client.WithTimeout(10*time.Second),
		client.WithUserAgent(cfg.UserAgent),
		client.WithMetrics(enableMetrics),
		client.WithToken(cfg.Token),
		client.WithRetry(cfg.RetryMax, time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP client: %w", err)
	}

	catalog := wporg.New(cfg.URL, httpClient.HTTPClient())

	delay := cfg.LookupDelay
	if delay <= 0 {
		delay = monitor.NoDelay
	}

	return monitor.NewRefresher(catalog, st, monitor.Config{
		Fields: fields,
		Delay:  delay,
		TTL:    cfg.CacheTTL,
	}, otel.Tracer(serviceName))
}
