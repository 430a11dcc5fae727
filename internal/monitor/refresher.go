package monitor

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/urldev/plugin-monitor/internal/wporg"
	"github.com/urldev/plugin-monitor/pkg/store"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Store keys.
const (
	OptionKey = "plugin_monitor_slugs"
	CacheKey  = "plugin_monitor_data"
)

// Defaults of a refresh cycle.
const (
	DefaultDelay = 100 * time.Millisecond
	DefaultTTL   = 24 * time.Hour
)

// NoDelay disables the pause between lookups.
const NoDelay time.Duration = -1

type catalog interface {
	PluginInformation(ctx context.Context, slug string, fields wporg.Fields) (*wporg.Plugin, error)
}

// Config holds the refresh cycle configuration.
type Config struct {
	Fields wporg.Fields
	// Delay is the pause after each lookup.
	// Zero means DefaultDelay, NoDelay disables it.
	Delay time.Duration
	// TTL is the lifetime of a cache entry.
	TTL time.Duration
}

// Refresher fetches the configured plugins and replaces the cache entry.
type Refresher struct {
	catalog catalog
	store   store.Store
	fields  wporg.Fields
	delay   time.Duration
	ttl     time.Duration
	tracer  trace.Tracer
	now     func() time.Time

	lookupCounter  metric.Int64Counter
	refreshCounter metric.Int64Counter
}

// NewRefresher creates a new Refresher instance.
func NewRefresher(cat catalog, st store.Store, cfg Config, tracer trace.Tracer) (*Refresher, error) {
	if cfg.Fields == nil {
		cfg.Fields = wporg.DefaultFields()
	}

	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}

	if cfg.Delay == 0 {
		cfg.Delay = DefaultDelay
	}

	if tracer == nil {
		tracer = otel.Tracer("plugin-monitor")
	}

	m := otel.Meter("plugin-monitor")

	lookupCounter, err := m.Int64Counter(
		"plugin_monitor.lookups.total",
		metric.WithDescription("Number of catalog lookups."),
		metric.WithUnit("requests"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating counter: %w", err)
	}

	refreshCounter, err := m.Int64Counter(
		"plugin_monitor.refresh.total",
		metric.WithDescription("Number of refresh cycles."),
	)
	if err != nil {
		return nil, fmt.Errorf("creating counter: %w", err)
	}

	return &Refresher{
		catalog:        cat,
		store:          st,
		fields:         cfg.Fields,
		delay:          cfg.Delay,
		ttl:            cfg.TTL,
		tracer:         tracer,
		now:            time.Now,
		lookupCounter:  lookupCounter,
		refreshCounter: refreshCounter,
	}, nil
}

// Refresh fetches each slug in order and replaces the cache entry.
// With no slugs, nothing is fetched and the cache is left untouched (the returned entry is nil).
// A failed lookup only drops the slug from the entry.
func (r *Refresher) Refresh(ctx context.Context, slugs []string) (*CacheEntry, error) {
	if len(slugs) == 0 {
		return nil, nil
	}

	ctx, span := r.tracer.Start(ctx, "refresh_cycle")
	defer span.End()

	span.SetAttributes(attribute.Int("slugs", len(slugs)))

	entry := &CacheEntry{}

	for _, slug := range slugs {
		logger := log.Ctx(ctx).With().Str("slug", slug).Logger()

		plg, err := r.catalog.PluginInformation(logger.WithContext(ctx), slug, r.fields)
		if err != nil {
			logger.Debug().Err(err).Msg("Plugin lookup failed, skipping")
			r.lookupCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", "error")))
		} else {
			entry.put(slug, *plg)
			r.lookupCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", "success")))
		}

		if err := r.pause(ctx); err != nil {
			span.RecordError(err)
			return nil, err
		}
	}

	now := r.now()
	entry.CreatedAt = now
	entry.ExpiresAt = now.Add(r.ttl)

	data, err := json.Marshal(entry)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to marshal cache entry: %w", err)
	}

	err = r.store.Set(ctx, CacheKey, data, r.ttl)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to store cache entry: %w", err)
	}

	r.refreshCounter.Add(ctx, 1)

	log.Ctx(ctx).Info().
		Int("requested", len(slugs)).
		Int("fetched", len(entry.Plugins)).
		Msg("Plugin data refreshed")

	return entry, nil
}

// RefreshConfigured refreshes the slugs stored in the settings.
func (r *Refresher) RefreshConfigured(ctx context.Context) (*CacheEntry, error) {
	raw, err := loadOption(ctx, r.store)
	if err != nil {
		return nil, err
	}

	return r.Refresh(ctx, ParseSlugs(raw))
}

// Entry returns the current cache entry, nil if it is absent or expired.
func (r *Refresher) Entry(ctx context.Context) (*CacheEntry, error) {
	data, found, err := r.store.Get(ctx, CacheKey)
	if err != nil {
		return nil, fmt.Errorf("failed to read cache entry: %w", err)
	}

	if !found {
		return nil, nil
	}

	var entry CacheEntry
	err = json.Unmarshal(data, &entry)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal cache entry: %w", err)
	}

	if entry.Expired(r.now()) {
		return nil, nil
	}

	return &entry, nil
}

func (r *Refresher) pause(ctx context.Context) error {
	if r.delay <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(r.delay)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
