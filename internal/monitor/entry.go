package monitor

import (
	"time"

	"github.com/urldev/plugin-monitor/internal/wporg"
)

// CacheEntry the result of a refresh cycle.
// Plugins are unique by slug and ordered like the slug list.
type CacheEntry struct {
	CreatedAt time.Time      `json:"created_at" yaml:"created_at" toml:"created_at"`
	ExpiresAt time.Time      `json:"expires_at" yaml:"expires_at" toml:"expires_at"`
	Plugins   []wporg.Plugin `json:"plugins" yaml:"plugins" toml:"plugins"`
}

// Get returns the record stored for a slug.
func (e *CacheEntry) Get(slug string) (wporg.Plugin, bool) {
	for _, plg := range e.Plugins {
		if plg.Slug == slug {
			return plg, true
		}
	}

	return wporg.Plugin{}, false
}

// Slugs returns the keys of the entry in order.
func (e *CacheEntry) Slugs() []string {
	slugs := make([]string, 0, len(e.Plugins))
	for _, plg := range e.Plugins {
		slugs = append(slugs, plg.Slug)
	}

	return slugs
}

// Expired reports whether the entry must be treated as absent at the given time.
func (e *CacheEntry) Expired(now time.Time) bool {
	return now.After(e.ExpiresAt)
}

// put sets the record of a slug, keeping the position of an existing key.
func (e *CacheEntry) put(slug string, plg wporg.Plugin) {
	plg.Slug = slug

	for i := range e.Plugins {
		if e.Plugins[i].Slug == slug {
			e.Plugins[i] = plg
			return
		}
	}

	e.Plugins = append(e.Plugins, plg)
}
