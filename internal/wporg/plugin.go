package wporg

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// lastUpdatedLayout is the layout used by the catalog for last_updated, e.g. "2024-05-01 3:04pm GMT".
const lastUpdatedLayout = "2006-01-02 3:04pm MST"

// Plugin The plugin information returned by a plugin_information lookup.
type Plugin struct {
	Slug           string `json:"slug" mapstructure:"slug" yaml:"slug" toml:"slug"`
	Name           string `json:"name,omitempty" mapstructure:"name" yaml:"name,omitempty" toml:"name"`
	Version        string `json:"version,omitempty" mapstructure:"version" yaml:"version,omitempty" toml:"version"`
	ActiveInstalls int    `json:"active_installs" mapstructure:"active_installs" yaml:"active_installs" toml:"active_installs"`
	Rating         int    `json:"rating" mapstructure:"rating" yaml:"rating" toml:"rating"`
	NumRatings     int    `json:"num_ratings" mapstructure:"num_ratings" yaml:"num_ratings" toml:"num_ratings"`
	Downloaded     int    `json:"downloaded" mapstructure:"downloaded" yaml:"downloaded" toml:"downloaded"`
	LastUpdated    string `json:"last_updated,omitempty" mapstructure:"last_updated" yaml:"last_updated,omitempty" toml:"last_updated"`
	Homepage       string `json:"homepage,omitempty" mapstructure:"homepage" yaml:"homepage,omitempty" toml:"homepage"`
	PluginURL      string `json:"plugin_url,omitempty" mapstructure:"plugin_url" yaml:"plugin_url,omitempty" toml:"plugin_url"`
}

// Link returns the best URL to visit the plugin.
func (p Plugin) Link() string {
	switch {
	case p.Homepage != "":
		return p.Homepage
	case p.PluginURL != "":
		return p.PluginURL
	default:
		return "#"
	}
}

// LastUpdatedTime parses the last_updated value.
// The catalog also returns plain dates for some plugins.
func (p Plugin) LastUpdatedTime() (time.Time, error) {
	for _, layout := range []string{lastUpdatedLayout, "2006-01-02 15:04:05", time.DateOnly} {
		if t, err := time.Parse(layout, strings.TrimSpace(p.LastUpdated)); err == nil {
			return t, nil
		}
	}

	return time.Time{}, fmt.Errorf("unsupported last_updated format: %q", p.LastUpdated)
}

// Fields the list of fields to include or exclude from a lookup.
type Fields map[string]bool

// DefaultFields returns the fields requested when nothing else is configured:
// the short description is excluded, the download count is included.
func DefaultFields() Fields {
	return Fields{
		"short_description": false,
		"downloaded":        true,
	}
}

// ParseFields parses entries like "downloaded", "downloaded=true" or "short_description=false".
func ParseFields(entries []string) (Fields, error) {
	fields := Fields{}

	for _, entry := range entries {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}

		name, value, found := strings.Cut(entry, "=")
		name = strings.TrimSpace(name)
		if name == "" {
			return nil, fmt.Errorf("invalid field entry: %q", entry)
		}

		if !found {
			fields[name] = true
			continue
		}

		include, err := strconv.ParseBool(strings.TrimSpace(value))
		if err != nil {
			return nil, fmt.Errorf("invalid value for field %q: %w", name, err)
		}

		fields[name] = include
	}

	return fields, nil
}
