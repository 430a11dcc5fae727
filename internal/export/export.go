// Package export writes a cache entry in a machine readable format.
package export

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/pelletier/go-toml"
	"github.com/urldev/plugin-monitor/internal/monitor"
	"github.com/urldev/plugin-monitor/internal/wporg"
	"gopkg.in/yaml.v3"
)

// Formats.
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
	FormatTOML = "toml"
)

// ErrNoData is returned when there is no entry to export.
var ErrNoData = errors.New("no plugin data")

type document struct {
	CreatedAt time.Time       `json:"created_at" yaml:"created_at" toml:"created_at"`
	ExpiresAt time.Time       `json:"expires_at" yaml:"expires_at" toml:"expires_at"`
	Summary   monitor.Summary `json:"summary" yaml:"summary" toml:"summary"`
	Plugins   []wporg.Plugin  `json:"plugins" yaml:"plugins" toml:"plugins"`
}

// Write writes the entry and its summary to w.
func Write(w io.Writer, entry *monitor.CacheEntry, format string) error {
	if entry == nil {
		return ErrNoData
	}

	doc := document{
		CreatedAt: entry.CreatedAt,
		ExpiresAt: entry.ExpiresAt,
		Summary:   monitor.Summarize(entry),
		Plugins:   entry.Plugins,
	}

	switch format {
	case "", FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")

		return enc.Encode(doc)

	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)

		if err := enc.Encode(doc); err != nil {
			return fmt.Errorf("failed to encode YAML: %w", err)
		}

		return enc.Close()

	case FormatTOML:
		data, err := toml.Marshal(doc)
		if err != nil {
			return fmt.Errorf("failed to encode TOML: %w", err)
		}

		_, err = w.Write(data)
		return err

	default:
		return fmt.Errorf("unsupported format: %q", format)
	}
}
