package monitor

import "strings"

// ParseSlugs splits a comma-separated list of slugs.
// Entries are trimmed and empty entries are dropped. Duplicates are kept.
func ParseSlugs(raw string) []string {
	var slugs []string

	for _, part := range strings.Split(raw, ",") {
		if slug := strings.TrimSpace(part); slug != "" {
			slugs = append(slugs, slug)
		}
	}

	return slugs
}
