package monitor

// Summary the totals displayed on the dashboard.
type Summary struct {
	TotalActiveInstalls int `json:"total_active_installs" yaml:"total_active_installs" toml:"total_active_installs"`
	TotalRatings        int `json:"total_ratings" yaml:"total_ratings" toml:"total_ratings"`
	TotalDownloads      int `json:"total_downloads" yaml:"total_downloads" toml:"total_downloads"`
}

// Summarize sums the counters of all the records of an entry.
func Summarize(entry *CacheEntry) Summary {
	var sum Summary
	if entry == nil {
		return sum
	}

	for _, plg := range entry.Plugins {
		sum.TotalActiveInstalls += plg.ActiveInstalls
		sum.TotalRatings += plg.NumRatings
		sum.TotalDownloads += plg.Downloaded
	}

	return sum
}
