package web

import (
	"github.com/dustin/go-humanize"
	"github.com/urldev/plugin-monitor/internal/monitor"
)

type summaryView struct {
	TotalActiveInstalls string
	TotalRatings        string
	TotalDownloads      string
}

type pluginView struct {
	Name           string
	Slug           string
	Version        string
	ActiveInstalls string
	Rating         int
	NumRatings     string
	LastUpdated    string
	Link           string
}

type pageData struct {
	TokenField string
	Token      string
	Notice     string
	Raw        string
	HasData    bool
	Summary    summaryView
	Plugins    []pluginView
}

// newPageData builds the view of the dashboard.
// A nil entry (absent or expired) renders the empty state.
func newPageData(raw string, entry *monitor.CacheEntry) pageData {
	data := pageData{
		TokenField: tokenField,
		Raw:        raw,
	}

	if entry == nil || len(entry.Plugins) == 0 {
		return data
	}

	sum := monitor.Summarize(entry)

	data.HasData = true
	data.Summary = summaryView{
		TotalActiveInstalls: humanize.Comma(int64(sum.TotalActiveInstalls)),
		TotalRatings:        humanize.Comma(int64(sum.TotalRatings)),
		TotalDownloads:      humanize.Comma(int64(sum.TotalDownloads)),
	}

	for _, plg := range entry.Plugins {
		// nameless records still count in the summary.
		if plg.Name == "" {
			continue
		}

		view := pluginView{
			Name:           plg.Name,
			Slug:           plg.Slug,
			Version:        plg.Version,
			ActiveInstalls: humanize.Comma(int64(plg.ActiveInstalls)),
			Rating:         plg.Rating,
			NumRatings:     humanize.Comma(int64(plg.NumRatings)),
			LastUpdated:    plg.LastUpdated,
			Link:           plg.Link(),
		}

		if t, err := plg.LastUpdatedTime(); err == nil {
			view.LastUpdated = t.Format("January 2, 2006")
		}

		data.Plugins = append(data.Plugins, view)
	}

	return data
}
