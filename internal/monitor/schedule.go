package monitor

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/urldev/plugin-monitor/pkg/scheduler"
)

// JobName the name of the recurring refresh job.
const JobName = "plugin_monitor_fetch_data"

// DefaultInterval the default interval between two scheduled refreshes.
const DefaultInterval = time.Hour

type recurringScheduler interface {
	ScheduleRecurring(name string, interval time.Duration, fn scheduler.Func) bool
}

// Arm schedules the recurring refresh unless it is already pending.
func (r *Refresher) Arm(s recurringScheduler, interval time.Duration) bool {
	if interval <= 0 {
		interval = DefaultInterval
	}

	return s.ScheduleRecurring(JobName, interval, func(ctx context.Context) {
		_, err := r.RefreshConfigured(ctx)
		if err != nil {
			log.Ctx(ctx).Error().Err(err).Msg("Scheduled refresh failed")
		}
	})
}

// RefreshOnSave registers the refresh as a save hook of the settings.
func (r *Refresher) RefreshOnSave(s *Settings) {
	s.OnSave(func(ctx context.Context, slugs []string) {
		_, err := r.Refresh(ctx, slugs)
		if err != nil {
			log.Ctx(ctx).Error().Err(err).Msg("Refresh after save failed")
		}
	})
}
