package jobs

import (
	"time"

	"github.com/go-co-op/gocron"
	"github.com/storeline/backend/internal/config"
	"github.com/storeline/backend/internal/loyalty"
)

// ScheduleRecurringJobs schedules all recurring jobs and starts the
// scheduler in the background
func ScheduleRecurringJobs(cfg *config.Config, expiryProcessor *loyalty.ExpiryProcessor) (*gocron.Scheduler, error) {
	scheduler := gocron.NewScheduler(time.UTC)

	expiryJob := NewPointsExpiryJob(expiryProcessor, cfg.Loyalty)
	if err := expiryJob.Schedule(scheduler, cfg.Loyalty.ExpirySweepAt); err != nil {
		return nil, err
	}

	scheduler.StartAsync()
	return scheduler, nil
}
