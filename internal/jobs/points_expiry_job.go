package jobs

import (
	"context"
	"log"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/google/uuid"
	"github.com/storeline/backend/internal/config"
	"github.com/storeline/backend/internal/loyalty"
)

// systemUserID attributes scheduled sweeps in the audit trail
var systemUserID = uuid.MustParse("00000000-0000-0000-0000-000000000001")

// PointsExpiryJob runs the scheduled points expiry sweep
type PointsExpiryJob struct {
	processor    *loyalty.ExpiryProcessor
	cutoffMonths int
}

// NewPointsExpiryJob creates a points expiry job
func NewPointsExpiryJob(processor *loyalty.ExpiryProcessor, cfg config.LoyaltyConfig) *PointsExpiryJob {
	return &PointsExpiryJob{
		processor:    processor,
		cutoffMonths: cfg.ExpiryCutoffMonths,
	}
}

// Run executes one expiry sweep
func (j *PointsExpiryJob) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()

	total, err := j.processor.ProcessExpiredPoints(ctx, j.cutoffMonths, systemUserID)
	if err != nil {
		log.Printf("Points expiry sweep failed: %v", err)
		return
	}
	log.Printf("Scheduled points expiry sweep expired %d points", total)
}

// Schedule registers the daily sweep with the scheduler
func (j *PointsExpiryJob) Schedule(scheduler *gocron.Scheduler, at string) error {
	_, err := scheduler.Every(1).Day().At(at).Do(j.Run)
	return err
}
