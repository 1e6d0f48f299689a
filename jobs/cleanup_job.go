package jobs

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/RohUkJin/HOTDEAL-SCRAPER/services"
)

// CleanupJob applies the retention policy to persisted hotdeals outside the
// pipeline runs, so a stretch with no successful runs still gets purged.
type CleanupJob struct {
	Store services.DealStore
}

func NewCleanupJob(store services.DealStore) *CleanupJob {
	return &CleanupJob{Store: store}
}

func (j *CleanupJob) Run() {
	logrus.Info("Starting cleanup job")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	if err := j.Store.CleanOldDeals(ctx, services.RetentionDays); err != nil {
		logrus.Errorf("Cleanup job failed: %v", err)
		return
	}
	logrus.Info("Cleanup job completed")
}
