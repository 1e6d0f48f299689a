package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RohUkJin/HOTDEAL-SCRAPER/models"
	"github.com/RohUkJin/HOTDEAL-SCRAPER/services"
)

type fakeStore struct {
	cleanedDays []int
	err         error
}

func (f *fakeStore) SaveHotdeal(ctx context.Context, deal *models.Deal) error { return nil }

func (f *fakeStore) SaveCrawlStats(ctx context.Context, stats *models.CrawlStats) error { return nil }

func (f *fakeStore) CleanOldDeals(ctx context.Context, days int) error {
	f.cleanedDays = append(f.cleanedDays, days)
	return f.err
}

func TestCrawlJobSkipsOverlappingRuns(t *testing.T) {
	job := NewCrawlJob(services.NewPipelineService(nil, nil, nil, nil, nil))

	require.True(t, job.tryAcquire())
	assert.False(t, job.TriggerRun())
	assert.False(t, job.tryAcquire())

	job.release()
	assert.True(t, job.tryAcquire())
	job.release()
}

func TestCrawlJobRunReleases(t *testing.T) {
	job := NewCrawlJob(services.NewPipelineService(nil, nil, nil, nil, nil))

	job.Run()

	// The slot is free again once the run finishes.
	assert.True(t, job.tryAcquire())
	job.release()
}

func TestCleanupJobAppliesRetention(t *testing.T) {
	store := &fakeStore{}
	NewCleanupJob(store).Run()

	require.Len(t, store.cleanedDays, 1)
	assert.Equal(t, services.RetentionDays, store.cleanedDays[0])
}

func TestCleanupJobLogsFailure(t *testing.T) {
	store := &fakeStore{err: errors.New("connection refused")}
	job := NewCleanupJob(store)

	done := make(chan struct{})
	go func() {
		defer close(done)
		job.Run()
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("cleanup job did not return")
	}
	assert.Len(t, store.cleanedDays, 1)
}
