package jobs

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/RohUkJin/HOTDEAL-SCRAPER/services"
)

// CrawlJob runs the evaluation pipeline on an interval. Overlapping runs are
// skipped rather than queued; a slow run simply absorbs the next tick.
type CrawlJob struct {
	Pipeline *services.PipelineService

	timeout time.Duration
	mu      sync.Mutex
	running bool
}

func NewCrawlJob(pipeline *services.PipelineService) *CrawlJob {
	return &CrawlJob{
		Pipeline: pipeline,
		timeout:  15 * time.Minute,
	}
}

// Run executes one pipeline pass, skipping if one is already in flight.
func (j *CrawlJob) Run() {
	if !j.tryAcquire() {
		logrus.Warn("Skipping crawl job: previous run still in progress")
		return
	}
	defer j.release()

	logrus.Info("Starting crawl job")
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	stats, err := j.Pipeline.Run(ctx)
	if err != nil {
		logrus.Errorf("Crawl job failed: %v", err)
		return
	}
	logrus.Infof("Crawl job completed: %d/%d items advanced to hotdeals",
		stats.HotdealItems, stats.TotalItems)
}

// TriggerRun starts a run in the background for the admin endpoint. Returns
// false when a run is already in flight.
func (j *CrawlJob) TriggerRun() bool {
	j.mu.Lock()
	busy := j.running
	j.mu.Unlock()
	if busy {
		return false
	}

	go j.Run()
	return true
}

func (j *CrawlJob) tryAcquire() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.running {
		return false
	}
	j.running = true
	return true
}

func (j *CrawlJob) release() {
	j.mu.Lock()
	j.running = false
	j.mu.Unlock()
}
