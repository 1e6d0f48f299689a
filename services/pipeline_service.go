package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/RohUkJin/HOTDEAL-SCRAPER/models"
)

// RetentionDays is how long finalized hotdeals stay in the database before
// the post-run purge removes them.
const RetentionDays = 5

// DealCrawler collects fresh deals from one community board.
type DealCrawler interface {
	Source() string
	Crawl(ctx context.Context) ([]*models.Deal, error)
}

// DealStore is the persistence collaborator for finalized deals and stats.
type DealStore interface {
	SaveHotdeal(ctx context.Context, deal *models.Deal) error
	SaveCrawlStats(ctx context.Context, stats *models.CrawlStats) error
	CleanOldDeals(ctx context.Context, days int) error
}

// ResultCache serves prior same-day verdicts and records new ones.
type ResultCache interface {
	Check(deal *models.Deal) bool
	Update(deal *models.Deal)
}

// PipelineService sequences one full evaluation run: crawl, cache check,
// hard filter, soft scoring, LLM analysis, cache update, persistence,
// statistics and retention cleanup.
type PipelineService struct {
	crawlers []DealCrawler
	cache    ResultCache
	filter   *FilterService
	analyzer DealAnalyzer
	store    DealStore
}

// NewPipelineService wires the pipeline stages together. analyzer and store
// may be nil in degraded setups; the run then stops at scoring or skips
// persistence respectively.
func NewPipelineService(crawlers []DealCrawler, cache ResultCache, filter *FilterService, analyzer DealAnalyzer, store DealStore) *PipelineService {
	return &PipelineService{
		crawlers: crawlers,
		cache:    cache,
		filter:   filter,
		analyzer: analyzer,
		store:    store,
	}
}

// Run executes one pipeline pass and returns its statistics. Collaborator
// failures degrade individual deals but never abort the run; the returned
// stats always reflect whatever work completed.
func (p *PipelineService) Run(ctx context.Context) (*models.CrawlStats, error) {
	runID := uuid.New()
	logrus.WithField("run_id", runID).Info("Starting pipeline run")

	allDeals := p.crawlAll(ctx)
	logrus.Infof("Applying filters and scoring on %d items...", len(allDeals))

	var (
		readyDeals         []*models.Deal
		droppedCount       int
		cachedHotdealCount int
		cachedSavings      int
	)

	for _, deal := range allDeals {
		if p.cache != nil && p.cache.Check(deal) {
			if deal.Status == models.StatusHotCached {
				cachedHotdealCount++
				if deal.Savings != nil {
					cachedSavings += *deal.Savings
				}
			}
			continue
		}
		if deal.Status.Terminal() {
			// Rejected by the crawler's pre-filter pass.
			droppedCount++
			continue
		}

		p.filter.ProcessDeal(ctx, deal)
		if deal.Status == models.StatusReady {
			logrus.Infof("[READY] %s (Score: %g)", deal.Title, deal.Score)
			readyDeals = append(readyDeals, deal)
		} else {
			droppedCount++
		}
	}

	logrus.Infof("-> %d items to analyze, %d dropped/cached", len(readyDeals), droppedCount)

	if len(readyDeals) > 0 && p.analyzer != nil {
		if err := p.analyzer.AnalyzeBatch(ctx, readyDeals); err != nil {
			logrus.Errorf("Batch analysis failed: %v", err)
		}
	}

	hotdealCount := 0
	newSavings := 0
	for _, deal := range readyDeals {
		if p.cache != nil {
			// ERROR verdicts are not cacheable; the cache refuses
			// anything but HOT/DROP so tomorrow's run retries them.
			p.cache.Update(deal)
		}

		if deal.Status != models.StatusHot {
			continue
		}
		hotdealCount++
		if deal.Savings != nil {
			newSavings += *deal.Savings
		}
		if p.store != nil {
			if err := p.store.SaveHotdeal(ctx, deal); err != nil {
				logrus.Errorf("Failed to save hotdeal %s: %v", deal.ID, err)
			}
		}
	}

	stats := &models.CrawlStats{
		RunID:          runID,
		CommunityCount: len(p.crawlers),
		TotalItems:     len(allDeals),
		FilteredItems:  droppedCount,
		HotdealItems:   hotdealCount + cachedHotdealCount,
		TotalSavings:   newSavings + cachedSavings,
		CreatedAt:      time.Now(),
	}

	if p.store != nil {
		logrus.Infof("Saving pipeline stats: %+v", stats)
		if err := p.store.SaveCrawlStats(ctx, stats); err != nil {
			logrus.Errorf("Failed to save crawl stats: %v", err)
		}

		logrus.Infof("Cleaning up deals older than %d days...", RetentionDays)
		if err := p.store.CleanOldDeals(ctx, RetentionDays); err != nil {
			logrus.Errorf("Failed to clean old deals: %v", err)
		}
	}

	logrus.WithFields(logrus.Fields{
		"run_id":        runID,
		"total_items":   stats.TotalItems,
		"hotdeal_items": stats.HotdealItems,
		"total_savings": stats.TotalSavings,
	}).Info("Pipeline run complete")

	return stats, nil
}

func (p *PipelineService) crawlAll(ctx context.Context) []*models.Deal {
	var all []*models.Deal
	for _, crawler := range p.crawlers {
		logrus.Infof("Crawling %s...", crawler.Source())
		deals, err := crawler.Crawl(ctx)
		if err != nil {
			logrus.Errorf("Error crawling %s: %v", crawler.Source(), err)
		}
		// A crawler may return partial results alongside an error.
		all = append(all, deals...)
		logrus.Infof("Collected %d items from %s", len(deals), crawler.Source())
	}
	return all
}
