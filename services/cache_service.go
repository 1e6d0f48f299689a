package services

import (
	"encoding/json"
	"os"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/RohUkJin/HOTDEAL-SCRAPER/models"
)

// VerdictCache stores final HOT/DROP verdicts keyed by deal fingerprint so a
// listing seen again within the same calendar day skips filtering and LLM
// analysis entirely. Entries from a previous day are treated as misses but
// left in place; the daily overwrite keeps the file from growing unbounded
// in practice.
//
// The backing store is a single JSON file loaded lazily on first use and
// flushed after every write. All access goes through a RWMutex so a
// concurrent pipeline still serializes writes.
type VerdictCache struct {
	path   string
	mu     sync.RWMutex
	loaded bool
	data   map[string]models.VerdictCacheEntry

	now func() time.Time
}

// NewVerdictCache creates a cache backed by the given JSON file. The file is
// not touched until the first Check or Update.
func NewVerdictCache(path string) *VerdictCache {
	return &VerdictCache{
		path: path,
		data: make(map[string]models.VerdictCacheEntry),
		now:  time.Now,
	}
}

func (vc *VerdictCache) loadLocked() {
	if vc.loaded {
		return
	}
	vc.loaded = true

	raw, err := os.ReadFile(vc.path)
	if err != nil {
		if !os.IsNotExist(err) {
			logrus.Errorf("Failed to load verdict cache %s: %v", vc.path, err)
		}
		return
	}
	if err := json.Unmarshal(raw, &vc.data); err != nil {
		logrus.Errorf("Failed to decode verdict cache %s: %v", vc.path, err)
		vc.data = make(map[string]models.VerdictCacheEntry)
	}
}

func (vc *VerdictCache) flushLocked() {
	raw, err := json.Marshal(vc.data)
	if err != nil {
		logrus.Errorf("Failed to encode verdict cache: %v", err)
		return
	}
	if err := os.WriteFile(vc.path, raw, 0o644); err != nil {
		logrus.Errorf("Failed to save verdict cache %s: %v", vc.path, err)
	}
}

// Check looks up a same-day verdict for the deal. On a hit the cached fields
// are copied onto the deal, its status becomes the cached HOT/DROP variant
// and true is returned; the deal then skips every remaining pipeline stage.
func (vc *VerdictCache) Check(deal *models.Deal) bool {
	vc.mu.Lock()
	defer vc.mu.Unlock()
	vc.loadLocked()

	entry, ok := vc.data[deal.Fingerprint()]
	if !ok {
		return false
	}

	today := vc.now().Format(models.VerdictDateLayout)
	if entry.CrawledAt != today {
		// Stale entry from another day: miss, re-evaluate from scratch.
		return false
	}

	hot := entry.IsHotdeal
	deal.IsHotdeal = &hot
	deal.Category = entry.Category
	savings := entry.Savings
	deal.Savings = &savings
	if hot {
		deal.Status = models.StatusHotCached
	} else {
		deal.Status = models.StatusDropCached
	}
	return true
}

// Update records the deal's final verdict under today's date. Only HOT and
// DROP verdicts are cacheable; ERROR deals are skipped so a failed analysis
// never masks tomorrow's retry, and MAYBE stays eligible for re-analysis.
func (vc *VerdictCache) Update(deal *models.Deal) {
	if deal.Status != models.StatusHot && deal.Status != models.StatusDrop {
		return
	}

	hot := deal.IsHotdeal != nil && *deal.IsHotdeal
	savings := 0
	if deal.Savings != nil {
		savings = *deal.Savings
	}

	vc.mu.Lock()
	defer vc.mu.Unlock()
	vc.loadLocked()

	vc.data[deal.Fingerprint()] = models.VerdictCacheEntry{
		IsHotdeal: hot,
		Category:  deal.Category,
		Savings:   savings,
		CrawledAt: vc.now().Format(models.VerdictDateLayout),
	}
	vc.flushLocked()
}

// Size returns the number of entries currently held, loading the backing
// file if needed. Used by the cache status endpoint.
func (vc *VerdictCache) Size() int {
	vc.mu.Lock()
	defer vc.mu.Unlock()
	vc.loadLocked()
	return len(vc.data)
}

// Clear drops every entry and flushes the empty map to disk.
func (vc *VerdictCache) Clear() {
	vc.mu.Lock()
	defer vc.mu.Unlock()
	vc.loaded = true
	vc.data = make(map[string]models.VerdictCacheEntry)
	vc.flushLocked()
}
