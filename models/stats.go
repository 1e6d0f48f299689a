package models

import (
	"time"

	"github.com/google/uuid"
)

// CrawlStats aggregates the outcome of one pipeline run for reporting.
type CrawlStats struct {
	RunID          uuid.UUID `json:"run_id"`
	CommunityCount int       `json:"community_count"`
	TotalItems     int       `json:"total_items"`
	FilteredItems  int       `json:"filtered_items"`
	HotdealItems   int       `json:"hotdeal_items"`
	TotalSavings   int       `json:"total_savings"`
	CreatedAt      time.Time `json:"created_at"`
}
