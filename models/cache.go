package models

// VerdictDateLayout is the calendar-date format used for cache expiry.
const VerdictDateLayout = "2006-01-02"

// VerdictCacheEntry is the value stored per deal fingerprint in the result
// cache. CrawledAt holds the calendar date the verdict was computed; an entry
// from a different date is treated as a miss, bounding staleness to one day.
type VerdictCacheEntry struct {
	IsHotdeal bool     `json:"is_hotdeal"`
	Category  Category `json:"category"`
	Savings   int      `json:"savings"`
	CrawledAt string   `json:"crawled_at"`
}
