package crawlers

import (
	"context"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/RohUkJin/HOTDEAL-SCRAPER/models"
)

const (
	// Listings older than this stop pagination; anything since the last
	// run within the window is covered.
	listingCutoff = 24 * time.Hour

	maxListPages = 20
)

// Crawler collects fresh deals from one community board.
type Crawler interface {
	Source() string
	Crawl(ctx context.Context) ([]*models.Deal, error)
}

// PreFilter lets the pipeline reject a listing before its detail page is
// fetched, saving the expensive second request. A true return means the
// deal was dropped; the crawler still reports it so run stats can tally it.
type PreFilter func(deal *models.Deal) bool

var (
	commentSuffixPattern = regexp.MustCompile(`\s*\[\d+\]\s*$`)
	digitsPattern        = regexp.MustCompile(`\d+`)
)

// stripCommentSuffix removes a trailing "[12]" comment counter from a title.
func stripCommentSuffix(title string) string {
	return strings.TrimSpace(commentSuffixPattern.ReplaceAllString(title, ""))
}

// parseLeadingInt extracts the first integer in the text, or 0.
func parseLeadingInt(text string) int {
	m := digitsPattern.FindString(text)
	if m == "" {
		return 0
	}
	n, err := strconv.Atoi(m)
	if err != nil {
		return 0
	}
	return n
}

// parseBoardTime handles the timestamp forms the boards use in list views:
// "HH:MM" or "HH:MM:SS" for today, "YY.MM.DD" or "YYYY.MM.DD" for older
// posts. Unparseable text falls back to now so a listing is never dropped
// for a formatting quirk.
func parseBoardTime(text string, now time.Time) time.Time {
	text = strings.TrimSpace(text)

	for _, layout := range []string{"15:04:05", "15:04"} {
		if t, err := time.ParseInLocation(layout, text, time.Local); err == nil {
			return time.Date(now.Year(), now.Month(), now.Day(),
				t.Hour(), t.Minute(), t.Second(), 0, time.Local)
		}
	}
	for _, layout := range []string{"06.01.02", "2006.01.02", "2006-01-02"} {
		if t, err := time.ParseInLocation(layout, text, time.Local); err == nil {
			return t
		}
	}
	return now
}

// olderThanCutoff reports whether a listing has aged out of the crawl window.
func olderThanCutoff(postedAt, now time.Time) bool {
	return postedAt.Before(now.Add(-listingCutoff))
}
