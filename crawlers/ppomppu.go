package crawlers

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/gocolly/colly/v2"
	"github.com/sirupsen/logrus"

	"github.com/RohUkJin/HOTDEAL-SCRAPER/models"
	"github.com/RohUkJin/HOTDEAL-SCRAPER/shared"
)

const ppomppuBaseURL = "https://www.ppomppu.co.kr/zboard/zboard.php?id=ppomppu"

var ppomppuIDPattern = regexp.MustCompile(`no=(\d+)`)

// PpomppuCrawler walks the Ppomppu hotdeal board with colly, paginating
// until it hits listings older than the crawl window. Detail pages are only
// fetched for deals that survive the pre-filter.
type PpomppuCrawler struct {
	baseURL   string
	userAgent string
	preFilter PreFilter
	limiter   *shared.RequestRateLimiter
}

func NewPpomppuCrawler(userAgent string, preFilter PreFilter) *PpomppuCrawler {
	return &PpomppuCrawler{
		baseURL:   ppomppuBaseURL,
		userAgent: userAgent,
		preFilter: preFilter,
		limiter:   shared.NewRequestRateLimiter(1 * time.Second),
	}
}

func (c *PpomppuCrawler) Source() string { return "Ppomppu" }

func (c *PpomppuCrawler) Crawl(ctx context.Context) ([]*models.Deal, error) {
	var (
		deals   []*models.Deal
		seenIDs = make(map[string]bool)
		now     = time.Now()
		stop    bool
	)

	list := colly.NewCollector(colly.UserAgent(c.userAgent))

	list.OnHTML("tr.baseList:not(.bbs_notice)", func(e *colly.HTMLElement) {
		if stop {
			return
		}

		title := strings.TrimSpace(e.ChildText("a.baseList-title"))
		link := e.ChildAttr("a.baseList-title", "href")
		if title == "" || link == "" {
			return
		}
		link = e.Request.AbsoluteURL(link)

		id := link
		if m := ppomppuIDPattern.FindStringSubmatch(link); m != nil {
			id = m[1]
		}
		if seenIDs[id] {
			return
		}
		seenIDs[id] = true

		dateText := e.ChildAttr("td:nth-child(4)", "title")
		if dateText == "" {
			dateText = e.ChildText("td:nth-child(4)")
		}
		postedAt := parseBoardTime(dateText, now)
		if olderThanCutoff(postedAt, now) {
			stop = true
			logrus.Infof("Ppomppu: found deal from %s, older than 24h. Stopping pagination.", postedAt)
			return
		}

		deal := models.NewDeal(id, c.Source(), title, link, postedAt)
		// Vote cell format: "54 - 0" (up - down).
		deal.Votes = parseLeadingInt(e.ChildText("td:nth-child(5)"))
		deal.CommentCount = parseLeadingInt(e.ChildText("span.baseList-c"))
		deals = append(deals, deal)
	})

	list.OnError(func(r *colly.Response, err error) {
		logrus.Errorf("Ppomppu list request failed (%s): %v", r.Request.URL, err)
	})

	for page := 1; page <= maxListPages && !stop; page++ {
		if err := ctx.Err(); err != nil {
			return deals, err
		}
		c.limiter.Wait()

		before := len(deals)
		if err := list.Visit(fmt.Sprintf("%s&page=%d", c.baseURL, page)); err != nil {
			return deals, fmt.Errorf("visit ppomppu page %d: %w", page, err)
		}
		if len(deals) == before && !stop {
			break
		}
	}

	c.crawlDetails(ctx, deals)
	return deals, nil
}

// crawlDetails fetches comment excerpts and the real product link for every
// deal that passes the pre-filter. Detail failures leave the list fields in
// place; a deal is never lost to a broken detail page.
func (c *PpomppuCrawler) crawlDetails(ctx context.Context, deals []*models.Deal) {
	detail := colly.NewCollector(colly.UserAgent(c.userAgent))

	var current *models.Deal
	detail.OnHTML(".over_hide.link-point.mid-text-area", func(e *colly.HTMLElement) {
		if current != nil {
			current.AddComment(strings.TrimSpace(e.Text))
		}
	})
	detail.OnHTML(".topTitle-link.partner a, div.wordfix a", func(e *colly.HTMLElement) {
		if current == nil {
			return
		}
		raw := e.Attr("href")
		if raw == "" {
			return
		}
		current.Link = decodePpomppuRedirect(raw)
	})
	detail.OnError(func(r *colly.Response, err error) {
		logrus.Errorf("Ppomppu detail request failed (%s): %v", r.Request.URL, err)
	})

	for _, deal := range deals {
		if ctx.Err() != nil {
			return
		}
		if c.preFilter != nil && c.preFilter(deal) {
			continue
		}

		c.limiter.Wait()
		current = deal
		if err := detail.Visit(deal.Link); err != nil {
			logrus.Errorf("Ppomppu detail visit failed for %s: %v", deal.Title, err)
		}
	}
	current = nil
}

// decodePpomppuRedirect unwraps the s.ppomppu.co.kr shortener, whose target
// parameter carries the real product URL base64-encoded.
func decodePpomppuRedirect(raw string) string {
	if !strings.Contains(raw, "s.ppomppu.co.kr") {
		return raw
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	target := parsed.Query().Get("target")
	if target == "" {
		return raw
	}
	if pad := len(target) % 4; pad != 0 {
		target += strings.Repeat("=", 4-pad)
	}
	decoded, err := base64.StdEncoding.DecodeString(target)
	if err != nil {
		logrus.Warnf("Failed to decode Ppomppu redirect: %v", err)
		return raw
	}
	return string(decoded)
}
