package crawlers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gocolly/colly/v2"
	"github.com/sirupsen/logrus"

	"github.com/RohUkJin/HOTDEAL-SCRAPER/models"
	"github.com/RohUkJin/HOTDEAL-SCRAPER/shared"
)

const arcaBaseURL = "https://arca.live/b/hotdeal"

// ArcaCrawler walks the Arca hotdeal channel with colly. Arca exposes prices
// directly in the list rows, so most deals never need a detail fetch to pass
// the unpriced check.
type ArcaCrawler struct {
	baseURL   string
	userAgent string
	preFilter PreFilter
	limiter   *shared.RequestRateLimiter
}

func NewArcaCrawler(userAgent string, preFilter PreFilter) *ArcaCrawler {
	return &ArcaCrawler{
		baseURL:   arcaBaseURL,
		userAgent: userAgent,
		preFilter: preFilter,
		limiter:   shared.NewRequestRateLimiter(1 * time.Second),
	}
}

func (c *ArcaCrawler) Source() string { return "Arca" }

func (c *ArcaCrawler) Crawl(ctx context.Context) ([]*models.Deal, error) {
	var (
		deals   []*models.Deal
		seenIDs = make(map[string]bool)
		now     = time.Now()
		stop    bool
	)

	list := colly.NewCollector(colly.UserAgent(c.userAgent))

	list.OnHTML("div.vrow.hybrid:not(.notice)", func(e *colly.HTMLElement) {
		if stop {
			return
		}

		title := stripCommentSuffix(e.ChildText(".title.hybrid-title"))
		link := e.ChildAttr("a.title.hybrid-title", "href")
		if link == "" {
			link = e.ChildAttr("a", "href")
		}
		if title == "" || link == "" {
			return
		}
		link = e.Request.AbsoluteURL(link)

		parts := strings.Split(strings.TrimRight(link, "/"), "/")
		id := "arca_" + parts[len(parts)-1]
		if seenIDs[id] {
			return
		}
		seenIDs[id] = true

		postedAt := now
		if dt := e.ChildAttr("time", "datetime"); dt != "" {
			if t, err := time.Parse(time.RFC3339, dt); err == nil {
				postedAt = t
			}
		} else {
			postedAt = parseBoardTime(e.ChildText("time"), now)
		}
		if olderThanCutoff(postedAt, now) {
			stop = true
			logrus.Infof("Arca: found deal from %s, older than 24h. Stopping pagination.", postedAt)
			return
		}

		deal := models.NewDeal(id, c.Source(), title, link, postedAt)
		deal.Votes = parseLeadingInt(e.ChildText(".col-rate"))
		deal.CommentCount = parseLeadingInt(e.ChildText(".comment-count"))

		price := e.ChildText(".deal-price")
		if price == "" {
			price = e.ChildText(".hybrid-bottom span")
		}
		deal.DiscountPrice = strings.TrimSpace(price)

		deals = append(deals, deal)
	})

	list.OnError(func(r *colly.Response, err error) {
		logrus.Errorf("Arca list request failed (%s): %v", r.Request.URL, err)
	})

	for page := 1; page <= maxListPages && !stop; page++ {
		if err := ctx.Err(); err != nil {
			return deals, err
		}
		c.limiter.Wait()

		before := len(deals)
		if err := list.Visit(fmt.Sprintf("%s?p=%d", c.baseURL, page)); err != nil {
			return deals, fmt.Errorf("visit arca page %d: %w", page, err)
		}
		if len(deals) == before && !stop {
			break
		}
	}

	c.crawlDetails(ctx, deals)
	return deals, nil
}

func (c *ArcaCrawler) crawlDetails(ctx context.Context, deals []*models.Deal) {
	detail := colly.NewCollector(colly.UserAgent(c.userAgent))

	var current *models.Deal
	detail.OnHTML(".comment-item .text", func(e *colly.HTMLElement) {
		if current != nil {
			current.AddComment(strings.TrimSpace(e.Text))
		}
	})
	detail.OnHTML("a.external", func(e *colly.HTMLElement) {
		if current == nil {
			return
		}
		if href := e.Attr("href"); href != "" {
			current.Link = e.Request.AbsoluteURL(href)
		}
	})
	detail.OnError(func(r *colly.Response, err error) {
		logrus.Errorf("Arca detail request failed (%s): %v", r.Request.URL, err)
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
			logrus.Errorf("Arca detail visit failed for %s: %v", deal.Title, err)
		}
	}
	current = nil
}
