package crawlers

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/chromedp/chromedp"
	"github.com/sirupsen/logrus"

	"github.com/RohUkJin/HOTDEAL-SCRAPER/models"
	"github.com/RohUkJin/HOTDEAL-SCRAPER/shared"
)

const fmkoreaBaseURL = "https://www.fmkorea.com/hotdeal"

// FMKoreaCrawler renders the FMKorea hotdeal board with chromedp (the board
// blocks plain HTTP clients and builds rows client-side) and parses the
// rendered HTML with goquery.
type FMKoreaCrawler struct {
	baseURL   string
	userAgent string
	preFilter PreFilter
	limiter   *shared.RequestRateLimiter
}

func NewFMKoreaCrawler(userAgent string, preFilter PreFilter) *FMKoreaCrawler {
	return &FMKoreaCrawler{
		baseURL:   fmkoreaBaseURL,
		userAgent: userAgent,
		preFilter: preFilter,
		limiter:   shared.NewRequestRateLimiter(1 * time.Second),
	}
}

func (c *FMKoreaCrawler) Source() string { return "FMKorea" }

func (c *FMKoreaCrawler) Crawl(ctx context.Context) ([]*models.Deal, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("blink-settings", "imagesEnabled=false"),
		chromedp.Flag("mute-audio", true),
		chromedp.UserAgent(c.userAgent),
	)

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()

	browserCtx, cancel := chromedp.NewContext(allocCtx)
	defer cancel()

	var (
		deals   []*models.Deal
		seenIDs = make(map[string]bool)
		now     = time.Now()
		stop    bool
	)

	for page := 1; page <= maxListPages && !stop; page++ {
		if err := ctx.Err(); err != nil {
			return deals, err
		}
		c.limiter.Wait()

		html, err := c.renderPage(browserCtx, fmt.Sprintf("%s?page=%d", c.baseURL, page))
		if err != nil {
			if page == 1 {
				return nil, fmt.Errorf("render fmkorea page %d: %w", page, err)
			}
			logrus.Errorf("Failed to render FMKorea page %d: %v", page, err)
			break
		}

		doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
		if err != nil {
			return deals, fmt.Errorf("parse fmkorea page %d: %w", page, err)
		}

		before := len(deals)
		doc.Find("li.li:not(.notice), tr:not(.notice)").EachWithBreak(func(_ int, row *goquery.Selection) bool {
			deal, ok := c.parseRow(row, seenIDs, now)
			if !ok {
				return true
			}
			if olderThanCutoff(deal.PostedAt, now) {
				stop = true
				logrus.Infof("FMKorea: found deal from %s, older than 24h. Stopping pagination.", deal.PostedAt)
				return false
			}
			deals = append(deals, deal)
			return true
		})

		if len(deals) == before && !stop {
			break
		}
	}

	c.crawlDetails(ctx, browserCtx, deals)
	return deals, nil
}

func (c *FMKoreaCrawler) parseRow(row *goquery.Selection, seenIDs map[string]bool, now time.Time) (*models.Deal, bool) {
	titleEl := row.Find(".title a").Last()
	if titleEl.Length() == 0 {
		titleEl = row.Find("h3.title a").First()
	}
	if titleEl.Length() == 0 {
		return nil, false
	}

	title := stripCommentSuffix(titleEl.Text())
	link, _ := titleEl.Attr("href")
	if title == "" || link == "" {
		return nil, false
	}
	if strings.HasPrefix(link, "/") {
		link = "https://www.fmkorea.com" + link
	}

	parts := strings.Split(strings.TrimRight(link, "/"), "/")
	id := "fmkorea_" + parts[len(parts)-1]
	if seenIDs[id] {
		return nil, false
	}
	seenIDs[id] = true

	deal := models.NewDeal(id, c.Source(), title, link, parseBoardTime(row.Find(".regdate").First().Text(), now))

	// The info line reads "쇼핑몰 / 10,000원 / 무배"; the middle part is
	// the price.
	if info := row.Find(".hotdeal_info").First().Text(); info != "" {
		infoParts := strings.Split(info, "/")
		if len(infoParts) >= 2 {
			deal.DiscountPrice = strings.TrimSpace(infoParts[1])
		}
	}

	deal.CommentCount = parseLeadingInt(row.Find(".comment_count").First().Text())
	votes := row.Find(".pc_voted_count .count").First().Text()
	if votes == "" {
		votes = row.Find(".m_voted_count").First().Text()
	}
	deal.Votes = parseLeadingInt(votes)

	return deal, true
}

// crawlDetails renders each surviving deal's page for the real product link
// and comment excerpts.
func (c *FMKoreaCrawler) crawlDetails(ctx, browserCtx context.Context, deals []*models.Deal) {
	for _, deal := range deals {
		if ctx.Err() != nil {
			return
		}
		if c.preFilter != nil && c.preFilter(deal) {
			continue
		}

		c.limiter.Wait()
		html, err := c.renderPage(browserCtx, deal.Link)
		if err != nil {
			logrus.Errorf("Failed to render FMKorea detail for %s: %v", deal.Title, err)
			continue
		}

		doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
		if err != nil {
			logrus.Errorf("Failed to parse FMKorea detail for %s: %v", deal.Title, err)
			continue
		}

		if href, ok := doc.Find("a.hotdeal_url").First().Attr("href"); ok && href != "" {
			deal.Link = unwrapFMKoreaRedirect(href)
		}
		doc.Find(".comment-content .xe_content").Each(func(_ int, s *goquery.Selection) {
			deal.AddComment(strings.TrimSpace(s.Text()))
		})
	}
}

func (c *FMKoreaCrawler) renderPage(browserCtx context.Context, pageURL string) (string, error) {
	runCtx, cancel := context.WithTimeout(browserCtx, 30*time.Second)
	defer cancel()

	var html string
	err := chromedp.Run(runCtx,
		chromedp.EmulateViewport(1920, 1080),
		chromedp.Navigate(pageURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	return html, err
}

// unwrapFMKoreaRedirect decodes link.fmkorea.org shortener URLs, which carry
// the destination in a "url" query parameter.
func unwrapFMKoreaRedirect(raw string) string {
	if !strings.Contains(raw, "link.fmkorea.org") {
		return raw
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	if target := parsed.Query().Get("url"); target != "" {
		if unescaped, err := url.QueryUnescape(target); err == nil {
			return unescaped
		}
		return target
	}
	return raw
}
