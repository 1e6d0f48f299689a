package services

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/RohUkJin/HOTDEAL-SCRAPER/config"
	"github.com/RohUkJin/HOTDEAL-SCRAPER/models"
)

// Keyword lexicons driving the hard filter and soft scorer. Drop keywords
// mark listings that are stale, sold out, cancelled or undisclosed ads.
var (
	dropKeywords         = []string{"종료", "품절", "매진", "취소", "광고", "제휴", "체험단"}
	highDiscountKeywords = []string{"역대", "대박", "오류", "무배", "무료배송"}
	positiveKeywords     = []string{"추천", "강추", "필구", "탑승"}
	negativeKeywords     = []string{"업자", "바이럴", "망설", "비쌈"}
	freeShippingMarkers  = []string{"무배", "무료배송", "배송비 무료"}
)

// FilterService runs the cheap, deterministic gate in front of LLM analysis:
// hard filter, soft scoring with the Naver unit-economics comparison, and
// the pass/fail threshold.
type FilterService struct {
	policy      config.FilterPolicy
	priceSearch PriceSearcher

	now func() time.Time
}

// NewFilterService creates the filter stage. priceSearch may be nil, in
// which case scoring proceeds without price bonuses.
func NewFilterService(policy config.FilterPolicy, priceSearch PriceSearcher) *FilterService {
	return &FilterService{
		policy:      policy,
		priceSearch: priceSearch,
		now:         time.Now,
	}
}

// ProcessDeal applies hard filter -> soft scoring -> threshold and leaves the
// deal in READY or DROP. The comparator runs inline during soft scoring and
// may itself drop the deal before the threshold is consulted.
func (s *FilterService) ProcessDeal(ctx context.Context, deal *models.Deal) {
	if s.ApplyHardFilter(deal) {
		return
	}

	s.CalculateSoftScore(ctx, deal)
	if deal.Status == models.StatusDrop {
		return
	}

	if deal.Score < s.policy.ScoreThreshold {
		deal.MarkDropped(fmt.Sprintf("Low Score: %g", deal.Score))
		logrus.Infof("Dropped %s (%s)", deal.Title, deal.DropReason)
		return
	}
	deal.Status = models.StatusReady
}

// ApplyHardFilter returns true when the deal is rejected. Checks run in
// order and the first match wins: banned keywords, the engagement floor with
// its freshness exception, then the unpriced check. On pass the deal's
// DiscountPrice has been normalized in place.
func (s *FilterService) ApplyHardFilter(deal *models.Deal) bool {
	for _, kw := range dropKeywords {
		if containsKeyword(deal.Title, kw) {
			deal.MarkDropped(fmt.Sprintf("Keyword: %s", kw))
			logrus.Infof("Dropped %s (%s)", deal.Title, deal.DropReason)
			return true
		}
	}

	minutesElapsed := s.minutesSincePosted(deal)
	if deal.CommentCount < s.policy.MinComments {
		// Freshness exception: a just-posted listing with at least one
		// comment is still accumulating engagement, keep it.
		if minutesElapsed < s.policy.FreshnessWindow.Minutes() && deal.CommentCount >= s.policy.FreshnessMinComments {
			logrus.Infof("Kept fresh deal %s (%dm old, %d comments)", deal.Title, int(minutesElapsed), deal.CommentCount)
		} else {
			deal.MarkDropped(fmt.Sprintf("Low Comments: %d", deal.CommentCount))
			logrus.Infof("Dropped %s (%s)", deal.Title, deal.DropReason)
			return true
		}
	}

	if deal.DiscountPrice == "" {
		deal.DiscountPrice = ExtractPriceFromTitle(deal.Title)
	}

	normalized := NormalizePriceText(deal.DiscountPrice, s.policy.USDToKRW)
	if normalized != "" {
		deal.DiscountPrice = normalized
	} else if !HasPriceHint(deal.Title) {
		deal.MarkDropped("No Price Found")
		logrus.Infof("Dropped %s (%s)", deal.Title, deal.DropReason)
		return true
	}

	return false
}

// CalculateSoftScore accumulates the weighted keyword, engagement and price
// signals onto deal.Score. A comparator rejection leaves the deal in DROP
// with Score untouched beyond the signals already summed.
func (s *FilterService) CalculateSoftScore(ctx context.Context, deal *models.Deal) {
	score := 0.0

	if deal.DiscountPrice != "" {
		score += 2
	}

	for _, kw := range highDiscountKeywords {
		if containsKeyword(deal.Title, kw) {
			score += 2
			break
		}
	}

	if deal.CommentCount >= s.policy.HighEngagementFloor {
		score += 1
	}

	for _, kw := range positiveKeywords {
		if containsKeyword(deal.Title, kw) {
			score += 1
			break
		}
	}

	// Negative keywords stack, one penalty per match.
	for _, kw := range negativeKeywords {
		if containsKeyword(deal.Title, kw) {
			score -= 3
		}
	}

	if s.calculateVelocity(deal) > s.policy.VelocityThreshold {
		score += 1
	}

	bonus, dropped := s.compareUnitEconomics(ctx, deal)
	if dropped {
		return
	}
	score += bonus

	deal.Score = score
	logrus.Debugf("Scored %s: %g", deal.Title, score)
}

// compareUnitEconomics fetches one Naver candidate and compares
// shipping-adjusted per-unit costs. A listing strictly more expensive per
// unit than the candidate is disqualified outright; otherwise the ratio and
// absolute savings feed bonus score. Lookup failure is always a no-op.
func (s *FilterService) compareUnitEconomics(ctx context.Context, deal *models.Deal) (float64, bool) {
	if s.priceSearch == nil || deal.DiscountPrice == "" {
		return 0, false
	}

	dealPrice, err := strconv.Atoi(deal.DiscountPrice)
	if err != nil || dealPrice <= 0 {
		return 0, false
	}

	query := CleanTitleForSearch(deal.Title)
	candidate, err := s.priceSearch.SearchLowestPrice(ctx, query)
	if err != nil {
		logrus.Warnf("Naver check failed for %s: %v", deal.Title, err)
		return 0, false
	}
	if candidate == nil {
		return 0, false
	}

	naverPrice := candidate.Price
	deal.NaverPrice = &naverPrice

	dealQty := ExtractQuantity(deal.Title, s.policy.QuantityCap)
	naverQty := ExtractQuantity(candidate.Title, s.policy.QuantityCap)

	dealShipping := s.policy.FlatShippingFee
	for _, kw := range freeShippingMarkers {
		if containsKeyword(deal.Title, kw) {
			dealShipping = 0
			break
		}
	}
	// The candidate's own shipping terms are unknown; assume the flat fee.
	naverShipping := s.policy.FlatShippingFee

	dealUnitPrice := float64(dealPrice+dealShipping) / float64(dealQty)
	naverUnitPrice := float64(naverPrice+naverShipping) / float64(naverQty)

	if dealUnitPrice > naverUnitPrice {
		deal.MarkDropped(fmt.Sprintf("Expensive than Naver Unit Price (%.1f > %.1f)", dealUnitPrice, naverUnitPrice))
		logrus.Infof("Dropped %s (%s)", deal.Title, deal.DropReason)
		return 0, true
	}

	savings := int((naverUnitPrice - dealUnitPrice) * float64(dealQty))
	deal.Savings = &savings

	bonus := 0.0
	ratio := dealUnitPrice / naverUnitPrice
	switch {
	case ratio < 0.85:
		bonus += 3
		logrus.Infof("Naver price bonus for %s: %.1f vs %.1f (%.2f) -> +3", deal.Title, dealUnitPrice, naverUnitPrice, ratio)
	case ratio < 0.90:
		bonus += 2
		logrus.Infof("Naver price bonus for %s: %.1f vs %.1f (%.2f) -> +2", deal.Title, dealUnitPrice, naverUnitPrice, ratio)
	}

	if savings > s.policy.SavingsBonusFloor {
		bonus += 2
		logrus.Infof("Naver savings bonus for %s: %d KRW -> +2", deal.Title, savings)
	}

	return bonus, false
}

// calculateVelocity scores how fast a listing accumulates comments relative
// to its age: 100 * (comments+1) / (minutes+10)^1.5. The age offset keeps
// brand-new listings from scoring infinitely fast.
func (s *FilterService) calculateVelocity(deal *models.Deal) float64 {
	minutes := s.minutesSincePosted(deal)
	return float64(deal.CommentCount+1) / math.Pow(minutes+10, 1.5) * 100
}

// minutesSincePosted computes the listing age in minutes, clamped to zero.
// time.Sub compares instants, so it does not matter which zone a board
// reported its timestamp in.
func (s *FilterService) minutesSincePosted(deal *models.Deal) float64 {
	minutes := s.now().Sub(deal.PostedAt).Minutes()
	if minutes < 0 {
		return 0
	}
	return minutes
}

func containsKeyword(title, keyword string) bool {
	return strings.Contains(title, keyword)
}
