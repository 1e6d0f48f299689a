package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RohUkJin/HOTDEAL-SCRAPER/config"
	"github.com/RohUkJin/HOTDEAL-SCRAPER/models"
)

type fakePriceSearcher struct {
	candidate *PriceCandidate
	err       error
	queries   []string
}

func (f *fakePriceSearcher) SearchLowestPrice(_ context.Context, query string) (*PriceCandidate, error) {
	f.queries = append(f.queries, query)
	return f.candidate, f.err
}

func newTestFilter(search PriceSearcher) *FilterService {
	return NewFilterService(config.DefaultFilterPolicy(), search)
}

func testDeal(title string, commentCount int, age time.Duration) *models.Deal {
	deal := models.NewDeal("1", "Ppomppu", title, "https://example.com/1", time.Now().Add(-age))
	deal.CommentCount = commentCount
	return deal
}

func TestApplyHardFilterBannedKeyword(t *testing.T) {
	fs := newTestFilter(nil)

	deal := testDeal("[종료] 생수 9,900원", 20, time.Hour)
	require.True(t, fs.ApplyHardFilter(deal))
	assert.Equal(t, models.StatusDrop, deal.Status)
	assert.Contains(t, deal.DropReason, "종료")
}

func TestApplyHardFilterFreshnessException(t *testing.T) {
	fs := newTestFilter(nil)

	// 10 minutes old with one comment rides the freshness exception.
	fresh := testDeal("생수 9,900원", 1, 10*time.Minute)
	assert.False(t, fs.ApplyHardFilter(fresh))
	assert.Equal(t, models.StatusReady, fresh.Status)

	// 40 minutes old with one comment does not.
	stale := testDeal("생수 9,900원", 1, 40*time.Minute)
	require.True(t, fs.ApplyHardFilter(stale))
	assert.Equal(t, models.StatusDrop, stale.Status)
	assert.Contains(t, stale.DropReason, "Low Comments")

	// Fresh but with zero comments still drops.
	silent := testDeal("생수 9,900원", 0, 10*time.Minute)
	require.True(t, fs.ApplyHardFilter(silent))
	assert.Contains(t, silent.DropReason, "Low Comments")
}

func TestApplyHardFilterUnpriced(t *testing.T) {
	fs := newTestFilter(nil)

	unpriced := testDeal("무료 나눔 이벤트", 10, time.Hour)
	require.True(t, fs.ApplyHardFilter(unpriced))
	assert.Equal(t, "No Price Found", unpriced.DropReason)

	// A residual percent token is enough to survive the unpriced check.
	hinted := testDeal("전품목 50% 할인", 10, time.Hour)
	assert.False(t, fs.ApplyHardFilter(hinted))
}

func TestApplyHardFilterNormalizesPriceInPlace(t *testing.T) {
	fs := newTestFilter(nil)

	deal := testDeal("삼다수 2L", 10, time.Hour)
	deal.DiscountPrice = "12,900원"
	require.False(t, fs.ApplyHardFilter(deal))
	assert.Equal(t, "12900", deal.DiscountPrice)
}

func TestApplyHardFilterExtractsPriceFromTitle(t *testing.T) {
	fs := newTestFilter(nil)

	deal := testDeal("삼다수 2L 12,900원 무배", 10, time.Hour)
	require.False(t, fs.ApplyHardFilter(deal))
	assert.Equal(t, "12900", deal.DiscountPrice)
}

func TestComparatorDisqualifiesExpensiveListing(t *testing.T) {
	// Listing per-unit 1200+3000=4200 vs candidate 1000+3000=4000.
	search := &fakePriceSearcher{candidate: &PriceCandidate{Price: 1000, Title: "생수"}}
	fs := newTestFilter(search)

	deal := testDeal("생수 특가", 12, time.Hour)
	deal.DiscountPrice = "1200"

	fs.CalculateSoftScore(context.Background(), deal)

	require.Equal(t, models.StatusDrop, deal.Status)
	assert.Contains(t, deal.DropReason, "4200.0")
	assert.Contains(t, deal.DropReason, "4000.0")
	// Scoring stopped: the pre-comparator score was never committed.
	assert.Zero(t, deal.Score)
}

func TestComparatorLookupFailureIsNoOp(t *testing.T) {
	search := &fakePriceSearcher{err: errors.New("timeout")}
	fs := newTestFilter(search)

	deal := testDeal("생수 특가", 12, 6*time.Hour)
	deal.DiscountPrice = "9000"

	fs.CalculateSoftScore(context.Background(), deal)

	assert.NotEqual(t, models.StatusDrop, deal.Status)
	// +2 priced, +1 high engagement.
	assert.Equal(t, 3.0, deal.Score)
	assert.Nil(t, deal.Savings)
}

func TestComparatorQueriesCleanedTitle(t *testing.T) {
	search := &fakePriceSearcher{}
	fs := newTestFilter(search)

	deal := testDeal("[쿠팡] (오늘만) 삼다수 2L", 12, time.Hour)
	deal.DiscountPrice = "9000"

	fs.CalculateSoftScore(context.Background(), deal)

	require.Len(t, search.queries, 1)
	assert.Equal(t, "삼다수 2L", search.queries[0])
}

func TestProcessDealThresholdBoundary(t *testing.T) {
	fs := newTestFilter(nil)

	// Negative keyword drives the score below zero: +2 priced, -3 keyword.
	negative := testDeal("업자 물건 9,900원", 5, 3*time.Hour)
	fs.ProcessDeal(context.Background(), negative)
	require.Equal(t, models.StatusDrop, negative.Status)
	assert.Contains(t, negative.DropReason, "Low Score")

	// Exactly zero passes: +2 (priced) +1 (comments>=10) -3 (업자) = 0.
	boundary := testDeal("업자 9,900원", 10, 3*time.Hour)
	fs.ProcessDeal(context.Background(), boundary)
	assert.Equal(t, models.StatusReady, boundary.Status)
	assert.Equal(t, 0.0, boundary.Score)
}

func TestProcessDealEndToEndScenario(t *testing.T) {
	// Candidate per-unit: 12000+3000=15000; listing: 9000+0 (free shipping
	// marker) = 9000; ratio 0.6 -> +3. Plus +2 priced, +2 keyword (무배),
	// +1 engagement = 8. Savings 6000.
	search := &fakePriceSearcher{candidate: &PriceCandidate{Price: 12000, Title: "동일 상품"}}
	fs := newTestFilter(search)

	deal := testDeal("역대가 생수 무배", 12, 6*time.Hour)
	deal.DiscountPrice = "9000"

	fs.ProcessDeal(context.Background(), deal)

	require.Equal(t, models.StatusReady, deal.Status)
	assert.Equal(t, 8.0, deal.Score)
	require.NotNil(t, deal.Savings)
	assert.Equal(t, 6000, *deal.Savings)
	require.NotNil(t, deal.NaverPrice)
	assert.Equal(t, 12000, *deal.NaverPrice)
}

func TestQuantityAdjustedComparison(t *testing.T) {
	// Listing: 30롤 2팩 = 60 units at (27000+3000)/60 = 500/unit.
	// Candidate: 30롤 = 30 units at (27000+3000)/30 = 1000/unit.
	search := &fakePriceSearcher{candidate: &PriceCandidate{Price: 27000, Title: "화장지 30롤"}}
	fs := newTestFilter(search)

	deal := testDeal("화장지 30롤 2팩", 12, 6*time.Hour)
	deal.DiscountPrice = "27000"

	fs.CalculateSoftScore(context.Background(), deal)

	require.NotEqual(t, models.StatusDrop, deal.Status)
	require.NotNil(t, deal.Savings)
	// (1000-500)*60 = 30000, not above the bonus floor.
	assert.Equal(t, 30000, *deal.Savings)
	// +2 priced, +1 engagement, +3 ratio bonus (0.5 < 0.85).
	assert.Equal(t, 6.0, deal.Score)
}

func TestVelocityBonus(t *testing.T) {
	fs := newTestFilter(nil)

	// 5 comments 5 minutes in: velocity = 600/15^1.5 ≈ 10.3 > 0.5.
	fast := testDeal("생수 한정", 5, 5*time.Minute)
	fast.DiscountPrice = "9900"
	fs.CalculateSoftScore(context.Background(), fast)
	// +2 priced, +1 velocity.
	assert.Equal(t, 3.0, fast.Score)

	// Same comments two days in: velocity ≈ 0.004 < 0.5.
	slow := testDeal("생수 한정", 5, 48*time.Hour)
	slow.DiscountPrice = "9900"
	fs.CalculateSoftScore(context.Background(), slow)
	assert.Equal(t, 2.0, slow.Score)
}

func TestVelocityClampsNegativeAge(t *testing.T) {
	fs := newTestFilter(nil)

	// Posted "in the future" (clock skew between board and scraper).
	deal := testDeal("생수 9,900원", 50, -10*time.Minute)
	assert.False(t, fs.ApplyHardFilter(deal))
	fs.CalculateSoftScore(context.Background(), deal)
	// +2 priced, +1 engagement, +1 velocity (51/10^1.5*100 ≈ 161).
	assert.Equal(t, 4.0, deal.Score)
}

func TestNegativeKeywordsStack(t *testing.T) {
	fs := newTestFilter(nil)

	deal := testDeal("업자 바이럴", 5, 6*time.Hour)
	deal.DiscountPrice = "9900"
	fs.CalculateSoftScore(context.Background(), deal)
	// +2 priced, -3 twice.
	assert.Equal(t, -4.0, deal.Score)
}
