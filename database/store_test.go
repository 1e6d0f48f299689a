package database

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RohUkJin/HOTDEAL-SCRAPER/models"
)

// newTestStore connects to the database named by TEST_DATABASE_URL, skipping
// the test when it is not set.
func newTestStore(t *testing.T) *Store {
	t.Helper()
	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	db, err := Connect(dbURL)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	store := NewStore(db)
	require.NoError(t, store.Migrate(context.Background()))
	return store
}

func storedDeal(id string) *models.Deal {
	deal := models.NewDeal(id, "ppomppu", "삼다수 2L 12,900원", "https://example.com/"+id, time.Now())
	deal.DiscountPrice = "12900"
	deal.Votes = 54
	deal.CommentCount = 23
	naver := 15000
	deal.NaverPrice = &naver
	savings := 6000
	deal.Savings = &savings
	deal.Score = 8
	deal.Status = models.StatusHot
	deal.Category = models.CategoryDrink
	deal.Comments = []string{"역대가네요", "추천합니다"}
	deal.AISummary = "생수 역대가!"
	return deal
}

func TestStoreSaveAndReadHotdeal(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	deal := storedDeal("store-test-" + uuid.NewString())
	require.NoError(t, store.SaveHotdeal(ctx, deal))

	got, err := store.GetHotdealByID(ctx, deal.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, deal.Title, got.Title)
	assert.Equal(t, deal.DiscountPrice, got.DiscountPrice)
	assert.Equal(t, models.StatusHot, got.Status)
	assert.Equal(t, models.CategoryDrink, got.Category)
	assert.Equal(t, deal.Comments, got.Comments)
	require.NotNil(t, got.NaverPrice)
	assert.Equal(t, 15000, *got.NaverPrice)

	// Upsert with the same id refreshes instead of duplicating.
	deal.CommentCount = 40
	require.NoError(t, store.SaveHotdeal(ctx, deal))
	got, err = store.GetHotdealByID(ctx, deal.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 40, got.CommentCount)
}

func TestStoreGetHotdealByIDAbsent(t *testing.T) {
	store := newTestStore(t)

	got, err := store.GetHotdealByID(context.Background(), "no-such-deal")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestStoreCrawlStats(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	stats := &models.CrawlStats{
		RunID:          uuid.New(),
		CommunityCount: 3,
		TotalItems:     42,
		FilteredItems:  30,
		HotdealItems:   5,
		TotalSavings:   123000,
		CreatedAt:      time.Now(),
	}
	require.NoError(t, store.SaveCrawlStats(ctx, stats))

	recent, err := store.GetRecentStats(ctx, 10)
	require.NoError(t, err)
	require.NotEmpty(t, recent)

	var found bool
	for _, row := range recent {
		if row.RunID == stats.RunID {
			found = true
			assert.Equal(t, 42, row.TotalItems)
			assert.Equal(t, 123000, row.TotalSavings)
		}
	}
	assert.True(t, found)
}

func TestStoreCleanOldDeals(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	old := storedDeal("store-old-" + uuid.NewString())
	old.PostedAt = time.Now().AddDate(0, 0, -10)
	require.NoError(t, store.SaveHotdeal(ctx, old))

	require.NoError(t, store.CleanOldDeals(ctx, 5))

	got, err := store.GetHotdealByID(ctx, old.ID)
	require.NoError(t, err)
	assert.Nil(t, got)
}
