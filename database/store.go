package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/sirupsen/logrus"

	"github.com/RohUkJin/HOTDEAL-SCRAPER/models"
)

// Store persists finalized hotdeals and per-run statistics.
type Store struct {
	db *sql.DB
}

// NewStore creates a store over an open connection.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

const schema = `
CREATE TABLE IF NOT EXISTS hotdeals (
    id              TEXT PRIMARY KEY,
    source          TEXT NOT NULL,
    title           TEXT NOT NULL,
    link            TEXT NOT NULL,
    discount_price  TEXT,
    posted_at       TIMESTAMPTZ,
    votes           INT NOT NULL DEFAULT 0,
    comment_count   INT NOT NULL DEFAULT 0,
    naver_price     INT,
    savings         INT,
    score           DOUBLE PRECISION NOT NULL DEFAULT 0,
    status          TEXT NOT NULL,
    category        TEXT,
    comments        TEXT[],
    ai_summary      TEXT,
    sentiment_score INT,
    created_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at      TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_hotdeals_posted_at ON hotdeals (posted_at);

CREATE TABLE IF NOT EXISTS crawl_stats (
    run_id          UUID PRIMARY KEY,
    community_count INT NOT NULL,
    total_items     INT NOT NULL,
    filtered_items  INT NOT NULL,
    hotdeal_items   INT NOT NULL,
    total_savings   BIGINT NOT NULL,
    created_at      TIMESTAMPTZ NOT NULL DEFAULT now()
);`

// Migrate creates the tables when they do not exist yet.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// SaveHotdeal upserts a finalized HOT deal keyed by its source id.
func (s *Store) SaveHotdeal(ctx context.Context, deal *models.Deal) error {
	const query = `
INSERT INTO hotdeals (
    id, source, title, link, discount_price, posted_at, votes, comment_count,
    naver_price, savings, score, status, category, comments, ai_summary, sentiment_score
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)
ON CONFLICT (id) DO UPDATE SET
    title = EXCLUDED.title,
    discount_price = EXCLUDED.discount_price,
    votes = EXCLUDED.votes,
    comment_count = EXCLUDED.comment_count,
    naver_price = EXCLUDED.naver_price,
    savings = EXCLUDED.savings,
    score = EXCLUDED.score,
    status = EXCLUDED.status,
    category = EXCLUDED.category,
    comments = EXCLUDED.comments,
    ai_summary = EXCLUDED.ai_summary,
    sentiment_score = EXCLUDED.sentiment_score,
    updated_at = now()`

	_, err := s.db.ExecContext(ctx, query,
		deal.ID, deal.Source, deal.Title, deal.Link, deal.DiscountPrice,
		deal.PostedAt, deal.Votes, deal.CommentCount, deal.NaverPrice,
		deal.Savings, deal.Score, string(deal.Status), string(deal.Category),
		pq.Array(deal.Comments), deal.AISummary, deal.SentimentScore)
	if err != nil {
		return fmt.Errorf("upsert hotdeal %s: %w", deal.ID, err)
	}

	logrus.Infof("Saved hotdeal to DB: %s", deal.Title)
	return nil
}

// SaveCrawlStats inserts one pipeline run's statistics row.
func (s *Store) SaveCrawlStats(ctx context.Context, stats *models.CrawlStats) error {
	const query = `
INSERT INTO crawl_stats (run_id, community_count, total_items, filtered_items, hotdeal_items, total_savings)
VALUES ($1,$2,$3,$4,$5,$6)`

	_, err := s.db.ExecContext(ctx, query,
		stats.RunID, stats.CommunityCount, stats.TotalItems,
		stats.FilteredItems, stats.HotdealItems, stats.TotalSavings)
	if err != nil {
		return fmt.Errorf("insert crawl stats: %w", err)
	}
	return nil
}

// CleanOldDeals deletes hotdeals posted before the age cutoff.
func (s *Store) CleanOldDeals(ctx context.Context, days int) error {
	cutoff := time.Now().AddDate(0, 0, -days)
	res, err := s.db.ExecContext(ctx, `DELETE FROM hotdeals WHERE posted_at < $1`, cutoff)
	if err != nil {
		return fmt.Errorf("clean old deals: %w", err)
	}

	if rows, rErr := res.RowsAffected(); rErr == nil && rows > 0 {
		logrus.Infof("Cleaned %d deals older than %d days", rows, days)
	}
	return nil
}

// GetHotdeals returns the most recent saved hotdeals, newest first.
func (s *Store) GetHotdeals(ctx context.Context, limit int) ([]models.Deal, error) {
	const query = `
SELECT id, source, title, link, discount_price, posted_at, votes, comment_count,
       naver_price, savings, score, status, category, comments, ai_summary, sentiment_score
FROM hotdeals
ORDER BY posted_at DESC
LIMIT $1`

	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query hotdeals: %w", err)
	}
	defer rows.Close()

	var deals []models.Deal
	for rows.Next() {
		deal, err := scanDeal(rows)
		if err != nil {
			return nil, err
		}
		deals = append(deals, deal)
	}
	return deals, rows.Err()
}

// GetHotdealByID returns one saved hotdeal, or nil when absent.
func (s *Store) GetHotdealByID(ctx context.Context, id string) (*models.Deal, error) {
	const query = `
SELECT id, source, title, link, discount_price, posted_at, votes, comment_count,
       naver_price, savings, score, status, category, comments, ai_summary, sentiment_score
FROM hotdeals
WHERE id = $1`

	rows, err := s.db.QueryContext(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("query hotdeal %s: %w", id, err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}
	deal, err := scanDeal(rows)
	if err != nil {
		return nil, err
	}
	return &deal, nil
}

// GetRecentStats returns the latest crawl statistics rows, newest first.
func (s *Store) GetRecentStats(ctx context.Context, limit int) ([]models.CrawlStats, error) {
	const query = `
SELECT run_id, community_count, total_items, filtered_items, hotdeal_items, total_savings, created_at
FROM crawl_stats
ORDER BY created_at DESC
LIMIT $1`

	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query crawl stats: %w", err)
	}
	defer rows.Close()

	var all []models.CrawlStats
	for rows.Next() {
		var st models.CrawlStats
		if err := rows.Scan(&st.RunID, &st.CommunityCount, &st.TotalItems,
			&st.FilteredItems, &st.HotdealItems, &st.TotalSavings, &st.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan crawl stats: %w", err)
		}
		all = append(all, st)
	}
	return all, rows.Err()
}

func scanDeal(rows *sql.Rows) (models.Deal, error) {
	var (
		deal      models.Deal
		status    string
		category  sql.NullString
		summary   sql.NullString
		price     sql.NullString
		sentiment sql.NullInt64
	)
	err := rows.Scan(&deal.ID, &deal.Source, &deal.Title, &deal.Link, &price,
		&deal.PostedAt, &deal.Votes, &deal.CommentCount, &deal.NaverPrice,
		&deal.Savings, &deal.Score, &status, &category,
		pq.Array(&deal.Comments), &summary, &sentiment)
	if err != nil {
		return deal, fmt.Errorf("scan hotdeal: %w", err)
	}

	deal.Status = models.Status(status)
	deal.DiscountPrice = price.String
	deal.Category = models.Category(category.String)
	deal.AISummary = summary.String
	if sentiment.Valid {
		v := int(sentiment.Int64)
		deal.SentimentScore = &v
	}
	return deal, nil
}
