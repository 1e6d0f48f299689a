package models

import (
	"crypto/md5"
	"encoding/hex"
	"time"
)

// MaxComments caps how many comment excerpts a crawler attaches to a deal.
const MaxComments = 15

// Deal represents a single hotdeal listing flowing through the pipeline.
// Crawlers populate the identity/content fields; the filter, comparator and
// analyzer stages fill in the verdict fields as the deal advances.
type Deal struct {
	ID     string `json:"id"`
	Source string `json:"source"`
	Title  string `json:"title"`
	Link   string `json:"link"`

	// DiscountPrice starts as raw text from the board ("12,900원", "$10")
	// and is rewritten to a normalized integer string by the hard filter.
	DiscountPrice string    `json:"discount_price"`
	PostedAt      time.Time `json:"posted_at"`
	Votes         int       `json:"votes"`
	CommentCount  int       `json:"comment_count"`
	Comments      []string  `json:"comments"`

	// Populated by the unit-economics comparator when a Naver candidate
	// is found.
	NaverPrice *int `json:"naver_price,omitempty"`
	Savings    *int `json:"savings,omitempty"`

	Score      float64 `json:"score"`
	Status     Status  `json:"status"`
	DropReason string  `json:"drop_reason,omitempty"`

	// Populated by the LLM analyzer.
	IsHotdeal      *bool    `json:"is_hotdeal,omitempty"`
	Category       Category `json:"category,omitempty"`
	AISummary      string   `json:"ai_summary,omitempty"`
	SentimentScore *int     `json:"sentiment_score,omitempty"`
	EmbedText      string   `json:"embed_text,omitempty"`
}

// NewDeal builds a deal in its initial READY state.
func NewDeal(id, source, title, link string, postedAt time.Time) *Deal {
	return &Deal{
		ID:       id,
		Source:   source,
		Title:    title,
		Link:     link,
		PostedAt: postedAt,
		Status:   StatusReady,
	}
}

// MarkDropped records a terminal DROP verdict. Status and DropReason are
// always set together so the two stay consistent.
func (d *Deal) MarkDropped(reason string) {
	d.Status = StatusDrop
	d.DropReason = reason
}

// Fingerprint is the content-addressed cache key for this deal. It depends
// only on title and link so the same listing re-crawled with fresher
// engagement counts still hits the same cache entry.
func (d *Deal) Fingerprint() string {
	sum := md5.Sum([]byte(d.Title + d.Link))
	return hex.EncodeToString(sum[:])
}

// AddComment appends a comment excerpt, dropping anything past MaxComments.
func (d *Deal) AddComment(text string) {
	if text == "" || len(d.Comments) >= MaxComments {
		return
	}
	d.Comments = append(d.Comments, text)
}
