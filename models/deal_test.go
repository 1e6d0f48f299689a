package models

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDealStartsReady(t *testing.T) {
	deal := NewDeal("1", "ppomppu", "삼다수 2L", "https://example.com/1", time.Now())
	assert.Equal(t, StatusReady, deal.Status)
	assert.Zero(t, deal.Score)
	assert.Empty(t, deal.DropReason)
}

func TestMarkDropped(t *testing.T) {
	deal := NewDeal("1", "ppomppu", "삼다수 2L", "https://example.com/1", time.Now())
	deal.MarkDropped("Keyword: 광고")
	assert.Equal(t, StatusDrop, deal.Status)
	assert.Equal(t, "Keyword: 광고", deal.DropReason)
}

func TestFingerprintDependsOnTitleAndLinkOnly(t *testing.T) {
	a := NewDeal("1", "ppomppu", "삼다수 2L", "https://example.com/1", time.Now())
	b := NewDeal("99", "arca", "삼다수 2L", "https://example.com/1", time.Now().Add(-time.Hour))
	b.CommentCount = 42
	b.Votes = 7
	assert.Equal(t, a.Fingerprint(), b.Fingerprint())

	c := NewDeal("1", "ppomppu", "삼다수 2L", "https://example.com/2", time.Now())
	assert.NotEqual(t, a.Fingerprint(), c.Fingerprint())

	// Stable hex digest, safe as a JSON map key.
	assert.Len(t, a.Fingerprint(), 32)
}

func TestAddCommentCapsAtMax(t *testing.T) {
	deal := NewDeal("1", "ppomppu", "삼다수 2L", "https://example.com/1", time.Now())
	for i := 0; i < MaxComments+5; i++ {
		deal.AddComment(fmt.Sprintf("댓글 %d", i))
	}
	require.Len(t, deal.Comments, MaxComments)

	deal.AddComment("")
	assert.Len(t, deal.Comments, MaxComments)
}

func TestAddCommentSkipsEmpty(t *testing.T) {
	deal := NewDeal("1", "ppomppu", "삼다수 2L", "https://example.com/1", time.Now())
	deal.AddComment("")
	deal.AddComment("좋네요")
	assert.Equal(t, []string{"좋네요"}, deal.Comments)
}

func TestStatusTerminal(t *testing.T) {
	assert.False(t, StatusReady.Terminal())
	assert.False(t, StatusMaybe.Terminal())
	for _, s := range []Status{StatusHot, StatusDrop, StatusError, StatusHotCached, StatusDropCached} {
		assert.True(t, s.Terminal(), string(s))
	}
}

func TestStatusCached(t *testing.T) {
	assert.True(t, StatusHotCached.Cached())
	assert.True(t, StatusDropCached.Cached())
	assert.False(t, StatusHot.Cached())
	assert.False(t, StatusDrop.Cached())
}

func TestParseCategory(t *testing.T) {
	cases := []struct {
		raw   string
		want  Category
		known bool
	}{
		{"Food", CategoryFood, true},
		{"food", CategoryFood, true},
		{" TOILETRIES ", CategoryToiletries, true},
		{"drop", CategoryDrop, true},
		{"Gadgets", CategoryOthers, false},
		{"", CategoryOthers, false},
	}
	for _, tc := range cases {
		got, known := ParseCategory(tc.raw)
		assert.Equal(t, tc.want, got, tc.raw)
		assert.Equal(t, tc.known, known, tc.raw)
	}
}
