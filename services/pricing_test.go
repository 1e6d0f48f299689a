package services

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
)

const testUSDRate = 1450

func TestNormalizePriceText(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"krw with comma and suffix", "1,000원", "1000"},
		{"krw plain digits", "15900", "15900"},
		{"usd dollar sign", "$10", "14500"},
		{"usd korean suffix", "10달러", "14500"},
		{"usd with spacing", "$ 10", "14500"},
		{"usd fractional amount", "10.5달러", "15225"},
		{"empty input", "", ""},
		{"no digits at all", "가격문의", ""},
		{"whitespace only", "   ", ""},
		{"mixed text with digits", "특가 12,900원 한정", "12900"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizePriceText(tt.input, testUSDRate))
		})
	}
}

func TestNormalizePriceTextDeterministicAcrossCurrencyForms(t *testing.T) {
	// "$10" and "10달러" must land on the same fixed integer.
	assert.Equal(t, NormalizePriceText("$10", testUSDRate), NormalizePriceText("10달러", testUSDRate))
	assert.Equal(t, "14500", NormalizePriceText("$10", testUSDRate))
}

func TestNormalizePriceTextIdempotent(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("normalize(normalize(x)) == normalize(x)", prop.ForAll(
		func(text string) bool {
			once := NormalizePriceText(text, testUSDRate)
			twice := NormalizePriceText(once, testUSDRate)
			return once == twice
		},
		gen.AnyString(),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestExtractQuantity(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected int
	}{
		{"single token", "삼다수 12병", 12},
		{"two tokens multiply", "곰곰 30롤 2팩", 60},
		{"no token defaults to one", "로지텍 마우스 특가", 1},
		{"latin pet token", "코카콜라 24pet", 24},
		{"box token", "라면 5박스", 5},
		{"clamped at cap", "9999개 9999개", 10000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ExtractQuantity(tt.input, 10000))
		})
	}
}

func TestExtractQuantityNeverPanicsOnArbitraryText(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("result is always within [1, cap]", prop.ForAll(
		func(text string) bool {
			qty := ExtractQuantity(text, 10000)
			return qty >= 1 && qty <= 10000
		},
		gen.AnyString(),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestCleanTitleForSearch(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"single bracket tag", "[쿠팡] 물티슈 100매", "물티슈 100매"},
		{"stacked tags", "[무료배송] (오늘만) 물티슈", "물티슈"},
		{"angle bracket tag", "<특가> 생수 2L", "생수 2L"},
		{"no tags untouched", "생수 2L 12병", "생수 2L 12병"},
		{"tag only falls back to original", "[공지]", "[공지]"},
		{"inner brackets preserved", "생수 [2L] 12병", "생수 [2L] 12병"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, CleanTitleForSearch(tt.input))
		})
	}
}

func TestExtractPriceFromTitle(t *testing.T) {
	assert.Equal(t, "12,900", ExtractPriceFromTitle("생수 12,900원 무배"))
	assert.Equal(t, "10달러", ExtractPriceFromTitle("게임패드 10달러 직구"))
	assert.Equal(t, "", ExtractPriceFromTitle("가격 미정"))
}

func TestHasPriceHint(t *testing.T) {
	assert.True(t, HasPriceHint("반값 50% 할인"))
	assert.True(t, HasPriceHint("9900원"))
	assert.True(t, HasPriceHint("9달러"))
	assert.False(t, HasPriceHint("무료 나눔"))
}
