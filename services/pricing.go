package services

import (
	"regexp"
	"strconv"
	"strings"
)

// Price and quantity parsing for free-text board listings. Board prices show
// up as "12,900원", "$10", "10.5달러" or bare digits; normalization collapses
// all of those to an integer KRW string so the comparator can do arithmetic.

var (
	usdPrefixPattern = regexp.MustCompile(`(?:\$|달러)\s*(\d+(?:\.\d+)?)`)
	usdSuffixPattern = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*(?:달러|\$)`)
	nonDigitPattern  = regexp.MustCompile(`[^\d]`)

	krwInTitlePattern = regexp.MustCompile(`(\d{1,3}(?:,\d{3})*)원`)
	priceHintPattern  = regexp.MustCompile(`\d+(원|%|달러|\$)`)
	quantityPattern   = regexp.MustCompile(`(\d+)\s*(병|롤|팩|개|매|캔|정|포|구|박스|봉|입|페트|pet|번|묶음|포기)`)
	leadingTagPattern = regexp.MustCompile(`^(\s*[\[\(<\{][^\]\)>\}]+[\]\)>\}])+\s*`)
)

// NormalizePriceText converts raw price text to a pure integer KRW string.
// USD amounts convert at the given fixed rate, truncating cents after the
// multiplication. Returns "" when no price can be extracted. The function is
// idempotent: an already-normalized digit string passes through unchanged.
func NormalizePriceText(text string, usdToKRW int) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return ""
	}

	usd := usdPrefixPattern.FindStringSubmatch(text)
	if usd == nil {
		usd = usdSuffixPattern.FindStringSubmatch(text)
	}
	if usd != nil {
		if val, err := strconv.ParseFloat(usd[1], 64); err == nil {
			return strconv.Itoa(int(val * float64(usdToKRW)))
		}
	}

	clean := nonDigitPattern.ReplaceAllString(text, "")
	return clean
}

// ExtractQuantity parses the total unit count implied by pack-size tokens in
// a title, e.g. "12병" -> 12, "30롤 2팩" -> 60. Multiple tokens multiply to
// model "N packs of M units". Titles without a token count as a single unit.
// The result is clamped so adversarial titles cannot blow up the unit math.
func ExtractQuantity(text string, cap int) int {
	matches := quantityPattern.FindAllStringSubmatch(strings.ToLower(text), -1)
	if len(matches) == 0 {
		return 1
	}

	total := 1
	for _, m := range matches {
		qty, err := strconv.Atoi(m[1])
		if err != nil || qty <= 0 {
			continue
		}
		total *= qty
		if cap > 0 && total >= cap {
			return cap
		}
	}
	if total < 1 {
		return 1
	}
	return total
}

// CleanTitleForSearch strips leading bracketed marketing tags like
// "[무료배송] (쿠팡) ..." so the Naver query matches the product itself.
func CleanTitleForSearch(title string) string {
	clean := strings.TrimSpace(leadingTagPattern.ReplaceAllString(title, ""))
	if clean == "" {
		return strings.TrimSpace(title)
	}
	return clean
}

// ExtractPriceFromTitle pulls a KRW or USD price token out of a title when
// the crawler found no explicit price field. Returns "" when nothing matches.
func ExtractPriceFromTitle(title string) string {
	if m := krwInTitlePattern.FindStringSubmatch(title); m != nil {
		return m[1]
	}
	if m := usdSuffixPattern.FindString(title); m != "" {
		return m
	}
	if m := usdPrefixPattern.FindString(title); m != "" {
		return m
	}
	return ""
}

// HasPriceHint reports whether the title carries any residual price-like
// token (digits followed by a currency or percent marker). Used as the last
// line before rejecting a listing as unpriced.
func HasPriceHint(title string) bool {
	return priceHintPattern.MatchString(title)
}
