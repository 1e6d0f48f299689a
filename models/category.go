package models

import "strings"

// Category is the closed set of labels the analyzer may assign to a deal.
type Category string

const (
	CategoryFood       Category = "Food"
	CategoryDrink      Category = "Drink"
	CategoryToiletries Category = "Toiletries"
	CategoryOffice     Category = "Office"
	CategoryOthers     Category = "Others"
	CategoryDrop       Category = "DROP"
)

var knownCategories = map[string]Category{
	"food":       CategoryFood,
	"drink":      CategoryDrink,
	"toiletries": CategoryToiletries,
	"office":     CategoryOffice,
	"others":     CategoryOthers,
	"drop":       CategoryDrop,
}

// ParseCategory decodes a free-text label from the analyzer. Unknown labels
// fall back to Others so a creative LLM answer never fails a deal; callers
// can check the second return to log a warning.
func ParseCategory(raw string) (Category, bool) {
	if c, ok := knownCategories[strings.ToLower(strings.TrimSpace(raw))]; ok {
		return c, true
	}
	return CategoryOthers, false
}
