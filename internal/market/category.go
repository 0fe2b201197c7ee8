package market

import "strings"

type Category string

const (
	CategorySports        Category = "sports"
	CategoryPolitics      Category = "politics"
	CategoryCrypto        Category = "crypto"
	CategoryEconomics     Category = "economics"
	CategoryWeather       Category = "weather"
	CategoryEntertainment Category = "entertainment"
	CategoryScience       Category = "science"
	CategoryFinance       Category = "finance"
	CategoryOther         Category = "other"
)

var categories = []Category{
	CategorySports,
	CategoryPolitics,
	CategoryCrypto,
	CategoryEconomics,
	CategoryWeather,
	CategoryEntertainment,
	CategoryScience,
	CategoryFinance,
	CategoryOther,
}

func Categories() []Category {
	out := make([]Category, len(categories))
	copy(out, categories)
	return out
}

// ParseCategory accepts only exact taxonomy names (case-insensitive).
func ParseCategory(s string) (Category, bool) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range categories {
		if c == known {
			return c, true
		}
	}
	return CategoryOther, false
}

func (c Category) Valid() bool {
	_, ok := ParseCategory(string(c))
	return ok
}
