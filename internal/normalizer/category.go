package normalizer

import (
	"regexp"
	"strings"

	"predictmax/internal/market"
)

// CategoryRule maps a keyword set to a category. Rules are evaluated in order
// and the first match wins.
type CategoryRule struct {
	Category market.Category
	Keywords []string

	re *regexp.Regexp
}

var defaultCategoryRules = compileRules([]CategoryRule{
	{
		Category: market.CategorySports,
		Keywords: []string{
			"nfl", "nba", "mlb", "nhl", "mls", "ncaa", "ufc", "fifa", "uefa", "atp", "wta", "pga", "f1", "formula 1",
			"premier league", "la liga", "serie a", "bundesliga", "champions league", "world cup", "super bowl",
			"stanley cup", "world series", "nba finals", "grand slam", "wimbledon", "us open", "grand prix",
			"playoffs", "playoff", "championship", "tournament", "match", "matchup", "season", "quarterback",
			"touchdown", "touchdowns", "goals", "home run", "mvp", "knockout", "final four",
			"lakers", "celtics", "warriors", "yankees", "dodgers", "chiefs", "eagles", "cowboys",
			"real madrid", "barcelona", "arsenal", "liverpool", "manchester",
		},
	},
	{
		Category: market.CategoryPolitics,
		Keywords: []string{
			"election", "elections", "elected", "president", "presidential", "senate", "senator", "congress",
			"house of representatives", "governor", "mayor", "primary", "nominee", "nomination", "vote", "ballot",
			"democrat", "democrats", "democratic", "republican", "republicans", "gop", "parliament",
			"prime minister", "cabinet", "impeach", "impeachment", "supreme court", "white house", "poll",
			"trump", "biden", "harris",
		},
	},
	{
		Category: market.CategoryCrypto,
		Keywords: []string{
			"bitcoin", "btc", "ethereum", "eth", "solana", "sol", "xrp", "dogecoin", "doge", "cardano", "ada",
			"crypto", "cryptocurrency", "stablecoin", "usdt", "usdc", "defi", "nft", "altcoin", "memecoin",
			"token", "airdrop", "blockchain", "binance", "coinbase",
		},
	},
	{
		Category: market.CategoryEconomics,
		Keywords: []string{
			"fed", "federal reserve", "fomc", "interest rate", "interest rates", "rate cut", "rate hike",
			"inflation", "cpi", "pce", "gdp", "unemployment", "jobless", "payrolls", "nonfarm", "jobs report",
			"recession", "treasury yield", "tariff", "tariffs", "economy",
		},
	},
	{
		Category: market.CategoryWeather,
		Keywords: []string{
			"weather", "temperature", "temp", "degrees", "hurricane", "tropical storm", "tornado", "rain",
			"rainfall", "snow", "snowfall", "heat wave", "heatwave", "storm", "climate", "hottest", "coldest",
		},
	},
	{
		Category: market.CategoryEntertainment,
		Keywords: []string{
			"oscar", "oscars", "academy award", "grammy", "grammys", "emmy", "emmys", "golden globe",
			"box office", "movie", "film", "album", "billboard", "netflix", "spotify", "tv show", "celebrity",
			"taylor swift", "eurovision", "youtube", "tiktok",
		},
	},
	{
		Category: market.CategoryScience,
		Keywords: []string{
			"nasa", "spacex", "rocket", "starship", "mars", "moon landing", "asteroid", "vaccine", "fda",
			"pandemic", "outbreak", "ai model", "agi", "openai", "quantum", "nobel", "discovery",
		},
	},
	{
		Category: market.CategoryFinance,
		Keywords: []string{
			"stock", "stocks", "shares", "s&p", "s&p 500", "nasdaq", "dow", "ipo", "earnings", "market cap",
			"revenue", "gold", "oil", "crude", "forex", "usd", "eur", "acquisition", "merger", "bankruptcy",
		},
	},
})

// sourceCategoryMap resolves platform category labels that carry no rule keyword.
var sourceCategoryMap = map[string]market.Category{
	"sports":                 market.CategorySports,
	"politics":               market.CategoryPolitics,
	"elections":              market.CategoryPolitics,
	"world":                  market.CategoryPolitics,
	"geopolitics":            market.CategoryPolitics,
	"crypto":                 market.CategoryCrypto,
	"economics":              market.CategoryEconomics,
	"economy":                market.CategoryEconomics,
	"climate and weather":    market.CategoryWeather,
	"weather":                market.CategoryWeather,
	"culture":                market.CategoryEntertainment,
	"pop culture":            market.CategoryEntertainment,
	"entertainment":          market.CategoryEntertainment,
	"mentions":               market.CategoryEntertainment,
	"science and technology": market.CategoryScience,
	"science":                market.CategoryScience,
	"tech":                   market.CategoryScience,
	"health":                 market.CategoryScience,
	"financials":             market.CategoryFinance,
	"finance":                market.CategoryFinance,
	"companies":              market.CategoryFinance,
	"business":               market.CategoryFinance,
}

func compileRules(rules []CategoryRule) []CategoryRule {
	out := make([]CategoryRule, 0, len(rules))
	for _, r := range rules {
		parts := make([]string, 0, len(r.Keywords))
		for _, kw := range r.Keywords {
			kw = strings.TrimSpace(strings.ToLower(kw))
			if kw == "" {
				continue
			}
			parts = append(parts, regexp.QuoteMeta(kw))
		}
		if len(parts) == 0 {
			continue
		}
		// \b does not fire next to '&', so bound on non-alphanumerics instead.
		r.re = regexp.MustCompile(`(?i)(^|[^a-z0-9])(` + strings.Join(parts, "|") + `)($|[^a-z0-9])`)
		out = append(out, r)
	}
	return out
}

func matchRules(rules []CategoryRule, text string) (market.Category, bool) {
	if strings.TrimSpace(text) == "" {
		return "", false
	}
	for _, r := range rules {
		if r.re != nil && r.re.MatchString(text) {
			return r.Category, true
		}
	}
	return "", false
}

// Categorize resolves the fixed taxonomy category: a source category that hits
// a keyword rule first, then the title rules, then the direct source mapping,
// then other.
func Categorize(title, sourceCategory string) market.Category {
	if c, ok := matchRules(defaultCategoryRules, sourceCategory); ok {
		return c
	}
	if c, ok := matchRules(defaultCategoryRules, title); ok {
		return c
	}
	if c, ok := sourceCategoryMap[strings.ToLower(strings.TrimSpace(sourceCategory))]; ok {
		return c
	}
	if c, ok := market.ParseCategory(sourceCategory); ok {
		return c
	}
	return market.CategoryOther
}
