package search

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"predictmax/internal/market"
)

// Entity is a named thing a query asks about (a team, player, asset).
// Parts are the lowercase tokens any one of which identifies it in market text.
type Entity struct {
	Name  string   `json:"name"`
	Parts []string `json:"parts"`
}

// ParsedQuery is the structured form of a discovery request.
type ParsedQuery struct {
	Entities []Entity `json:"entities,omitempty"`
	// HeadToHead requires every entity to match (e.g. two players in one match).
	HeadToHead bool            `json:"head_to_head"`
	Category   market.Category `json:"category,omitempty"`
	Terms      []string        `json:"terms,omitempty"`
}

// AliasSource resolves alternative names for an entity.
type AliasSource interface {
	Aliases(name string) []string
}

// NewEntity splits name into identifying parts and appends known aliases.
func NewEntity(name string, aliases AliasSource) Entity {
	e := Entity{Name: strings.TrimSpace(name)}
	seen := map[string]struct{}{}
	add := func(s string) {
		s = strings.ToLower(strings.TrimSpace(s))
		if len([]rune(s)) < 2 {
			return
		}
		if _, ok := seen[s]; ok {
			return
		}
		seen[s] = struct{}{}
		e.Parts = append(e.Parts, s)
	}
	for _, part := range tokenize(name) {
		if _, stop := stopwords[part]; stop {
			continue
		}
		add(part)
	}
	if aliases != nil {
		for _, a := range aliases.Aliases(name) {
			add(a)
		}
	}
	return e
}

// TermsQuery builds a terms-only query from free text.
func TermsQuery(text string) ParsedQuery {
	q := ParsedQuery{}
	seen := map[string]struct{}{}
	for _, tok := range tokenize(text) {
		if _, stop := stopwords[tok]; stop || len(tok) < 2 {
			continue
		}
		if _, ok := seen[tok]; ok {
			continue
		}
		seen[tok] = struct{}{}
		q.Terms = append(q.Terms, tok)
	}
	return q
}

func tokenize(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '&'
	})
}

var stopwords = map[string]struct{}{
	"a": {}, "an": {}, "the": {}, "of": {}, "in": {}, "on": {}, "at": {}, "to": {}, "for": {}, "by": {},
	"and": {}, "or": {}, "vs": {}, "v": {}, "will": {}, "be": {}, "is": {}, "are": {}, "who": {}, "what": {},
	"which": {}, "win": {}, "wins": {}, "market": {}, "markets": {}, "odds": {}, "fc": {}, "sc": {},
}

// containsWord reports whether part occurs in text on token boundaries.
func containsWord(text, part string) bool {
	return IndexWord(text, part) >= 0
}

// IndexWord returns the byte offset of the first occurrence of part in text
// that sits on token boundaries, or -1.
func IndexWord(text, part string) int {
	if part == "" {
		return -1
	}
	idx := 0
	for idx < len(text) {
		i := strings.Index(text[idx:], part)
		if i < 0 {
			return -1
		}
		start := idx + i
		if boundaryBefore(text, start) && boundaryAfter(text, start+len(part)) {
			return start
		}
		idx = start + 1
	}
	return -1
}

func boundaryBefore(text string, i int) bool {
	if i == 0 {
		return true
	}
	r, _ := utf8.DecodeLastRuneInString(text[:i])
	return !isWordRune(r)
}

func boundaryAfter(text string, i int) bool {
	if i >= len(text) {
		return true
	}
	r, _ := utf8.DecodeRuneInString(text[i:])
	return !isWordRune(r)
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}
