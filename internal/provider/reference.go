package provider

import (
	_ "embed"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"predictmax/internal/apperr"
	"predictmax/internal/market"
	"predictmax/internal/search"
)

//go:embed reference_default.yaml
var defaultReferenceYAML []byte

// Team is one rated competitor. Rating is on the Elo scale.
type Team struct {
	Name    string   `yaml:"name" json:"name"`
	League  string   `yaml:"league" json:"league"`
	Aliases []string `yaml:"aliases" json:"aliases,omitempty"`
	Rating  float64  `yaml:"rating" json:"rating"`
	Games   int      `yaml:"games" json:"games"`
}

// ReferenceData is read-only lookup data for the domain models.
type ReferenceData interface {
	search.AliasSource
	Team(name string) (Team, bool)
	Teams() []Team
	BaseRate(c market.Category) (float64, bool)
}

type referenceFile struct {
	Teams     []Team             `yaml:"teams"`
	BaseRates map[string]float64 `yaml:"base_rates"`
}

// StaticReference is an immutable in-memory ReferenceData.
type StaticReference struct {
	teams     []Team
	byKey     map[string]int
	baseRates map[market.Category]float64
}

func NewStaticReference(teams []Team, baseRates map[market.Category]float64) *StaticReference {
	r := &StaticReference{byKey: map[string]int{}, baseRates: map[market.Category]float64{}}
	for _, t := range teams {
		t.Name = strings.TrimSpace(t.Name)
		if t.Name == "" {
			continue
		}
		idx := len(r.teams)
		r.teams = append(r.teams, t)
		for _, k := range teamKeys(t) {
			if _, taken := r.byKey[k]; !taken {
				r.byKey[k] = idx
			}
		}
	}
	for c, v := range baseRates {
		if c.Valid() && v > 0 && v < 1 {
			r.baseRates[c] = v
		}
	}
	return r
}

// ParseReferenceData reads the YAML reference format.
func ParseReferenceData(b []byte) (*StaticReference, error) {
	var f referenceFile
	if err := yaml.Unmarshal(b, &f); err != nil {
		return nil, apperr.Configuration("reference", err)
	}
	rates := make(map[market.Category]float64, len(f.BaseRates))
	for k, v := range f.BaseRates {
		c, ok := market.ParseCategory(k)
		if !ok {
			return nil, apperr.Configuration("reference", fmt.Errorf("unknown category %q", k))
		}
		rates[c] = v
	}
	return NewStaticReference(f.Teams, rates), nil
}

// LoadReferenceData reads path, or the built-in tables when path is empty.
func LoadReferenceData(path string) (*StaticReference, error) {
	if strings.TrimSpace(path) == "" {
		return ParseReferenceData(defaultReferenceYAML)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, apperr.Configuration("reference", err)
	}
	return ParseReferenceData(b)
}

func (r *StaticReference) Team(name string) (Team, bool) {
	idx, ok := r.byKey[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return Team{}, false
	}
	return r.teams[idx], true
}

func (r *StaticReference) Teams() []Team {
	return append([]Team(nil), r.teams...)
}

func (r *StaticReference) Aliases(name string) []string {
	t, ok := r.Team(name)
	if !ok {
		return nil
	}
	return teamKeys(t)
}

func (r *StaticReference) BaseRate(c market.Category) (float64, bool) {
	v, ok := r.baseRates[c]
	return v, ok
}

func teamKeys(t Team) []string {
	keys := []string{strings.ToLower(t.Name)}
	for _, a := range t.Aliases {
		if a = strings.ToLower(strings.TrimSpace(a)); a != "" {
			keys = append(keys, a)
		}
	}
	return keys
}

type teamHit struct {
	team Team
	pos  int
}

// FindTeams returns the distinct teams named in text, in order of first mention.
func FindTeams(ref ReferenceData, text string) []Team {
	if ref == nil {
		return nil
	}
	text = strings.ToLower(text)
	var hits []teamHit
	for _, t := range ref.Teams() {
		best := -1
		for _, k := range teamKeys(t) {
			if i := search.IndexWord(text, k); i >= 0 && (best < 0 || i < best) {
				best = i
			}
		}
		if best >= 0 {
			hits = append(hits, teamHit{team: t, pos: best})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].pos < hits[j].pos })
	out := make([]Team, 0, len(hits))
	for _, h := range hits {
		out = append(out, h.team)
	}
	return out
}
