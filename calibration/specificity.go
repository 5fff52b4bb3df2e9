package calibration

import (
	"slices"
	"strings"

	"github.com/poiesic/classit/core"
)

// Default boost factors per level.
const (
	DefaultSectorBoost      = 0.3
	DefaultIndustryBoost    = 0.3
	DefaultSubIndustryBoost = 0.4
)

var genericWords = map[string]struct{}{
	"app": {}, "software": {}, "service": {}, "services": {}, "development": {},
	"system": {}, "systems": {}, "solution": {}, "solutions": {}, "management": {},
	"platform": {}, "technology": {}, "technologies": {}, "product": {}, "products": {},
}

// Boosts holds the specificity boost factor for each level.
type Boosts struct {
	Sector      float64 `yaml:"sector" validate:"gte=0,lte=1"`
	Industry    float64 `yaml:"industry" validate:"gte=0,lte=1"`
	SubIndustry float64 `yaml:"sub_industry" validate:"gte=0,lte=1"`
}

// DefaultBoosts returns the standard boost factors.
func DefaultBoosts() Boosts {
	return Boosts{
		Sector:      DefaultSectorBoost,
		Industry:    DefaultIndustryBoost,
		SubIndustry: DefaultSubIndustryBoost,
	}
}

// For returns the boost for level, or 0 for LevelNone.
func (b Boosts) For(level core.Level) float64 {
	switch level {
	case core.LevelSector:
		return b.Sector
	case core.LevelIndustry:
		return b.Industry
	case core.LevelSubIndustry:
		return b.SubIndustry
	default:
		return 0
	}
}

// Reranked is a candidate after the specificity adjustment.
type Reranked struct {
	core.ScoredCandidate
	BaseScore   float64
	Specificity float64
}

// Specificity scores how precise label is relative to query, in [0, 1]:
//
//	0.4 * min(words/3, 1) + 0.3 * non-generic fraction + 0.3 * fraction found in query
func Specificity(label, query string) float64 {
	words := strings.Fields(strings.ToLower(label))
	if len(words) == 0 {
		return 0
	}
	queryWords := make(map[string]struct{})
	for _, w := range strings.Fields(strings.ToLower(query)) {
		queryWords[w] = struct{}{}
	}

	specific, overlap := 0, 0
	for _, w := range words {
		if _, generic := genericWords[w]; !generic {
			specific++
		}
		if _, ok := queryWords[w]; ok {
			overlap++
		}
	}
	n := float64(len(words))
	length := min(n/3, 1)
	return 0.4*length + 0.3*float64(specific)/n + 0.3*float64(overlap)/n
}

// Adjust scales base by the specificity multiplier (1-boost) + boost*specificity.
func Adjust(base, specificity, boost float64) float64 {
	return base * ((1 - boost) + boost*specificity)
}

// Rerank applies the specificity adjustment to every candidate and returns
// them ordered by adjusted score, descending. Ties keep input order.
func Rerank(query string, candidates []core.ScoredCandidate, boost float64) []Reranked {
	out := make([]Reranked, len(candidates))
	for i, c := range candidates {
		specificity := Specificity(c.Label, query)
		out[i] = Reranked{
			ScoredCandidate: core.ScoredCandidate{Label: c.Label, Score: Adjust(c.Score, specificity, boost)},
			BaseScore:       c.Score,
			Specificity:     specificity,
		}
	}
	slices.SortStableFunc(out, func(a, b Reranked) int {
		switch {
		case a.Score > b.Score:
			return -1
		case a.Score < b.Score:
			return 1
		default:
			return 0
		}
	})
	return out
}
