package core

import (
	"math"
	"slices"
)

// Unknown is the sentinel label reported for a level that has no candidate
// or whose best candidate falls below the acceptance threshold.
// It never collides with a real taxonomy label.
const Unknown = "Unknown"

// Level identifies a taxonomy level.
type Level int

const (
	// LevelNone is used when no level-specific behaviour applies.
	LevelNone Level = iota
	// LevelSector is the top taxonomy level.
	LevelSector
	// LevelIndustry is the middle taxonomy level.
	LevelIndustry
	// LevelSubIndustry is the leaf taxonomy level, which carries the code.
	LevelSubIndustry
)

// String returns the level name used in logs, metrics and config files.
func (l Level) String() string {
	switch l {
	case LevelSector:
		return "sector"
	case LevelIndustry:
		return "industry"
	case LevelSubIndustry:
		return "sub_industry"
	default:
		return "none"
	}
}

// SelectionMethod records which path produced the final sector and industry.
type SelectionMethod string

const (
	// SelectionDeterministic means the funnel's top pick was used.
	SelectionDeterministic SelectionMethod = "deterministic"
	// SelectionLLMRerank means the generative re-ranker's choice was used.
	SelectionLLMRerank SelectionMethod = "llm_rerank"
)

// ScoredCandidate is a label with its blended similarity score.
type ScoredCandidate struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// LevelResult is the outcome for one taxonomy level.
type LevelResult struct {
	Label      string            `json:"label"`
	Score      float64           `json:"score"`
	Margin     float64           `json:"margin"`
	Candidates []ScoredCandidate `json:"candidates"`
}

// FunnelCandidate is a sub-industry survivor together with its lineage and code.
// Specificity is zero until calibration has run.
type FunnelCandidate struct {
	ScoredCandidate
	Industry        string  `json:"industry"`
	Sector          string  `json:"sector"`
	Code            string  `json:"code"`
	CodeDescription string  `json:"code_description"`
	Specificity     float64 `json:"specificity"`
}

// RankedCandidate is an entry of a per-level top-K list in a Prediction.
type RankedCandidate struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
	Rank  int     `json:"rank"`
}

// Confidence holds the calibrated confidence of a prediction.
type Confidence struct {
	Base            float64 `json:"base"`
	EvidenceDensity float64 `json:"evidence_density"`
	Final           float64 `json:"final"`
}

// Prediction carries the audit trail behind a CompanyClassification.
type Prediction struct {
	SelectionMethod  SelectionMethod   `json:"selection_method"`
	Escalated        bool              `json:"escalated"`
	FallbackReason   string            `json:"fallback_reason,omitempty"`
	LLMReasoning     string            `json:"llm_reasoning,omitempty"`
	Confidence       Confidence        `json:"confidence"`
	TopSectors       []RankedCandidate `json:"top_sectors"`
	TopIndustries    []RankedCandidate `json:"top_industries"`
	TopSubIndustries []FunnelCandidate `json:"top_sub_industries"`
}

// CompanyClassification is the complete result of one classification call.
// It is built fresh for each call and never mutated after being returned.
type CompanyClassification struct {
	Company         string      `json:"company"`
	Sector          LevelResult `json:"sector"`
	Industry        LevelResult `json:"industry"`
	SubIndustry     LevelResult `json:"sub_industry"`
	Code            *string     `json:"code,omitempty"`
	CodeDescription *string     `json:"code_description,omitempty"`
	Prediction      *Prediction `json:"prediction,omitempty"`
}

// Round4 rounds a score to 4 decimal places.
func Round4(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return math.Round(v*10000) / 10000
}

// Margin returns the score of the first candidate minus the score of the
// second, or 0 when there are fewer than two candidates.
func Margin(candidates []ScoredCandidate) float64 {
	if len(candidates) < 2 {
		return 0
	}
	return candidates[0].Score - candidates[1].Score
}

// SortCandidates orders candidates by descending score. Equal scores keep
// their input order.
func SortCandidates(candidates []ScoredCandidate) {
	slices.SortStableFunc(candidates, func(a, b ScoredCandidate) int {
		switch {
		case a.Score > b.Score:
			return -1
		case a.Score < b.Score:
			return 1
		default:
			return 0
		}
	})
}

// NewLevelResult builds a LevelResult whose label is the top candidate.
// Candidates must already be ordered. Scores are rounded to 4 decimals.
// An empty candidate list yields the Unknown result.
func NewLevelResult(candidates []ScoredCandidate) LevelResult {
	if len(candidates) == 0 {
		return UnknownLevel()
	}
	rounded := RoundCandidates(candidates)
	return LevelResult{
		Label:      rounded[0].Label,
		Score:      rounded[0].Score,
		Margin:     Round4(Margin(candidates)),
		Candidates: rounded,
	}
}

// RoundCandidates returns a copy of candidates with scores rounded to 4 decimals.
func RoundCandidates(candidates []ScoredCandidate) []ScoredCandidate {
	out := make([]ScoredCandidate, len(candidates))
	for i, c := range candidates {
		out[i] = ScoredCandidate{Label: c.Label, Score: Round4(c.Score)}
	}
	return out
}

// UnknownLevel returns the sentinel result for a level with nothing to report.
func UnknownLevel() LevelResult {
	return LevelResult{
		Label:      Unknown,
		Score:      0,
		Margin:     0,
		Candidates: []ScoredCandidate{},
	}
}

// UnknownClassification returns the all-Unknown result for a company.
func UnknownClassification(company string) CompanyClassification {
	return CompanyClassification{
		Company:     company,
		Sector:      UnknownLevel(),
		Industry:    UnknownLevel(),
		SubIndustry: UnknownLevel(),
	}
}

// IsUnknown reports whether the level carries the Unknown sentinel.
func (r LevelResult) IsUnknown() bool {
	return r.Label == Unknown
}

// Ranked converts ordered candidates into a 1-based ranked list with rounded scores.
func Ranked(candidates []ScoredCandidate) []RankedCandidate {
	out := make([]RankedCandidate, len(candidates))
	for i, c := range candidates {
		out[i] = RankedCandidate{Label: c.Label, Score: Round4(c.Score), Rank: i + 1}
	}
	return out
}
