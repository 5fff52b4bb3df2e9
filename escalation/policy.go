package escalation

import "github.com/poiesic/classit/core"

const (
	// DefaultScoreThreshold is the top score below which a result is escalated.
	DefaultScoreThreshold = 0.20

	// DefaultMarginThreshold is the top-two margin below which a result is escalated.
	DefaultMarginThreshold = 0.05
)

// Policy decides when the deterministic ranking is uncertain enough to
// consult the generative re-ranker.
type Policy struct {
	ScoreThreshold  float64 `yaml:"score_threshold" validate:"gte=0,lte=1"`
	MarginThreshold float64 `yaml:"margin_threshold" validate:"gte=0,lte=1"`
}

// DefaultPolicy returns the standard thresholds.
func DefaultPolicy() Policy {
	return Policy{ScoreThreshold: DefaultScoreThreshold, MarginThreshold: DefaultMarginThreshold}
}

// ShouldEscalate reports whether top1 is below the score threshold or the
// gap between top1 and top2 is below the margin threshold.
func (p Policy) ShouldEscalate(top1, top2 float64) bool {
	return top1 < p.ScoreThreshold || top1-top2 < p.MarginThreshold
}

// ShouldEscalate applies the default policy.
func ShouldEscalate(top1, top2 float64) bool {
	return DefaultPolicy().ShouldEscalate(top1, top2)
}

// Decide applies the policy to ordered sector candidates. With a single
// candidate only the score threshold applies; with none it never escalates.
func (p Policy) Decide(sectors []core.ScoredCandidate) bool {
	switch len(sectors) {
	case 0:
		return false
	case 1:
		return sectors[0].Score < p.ScoreThreshold
	default:
		return p.ShouldEscalate(sectors[0].Score, sectors[1].Score)
	}
}
