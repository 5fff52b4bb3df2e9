package calibration

import (
	"context"
	"strings"

	"github.com/poiesic/classit/core"
)

const (
	// DefaultEvidenceFloor is the per-document score the winning label must exceed.
	DefaultEvidenceFloor = 0.15

	// DefaultEvidenceTopK is the number of leading candidates scored per document.
	DefaultEvidenceTopK = 3

	maxSourceQuality = 3.0
)

var (
	highSignalTerms = []string{
		"about", "company", "products", "solutions", "services",
		"industries", "what-we-do", "overview", "platform",
		"technology", "features", "capabilities",
	}
	lowSignalTerms = []string{
		"contact", "support", "help", "faq", "careers", "jobs",
		"blog", "news", "press", "privacy", "terms", "legal",
		"cookie", "login", "signup", "register",
	}
	pdfSignalTerms = []string{"brochure", "datasheet", "guide", "whitepaper", "overview"}
)

// Document is one source document behind a company description.
// A positive Weight overrides the computed source quality.
type Document struct {
	Text   string  `json:"text"`
	URI    string  `json:"uri"`
	Title  string  `json:"title"`
	Type   string  `json:"type"`
	Weight float64 `json:"weight,omitempty"`
}

// QualityWeight returns Weight when set, otherwise SourceQuality of the document.
func (d Document) QualityWeight() float64 {
	if d.Weight > 0 {
		return d.Weight
	}
	return SourceQuality(d.URI, d.Title, d.Type)
}

// SourceQuality returns a multiplier in (0, 3] describing how informative a
// document is likely to be for classification, judged from its location,
// title and type.
func SourceQuality(uri, title, docType string) float64 {
	quality := 1.0
	haystack := strings.ToLower(uri + " " + title)

	if containsAny(haystack, highSignalTerms) {
		quality *= 2.0
	}
	if containsAny(haystack, lowSignalTerms) {
		quality *= 0.3
	}
	if strings.EqualFold(docType, "pdf") && containsAny(haystack, pdfSignalTerms) {
		quality *= 1.5
	}
	if strings.HasSuffix(uri, "/") || strings.Contains(uri, "/index.") || strings.Count(uri, "/") <= 3 {
		quality *= 1.2
	}
	return min(quality, maxSourceQuality)
}

func containsAny(s string, terms []string) bool {
	for _, t := range terms {
		if strings.Contains(s, t) {
			return true
		}
	}
	return false
}

// LabelScorer scores candidate labels against a text.
type LabelScorer interface {
	Score(ctx context.Context, query string, candidates []string, labelText map[string]string, level core.Level) map[string]float64
}

// EvidenceDensity returns the fraction of total document weight whose own
// score for the winning candidate exceeds floor. Each document is scored
// against the first topK candidates using the labels themselves as text.
// It returns 0 when there are no candidates, documents or weight.
func EvidenceDensity(ctx context.Context, scorer LabelScorer, candidates []core.ScoredCandidate, docs []Document, topK int, floor float64) float64 {
	if len(candidates) == 0 || len(docs) == 0 {
		return 0
	}
	if topK <= 0 || topK > len(candidates) {
		topK = len(candidates)
	}
	winner := candidates[0].Label
	labels := make([]string, topK)
	texts := make(map[string]string, topK)
	for i, c := range candidates[:topK] {
		labels[i] = c.Label
		texts[c.Label] = c.Label
	}

	var supporting, total float64
	for _, doc := range docs {
		w := doc.QualityWeight()
		total += w
		scores := scorer.Score(ctx, doc.Text, labels, texts, core.LevelNone)
		if scores[winner] > floor {
			supporting += w
		}
	}
	if total == 0 {
		return 0
	}
	return min(supporting/total, 1)
}

// NewConfidence combines the base score with evidence density. Without
// documents the density collapses to the base score and no penalty applies.
func NewConfidence(base, density float64, haveDocuments bool) core.Confidence {
	if !haveDocuments {
		return core.Confidence{
			Base:            core.Round4(base),
			EvidenceDensity: core.Round4(base),
			Final:           core.Round4(base),
		}
	}
	return core.Confidence{
		Base:            core.Round4(base),
		EvidenceDensity: core.Round4(density),
		Final:           core.Round4(base * density),
	}
}
