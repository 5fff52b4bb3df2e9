package escalation

import (
	"fmt"
	"strings"

	"github.com/poiesic/classit/core"
)

const (
	// DefaultTextLimit is the number of runes of company text shown to the model.
	DefaultTextLimit = 1000

	// DefaultCandidateLimit is the number of candidates offered per level.
	DefaultCandidateLimit = 5

	sectorPrefix    = "SECTOR:"
	industryPrefix  = "INDUSTRY:"
	reasoningPrefix = "REASONING:"
)

// BuildPrompt renders the constrained re-rank prompt. Only the first
// candidateLimit sectors and industries are offered.
func BuildPrompt(text string, sectors, industries []core.ScoredCandidate, textLimit, candidateLimit int) string {
	var b strings.Builder
	b.WriteString("You are an expert business analyst. Given a company description and top classification candidates, pick the MOST ACCURATE match.\n\n")
	b.WriteString("COMPANY DESCRIPTION:\n")
	b.WriteString(truncate(text, textLimit))
	b.WriteString("\n\nTOP SECTORS (ranked by similarity):\n")
	writeCandidates(&b, head(sectors, candidateLimit))
	b.WriteString("\nTOP INDUSTRIES (ranked by similarity):\n")
	writeCandidates(&b, head(industries, candidateLimit))
	b.WriteString("\nPick EXACTLY ONE sector and ONE industry from the lists above.\n")
	b.WriteString("If none of them fit, answer Unknown.\n")
	b.WriteString("Answer in this EXACT format:\n")
	b.WriteString(sectorPrefix + " [exact name from list]\n")
	b.WriteString(industryPrefix + " [exact name from list]\n")
	b.WriteString(reasoningPrefix + " [1 sentence why]\n")
	return b.String()
}

func writeCandidates(b *strings.Builder, cs []core.ScoredCandidate) {
	for i, c := range cs {
		fmt.Fprintf(b, "%d. %s (%.2f)\n", i+1, c.Label, c.Score)
	}
}

// Answer is the parsed model response.
type Answer struct {
	Sector    string
	Industry  string
	Reasoning string
}

// ParseAnswer extracts the SECTOR, INDUSTRY and REASONING lines. The first
// occurrence of each wins. Both SECTOR and INDUSTRY are required.
func ParseAnswer(raw string) (Answer, error) {
	var a Answer
	var haveSector, haveIndustry, haveReasoning bool
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case !haveSector && strings.HasPrefix(line, sectorPrefix):
			a.Sector = strings.TrimSpace(strings.TrimPrefix(line, sectorPrefix))
			haveSector = true
		case !haveIndustry && strings.HasPrefix(line, industryPrefix):
			a.Industry = strings.TrimSpace(strings.TrimPrefix(line, industryPrefix))
			haveIndustry = true
		case !haveReasoning && strings.HasPrefix(line, reasoningPrefix):
			a.Reasoning = strings.TrimSpace(strings.TrimPrefix(line, reasoningPrefix))
			haveReasoning = true
		}
	}
	if a.Sector == "" || a.Industry == "" {
		return a, fmt.Errorf("%w: missing %s or %s line", ErrMalformedAnswer, sectorPrefix, industryPrefix)
	}
	return a, nil
}

// Validate checks both labels against the offered candidates by exact,
// case-sensitive match.
func (a Answer) Validate(sectors, industries []core.ScoredCandidate) error {
	if a.Sector == core.Unknown || a.Industry == core.Unknown {
		return ErrDeclined
	}
	if !offered(a.Sector, sectors) {
		return fmt.Errorf("%w: sector %q", ErrUnknownCandidate, a.Sector)
	}
	if !offered(a.Industry, industries) {
		return fmt.Errorf("%w: industry %q", ErrUnknownCandidate, a.Industry)
	}
	return nil
}

func offered(label string, cs []core.ScoredCandidate) bool {
	for _, c := range cs {
		if c.Label == label {
			return true
		}
	}
	return false
}

func head(cs []core.ScoredCandidate, n int) []core.ScoredCandidate {
	if n > 0 && len(cs) > n {
		return cs[:n]
	}
	return cs
}

func truncate(s string, limit int) string {
	if limit <= 0 {
		return s
	}
	n := 0
	for i := range s {
		if n == limit {
			return s[:i]
		}
		n++
	}
	return s
}
