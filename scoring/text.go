package scoring

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	wordPattern     = regexp.MustCompile(`\b\w\w+\b`)
	nonAlphanumeric = regexp.MustCompile(`[^a-z0-9\s]`)
)

// Normalize lowercases text and folds compatibility forms and diacritics so
// "Café" and "cafe" tokenise the same way.
func Normalize(text string) string {
	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, text)
	if err != nil {
		folded = norm.NFKC.String(text)
	}
	return strings.ToLower(folded)
}

// analyzerTokens splits normalised text into the word tokens used by the
// lexical signal: runs of two or more word characters, minus English stop words.
func analyzerTokens(text string) []string {
	raw := wordPattern.FindAllString(Normalize(text), -1)
	out := raw[:0]
	for _, tok := range raw {
		if _, stop := englishStopWords[tok]; stop {
			continue
		}
		out = append(out, tok)
	}
	return out
}

// importantTokens returns the set of lowercase alphanumeric tokens of length
// three or more that are not common stop words.
func importantTokens(text string) map[string]struct{} {
	cleaned := nonAlphanumeric.ReplaceAllString(Normalize(text), " ")
	tokens := make(map[string]struct{})
	for _, tok := range strings.Fields(cleaned) {
		if len(tok) < 3 {
			continue
		}
		if _, stop := keywordStopWords[tok]; stop {
			continue
		}
		tokens[tok] = struct{}{}
	}
	return tokens
}

// phraseText pads a normalised, punctuation-free copy of text with spaces so
// phrases can be matched on word boundaries with strings.Contains.
func phraseText(text string) string {
	var b strings.Builder
	b.Grow(len(text) + 2)
	b.WriteByte(' ')
	space := true
	for _, r := range Normalize(text) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' {
			b.WriteRune(r)
			space = false
			continue
		}
		if !space {
			b.WriteByte(' ')
			space = true
		}
	}
	if !space {
		b.WriteByte(' ')
	}
	return b.String()
}
