package scoring

// keywordOverlap returns the fraction of the label text's important tokens
// that also occur among the query's important tokens.
func keywordOverlap(queryTokens map[string]struct{}, labelText string) float64 {
	labelTokens := importantTokens(labelText)
	if len(labelTokens) == 0 {
		return 0
	}
	matches := 0
	for tok := range labelTokens {
		if _, ok := queryTokens[tok]; ok {
			matches++
		}
	}
	return float64(matches) / float64(len(labelTokens))
}
