package scoring

import (
	"math"
	"slices"
	"strings"
)

// DefaultMaxFeatures caps the lexical vocabulary per scoring batch.
const DefaultMaxFeatures = 1000

// lexicalSimilarity fits a TF-IDF model over the query and every candidate
// text together and returns the cosine similarity between the query vector
// and each candidate vector, in candidate order.
//
// Terms are unigrams and bigrams of stop-word-filtered tokens. The vocabulary
// keeps the maxFeatures most frequent terms across the batch (ties broken
// alphabetically). IDF is smoothed: ln((1+n)/(1+df)) + 1.
func lexicalSimilarity(query string, texts []string, maxFeatures int) ([]float64, error) {
	docs := make([]map[string]float64, 0, len(texts)+1)
	docs = append(docs, termCounts(query))
	for _, t := range texts {
		docs = append(docs, termCounts(t))
	}

	vocab := vocabulary(docs, maxFeatures)
	if len(vocab) == 0 {
		return nil, ErrEmptyVocabulary
	}

	n := float64(len(docs))
	idf := make(map[string]float64, len(vocab))
	for _, term := range vocab {
		df := 0
		for _, d := range docs {
			if _, ok := d[term]; ok {
				df++
			}
		}
		idf[term] = math.Log((1+n)/(1+float64(df))) + 1
	}

	vectors := make([]map[string]float64, len(docs))
	for i, d := range docs {
		vectors[i] = weighTerms(d, vocab, idf)
	}

	out := make([]float64, len(texts))
	q := vectors[0]
	for i := range texts {
		out[i] = sparseDot(q, vectors[i+1], vocab)
	}
	return out, nil
}

// termCounts returns raw unigram and bigram counts for text.
func termCounts(text string) map[string]float64 {
	tokens := analyzerTokens(text)
	counts := make(map[string]float64, len(tokens)*2)
	for i, tok := range tokens {
		counts[tok]++
		if i+1 < len(tokens) {
			counts[tok+" "+tokens[i+1]]++
		}
	}
	return counts
}

// vocabulary returns the retained terms in sorted order.
func vocabulary(docs []map[string]float64, maxFeatures int) []string {
	totals := make(map[string]float64)
	for _, d := range docs {
		for term, c := range d {
			totals[term] += c
		}
	}
	terms := make([]string, 0, len(totals))
	for term := range totals {
		terms = append(terms, term)
	}
	if maxFeatures > 0 && len(terms) > maxFeatures {
		slices.SortFunc(terms, func(a, b string) int {
			switch {
			case totals[a] > totals[b]:
				return -1
			case totals[a] < totals[b]:
				return 1
			default:
				return strings.Compare(a, b)
			}
		})
		terms = terms[:maxFeatures]
	}
	slices.Sort(terms)
	return terms
}

// weighTerms applies IDF and L2 normalisation to one document's counts.
func weighTerms(counts map[string]float64, vocab []string, idf map[string]float64) map[string]float64 {
	vec := make(map[string]float64)
	var sum float64
	for _, term := range vocab {
		c, ok := counts[term]
		if !ok {
			continue
		}
		w := c * idf[term]
		vec[term] = w
		sum += w * w
	}
	if sum == 0 {
		return vec
	}
	norm := math.Sqrt(sum)
	for term := range vec {
		vec[term] /= norm
	}
	return vec
}

// sparseDot sums in vocabulary order so results are reproducible bit for bit.
func sparseDot(a, b map[string]float64, vocab []string) float64 {
	var dot float64
	for _, term := range vocab {
		x, ok := a[term]
		if !ok {
			continue
		}
		if y, ok := b[term]; ok {
			dot += x * y
		}
	}
	return dot
}
