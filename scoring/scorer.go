// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


// Package scoring blends four similarity signals into one score per
// candidate label: lexical TF-IDF cosine, keyword overlap, a curated domain
// keyword signal, and remote embedding cosine.
//
// A failing signal contributes zero for that call; the others still count.
package scoring

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"github.com/poiesic/classit/ai"
	"github.com/poiesic/classit/core"
	"github.com/poiesic/classit/metrics"
)

// Signal names used in logs and metrics.
const (
	SignalLexical   = "lexical"
	SignalKeyword   = "keyword"
	SignalDomain    = "domain"
	SignalEmbedding = "embedding"
)

// Weights are the blend weights of the four signals.
type Weights struct {
	Lexical   float64 `yaml:"lexical" validate:"gte=0,lte=1"`
	Keyword   float64 `yaml:"keyword" validate:"gte=0,lte=1"`
	Domain    float64 `yaml:"domain" validate:"gte=0,lte=1"`
	Embedding float64 `yaml:"embedding" validate:"gte=0,lte=1"`
}

// DefaultWeights returns the standard blend.
func DefaultWeights() Weights {
	return Weights{Lexical: 0.35, Keyword: 0.20, Domain: 0.15, Embedding: 0.30}
}

// Sum returns the total weight.
func (w Weights) Sum() float64 {
	return w.Lexical + w.Keyword + w.Domain + w.Embedding
}

// Validate checks that weights are non-negative and sum to 1.
func (w Weights) Validate() error {
	if w.Lexical < 0 || w.Keyword < 0 || w.Domain < 0 || w.Embedding < 0 {
		return ErrInvalidWeights
	}
	if math.Abs(w.Sum()-1) > 1e-6 {
		return fmt.Errorf("%w: sum is %.4f", ErrInvalidWeights, w.Sum())
	}
	return nil
}

// Breakdown holds the per-signal values behind one candidate's score.
type Breakdown struct {
	Lexical   float64
	Keyword   float64
	Domain    float64
	Embedding float64
	Total     float64
}

// Scorer computes blended similarity scores. It is safe for concurrent use.
type Scorer struct {
	weights     Weights
	maxFeatures int
	embedder    ai.Embedder
	domain      *DomainTable
	logger      *slog.Logger
}

// Option configures a Scorer.
type Option func(*Scorer)

// WithWeights overrides the signal weights.
func WithWeights(w Weights) Option {
	return func(s *Scorer) {
		s.weights = w
	}
}

// WithMaxFeatures caps the lexical vocabulary size.
func WithMaxFeatures(n int) Option {
	return func(s *Scorer) {
		s.maxFeatures = n
	}
}

// WithEmbedder enables the embedding signal. Without an embedder the
// signal is zero for every candidate.
func WithEmbedder(e ai.Embedder) Option {
	return func(s *Scorer) {
		s.embedder = e
	}
}

// WithDomainTable replaces the built-in domain keyword table.
func WithDomainTable(t *DomainTable) Option {
	return func(s *Scorer) {
		s.domain = t
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Scorer) {
		s.logger = logger
	}
}

// NewScorer creates a Scorer with the default weights and domain table.
func NewScorer(opts ...Option) *Scorer {
	s := &Scorer{
		weights:     DefaultWeights(),
		maxFeatures: DefaultMaxFeatures,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.domain == nil {
		s.domain = DefaultDomainTable()
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	s.logger = s.logger.With("component", "scorer")
	return s
}

// Weights returns the configured signal weights.
func (s *Scorer) Weights() Weights {
	return s.weights
}

// Score returns the blended score of every candidate against query.
// labelText supplies each candidate's descriptive text; a missing entry
// falls back to the label itself. The result is not renormalised.
func (s *Scorer) Score(ctx context.Context, query string, candidates []string, labelText map[string]string, level core.Level) map[string]float64 {
	detailed := s.ScoreDetailed(ctx, query, candidates, labelText, level)
	out := make(map[string]float64, len(detailed))
	for label, b := range detailed {
		out[label] = b.Total
	}
	return out
}

// ScoreDetailed is Score with the individual signal values.
func (s *Scorer) ScoreDetailed(ctx context.Context, query string, candidates []string, labelText map[string]string, level core.Level) map[string]Breakdown {
	out := make(map[string]Breakdown, len(candidates))
	if query == "" || len(candidates) == 0 {
		for _, c := range candidates {
			out[c] = Breakdown{}
		}
		return out
	}

	texts := make([]string, len(candidates))
	for i, c := range candidates {
		if t, ok := labelText[c]; ok && t != "" {
			texts[i] = t
		} else {
			texts[i] = c
		}
	}

	lexical := s.runSignal(SignalLexical, level, len(candidates), func() ([]float64, error) {
		return lexicalSimilarity(query, texts, s.maxFeatures)
	})
	keyword := s.runSignal(SignalKeyword, level, len(candidates), func() ([]float64, error) {
		queryTokens := importantTokens(query)
		scores := make([]float64, len(texts))
		for i, t := range texts {
			scores[i] = keywordOverlap(queryTokens, t)
		}
		return scores, nil
	})
	domain := s.runSignal(SignalDomain, level, len(candidates), func() ([]float64, error) {
		scores := make([]float64, len(candidates))
		if level != core.LevelSector && level != core.LevelIndustry {
			return scores, nil
		}
		queryPhrase := phraseText(query)
		for i, c := range candidates {
			scores[i] = s.domain.signal(queryPhrase, level, c)
		}
		return scores, nil
	})
	embedding := make([]float64, len(candidates))
	if s.embedder != nil {
		embedding = s.runSignal(SignalEmbedding, level, len(candidates), func() ([]float64, error) {
			return embeddingSimilarity(ctx, s.embedder, query, texts)
		})
	}

	w := s.weights
	for i, c := range candidates {
		b := Breakdown{
			Lexical:   lexical[i],
			Keyword:   keyword[i],
			Domain:    domain[i],
			Embedding: embedding[i],
		}
		b.Total = w.Lexical*b.Lexical + w.Keyword*b.Keyword + w.Domain*b.Domain + w.Embedding*b.Embedding
		if prev, dup := out[c]; dup && prev.Total >= b.Total {
			continue
		}
		out[c] = b
	}
	return out
}

// runSignal evaluates one signal, turning errors and panics into zeros.
func (s *Scorer) runSignal(name string, level core.Level, n int, fn func() ([]float64, error)) (scores []float64) {
	defer func() {
		if r := recover(); r != nil {
			s.signalFailed(name, level, fmt.Errorf("%w: %v", ErrSignalPanic, r))
			scores = make([]float64, n)
		}
	}()
	scores, err := fn()
	if err != nil {
		s.signalFailed(name, level, err)
		return make([]float64, n)
	}
	if len(scores) != n {
		s.signalFailed(name, level, fmt.Errorf("signal returned %d scores for %d candidates", len(scores), n))
		return make([]float64, n)
	}
	for i, v := range scores {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			scores[i] = 0
		}
	}
	return scores
}

func (s *Scorer) signalFailed(name string, level core.Level, err error) {
	s.logger.Warn("scoring signal failed, using zero",
		"signal", name,
		"level", level.String(),
		"error", err)
	metrics.RecordSignalFailure(name, level.String())
}
