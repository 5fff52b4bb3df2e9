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


// Package classit assigns a company description to a sector, industry and
// sub-industry of a fixed taxonomy and attaches the sub-industry's
// classification code.
//
// A ClassifierContext is built once from a loaded taxonomy and the remote
// model services, then passed into every call:
//
//	cc, err := classit.NewClassifierContext(ctx, tax, classit.WithProvider(provider))
//	result, err := classit.Classify(ctx, cc, "Acme", text)
//
// Classification never fails on degraded signals or an unavailable re-ranker;
// empty text or an empty taxonomy yields the all-Unknown result.
package classit

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/poiesic/classit/ai"
	"github.com/poiesic/classit/calibration"
	"github.com/poiesic/classit/config"
	"github.com/poiesic/classit/core"
	"github.com/poiesic/classit/embedcache"
	"github.com/poiesic/classit/escalation"
	"github.com/poiesic/classit/funnel"
	"github.com/poiesic/classit/metrics"
	"github.com/poiesic/classit/scoring"
	"github.com/poiesic/classit/storage"
	"github.com/poiesic/classit/taxonomy"
)

// ClassifierContext holds everything a classification needs. It is
// read-only after construction and safe for concurrent use.
type ClassifierContext struct {
	// Taxonomy is the label index classifications are drawn from.
	Taxonomy *taxonomy.Taxonomy

	// EmbeddingAvailable records whether the embedding service answered
	// the probe when the context was built.
	EmbeddingAvailable bool

	// GeneratorAvailable records whether the re-rank generator answered
	// the probe when the context was built.
	GeneratorAvailable bool

	config     *config.Config
	embedder   *embedcache.CachingEmbedder
	scorer     *scoring.Scorer
	funnel     *funnel.Funnel
	controller *escalation.Controller
	logger     *slog.Logger
}

// Option configures a ClassifierContext.
type Option func(*contextOptions)

type contextOptions struct {
	config       *config.Config
	provider     ai.AIProvider
	cache        storage.VectorCache
	availability *ai.Availability
	monitor      funnel.Monitor
	logger       *slog.Logger
}

// WithConfig sets the thresholds and limits. Defaults to config.Default().
func WithConfig(cfg *config.Config) Option {
	return func(o *contextOptions) {
		o.config = cfg
	}
}

// WithProvider sets the remote model services. Without a provider only the
// local signals are used and escalation always falls back.
func WithProvider(p ai.AIProvider) Option {
	return func(o *contextOptions) {
		o.provider = p
	}
}

// WithVectorCache sets the cache for embedding vectors.
func WithVectorCache(c storage.VectorCache) Option {
	return func(o *contextOptions) {
		o.cache = c
	}
}

// WithAvailability skips the probe and uses a.
func WithAvailability(a ai.Availability) Option {
	return func(o *contextOptions) {
		o.availability = &a
	}
}

// WithFunnelMonitor observes each funnel stage.
func WithFunnelMonitor(m funnel.Monitor) Option {
	return func(o *contextOptions) {
		o.monitor = m
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *contextOptions) {
		o.logger = logger
	}
}

// NewClassifierContext wires the scorer, funnel and escalation controller
// for tax. When a provider is given its services are probed once and the
// result is stored on the context.
func NewClassifierContext(ctx context.Context, tax *taxonomy.Taxonomy, opts ...Option) (*ClassifierContext, error) {
	if tax == nil {
		return nil, ErrTaxonomyRequired
	}
	o := &contextOptions{}
	for _, opt := range opts {
		opt(o)
	}
	if o.config == nil {
		o.config = config.Default()
	}
	if err := o.config.Validate(); err != nil {
		return nil, err
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	cfg := o.config

	cc := &ClassifierContext{
		Taxonomy: tax,
		config:   cfg,
		logger:   o.logger.With("component", "classifier"),
	}

	var avail ai.Availability
	switch {
	case o.availability != nil:
		avail = *o.availability
	case o.provider != nil:
		avail = o.provider.Available(ctx)
	}
	if o.provider == nil {
		avail = ai.Availability{}
	}
	cc.EmbeddingAvailable = avail.Embedding && cfg.Embedding.Enabled
	cc.GeneratorAvailable = avail.Generation && cfg.AI.Escalate

	scorerOpts := []scoring.Option{
		scoring.WithWeights(cfg.Weights),
		scoring.WithMaxFeatures(cfg.LexicalMaxFeatures),
		scoring.WithLogger(o.logger),
	}
	if cc.EmbeddingAvailable {
		embedder, err := embedcache.NewCachingEmbedder(o.provider.Embedder(), o.cache,
			embedcache.WithModel(cfg.AI.EmbeddingModel),
			embedcache.WithTextLimit(cfg.Embedding.TextLimit),
			embedcache.WithTimeout(cfg.Timeouts.Embedding),
			embedcache.WithRetryPolicy(cfg.Retry),
			embedcache.WithRateLimit(cfg.Embedding.RateLimit, cfg.Embedding.RateBurst),
			embedcache.WithLogger(o.logger),
		)
		if err != nil {
			return nil, err
		}
		cc.embedder = embedder
		scorerOpts = append(scorerOpts, scoring.WithEmbedder(embedder))
	}
	cc.scorer = scoring.NewScorer(scorerOpts...)

	funnelOpts := []funnel.Option{funnel.WithConfig(cfg.Funnel), funnel.WithLogger(o.logger)}
	if o.monitor != nil {
		funnelOpts = append(funnelOpts, funnel.WithMonitor(o.monitor))
	}
	f, err := funnel.New(tax, cc.scorer, funnelOpts...)
	if err != nil {
		return nil, err
	}
	cc.funnel = f

	var generator ai.Generator
	if cc.GeneratorAvailable {
		generator = o.provider.Generator()
	}
	cc.controller = escalation.NewController(generator,
		escalation.WithPolicy(cfg.Escalation),
		escalation.WithTimeout(cfg.Timeouts.Generation),
		escalation.WithPromptLimits(cfg.Prompt.TextLimit, cfg.Prompt.CandidateLimit),
		escalation.WithLogger(o.logger),
	)

	cc.logger.Info("classifier ready",
		"sectors", len(tax.Sectors()),
		"embedding", cc.EmbeddingAvailable,
		"generator", cc.GeneratorAvailable)
	return cc, nil
}

// Config returns the configuration the context was built with.
func (cc *ClassifierContext) Config() *config.Config {
	return cc.config
}

// Embedder returns the caching embedder, or nil when embeddings are unavailable.
func (cc *ClassifierContext) Embedder() *embedcache.CachingEmbedder {
	return cc.embedder
}

// Classify classifies one aggregated company description.
func Classify(ctx context.Context, cc *ClassifierContext, company, text string) (core.CompanyClassification, error) {
	if cc == nil {
		return core.CompanyClassification{}, ErrNilContext
	}
	return cc.classify(ctx, company, text, nil), nil
}

// ClassifyDocuments classifies text and calibrates the confidence against
// the individual source documents text was aggregated from.
func ClassifyDocuments(ctx context.Context, cc *ClassifierContext, company, text string, docs []calibration.Document) (core.CompanyClassification, error) {
	if cc == nil {
		return core.CompanyClassification{}, ErrNilContext
	}
	return cc.classify(ctx, company, text, docs), nil
}

func (cc *ClassifierContext) classify(ctx context.Context, company, text string, docs []calibration.Document) core.CompanyClassification {
	start := time.Now()
	if strings.TrimSpace(text) == "" || cc.Taxonomy.IsEmpty() {
		cc.logger.Debug("nothing to classify", "company", company, "empty_text", strings.TrimSpace(text) == "")
		metrics.ObserveClassification(start, true)
		return core.UnknownClassification(company)
	}

	res := cc.funnel.Run(ctx, text)
	sectors := res.Sectors
	industries := res.IndustryScores()
	subIndustries := res.SubIndustryScores()

	pick := cc.controller.Resolve(ctx, text, sectors, industries)
	sectorLabel, industryLabel := pick.Labels()

	acc := cc.config.Acceptance
	out := core.CompanyClassification{
		Company:     company,
		Sector:      levelResult(sectors, sectorLabel, acc.Sector),
		Industry:    levelResult(industries, industryLabel, acc.Industry),
		SubIndustry: levelResult(subIndustries, "", acc.SubIndustry),
	}
	if !out.SubIndustry.IsUnknown() {
		top := res.SubIndustries[0]
		code, desc := top.Code, top.CodeDescription
		out.Code = &code
		out.CodeDescription = &desc
	}

	var base float64
	if len(sectors) > 0 {
		base = sectors[0].Score
	}
	var confidence core.Confidence
	if len(docs) > 0 {
		density := calibration.EvidenceDensity(ctx, cc.scorer, subIndustries, docs,
			cc.config.Evidence.TopK, cc.config.Evidence.Floor)
		confidence = calibration.NewConfidence(base, density, true)
	} else {
		confidence = calibration.NewConfidence(base, 0, false)
	}

	prediction := &core.Prediction{
		SelectionMethod:  pick.Method(),
		Confidence:       confidence,
		TopSectors:       core.Ranked(sectors),
		TopIndustries:    core.Ranked(industries),
		TopSubIndustries: roundFunnel(res.SubIndustries),
	}
	switch p := pick.(type) {
	case escalation.LlmPick:
		prediction.Escalated = true
		prediction.LLMReasoning = p.Reasoning
	case escalation.FallbackPick:
		prediction.Escalated = true
		prediction.FallbackReason = p.Reason
	}
	out.Prediction = prediction

	unknown := out.Sector.IsUnknown() && out.Industry.IsUnknown() && out.SubIndustry.IsUnknown()
	metrics.ObserveClassification(start, unknown)
	cc.logger.Debug("classified",
		"company", company,
		"sector", out.Sector.Label,
		"industry", out.Industry.Label,
		"sub_industry", out.SubIndustry.Label,
		"method", prediction.SelectionMethod,
		"fell_back", res.FellBack,
		"elapsed", time.Since(start))
	return out
}

// levelResult builds the result for one level from ordered candidates.
// A non-empty choice replaces the top candidate as the label. A label
// scoring below threshold is reported as Unknown with its candidates kept.
func levelResult(candidates []core.ScoredCandidate, choice string, threshold float64) core.LevelResult {
	r := core.NewLevelResult(candidates)
	if r.IsUnknown() {
		return r
	}
	if choice != "" && choice != r.Label {
		for _, c := range r.Candidates {
			if c.Label == choice {
				r.Label = c.Label
				r.Score = c.Score
				break
			}
		}
	}
	if r.Score < threshold {
		r.Label = core.Unknown
	}
	return r
}

func roundFunnel(cs []core.FunnelCandidate) []core.FunnelCandidate {
	out := make([]core.FunnelCandidate, len(cs))
	for i, c := range cs {
		c.Score = core.Round4(c.Score)
		c.Specificity = core.Round4(c.Specificity)
		out[i] = c
	}
	return out
}
