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


// Package funnel implements the hierarchical top-K search over the taxonomy.
//
// Each stage keeps the K best candidates instead of a single pick, and the
// next stage scores the children of every survivor against the full query.
// A child that recurs under several parents keeps its best score and the
// parent that produced it. A stage with no survivors above its floor falls
// back to scoring every label of that level.
package funnel

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/poiesic/classit/calibration"
	"github.com/poiesic/classit/core"
	"github.com/poiesic/classit/taxonomy"
)

// Scorer scores candidate labels against a query.
type Scorer interface {
	Score(ctx context.Context, query string, candidates []string, labelText map[string]string, level core.Level) map[string]float64
}

// Config holds the per-stage survivor limits, score floors and specificity boosts.
type Config struct {
	SectorK          int                `yaml:"sector_k" validate:"gte=1"`
	IndustryK        int                `yaml:"industry_k" validate:"gte=1"`
	SubIndustryK     int                `yaml:"sub_industry_k" validate:"gte=1"`
	SectorFloor      float64            `yaml:"sector_floor" validate:"gte=0,lte=1"`
	IndustryFloor    float64            `yaml:"industry_floor" validate:"gte=0,lte=1"`
	SubIndustryFloor float64            `yaml:"sub_industry_floor" validate:"gte=0,lte=1"`
	Boosts           calibration.Boosts `yaml:"boosts"`
}

// DefaultConfig returns K of 5/5/10, floors of 0.01 and the default boosts.
func DefaultConfig() Config {
	return Config{
		SectorK:          5,
		IndustryK:        5,
		SubIndustryK:     10,
		SectorFloor:      0.01,
		IndustryFloor:    0.01,
		SubIndustryFloor: 0.01,
		Boosts:           calibration.DefaultBoosts(),
	}
}

// Validate checks the limits and floors.
func (c Config) Validate() error {
	if c.SectorK < 1 || c.IndustryK < 1 || c.SubIndustryK < 1 {
		return fmt.Errorf("%w: K must be at least 1", ErrInvalidConfig)
	}
	for _, f := range []float64{c.SectorFloor, c.IndustryFloor, c.SubIndustryFloor} {
		if f < 0 || f > 1 {
			return fmt.Errorf("%w: floor %.4f outside [0, 1]", ErrInvalidConfig, f)
		}
	}
	return nil
}

func (c Config) k(level core.Level) int {
	switch level {
	case core.LevelSector:
		return c.SectorK
	case core.LevelIndustry:
		return c.IndustryK
	default:
		return c.SubIndustryK
	}
}

func (c Config) floor(level core.Level) float64 {
	switch level {
	case core.LevelSector:
		return c.SectorFloor
	case core.LevelIndustry:
		return c.IndustryFloor
	default:
		return c.SubIndustryFloor
	}
}

// IndustryCandidate is an industry survivor and the sector it was scored under.
type IndustryCandidate struct {
	core.ScoredCandidate
	Sector      string
	Specificity float64
}

// Result holds the survivors of every stage, each ordered by descending
// adjusted score.
type Result struct {
	Sectors       []core.ScoredCandidate
	Industries    []IndustryCandidate
	SubIndustries []core.FunnelCandidate
	// FellBack lists the levels that used unconstrained scoring.
	FellBack []core.Level
}

// IndustryScores returns the industry survivors as plain candidates.
func (r *Result) IndustryScores() []core.ScoredCandidate {
	out := make([]core.ScoredCandidate, len(r.Industries))
	for i, c := range r.Industries {
		out[i] = c.ScoredCandidate
	}
	return out
}

// SubIndustryScores returns the sub-industry survivors as plain candidates.
func (r *Result) SubIndustryScores() []core.ScoredCandidate {
	out := make([]core.ScoredCandidate, len(r.SubIndustries))
	for i, c := range r.SubIndustries {
		out[i] = c.ScoredCandidate
	}
	return out
}

// Funnel runs the three-stage search. It is safe for concurrent use.
type Funnel struct {
	tax     *taxonomy.Taxonomy
	scorer  Scorer
	config  Config
	monitor Monitor
	logger  *slog.Logger
}

// Option configures a Funnel.
type Option func(*Funnel)

// WithConfig replaces the default configuration.
func WithConfig(c Config) Option {
	return func(f *Funnel) {
		f.config = c
	}
}

// WithMonitor installs stage hooks.
func WithMonitor(m Monitor) Option {
	return func(f *Funnel) {
		f.monitor = m
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(f *Funnel) {
		f.logger = logger
	}
}

// New creates a Funnel over tax using scorer.
func New(tax *taxonomy.Taxonomy, scorer Scorer, opts ...Option) (*Funnel, error) {
	if tax == nil {
		return nil, ErrTaxonomyRequired
	}
	if scorer == nil {
		return nil, ErrScorerRequired
	}
	f := &Funnel{
		tax:     tax,
		scorer:  scorer,
		config:  DefaultConfig(),
		monitor: &noopMonitor{},
	}
	for _, opt := range opts {
		opt(f)
	}
	if err := f.config.Validate(); err != nil {
		return nil, err
	}
	if f.monitor == nil {
		f.monitor = &noopMonitor{}
	}
	if f.logger == nil {
		f.logger = slog.Default()
	}
	f.logger = f.logger.With("component", "funnel")
	return f, nil
}

// entry is a scored label with the parents it was scored under.
type entry struct {
	label       string
	score       float64
	sector      string
	industry    string
	specificity float64
}

// group is one scoring call: the children of a single parent.
type group struct {
	sector   string
	industry string
	labels   []string
	texts    map[string]string
}

// Run executes the sector, industry and sub-industry stages for query.
func (f *Funnel) Run(ctx context.Context, query string) *Result {
	f.monitor.Start(query)
	result := &Result{
		Sectors:       []core.ScoredCandidate{},
		Industries:    []IndustryCandidate{},
		SubIndustries: []core.FunnelCandidate{},
	}

	sectors := f.stage(ctx, query, core.LevelSector, []group{{
		labels: f.tax.Sectors(),
		texts:  f.tax.SectorTexts(),
	}}, result)
	for _, e := range sectors {
		result.Sectors = append(result.Sectors, core.ScoredCandidate{Label: e.label, Score: e.score})
	}
	if len(sectors) == 0 {
		f.monitor.Finish(result)
		return result
	}

	groups := make([]group, 0, len(sectors))
	for _, s := range sectors {
		groups = append(groups, group{
			sector: s.label,
			labels: f.tax.IndustriesOf(s.label),
			texts:  f.tax.IndustryTextsOf(s.label),
		})
	}
	industries := f.stage(ctx, query, core.LevelIndustry, groups, result)
	for _, e := range industries {
		result.Industries = append(result.Industries, IndustryCandidate{
			ScoredCandidate: core.ScoredCandidate{Label: e.label, Score: e.score},
			Sector:          e.sector,
			Specificity:     e.specificity,
		})
	}

	groups = groups[:0]
	for _, ind := range industries {
		groups = append(groups, group{
			sector:   ind.sector,
			industry: ind.label,
			labels:   f.tax.SubIndustriesOf(ind.sector, ind.label),
			texts:    f.tax.SubIndustryTextsOf(ind.sector, ind.label),
		})
	}
	subs := f.stage(ctx, query, core.LevelSubIndustry, groups, result)
	for _, e := range subs {
		code, _ := f.tax.CodeOf(e.label)
		result.SubIndustries = append(result.SubIndustries, core.FunnelCandidate{
			ScoredCandidate: core.ScoredCandidate{Label: e.label, Score: e.score},
			Industry:        e.industry,
			Sector:          e.sector,
			Code:            code.Code,
			CodeDescription: code.Description,
			Specificity:     e.specificity,
		})
	}

	f.monitor.Finish(result)
	return result
}

// stage scores every group, applies the floor, merges duplicate labels,
// re-ranks by specificity and keeps the top K.
func (f *Funnel) stage(ctx context.Context, query string, level core.Level, groups []group, result *Result) []entry {
	floor := f.config.floor(level)

	var all []entry
	for _, g := range groups {
		if len(g.labels) == 0 {
			continue
		}
		scores := f.scorer.Score(ctx, query, g.labels, g.texts, level)
		for _, label := range g.labels {
			all = append(all, entry{label: label, score: scores[label], sector: g.sector, industry: g.industry})
		}
	}

	kept := merge(all, floor)
	fellBack := false
	if len(kept) == 0 {
		fellBack = true
		result.FellBack = append(result.FellBack, level)
		if level == core.LevelSector {
			kept = merge(all, -1)
		} else {
			kept = f.unconstrained(ctx, query, level)
		}
		f.logger.Debug("stage empty above floor, scoring unconstrained",
			"level", level.String(),
			"floor", floor,
			"candidates", len(kept))
	}

	survivors := f.rerank(query, level, kept)
	f.logger.Debug("stage complete",
		"level", level.String(),
		"scored", len(all),
		"survivors", len(survivors))

	scored := make([]core.ScoredCandidate, len(survivors))
	for i, e := range survivors {
		scored[i] = core.ScoredCandidate{Label: e.label, Score: e.score}
	}
	f.monitor.AfterStage(level, scored, fellBack)
	return survivors
}

// unconstrained scores every label of level, ignoring parents and floor.
func (f *Funnel) unconstrained(ctx context.Context, query string, level core.Level) []entry {
	labels := f.tax.Labels(level)
	if len(labels) == 0 {
		return nil
	}
	scores := f.scorer.Score(ctx, query, labels, f.tax.LabelTexts(level), level)
	out := make([]entry, 0, len(labels))
	for _, label := range labels {
		e := entry{label: label, score: scores[label]}
		switch level {
		case core.LevelIndustry:
			e.sector, _ = f.tax.SectorOf(label)
		case core.LevelSubIndustry:
			if pair, ok := f.tax.Lineage(label); ok {
				e.sector, e.industry = pair.Sector, pair.Industry
			}
		}
		out = append(out, e)
	}
	return out
}

// rerank applies the level's specificity boost and truncates to K.
func (f *Funnel) rerank(query string, level core.Level, entries []entry) []entry {
	byLabel := make(map[string]entry, len(entries))
	candidates := make([]core.ScoredCandidate, len(entries))
	for i, e := range entries {
		byLabel[e.label] = e
		candidates[i] = core.ScoredCandidate{Label: e.label, Score: e.score}
	}
	reranked := calibration.Rerank(query, candidates, f.config.Boosts.For(level))
	if k := f.config.k(level); len(reranked) > k {
		reranked = reranked[:k]
	}
	out := make([]entry, len(reranked))
	for i, r := range reranked {
		e := byLabel[r.Label]
		e.score = r.Score
		e.specificity = r.Specificity
		out[i] = e
	}
	return out
}

// merge drops entries below floor and collapses duplicate labels to their
// best-scoring entry, preserving first-seen order.
func merge(entries []entry, floor float64) []entry {
	index := make(map[string]int, len(entries))
	var out []entry
	for _, e := range entries {
		if e.score < floor {
			continue
		}
		if i, ok := index[e.label]; ok {
			if e.score > out[i].score {
				out[i] = e
			}
			continue
		}
		index[e.label] = len(out)
		out = append(out, e)
	}
	return out
}
