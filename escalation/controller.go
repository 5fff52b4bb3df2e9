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


// Package escalation decides when an uncertain sector/industry ranking is
// handed to a generative re-ranker, and validates what comes back.
//
// The model only ever sees the already narrowed candidates and must answer
// with labels taken verbatim from them. Any failure (no generator, timeout,
// malformed or out-of-list answer) keeps the deterministic top pick.
// Sub-industry selection is never escalated.
package escalation

import (
	"context"
	"log/slog"
	"time"

	"github.com/poiesic/classit/ai"
	"github.com/poiesic/classit/core"
	"github.com/poiesic/classit/metrics"
)

// DefaultTimeout bounds one re-rank generation call.
const DefaultTimeout = 60 * time.Second

// Metric outcomes.
const (
	outcomeSkipped  = "skipped"
	outcomeReranked = "llm_rerank"
	outcomeFallback = "fallback"
)

// Pick is the sector and industry chosen for a classification.
// It is one of DeterministicPick, LlmPick or FallbackPick.
type Pick interface {
	Labels() (sector, industry string)
	Method() core.SelectionMethod
	isPick()
}

// DeterministicPick is the funnel's top pick, used when no escalation was needed.
type DeterministicPick struct {
	Sector   string
	Industry string
}

// LlmPick is a validated choice made by the re-ranker.
type LlmPick struct {
	Sector    string
	Industry  string
	Reasoning string
}

// FallbackPick is the funnel's top pick after an escalation that failed.
type FallbackPick struct {
	Sector   string
	Industry string
	Reason   string
}

func (p DeterministicPick) Labels() (string, string)     { return p.Sector, p.Industry }
func (p DeterministicPick) Method() core.SelectionMethod { return core.SelectionDeterministic }
func (DeterministicPick) isPick()                        {}

func (p LlmPick) Labels() (string, string)     { return p.Sector, p.Industry }
func (p LlmPick) Method() core.SelectionMethod { return core.SelectionLLMRerank }
func (LlmPick) isPick()                        {}

func (p FallbackPick) Labels() (string, string)     { return p.Sector, p.Industry }
func (p FallbackPick) Method() core.SelectionMethod { return core.SelectionDeterministic }
func (FallbackPick) isPick()                        {}

// Controller runs the escalation policy. It is safe for concurrent use.
type Controller struct {
	generator      ai.Generator
	policy         Policy
	timeout        time.Duration
	textLimit      int
	candidateLimit int
	genOpts        []ai.GenerateOption
	logger         *slog.Logger
}

// Option configures a Controller.
type Option func(*Controller)

// WithPolicy replaces the default thresholds.
func WithPolicy(p Policy) Option {
	return func(c *Controller) {
		c.policy = p
	}
}

// WithTimeout bounds each generation call.
func WithTimeout(d time.Duration) Option {
	return func(c *Controller) {
		c.timeout = d
	}
}

// WithPromptLimits sets the text rune limit and candidates offered per level.
func WithPromptLimits(textLimit, candidateLimit int) Option {
	return func(c *Controller) {
		c.textLimit = textLimit
		c.candidateLimit = candidateLimit
	}
}

// WithGenerateOptions sets the sampling options passed to the generator.
func WithGenerateOptions(opts ...ai.GenerateOption) Option {
	return func(c *Controller) {
		c.genOpts = opts
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) {
		c.logger = logger
	}
}

// NewController creates a Controller. A nil generator means escalation is
// unavailable: uncertain cases fall back to the deterministic pick.
func NewController(generator ai.Generator, opts ...Option) *Controller {
	c := &Controller{
		generator:      generator,
		policy:         DefaultPolicy(),
		timeout:        DefaultTimeout,
		textLimit:      DefaultTextLimit,
		candidateLimit: DefaultCandidateLimit,
		genOpts:        []ai.GenerateOption{ai.WithTemperature(0.1), ai.WithMaxTokens(200)},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	c.logger = c.logger.With("component", "escalation")
	return c
}

// Policy returns the controller's thresholds.
func (c *Controller) Policy() Policy {
	return c.policy
}

// Resolve chooses the final sector and industry from ordered candidates.
func (c *Controller) Resolve(ctx context.Context, text string, sectors, industries []core.ScoredCandidate) Pick {
	deterministic := DeterministicPick{Sector: topLabel(sectors), Industry: topLabel(industries)}
	if len(sectors) == 0 || len(industries) == 0 || !c.policy.Decide(sectors) {
		metrics.RecordEscalation(outcomeSkipped)
		return deterministic
	}

	fallback := func(reason string, err error) Pick {
		c.logger.Info("re-rank fell back to deterministic pick", "reason", reason, "error", err)
		metrics.RecordEscalation(outcomeFallback)
		return FallbackPick{Sector: deterministic.Sector, Industry: deterministic.Industry, Reason: reason}
	}

	if c.generator == nil {
		return fallback("generator unavailable", nil)
	}

	offeredSectors := head(sectors, c.candidateLimit)
	offeredIndustries := head(industries, c.candidateLimit)
	prompt := BuildPrompt(text, offeredSectors, offeredIndustries, c.textLimit, c.candidateLimit)

	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	start := time.Now()
	raw, err := c.generator.Generate(callCtx, prompt, c.genOpts...)
	metrics.ObserveRemoteCall("generation", start, err)
	if err != nil {
		return fallback("generation failed", err)
	}
	c.logger.Debug("re-rank answer", "answer", raw)

	answer, err := ParseAnswer(raw)
	if err != nil {
		return fallback("unparseable answer", err)
	}
	if err := answer.Validate(offeredSectors, offeredIndustries); err != nil {
		return fallback("answer rejected", err)
	}

	metrics.RecordEscalation(outcomeReranked)
	return LlmPick{Sector: answer.Sector, Industry: answer.Industry, Reasoning: answer.Reasoning}
}

func topLabel(cs []core.ScoredCandidate) string {
	if len(cs) == 0 {
		return ""
	}
	return cs[0].Label
}
