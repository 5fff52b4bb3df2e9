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


// Package config holds every tunable threshold of the classifier in one
// structure, loaded from YAML on top of the built-in defaults.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/poiesic/classit/ai"
	"github.com/poiesic/classit/calibration"
	"github.com/poiesic/classit/embedcache"
	"github.com/poiesic/classit/escalation"
	"github.com/poiesic/classit/funnel"
	"github.com/poiesic/classit/scoring"
)

// Config is the consolidated classifier configuration.
type Config struct {
	// Funnel holds the per-stage K, floors and specificity boosts.
	Funnel funnel.Config `yaml:"funnel"`

	// Weights are the blend weights of the four scoring signals.
	Weights scoring.Weights `yaml:"weights"`

	// LexicalMaxFeatures caps the TF-IDF vocabulary per scoring call.
	LexicalMaxFeatures int `yaml:"lexical_max_features" validate:"gte=1"`

	// Escalation holds the score and margin thresholds for re-ranking.
	Escalation escalation.Policy `yaml:"escalation"`

	// Acceptance is the minimum final score per level; below it the level
	// reports Unknown.
	Acceptance Acceptance `yaml:"acceptance"`

	// Evidence configures evidence density over source documents.
	Evidence Evidence `yaml:"evidence"`

	// Prompt limits what the re-ranker is shown.
	Prompt Prompt `yaml:"prompt"`

	// Embedding configures the remote embedding signal.
	Embedding Embedding `yaml:"embedding"`

	// Retry is the policy for remote embedding calls.
	Retry embedcache.RetryPolicy `yaml:"retry"`

	// Timeouts bound remote calls.
	Timeouts Timeouts `yaml:"timeouts"`

	// AI selects the remote model services.
	AI AI `yaml:"ai"`

	// CachePath is the vector cache directory. Empty keeps the cache in memory.
	CachePath string `yaml:"cache_path"`
}

// Acceptance holds the per-level acceptance thresholds.
type Acceptance struct {
	Sector      float64 `yaml:"sector" validate:"gte=0,lte=1"`
	Industry    float64 `yaml:"industry" validate:"gte=0,lte=1"`
	SubIndustry float64 `yaml:"sub_industry" validate:"gte=0,lte=1"`
}

// Evidence configures evidence density.
type Evidence struct {
	Floor float64 `yaml:"floor" validate:"gte=0,lte=1"`
	TopK  int     `yaml:"top_k" validate:"gte=1"`
}

// Prompt configures the re-rank prompt.
type Prompt struct {
	TextLimit      int `yaml:"text_limit" validate:"gte=1"`
	CandidateLimit int `yaml:"candidate_limit" validate:"gte=1"`
}

// Embedding configures the remote embedding signal.
type Embedding struct {
	Enabled   bool    `yaml:"enabled"`
	TextLimit int     `yaml:"text_limit" validate:"gte=1"`
	RateLimit float64 `yaml:"rate_limit" validate:"gte=0"`
	RateBurst int     `yaml:"rate_burst" validate:"gte=0"`
}

// Timeouts bound remote calls.
type Timeouts struct {
	Probe      time.Duration `yaml:"probe" validate:"gt=0"`
	Embedding  time.Duration `yaml:"embedding" validate:"gt=0"`
	Generation time.Duration `yaml:"generation" validate:"gt=0"`
}

// AI selects the remote model services.
type AI struct {
	Backend        string `yaml:"backend" validate:"oneof=openai anthropic"`
	EmbeddingHost  string `yaml:"embedding_host" validate:"required"`
	GeneratorHost  string `yaml:"generator_host"`
	EmbeddingModel string `yaml:"embedding_model" validate:"required"`
	GeneratorModel string `yaml:"generator_model" validate:"required"`
	// APIKeyEnv names the environment variable holding the API key.
	APIKeyEnv string `yaml:"api_key_env"`
	// Escalate enables the generative re-ranker.
	Escalate bool `yaml:"escalate"`
}

// Default returns the standard configuration.
func Default() *Config {
	aiDefaults := ai.DefaultConfig()
	return &Config{
		Funnel:             funnel.DefaultConfig(),
		Weights:            scoring.DefaultWeights(),
		LexicalMaxFeatures: scoring.DefaultMaxFeatures,
		Escalation:         escalation.DefaultPolicy(),
		Evidence: Evidence{
			Floor: calibration.DefaultEvidenceFloor,
			TopK:  calibration.DefaultEvidenceTopK,
		},
		Prompt: Prompt{
			TextLimit:      escalation.DefaultTextLimit,
			CandidateLimit: escalation.DefaultCandidateLimit,
		},
		Embedding: Embedding{
			Enabled:   true,
			TextLimit: embedcache.DefaultTextLimit,
		},
		Retry: embedcache.DefaultRetryPolicy(),
		Timeouts: Timeouts{
			Probe:      5 * time.Second,
			Embedding:  embedcache.DefaultTimeout,
			Generation: escalation.DefaultTimeout,
		},
		AI: AI{
			Backend:        aiDefaults.Backend,
			EmbeddingHost:  aiDefaults.EmbeddingHost,
			GeneratorHost:  aiDefaults.GeneratorHost,
			EmbeddingModel: aiDefaults.EmbeddingModel,
			GeneratorModel: aiDefaults.GeneratorModel,
			APIKeyEnv:      "CLASSIT_API_KEY",
			Escalate:       true,
		},
	}
}

// Load reads a YAML file and overlays it on the defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	return Parse(data)
}

// Parse overlays YAML data on the defaults and validates the result.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks field ranges, the funnel limits and that the signal
// weights sum to 1.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if err := c.Funnel.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if err := c.Weights.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

// AIConfig builds the ai.Config for the configured services. The API key is
// read from the environment variable named by APIKeyEnv.
func (c *Config) AIConfig() *ai.Config {
	opts := []ai.ConfigOption{
		ai.WithBackend(c.AI.Backend),
		ai.WithEmbeddingHost(c.AI.EmbeddingHost),
		ai.WithGeneratorHost(c.AI.GeneratorHost),
		ai.WithEmbeddingModel(c.AI.EmbeddingModel),
		ai.WithGeneratorModel(c.AI.GeneratorModel),
	}
	if c.AI.APIKeyEnv != "" {
		opts = append(opts, ai.WithAPIKey(os.Getenv(c.AI.APIKeyEnv)))
	}
	return ai.NewConfig(opts...)
}
