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


package classit

import (
	"context"
	"log/slog"

	"github.com/poiesic/classit/ai"
	"github.com/poiesic/classit/ai/anthropic"
	"github.com/poiesic/classit/ai/openai"
	"github.com/poiesic/classit/config"
	"github.com/poiesic/classit/storage"
	"github.com/poiesic/classit/storage/badger"
	"github.com/poiesic/classit/taxonomy"
)

// Engine owns the resources behind a ClassifierContext: the vector cache
// and the remote model provider.
type Engine struct {
	context  *ClassifierContext
	cache    storage.VectorCache
	provider ai.AIProvider
	logger   *slog.Logger
}

// EngineOption configures an Engine.
type EngineOption func(*engineOptions)

type engineOptions struct {
	provider ai.AIProvider
	logger   *slog.Logger
}

// WithEngineProvider uses p instead of building a provider from the config.
// The engine closes p on Close.
func WithEngineProvider(p ai.AIProvider) EngineOption {
	return func(o *engineOptions) {
		o.provider = p
	}
}

// WithEngineLogger sets the logger.
func WithEngineLogger(logger *slog.Logger) EngineOption {
	return func(o *engineOptions) {
		o.logger = logger
	}
}

// OpenEngine opens the vector cache at cfg.CachePath (in memory when empty),
// builds the configured provider and probes it.
func OpenEngine(ctx context.Context, cfg *config.Config, tax *taxonomy.Taxonomy, opts ...EngineOption) (*Engine, error) {
	options := &engineOptions{}
	for _, opt := range opts {
		opt(options)
	}
	if options.logger == nil {
		options.logger = slog.Default()
	}
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	cache, err := openCache(cfg.CachePath)
	if err != nil {
		return nil, err
	}

	provider := options.provider
	if provider == nil {
		provider, err = newProvider(cfg)
		if err != nil {
			cache.Close()
			return nil, err
		}
	}

	cc, err := NewClassifierContext(ctx, tax,
		WithConfig(cfg),
		WithProvider(provider),
		WithVectorCache(cache),
		WithLogger(options.logger),
	)
	if err != nil {
		provider.Close()
		cache.Close()
		return nil, err
	}

	return &Engine{
		context:  cc,
		cache:    cache,
		provider: provider,
		logger:   options.logger.With("component", "engine"),
	}, nil
}

func openCache(path string) (storage.VectorCache, error) {
	if path == "" {
		return badger.NewMemoryVectorCache()
	}
	return badger.NewVectorCache(path)
}

func newProvider(cfg *config.Config) (ai.AIProvider, error) {
	aiConfig := cfg.AIConfig()
	opts := []openai.ProviderOption{openai.WithProbeTimeout(cfg.Timeouts.Probe)}
	if aiConfig.Backend == ai.BackendAnthropic {
		generator, err := anthropic.NewGenerator(aiConfig)
		if err != nil {
			return nil, err
		}
		opts = append(opts, openai.WithGenerator(generator))
	}
	return openai.NewProvider(aiConfig, opts...)
}

// Context returns the classifier context.
func (e *Engine) Context() *ClassifierContext {
	return e.context
}

// VectorCache returns the embedding vector cache.
func (e *Engine) VectorCache() storage.VectorCache {
	return e.cache
}

// Close releases the provider and the vector cache.
func (e *Engine) Close() error {
	if err := e.provider.Close(); err != nil {
		e.logger.Error("error closing AI provider", "err", err)
	}
	if err := e.cache.Close(); err != nil {
		e.logger.Error("error closing vector cache", "err", err)
		return err
	}
	return nil
}
