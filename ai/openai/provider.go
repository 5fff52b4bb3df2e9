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


package openai

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/poiesic/classit/ai"
)

// Provider implements ai.AIProvider using OpenAI-compatible services.
// It manages embedder and generator instances.
type Provider struct {
	config       *ai.Config
	embedder     *Embedder
	generator    ai.Generator
	httpClient   *http.Client
	probeTimeout time.Duration
	logger       *slog.Logger
}

// ProviderOption configures a Provider.
type ProviderOption func(*Provider)

// WithGenerator replaces the OpenAI-compatible generator, for example with
// the Anthropic back end. A generator that implements ai.Prober is probed
// through its own method.
func WithGenerator(g ai.Generator) ProviderOption {
	return func(p *Provider) {
		p.generator = g
	}
}

// WithHTTPClient sets the client used for availability probes.
func WithHTTPClient(c *http.Client) ProviderOption {
	return func(p *Provider) {
		p.httpClient = c
	}
}

// WithProbeTimeout bounds each availability probe.
func WithProbeTimeout(d time.Duration) ProviderOption {
	return func(p *Provider) {
		p.probeTimeout = d
	}
}

// NewProvider creates a new AI provider with OpenAI-compatible services.
// The config is validated and normalized before use.
//
// Returns ai.AIProvider interface (not *Provider) to enforce abstraction
// and prevent coupling to OpenAI-specific implementation details.
func NewProvider(config *ai.Config, opts ...ProviderOption) (ai.AIProvider, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	embedder, err := newEmbedder(config)
	if err != nil {
		return nil, err
	}

	p := &Provider{
		config:       config,
		embedder:     embedder,
		httpClient:   http.DefaultClient,
		probeTimeout: DefaultProbeTimeout,
		logger:       slog.Default().With("component", "openai-provider"),
	}
	for _, opt := range opts {
		opt(p)
	}

	if p.generator == nil {
		if config.Backend != ai.BackendOpenAI {
			return nil, ai.ErrGeneratorRequired
		}
		generator, err := newGenerator(config)
		if err != nil {
			return nil, err
		}
		p.generator = generator
	}

	return p, nil
}

// Embedder returns the text embedding service.
func (p *Provider) Embedder() ai.Embedder {
	return p.embedder
}

// Generator returns the text generation service.
func (p *Provider) Generator() ai.Generator {
	return p.generator
}

// Available probes both services.
func (p *Provider) Available(ctx context.Context) ai.Availability {
	avail := ai.Availability{
		Embedding: probe(ctx, p.httpClient, p.config.EmbeddingHost, p.config.APIKey, p.probeTimeout),
	}
	if prober, ok := p.generator.(ai.Prober); ok {
		avail.Generation = prober.Probe(ctx)
	} else {
		avail.Generation = probe(ctx, p.httpClient, p.config.GeneratorHost, p.config.APIKey, p.probeTimeout)
	}
	p.logger.Debug("probed remote services", "embedding", avail.Embedding, "generation", avail.Generation)
	return avail
}

// Close releases resources held by the provider.
// Currently a no-op as the underlying clients don't require explicit cleanup.
func (p *Provider) Close() error {
	p.logger.Debug("closing OpenAI provider")
	return nil
}
