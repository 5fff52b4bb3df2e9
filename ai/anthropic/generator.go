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


// Package anthropic provides an ai.Generator backed by the Anthropic Messages API.
//
// Anthropic does not serve embeddings, so this back end is paired with an
// OpenAI-compatible embedder:
//
//	gen, err := anthropic.NewGenerator(config)
//	provider, err := openai.NewProvider(config, openai.WithGenerator(gen))
package anthropic

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/poiesic/classit/ai"
)

// Generator implements ai.Generator using the Anthropic SDK.
type Generator struct {
	client sdk.Client
	model  string
	apiKey string
	logger *slog.Logger
}

var (
	_ ai.Generator = (*Generator)(nil)
	_ ai.Prober    = (*Generator)(nil)
)

// Option configures a Generator.
type Option func(*generatorOptions)

type generatorOptions struct {
	baseURL string
}

// WithBaseURL points the client at a different API endpoint.
func WithBaseURL(url string) Option {
	return func(o *generatorOptions) {
		o.baseURL = url
	}
}

// NewGenerator creates a generator for config.GeneratorModel authenticated with config.APIKey.
func NewGenerator(config *ai.Config, opts ...Option) (*Generator, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("anthropic generator: APIKey is required")
	}
	if config.GeneratorModel == "" {
		return nil, fmt.Errorf("anthropic generator: GeneratorModel is required")
	}

	var o generatorOptions
	for _, opt := range opts {
		opt(&o)
	}

	clientOpts := []option.RequestOption{option.WithAPIKey(config.APIKey)}
	if o.baseURL != "" {
		clientOpts = append(clientOpts, option.WithBaseURL(o.baseURL))
	}

	return &Generator{
		client: sdk.NewClient(clientOpts...),
		model:  config.GeneratorModel,
		apiKey: config.APIKey,
		logger: slog.Default().With("component", "anthropic-generator"),
	}, nil
}

// Generate sends prompt as a single user message and joins the text blocks of the reply.
func (g *Generator) Generate(ctx context.Context, prompt string, opts ...ai.GenerateOption) (string, error) {
	o := ai.ApplyGenerateOptions(opts...)
	g.logger.Debug("creating message", "model", g.model, "prompt_length", len(prompt))

	msg, err := g.client.Messages.New(ctx, sdk.MessageNewParams{
		Model:       sdk.Model(g.model),
		MaxTokens:   int64(o.MaxTokens),
		Messages:    []sdk.MessageParam{sdk.NewUserMessage(sdk.NewTextBlock(prompt))},
		Temperature: sdk.Float(o.Temperature),
	})
	if err != nil {
		return "", fmt.Errorf("anthropic: create message: %w", err)
	}

	var sb strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	answer := strings.TrimSpace(sb.String())
	if answer == "" {
		return "", ai.ErrEmptyResponse
	}
	return answer, nil
}

// Probe reports whether the generator is configured to make calls.
// It does not spend a request; a bad key surfaces as a Generate error,
// which the caller already treats as a fallback.
func (g *Generator) Probe(ctx context.Context) bool {
	return g.apiKey != ""
}
