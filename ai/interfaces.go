package ai

import "context"

// Embedder generates vector embeddings from text for semantic similarity scoring.
// Implementations must be thread-safe for concurrent use.
type Embedder interface {
	// EmbedText generates a vector embedding for a single text string.
	// Returns an error if the embedding generation fails.
	EmbedText(ctx context.Context, text string) ([]float32, error)

	// EmbedTexts generates vector embeddings for multiple text strings in a batch.
	// The returned slice contains embeddings in the same order as the input texts.
	// Returns an error if any embedding generation fails.
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// Generator produces free text from a prompt.
// Implementations must be thread-safe for concurrent use.
type Generator interface {
	// Generate sends a single prompt and returns the model's text answer.
	Generate(ctx context.Context, prompt string, opts ...GenerateOption) (string, error)
}

// GenerateOptions holds sampling parameters for a Generate call.
type GenerateOptions struct {
	Temperature float64
	MaxTokens   int
}

// GenerateOption is a functional option for a Generate call.
type GenerateOption func(*GenerateOptions)

// WithTemperature sets the sampling temperature.
func WithTemperature(t float64) GenerateOption {
	return func(o *GenerateOptions) {
		o.Temperature = t
	}
}

// WithMaxTokens sets the maximum number of tokens to generate.
func WithMaxTokens(n int) GenerateOption {
	return func(o *GenerateOptions) {
		o.MaxTokens = n
	}
}

// DefaultGenerateOptions are the low-temperature settings used for constrained answers.
func DefaultGenerateOptions() GenerateOptions {
	return GenerateOptions{Temperature: 0.1, MaxTokens: 200}
}

// ApplyGenerateOptions returns the defaults with opts applied.
func ApplyGenerateOptions(opts ...GenerateOption) GenerateOptions {
	o := DefaultGenerateOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Availability reports which remote capabilities answered a probe.
type Availability struct {
	Embedding  bool
	Generation bool
}

// AIProvider aggregates AI services for convenient initialization and lifecycle management.
type AIProvider interface {
	// Embedder returns the text embedding service.
	Embedder() Embedder

	// Generator returns the text generation service.
	Generator() Generator

	// Available probes the remote services with a short timeout.
	// It never returns an error; an unreachable service is reported as unavailable.
	Available(ctx context.Context) Availability

	// Close releases resources held by the provider and its services.
	Close() error
}

// Prober is implemented by services that can check their own reachability.
type Prober interface {
	// Probe reports whether the service currently answers requests.
	Probe(ctx context.Context) bool
}
