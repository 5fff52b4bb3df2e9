// Package mock provides test double implementations of AI service interfaces.
//
// This package contains mock implementations of ai.Embedder, ai.Generator
// and ai.AIProvider for use in unit tests. The mocks allow tests to run
// without external AI service dependencies.
//
// # Usage in Tests
//
//	provider := mock.NewMockProvider()
//	vec, err := provider.Embedder().EmbedText(ctx, "test")
//
//	gen := mock.NewMockGenerator()
//	gen.GenerateFunc = func(ctx context.Context, prompt string) (string, error) {
//	    return "SECTOR: Retail\nINDUSTRY: E-commerce", nil
//	}
//	count := gen.CallCount()
//
// # Default Behavior
//
//   - MockEmbedder: hashes words into a fixed number of buckets, so texts
//     that share words get similar vectors
//   - MockGenerator: answers "Unknown" for both lines
//   - MockProvider: aggregates both and reports them available
package mock
