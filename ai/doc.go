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


// Package ai provides abstractions for the remote model services classit uses.
//
// Two capabilities are modelled:
//
//   - Embedder: text to vector, used by the embedding similarity signal
//   - Generator: prompt to free text, used by the escalation re-ranker
//
// AIProvider bundles both together with an availability probe, so the
// caller can find out once, up front, which capabilities are reachable.
//
// # Implementation Packages
//
//   - ai/openai: OpenAI-compatible servers (Ollama, vLLM, LocalAI, OpenAI) via langchaingo
//   - ai/anthropic: a Generator backed by the Anthropic Messages API
//   - ai/mock: test doubles for unit testing without external dependencies
//
// Public constructors return interfaces (openai.NewProvider returns
// ai.AIProvider). Mock constructors return concrete types so tests can
// inject behavior and inspect call counts.
//
// # Usage Example
//
//	config := ai.NewConfig(ai.WithHost("http://localhost:11434"))
//	provider, err := openai.NewProvider(config)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer provider.Close()
//
//	avail := provider.Available(ctx)
//	if avail.Embedding {
//	    vec, err := provider.Embedder().EmbedText(ctx, "cloud hosting")
//	}
package ai
