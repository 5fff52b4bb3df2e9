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


package scoring

import "errors"

var (
	// ErrEmptyVocabulary is returned by the lexical signal when no text in the
	// batch contains a usable term.
	ErrEmptyVocabulary = errors.New("empty vocabulary")

	// ErrInvalidDomainTable is returned when a keyword table cannot be decoded.
	ErrInvalidDomainTable = errors.New("invalid domain keyword table")

	// ErrEmbeddingCount is returned when an embedder returns the wrong number of vectors.
	ErrEmbeddingCount = errors.New("embedding count mismatch")

	// ErrSignalPanic wraps a recovered panic inside a scoring signal.
	ErrSignalPanic = errors.New("scoring signal panicked")

	// ErrInvalidWeights is returned when signal weights are negative or do not sum to 1.
	ErrInvalidWeights = errors.New("signal weights must be non-negative and sum to 1")
)
