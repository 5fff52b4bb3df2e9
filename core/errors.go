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


package core

import "errors"

// Domain validation errors
var (
	// ErrInvalidCandidate indicates a ScoredCandidate failed validation.
	ErrInvalidCandidate = errors.New("invalid candidate")

	// ErrInvalidLevelResult indicates a LevelResult failed validation.
	ErrInvalidLevelResult = errors.New("invalid level result")

	// ErrInvalidCachedVector indicates a CachedVector failed validation.
	ErrInvalidCachedVector = errors.New("invalid cached vector")

	// ErrEmptyLabel indicates a label is empty.
	ErrEmptyLabel = errors.New("label cannot be empty")

	// ErrScoreOutOfRange indicates a score outside [0, 1].
	ErrScoreOutOfRange = errors.New("score must be within [0, 1]")

	// ErrUnorderedCandidates indicates candidates not in descending score order.
	ErrUnorderedCandidates = errors.New("candidates must be ordered by descending score")

	// ErrEmptyVector indicates a vector with no components.
	ErrEmptyVector = errors.New("vector cannot be empty")

	// ErrEmptyModel indicates the embedding model name is empty.
	ErrEmptyModel = errors.New("model cannot be empty")
)
