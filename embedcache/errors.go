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


package embedcache

import "errors"

var (
	// ErrEmbedderRequired indicates a nil remote embedder was passed.
	ErrEmbedderRequired = errors.New("remote embedder is required")

	// ErrInvalidMaxAttempts indicates a retry policy with no attempts.
	ErrInvalidMaxAttempts = errors.New("maxAttempts must be greater than 0")

	// ErrVectorCount indicates the remote returned the wrong number of vectors.
	ErrVectorCount = errors.New("remote returned wrong number of vectors")
)
