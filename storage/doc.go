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


// Package storage defines the persistence abstraction for classit.
//
// The only persisted state is the embedding cache: vectors keyed by a
// BLAKE2b hash of the embedding model and the embedded text. The taxonomy
// itself is loaded from files and held in memory.
//
// Public constructors return the VectorCache interface:
//
//	cache, err := badger.NewVectorCache("/path/to/cache")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer cache.Close()
//
// Tests use in-memory storage:
//
//	cache, err := badger.NewMemoryVectorCache()
//
// Implementations must be safe for concurrent use.
package storage
