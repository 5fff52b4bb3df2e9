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


package badger

import (
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/classit/core"
	"github.com/poiesic/classit/storage"
)

// VectorRepository implements storage.VectorCache using BadgerDB.
type VectorRepository struct {
	backend   *Backend
	ownsStore bool
}

var _ storage.VectorCache = (*VectorRepository)(nil)

// NewVectorRepository creates a VectorRepository over an existing backend.
// The caller remains responsible for closing the backend.
func NewVectorRepository(backend *Backend) (*VectorRepository, error) {
	if backend == nil {
		return nil, errors.New("backend cannot be nil")
	}
	return &VectorRepository{backend: backend}, nil
}

// NewVectorCache opens a file-backed vector cache at path.
// Closing the returned cache closes the underlying database.
func NewVectorCache(path string) (storage.VectorCache, error) {
	backend, err := OpenBackend(path, false, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open vector cache: %w", err)
	}
	return &VectorRepository{backend: backend, ownsStore: true}, nil
}

// Close releases resources. The backend is closed only when this repository opened it.
func (r *VectorRepository) Close() error {
	if r.ownsStore && !r.backend.IsClosed() {
		return r.backend.Close()
	}
	return nil
}

// GetVector retrieves a single cached vector.
func (r *VectorRepository) GetVector(ctx context.Context, key core.ID) (*core.CachedVector, error) {
	if r.backend.IsClosed() {
		return nil, storage.ErrStorageClosed
	}
	var result *core.CachedVector
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		v, err := readVector(tx, makeVectorKey(key))
		if err != nil {
			return err
		}
		if v == nil {
			return storage.ErrNotFound
		}
		result = v
		return nil
	}, false)
	return result, err
}

// GetVectors retrieves multiple cached vectors. Missing keys are skipped.
func (r *VectorRepository) GetVectors(ctx context.Context, keys ...core.ID) (map[core.ID]*core.CachedVector, error) {
	if r.backend.IsClosed() {
		return nil, storage.ErrStorageClosed
	}
	results := make(map[core.ID]*core.CachedVector, len(keys))
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		for _, key := range keys {
			if err := ctx.Err(); err != nil {
				return err
			}
			v, err := readVector(tx, makeVectorKey(key))
			if err != nil {
				return err
			}
			if v != nil {
				results[key] = v
			}
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}
	return results, nil
}

// PutVectors stores vectors that are not already cached.
func (r *VectorRepository) PutVectors(ctx context.Context, entries map[core.ID]*core.CachedVector) (int, error) {
	if r.backend.IsClosed() {
		return 0, storage.ErrStorageClosed
	}
	for _, v := range entries {
		if err := core.ValidateCachedVector(v); err != nil {
			return 0, err
		}
	}

	written := 0
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		for id, v := range entries {
			key := makeVectorKey(id)
			_, err := tx.Get(key)
			if err == nil {
				continue
			}
			if !errors.Is(err, badger.ErrKeyNotFound) {
				return err
			}
			if err := tx.Set(key, storage.MarshalCachedVector(v)); err != nil {
				return err
			}
			written++
		}
		return tx.Commit()
	}, true)
	if err != nil {
		return 0, err
	}
	return written, nil
}

// CountVectors returns the number of cached vectors.
func (r *VectorRepository) CountVectors(ctx context.Context) (int, error) {
	if r.backend.IsClosed() {
		return 0, storage.ErrStorageClosed
	}
	return r.backend.CountPrefix([]byte(vectorRecordPrefix))
}

// readVector reads a cached vector from a transaction.
// Returns nil, nil if the key is absent.
func readVector(tx *badger.Txn, key []byte) (*core.CachedVector, error) {
	item, err := tx.Get(key)
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, nil
		}
		return nil, err
	}
	var v *core.CachedVector
	err = item.Value(func(val []byte) error {
		var err error
		v, err = storage.UnmarshalCachedVector(val)
		return err
	})
	return v, err
}
