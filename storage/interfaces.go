package storage

import (
	"context"

	"github.com/poiesic/classit/core"
)

// VectorCache persists embeddings keyed by content hash.
//
// Entries are append-only: once a key is stored, writing it again is a no-op,
// so concurrent writers racing on the same text are harmless.
type VectorCache interface {
	// GetVector retrieves a single cached vector.
	// Returns ErrNotFound if the key is not cached.
	GetVector(ctx context.Context, key core.ID) (*core.CachedVector, error)

	// GetVectors retrieves multiple cached vectors.
	// Missing keys are simply absent from the returned map.
	GetVectors(ctx context.Context, keys ...core.ID) (map[core.ID]*core.CachedVector, error)

	// PutVectors stores vectors that are not already cached.
	// Returns the number of entries actually written.
	PutVectors(ctx context.Context, entries map[core.ID]*core.CachedVector) (int, error)

	// CountVectors returns the number of cached vectors.
	CountVectors(ctx context.Context) (int, error)

	// Close releases resources held by the cache.
	Close() error
}
