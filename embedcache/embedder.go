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


// Package embedcache wraps a remote embedder with a content-hash vector
// cache. Identical in-flight requests are collapsed, remote calls are rate
// limited and retried with backoff, and every returned vector is unit length.
package embedcache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"github.com/poiesic/classit/ai"
	"github.com/poiesic/classit/core"
	"github.com/poiesic/classit/metrics"
	"github.com/poiesic/classit/storage"
)

const (
	// DefaultTextLimit is the number of runes kept from a text before embedding.
	DefaultTextLimit = 2000

	// DefaultTimeout bounds one remote embedding call, retries included.
	DefaultTimeout = 10 * time.Second
)

// CachingEmbedder implements ai.Embedder on top of a remote embedder and a
// storage.VectorCache. It is safe for concurrent use.
type CachingEmbedder struct {
	remote    ai.Embedder
	cache     storage.VectorCache
	model     string
	textLimit int
	timeout   time.Duration
	retry     RetryPolicy
	limiter   *rate.Limiter
	group     singleflight.Group
	logger    *slog.Logger
}

// Option configures a CachingEmbedder.
type Option func(*CachingEmbedder)

// WithModel sets the model name mixed into cache keys.
func WithModel(model string) Option {
	return func(e *CachingEmbedder) {
		e.model = model
	}
}

// WithTextLimit sets the rune limit applied before embedding.
func WithTextLimit(n int) Option {
	return func(e *CachingEmbedder) {
		e.textLimit = n
	}
}

// WithTimeout bounds each remote call.
func WithTimeout(d time.Duration) Option {
	return func(e *CachingEmbedder) {
		e.timeout = d
	}
}

// WithRetryPolicy sets the retry policy for remote calls.
func WithRetryPolicy(p RetryPolicy) Option {
	return func(e *CachingEmbedder) {
		e.retry = p
	}
}

// WithRateLimit limits remote calls to rps per second with the given burst.
// A non-positive rps disables limiting.
func WithRateLimit(rps float64, burst int) Option {
	return func(e *CachingEmbedder) {
		if rps <= 0 {
			e.limiter = rate.NewLimiter(rate.Inf, 0)
			return
		}
		e.limiter = rate.NewLimiter(rate.Limit(rps), max(burst, 1))
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *CachingEmbedder) {
		e.logger = logger
	}
}

// NewCachingEmbedder creates a caching embedder. cache may be nil, in which
// case every text goes to the remote embedder.
func NewCachingEmbedder(remote ai.Embedder, cache storage.VectorCache, opts ...Option) (*CachingEmbedder, error) {
	if remote == nil {
		return nil, ErrEmbedderRequired
	}
	e := &CachingEmbedder{
		remote:    remote,
		cache:     cache,
		model:     "default",
		textLimit: DefaultTextLimit,
		timeout:   DefaultTimeout,
		retry:     DefaultRetryPolicy(),
		limiter:   rate.NewLimiter(rate.Inf, 0),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.model == "" {
		return nil, core.ErrEmptyModel
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	e.logger = e.logger.With("component", "embedcache")
	return e, nil
}

// Key returns the cache key used for text.
func (e *CachingEmbedder) Key(text string) core.ID {
	return core.ContentKey(e.model, TruncateRunes(text, e.textLimit))
}

// EmbedText returns the unit-length embedding of text.
func (e *CachingEmbedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.EmbedTexts(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedTexts returns unit-length embeddings in input order. Cached vectors
// are served locally; the rest are fetched in one remote batch and cached.
func (e *CachingEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	prepared := make([]string, len(texts))
	keys := make([]core.ID, len(texts))
	for i, t := range texts {
		prepared[i] = TruncateRunes(t, e.textLimit)
		keys[i] = core.ContentKey(e.model, prepared[i])
	}

	found := e.lookup(ctx, keys)

	var missKeys []core.ID
	var missTexts []string
	pending := make(map[core.ID]struct{})
	for i, key := range keys {
		if _, ok := found[key]; ok {
			continue
		}
		if _, ok := pending[key]; ok {
			continue
		}
		pending[key] = struct{}{}
		missKeys = append(missKeys, key)
		missTexts = append(missTexts, prepared[i])
	}
	metrics.RecordCacheLookup(len(texts)-len(missKeys), len(missKeys))

	if len(missKeys) > 0 {
		fetched, err := e.fetch(ctx, missKeys, missTexts)
		if err != nil {
			return nil, err
		}
		for i, key := range missKeys {
			found[key] = fetched[i]
		}
	}

	out := make([][]float32, len(texts))
	for i, key := range keys {
		out[i] = found[key]
	}
	return out, nil
}

// Warm embeds and caches texts that are not cached yet. It returns the
// number of texts that had to be fetched.
func (e *CachingEmbedder) Warm(ctx context.Context, texts []string) (int, error) {
	keys := make([]core.ID, len(texts))
	prepared := make([]string, len(texts))
	for i, t := range texts {
		prepared[i] = TruncateRunes(t, e.textLimit)
		keys[i] = core.ContentKey(e.model, prepared[i])
	}
	found := e.lookup(ctx, keys)
	var missKeys []core.ID
	var missTexts []string
	for i, key := range keys {
		if _, ok := found[key]; ok {
			continue
		}
		found[key] = nil
		missKeys = append(missKeys, key)
		missTexts = append(missTexts, prepared[i])
	}
	if len(missKeys) == 0 {
		return 0, nil
	}
	if _, err := e.fetch(ctx, missKeys, missTexts); err != nil {
		return 0, err
	}
	return len(missKeys), nil
}

// lookup returns cached vectors; cache errors are logged and treated as misses.
func (e *CachingEmbedder) lookup(ctx context.Context, keys []core.ID) map[core.ID][]float32 {
	found := make(map[core.ID][]float32, len(keys))
	if e.cache == nil {
		return found
	}
	cached, err := e.cache.GetVectors(ctx, keys...)
	if err != nil {
		e.logger.Warn("vector cache read failed", "error", err)
		return found
	}
	for key, cv := range cached {
		if cv == nil || cv.Model != e.model || len(cv.Vector) == 0 {
			continue
		}
		found[key] = cv.Vector
	}
	return found
}

// fetch embeds texts remotely, collapsing identical concurrent batches.
func (e *CachingEmbedder) fetch(ctx context.Context, keys []core.ID, texts []string) ([][]float32, error) {
	v, err, shared := e.group.Do(flightKey(keys), func() (any, error) {
		return e.fetchRemote(ctx, keys, texts)
	})
	if err != nil {
		return nil, err
	}
	if shared {
		e.logger.Debug("shared in-flight embedding request", "texts", len(texts))
	}
	return v.([][]float32), nil
}

func (e *CachingEmbedder) fetchRemote(ctx context.Context, keys []core.ID, texts []string) ([][]float32, error) {
	callCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	start := time.Now()
	var vectors [][]float32
	err := RetryWithBackoff(callCtx, e.logger, func() error {
		if err := e.limiter.Wait(callCtx); err != nil {
			return err
		}
		var err error
		vectors, err = e.remote.EmbedTexts(callCtx, texts)
		if err != nil {
			return err
		}
		if len(vectors) != len(texts) {
			return fmt.Errorf("%w: got %d, want %d", ErrVectorCount, len(vectors), len(texts))
		}
		for _, v := range vectors {
			if len(v) == 0 {
				return core.ErrEmptyVector
			}
		}
		return nil
	}, e.retry.MaxAttempts, e.retry.BaseDelay)
	metrics.ObserveRemoteCall("embedding", start, err)
	if err != nil {
		return nil, fmt.Errorf("embed %d texts: %w", len(texts), err)
	}

	now := time.Now().Unix()
	out := make([][]float32, len(vectors))
	entries := make(map[core.ID]*core.CachedVector, len(vectors))
	for i, v := range vectors {
		out[i] = NormalizeVector(v)
		entries[keys[i]] = &core.CachedVector{Model: e.model, Vector: out[i], CreatedAt: now}
	}
	e.store(ctx, entries)
	return out, nil
}

func (e *CachingEmbedder) store(ctx context.Context, entries map[core.ID]*core.CachedVector) {
	if e.cache == nil {
		return
	}
	written, err := e.cache.PutVectors(ctx, entries)
	if err != nil {
		if errors.Is(err, storage.ErrStorageClosed) {
			e.logger.Debug("vector cache closed, skipping write")
			return
		}
		e.logger.Warn("vector cache write failed", "error", err)
		return
	}
	e.logger.Debug("cached vectors", "written", written)
}

func flightKey(keys []core.ID) string {
	var b strings.Builder
	for _, k := range keys {
		b.WriteString(strconv.FormatUint(uint64(k), 16))
		b.WriteByte(',')
	}
	return b.String()
}
