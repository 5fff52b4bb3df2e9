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


// Package warmup pre-embeds every taxonomy label text into the vector cache
// so that classifications start with a warm cache.
//
// Texts are embedded in batches. A failed batch is retried with exponential
// backoff before the run is aborted.
package warmup

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"time"

	"github.com/poiesic/classit/embedcache"
	"github.com/poiesic/classit/taxonomy"
)

// ErrEmbedderRequired is returned when a Warmer is built without an embedder.
var ErrEmbedderRequired = errors.New("embedder is required")

// Embedder embeds and caches texts, returning how many had to be fetched.
type Embedder interface {
	Warm(ctx context.Context, texts []string) (int, error)
}

// Config holds configuration for a warm-up run.
type Config struct {
	// BatchSize is the number of texts sent per embedding request.
	BatchSize int

	// ReportInterval is how often progress is reported, in texts.
	ReportInterval int

	// MaxRetries is the number of attempts per batch.
	MaxRetries int

	// RetryDelay is the base delay for exponential backoff.
	RetryDelay time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		BatchSize:      64,
		ReportInterval: 64,
		MaxRetries:     3,
		RetryDelay:     1 * time.Second,
	}
}

// Stats summarises a warm-up run.
type Stats struct {
	Total   int
	Fetched int
	Cached  int
	Elapsed time.Duration
}

// Warmer fills the vector cache.
type Warmer struct {
	embedder Embedder
	config   *Config
	progress io.Writer
	logger   *slog.Logger
}

// NewWarmer creates a Warmer. progress receives human-readable progress
// output and may be nil.
func NewWarmer(embedder Embedder, config *Config, progress io.Writer, logger *slog.Logger) (*Warmer, error) {
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}
	if config == nil {
		config = DefaultConfig()
	}
	if config.BatchSize <= 0 {
		config.BatchSize = DefaultConfig().BatchSize
	}
	if progress == nil {
		progress = io.Discard
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Warmer{
		embedder: embedder,
		config:   config,
		progress: progress,
		logger:   logger.With("component", "warmup"),
	}, nil
}

// WarmTaxonomy warms every descriptive text of tax.
func (w *Warmer) WarmTaxonomy(ctx context.Context, tax *taxonomy.Taxonomy) (Stats, error) {
	return w.Run(ctx, tax.AllTexts())
}

// Run warms texts in batches.
func (w *Warmer) Run(ctx context.Context, texts []string) (Stats, error) {
	stats := Stats{Total: len(texts)}
	if len(texts) == 0 {
		fmt.Fprintf(w.progress, "No texts to warm\n")
		return stats, nil
	}

	fmt.Fprintf(w.progress, "Warming %d texts (batch size: %d)\n", len(texts), w.config.BatchSize)
	tracker := NewProgressTracker(w.progress, len(texts), w.config.ReportInterval)
	tracker.Start()

	for batch := range slices.Chunk(texts, w.config.BatchSize) {
		var fetched int
		err := embedcache.RetryWithBackoff(ctx, w.logger, func() error {
			var err error
			fetched, err = w.embedder.Warm(ctx, batch)
			return err
		}, w.config.MaxRetries, w.config.RetryDelay)
		if err != nil {
			stats.Elapsed = tracker.Elapsed()
			return stats, fmt.Errorf("failed to warm batch after %d attempts: %w", w.config.MaxRetries, err)
		}
		stats.Fetched += fetched
		stats.Cached += len(batch) - fetched
		tracker.Increment(len(batch))
	}

	tracker.Finish()
	stats.Elapsed = tracker.Elapsed()
	w.logger.Info("cache warmed", "total", stats.Total, "fetched", stats.Fetched, "cached", stats.Cached, "elapsed", stats.Elapsed)
	fmt.Fprintf(w.progress, "Warm-up complete. %d texts, %d fetched, %d already cached in %v\n",
		stats.Total, stats.Fetched, stats.Cached, stats.Elapsed.Round(time.Millisecond))
	return stats, nil
}
