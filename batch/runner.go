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


// Package batch classifies many companies concurrently on a worker pool.
//
// Each job is an independent classification sharing one read-only
// ClassifierContext. Results keep the order of the input jobs.
package batch

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"

	"github.com/poiesic/classit"
	"github.com/poiesic/classit/calibration"
	"github.com/poiesic/classit/core"
)

// ErrClassifierRequired is returned when a Runner is built without a classifier context.
var ErrClassifierRequired = errors.New("classifier context is required")

// Job is one company to classify.
type Job struct {
	Company   string                 `json:"company"`
	Text      string                 `json:"text"`
	Documents []calibration.Document `json:"documents,omitempty"`
}

// Result is the outcome of one job.
type Result struct {
	RunID          uuid.UUID                   `json:"run_id"`
	Index          int                         `json:"index"`
	Classification *core.CompanyClassification `json:"classification,omitempty"`
	Error          string                      `json:"error,omitempty"`
}

// Runner runs jobs on an ants worker pool.
type Runner struct {
	classifier *classit.ClassifierContext
	pool       *ants.Pool
	logger     *slog.Logger
}

// Option configures a Runner.
type Option func(*Runner) error

// WithPoolSize sets the number of concurrent classifications.
// Default is runtime.NumCPU(), with a minimum of 1.
func WithPoolSize(size int) Option {
	return func(r *Runner) error {
		if size < 1 {
			size = 1
		}
		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		if r.pool != nil {
			r.pool.Release()
		}
		r.pool = pool
		return nil
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) error {
		if logger == nil {
			logger = slog.Default()
		}
		r.logger = logger
		return nil
	}
}

// NewRunner creates a Runner. Call Release when done.
func NewRunner(cc *classit.ClassifierContext, opts ...Option) (*Runner, error) {
	if cc == nil {
		return nil, ErrClassifierRequired
	}
	pool, err := ants.NewPool(max(runtime.NumCPU(), 1))
	if err != nil {
		return nil, err
	}
	r := &Runner{
		classifier: cc,
		pool:       pool,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(r); err != nil {
			r.Release()
			return nil, err
		}
	}
	r.logger = r.logger.With("component", "batch")
	return r, nil
}

// Run classifies every job and returns one result per job in input order.
// A cancelled context stops submitting new jobs; jobs never started report
// the context error.
func (r *Runner) Run(ctx context.Context, jobs []Job) []Result {
	runID := uuid.New()
	start := time.Now()
	logger := r.logger.With("run_id", runID)
	logger.Info("batch started", "jobs", len(jobs))

	results := make([]Result, len(jobs))
	var wg sync.WaitGroup
	for i, job := range jobs {
		results[i] = Result{RunID: runID, Index: i}
		if err := ctx.Err(); err != nil {
			results[i].Error = err.Error()
			continue
		}
		wg.Add(1)
		err := r.pool.Submit(func() {
			defer wg.Done()
			results[i] = r.classify(ctx, runID, i, job)
		})
		if err != nil {
			wg.Done()
			results[i].Error = fmt.Sprintf("submit: %v", err)
		}
	}
	wg.Wait()

	failed := 0
	for _, res := range results {
		if res.Error != "" {
			failed++
		}
	}
	logger.Info("batch finished", "jobs", len(jobs), "failed", failed, "elapsed", time.Since(start))
	return results
}

func (r *Runner) classify(ctx context.Context, runID uuid.UUID, index int, job Job) Result {
	res := Result{RunID: runID, Index: index}
	if err := ctx.Err(); err != nil {
		res.Error = err.Error()
		return res
	}
	c, err := classit.ClassifyDocuments(ctx, r.classifier, job.Company, job.Text, job.Documents)
	if err != nil {
		res.Error = err.Error()
		return res
	}
	res.Classification = &c
	return res
}

// Release stops the worker pool.
func (r *Runner) Release() {
	if r.pool != nil {
		r.pool.Release()
	}
}

// ReadJobs decodes one JSON job per line. Blank lines are skipped.
func ReadJobs(src io.Reader) ([]Job, error) {
	var jobs []Job
	scanner := bufio.NewScanner(src)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		raw := scanner.Bytes()
		if len(bytes.TrimSpace(raw)) == 0 {
			continue
		}
		var job Job
		if err := json.Unmarshal(raw, &job); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		jobs = append(jobs, job)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return jobs, nil
}

// WriteResults encodes one JSON result per line.
func WriteResults(dst io.Writer, results []Result) error {
	enc := json.NewEncoder(dst)
	for _, res := range results {
		if err := enc.Encode(res); err != nil {
			return err
		}
	}
	return nil
}
