package batch

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/classit"
	"github.com/poiesic/classit/core"
	"github.com/poiesic/classit/taxonomy"
)

func newContext(t *testing.T) *classit.ClassifierContext {
	t.Helper()
	tax := taxonomy.Build([]taxonomy.Row{
		{Sector: "Information Technology", Industry: "Cloud Services", SubIndustry: "Software as a Service", Code: "7372", CodeDescription: "Prepackaged Software"},
		{Sector: "Retail", Industry: "E-commerce", SubIndustry: "Online Marketplaces", Code: "5961", CodeDescription: "Catalog and Mail-Order Houses"},
	})
	cc, err := classit.NewClassifierContext(context.Background(), tax)
	require.NoError(t, err)
	return cc
}

func TestNewRunner(t *testing.T) {
	t.Run("requires classifier", func(t *testing.T) {
		_, err := NewRunner(nil)
		assert.ErrorIs(t, err, ErrClassifierRequired)
	})

	t.Run("with pool size", func(t *testing.T) {
		r, err := NewRunner(newContext(t), WithPoolSize(2), WithLogger(nil))
		require.NoError(t, err)
		defer r.Release()
		assert.Equal(t, 2, r.pool.Cap())
	})
}

func TestRunner_Run(t *testing.T) {
	r, err := NewRunner(newContext(t), WithPoolSize(4))
	require.NoError(t, err)
	defer r.Release()

	jobs := []Job{
		{Company: "Acme", Text: "we sell saas cloud software subscriptions to enterprises"},
		{Company: "Empty", Text: ""},
		{Company: "Shop", Text: "online retail store and e-commerce marketplace for shoppers"},
	}
	for range 5 {
		jobs = append(jobs, jobs[0])
	}

	results := r.Run(context.Background(), jobs)
	require.Len(t, results, len(jobs))

	runID := results[0].RunID
	for i, res := range results {
		assert.Equal(t, i, res.Index)
		assert.Equal(t, runID, res.RunID, "one run id per batch")
		assert.Empty(t, res.Error)
		require.NotNil(t, res.Classification)
		assert.Equal(t, jobs[i].Company, res.Classification.Company)
	}
	assert.Equal(t, "Information Technology", results[0].Classification.Sector.Label)
	assert.Equal(t, core.Unknown, results[1].Classification.Sector.Label)
	assert.Equal(t, "Retail", results[2].Classification.Sector.Label)
	assert.Equal(t, results[0].Classification, results[7].Classification)

	again := r.Run(context.Background(), jobs[:1])
	assert.NotEqual(t, runID, again[0].RunID)
}

func TestRunner_CancelledContext(t *testing.T) {
	r, err := NewRunner(newContext(t))
	require.NoError(t, err)
	defer r.Release()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results := r.Run(ctx, []Job{{Company: "Acme", Text: "cloud software"}})
	require.Len(t, results, 1)
	assert.Nil(t, results[0].Classification)
	assert.Contains(t, results[0].Error, "context canceled")
}

func TestReadJobs(t *testing.T) {
	src := `{"company":"Acme","text":"cloud software"}

{"company":"Shop","text":"retail","documents":[{"text":"store","uri":"https://shop.example/about","weight":2}]}
`
	jobs, err := ReadJobs(strings.NewReader(src))
	require.NoError(t, err)
	require.Len(t, jobs, 2)
	assert.Equal(t, "Acme", jobs[0].Company)
	require.Len(t, jobs[1].Documents, 1)
	assert.Equal(t, 2.0, jobs[1].Documents[0].Weight)

	_, err = ReadJobs(strings.NewReader("{not json}\n"))
	assert.ErrorContains(t, err, "line 1")
}

func TestWriteResults(t *testing.T) {
	r, err := NewRunner(newContext(t))
	require.NoError(t, err)
	defer r.Release()

	results := r.Run(context.Background(), []Job{{Company: "Acme", Text: "we sell saas cloud software"}})
	var buf bytes.Buffer
	require.NoError(t, WriteResults(&buf, results))

	var decoded Result
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, results[0].RunID, decoded.RunID)
	assert.Equal(t, *results[0].Classification, *decoded.Classification)
}
