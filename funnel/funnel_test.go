package funnel

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/classit/core"
	"github.com/poiesic/classit/taxonomy"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeScorer scores each candidate with fn(label, text, level).
type fakeScorer struct {
	fn    func(label, text string, level core.Level) float64
	mu    sync.Mutex
	calls []core.Level
}

func (s *fakeScorer) Score(_ context.Context, _ string, candidates []string, labelText map[string]string, level core.Level) map[string]float64 {
	s.mu.Lock()
	s.calls = append(s.calls, level)
	s.mu.Unlock()
	out := make(map[string]float64, len(candidates))
	for _, c := range candidates {
		out[c] = s.fn(c, labelText[c], level)
	}
	return out
}

func fixedScores(scores map[string]float64) *fakeScorer {
	return &fakeScorer{fn: func(label, _ string, _ core.Level) float64 { return scores[label] }}
}

func sampleTaxonomy() *taxonomy.Taxonomy {
	return taxonomy.Build([]taxonomy.Row{
		{Sector: "Information Technology", Industry: "Cloud Services", SubIndustry: "Infrastructure Hosting", Code: "7374", CodeDescription: "Data Processing"},
		{Sector: "Information Technology", Industry: "Cloud Services", SubIndustry: "Hosted Software Subscriptions", Code: "7372", CodeDescription: "Prepackaged Software"},
		{Sector: "Information Technology", Industry: "Data Analytics", SubIndustry: "Dashboard Tools", Code: "7371", CodeDescription: "Programming Services"},
		{Sector: "Financial Services", Industry: "Data Analytics", SubIndustry: "Credit Scoring Models", Code: "7323", CodeDescription: "Credit Reporting"},
		{Sector: "Financial Services", Industry: "Payments", SubIndustry: "Card Processing Networks", Code: "7389", CodeDescription: "Business Services"},
		{Sector: "Retail", Industry: "E-commerce", SubIndustry: "Online Marketplaces", Code: "5961", CodeDescription: "Mail-Order Houses"},
	})
}

func newFunnel(t *testing.T, tax *taxonomy.Taxonomy, scorer Scorer, opts ...Option) *Funnel {
	t.Helper()
	f, err := New(tax, scorer, append([]Option{WithLogger(quietLogger())}, opts...)...)
	require.NoError(t, err)
	return f
}

func labels(cs []core.ScoredCandidate) []string {
	out := make([]string, len(cs))
	for i, c := range cs {
		out[i] = c.Label
	}
	return out
}

func assertDescending(t *testing.T, cs []core.ScoredCandidate) {
	t.Helper()
	for i := 1; i < len(cs); i++ {
		assert.GreaterOrEqual(t, cs[i-1].Score, cs[i].Score, "position %d", i)
	}
}

func TestNew_Validation(t *testing.T) {
	_, err := New(nil, fixedScores(nil))
	assert.ErrorIs(t, err, ErrTaxonomyRequired)

	_, err = New(sampleTaxonomy(), nil)
	assert.ErrorIs(t, err, ErrScorerRequired)

	cfg := DefaultConfig()
	cfg.IndustryK = 0
	_, err = New(sampleTaxonomy(), fixedScores(nil), WithConfig(cfg))
	assert.ErrorIs(t, err, ErrInvalidConfig)

	cfg = DefaultConfig()
	cfg.SubIndustryFloor = 1.5
	assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
	assert.NoError(t, DefaultConfig().Validate())
}

func TestRun_TopKInvariant(t *testing.T) {
	var rows []taxonomy.Row
	for i := range 8 {
		sector := fmt.Sprintf("Sector %d", i)
		for j := range 3 {
			industry := fmt.Sprintf("Industry %d-%d", i, j)
			for k := range 4 {
				rows = append(rows, taxonomy.Row{
					Sector: sector, Industry: industry,
					SubIndustry: fmt.Sprintf("Sub %d-%d-%d", i, j, k), Code: "1",
				})
			}
		}
	}
	tax := taxonomy.Build(rows)
	scorer := &fakeScorer{fn: func(label, _ string, _ core.Level) float64 {
		var sum int
		for _, r := range label {
			sum += int(r)
		}
		return float64(sum%97)/100 + 0.02
	}}

	cfg := DefaultConfig()
	cfg.SectorK, cfg.IndustryK, cfg.SubIndustryK = 3, 4, 6
	r := newFunnel(t, tax, scorer, WithConfig(cfg)).Run(context.Background(), "query")

	assert.LessOrEqual(t, len(r.Sectors), 3)
	assert.LessOrEqual(t, len(r.Industries), 4)
	assert.LessOrEqual(t, len(r.SubIndustries), 6)
	assert.NotEmpty(t, r.SubIndustries)
	assertDescending(t, r.Sectors)
	assertDescending(t, r.IndustryScores())
	assertDescending(t, r.SubIndustryScores())
	assert.Empty(t, r.FellBack)
}

func TestRun_FansOutAcrossAllSurvivingSectors(t *testing.T) {
	scorer := fixedScores(map[string]float64{
		"Information Technology":   0.50,
		"Financial Services":       0.48,
		"Retail":                   0.05,
		"Cloud Services":           0.10,
		"Data Analytics":           0.20,
		"Payments":                 0.90,
		"Card Processing Networks": 0.80,
	})
	r := newFunnel(t, sampleTaxonomy(), scorer).Run(context.Background(), "card payments")

	require.NotEmpty(t, r.Industries)
	assert.Equal(t, "Payments", r.Industries[0].Label)
	assert.Equal(t, "Financial Services", r.Industries[0].Sector)

	require.NotEmpty(t, r.SubIndustries)
	top := r.SubIndustries[0]
	assert.Equal(t, "Card Processing Networks", top.Label)
	assert.Equal(t, "Payments", top.Industry)
	assert.Equal(t, "Financial Services", top.Sector)
	assert.Equal(t, "7389", top.Code)
	assert.Equal(t, "Business Services", top.CodeDescription)
	assert.Greater(t, top.Specificity, 0.0)
}

func TestRun_DedupKeepsBestScoreAndOrigin(t *testing.T) {
	scorer := &fakeScorer{fn: func(label, text string, level core.Level) float64 {
		switch {
		case level == core.LevelSector:
			return map[string]float64{"Information Technology": 0.6, "Financial Services": 0.5}[label]
		case label == "Data Analytics" && strings.Contains(text, "Credit Scoring"):
			return 0.7
		case label == "Data Analytics":
			return 0.3
		case level == core.LevelSubIndustry:
			return 0.4
		default:
			return 0.05
		}
	}}
	r := newFunnel(t, sampleTaxonomy(), scorer).Run(context.Background(), "credit analytics")

	var found []IndustryCandidate
	for _, c := range r.Industries {
		if c.Label == "Data Analytics" {
			found = append(found, c)
		}
	}
	require.Len(t, found, 1, "duplicate industries must be merged")
	assert.Equal(t, "Financial Services", found[0].Sector)
	assert.Equal(t, "Data Analytics", r.Industries[0].Label)

	// Sub-industries come from the winning pair only.
	for _, s := range r.SubIndustries {
		if s.Industry == "Data Analytics" {
			assert.Equal(t, "Financial Services", s.Sector)
		}
	}
}

func TestRun_FallsBackWhenStageIsEmpty(t *testing.T) {
	scorer := &fakeScorer{fn: func(label, _ string, level core.Level) float64 {
		switch level {
		case core.LevelSector:
			return map[string]float64{"Retail": 0.5}[label]
		case core.LevelIndustry:
			return 0
		default:
			return map[string]float64{"Dashboard Tools": 0.3}[label]
		}
	}}
	r := newFunnel(t, sampleTaxonomy(), scorer).Run(context.Background(), "dashboards")

	assert.Contains(t, r.FellBack, core.LevelIndustry)
	assert.NotEmpty(t, r.Industries, "fallback keeps the stage non-empty")
	assert.NotEmpty(t, r.SubIndustries)
}

func TestRun_SectorFallbackIgnoresFloor(t *testing.T) {
	scorer := fixedScores(map[string]float64{})
	r := newFunnel(t, sampleTaxonomy(), scorer).Run(context.Background(), "nothing matches")

	assert.Equal(t, []core.Level{core.LevelSector, core.LevelIndustry, core.LevelSubIndustry}, r.FellBack)
	assert.Len(t, r.Sectors, 3)
	assert.NotEmpty(t, r.SubIndustries)
	for _, s := range r.SubIndustries {
		assert.NotEmpty(t, s.Sector)
		assert.NotEmpty(t, s.Industry)
		assert.NotEmpty(t, s.Code)
	}
}

func TestRun_EmptyTaxonomy(t *testing.T) {
	scorer := fixedScores(nil)
	r := newFunnel(t, taxonomy.Build(nil), scorer).Run(context.Background(), "anything")

	assert.Empty(t, r.Sectors)
	assert.Empty(t, r.Industries)
	assert.Empty(t, r.SubIndustries)
	assert.NotNil(t, r.Sectors)
}

func TestRun_SpecificityBreaksTies(t *testing.T) {
	tax := taxonomy.Build([]taxonomy.Row{
		{Sector: "Tech", Industry: "Software", SubIndustry: "Software Services", Code: "1"},
		{Sector: "Tech", Industry: "Software", SubIndustry: "Business and Domestic Software", Code: "2"},
	})
	scorer := &fakeScorer{fn: func(_, _ string, _ core.Level) float64 { return 0.5 }}
	r := newFunnel(t, tax, scorer).Run(context.Background(), "domestic business tools")

	require.Len(t, r.SubIndustries, 2)
	assert.Equal(t, "Business and Domestic Software", r.SubIndustries[0].Label)
	assert.Equal(t, []string{"Tech"}, labels(r.Sectors))
}

type recordingMonitor struct {
	query  string
	stages []core.Level
	result *Result
}

func (m *recordingMonitor) Start(q string) { m.query = q }
func (m *recordingMonitor) AfterStage(level core.Level, _ []core.ScoredCandidate, _ bool) {
	m.stages = append(m.stages, level)
}
func (m *recordingMonitor) Finish(r *Result) { m.result = r }

func TestRun_Monitor(t *testing.T) {
	m := &recordingMonitor{}
	scorer := &fakeScorer{fn: func(_, _ string, _ core.Level) float64 { return 0.5 }}
	r := newFunnel(t, sampleTaxonomy(), scorer, WithMonitor(m)).Run(context.Background(), "q")

	assert.Equal(t, "q", m.query)
	assert.Equal(t, []core.Level{core.LevelSector, core.LevelIndustry, core.LevelSubIndustry}, m.stages)
	assert.Same(t, r, m.result)
}
