package classit

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/classit/ai"
	"github.com/poiesic/classit/ai/mock"
	"github.com/poiesic/classit/calibration"
	"github.com/poiesic/classit/config"
	"github.com/poiesic/classit/core"
	"github.com/poiesic/classit/storage/badger"
	"github.com/poiesic/classit/taxonomy"
)

const saasText = "we sell saas cloud software subscriptions to enterprises"

func twoSectorTaxonomy() *taxonomy.Taxonomy {
	return taxonomy.Build([]taxonomy.Row{
		{Sector: "Information Technology", Industry: "Cloud Services", SubIndustry: "Software as a Service", Code: "7372", CodeDescription: "Prepackaged Software"},
		{Sector: "Retail", Industry: "E-commerce", SubIndustry: "Online Marketplaces", Code: "5961", CodeDescription: "Catalog and Mail-Order Houses"},
	})
}

func offlineContext(t *testing.T, opts ...Option) *ClassifierContext {
	t.Helper()
	cc, err := NewClassifierContext(context.Background(), twoSectorTaxonomy(), opts...)
	require.NoError(t, err)
	return cc
}

func scoreOf(candidates []core.ScoredCandidate, label string) float64 {
	for _, c := range candidates {
		if c.Label == label {
			return c.Score
		}
	}
	return 0
}

func TestClassify_CloudCompany(t *testing.T) {
	cc := offlineContext(t)

	result, err := Classify(context.Background(), cc, "Acme", saasText)
	require.NoError(t, err)

	assert.Equal(t, "Acme", result.Company)
	assert.Equal(t, "Information Technology", result.Sector.Label)
	assert.Equal(t, "Cloud Services", result.Industry.Label)
	assert.NotEqual(t, core.Unknown, result.SubIndustry.Label)
	assert.Greater(t, result.Sector.Score, scoreOf(result.Sector.Candidates, "Retail"))

	require.NotNil(t, result.Code)
	assert.Equal(t, "7372", *result.Code)
	require.NotNil(t, result.CodeDescription)
	assert.Equal(t, "Prepackaged Software", *result.CodeDescription)

	require.NotNil(t, result.Prediction)
	assert.Equal(t, core.SelectionDeterministic, result.Prediction.SelectionMethod)
	assert.Equal(t, result.Sector.Score, result.Prediction.Confidence.Base)
	assert.Equal(t, result.Prediction.Confidence.Base, result.Prediction.Confidence.Final)
	require.NotEmpty(t, result.Prediction.TopSectors)
	assert.Equal(t, 1, result.Prediction.TopSectors[0].Rank)

	for _, r := range []core.LevelResult{result.Sector, result.Industry, result.SubIndustry} {
		assert.NoError(t, core.ValidateLevelResult(r))
	}
}

func TestClassify_IsDeterministic(t *testing.T) {
	cc := offlineContext(t)
	first, err := Classify(context.Background(), cc, "Acme", saasText)
	require.NoError(t, err)
	second, err := Classify(context.Background(), cc, "Acme", saasText)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestClassify_EmptyTextIsUnknown(t *testing.T) {
	cc := offlineContext(t)

	for _, text := range []string{"", "   \n\t"} {
		result, err := Classify(context.Background(), cc, "Acme", text)
		require.NoError(t, err)
		for _, r := range []core.LevelResult{result.Sector, result.Industry, result.SubIndustry} {
			assert.Equal(t, core.Unknown, r.Label)
			assert.Equal(t, 0.0, r.Score)
		}
		assert.Nil(t, result.Code)
		assert.Nil(t, result.Prediction)
	}
}

func TestClassify_EmptyTaxonomyIsUnknown(t *testing.T) {
	cc, err := NewClassifierContext(context.Background(), taxonomy.Build(nil))
	require.NoError(t, err)

	result, err := Classify(context.Background(), cc, "Acme", saasText)
	require.NoError(t, err)
	assert.Equal(t, core.UnknownClassification("Acme"), result)
}

func TestClassify_NilContext(t *testing.T) {
	_, err := Classify(context.Background(), nil, "Acme", saasText)
	assert.ErrorIs(t, err, ErrNilContext)
}

func TestNewClassifierContext_RequiresTaxonomy(t *testing.T) {
	_, err := NewClassifierContext(context.Background(), nil)
	assert.ErrorIs(t, err, ErrTaxonomyRequired)
}

func TestNewClassifierContext_RejectsInvalidConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Weights.Lexical = 0.9
	_, err := NewClassifierContext(context.Background(), twoSectorTaxonomy(), WithConfig(cfg))
	assert.ErrorIs(t, err, config.ErrInvalidConfig)
}

func TestClassify_JSONRoundTrip(t *testing.T) {
	cc := offlineContext(t)
	result, err := Classify(context.Background(), cc, "Acme", saasText)
	require.NoError(t, err)

	data, err := json.Marshal(result)
	require.NoError(t, err)

	var decoded core.CompanyClassification
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, result, decoded)
}

func TestClassify_AcceptanceThreshold(t *testing.T) {
	cfg := config.Default()
	cfg.Acceptance.SubIndustry = 0.99
	cc := offlineContext(t, WithConfig(cfg))

	result, err := Classify(context.Background(), cc, "Acme", saasText)
	require.NoError(t, err)

	assert.Equal(t, "Information Technology", result.Sector.Label)
	assert.Equal(t, core.Unknown, result.SubIndustry.Label)
	assert.NotEmpty(t, result.SubIndustry.Candidates, "candidates are kept")
	assert.Greater(t, result.SubIndustry.Score, 0.0)
	assert.Nil(t, result.Code)
}

func TestClassify_EmbeddingSignal(t *testing.T) {
	provider := mock.NewMockProviderWithServices(mock.NewMockEmbedder(), mock.NewMockGenerator())
	cache, err := badger.NewMemoryVectorCache()
	require.NoError(t, err)
	defer cache.Close()

	cc := offlineContext(t, WithProvider(provider), WithVectorCache(cache))
	assert.True(t, cc.EmbeddingAvailable)
	require.NotNil(t, cc.Embedder())

	_, err = Classify(context.Background(), cc, "Acme", saasText)
	require.NoError(t, err)
	calls := provider.GetMockEmbedder().CallCount()
	assert.Positive(t, calls)

	count, err := cache.CountVectors(context.Background())
	require.NoError(t, err)
	assert.Positive(t, count)

	_, err = Classify(context.Background(), cc, "Acme", saasText)
	require.NoError(t, err)
	assert.Equal(t, calls, provider.GetMockEmbedder().CallCount(), "second run is served from the cache")
}

func TestClassify_EmbeddingFailureDegrades(t *testing.T) {
	embedder := mock.NewMockEmbedder()
	embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		return nil, errors.New("connection refused")
	}
	provider := mock.NewMockProviderWithServices(embedder, mock.NewMockGenerator())

	cc := offlineContext(t, WithProvider(provider))
	result, err := Classify(context.Background(), cc, "Acme", saasText)
	require.NoError(t, err)
	assert.Equal(t, "Information Technology", result.Sector.Label)
}

func alwaysEscalate() *config.Config {
	cfg := config.Default()
	cfg.Escalation.ScoreThreshold = 1
	return cfg
}

const mixedText = "we sell saas cloud software subscriptions and run an online retail store for e-commerce shoppers"

func TestClassify_RerankChoiceIsUsed(t *testing.T) {
	generator := mock.NewMockGeneratorWithAnswer("SECTOR: Retail\nINDUSTRY: E-commerce\nREASONING: the company runs a store")
	provider := mock.NewMockProviderWithServices(mock.NewMockEmbedder(), generator)
	provider.SetAvailability(ai.Availability{Embedding: false, Generation: true})

	cc := offlineContext(t, WithConfig(alwaysEscalate()), WithProvider(provider))
	require.True(t, cc.GeneratorAvailable)
	require.False(t, cc.EmbeddingAvailable)

	result, err := Classify(context.Background(), cc, "Acme", mixedText)
	require.NoError(t, err)

	assert.Equal(t, 1, generator.CallCount())
	assert.Contains(t, generator.LastPrompt(), "Retail")
	assert.Equal(t, "Retail", result.Sector.Label)
	assert.Equal(t, "E-commerce", result.Industry.Label)
	assert.Equal(t, scoreOf(result.Sector.Candidates, "Retail"), result.Sector.Score)
	assert.NoError(t, core.ValidateLevelResult(result.Sector))

	require.NotNil(t, result.Prediction)
	assert.Equal(t, core.SelectionLLMRerank, result.Prediction.SelectionMethod)
	assert.True(t, result.Prediction.Escalated)
	assert.Equal(t, "the company runs a store", result.Prediction.LLMReasoning)
	assert.Empty(t, result.Prediction.FallbackReason)
	assert.Zero(t, provider.GetMockEmbedder().CallCount())
}

func TestClassify_RerankFailureFallsBack(t *testing.T) {
	tests := []struct {
		name   string
		gen    *mock.MockGenerator
		avail  ai.Availability
		reason string
	}{
		{
			name: "generation error",
			gen: &mock.MockGenerator{GenerateFunc: func(ctx context.Context, prompt string) (string, error) {
				return "", errors.New("timeout")
			}},
			avail:  ai.Availability{Generation: true},
			reason: "generation failed",
		},
		{
			name:   "out of vocabulary answer",
			gen:    mock.NewMockGeneratorWithAnswer("SECTOR: Agriculture\nINDUSTRY: Farming"),
			avail:  ai.Availability{Generation: true},
			reason: "answer rejected",
		},
		{
			name:   "declined",
			gen:    mock.NewMockGenerator(),
			avail:  ai.Availability{Generation: true},
			reason: "answer rejected",
		},
		{
			name:   "generator unavailable",
			gen:    mock.NewMockGenerator(),
			avail:  ai.Availability{},
			reason: "generator unavailable",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider := mock.NewMockProviderWithServices(mock.NewMockEmbedder(), tt.gen)
			cc := offlineContext(t, WithConfig(alwaysEscalate()), WithProvider(provider), WithAvailability(tt.avail))

			result, err := Classify(context.Background(), cc, "Acme", saasText)
			require.NoError(t, err)

			assert.Equal(t, "Information Technology", result.Sector.Label)
			assert.Equal(t, "Cloud Services", result.Industry.Label)
			require.NotNil(t, result.Prediction)
			assert.Equal(t, core.SelectionDeterministic, result.Prediction.SelectionMethod)
			assert.True(t, result.Prediction.Escalated)
			assert.Equal(t, tt.reason, result.Prediction.FallbackReason)
		})
	}
}

func TestClassify_ConfidentResultSkipsRerank(t *testing.T) {
	generator := mock.NewMockGenerator()
	provider := mock.NewMockProviderWithServices(mock.NewMockEmbedder(), generator)
	cfg := config.Default()
	cfg.Escalation.ScoreThreshold = 0
	cfg.Escalation.MarginThreshold = 0

	cc := offlineContext(t, WithConfig(cfg), WithProvider(provider), WithAvailability(ai.Availability{Generation: true}))
	result, err := Classify(context.Background(), cc, "Acme", saasText)
	require.NoError(t, err)

	assert.Zero(t, generator.CallCount())
	assert.False(t, result.Prediction.Escalated)
}

func TestClassifyDocuments_EvidenceDensity(t *testing.T) {
	cc := offlineContext(t)
	docs := []calibration.Document{
		{Text: "software as a service software service saas", Weight: 3},
		{Text: "we are hiring engineers in berlin", Weight: 1},
	}

	result, err := ClassifyDocuments(context.Background(), cc, "Acme", saasText, docs)
	require.NoError(t, err)
	require.Equal(t, "Software as a Service", result.SubIndustry.Label)

	conf := result.Prediction.Confidence
	assert.InDelta(t, 0.75, conf.EvidenceDensity, 1e-9)
	assert.InDelta(t, core.Round4(conf.Base*0.75), conf.Final, 1e-4)
}
