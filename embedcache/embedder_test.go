package embedcache

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/classit/ai/mock"
	"github.com/poiesic/classit/core"
	"github.com/poiesic/classit/storage/badger"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestEmbedder(t *testing.T, remote *mock.MockEmbedder, opts ...Option) *CachingEmbedder {
	t.Helper()
	cache, err := badger.NewMemoryVectorCache()
	require.NoError(t, err)
	t.Cleanup(func() { cache.Close() })

	opts = append([]Option{WithLogger(quietLogger()), WithModel("test-model"), WithRetryPolicy(RetryPolicy{MaxAttempts: 2, BaseDelay: time.Millisecond})}, opts...)
	e, err := NewCachingEmbedder(remote, cache, opts...)
	require.NoError(t, err)
	return e
}

func norm(v []float32) float64 {
	var s float64
	for _, x := range v {
		s += float64(x) * float64(x)
	}
	return math.Sqrt(s)
}

func TestNewCachingEmbedder_RequiresRemote(t *testing.T) {
	_, err := NewCachingEmbedder(nil, nil)
	assert.ErrorIs(t, err, ErrEmbedderRequired)

	_, err = NewCachingEmbedder(mock.NewMockEmbedder(), nil, WithModel(""))
	assert.ErrorIs(t, err, core.ErrEmptyModel)
}

func TestEmbedTexts_CachesVectors(t *testing.T) {
	remote := mock.NewMockEmbedder()
	e := newTestEmbedder(t, remote)
	ctx := context.Background()

	first, err := e.EmbedTexts(ctx, []string{"cloud hosting", "retail stores"})
	require.NoError(t, err)
	require.Len(t, first, 2)
	assert.Equal(t, 1, remote.CallCount())

	second, err := e.EmbedTexts(ctx, []string{"retail stores", "cloud hosting"})
	require.NoError(t, err)
	assert.Equal(t, 1, remote.CallCount(), "cached texts must not reach the remote")
	assert.Equal(t, first[0], second[1])
	assert.Equal(t, first[1], second[0])
}

func TestEmbedTexts_OnlyMissesAreFetched(t *testing.T) {
	remote := mock.NewMockEmbedder()
	e := newTestEmbedder(t, remote)
	ctx := context.Background()

	_, err := e.EmbedText(ctx, "cloud hosting")
	require.NoError(t, err)
	remote.Reset()

	_, err = e.EmbedTexts(ctx, []string{"cloud hosting", "retail stores", "retail stores"})
	require.NoError(t, err)
	assert.Equal(t, 1, remote.CallCount())
	assert.Equal(t, 1, remote.TextCount(), "duplicates and hits are not re-sent")
}

func TestEmbedTexts_Normalizes(t *testing.T) {
	remote := mock.NewMockEmbedder()
	remote.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		out := make([][]float32, len(texts))
		for i := range texts {
			out[i] = []float32{3, 4}
		}
		return out, nil
	}
	e := newTestEmbedder(t, remote)

	v, err := e.EmbedText(context.Background(), "anything")
	require.NoError(t, err)
	assert.InDelta(t, 1.0, norm(v), 1e-6)
	assert.InDelta(t, 0.6, v[0], 1e-6)
}

func TestEmbedTexts_TruncatesText(t *testing.T) {
	remote := mock.NewMockEmbedder()
	var seen []string
	remote.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		seen = append(seen, texts...)
		out := make([][]float32, len(texts))
		for i := range texts {
			out[i] = []float32{1}
		}
		return out, nil
	}
	e := newTestEmbedder(t, remote, WithTextLimit(5))

	_, err := e.EmbedText(context.Background(), "héllo world")
	require.NoError(t, err)
	assert.Equal(t, []string{"héllo"}, seen)
	assert.Equal(t, e.Key("héllo"), e.Key("héllo there"))
}

func TestEmbedTexts_RetriesThenFails(t *testing.T) {
	remote := mock.NewMockEmbedder()
	remote.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		return nil, errors.New("connection refused")
	}
	e := newTestEmbedder(t, remote)

	_, err := e.EmbedText(context.Background(), "cloud")
	require.Error(t, err)
	assert.Equal(t, 2, remote.CallCount())
}

func TestEmbedTexts_RetrySucceeds(t *testing.T) {
	remote := mock.NewMockEmbedder()
	var calls atomic.Int32
	remote.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		if calls.Add(1) == 1 {
			return nil, errors.New("temporary")
		}
		return [][]float32{{1, 0}}, nil
	}
	e := newTestEmbedder(t, remote)

	v, err := e.EmbedText(context.Background(), "cloud")
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 0}, v)
}

func TestEmbedTexts_RejectsBadRemoteOutput(t *testing.T) {
	tests := []struct {
		name   string
		result [][]float32
		want   error
	}{
		{"wrong count", [][]float32{{1}, {1}}, ErrVectorCount},
		{"empty vector", [][]float32{{}}, core.ErrEmptyVector},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			remote := mock.NewMockEmbedder()
			remote.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
				return tt.result, nil
			}
			e := newTestEmbedder(t, remote, WithRetryPolicy(RetryPolicy{MaxAttempts: 1}))
			_, err := e.EmbedText(context.Background(), "cloud")
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestEmbedTexts_CollapsesConcurrentRequests(t *testing.T) {
	remote := mock.NewMockEmbedder()
	release := make(chan struct{})
	var calls atomic.Int32
	remote.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		calls.Add(1)
		<-release
		out := make([][]float32, len(texts))
		for i := range texts {
			out[i] = []float32{1, 1}
		}
		return out, nil
	}
	e := newTestEmbedder(t, remote)

	var wg sync.WaitGroup
	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := e.EmbedTexts(context.Background(), []string{"a", "b"})
			assert.NoError(t, err)
		}()
	}
	require.Eventually(t, func() bool { return calls.Load() >= 1 }, time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.LessOrEqual(t, calls.Load(), int32(4))
	assert.GreaterOrEqual(t, calls.Load(), int32(1))
}

func TestEmbedTexts_WithoutCache(t *testing.T) {
	remote := mock.NewMockEmbedder()
	e, err := NewCachingEmbedder(remote, nil, WithLogger(quietLogger()))
	require.NoError(t, err)

	_, err = e.EmbedText(context.Background(), "cloud")
	require.NoError(t, err)
	_, err = e.EmbedText(context.Background(), "cloud")
	require.NoError(t, err)
	assert.Equal(t, 2, remote.CallCount())
}

func TestEmbedTexts_Empty(t *testing.T) {
	remote := mock.NewMockEmbedder()
	e := newTestEmbedder(t, remote)

	out, err := e.EmbedTexts(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, out)
	assert.Zero(t, remote.CallCount())
}

func TestWarm(t *testing.T) {
	remote := mock.NewMockEmbedder()
	e := newTestEmbedder(t, remote)
	ctx := context.Background()

	fetched, err := e.Warm(ctx, []string{"a", "b", "a"})
	require.NoError(t, err)
	assert.Equal(t, 2, fetched)

	fetched, err = e.Warm(ctx, []string{"a", "b", "c"})
	require.NoError(t, err)
	assert.Equal(t, 1, fetched)
	assert.Equal(t, 3, remote.TextCount())
}

func TestWithRateLimit(t *testing.T) {
	remote := mock.NewMockEmbedder()
	e := newTestEmbedder(t, remote, WithRateLimit(1000, 1))
	assert.InDelta(t, 1000, float64(e.limiter.Limit()), 1e-9)

	e = newTestEmbedder(t, remote, WithRateLimit(0, 0))
	_, err := e.EmbedText(context.Background(), strings.Repeat("x", 10))
	require.NoError(t, err)
}
