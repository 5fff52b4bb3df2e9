package anthropic

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/poiesic/classit/ai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMessageServer(t *testing.T, text string, seen *map[string]any) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Contains(t, r.URL.Path, "/messages")
		if seen != nil {
			body, _ := io.ReadAll(r.Body)
			_ = json.Unmarshal(body, seen)
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{ //nolint:errcheck
			"id":   "msg_test_001",
			"type": "message",
			"role": "assistant",
			"content": []map[string]any{
				{"type": "text", "text": text},
			},
			"model":       "claude-3-5-haiku-latest",
			"stop_reason": "end_turn",
			"usage":       map[string]any{"input_tokens": 10, "output_tokens": 5},
		})
	}))
	t.Cleanup(ts.Close)
	return ts
}

func testConfig() *ai.Config {
	return ai.NewConfig(
		ai.WithBackend(ai.BackendAnthropic),
		ai.WithGeneratorModel("claude-3-5-haiku-latest"),
		ai.WithAPIKey("test-key"),
	)
}

func TestGenerator_Generate(t *testing.T) {
	var seen map[string]any
	ts := newMessageServer(t, "SECTOR: Retail\nINDUSTRY: E-commerce\n", &seen)

	gen, err := NewGenerator(testConfig(), WithBaseURL(ts.URL))
	require.NoError(t, err)

	answer, err := gen.Generate(context.Background(), "pick one", ai.WithMaxTokens(200), ai.WithTemperature(0.1))
	require.NoError(t, err)
	assert.Equal(t, "SECTOR: Retail\nINDUSTRY: E-commerce", answer)

	assert.Equal(t, "claude-3-5-haiku-latest", seen["model"])
	assert.EqualValues(t, 200, seen["max_tokens"])
	assert.InDelta(t, 0.1, seen["temperature"], 1e-9)
}

func TestGenerator_EmptyAnswer(t *testing.T) {
	ts := newMessageServer(t, "   ", nil)
	gen, err := NewGenerator(testConfig(), WithBaseURL(ts.URL))
	require.NoError(t, err)

	_, err = gen.Generate(context.Background(), "pick one")
	assert.ErrorIs(t, err, ai.ErrEmptyResponse)
}

func TestGenerator_ServerError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"type":"error","error":{"type":"invalid_request_error","message":"bad"}}`))
	}))
	defer ts.Close()

	gen, err := NewGenerator(testConfig(), WithBaseURL(ts.URL))
	require.NoError(t, err)

	_, err = gen.Generate(context.Background(), "pick one")
	assert.Error(t, err)
}

func TestNewGenerator_Validation(t *testing.T) {
	_, err := NewGenerator(ai.NewConfig(ai.WithGeneratorModel("m")))
	assert.Error(t, err)

	_, err = NewGenerator(ai.NewConfig(ai.WithAPIKey("k"), ai.WithGeneratorModel("")))
	assert.Error(t, err)

	gen, err := NewGenerator(testConfig())
	require.NoError(t, err)
	assert.True(t, gen.Probe(context.Background()))
}
