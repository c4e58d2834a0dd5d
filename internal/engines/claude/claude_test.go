package claude

import (
	"context"
	"encoding/json"
	"image/color"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/docnorm/internal/fields"
	"github.com/MeKo-Tech/docnorm/internal/ocr"
	"github.com/MeKo-Tech/docnorm/internal/raster"
)

func testComposite(t *testing.T, n int) *fields.Composite {
	t.Helper()
	r, err := raster.NewFilled(20, 10*n, color.RGBA{G: 255, A: 255})
	require.NoError(t, err)
	ranges := make([]fields.Range, n)
	for i := range ranges {
		ranges[i] = fields.Range{Start: i * 10, End: i*10 + 8}
	}
	return &fields.Composite{Raster: r, Ranges: ranges}
}

func message(text string) map[string]any {
	return map[string]any{
		"id":            "msg_1",
		"type":          "message",
		"role":          "assistant",
		"model":         DefaultModel,
		"stop_reason":   "end_turn",
		"stop_sequence": nil,
		"content":       []map[string]any{{"type": "text", "text": text}},
		"usage":         map[string]any{"input_tokens": 1500, "output_tokens": 60},
	}
}

func TestExtractBatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("X-Api-Key"))

		var req struct {
			Model     string `json:"model"`
			MaxTokens int    `json:"max_tokens"`
			Messages  []struct {
				Content []struct {
					Type   string `json:"type"`
					Text   string `json:"text"`
					Source struct {
						MediaType string `json:"media_type"`
					} `json:"source"`
				} `json:"content"`
			} `json:"messages"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, DefaultModel, req.Model)
		assert.Equal(t, DefaultMaxTokens, req.MaxTokens)
		require.Len(t, req.Messages, 1)
		require.Len(t, req.Messages[0].Content, 2)
		assert.Equal(t, "image", req.Messages[0].Content[0].Type)
		assert.Equal(t, "image/png", req.Messages[0].Content[0].Source.MediaType)
		assert.Equal(t, ocr.BatchPrompt(2), req.Messages[0].Content[1].Text)

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(message("[{\"text\":\"Jane Doe\",\"confidence\":0.97},{\"text\":\"1990-01-01\",\"confidence\":0.88}]"))
	}))
	t.Cleanup(srv.Close)

	e, err := New(Config{APIKey: "test-key", BaseURL: srv.URL})
	require.NoError(t, err)

	res, err := e.ExtractBatch(context.Background(), testComposite(t, 2))
	require.NoError(t, err)
	require.Len(t, res, 2)
	assert.Equal(t, "Jane Doe", res[0].Text)
	assert.Equal(t, "1990-01-01", res[1].Text)
	assert.InDelta(t, 0.88, res[1].Confidence, 1e-9)

	want := (1500*3.0/1e6 + 60*15.0/1e6) / 2
	assert.InDelta(t, want, res[1].Price, 1e-12)
}

func TestExtractBatchNonArrayReply(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(message(`{"text":"not an array"}`))
	}))
	t.Cleanup(srv.Close)

	e, err := New(Config{APIKey: "k", BaseURL: srv.URL})
	require.NoError(t, err)

	res, err := e.ExtractBatch(context.Background(), testComposite(t, 2))
	require.NoError(t, err)
	require.Len(t, res, 2)
	assert.Empty(t, res[0].Text)
	assert.Empty(t, res[1].Text)
}

func TestExtractBatchAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"type":"error","error":{"type":"authentication_error","message":"invalid x-api-key"}}`))
	}))
	t.Cleanup(srv.Close)

	e, err := New(Config{APIKey: "k", BaseURL: srv.URL})
	require.NoError(t, err)

	_, err = e.ExtractBatch(context.Background(), testComposite(t, 1))
	assert.ErrorIs(t, err, ocr.ErrRecognitionEngineFailure)
}

func TestNewDefaults(t *testing.T) {
	_, err := New(Config{})
	require.Error(t, err)

	e, err := New(Config{APIKey: "k"})
	require.NoError(t, err)
	assert.Equal(t, DefaultModel, e.model)
	assert.Equal(t, int64(DefaultMaxTokens), e.maxTokens)
	assert.Equal(t, DefaultPricing, e.pricing)
}
