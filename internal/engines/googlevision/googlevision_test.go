package googlevision

import (
	"context"
	"encoding/json"
	"image/color"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	vision "google.golang.org/api/vision/v1"

	"github.com/MeKo-Tech/docnorm/internal/fields"
	"github.com/MeKo-Tech/docnorm/internal/ocr"
	"github.com/MeKo-Tech/docnorm/internal/raster"
)

func word(text string, y int64, conf float64) *vision.Word {
	w := &vision.Word{
		BoundingBox: &vision.BoundingPoly{Vertices: []*vision.Vertex{{X: 1, Y: y}}},
		Confidence:  conf,
	}
	for _, r := range text {
		w.Symbols = append(w.Symbols, &vision.Symbol{Text: string(r)})
	}
	return w
}

func annotation(words ...*vision.Word) *vision.TextAnnotation {
	return &vision.TextAnnotation{Pages: []*vision.Page{{
		Blocks: []*vision.Block{{Paragraphs: []*vision.Paragraph{{Words: words}}}},
	}}}
}

func testComposite(t *testing.T) *fields.Composite {
	t.Helper()
	r, err := raster.NewFilled(40, 30, color.RGBA{G: 255, A: 255})
	require.NoError(t, err)
	return &fields.Composite{Raster: r, Ranges: []fields.Range{{Start: 0, End: 10}, {Start: 15, End: 22}, {Start: 27, End: 30}}}
}

func TestAssignWords(t *testing.T) {
	comp := testComposite(t)
	ann := annotation(
		word("Main", 1, 0.9),
		word("St", 2, 0.7),
		word("gap", 12, 0.5), // gap rows belong to the field above
		word("Berlin", 16, 0.8),
		word("", 28, 0.1),
		&vision.Word{Symbols: []*vision.Symbol{{Text: "nobox"}}},
	)

	res := assignWords(ann, comp)
	require.Len(t, res, 3)
	assert.Equal(t, "Main St gap", res[0].Text)
	assert.InDelta(t, 0.7, res[0].Confidence, 1e-9)
	assert.Equal(t, "Berlin", res[1].Text)
	assert.InDelta(t, 0.8, res[1].Confidence, 1e-9)
	assert.Equal(t, ocr.Result{}, res[2])
}

func TestAssignWordsNilAnnotation(t *testing.T) {
	res := assignWords(nil, testComposite(t))
	assert.Len(t, res, 3)
}

func newTestEngine(t *testing.T, handler http.HandlerFunc) *Engine {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	svc, err := NewService(context.Background(), Config{APIKey: "test-key", Endpoint: srv.URL + "/"})
	require.NoError(t, err)
	e, err := Factory(svc)()
	require.NoError(t, err)
	return e.(*Engine)
}

func TestExtractBatchOverHTTP(t *testing.T) {
	var got vision.BatchAnnotateImagesRequest
	e := newTestEngine(t, func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/images:annotate"), r.URL.Path)
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &got))

		resp := vision.BatchAnnotateImagesResponse{Responses: []*vision.AnnotateImageResponse{{
			FullTextAnnotation: annotation(word("Hello", 3, 0.95), word("World", 20, 0.85)),
		}}}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	})

	require.NoError(t, e.Startup(context.Background(), "bos"))
	defer func() { _ = e.Cleanup() }()

	res, err := e.ExtractBatch(context.Background(), testComposite(t))
	require.NoError(t, err)
	require.Len(t, res, 3)
	assert.Equal(t, "Hello", res[0].Text)
	assert.Equal(t, "World", res[1].Text)
	for _, r := range res {
		assert.InDelta(t, PricePerImage/3, r.Price, 1e-12)
	}

	require.Len(t, got.Requests, 1)
	assert.Equal(t, featureDocumentText, got.Requests[0].Features[0].Type)
	assert.Equal(t, []string{"bs"}, got.Requests[0].ImageContext.LanguageHints)
	assert.NotEmpty(t, got.Requests[0].Image.Content)
}

func TestExtractBatchAPIError(t *testing.T) {
	e := newTestEngine(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(vision.BatchAnnotateImagesResponse{Responses: []*vision.AnnotateImageResponse{{
			Error: &vision.Status{Code: 3, Message: "Bad image data."},
		}}})
	})
	require.NoError(t, e.Startup(context.Background(), "en"))

	_, err := e.ExtractBatch(context.Background(), testComposite(t))
	assert.ErrorIs(t, err, ocr.ErrRecognitionEngineFailure)
}

func TestExtractBatchHTTPFailure(t *testing.T) {
	e := newTestEngine(t, func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"error":{"code":403,"message":"denied"}}`, http.StatusForbidden)
	})
	require.NoError(t, e.Startup(context.Background(), "en"))

	_, err := e.ExtractBatch(context.Background(), testComposite(t))
	assert.ErrorIs(t, err, ocr.ErrRecognitionEngineFailure)
}
