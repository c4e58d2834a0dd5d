// Package googlevision is the cloud batch engine backed by the Cloud Vision
// DOCUMENT_TEXT_DETECTION feature.
package googlevision

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/api/option"
	vision "google.golang.org/api/vision/v1"

	"github.com/MeKo-Tech/docnorm/internal/fields"
	"github.com/MeKo-Tech/docnorm/internal/ocr"
	"github.com/MeKo-Tech/docnorm/internal/raster"
)

// PricePerImage is the list price of one document text detection unit.
const PricePerImage = 1.5 / 1000

const featureDocumentText = "DOCUMENT_TEXT_DETECTION"

// Config selects credentials and endpoint. With no APIKey the client uses
// application default credentials.
type Config struct {
	APIKey   string
	Endpoint string
}

// Engine sends the stacked composite in one annotate call.
type Engine struct {
	svc  *vision.Service
	lang string
}

var _ ocr.BatchCapable = (*Engine)(nil)

// NewService builds the Vision API client shared by every request.
func NewService(ctx context.Context, cfg Config) (*vision.Service, error) {
	var opts []option.ClientOption
	if cfg.APIKey != "" {
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
	}
	if cfg.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(cfg.Endpoint))
	}
	svc, err := vision.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("vision client: %w", err)
	}
	return svc, nil
}

// Factory returns per-request engines sharing svc.
func Factory(svc *vision.Service) ocr.Factory {
	return func() (ocr.Engine, error) {
		if svc == nil {
			return nil, errors.New("vision client not configured")
		}
		return &Engine{svc: svc}, nil
	}
}

// Startup records the language hint.
func (e *Engine) Startup(_ context.Context, lang string) error {
	e.lang = ocr.LanguageHint(lang)
	return nil
}

// Cleanup is a no-op; the HTTP client outlives the request.
func (e *Engine) Cleanup() error { return nil }

// ExtractBatch annotates the composite and maps each word back to its field
// by vertical position.
func (e *Engine) ExtractBatch(ctx context.Context, composite *fields.Composite) ([]ocr.Result, error) {
	data, err := raster.EncodePNG(composite.Raster)
	if err != nil {
		return nil, err
	}

	req := &vision.AnnotateImageRequest{
		Image:    &vision.Image{Content: base64.StdEncoding.EncodeToString(data)},
		Features: []*vision.Feature{{Type: featureDocumentText}},
	}
	if e.lang != "" {
		req.ImageContext = &vision.ImageContext{LanguageHints: []string{e.lang}}
	}

	resp, err := e.svc.Images.Annotate(&vision.BatchAnnotateImagesRequest{
		Requests: []*vision.AnnotateImageRequest{req},
	}).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("%w: annotate: %w", ocr.ErrRecognitionEngineFailure, err)
	}
	if len(resp.Responses) == 0 {
		return nil, fmt.Errorf("%w: empty annotate response", ocr.ErrRecognitionEngineFailure)
	}
	r := resp.Responses[0]
	if r.Error != nil && r.Error.Message != "" {
		return nil, fmt.Errorf("%w: %s (code %d)", ocr.ErrRecognitionEngineFailure, r.Error.Message, r.Error.Code)
	}

	results := assignWords(r.FullTextAnnotation, composite)
	price := ocr.SplitPrice(PricePerImage, len(composite.Ranges))
	for i := range results {
		results[i].Price = price
	}
	return results, nil
}

// assignWords gives each recognized word to the field owning the y of its
// first bounding vertex. Words are joined with single spaces and the field
// confidence is the mean word confidence.
func assignWords(ann *vision.TextAnnotation, composite *fields.Composite) []ocr.Result {
	n := len(composite.Ranges)
	texts := make([][]string, n)
	sums := make([]float64, n)
	counts := make([]int, n)

	if ann != nil {
		for _, page := range ann.Pages {
			for _, block := range page.Blocks {
				for _, para := range block.Paragraphs {
					for _, word := range para.Words {
						y, ok := topY(word)
						if !ok {
							continue
						}
						text := wordText(word)
						if text == "" {
							continue
						}
						i := composite.Owner(y)
						texts[i] = append(texts[i], text)
						sums[i] += word.Confidence
						counts[i]++
					}
				}
			}
		}
	}

	results := make([]ocr.Result, n)
	for i := range results {
		results[i].Text = strings.Join(texts[i], " ")
		if counts[i] > 0 {
			results[i].Confidence = sums[i] / float64(counts[i])
		}
	}
	return results
}

func topY(w *vision.Word) (int, bool) {
	if w == nil || w.BoundingBox == nil || len(w.BoundingBox.Vertices) == 0 || w.BoundingBox.Vertices[0] == nil {
		return 0, false
	}
	return int(w.BoundingBox.Vertices[0].Y), true
}

func wordText(w *vision.Word) string {
	var b strings.Builder
	for _, s := range w.Symbols {
		if s != nil {
			b.WriteString(s.Text)
		}
	}
	return b.String()
}
