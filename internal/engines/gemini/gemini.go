// Package gemini is a generative vision batch engine backed by the Gemini API.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"google.golang.org/genai"

	"github.com/MeKo-Tech/docnorm/internal/fields"
	"github.com/MeKo-Tech/docnorm/internal/ocr"
	"github.com/MeKo-Tech/docnorm/internal/raster"
)

// DefaultModel is used when Config.Model is empty.
const DefaultModel = "gemini-2.5-flash"

// DefaultPricing is the gemini-2.5-flash tariff in currency units per token.
var DefaultPricing = ocr.TokenPricing{Prompt: 0.30 / 1e6, Completion: 2.50 / 1e6}

// Config selects the API key, endpoint and model.
type Config struct {
	APIKey     string
	BaseURL    string
	Model      string
	Pricing    ocr.TokenPricing
	HTTPClient *http.Client
}

// Engine sends the composite as inline PNG data next to the batch prompt.
type Engine struct {
	client  *genai.Client
	model   string
	pricing ocr.TokenPricing
}

var _ ocr.BatchCapable = (*Engine)(nil)

// New builds an engine on a Gemini API client shared across requests.
func New(ctx context.Context, cfg Config) (*Engine, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("gemini api key is not configured")
	}
	cc := &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: cfg.HTTPClient,
	}
	if cfg.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Pricing == (ocr.TokenPricing{}) {
		cfg.Pricing = DefaultPricing
	}
	return &Engine{client: client, model: cfg.Model, pricing: cfg.Pricing}, nil
}

// Factory returns e for every request; it holds no per-request state.
func Factory(e *Engine) ocr.Factory {
	return func() (ocr.Engine, error) { return e, nil }
}

// Startup is a no-op.
func (e *Engine) Startup(context.Context, string) error { return nil }

// Cleanup is a no-op.
func (e *Engine) Cleanup() error { return nil }

// ExtractBatch asks the model for a JSON array with one entry per field.
func (e *Engine) ExtractBatch(ctx context.Context, composite *fields.Composite) ([]ocr.Result, error) {
	data, err := raster.EncodePNG(composite.Raster)
	if err != nil {
		return nil, err
	}
	n := len(composite.Ranges)

	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromText(ocr.BatchPrompt(n)),
			{InlineData: &genai.Blob{MIMEType: raster.MimePNG, Data: data}},
		}, genai.RoleUser),
	}

	resp, err := e.client.Models.GenerateContent(ctx, e.model, contents, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: generate content: %w", ocr.ErrRecognitionEngineFailure, err)
	}

	var price float64
	if u := resp.UsageMetadata; u != nil {
		price = ocr.SplitPrice(e.pricing.Cost(int64(u.PromptTokenCount), int64(u.CandidatesTokenCount)), n)
	}
	slog.Debug("Gemini reply", "model", e.model, "fields", n, "price", price)

	return ocr.BatchResults(ocr.EngineGemini, resp.Text(), n, price), nil
}
