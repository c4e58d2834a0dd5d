// Package claude is a generative vision batch engine backed by the
// Anthropic messages API.
package claude

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/MeKo-Tech/docnorm/internal/fields"
	"github.com/MeKo-Tech/docnorm/internal/ocr"
	"github.com/MeKo-Tech/docnorm/internal/raster"
)

// Defaults used when the matching Config field is empty.
const (
	DefaultModel     = "claude-sonnet-4-5"
	DefaultMaxTokens = 2048
)

// DefaultPricing is the Sonnet tariff in currency units per token.
var DefaultPricing = ocr.TokenPricing{Prompt: 3.0 / 1e6, Completion: 15.0 / 1e6}

// Config selects the API key, endpoint, model and reply budget.
type Config struct {
	APIKey    string
	BaseURL   string
	Model     string
	MaxTokens int64
	Pricing   ocr.TokenPricing
}

// Engine sends the composite as a base64 image block ahead of the batch prompt.
type Engine struct {
	client    anthropic.Client
	model     string
	maxTokens int64
	pricing   ocr.TokenPricing
}

var _ ocr.BatchCapable = (*Engine)(nil)

// New builds an engine; the client is safe to share across requests.
func New(cfg Config) (*Engine, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("anthropic api key is not configured")
	}
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}
	if cfg.Pricing == (ocr.TokenPricing{}) {
		cfg.Pricing = DefaultPricing
	}
	return &Engine{
		client:    anthropic.NewClient(opts...),
		model:     cfg.Model,
		maxTokens: cfg.MaxTokens,
		pricing:   cfg.Pricing,
	}, nil
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

	message, err := e.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(e.model),
		MaxTokens: e.maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(
				anthropic.NewImageBlock(anthropic.Base64ImageSourceParam{
					Data:      base64.StdEncoding.EncodeToString(data),
					MediaType: anthropic.Base64ImageSourceMediaType(raster.MimePNG),
				}),
				anthropic.NewTextBlock(ocr.BatchPrompt(n)),
			),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: create message: %w", ocr.ErrRecognitionEngineFailure, err)
	}

	var reply strings.Builder
	for _, block := range message.Content {
		if block.Type == "text" {
			reply.WriteString(block.Text)
		}
	}

	price := ocr.SplitPrice(e.pricing.Cost(message.Usage.InputTokens, message.Usage.OutputTokens), n)
	slog.Debug("Claude reply", "model", e.model, "fields", n, "stop_reason", message.StopReason, "price", price)

	return ocr.BatchResults(ocr.EngineClaude, reply.String(), n, price), nil
}
