// Package chatgpt is a generative vision batch engine backed by the OpenAI
// chat completions API.
package chatgpt

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/MeKo-Tech/docnorm/internal/fields"
	"github.com/MeKo-Tech/docnorm/internal/ocr"
	"github.com/MeKo-Tech/docnorm/internal/raster"
)

// DefaultModel is used when Config.Model is empty.
const DefaultModel = "gpt-4o"

// DefaultPricing is the gpt-4o tariff in currency units per token.
var DefaultPricing = ocr.TokenPricing{Prompt: 5.0 / 1e6, Completion: 20.0 / 1e6}

// Config selects the account, endpoint and model.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	Pricing ocr.TokenPricing
}

// Engine sends the composite with the batch prompt in one completion.
type Engine struct {
	client  openai.Client
	model   string
	pricing ocr.TokenPricing
}

var _ ocr.BatchCapable = (*Engine)(nil)

// New builds an engine; the client is safe to share across requests.
func New(cfg Config) (*Engine, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("openai api key is not configured")
	}
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Pricing == (ocr.TokenPricing{}) {
		cfg.Pricing = DefaultPricing
	}
	return &Engine{
		client:  openai.NewClient(opts...),
		model:   cfg.Model,
		pricing: cfg.Pricing,
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

	parts := []openai.ChatCompletionContentPartUnionParam{
		openai.TextContentPart(ocr.BatchPrompt(n)),
		openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{
			URL: "data:" + raster.MimePNG + ";base64," + base64.StdEncoding.EncodeToString(data),
		}),
	}

	completion, err := e.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:    e.model,
		Messages: []openai.ChatCompletionMessageParamUnion{openai.UserMessage(parts)},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: chat completion: %w", ocr.ErrRecognitionEngineFailure, err)
	}

	price := ocr.SplitPrice(e.pricing.Cost(completion.Usage.PromptTokens, completion.Usage.CompletionTokens), n)

	var reply string
	if len(completion.Choices) > 0 {
		reply = completion.Choices[0].Message.Content
	}
	slog.Debug("ChatGPT reply", "model", e.model, "fields", n,
		"prompt_tokens", completion.Usage.PromptTokens, "completion_tokens", completion.Usage.CompletionTokens)

	return ocr.BatchResults(ocr.EngineChatGPT, reply, n, price), nil
}
