// Package engines wires the configured recognition engines into an
// ocr.Registry.
package engines

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/MeKo-Tech/docnorm/internal/config"
	"github.com/MeKo-Tech/docnorm/internal/engines/chatgpt"
	"github.com/MeKo-Tech/docnorm/internal/engines/claude"
	"github.com/MeKo-Tech/docnorm/internal/engines/gemini"
	"github.com/MeKo-Tech/docnorm/internal/engines/googlevision"
	"github.com/MeKo-Tech/docnorm/internal/engines/tesseract"
	"github.com/MeKo-Tech/docnorm/internal/ocr"
)

// Register adds every engine cfg enables. Tesseract is registered when
// enabled; remote engines only when an API key is configured.
func Register(ctx context.Context, reg *ocr.Registry, cfg config.EnginesConfig) error {
	if cfg.Tesseract.Enabled {
		reg.Register(ocr.EngineTesseract, tesseract.Factory(tesseract.Config{
			Sessions:       cfg.Tesseract.Sessions,
			TessdataPrefix: cfg.Tesseract.TessdataPrefix,
		}))
	}

	if c := cfg.GoogleVision; c.APIKey != "" {
		svc, err := googlevision.NewService(ctx, googlevision.Config{APIKey: c.APIKey, Endpoint: c.Endpoint})
		if err != nil {
			return fmt.Errorf("register %s: %w", ocr.EngineGoogleVision, err)
		}
		reg.Register(ocr.EngineGoogleVision, googlevision.Factory(svc))
	}

	if c := cfg.ChatGPT; c.APIKey != "" {
		e, err := chatgpt.New(chatgpt.Config{APIKey: c.APIKey, BaseURL: c.BaseURL, Model: c.Model, Pricing: c.Pricing()})
		if err != nil {
			return fmt.Errorf("register %s: %w", ocr.EngineChatGPT, err)
		}
		reg.Register(ocr.EngineChatGPT, chatgpt.Factory(e))
	}

	if c := cfg.Gemini; c.APIKey != "" {
		e, err := gemini.New(ctx, gemini.Config{APIKey: c.APIKey, BaseURL: c.BaseURL, Model: c.Model, Pricing: c.Pricing()})
		if err != nil {
			return fmt.Errorf("register %s: %w", ocr.EngineGemini, err)
		}
		reg.Register(ocr.EngineGemini, gemini.Factory(e))
	}

	if c := cfg.Claude; c.APIKey != "" {
		e, err := claude.New(claude.Config{APIKey: c.APIKey, BaseURL: c.BaseURL, Model: c.Model, Pricing: c.Pricing()})
		if err != nil {
			return fmt.Errorf("register %s: %w", ocr.EngineClaude, err)
		}
		reg.Register(ocr.EngineClaude, claude.Factory(e))
	}

	slog.Debug("Recognition engines registered", "engines", reg.Names())
	return nil
}
