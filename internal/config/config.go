package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/MeKo-Tech/docnorm/internal/corner"
	"github.com/MeKo-Tech/docnorm/internal/decode"
	"github.com/MeKo-Tech/docnorm/internal/ocr"
	"github.com/MeKo-Tech/docnorm/internal/onnx"
	"github.com/MeKo-Tech/docnorm/internal/pad"
)

const infoLevel = "info"

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() Config {
	return Config{
		LogLevel: infoLevel,
		Model: ModelConfig{
			Path:       "models/corners.onnx",
			NumThreads: 0,
			Threshold:  corner.DefaultThreshold,
			PadOffset:  pad.DefaultOffset,
			GPU:        onnx.DefaultGPUConfig(),
		},
		PDF: PDFConfig{
			Binary:     "pdftoppm",
			DPI:        decode.DefaultDPI,
			TimeoutSec: 120,
		},
		OCR: OCRConfig{
			Workers:           ocr.DefaultWorkers,
			RequestsPerSecond: 0,
			Burst:             1,
			DefaultEngine:     ocr.EngineTesseract,
			DefaultLang:       "en",
		},
		Engines: EnginesConfig{
			Tesseract: TesseractConfig{Enabled: true, Sessions: 2},
		},
		Server: ServerConfig{
			Host:              "localhost",
			Port:              8080,
			CORSOrigin:        "*",
			MaxUploadMB:       50,
			TimeoutSec:        120,
			ShutdownTimeout:   10,
			RequestsPerMinute: 60,
		},
	}
}

// Validate checks the configuration for values the components cannot run with.
func (c *Config) Validate() error {
	var errs []error

	switch strings.ToLower(c.LogLevel) {
	case "debug", infoLevel, "warn", "warning", "error":
	default:
		errs = append(errs, fmt.Errorf("invalid log level: %s", c.LogLevel))
	}

	if c.Model.Threshold <= 0 || c.Model.Threshold >= 1 {
		errs = append(errs, fmt.Errorf("model.threshold must be in (0,1), got %g", c.Model.Threshold))
	}
	if c.Model.NumThreads < 0 {
		errs = append(errs, fmt.Errorf("model.num_threads must be non-negative, got %d", c.Model.NumThreads))
	}
	if c.Model.PadOffset < 0 {
		errs = append(errs, fmt.Errorf("model.pad_offset must be non-negative, got %d", c.Model.PadOffset))
	}
	if err := onnx.ValidateGPUConfig(c.Model.GPU); err != nil {
		errs = append(errs, fmt.Errorf("model.gpu: %w", err))
	}

	if c.PDF.DPI <= 0 {
		errs = append(errs, fmt.Errorf("pdf.dpi must be positive, got %d", c.PDF.DPI))
	}

	if c.OCR.Workers <= 0 {
		errs = append(errs, fmt.Errorf("ocr.workers must be positive, got %d", c.OCR.Workers))
	}
	if c.OCR.RequestsPerSecond < 0 {
		errs = append(errs, fmt.Errorf("ocr.requests_per_second must be non-negative, got %g", c.OCR.RequestsPerSecond))
	}
	if _, err := ocr.ParseLanguage(c.OCR.DefaultLang); err != nil {
		errs = append(errs, fmt.Errorf("ocr.default_lang: %w", err))
	}
	if c.Engines.Tesseract.Enabled && c.Engines.Tesseract.Sessions <= 0 {
		errs = append(errs, fmt.Errorf("engines.tesseract.sessions must be positive, got %d", c.Engines.Tesseract.Sessions))
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port out of range: %d", c.Server.Port))
	}
	if c.Server.MaxUploadMB <= 0 {
		errs = append(errs, fmt.Errorf("server.max_upload_mb must be positive, got %d", c.Server.MaxUploadMB))
	}

	if c.Server.RequestsPerMinute < 0 || c.Server.MaxDataPerDayMB < 0 {
		errs = append(errs, errors.New("server rate limits must be non-negative"))
	}

	return errors.Join(errs...)
}

// Pricing converts configured per-token prices into an engine tariff.
func (g GenerativeConfig) Pricing() ocr.TokenPricing {
	return ocr.TokenPricing{Prompt: g.PromptPrice, Completion: g.CompletionPrice}
}
