package cmd

import (
	"context"
	"log/slog"
	"mime"
	"path/filepath"
	"time"

	"github.com/MeKo-Tech/docnorm/internal/config"
	"github.com/MeKo-Tech/docnorm/internal/corner"
	"github.com/MeKo-Tech/docnorm/internal/decode"
	"github.com/MeKo-Tech/docnorm/internal/engines"
	"github.com/MeKo-Tech/docnorm/internal/normalize"
	"github.com/MeKo-Tech/docnorm/internal/ocr"
	"github.com/MeKo-Tech/docnorm/internal/onnx"
)

// buildNormalizer initializes ONNX Runtime, loads the corner model and
// assembles the normalizer. The returned func releases both.
func buildNormalizer(cfg *config.Config) (*normalize.Normalizer, func(), error) {
	if err := onnx.Init(onnx.EnvConfig{LibraryPath: cfg.Model.LibraryPath, GPU: cfg.Model.GPU}); err != nil {
		return nil, nil, err
	}

	model, err := corner.NewONNXModel(corner.SessionConfig{
		ModelPath:  cfg.Model.Path,
		NumThreads: cfg.Model.NumThreads,
		GPU:        cfg.Model.GPU,
	})
	if err != nil {
		_ = onnx.Shutdown()
		return nil, nil, err
	}
	release := func() {
		if err := model.Close(); err != nil {
			slog.Warn("Failed to close corner model", "error", err)
		}
		if err := onnx.Shutdown(); err != nil {
			slog.Warn("Failed to shut down ONNX Runtime", "error", err)
		}
	}

	detector, err := corner.NewDetector(model, corner.WithThreshold(cfg.Model.Threshold))
	if err != nil {
		release()
		return nil, nil, err
	}

	renderer := decode.NewPopplerRenderer(cfg.PDF.Binary, cfg.PDF.DPI)
	if cfg.PDF.TimeoutSec > 0 {
		renderer.Timeout = time.Duration(cfg.PDF.TimeoutSec) * time.Second
	}

	opts := []normalize.Option{normalize.WithPadOffset(cfg.Model.PadOffset)}
	if cfg.DebugDir != "" {
		opts = append(opts, normalize.WithDebugDir(cfg.DebugDir))
	}
	n, err := normalize.New(decode.NewDecoder(renderer), detector, opts...)
	if err != nil {
		release()
		return nil, nil, err
	}
	return n, release, nil
}

// buildDispatcher registers the configured engines.
func buildDispatcher(ctx context.Context, cfg *config.Config, extra ...ocr.Option) (*ocr.Dispatcher, error) {
	reg := ocr.NewRegistry()
	if err := engines.Register(ctx, reg, cfg.Engines); err != nil {
		return nil, err
	}
	opts := []ocr.Option{
		ocr.WithWorkers(cfg.OCR.Workers),
		ocr.WithRateLimit(cfg.OCR.RequestsPerSecond, cfg.OCR.Burst),
	}
	return ocr.NewDispatcher(reg, append(opts, extra...)...), nil
}

// documentType infers the MIME type from the file extension, falling back
// to content sniffing.
func documentType(path string, data []byte) string {
	if mt := decode.Canonical(mime.TypeByExtension(filepath.Ext(path))); mt != "" {
		return mt
	}
	return decode.Sniff(data)
}
