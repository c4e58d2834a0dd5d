package support

import (
	"context"
	"errors"
	"strings"

	"github.com/MeKo-Tech/docnorm/internal/fields"
	"github.com/MeKo-Tech/docnorm/internal/ocr"
)

// namingEngine is a batch engine that reads back each range's height.
type namingEngine struct {
	price float64
}

func (e *namingEngine) Startup(context.Context, string) error { return nil }
func (e *namingEngine) Cleanup() error                        { return nil }

func (e *namingEngine) ExtractBatch(_ context.Context, c *fields.Composite) ([]ocr.Result, error) {
	out := make([]ocr.Result, len(c.Ranges))
	for i, r := range c.Ranges {
		out[i] = ocr.Result{Text: strings.Repeat("x", r.End-r.Start), Confidence: 0.9, Price: e.price}
	}
	return out, nil
}

// perFieldEngine answers with the upper-cased field name.
type perFieldEngine struct{}

func (e *perFieldEngine) Startup(context.Context, string) error { return nil }
func (e *perFieldEngine) Cleanup() error                        { return nil }
func (e *perFieldEngine) MaxConcurrency() int                   { return 1 }

func (e *perFieldEngine) ExtractField(_ context.Context, crop fields.Crop) (ocr.Result, error) {
	return ocr.Result{Text: strings.ToUpper(crop.Field.Name), Confidence: 1}, nil
}

// failingEngine fails every batch like an unreachable upstream.
type failingEngine struct{}

func (e *failingEngine) Startup(context.Context, string) error { return nil }
func (e *failingEngine) Cleanup() error                        { return nil }

func (e *failingEngine) ExtractBatch(context.Context, *fields.Composite) ([]ocr.Result, error) {
	return nil, errors.New("upstream unavailable")
}
