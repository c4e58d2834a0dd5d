// Package ocr dispatches cropped document fields to interchangeable text
// recognition engines and normalizes what they return.
//
// An engine declares what it can do by implementing BatchCapable (all fields
// in one call against a stacked composite) and/or PerFieldCapable (one call
// per crop). The Dispatcher branches on those capabilities, never on names.
package ocr

import (
	"context"

	"github.com/MeKo-Tech/docnorm/internal/fields"
)

// Engine names registered by the default build.
const (
	EngineTesseract    = "tesseract"
	EngineGoogleVision = "googleVision"
	EngineChatGPT      = "chatGpt"
	EngineGemini       = "gemini"
	EngineClaude       = "claude"
)

// Result is what an engine recognized for one field. Price is always set,
// zero for unmetered engines.
type Result struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
	Price      float64 `json:"price"`
}

// FieldResult pairs a result with the field it was produced for.
type FieldResult struct {
	Field  fields.Descriptor `json:"field"`
	Result Result            `json:"result"`
}

// Engine is the lifecycle every recognition engine has. Startup acquires
// whatever session the engine needs for lang; Cleanup releases it and is
// always called once Startup has been attempted.
type Engine interface {
	Startup(ctx context.Context, lang string) error
	Cleanup() error
}

// BatchCapable engines recognize every field in one call. The returned
// slice must have one entry per range of the composite, in order.
type BatchCapable interface {
	Engine
	ExtractBatch(ctx context.Context, composite *fields.Composite) ([]Result, error)
}

// PerFieldCapable engines recognize one crop at a time.
type PerFieldCapable interface {
	Engine
	ExtractField(ctx context.Context, crop fields.Crop) (Result, error)
}

// ConcurrencyLimiter is implemented by per-field engines that can serve
// fewer concurrent ExtractField calls than the dispatcher's worker count.
type ConcurrencyLimiter interface {
	MaxConcurrency() int
}
