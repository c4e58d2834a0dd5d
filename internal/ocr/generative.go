package ocr

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
)

// BatchPrompt is the instruction sent with a stacked composite to
// generative vision engines.
func BatchPrompt(fieldCount int) string {
	return fmt.Sprintf("The image contains %d cropped text fields stacked from top to bottom and separated by green background. "+
		"Empty fields are possible. Return a JSON array where each element corresponds to one field, in this format: "+
		`{"text": "...", "confidence": number}. Return only the JSON array.`, fieldCount)
}

// TokenPricing is a per-token tariff.
type TokenPricing struct {
	Prompt     float64
	Completion float64
}

// Cost prices one call.
func (p TokenPricing) Cost(promptTokens, completionTokens int64) float64 {
	return float64(promptTokens)*p.Prompt + float64(completionTokens)*p.Completion
}

// SplitPrice divides a call's cost evenly over its fields.
func SplitPrice(total float64, fieldCount int) float64 {
	if fieldCount <= 0 || total <= 0 {
		return 0
	}
	return total / float64(fieldCount)
}

type fieldAnswer struct {
	Text       *string  `json:"text"`
	Confidence *float64 `json:"confidence"`
}

// stripFences removes markdown code fences around a model reply.
func stripFences(raw string) string {
	s := strings.ReplaceAll(raw, "```json", "")
	s = strings.ReplaceAll(s, "```", "")
	return strings.TrimSpace(s)
}

// ParseFieldArray decodes a generative engine's JSON array reply into
// exactly fieldCount results. Entries that are missing or malformed stay
// empty with zero confidence. A reply that is not a JSON array at all
// returns an ErrRecognitionEngineFailure along with the all-empty results.
func ParseFieldArray(raw string, fieldCount int) ([]Result, error) {
	results := make([]Result, fieldCount)

	var items []json.RawMessage
	if err := json.Unmarshal([]byte(stripFences(raw)), &items); err != nil {
		return results, fmt.Errorf("%w: reply is not a JSON array: %w", ErrRecognitionEngineFailure, err)
	}

	for i := range min(len(items), fieldCount) {
		var a fieldAnswer
		if err := json.Unmarshal(items[i], &a); err != nil {
			continue
		}
		if a.Text != nil {
			results[i].Text = *a.Text
		}
		if a.Confidence != nil {
			results[i].Confidence = *a.Confidence
		}
	}
	return results, nil
}

// BatchResults is ParseFieldArray with the degraded fallback applied: a
// malformed reply is logged and yields empty results instead of an error.
// Every result carries pricePerField.
func BatchResults(engine, raw string, fieldCount int, pricePerField float64) []Result {
	results, err := ParseFieldArray(raw, fieldCount)
	if err != nil {
		slog.Warn("Malformed engine reply, returning empty fields",
			"engine", engine, "fields", fieldCount, "error", err)
	}
	for i := range results {
		results[i].Price = pricePerField
	}
	return results
}
