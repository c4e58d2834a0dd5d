package server

import (
	"github.com/MeKo-Tech/docnorm/internal/fields"
	"github.com/MeKo-Tech/docnorm/internal/ocr"
)

type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
	Time    string `json:"time"`
}

type EnginesResponse struct {
	Engines []string `json:"engines"`
	Default string   `json:"default"`
	Count   int      `json:"count"`
}

// ExtractResponse is the body of POST /v1/extract.
type ExtractResponse struct {
	RequestID  string              `json:"request_id"`
	Width      int                 `json:"width"`
	Height     int                 `json:"height"`
	Lang       string              `json:"lang"`
	Results    []ocr.EngineResults `json:"results"`
	TotalPrice float64             `json:"total_price"`
}

type ErrorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code"`
	RequestID string `json:"request_id,omitempty"`
}

// ExtractMessage is the websocket request. Document carries the raw bytes
// (base64 in JSON).
type ExtractMessage struct {
	Document []byte        `json:"document"`
	MimeType string        `json:"mime_type,omitempty"`
	Layout   fields.Layout `json:"layout"`
	Engines  []string      `json:"engines,omitempty"`
	Lang     string        `json:"lang,omitempty"`
}

// Websocket reply types.
const (
	EventAccepted     = "accepted"
	EventNormalized   = "normalized"
	EventEngineResult = "engine_result"
	EventCompleted    = "completed"
	EventError        = "error"
)

// ExtractEvent is one websocket reply.
type ExtractEvent struct {
	Type       string             `json:"type"`
	RequestID  string             `json:"request_id"`
	Width      int                `json:"width,omitempty"`
	Height     int                `json:"height,omitempty"`
	Result     *ocr.EngineResults `json:"result,omitempty"`
	TotalPrice float64            `json:"total_price,omitempty"`
	Error      string             `json:"error,omitempty"`
	Code       string             `json:"code,omitempty"`
}
