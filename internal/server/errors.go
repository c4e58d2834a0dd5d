package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/MeKo-Tech/docnorm/internal/decode"
	"github.com/MeKo-Tech/docnorm/internal/fields"
	"github.com/MeKo-Tech/docnorm/internal/normalize"
	"github.com/MeKo-Tech/docnorm/internal/ocr"
	"github.com/MeKo-Tech/docnorm/internal/raster"
)

// errBadRequest marks request validation failures found by the handlers.
var errBadRequest = errors.New("bad request")

// classify maps a pipeline error to an HTTP status and a stable error code.
// The most specific sentinel wins.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, decode.ErrUnsupportedMimeType):
		return http.StatusUnsupportedMediaType, "unsupported_mime_type"
	case errors.Is(err, normalize.ErrDocumentExtractionFailed):
		return http.StatusUnprocessableEntity, "document_extraction_failed"
	case errors.Is(err, ocr.ErrUnsupportedEngine):
		return http.StatusBadRequest, "unsupported_engine"
	case errors.Is(err, fields.ErrFieldOutOfBounds):
		return http.StatusBadRequest, "field_out_of_bounds"
	case errors.Is(err, fields.ErrInvalidLayout):
		return http.StatusBadRequest, "invalid_layout"
	case errors.Is(err, decode.ErrInvalidImage):
		return http.StatusBadRequest, "invalid_image"
	case errors.Is(err, raster.ErrInvalidDimensions):
		return http.StatusBadRequest, "invalid_dimensions"
	case errors.Is(err, errBadRequest):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, ocr.ErrRecognitionEngineFailure):
		return http.StatusBadGateway, "recognition_engine_failure"
	case errors.Is(err, decode.ErrRenderFailed):
		return http.StatusBadGateway, "render_failed"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "timeout"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

// writeError classifies err and writes the JSON error body.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := classify(err)
	if status >= http.StatusInternalServerError {
		slog.Error("Request failed", "path", r.URL.Path, "request_id", requestID(r.Context()), "error", err)
	} else {
		slog.Debug("Request rejected", "path", r.URL.Path, "status", status, "error", err)
	}
	writeJSON(w, status, ErrorResponse{Error: err.Error(), Code: code, RequestID: requestID(r.Context())})
}
