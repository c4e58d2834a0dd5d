package server

import (
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/MeKo-Tech/docnorm/internal/decode"
	"github.com/MeKo-Tech/docnorm/internal/fields"
	"github.com/MeKo-Tech/docnorm/internal/ocr"
	"github.com/MeKo-Tech/docnorm/internal/raster"
)

const (
	formDocument = "document"
	formLayout   = "layout"
	formWidth    = "width"
	formHeight   = "height"
)

func (s *Server) healthHandler(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:  "healthy",
		Version: s.cfg.Version,
		Time:    time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) enginesHandler(w http.ResponseWriter, _ *http.Request) {
	names := s.dispatcher.Registry().Names()
	writeJSON(w, http.StatusOK, EnginesResponse{Engines: names, Default: s.cfg.DefaultEngine, Count: len(names)})
}

// normalizeHandler returns the rectified document as PNG.
func (s *Server) normalizeHandler(w http.ResponseWriter, r *http.Request) {
	if err := s.parseForm(w, r); err != nil {
		writeError(w, r, err)
		return
	}
	data, mimeType, err := readDocument(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	width, err := positiveInt(r.FormValue(formWidth), formWidth)
	if err != nil {
		writeError(w, r, err)
		return
	}
	height, err := positiveInt(r.FormValue(formHeight), formHeight)
	if err != nil {
		writeError(w, r, err)
		return
	}

	start := time.Now()
	out, err := s.normalizer.Normalize(r.Context(), data, mimeType, width, height)
	observeNormalize(start, err)
	if err != nil {
		writeError(w, r, err)
		return
	}

	png, err := raster.EncodePNG(out)
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", raster.MimePNG)
	w.Header().Set("Content-Length", strconv.Itoa(len(png)))
	if _, err := w.Write(png); err != nil {
		slog.Debug("Failed to write normalized image", "error", err)
	}
}

// extractHandler normalizes the document to the layout size and runs the
// requested engines over its fields.
func (s *Server) extractHandler(w http.ResponseWriter, r *http.Request) {
	if err := s.parseForm(w, r); err != nil {
		writeError(w, r, err)
		return
	}
	data, mimeType, err := readDocument(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	layout, err := readLayout(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	engines, lang, err := s.engineParams(r.URL.Query().Get("engines"), r.URL.Query().Get("lang"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	width, height := layout.Dimensions()
	start := time.Now()
	normalized, err := s.normalizer.Normalize(r.Context(), data, mimeType, width, height)
	observeNormalize(start, err)
	if err != nil {
		writeError(w, r, err)
		return
	}

	results, err := s.dispatcher.ExtractAll(r.Context(), normalized, layout.Fields, engines, lang)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, ExtractResponse{
		RequestID:  requestID(r.Context()),
		Width:      width,
		Height:     height,
		Lang:       lang,
		Results:    results,
		TotalPrice: totalPrice(results),
	})
}

func (s *Server) parseForm(w http.ResponseWriter, r *http.Request) error {
	limit := s.cfg.MaxUploadMB << 20
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	if err := r.ParseMultipartForm(limit); err != nil {
		return fmt.Errorf("%w: parse multipart form: %w", errBadRequest, err)
	}
	return nil
}

// readDocument returns the uploaded bytes and their declared MIME type.
// Parts without a useful Content-Type are sniffed.
func readDocument(r *http.Request) ([]byte, string, error) {
	file, header, err := r.FormFile(formDocument)
	if err != nil {
		return nil, "", fmt.Errorf("%w: missing %q file", errBadRequest, formDocument)
	}
	defer func() { _ = file.Close() }()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, "", fmt.Errorf("%w: read document: %w", errBadRequest, err)
	}
	if len(data) == 0 {
		return nil, "", fmt.Errorf("%w: empty document", errBadRequest)
	}
	uploadSizeBytes.Observe(float64(len(data)))

	return data, documentType(header, data), nil
}

func documentType(header *multipart.FileHeader, data []byte) string {
	mt := decode.Canonical(header.Header.Get("Content-Type"))
	if mt == "" || mt == "application/octet-stream" {
		return decode.Sniff(data)
	}
	return mt
}

// readLayout accepts the layout either as a form field holding JSON or as
// an uploaded .json/.yaml file.
func readLayout(r *http.Request) (*fields.Layout, error) {
	var (
		data   []byte
		format = "json"
	)
	if v := r.FormValue(formLayout); v != "" {
		data = []byte(v)
	} else {
		file, header, err := r.FormFile(formLayout)
		if err != nil {
			return nil, fmt.Errorf("%w: missing %q", errBadRequest, formLayout)
		}
		defer func() { _ = file.Close() }()
		if data, err = io.ReadAll(file); err != nil {
			return nil, fmt.Errorf("%w: read layout: %w", errBadRequest, err)
		}
		format = filepath.Ext(header.Filename)
	}

	layout, err := fields.ParseLayout(data, format)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", fields.ErrInvalidLayout, err)
	}
	if err := layout.Validate(); err != nil {
		return nil, err
	}
	return layout, nil
}

// engineParams resolves the engine list and language, falling back to the
// configured defaults. Unknown engines are rejected here so nothing is
// normalized or started for a request that cannot complete.
func (s *Server) engineParams(enginesParam, langParam string) ([]string, string, error) {
	engines := splitList(enginesParam)
	if len(engines) == 0 {
		engines = []string{s.cfg.DefaultEngine}
	}
	if err := s.dispatcher.Registry().Check(engines...); err != nil {
		return nil, "", err
	}

	lang := strings.TrimSpace(langParam)
	if lang == "" {
		lang = s.cfg.DefaultLang
	}
	if _, err := ocr.ParseLanguage(lang); err != nil {
		return nil, "", fmt.Errorf("%w: %w", errBadRequest, err)
	}
	return engines, lang, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func positiveInt(v, name string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer", errBadRequest, name)
	}
	if n <= 0 {
		return 0, fmt.Errorf("%w: %s must be positive", raster.ErrInvalidDimensions, name)
	}
	return n, nil
}

func totalPrice(results []ocr.EngineResults) float64 {
	var total float64
	for _, r := range results {
		for _, f := range r.OCR {
			total += f.Result.Price
		}
	}
	return total
}

