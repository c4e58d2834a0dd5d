package server

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image/color"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/docnorm/internal/fields"
	"github.com/MeKo-Tech/docnorm/internal/ocr"
	"github.com/MeKo-Tech/docnorm/internal/raster"
)

// fakeNormalizer returns a flat raster of the requested size, or err.
type fakeNormalizer struct {
	mu    sync.Mutex
	err   error
	calls int
	mime  string
}

func (f *fakeNormalizer) Normalize(_ context.Context, _ []byte, mimeType string, width, height int) (*raster.Raster, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.mime = mimeType
	if f.err != nil {
		return nil, f.err
	}
	return raster.NewFilled(width, height, color.RGBA{R: 255, G: 255, B: 255, A: 255})
}

func (f *fakeNormalizer) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// echoEngine answers every field with "<prefix>-<index>".
type echoEngine struct {
	prefix string
	price  float64
	err    error
}

func (e *echoEngine) Startup(context.Context, string) error { return nil }
func (e *echoEngine) Cleanup() error                        { return nil }

func (e *echoEngine) ExtractBatch(_ context.Context, c *fields.Composite) ([]ocr.Result, error) {
	if e.err != nil {
		return nil, e.err
	}
	out := make([]ocr.Result, len(c.Ranges))
	for i := range out {
		out[i] = ocr.Result{Text: fmt.Sprintf("%s-%d", e.prefix, i), Confidence: 0.9, Price: e.price}
	}
	return out, nil
}

func register(reg *ocr.Registry, name string, e *echoEngine) {
	reg.Register(name, func() (ocr.Engine, error) { return e, nil })
}

func newTestServer(t *testing.T, norm *fakeNormalizer, cfg Config) *Server {
	t.Helper()
	reg := ocr.NewRegistry()
	register(reg, "alpha", &echoEngine{prefix: "a", price: 0.01})
	register(reg, "beta", &echoEngine{prefix: "b"})
	register(reg, "broken", &echoEngine{err: errors.New("upstream 500")})

	if cfg.DefaultEngine == "" {
		cfg.DefaultEngine = "alpha"
	}
	s, err := New(cfg, norm, ocr.NewDispatcher(reg, ocr.WithObserver(MetricsObserver{})))
	require.NoError(t, err)
	return s
}

const testLayout = `{"name":"id-card","width":200,"height":100,"fields":[
 {"name":"surname","upper_left":[10,10],"lower_right":[110,30]},
 {"name":"address","upper_left":[10,40],"lower_right":[190,90],"is_multiline":true}]}`

// multipartBody builds a form with a document part and plain fields.
func multipartBody(t *testing.T, doc []byte, docType string, values map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	if doc != nil {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="document"; filename="doc"`)
		if docType != "" {
			h.Set("Content-Type", docType)
		}
		part, err := mw.CreatePart(h)
		require.NoError(t, err)
		_, err = part.Write(doc)
		require.NoError(t, err)
	}
	for k, v := range values {
		require.NoError(t, mw.WriteField(k, v))
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func newMultipartRequest(t *testing.T, target string, doc []byte, docType string, values map[string]string) *http.Request {
	t.Helper()
	body, ct := multipartBody(t, doc, docType, values)
	req, err := http.NewRequest(http.MethodPost, target, body)
	require.NoError(t, err)
	req.Header.Set("Content-Type", ct)
	return req
}

var pngMagic = []byte("\x89PNG\r\n\x1a\n")
