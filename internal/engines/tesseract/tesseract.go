// Package tesseract is the local, per-field recognition engine backed by
// libtesseract through gosseract.
package tesseract

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/otiai10/gosseract/v2"

	"github.com/MeKo-Tech/docnorm/internal/fields"
	"github.com/MeKo-Tech/docnorm/internal/ocr"
	"github.com/MeKo-Tech/docnorm/internal/raster"
)

// Config tunes the engine.
type Config struct {
	// Sessions caps how many tesseract clients one request may open.
	Sessions int
	// TessdataPrefix overrides TESSDATA_PREFIX when set.
	TessdataPrefix string
}

// Engine recognizes one crop at a time. Each concurrent call borrows its
// own gosseract client from a pool created at Startup.
type Engine struct {
	cfg       Config
	newClient func() *gosseract.Client

	mu      sync.Mutex
	langs   []string
	idle    chan *gosseract.Client
	all     []*gosseract.Client
	started bool
}

var (
	_ ocr.PerFieldCapable    = (*Engine)(nil)
	_ ocr.ConcurrencyLimiter = (*Engine)(nil)
)

// New returns an engine that has not been started.
func New(cfg Config) *Engine {
	if cfg.Sessions <= 0 {
		cfg.Sessions = 2
	}
	return &Engine{cfg: cfg, newClient: gosseract.NewClient}
}

// Factory adapts New to the registry.
func Factory(cfg Config) ocr.Factory {
	return func() (ocr.Engine, error) { return New(cfg), nil }
}

// MaxConcurrency is the session cap.
func (e *Engine) MaxConcurrency() int { return e.cfg.Sessions }

// Startup resolves lang to traineddata names.
func (e *Engine) Startup(_ context.Context, lang string) error {
	langs, err := ocr.TesseractLanguages(lang)
	if err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.langs = langs
	e.idle = make(chan *gosseract.Client, e.cfg.Sessions)
	e.started = true
	return nil
}

// Cleanup closes every client the request opened.
func (e *Engine) Cleanup() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	var errs []error
	for _, c := range e.all {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	e.all = nil
	e.idle = nil
	e.started = false
	return errors.Join(errs...)
}

func (e *Engine) acquire() (*gosseract.Client, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.started {
		return nil, errors.New("tesseract engine not started")
	}
	select {
	case c := <-e.idle:
		return c, nil
	default:
	}
	c := e.newClient()
	if e.cfg.TessdataPrefix != "" {
		c.TessdataPrefix = e.cfg.TessdataPrefix
	}
	if err := c.SetLanguage(e.langs...); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("set language %v: %w", e.langs, err)
	}
	e.all = append(e.all, c)
	return c, nil
}

func (e *Engine) release(c *gosseract.Client) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.idle == nil {
		return
	}
	select {
	case e.idle <- c:
	default:
	}
}

// ExtractField recognizes one crop. Single-line fields use the single line
// page segmentation mode.
func (e *Engine) ExtractField(ctx context.Context, crop fields.Crop) (ocr.Result, error) {
	if err := ctx.Err(); err != nil {
		return ocr.Result{}, err
	}
	data, err := raster.EncodePNG(crop.Raster)
	if err != nil {
		return ocr.Result{}, err
	}

	c, err := e.acquire()
	if err != nil {
		return ocr.Result{}, err
	}
	defer e.release(c)

	if err := c.SetPageSegMode(pageSegMode(crop.Field.IsMultiline)); err != nil {
		return ocr.Result{}, fmt.Errorf("%w: set page seg mode: %w", ocr.ErrRecognitionEngineFailure, err)
	}
	if err := c.SetImageFromBytes(data); err != nil {
		return ocr.Result{}, fmt.Errorf("%w: set image: %w", ocr.ErrRecognitionEngineFailure, err)
	}
	text, err := c.Text()
	if err != nil {
		return ocr.Result{}, fmt.Errorf("%w: recognize: %w", ocr.ErrRecognitionEngineFailure, err)
	}

	var conf float64
	if boxes, err := c.GetBoundingBoxes(gosseract.RIL_WORD); err == nil {
		conf = meanConfidence(boxes)
	}
	return ocr.Result{Text: strings.TrimSpace(text), Confidence: conf}, nil
}

func pageSegMode(multiline bool) gosseract.PageSegMode {
	if multiline {
		return gosseract.PSM_SINGLE_BLOCK
	}
	return gosseract.PSM_SINGLE_LINE
}

// meanConfidence averages word confidences and scales them to [0,1].
func meanConfidence(boxes []gosseract.BoundingBox) float64 {
	if len(boxes) == 0 {
		return 0
	}
	var sum float64
	for _, b := range boxes {
		sum += b.Confidence
	}
	return sum / float64(len(boxes)) / 100
}
