// Package normalize turns an uploaded document into a rectified raster in
// the pixel space a layout's fields are defined against.
//
// Images go decode -> pad -> corner detection -> perspective warp. PDFs are
// assumed to be rectified already and are only rendered and resized.
package normalize

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/disintegration/imaging"

	"github.com/MeKo-Tech/docnorm/internal/corner"
	"github.com/MeKo-Tech/docnorm/internal/decode"
	"github.com/MeKo-Tech/docnorm/internal/pad"
	"github.com/MeKo-Tech/docnorm/internal/raster"
	"github.com/MeKo-Tech/docnorm/internal/rectify"
)

// ErrDocumentExtractionFailed is returned when the document outline could
// not be found. It wraps corner.ErrCornerDetectionFailed.
var ErrDocumentExtractionFailed = errors.New("document extraction failed")

// Pipeline stages, used in StageError and logs.
const (
	StageDecode  = "decode"
	StagePad     = "pad"
	StageCorners = "corners"
	StageRectify = "rectify"
	StageResize  = "resize"
)

// StageError records which stage of the pipeline failed.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("normalize %s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// CornerLocator finds the document corners on a padded canvas.
// *corner.Detector implements it.
type CornerLocator interface {
	Detect(ctx context.Context, padded *raster.Raster) (corner.Corners, error)
}

// Result is the normalized raster plus what was learned on the way.
type Result struct {
	Raster *raster.Raster
	// Corners are the detected corners in source image space, in detector
	// channel order. Nil for PDFs.
	Corners *[corner.NumCorners]raster.ImagePoint
	// Rendered is true when the source was a PDF.
	Rendered bool
}

// Normalizer runs the pipeline. It is safe for concurrent use when its
// CornerLocator is.
type Normalizer struct {
	decoder   *decode.Decoder
	locator   CornerLocator
	padOffset int
	debugDir  string
}

// Option configures a Normalizer.
type Option func(*Normalizer)

// WithPadOffset overrides the replicated margin added around the squared image.
func WithPadOffset(offset int) Option {
	return func(n *Normalizer) { n.padOffset = offset }
}

// WithDebugDir enables PNG dumps of intermediate images into dir.
func WithDebugDir(dir string) Option {
	return func(n *Normalizer) { n.debugDir = dir }
}

// New builds a Normalizer.
func New(decoder *decode.Decoder, locator CornerLocator, opts ...Option) (*Normalizer, error) {
	if decoder == nil {
		return nil, errors.New("normalizer requires a decoder")
	}
	if locator == nil {
		return nil, errors.New("normalizer requires a corner locator")
	}
	n := &Normalizer{decoder: decoder, locator: locator, padOffset: pad.DefaultOffset}
	for _, opt := range opts {
		opt(n)
	}
	return n, nil
}

// Normalize returns a width x height raster of the document.
func (n *Normalizer) Normalize(ctx context.Context, data []byte, mimeType string, width, height int) (*raster.Raster, error) {
	res, err := n.Run(ctx, data, mimeType, width, height)
	if err != nil {
		return nil, err
	}
	return res.Raster, nil
}

// Run is Normalize with the detected corners attached.
func (n *Normalizer) Run(ctx context.Context, data []byte, mimeType string, width, height int) (*Result, error) {
	if !decode.Supported(mimeType) {
		return nil, &StageError{Stage: StageDecode, Err: fmt.Errorf("%w: %q", decode.ErrUnsupportedMimeType, mimeType)}
	}
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: target %dx%d", raster.ErrInvalidDimensions, width, height)
	}

	start := time.Now()
	src, err := n.decoder.Decode(ctx, data, mimeType)
	if err != nil {
		return nil, &StageError{Stage: StageDecode, Err: err}
	}

	var res *Result
	if decode.IsPDF(mimeType) {
		res, err = n.fill(src, width, height)
	} else {
		res, err = n.rectify(ctx, src, width, height)
	}
	if err != nil {
		return nil, err
	}

	slog.Debug("Document normalized",
		"mime", decode.Canonical(mimeType),
		"source_size", fmt.Sprintf("%dx%d", src.Width, src.Height),
		"target_size", fmt.Sprintf("%dx%d", width, height),
		"duration", time.Since(start))
	return res, nil
}

// fill resizes a rendered PDF page to the target size, ignoring aspect ratio.
func (n *Normalizer) fill(src *raster.Raster, width, height int) (*Result, error) {
	resized := imaging.Resize(src, width, height, imaging.Lanczos)
	out, err := raster.FromImage(resized)
	if err != nil {
		return nil, &StageError{Stage: StageResize, Err: err}
	}
	return &Result{Raster: out, Rendered: true}, nil
}

func (n *Normalizer) rectify(ctx context.Context, src *raster.Raster, width, height int) (*Result, error) {
	padded, err := pad.Square(src, n.padOffset)
	if err != nil {
		return nil, &StageError{Stage: StagePad, Err: err}
	}

	corners, err := n.locator.Detect(ctx, padded.Raster)
	if err != nil {
		if errors.Is(err, corner.ErrCornerDetectionFailed) {
			err = fmt.Errorf("%w: %w", ErrDocumentExtractionFailed, err)
		}
		return nil, &StageError{Stage: StageCorners, Err: err}
	}

	out, err := rectify.Rectify(padded.Raster, corners, width, height)
	if err != nil {
		return nil, &StageError{Stage: StageRectify, Err: err}
	}

	var imageCorners [corner.NumCorners]raster.ImagePoint
	for i, c := range corners {
		imageCorners[i] = c.Image(padded.Offset)
	}

	if n.debugDir != "" {
		if err := dumpCorners(n.debugDir, padded.Raster, corners, out); err != nil {
			slog.Warn("Failed to write debug images", "dir", n.debugDir, "error", err)
		}
	}

	return &Result{Raster: out, Corners: &imageCorners}, nil
}
