// Package decode turns an uploaded document buffer into a single page raster.
package decode

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg" // register decoders
	_ "image/png"
	"log/slog"
	"mime"
	"net/http"
	"strings"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/MeKo-Tech/docnorm/internal/raster"
)

// Accepted MIME types.
const (
	MimePDF  = "application/pdf"
	MimeJPEG = raster.MimeJPEG
	MimePNG  = raster.MimePNG
)

var (
	// ErrUnsupportedMimeType is returned for any declared type other than
	// PDF, JPEG or PNG.
	ErrUnsupportedMimeType = errors.New("unsupported mime type")
	// ErrInvalidImage is returned when the bytes cannot be decoded.
	ErrInvalidImage = errors.New("invalid image data")
)

// PageRenderer rasterizes the first page of a PDF.
type PageRenderer interface {
	RenderFirstPage(ctx context.Context, pdf []byte) (image.Image, error)
}

// Decoder converts raw bytes of a declared MIME type into a Raster.
type Decoder struct {
	renderer PageRenderer
}

// NewDecoder returns a Decoder that hands PDFs to renderer.
func NewDecoder(renderer PageRenderer) *Decoder {
	return &Decoder{renderer: renderer}
}

// Canonical strips parameters and case from a Content-Type value.
func Canonical(mimeType string) string {
	mt, _, err := mime.ParseMediaType(mimeType)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(mimeType))
	}
	return mt
}

// Supported reports whether mimeType is accepted by Decode.
func Supported(mimeType string) bool {
	switch Canonical(mimeType) {
	case MimePDF, MimeJPEG, MimePNG:
		return true
	}
	return false
}

// IsPDF reports whether mimeType names a PDF.
func IsPDF(mimeType string) bool { return Canonical(mimeType) == MimePDF }

// Sniff guesses the MIME type of data from its leading bytes.
func Sniff(data []byte) string {
	return Canonical(http.DetectContentType(data))
}

// Decode produces the page raster. The MIME type is checked before the
// data is touched.
func (d *Decoder) Decode(ctx context.Context, data []byte, mimeType string) (*raster.Raster, error) {
	mt := Canonical(mimeType)
	if !Supported(mt) {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedMimeType, mimeType)
	}

	var (
		img image.Image
		err error
	)
	if mt == MimePDF {
		if d.renderer == nil {
			return nil, fmt.Errorf("%w: no pdf renderer configured", ErrRenderFailed)
		}
		img, err = d.renderer.RenderFirstPage(ctx, data)
		if err != nil {
			return nil, err
		}
	} else {
		var format string
		img, format, err = image.Decode(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidImage, err)
		}
		slog.Debug("Decoded image", "declared", mt, "format", format)
	}

	return raster.FromImage(img)
}
