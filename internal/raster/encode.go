package raster

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
)

// MIME types produced by the encoders.
const (
	MimePNG  = "image/png"
	MimeJPEG = "image/jpeg"
)

// EncodePNG serializes r as PNG.
func EncodePNG(r *Raster) ([]byte, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, r.NRGBA()); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// EncodeJPEG serializes r as JPEG with the given quality (1-100).
func EncodeJPEG(r *Raster, quality int) ([]byte, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, r.NRGBA(), &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}

// NRGBA copies r into an opaque *image.NRGBA.
func (r *Raster) NRGBA() *image.NRGBA {
	out := image.NewNRGBA(image.Rect(0, 0, r.Width, r.Height))
	for i, j := 0, 0; i < len(r.Pix); i, j = i+Channels, j+4 {
		out.Pix[j] = r.Pix[i]
		out.Pix[j+1] = r.Pix[i+1]
		out.Pix[j+2] = r.Pix[i+2]
		out.Pix[j+3] = 0xff
	}
	return out
}
