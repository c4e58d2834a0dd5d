// Package raster holds the owned 3-channel pixel buffer passed between
// normalization stages, plus the coordinate types used to address it.
package raster

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
)

// Channels is the number of interleaved 8-bit channels per pixel (R, G, B).
const Channels = 3

// ErrInvalidDimensions is returned when a raster would have a non-positive size
// or a buffer that does not match its size.
var ErrInvalidDimensions = errors.New("invalid raster dimensions")

// Raster is an owned, row-major RGB buffer. len(Pix) == Width*Height*Channels.
//
// Stages never mutate a Raster they received; they return a new one.
// Raster implements image.Image so it can be handed to imaging and draw.
type Raster struct {
	Pix    []uint8
	Width  int
	Height int
}

// New allocates a black raster of the given size.
func New(width, height int) (*Raster, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidDimensions, width, height)
	}
	return &Raster{
		Pix:    make([]uint8, width*height*Channels),
		Width:  width,
		Height: height,
	}, nil
}

// NewFilled allocates a raster filled with a single color.
func NewFilled(width, height int, c color.RGBA) (*Raster, error) {
	r, err := New(width, height)
	if err != nil {
		return nil, err
	}
	for i := 0; i < len(r.Pix); i += Channels {
		r.Pix[i] = c.R
		r.Pix[i+1] = c.G
		r.Pix[i+2] = c.B
	}
	return r, nil
}

// FromImage copies img into a new raster. Pixels with alpha are composited
// against an opaque white background.
func FromImage(img image.Image) (*Raster, error) {
	if img == nil {
		return nil, errors.New("nil image")
	}
	b := img.Bounds()
	r, err := New(b.Dx(), b.Dy())
	if err != nil {
		return nil, err
	}

	// Fast paths for the types imaging and the std decoders produce.
	switch src := img.(type) {
	case *Raster:
		copy(r.Pix, src.Pix)
		return r, nil
	case *image.NRGBA:
		fromNRGBA(r, src)
		return r, nil
	}

	// Generic path: draw over white so transparent regions become white.
	canvas := image.NewRGBA(image.Rect(0, 0, r.Width, r.Height))
	draw.Draw(canvas, canvas.Bounds(), image.White, image.Point{}, draw.Src)
	draw.Draw(canvas, canvas.Bounds(), img, b.Min, draw.Over)
	for y := range r.Height {
		row := canvas.Pix[y*canvas.Stride:]
		for x := range r.Width {
			si := x * 4
			di := (y*r.Width + x) * Channels
			r.Pix[di] = row[si]
			r.Pix[di+1] = row[si+1]
			r.Pix[di+2] = row[si+2]
		}
	}
	return r, nil
}

func fromNRGBA(dst *Raster, src *image.NRGBA) {
	for y := range dst.Height {
		row := src.Pix[y*src.Stride:]
		for x := range dst.Width {
			si := x * 4
			di := (y*dst.Width + x) * Channels
			a := uint32(row[si+3])
			if a == 255 {
				dst.Pix[di] = row[si]
				dst.Pix[di+1] = row[si+1]
				dst.Pix[di+2] = row[si+2]
				continue
			}
			// c*a + 255*(1-a), in 8-bit fixed point
			for c := range Channels {
				v := (uint32(row[si+c])*a + 255*(255-a) + 127) / 255
				dst.Pix[di+c] = uint8(v)
			}
		}
	}
}

// Validate checks the buffer invariant.
func (r *Raster) Validate() error {
	if r == nil {
		return fmt.Errorf("%w: nil raster", ErrInvalidDimensions)
	}
	if r.Width <= 0 || r.Height <= 0 || len(r.Pix) != r.Width*r.Height*Channels {
		return fmt.Errorf("%w: %dx%d with %d bytes", ErrInvalidDimensions, r.Width, r.Height, len(r.Pix))
	}
	return nil
}

// Clone returns a deep copy.
func (r *Raster) Clone() *Raster {
	pix := make([]uint8, len(r.Pix))
	copy(pix, r.Pix)
	return &Raster{Pix: pix, Width: r.Width, Height: r.Height}
}

// PixOffset returns the index of the first byte of pixel (x, y).
func (r *Raster) PixOffset(x, y int) int {
	return (y*r.Width + x) * Channels
}

// RGB returns the channels of pixel (x, y). The caller guarantees bounds.
func (r *Raster) RGB(x, y int) (uint8, uint8, uint8) {
	i := r.PixOffset(x, y)
	return r.Pix[i], r.Pix[i+1], r.Pix[i+2]
}

// SetRGB writes pixel (x, y). The caller guarantees bounds.
func (r *Raster) SetRGB(x, y int, red, green, blue uint8) {
	i := r.PixOffset(x, y)
	r.Pix[i] = red
	r.Pix[i+1] = green
	r.Pix[i+2] = blue
}

// ColorModel implements image.Image.
func (r *Raster) ColorModel() color.Model { return color.RGBAModel }

// Bounds implements image.Image.
func (r *Raster) Bounds() image.Rectangle { return image.Rect(0, 0, r.Width, r.Height) }

// At implements image.Image.
func (r *Raster) At(x, y int) color.Color {
	if x < 0 || y < 0 || x >= r.Width || y >= r.Height {
		return color.RGBA{}
	}
	red, green, blue := r.RGB(x, y)
	return color.RGBA{R: red, G: green, B: blue, A: 255}
}

// SubRaster copies the rectangle rect out of r.
func (r *Raster) SubRaster(rect image.Rectangle) (*Raster, error) {
	if rect.Empty() || !rect.In(r.Bounds()) {
		return nil, fmt.Errorf("%w: %v outside %v", ErrInvalidDimensions, rect, r.Bounds())
	}
	out, err := New(rect.Dx(), rect.Dy())
	if err != nil {
		return nil, err
	}
	rowBytes := out.Width * Channels
	for y := range out.Height {
		si := r.PixOffset(rect.Min.X, rect.Min.Y+y)
		copy(out.Pix[y*rowBytes:(y+1)*rowBytes], r.Pix[si:si+rowBytes])
	}
	return out, nil
}

// Paste copies src into r with its top-left corner at (x, y), clipping at r's edges.
func (r *Raster) Paste(src *Raster, x, y int) {
	for sy := range src.Height {
		dy := y + sy
		if dy < 0 || dy >= r.Height {
			continue
		}
		for sx := range src.Width {
			dx := x + sx
			if dx < 0 || dx >= r.Width {
				continue
			}
			si := src.PixOffset(sx, sy)
			di := r.PixOffset(dx, dy)
			copy(r.Pix[di:di+Channels], src.Pix[si:si+Channels])
		}
	}
}
