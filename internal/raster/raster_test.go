package raster

import (
	"bytes"
	"encoding/json"
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newGradient(t *testing.T, w, h int) *Raster {
	t.Helper()
	r, err := New(w, h)
	require.NoError(t, err)
	for y := range h {
		for x := range w {
			r.SetRGB(x, y, uint8(x), uint8(y), uint8(x+y))
		}
	}
	return r
}

func TestNew_RejectsNonPositive(t *testing.T) {
	_, err := New(0, 10)
	require.ErrorIs(t, err, ErrInvalidDimensions)
	_, err = New(10, -1)
	require.ErrorIs(t, err, ErrInvalidDimensions)
}

func TestNew_BufferInvariant(t *testing.T) {
	r, err := New(7, 5)
	require.NoError(t, err)
	assert.Len(t, r.Pix, 7*5*Channels)
	assert.NoError(t, r.Validate())

	r.Pix = r.Pix[:10]
	assert.ErrorIs(t, r.Validate(), ErrInvalidDimensions)
}

func TestFromImage_CompositesAlphaOverWhite(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 2, 1))
	src.SetNRGBA(0, 0, color.NRGBA{R: 10, G: 20, B: 30, A: 255})
	src.SetNRGBA(1, 0, color.NRGBA{R: 0, G: 0, B: 0, A: 0})

	r, err := FromImage(src)
	require.NoError(t, err)

	red, green, blue := r.RGB(0, 0)
	assert.Equal(t, []uint8{10, 20, 30}, []uint8{red, green, blue})
	red, green, blue = r.RGB(1, 0)
	assert.Equal(t, []uint8{255, 255, 255}, []uint8{red, green, blue})
}

func TestFromImage_GenericPath(t *testing.T) {
	src := image.NewGray(image.Rect(3, 3, 5, 5))
	src.SetGray(3, 3, color.Gray{Y: 200})

	r, err := FromImage(src)
	require.NoError(t, err)
	assert.Equal(t, 2, r.Width)
	assert.Equal(t, 2, r.Height)
	red, green, blue := r.RGB(0, 0)
	assert.Equal(t, []uint8{200, 200, 200}, []uint8{red, green, blue})
}

func TestFromImage_DoesNotAliasRaster(t *testing.T) {
	src := newGradient(t, 4, 4)
	cp, err := FromImage(src)
	require.NoError(t, err)
	cp.SetRGB(0, 0, 99, 99, 99)
	red, _, _ := src.RGB(0, 0)
	assert.Equal(t, uint8(0), red)
}

func TestSubRaster(t *testing.T) {
	src := newGradient(t, 10, 8)

	sub, err := src.SubRaster(image.Rect(2, 3, 6, 5))
	require.NoError(t, err)
	assert.Equal(t, 4, sub.Width)
	assert.Equal(t, 2, sub.Height)
	red, green, _ := sub.RGB(0, 0)
	assert.Equal(t, uint8(2), red)
	assert.Equal(t, uint8(3), green)

	_, err = src.SubRaster(image.Rect(5, 5, 11, 7))
	assert.ErrorIs(t, err, ErrInvalidDimensions)
}

func TestPaste_Clips(t *testing.T) {
	dst, err := New(4, 4)
	require.NoError(t, err)
	src, err := NewFilled(3, 3, color.RGBA{R: 1, G: 2, B: 3, A: 255})
	require.NoError(t, err)

	dst.Paste(src, 2, 2)

	red, _, _ := dst.RGB(3, 3)
	assert.Equal(t, uint8(1), red)
	red, _, _ = dst.RGB(1, 1)
	assert.Equal(t, uint8(0), red)
}

func TestPointConversions(t *testing.T) {
	o := Offset{Left: 150, Top: 100}
	ip := ImagePoint{X: 10.5, Y: 20}
	pp := ip.Padded(o)
	assert.Equal(t, PaddedPoint{X: 160.5, Y: 120}, pp)
	assert.Equal(t, ip, pp.Image(o))
}

func TestNormalizedPoint_JSON(t *testing.T) {
	var p NormalizedPoint
	require.NoError(t, json.Unmarshal([]byte(`[133.41, 155.22]`), &p))
	assert.InDelta(t, 133.41, p.X, 1e-9)
	assert.Equal(t, image.Pt(133, 155), p.Round())

	out, err := json.Marshal(NormalizedPoint{X: 1, Y: 2.5})
	require.NoError(t, err)
	assert.JSONEq(t, `[1, 2.5]`, string(out))

	assert.Error(t, json.Unmarshal([]byte(`{"x":1}`), &p))
}

func TestEncodePNG_RoundTripsSize(t *testing.T) {
	r := newGradient(t, 6, 3)
	data, err := EncodePNG(r)
	require.NoError(t, err)
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, "png", format)
	assert.Equal(t, 6, cfg.Width)
	assert.Equal(t, 3, cfg.Height)
}
