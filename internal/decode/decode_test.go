package decode

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRenderer struct {
	img   image.Image
	err   error
	calls int
}

func (f *fakeRenderer) RenderFirstPage(_ context.Context, _ []byte) (image.Image, error) {
	f.calls++
	return f.img, f.err
}

func solidImage(w, h int, c color.Color) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			img.Set(x, y, c)
		}
	}
	return img
}

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestDecodeUnsupportedMimeType(t *testing.T) {
	r := &fakeRenderer{}
	d := NewDecoder(r)

	for _, mt := range []string{"text/plain", "image/gif", "", "application/json"} {
		_, err := d.Decode(context.Background(), []byte("irrelevant"), mt)
		assert.ErrorIs(t, err, ErrUnsupportedMimeType, mt)
	}
	assert.Zero(t, r.calls)
}

func TestDecodePNG(t *testing.T) {
	d := NewDecoder(nil)
	data := encodePNG(t, solidImage(7, 5, color.NRGBA{R: 10, G: 20, B: 30, A: 255}))

	out, err := d.Decode(context.Background(), data, "image/png")
	require.NoError(t, err)
	assert.Equal(t, 7, out.Width)
	assert.Equal(t, 5, out.Height)
	assert.Len(t, out.Pix, 7*5*3)
	r, g, b := out.RGB(3, 2)
	assert.Equal(t, [3]uint8{10, 20, 30}, [3]uint8{r, g, b})
}

func TestDecodePNGAlphaOverWhite(t *testing.T) {
	d := NewDecoder(nil)
	data := encodePNG(t, solidImage(2, 2, color.NRGBA{A: 0}))

	out, err := d.Decode(context.Background(), data, MimePNG)
	require.NoError(t, err)
	r, g, b := out.RGB(0, 0)
	assert.Equal(t, [3]uint8{255, 255, 255}, [3]uint8{r, g, b})
}

func TestDecodeJPEG(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, solidImage(16, 8, color.Gray{Y: 128}), &jpeg.Options{Quality: 95}))

	out, err := NewDecoder(nil).Decode(context.Background(), buf.Bytes(), "image/jpeg; charset=binary")
	require.NoError(t, err)
	assert.Equal(t, 16, out.Width)
	assert.Equal(t, 8, out.Height)
	r, _, _ := out.RGB(8, 4)
	assert.InDelta(t, 128, int(r), 3)
}

func TestDecodeInvalidImage(t *testing.T) {
	_, err := NewDecoder(nil).Decode(context.Background(), []byte("not an image"), MimePNG)
	assert.ErrorIs(t, err, ErrInvalidImage)
}

func TestDecodePDFUsesRenderer(t *testing.T) {
	r := &fakeRenderer{img: solidImage(30, 40, color.NRGBA{R: 255, A: 255})}

	out, err := NewDecoder(r).Decode(context.Background(), []byte("%PDF-1.4"), MimePDF)
	require.NoError(t, err)
	assert.Equal(t, 1, r.calls)
	assert.Equal(t, 30, out.Width)
	assert.Equal(t, 40, out.Height)
}

func TestDecodePDFRenderFailure(t *testing.T) {
	boom := errors.New("boom")
	r := &fakeRenderer{err: boom}

	_, err := NewDecoder(r).Decode(context.Background(), []byte("%PDF-1.4"), MimePDF)
	assert.ErrorIs(t, err, boom)
}

func TestDecodePDFWithoutRenderer(t *testing.T) {
	_, err := NewDecoder(nil).Decode(context.Background(), []byte("%PDF-1.4"), MimePDF)
	assert.ErrorIs(t, err, ErrRenderFailed)
}

func TestCanonicalAndSupported(t *testing.T) {
	assert.Equal(t, "image/png", Canonical(" Image/PNG "))
	assert.Equal(t, "application/pdf", Canonical("application/pdf; version=1.7"))
	assert.True(t, Supported("IMAGE/JPEG"))
	assert.False(t, Supported("image/webp"))
	assert.True(t, IsPDF("application/pdf"))
	assert.False(t, IsPDF("image/png"))
}

func TestSniff(t *testing.T) {
	data := encodePNG(t, solidImage(1, 1, color.Black))
	assert.Equal(t, MimePNG, Sniff(data))
	assert.Equal(t, MimePDF, Sniff([]byte("%PDF-1.7\n")))
}
