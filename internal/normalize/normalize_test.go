package normalize

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/docnorm/internal/corner"
	"github.com/MeKo-Tech/docnorm/internal/decode"
	"github.com/MeKo-Tech/docnorm/internal/onnx"
	"github.com/MeKo-Tech/docnorm/internal/onnx/mock"
	"github.com/MeKo-Tech/docnorm/internal/raster"
)

type fakeLocator struct {
	corners corner.Corners
	err     error
	calls   int
	size    image.Point
}

func (f *fakeLocator) Detect(_ context.Context, padded *raster.Raster) (corner.Corners, error) {
	f.calls++
	f.size = image.Pt(padded.Width, padded.Height)
	return f.corners, f.err
}

type fakeRenderer struct {
	img   image.Image
	calls int
}

func (f *fakeRenderer) RenderFirstPage(context.Context, []byte) (image.Image, error) {
	f.calls++
	return f.img, nil
}

// documentPNG draws a white rectangle [x0,x1)x[y0,y1) on black.
func documentPNG(t *testing.T, w, h, x0, y0, x1, y1 int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			c := color.NRGBA{A: 255}
			if x >= x0 && x < x1 && y >= y0 && y < y1 {
				c = color.NRGBA{R: 255, G: 255, B: 255, A: 255}
			}
			img.SetNRGBA(x, y, c)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func newTestNormalizer(t *testing.T, loc CornerLocator, r decode.PageRenderer, opts ...Option) *Normalizer {
	t.Helper()
	n, err := New(decode.NewDecoder(r), loc, opts...)
	require.NoError(t, err)
	return n
}

func TestNormalizeUnsupportedMimeType(t *testing.T) {
	loc := &fakeLocator{}
	r := &fakeRenderer{}
	n := newTestNormalizer(t, loc, r)

	_, err := n.Normalize(context.Background(), []byte("hello"), "text/plain", 100, 100)
	require.ErrorIs(t, err, decode.ErrUnsupportedMimeType)
	assert.Zero(t, loc.calls)
	assert.Zero(t, r.calls)
}

func TestNormalizeImage(t *testing.T) {
	// 200x150 source: padded side 400, offset left 100, top 25+100.
	off := raster.Offset{Left: 100, Top: 125}
	doc := [4]raster.ImagePoint{{X: 20, Y: 20}, {X: 180, Y: 20}, {X: 180, Y: 130}, {X: 20, Y: 130}}
	loc := &fakeLocator{}
	for i, p := range doc {
		loc.corners[i] = p.Padded(off)
	}
	n := newTestNormalizer(t, loc, nil)

	res, err := n.Run(context.Background(), documentPNG(t, 200, 150, 20, 20, 181, 131), decode.MimePNG, 80, 55)
	require.NoError(t, err)
	assert.Equal(t, 1, loc.calls)
	assert.Equal(t, image.Pt(400, 400), loc.size)
	assert.False(t, res.Rendered)

	out := res.Raster
	assert.Equal(t, 80, out.Width)
	assert.Equal(t, 55, out.Height)
	for _, p := range [][2]int{{2, 2}, {40, 27}, {77, 52}} {
		r, g, b := out.RGB(p[0], p[1])
		assert.Equal(t, [3]uint8{255, 255, 255}, [3]uint8{r, g, b}, "pixel %v", p)
	}

	require.NotNil(t, res.Corners)
	for i, p := range doc {
		assert.InDelta(t, p.X, res.Corners[i].X, 1e-9)
		assert.InDelta(t, p.Y, res.Corners[i].Y, 1e-9)
	}
}

func TestNormalizeCornerCountFailure(t *testing.T) {
	for _, channels := range []int{3, 5} {
		model := corner.ModelFunc(func(context.Context, onnx.Tensor) (onnx.Tensor, error) {
			return onnx.Tensor{
				Data:  mock.NewEmpty(corner.HeatmapSize, channels),
				Shape: []int64{1, int64(channels), corner.HeatmapSize, corner.HeatmapSize},
			}, nil
		})
		det, err := corner.NewDetector(model)
		require.NoError(t, err)
		n := newTestNormalizer(t, det, nil)

		_, err = n.Normalize(context.Background(), documentPNG(t, 60, 40, 5, 5, 55, 35), decode.MimePNG, 50, 30)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrDocumentExtractionFailed, "channels=%d", channels)
		assert.ErrorIs(t, err, corner.ErrCornerDetectionFailed)

		var se *StageError
		require.ErrorAs(t, err, &se)
		assert.Equal(t, StageCorners, se.Stage)
	}
}

func TestNormalizeLocatorRuntimeError(t *testing.T) {
	boom := errors.New("session closed")
	n := newTestNormalizer(t, &fakeLocator{err: boom}, nil)

	_, err := n.Normalize(context.Background(), documentPNG(t, 10, 10, 0, 0, 10, 10), decode.MimePNG, 10, 10)
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, ErrDocumentExtractionFailed)
}

func TestNormalizePDFFill(t *testing.T) {
	page := image.NewNRGBA(image.Rect(0, 0, 30, 40))
	for i := range page.Pix {
		page.Pix[i] = 200
		if i%4 == 3 {
			page.Pix[i] = 255
		}
	}
	loc := &fakeLocator{}
	r := &fakeRenderer{img: page}
	n := newTestNormalizer(t, loc, r)

	res, err := n.Run(context.Background(), []byte("%PDF-1.4"), decode.MimePDF, 100, 50)
	require.NoError(t, err)
	assert.True(t, res.Rendered)
	assert.Nil(t, res.Corners)
	assert.Zero(t, loc.calls)
	assert.Equal(t, 1, r.calls)
	assert.Equal(t, 100, res.Raster.Width)
	assert.Equal(t, 50, res.Raster.Height)
	rr, _, _ := res.Raster.RGB(50, 25)
	assert.InDelta(t, 200, int(rr), 2)
}

func TestNormalizeInvalidTarget(t *testing.T) {
	n := newTestNormalizer(t, &fakeLocator{}, nil)
	_, err := n.Normalize(context.Background(), documentPNG(t, 4, 4, 0, 0, 4, 4), decode.MimePNG, 0, 10)
	assert.ErrorIs(t, err, raster.ErrInvalidDimensions)
}

func TestNormalizeDecodeError(t *testing.T) {
	n := newTestNormalizer(t, &fakeLocator{}, nil)
	_, err := n.Normalize(context.Background(), []byte("garbage"), decode.MimeJPEG, 10, 10)

	var se *StageError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, StageDecode, se.Stage)
	assert.ErrorIs(t, err, decode.ErrInvalidImage)
}

func TestNormalizeDebugDump(t *testing.T) {
	dir := t.TempDir()
	off := raster.Offset{Left: 100, Top: 100}
	loc := &fakeLocator{corners: corner.Corners{
		raster.ImagePoint{X: 2, Y: 2}.Padded(off),
		raster.ImagePoint{X: 18, Y: 2}.Padded(off),
		raster.ImagePoint{X: 18, Y: 18}.Padded(off),
		raster.ImagePoint{X: 2, Y: 18}.Padded(off),
	}}
	n := newTestNormalizer(t, loc, nil, WithDebugDir(dir))

	_, err := n.Normalize(context.Background(), documentPNG(t, 20, 20, 2, 2, 18, 18), decode.MimePNG, 16, 16)
	require.NoError(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestNewRequiresCollaborators(t *testing.T) {
	_, err := New(nil, &fakeLocator{})
	require.Error(t, err)
	_, err = New(decode.NewDecoder(nil), nil)
	require.Error(t, err)
}
