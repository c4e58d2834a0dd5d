package rectify

import (
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/docnorm/internal/raster"
)

// quad in detector channel order: top-left, top-right, bottom-right, bottom-left.
var testQuad = [4]raster.PaddedPoint{
	{X: 40, Y: 30},
	{X: 170, Y: 45},
	{X: 160, Y: 180},
	{X: 30, Y: 170},
}

func insideConvex(poly [4]raster.PaddedPoint, x, y float64) bool {
	sign := 0
	for i := range poly {
		a, b := poly[i], poly[(i+1)%len(poly)]
		cross := (b.X-a.X)*(y-a.Y) - (b.Y-a.Y)*(x-a.X)
		s := 1
		if cross < 0 {
			s = -1
		}
		if cross == 0 {
			continue
		}
		if sign == 0 {
			sign = s
		} else if s != sign {
			return false
		}
	}
	return true
}

func drawQuad(t *testing.T, w, h int, quad [4]raster.PaddedPoint) *raster.Raster {
	t.Helper()
	r, err := raster.New(w, h)
	require.NoError(t, err)
	for y := range h {
		for x := range w {
			if insideConvex(quad, float64(x), float64(y)) {
				r.SetRGB(x, y, 255, 255, 255)
			}
		}
	}
	return r
}

func TestComputeHomographyMapsCorners(t *testing.T) {
	src := [4]xy{{10, 20}, {110, 15}, {5, 130}, {120, 140}}
	dst := [4]xy{{0, 0}, {100, 0}, {0, 100}, {100, 100}}

	h, err := computeHomography(src, dst)
	require.NoError(t, err)

	for i := range src {
		x, y, ok := h.Apply(src[i].X, src[i].Y)
		require.True(t, ok)
		assert.InDelta(t, dst[i].X, x, 1e-6)
		assert.InDelta(t, dst[i].Y, y, 1e-6)
	}
}

func TestComputeHomographyIdentity(t *testing.T) {
	pts := [4]xy{{0, 0}, {1, 0}, {0, 1}, {1, 1}}
	h, err := computeHomography(pts, pts)
	require.NoError(t, err)

	want := Homography{1, 0, 0, 0, 1, 0, 0, 0, 1}
	for i := range want {
		assert.InDelta(t, want[i], h[i], 1e-9)
	}
}

func TestComputeHomographyDegenerate(t *testing.T) {
	repeated := [4]xy{{0, 0}, {0, 0}, {0, 0}, {0, 0}}
	dst := [4]xy{{0, 0}, {1, 0}, {0, 1}, {1, 1}}

	_, err := computeHomography(repeated, dst)
	assert.ErrorIs(t, err, ErrDegenerateQuad)
}

func TestTransformCornerOrder(t *testing.T) {
	tr, err := NewTransform(testQuad, 100, 80)
	require.NoError(t, err)

	want := []raster.NormalizedPoint{{X: 0, Y: 0}, {X: 100, Y: 0}, {X: 100, Y: 80}, {X: 0, Y: 80}}
	for i, p := range testQuad {
		got, ok := tr.Normalize(p)
		require.True(t, ok)
		assert.InDelta(t, want[i].X, got.X, 1e-6, "corner %d", i)
		assert.InDelta(t, want[i].Y, got.Y, 1e-6, "corner %d", i)

		back, ok := tr.Padded(got)
		require.True(t, ok)
		assert.InDelta(t, p.X, back.X, 1e-6)
		assert.InDelta(t, p.Y, back.Y, 1e-6)
	}
}

func TestRectifyRoundTrip(t *testing.T) {
	src := drawQuad(t, 200, 200, testQuad)

	out, err := Rectify(src, testQuad, 100, 100)
	require.NoError(t, err)
	assert.Equal(t, 100, out.Width)
	assert.Equal(t, 100, out.Height)

	// Within 2 px of every destination corner the document fills the output.
	for _, p := range [][2]int{{2, 2}, {97, 2}, {2, 97}, {97, 97}, {50, 50}} {
		r, g, b := out.RGB(p[0], p[1])
		assert.Equal(t, [3]uint8{255, 255, 255}, [3]uint8{r, g, b}, "pixel %v", p)
	}
}

func TestRectifyMirroredOrderDiffers(t *testing.T) {
	// Mark the top-left of the document red; it must land top-left.
	src := drawQuad(t, 200, 200, testQuad)
	for y := 30; y < 60; y++ {
		for x := 40; x < 70; x++ {
			if insideConvex(testQuad, float64(x), float64(y)) {
				src.SetRGB(x, y, 255, 0, 0)
			}
		}
	}

	out, err := Rectify(src, testQuad, 100, 100)
	require.NoError(t, err)

	r, g, b := out.RGB(5, 5)
	assert.Equal(t, [3]uint8{255, 0, 0}, [3]uint8{r, g, b})
	r, g, b = out.RGB(94, 94)
	assert.Equal(t, [3]uint8{255, 255, 255}, [3]uint8{r, g, b})
}

func TestRectifyBlackBorder(t *testing.T) {
	src, err := raster.NewFilled(50, 50, color.RGBA{R: 200, G: 200, B: 200, A: 255})
	require.NoError(t, err)

	// The top-left corner lies far outside the source.
	quad := [4]raster.PaddedPoint{{X: -100, Y: -100}, {X: 49, Y: 0}, {X: 49, Y: 49}, {X: 0, Y: 49}}
	out, err := Rectify(src, quad, 40, 40)
	require.NoError(t, err)

	r, g, b := out.RGB(0, 0)
	assert.Equal(t, [3]uint8{0, 0, 0}, [3]uint8{r, g, b})
	r, g, b = out.RGB(38, 38)
	assert.Equal(t, [3]uint8{200, 200, 200}, [3]uint8{r, g, b})
}

func TestRectifyInvalidSize(t *testing.T) {
	src, err := raster.New(10, 10)
	require.NoError(t, err)

	_, err = Rectify(src, testQuad, 0, 10)
	assert.ErrorIs(t, err, raster.ErrInvalidDimensions)
}

func TestSampleBilinearEdges(t *testing.T) {
	src, err := raster.NewFilled(2, 1, color.RGBA{R: 100, G: 100, B: 100, A: 255})
	require.NoError(t, err)

	px := make([]uint8, 3)
	sampleBilinear(src, 0.5, 0, px)
	assert.Equal(t, uint8(100), px[0])

	// Half of the taps fall outside and read as black.
	px = make([]uint8, 3)
	sampleBilinear(src, 1.5, 0, px)
	assert.Equal(t, uint8(50), px[0])

	px = make([]uint8, 3)
	sampleBilinear(src, 5, 0, px)
	assert.Equal(t, uint8(0), px[0])
}
