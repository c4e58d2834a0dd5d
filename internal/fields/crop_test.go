package fields

import (
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/docnorm/internal/raster"
)

func gradient(t *testing.T, w, h int) *raster.Raster {
	t.Helper()
	r, err := raster.New(w, h)
	require.NoError(t, err)
	for y := range h {
		for x := range w {
			r.SetRGB(x, y, uint8(x), uint8(y), 0)
		}
	}
	return r
}

func TestCropAllOrderAndPixels(t *testing.T) {
	src := gradient(t, 100, 80)
	descs := []Descriptor{
		field("second", 50.4, 40.6, 60.4, 45.6),
		field("first", 0, 0, 10, 10),
	}

	crops, err := CropAll(src, descs)
	require.NoError(t, err)
	require.Len(t, crops, 2)

	assert.Equal(t, "second", crops[0].Field.Name)
	assert.Equal(t, 10, crops[0].Raster.Width)
	assert.Equal(t, 5, crops[0].Raster.Height)
	r, g, _ := crops[0].Raster.RGB(0, 0)
	assert.Equal(t, uint8(50), r)
	assert.Equal(t, uint8(41), g)

	assert.Equal(t, "first", crops[1].Field.Name)
}

func TestCropOutOfBounds(t *testing.T) {
	src, err := raster.NewFilled(50, 50, color.RGBA{R: 1, A: 255})
	require.NoError(t, err)

	for _, d := range []Descriptor{
		field("right", 40, 0, 50.6, 10),
		field("bottom", 0, 45, 10, 51),
		field("negative", -1, 0, 10, 10),
	} {
		_, err := CropAll(src, []Descriptor{d})
		assert.ErrorIs(t, err, ErrFieldOutOfBounds, d.Name)
	}

	// exactly on the edge is fine
	_, err = CropAll(src, []Descriptor{field("edge", 40, 40, 50, 50)})
	assert.NoError(t, err)
}
