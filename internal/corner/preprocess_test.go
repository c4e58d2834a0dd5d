package corner

import (
	"image/color"
	"testing"

	"github.com/MeKo-Tech/docnorm/internal/mempool"
	"github.com/MeKo-Tech/docnorm/internal/raster"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildInput_PlanarBGRScaled(t *testing.T) {
	src, err := raster.NewFilled(600, 600, color.RGBA{R: 255, G: 0, B: 51, A: 255})
	require.NoError(t, err)

	tensor, err := BuildInput(src)
	require.NoError(t, err)
	defer mempool.PutFloat32(tensor.Data)

	assert.Equal(t, []int64{1, 3, InputSize, InputSize}, tensor.Shape)
	require.Len(t, tensor.Data, 3*InputSize*InputSize)

	const plane = InputSize * InputSize
	for _, i := range []int{0, 1234, plane - 1} {
		assert.InDelta(t, 0.2, tensor.Data[i], 1e-6, "B plane")
		assert.InDelta(t, 0.0, tensor.Data[plane+i], 1e-6, "G plane")
		assert.InDelta(t, 1.0, tensor.Data[2*plane+i], 1e-6, "R plane")
	}
}

func TestBuildInput_IdentitySizeIsExact(t *testing.T) {
	src, err := raster.New(InputSize, InputSize)
	require.NoError(t, err)
	src.SetRGB(10, 3, 51, 102, 255)

	tensor, err := BuildInput(src)
	require.NoError(t, err)
	defer mempool.PutFloat32(tensor.Data)

	const plane = InputSize * InputSize
	idx := 3*InputSize + 10
	assert.InDelta(t, 1.0, tensor.Data[idx], 1e-6, "B plane")
	assert.InDelta(t, 0.4, tensor.Data[plane+idx], 1e-6, "G plane")
	assert.InDelta(t, 0.2, tensor.Data[2*plane+idx], 1e-6, "R plane")
	assert.Zero(t, tensor.Data[idx+1])
}

func TestBuildInput_InvalidRaster(t *testing.T) {
	_, err := BuildInput(&raster.Raster{Width: 2, Height: 2})
	assert.ErrorIs(t, err, raster.ErrInvalidDimensions)
}

func TestAxisMap_Upsample(t *testing.T) {
	m := newAxisMap(8, 2)
	// Half-pixel centers: dst 0 clamps to src 0, dst 7 clamps to src 1.
	assert.Equal(t, 0, m.i0[0])
	assert.Zero(t, m.f[0])
	assert.Equal(t, 1, m.i0[7])
	assert.Equal(t, 1, m.i1[7])
	// dst 4 -> s = 4.5*0.25-0.5 = 0.625
	assert.Equal(t, 0, m.i0[4])
	assert.InDelta(t, 0.625, m.f[4], 1e-6)
}

func TestBinarizeUpsampled(t *testing.T) {
	plane := []float32{0, 1, 0, 1}
	mask := binarizeUpsampled(plane, 2, 2, 4, 4, 0.3)
	defer mempool.PutBool(mask)

	require.Len(t, mask, 16)
	// Left column is far from the bright right column.
	assert.False(t, mask[0])
	assert.True(t, mask[3])
	assert.True(t, mask[15])
}
