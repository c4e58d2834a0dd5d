package corner

import (
	"fmt"

	"github.com/MeKo-Tech/docnorm/internal/mempool"
	"github.com/MeKo-Tech/docnorm/internal/onnx"
	"github.com/MeKo-Tech/docnorm/internal/raster"
)

// BuildInput resizes the padded raster to InputSize x InputSize and lays it
// out as a planar [1,3,256,256] tensor in BGR order: B plane, G plane, R
// plane, each value divided by 255.
//
// The buffer comes from mempool; release it with mempool.PutFloat32 when the
// inference call has returned.
func BuildInput(padded *raster.Raster) (onnx.Tensor, error) {
	if err := padded.Validate(); err != nil {
		return onnx.Tensor{}, fmt.Errorf("corner input: %w", err)
	}

	const plane = InputSize * InputSize
	data := mempool.GetFloat32(raster.Channels * plane)

	xm := newAxisMap(InputSize, padded.Width)
	ym := newAxisMap(InputSize, padded.Height)
	sw := padded.Width
	pix := padded.Pix

	for y := range InputSize {
		y0, y1, fy := ym.i0[y], ym.i1[y], ym.f[y]
		for x := range InputSize {
			x0, x1, fx := xm.i0[x], xm.i1[x], xm.f[x]
			p00 := (y0*sw + x0) * raster.Channels
			p01 := (y0*sw + x1) * raster.Channels
			p10 := (y1*sw + x0) * raster.Channels
			p11 := (y1*sw + x1) * raster.Channels
			o := y*InputSize + x
			for c := range raster.Channels {
				top := float32(pix[p00+c])*(1-fx) + float32(pix[p01+c])*fx
				bot := float32(pix[p10+c])*(1-fx) + float32(pix[p11+c])*fx
				data[(raster.Channels-1-c)*plane+o] = (top*(1-fy) + bot*fy) / 255
			}
		}
	}

	return onnx.NewImageTensor(data, raster.Channels, InputSize, InputSize)
}
