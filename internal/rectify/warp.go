package rectify

import (
	"fmt"
	"math"

	"github.com/MeKo-Tech/docnorm/internal/raster"
)

// warpPerspective fills a dstW x dstH raster by sampling src at inv(x, y),
// where inv maps destination pixels back to source coordinates. Sampling is
// bilinear; taps outside src read as black.
func warpPerspective(src *raster.Raster, inv Homography, dstW, dstH int) (*raster.Raster, error) {
	out, err := raster.New(dstW, dstH)
	if err != nil {
		return nil, fmt.Errorf("warp: %w", err)
	}

	for y := range dstH {
		for x := range dstW {
			sx, sy, ok := inv.Apply(float64(x), float64(y))
			if !ok {
				continue
			}
			sampleBilinear(src, sx, sy, out.Pix[out.PixOffset(x, y):])
		}
	}
	return out, nil
}

// sampleBilinear writes the interpolated RGB at (x, y) into dst[0:3].
func sampleBilinear(src *raster.Raster, x, y float64, dst []uint8) {
	if math.IsNaN(x) || math.IsNaN(y) ||
		x < -1 || y < -1 || x >= float64(src.Width) || y >= float64(src.Height) {
		return
	}
	x0 := int(math.Floor(x))
	y0 := int(math.Floor(y))
	fx := x - float64(x0)
	fy := y - float64(y0)

	var acc [raster.Channels]float64
	tap := func(tx, ty int, wgt float64) {
		if wgt == 0 || tx < 0 || ty < 0 || tx >= src.Width || ty >= src.Height {
			return
		}
		i := src.PixOffset(tx, ty)
		for c := range raster.Channels {
			acc[c] += wgt * float64(src.Pix[i+c])
		}
	}
	tap(x0, y0, (1-fx)*(1-fy))
	tap(x0+1, y0, fx*(1-fy))
	tap(x0, y0+1, (1-fx)*fy)
	tap(x0+1, y0+1, fx*fy)

	for c := range raster.Channels {
		dst[c] = uint8(math.Min(255, math.Round(acc[c])))
	}
}
