// Package pad squares a raster and adds a replicated margin around it so the
// corner model sees context beyond the document edge.
package pad

import (
	"fmt"

	"github.com/MeKo-Tech/docnorm/internal/raster"
)

// DefaultOffset is the margin added on every side after squaring.
const DefaultOffset = 100

// Result is a padded raster plus the translation from source to padded space.
type Result struct {
	Raster *raster.Raster
	Offset raster.Offset
}

// Square pads src to a square of side max(W,H)+2*offset using edge replication.
//
// The shorter axis receives floor(delta/2) on its leading edge and the
// remainder on its trailing edge.
func Square(src *raster.Raster, offset int) (Result, error) {
	if err := src.Validate(); err != nil {
		return Result{}, fmt.Errorf("pad: %w", err)
	}
	if offset < 0 {
		return Result{}, fmt.Errorf("pad: negative offset %d", offset)
	}

	w, h := src.Width, src.Height
	var left, top int
	if w > h {
		top = (w - h) / 2
	} else {
		left = (h - w) / 2
	}
	left += offset
	top += offset

	side := max(w, h) + 2*offset
	out, err := raster.New(side, side)
	if err != nil {
		return Result{}, fmt.Errorf("pad: %w", err)
	}

	for y := range side {
		sy := clamp(y-top, h)
		for x := range side {
			sx := clamp(x-left, w)
			si := src.PixOffset(sx, sy)
			di := out.PixOffset(x, y)
			copy(out.Pix[di:di+raster.Channels], src.Pix[si:si+raster.Channels])
		}
	}

	return Result{Raster: out, Offset: raster.Offset{Left: left, Top: top}}, nil
}

func clamp(v, n int) int {
	if v < 0 {
		return 0
	}
	if v >= n {
		return n - 1
	}
	return v
}
