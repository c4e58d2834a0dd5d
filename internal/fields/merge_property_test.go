package fields

import (
	"image/color"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/MeKo-Tech/docnorm/internal/raster"
)

// genHeights generates a non-empty list of crop heights.
func genHeights() gopter.Gen {
	return gen.SliceOf(gen.IntRange(1, 30)).SuchThat(func(hs []int) bool { return len(hs) > 0 })
}

func cropsOf(heights []int) []Crop {
	crops := make([]Crop, len(heights))
	for i, h := range heights {
		r, _ := raster.NewFilled(10+i, h, color.RGBA{R: uint8(i * 20), A: 255})
		crops[i] = Crop{Raster: r}
	}
	return crops
}

func TestMerge_Properties(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("ranges tile the composite with a gap between neighbours", prop.ForAll(
		func(heights []int) bool {
			c, err := Merge(cropsOf(heights))
			if err != nil || len(c.Ranges) != len(heights) {
				return false
			}
			if c.Ranges[0].Start != 0 || c.Ranges[len(heights)-1].End != c.Raster.Height {
				return false
			}
			for i, r := range c.Ranges {
				if r.End-r.Start != heights[i] {
					return false
				}
				if i > 0 && r.Start-c.Ranges[i-1].End != Gap {
					return false
				}
			}
			return true
		},
		genHeights(),
	))

	properties.Property("every row inside a range is owned by that range", prop.ForAll(
		func(heights []int) bool {
			c, err := Merge(cropsOf(heights))
			if err != nil {
				return false
			}
			for i, r := range c.Ranges {
				for y := r.Start; y < r.End; y++ {
					if c.Owner(y) != i {
						return false
					}
				}
			}
			return true
		},
		genHeights(),
	))

	properties.Property("owner never decreases going down", prop.ForAll(
		func(heights []int) bool {
			c, err := Merge(cropsOf(heights))
			if err != nil {
				return false
			}
			prev := 0
			for y := -3; y < c.Raster.Height+3; y++ {
				o := c.Owner(y)
				if o < prev {
					return false
				}
				prev = o
			}
			return true
		},
		genHeights(),
	))

	properties.TestingRun(t)
}
