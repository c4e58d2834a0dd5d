package fields

import (
	"errors"
	"image/color"

	"github.com/MeKo-Tech/docnorm/internal/raster"
)

// Gap is the separator height between stacked crops.
const Gap = 5

// Background fills the composite behind and between crops.
var Background = color.RGBA{G: 255, A: 255}

// Range is a half-open vertical span [Start, End) of the composite.
type Range struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Contains reports whether y falls inside the range.
func (r Range) Contains(y int) bool { return y >= r.Start && y < r.End }

// Composite is every crop stacked top to bottom.
type Composite struct {
	Raster *raster.Raster
	Ranges []Range
}

// Merge stacks crops vertically at x=0 with Gap pixels of Background between
// neighbours. Ranges[i] is the span owned by crops[i].
func Merge(crops []Crop) (*Composite, error) {
	if len(crops) == 0 {
		return nil, errors.New("merge: no crops")
	}

	width, height := 0, Gap*(len(crops)-1)
	for _, c := range crops {
		width = max(width, c.Raster.Width)
		height += c.Raster.Height
	}

	out, err := raster.NewFilled(width, height, Background)
	if err != nil {
		return nil, err
	}

	ranges := make([]Range, len(crops))
	y := 0
	for i, c := range crops {
		out.Paste(c.Raster, 0, y)
		ranges[i] = Range{Start: y, End: y + c.Raster.Height}
		y = ranges[i].End + Gap
	}
	return &Composite{Raster: out, Ranges: ranges}, nil
}

// Owner returns the index of the range a y coordinate belongs to: the last
// range starting at or above y. Coordinates above the first range belong to
// the first field, and gap rows belong to the field above them.
func (c *Composite) Owner(y int) int {
	owner := 0
	for i, r := range c.Ranges {
		if r.Start <= y {
			owner = i
		}
	}
	return owner
}
