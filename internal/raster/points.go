package raster

import (
	"encoding/json"
	"fmt"
	"image"
	"math"
)

// ImagePoint is a location in the decoded source raster.
type ImagePoint struct {
	X, Y float64
}

// PaddedPoint is a location in the square-padded canvas the corner model sees.
type PaddedPoint struct {
	X, Y float64
}

// NormalizedPoint is a location in the rectified document, the space layouts
// define their fields in.
type NormalizedPoint struct {
	X, Y float64
}

// Offset is the translation from image space into padded space.
type Offset struct {
	Left, Top int
}

// Padded converts an image-space point into padded-canvas space.
func (p ImagePoint) Padded(o Offset) PaddedPoint {
	return PaddedPoint{X: p.X + float64(o.Left), Y: p.Y + float64(o.Top)}
}

// Image converts a padded-canvas point back into image space.
func (p PaddedPoint) Image(o Offset) ImagePoint {
	return ImagePoint{X: p.X - float64(o.Left), Y: p.Y - float64(o.Top)}
}

func (p PaddedPoint) String() string { return fmt.Sprintf("padded(%.2f,%.2f)", p.X, p.Y) }

func (p ImagePoint) String() string { return fmt.Sprintf("image(%.2f,%.2f)", p.X, p.Y) }

func (p NormalizedPoint) String() string { return fmt.Sprintf("normalized(%.2f,%.2f)", p.X, p.Y) }

// Round returns the nearest integer pixel, rounding half away from zero.
func (p NormalizedPoint) Round() image.Point {
	return image.Pt(int(math.Round(p.X)), int(math.Round(p.Y)))
}

// MarshalJSON encodes the point as the layout format's [x, y] pair.
func (p NormalizedPoint) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]float64{p.X, p.Y})
}

// UnmarshalJSON accepts [x, y].
func (p *NormalizedPoint) UnmarshalJSON(data []byte) error {
	var xy []float64
	if err := json.Unmarshal(data, &xy); err != nil {
		return fmt.Errorf("point must be [x, y]: %w", err)
	}
	if len(xy) != 2 {
		return fmt.Errorf("point must have 2 coordinates, got %d", len(xy))
	}
	p.X, p.Y = xy[0], xy[1]
	return nil
}

// UnmarshalYAML accepts the same [x, y] sequence form in YAML layouts.
func (p *NormalizedPoint) UnmarshalYAML(unmarshal func(any) error) error {
	var xy []float64
	if err := unmarshal(&xy); err != nil {
		return err
	}
	if len(xy) != 2 {
		return fmt.Errorf("point must have 2 coordinates, got %d", len(xy))
	}
	p.X, p.Y = xy[0], xy[1]
	return nil
}

// MarshalYAML mirrors MarshalJSON.
func (p NormalizedPoint) MarshalYAML() (any, error) {
	return []float64{p.X, p.Y}, nil
}
