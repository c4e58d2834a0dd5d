package rectify

import (
	"fmt"

	"github.com/MeKo-Tech/docnorm/internal/raster"
)

// channelOrder maps the detector's heatmap order onto the destination
// corners (0,0), (W,0), (0,H), (W,H).
var channelOrder = [4]int{0, 1, 3, 2}

// Transform is the padded-canvas to normalized-space mapping for one
// document.
type Transform struct {
	forward Homography
	inverse Homography
	Width   int
	Height  int
}

// NewTransform solves the homography taking the detected corners onto a
// width x height rectangle.
func NewTransform(detected [4]raster.PaddedPoint, width, height int) (*Transform, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", raster.ErrInvalidDimensions, width, height)
	}

	var src [4]xy
	for i, ch := range channelOrder {
		src[i] = xy{detected[ch].X, detected[ch].Y}
	}
	w, h := float64(width), float64(height)
	dst := [4]xy{{0, 0}, {w, 0}, {0, h}, {w, h}}

	fwd, err := computeHomography(src, dst)
	if err != nil {
		return nil, err
	}
	inv, err := computeHomography(dst, src)
	if err != nil {
		return nil, err
	}
	return &Transform{forward: fwd, inverse: inv, Width: width, Height: height}, nil
}

// Normalize maps a padded-canvas point into normalized space.
func (t *Transform) Normalize(p raster.PaddedPoint) (raster.NormalizedPoint, bool) {
	x, y, ok := t.forward.Apply(p.X, p.Y)
	return raster.NormalizedPoint{X: x, Y: y}, ok
}

// Padded maps a normalized point back onto the padded canvas.
func (t *Transform) Padded(p raster.NormalizedPoint) (raster.PaddedPoint, bool) {
	x, y, ok := t.inverse.Apply(p.X, p.Y)
	return raster.PaddedPoint{X: x, Y: y}, ok
}

// Warp resamples src (the padded canvas) into normalized space.
func (t *Transform) Warp(src *raster.Raster) (*raster.Raster, error) {
	if err := src.Validate(); err != nil {
		return nil, err
	}
	return warpPerspective(src, t.inverse, t.Width, t.Height)
}

// Rectify warps the padded raster so the detected document fills a
// width x height output.
func Rectify(src *raster.Raster, detected [4]raster.PaddedPoint, width, height int) (*raster.Raster, error) {
	t, err := NewTransform(detected, width, height)
	if err != nil {
		return nil, fmt.Errorf("rectify: %w", err)
	}
	return t.Warp(src)
}
