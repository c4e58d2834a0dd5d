// Package mock builds synthetic corner-model outputs for tests.
package mock

import "math"

// Point is a heatmap-space coordinate.
type Point struct {
	X, Y float64
}

// NewBlob returns a w*h map with a Gaussian peak of height peak at c.
func NewBlob(w, h int, c Point, peak float32, sigma float64) []float32 {
	if w <= 0 || h <= 0 {
		return nil
	}
	data := make([]float32, w*h)
	inv2s2 := 1.0 / (2.0 * sigma * sigma)
	for y := range h {
		for x := range w {
			dx := float64(x) - c.X
			dy := float64(y) - c.Y
			data[y*w+x] = clamp01(float32(math.Exp(-(dx*dx+dy*dy)*inv2s2)) * peak)
		}
	}
	return data
}

// NewCornerHeatmaps stacks one blob per corner into a [1, len(corners), size, size]
// buffer in channel-major order.
func NewCornerHeatmaps(size int, corners []Point, sigma float64) []float32 {
	plane := size * size
	out := make([]float32, 0, plane*len(corners))
	for _, c := range corners {
		out = append(out, NewBlob(size, size, c, 1, sigma)...)
	}
	return out
}

// NewEmpty returns n all-zero planes.
func NewEmpty(size, n int) []float32 {
	return make([]float32, size*size*n)
}

func clamp01(v float32) float32 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
