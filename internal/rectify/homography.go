// Package rectify maps the detected document quadrilateral onto an upright
// rectangle with a 4-point perspective transform.
package rectify

import (
	"errors"
	"math"
)

// ErrDegenerateQuad is returned when the four points admit no homography
// (three or more collinear, or repeated points).
var ErrDegenerateQuad = errors.New("degenerate quadrilateral")

// xy is the untyped plane point the solver works on.
type xy struct{ X, Y float64 }

// Homography is a row-major 3x3 perspective matrix with H[8] == 1.
type Homography [9]float64

// computeHomography returns H mapping p[i] -> q[i].
func computeHomography(p, q [4]xy) (Homography, error) {
	// 8x8 system A*h = b for h00..h21, with h22 = 1:
	//   x' = (h00 X + h01 Y + h02) / (h20 X + h21 Y + 1)
	//   y' = (h10 X + h11 Y + h12) / (h20 X + h21 Y + 1)
	var a [8][8]float64
	var b [8]float64
	for i := range 4 {
		X, Y := p[i].X, p[i].Y
		x, y := q[i].X, q[i].Y
		r := 2 * i
		a[r] = [8]float64{X, Y, 1, 0, 0, 0, -X * x, -Y * x}
		b[r] = x
		a[r+1] = [8]float64{0, 0, 0, X, Y, 1, -X * y, -Y * y}
		b[r+1] = y
	}

	h, ok := solve8x8(a, b)
	if !ok {
		return Homography{}, ErrDegenerateQuad
	}
	return Homography{h[0], h[1], h[2], h[3], h[4], h[5], h[6], h[7], 1}, nil
}

// solve8x8 runs Gauss-Jordan elimination with partial pivoting.
func solve8x8(a [8][8]float64, b [8]float64) ([8]float64, bool) {
	const eps = 1e-12
	for col := range 8 {
		pivot := col
		for r := col + 1; r < 8; r++ {
			if math.Abs(a[r][col]) > math.Abs(a[pivot][col]) {
				pivot = r
			}
		}
		if math.Abs(a[pivot][col]) < eps {
			return [8]float64{}, false
		}
		a[col], a[pivot] = a[pivot], a[col]
		b[col], b[pivot] = b[pivot], b[col]

		div := a[col][col]
		for c := col; c < 8; c++ {
			a[col][c] /= div
		}
		b[col] /= div

		for r := range 8 {
			if r == col || a[r][col] == 0 {
				continue
			}
			f := a[r][col]
			for c := col; c < 8; c++ {
				a[r][c] -= f * a[col][c]
			}
			b[r] -= f * b[col]
		}
	}
	return b, true
}

// Apply maps (x, y). ok is false on the line at infinity.
func (h Homography) Apply(x, y float64) (float64, float64, bool) {
	w := h[6]*x + h[7]*y + h[8]
	if w == 0 {
		return 0, 0, false
	}
	return (h[0]*x + h[1]*y + h[2]) / w, (h[3]*x + h[4]*y + h[5]) / w, true
}
