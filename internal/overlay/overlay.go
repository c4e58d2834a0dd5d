// Package overlay draws diagnostic shapes onto images for debug output.
package overlay

import (
	"image"
	"image/color"
	"math"

	"golang.org/x/image/draw"
)

// Palette used by the debug dumps.
var (
	Red   = color.NRGBA{R: 255, A: 255}
	Green = color.NRGBA{G: 200, A: 255}
	Blue  = color.NRGBA{B: 255, A: 255}
)

// Pt rounds a float coordinate to the nearest pixel.
func Pt(x, y float64) image.Point {
	return image.Pt(int(math.Round(x)), int(math.Round(y)))
}

// Rect draws an axis-aligned rectangle outline.
func Rect(dst draw.Image, rect image.Rectangle, col color.Color, thickness int) {
	if thickness < 1 {
		thickness = 1
	}
	rect = rect.Intersect(dst.Bounds())
	if rect.Empty() {
		return
	}
	for t := range thickness {
		yTop := rect.Min.Y + t
		yBot := rect.Max.Y - 1 - t
		for x := rect.Min.X; x < rect.Max.X; x++ {
			dst.Set(x, yTop, col)
			dst.Set(x, yBot, col)
		}
	}
	for t := range thickness {
		xLeft := rect.Min.X + t
		xRight := rect.Max.X - 1 - t
		for y := rect.Min.Y; y < rect.Max.Y; y++ {
			dst.Set(xLeft, y, col)
			dst.Set(xRight, y, col)
		}
	}
}

// Polygon draws a closed outline through pts.
func Polygon(dst draw.Image, pts []image.Point, col color.Color, thickness int) {
	if len(pts) < 2 {
		return
	}
	for i := range pts {
		Line(dst, pts[i], pts[(i+1)%len(pts)], col, thickness)
	}
}

// Marker draws a filled square of side size centred on p.
func Marker(dst draw.Image, p image.Point, col color.Color, size int) {
	dot(dst, p.X, p.Y, col, size)
}

// Line draws a Bresenham line.
func Line(dst draw.Image, a, b image.Point, col color.Color, thickness int) {
	x0, y0 := a.X, a.Y
	x1, y1 := b.X, b.Y
	dx := abs(x1 - x0)
	sx := -1
	if x0 < x1 {
		sx = 1
	}
	dy := -abs(y1 - y0)
	sy := -1
	if y0 < y1 {
		sy = 1
	}
	e := dx + dy
	for {
		dot(dst, x0, y0, col, thickness)
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * e
		if e2 >= dy {
			e += dy
			x0 += sx
		}
		if e2 <= dx {
			e += dx
			y0 += sy
		}
	}
}

func dot(dst draw.Image, x, y int, col color.Color, size int) {
	if size < 1 {
		size = 1
	}
	r := (size - 1) / 2
	b := dst.Bounds()
	for yy := y - r; yy <= y+r; yy++ {
		for xx := x - r; xx <= x+r; xx++ {
			if image.Pt(xx, yy).In(b) {
				dst.Set(xx, yy, col)
			}
		}
	}
}

// SideBySide scales both images to height h and places them next to each
// other on a white canvas.
func SideBySide(left, right image.Image, h int) *image.NRGBA {
	lw := scaledWidth(left.Bounds(), h)
	rw := scaledWidth(right.Bounds(), h)
	out := image.NewNRGBA(image.Rect(0, 0, lw+rw, h))
	draw.Draw(out, out.Bounds(), image.White, image.Point{}, draw.Src)
	draw.ApproxBiLinear.Scale(out, image.Rect(0, 0, lw, h), left, left.Bounds(), draw.Over, nil)
	draw.ApproxBiLinear.Scale(out, image.Rect(lw, 0, lw+rw, h), right, right.Bounds(), draw.Over, nil)
	return out
}

func scaledWidth(b image.Rectangle, h int) int {
	if b.Dy() == 0 {
		return 0
	}
	w := int(math.Round(float64(b.Dx()) * float64(h) / float64(b.Dy())))
	return max(w, 1)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
