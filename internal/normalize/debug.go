package normalize

import (
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"time"

	"github.com/disintegration/imaging"

	"github.com/MeKo-Tech/docnorm/internal/corner"
	"github.com/MeKo-Tech/docnorm/internal/overlay"
	"github.com/MeKo-Tech/docnorm/internal/raster"
)

// dumpCorners writes the padded canvas with the detected quad, and a
// side-by-side of that overlay with the rectified output.
func dumpCorners(dir string, padded *raster.Raster, corners corner.Corners, rectified *raster.Raster) error {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return err
	}
	ts := time.Now().UnixNano()

	canvas := imaging.Clone(padded)
	// outline in geometric order: tl, tr, br, bl
	quad := make([]image.Point, 0, len(corners))
	for _, c := range corners {
		quad = append(quad, overlay.Pt(c.X, c.Y))
	}
	overlay.Polygon(canvas, quad, overlay.Red, 3)
	for _, p := range quad {
		overlay.Marker(canvas, p, overlay.Blue, 9)
	}

	if err := writePNG(filepath.Join(dir, fmt.Sprintf("corners_%d.png", ts)), canvas); err != nil {
		return err
	}
	cmp := overlay.SideBySide(canvas, rectified, max(rectified.Height, 256))
	return writePNG(filepath.Join(dir, fmt.Sprintf("compare_%d.png", ts)), cmp)
}

func writePNG(path string, img image.Image) error {
	f, err := os.Create(path) //nolint:gosec // G304: path is built from a timestamp in the debug directory
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
