package corner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/MeKo-Tech/docnorm/internal/mempool"
	"github.com/MeKo-Tech/docnorm/internal/onnx"
	"github.com/MeKo-Tech/docnorm/internal/raster"
)

// Corners holds the detected points in model channel order. rectify.Rectify
// owns the mapping from channel order to output corners.
type Corners [NumCorners]raster.PaddedPoint

// Detector turns a padded raster into four corner points.
type Detector struct {
	model     Model
	threshold float32
}

// Option configures a Detector.
type Option func(*Detector)

// WithThreshold overrides the heatmap binarization threshold.
func WithThreshold(t float32) Option {
	return func(d *Detector) { d.threshold = t }
}

// NewDetector wraps an already-loaded model handle.
func NewDetector(model Model, opts ...Option) (*Detector, error) {
	if model == nil {
		return nil, errors.New("corner detector requires a model")
	}
	d := &Detector{model: model, threshold: DefaultThreshold}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// Detect runs the model on padded and reduces each heatmap to the centroid
// of its largest thresholded contour, in padded-canvas coordinates.
func (d *Detector) Detect(ctx context.Context, padded *raster.Raster) (Corners, error) {
	start := time.Now()

	input, err := BuildInput(padded)
	if err != nil {
		return Corners{}, err
	}
	output, err := d.model.Run(ctx, input)
	mempool.PutFloat32(input.Data)
	if err != nil {
		return Corners{}, fmt.Errorf("corner model: %w", err)
	}

	if err := onnx.ValidateNCHW(output.Shape); err != nil {
		return Corners{}, fmt.Errorf("%w: heatmap shape %v: %v", ErrCornerDetectionFailed, output.Shape, err)
	}
	if output.Shape[1] != NumCorners {
		return Corners{}, fmt.Errorf("%w: model returned %d heatmaps, want %d",
			ErrCornerDetectionFailed, output.Shape[1], NumCorners)
	}

	hh, hw := int(output.Shape[2]), int(output.Shape[3])
	if slog.Default().Enabled(ctx, slog.LevelDebug) {
		minV, maxV, mean := onnx.TensorStats(output.Data)
		slog.Debug("corner heatmaps", "shape", output.Shape, "min", minV, "max", maxV, "mean", mean)
	}

	var corners Corners
	for c := range NumCorners {
		plane, err := output.Channel(c)
		if err != nil {
			return Corners{}, fmt.Errorf("%w: %v", ErrCornerDetectionFailed, err)
		}
		p, ok := d.locate(plane, hw, hh, padded.Width, padded.Height)
		if !ok {
			return Corners{}, fmt.Errorf("%w: heatmap %d has no region above %.2f",
				ErrCornerDetectionFailed, c, d.threshold)
		}
		corners[c] = p
	}

	slog.Debug("corners detected",
		"corners", corners,
		"padded_size", padded.Width,
		"duration_ms", time.Since(start).Milliseconds())
	return corners, nil
}

// locate upsamples one heatmap to the padded size, thresholds it and returns
// the centroid of the largest external contour.
func (d *Detector) locate(plane []float32, hw, hh, w, h int) (raster.PaddedPoint, bool) {
	mask := binarizeUpsampled(plane, hw, hh, w, h, d.threshold)
	defer mempool.PutBool(mask)

	comps, labels := connectedComponents(mask, w, h)
	if len(comps) == 0 {
		return raster.PaddedPoint{}, false
	}

	var best []point
	bestArea := math.Inf(-1)
	for _, c := range comps {
		contour := traceOuterContour(labels, w, h, c)
		area := math.Abs(polygonMoments(contour).m00)
		if area > bestArea {
			bestArea = area
			best = contour
		}
	}

	x, y := centroid(best)
	return raster.PaddedPoint{X: x, Y: y}, true
}
