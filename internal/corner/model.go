// Package corner locates the four corners of a photographed document using a
// heatmap model. The model is reached through the Model interface so the
// process-wide ONNX session can be swapped for a fake in tests.
package corner

import (
	"context"
	"errors"

	"github.com/MeKo-Tech/docnorm/internal/onnx"
)

const (
	// InputSize is the side of the square model input.
	InputSize = 256
	// HeatmapSize is the side of each output heatmap.
	HeatmapSize = 128
	// NumCorners is the number of heatmap channels a valid output carries.
	NumCorners = 4
	// DefaultThreshold binarizes upsampled heatmaps.
	DefaultThreshold = 0.3

	// InputName and OutputName are the tensor names baked into the model.
	InputName  = "img"
	OutputName = "heatmap"
)

// ErrCornerDetectionFailed reports that the model did not yield four usable corners.
var ErrCornerDetectionFailed = errors.New("corner detection failed")

// Model runs the corner network on a [1,3,256,256] tensor and returns the
// heatmap tensor [1,C,h,w]. Implementations must be safe for concurrent use.
type Model interface {
	Run(ctx context.Context, input onnx.Tensor) (onnx.Tensor, error)
}

// ModelFunc adapts a function to Model.
type ModelFunc func(ctx context.Context, input onnx.Tensor) (onnx.Tensor, error)

// Run implements Model.
func (f ModelFunc) Run(ctx context.Context, input onnx.Tensor) (onnx.Tensor, error) {
	return f(ctx, input)
}
