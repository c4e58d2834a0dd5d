package onnx

import (
	"errors"
	"fmt"
)

// Tensor is a float32 tensor prepared for or returned from a session.
// Data layout is row-major, NCHW for images.
type Tensor struct {
	Data  []float32
	Shape []int64 // e.g., [N, C, H, W]
}

// NewImageTensor builds a single-image tensor with shape [1, C, H, W].
// data must be length C*H*W in NCHW order.
func NewImageTensor(data []float32, c, h, w int) (Tensor, error) {
	if data == nil {
		return Tensor{}, errors.New("nil data")
	}
	expected := c * h * w
	if len(data) != expected {
		return Tensor{}, fmt.Errorf("unexpected data length: got %d, want %d", len(data), expected)
	}
	return Tensor{Data: data, Shape: []int64{1, int64(c), int64(h), int64(w)}}, nil
}

// ValidateNCHW ensures a shape is [N, C, H, W] with positive dimensions.
func ValidateNCHW(shape []int64) error {
	if len(shape) != 4 {
		return fmt.Errorf("shape rank %d != 4", len(shape))
	}
	for i, v := range shape {
		if v <= 0 {
			return fmt.Errorf("dimension %d must be > 0, got %d", i, v)
		}
	}
	return nil
}

// Channel returns a view of channel c of a [1, C, H, W] tensor.
func (t Tensor) Channel(c int) ([]float32, error) {
	if err := ValidateNCHW(t.Shape); err != nil {
		return nil, err
	}
	if t.Shape[0] != 1 {
		return nil, fmt.Errorf("batch size %d != 1", t.Shape[0])
	}
	plane := int(t.Shape[2] * t.Shape[3])
	if c < 0 || int64(c) >= t.Shape[1] {
		return nil, fmt.Errorf("channel %d out of range [0,%d)", c, t.Shape[1])
	}
	if len(t.Data) < (c+1)*plane {
		return nil, fmt.Errorf("tensor data too short: %d < %d", len(t.Data), (c+1)*plane)
	}
	return t.Data[c*plane : (c+1)*plane], nil
}

// TensorStats returns min, max and mean for debug output.
func TensorStats(data []float32) (float32, float32, float32) {
	if len(data) == 0 {
		return 0, 0, 0
	}
	minVal, maxVal := data[0], data[0]
	var sum float64
	for _, v := range data {
		minVal = min(minVal, v)
		maxVal = max(maxVal, v)
		sum += float64(v)
	}
	return minVal, maxVal, float32(sum / float64(len(data)))
}
