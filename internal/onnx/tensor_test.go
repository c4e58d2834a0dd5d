package onnx

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewImageTensor(t *testing.T) {
	data := make([]float32, 3*4*5)
	tensor, err := NewImageTensor(data, 3, 4, 5)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 3, 4, 5}, tensor.Shape)

	_, err = NewImageTensor(data[:10], 3, 4, 5)
	assert.Error(t, err)

	_, err = NewImageTensor(nil, 3, 4, 5)
	assert.Error(t, err)
}

func TestValidateNCHW(t *testing.T) {
	tests := []struct {
		name    string
		shape   []int64
		wantErr bool
	}{
		{"valid", []int64{1, 4, 128, 128}, false},
		{"rank 3", []int64{4, 128, 128}, true},
		{"zero dim", []int64{1, 0, 128, 128}, true},
		{"negative dim", []int64{1, 4, -1, 128}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateNCHW(tt.shape)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestTensor_Channel(t *testing.T) {
	data := make([]float32, 2*2*3)
	for i := range data {
		data[i] = float32(i)
	}
	tensor := Tensor{Data: data, Shape: []int64{1, 2, 2, 3}}

	ch1, err := tensor.Channel(1)
	require.NoError(t, err)
	assert.Equal(t, []float32{6, 7, 8, 9, 10, 11}, ch1)

	_, err = tensor.Channel(2)
	assert.Error(t, err)

	short := Tensor{Data: data[:7], Shape: []int64{1, 2, 2, 3}}
	_, err = short.Channel(1)
	assert.Error(t, err)
}

func TestTensorStats(t *testing.T) {
	minV, maxV, mean := TensorStats([]float32{1, -2, 4, 1})
	assert.InDelta(t, -2, minV, 1e-6)
	assert.InDelta(t, 4, maxV, 1e-6)
	assert.InDelta(t, 1, mean, 1e-6)

	minV, maxV, mean = TensorStats(nil)
	assert.Zero(t, minV)
	assert.Zero(t, maxV)
	assert.Zero(t, mean)
}

func TestValidateGPUConfig(t *testing.T) {
	assert.NoError(t, ValidateGPUConfig(DefaultGPUConfig()))
	assert.NoError(t, ValidateGPUConfig(GPUConfig{UseGPU: true, ArenaExtendStrategy: "kSameAsRequested"}))
	assert.Error(t, ValidateGPUConfig(GPUConfig{UseGPU: true, DeviceID: -1}))
	assert.Error(t, ValidateGPUConfig(GPUConfig{UseGPU: true, ArenaExtendStrategy: "bogus"}))
}

func TestLibraryName(t *testing.T) {
	name, err := libraryName("linux")
	require.NoError(t, err)
	assert.Equal(t, libLinux, name)

	name, err = libraryName("darwin")
	require.NoError(t, err)
	assert.Equal(t, libDarwin, name)

	_, err = libraryName("plan9")
	assert.Error(t, err)
}

func TestResolveLibraryPath_Explicit(t *testing.T) {
	_, err := ResolveLibraryPath("/definitely/not/here/libonnxruntime.so", false)
	assert.Error(t, err)
}

func TestShutdownWithoutInitIsNoop(t *testing.T) {
	assert.NoError(t, Shutdown())
}
