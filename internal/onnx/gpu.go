package onnx

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strconv"

	"github.com/yalue/onnxruntime_go"
)

const (
	osLinux    = "linux"
	osDarwin   = "darwin"
	osWindows  = "windows"
	libLinux   = "libonnxruntime.so"
	libDarwin  = "libonnxruntime.dylib"
	libWindows = "onnxruntime.dll"
)

// GPUConfig holds configuration for CUDA acceleration.
type GPUConfig struct {
	UseGPU              bool   `mapstructure:"enabled" yaml:"enabled" json:"enabled"`
	DeviceID            int    `mapstructure:"device" yaml:"device" json:"device"`
	GPUMemLimit         uint64 `mapstructure:"memory_limit" yaml:"memory_limit" json:"memory_limit"` // bytes, 0 = unlimited
	ArenaExtendStrategy string `mapstructure:"arena_extend_strategy" yaml:"arena_extend_strategy" json:"arena_extend_strategy"`
}

// DefaultGPUConfig returns a CPU-only configuration.
func DefaultGPUConfig() GPUConfig {
	return GPUConfig{
		UseGPU:              false,
		DeviceID:            0,
		ArenaExtendStrategy: "kNextPowerOfTwo",
	}
}

// ValidateGPUConfig checks if the GPU configuration is valid.
func ValidateGPUConfig(config GPUConfig) error {
	if !config.UseGPU {
		return nil
	}
	if config.DeviceID < 0 {
		return fmt.Errorf("device ID must be non-negative, got %d", config.DeviceID)
	}
	switch config.ArenaExtendStrategy {
	case "", "kNextPowerOfTwo", "kSameAsRequested":
	default:
		return fmt.Errorf("invalid arena extend strategy: %s (must be 'kNextPowerOfTwo' or "+
			"'kSameAsRequested')", config.ArenaExtendStrategy)
	}
	return nil
}

// ConfigureSessionForGPU appends the CUDA execution provider when requested.
func ConfigureSessionForGPU(sessionOptions *onnxruntime_go.SessionOptions, gpuConfig GPUConfig) error {
	if !gpuConfig.UseGPU {
		return nil
	}

	cudaOpts, err := onnxruntime_go.NewCUDAProviderOptions()
	if err != nil {
		return fmt.Errorf("failed to create CUDA provider options (GPU may not be available): %w", err)
	}
	defer func() {
		if destroyErr := cudaOpts.Destroy(); destroyErr != nil {
			slog.Warn("failed to destroy CUDA provider options", "error", destroyErr)
		}
	}()

	settings := map[string]string{
		"device_id": strconv.Itoa(gpuConfig.DeviceID),
	}
	if gpuConfig.GPUMemLimit > 0 {
		settings["gpu_mem_limit"] = strconv.FormatUint(gpuConfig.GPUMemLimit, 10)
	}
	if gpuConfig.ArenaExtendStrategy != "" {
		settings["arena_extend_strategy"] = gpuConfig.ArenaExtendStrategy
	}

	if err := cudaOpts.Update(settings); err != nil {
		return fmt.Errorf("failed to update CUDA provider options: %w", err)
	}
	if err := sessionOptions.AppendExecutionProviderCUDA(cudaOpts); err != nil {
		return fmt.Errorf("failed to append CUDA execution provider: %w", err)
	}
	return nil
}

// systemLibraryPaths returns well-known install locations, GPU builds first when requested.
func systemLibraryPaths(useGPU bool) []string {
	cpu := []string{
		"/usr/local/lib/libonnxruntime.so",
		"/usr/lib/libonnxruntime.so",
		"/opt/onnxruntime/cpu/lib/libonnxruntime.so",
	}
	if useGPU {
		return append([]string{"/opt/onnxruntime/gpu/lib/libonnxruntime.so"}, cpu...)
	}
	return cpu
}

// libraryName returns the shared library filename for the current OS.
func libraryName(goos string) (string, error) {
	switch goos {
	case osLinux:
		return libLinux, nil
	case osDarwin:
		return libDarwin, nil
	case osWindows:
		return libWindows, nil
	default:
		return "", fmt.Errorf("unsupported operating system: %s", goos)
	}
}

// findProjectRoot walks up from the working directory until it finds go.mod.
func findProjectRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get current directory: %w", err)
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", errors.New("could not find project root")
		}
		dir = parent
	}
}

// ResolveLibraryPath picks the ONNX Runtime shared library to load.
// An explicit path wins; otherwise system locations are probed, then
// <project>/onnxruntime/{gpu/,}lib.
func ResolveLibraryPath(explicit string, useGPU bool) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("ONNX Runtime library %s: %w", explicit, err)
		}
		return explicit, nil
	}

	for _, p := range systemLibraryPaths(useGPU) {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}

	root, err := findProjectRoot()
	if err != nil {
		return "", err
	}
	name, err := libraryName(runtime.GOOS)
	if err != nil {
		return "", err
	}

	candidates := []string{filepath.Join(root, "onnxruntime", "lib", name)}
	if useGPU {
		candidates = append([]string{filepath.Join(root, "onnxruntime", "gpu", "lib", name)}, candidates...)
	}
	for _, p := range candidates {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}
	return "", fmt.Errorf("ONNX Runtime library not found (tried %v)", candidates)
}
