// Package onnx wraps ONNX Runtime environment setup and tensor plumbing.
package onnx

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/yalue/onnxruntime_go"
)

// EnvConfig selects the runtime library for the process-wide environment.
type EnvConfig struct {
	LibraryPath string
	GPU         GPUConfig
}

var (
	envMu    sync.Mutex
	envRefs  int
	envOwned bool
)

// Init loads the ONNX Runtime shared library and initializes the process-wide
// environment. Calls nest: each Init must be paired with one Shutdown, and the
// environment is destroyed when the last holder shuts down.
func Init(cfg EnvConfig) error {
	envMu.Lock()
	defer envMu.Unlock()

	if envRefs > 0 {
		envRefs++
		return nil
	}

	if !onnxruntime_go.IsInitialized() {
		path, err := ResolveLibraryPath(cfg.LibraryPath, cfg.GPU.UseGPU)
		if err != nil {
			return fmt.Errorf("failed to set ONNX Runtime library path: %w", err)
		}
		onnxruntime_go.SetSharedLibraryPath(path)
		if err := onnxruntime_go.InitializeEnvironment(); err != nil {
			return fmt.Errorf("failed to initialize ONNX Runtime: %w", err)
		}
		envOwned = true
		slog.Debug("ONNX Runtime initialized", "library", path)
	}
	envRefs = 1
	return nil
}

// Shutdown releases one Init. The environment is torn down only by the last
// caller and only if Init created it.
func Shutdown() error {
	envMu.Lock()
	defer envMu.Unlock()

	if envRefs == 0 {
		return nil
	}
	envRefs--
	if envRefs > 0 || !envOwned {
		return nil
	}
	envOwned = false
	if err := onnxruntime_go.DestroyEnvironment(); err != nil {
		return fmt.Errorf("failed to destroy ONNX Runtime environment: %w", err)
	}
	return nil
}
