package corner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/MeKo-Tech/docnorm/internal/onnx"
	onnxrt "github.com/yalue/onnxruntime_go"
)

// SessionConfig configures the ONNX-backed corner model.
type SessionConfig struct {
	ModelPath  string
	NumThreads int
	GPU        onnx.GPUConfig
}

// ONNXModel is the production Model. It owns one inference session, loaded
// once and shared by all requests.
type ONNXModel struct {
	mu      sync.Mutex
	session *onnxrt.DynamicAdvancedSession
	path    string
}

var _ Model = (*ONNXModel)(nil)

// NewONNXModel loads the model. onnx.Init must have been called.
func NewONNXModel(cfg SessionConfig) (*ONNXModel, error) {
	if cfg.ModelPath == "" {
		return nil, errors.New("corner model path is empty")
	}

	inputs, outputs, err := onnxrt.GetInputOutputInfo(cfg.ModelPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read model io info: %w", err)
	}
	if !hasName(inputs, InputName) || !hasName(outputs, OutputName) {
		return nil, fmt.Errorf("model %s must expose input %q and output %q", cfg.ModelPath, InputName, OutputName)
	}

	opts, err := onnxrt.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("failed to create session options: %w", err)
	}
	defer func() {
		if err := opts.Destroy(); err != nil {
			slog.Warn("failed to destroy session options", "error", err)
		}
	}()

	if err := onnx.ConfigureSessionForGPU(opts, cfg.GPU); err != nil {
		return nil, fmt.Errorf("failed to configure GPU: %w", err)
	}
	if cfg.NumThreads > 0 {
		if err := opts.SetIntraOpNumThreads(cfg.NumThreads); err != nil {
			return nil, fmt.Errorf("failed to set thread count: %w", err)
		}
	}

	session, err := onnxrt.NewDynamicAdvancedSession(cfg.ModelPath,
		[]string{InputName}, []string{OutputName}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to create ONNX session: %w", err)
	}

	slog.Debug("corner model loaded", "path", cfg.ModelPath, "threads", cfg.NumThreads, "gpu", cfg.GPU.UseGPU)
	return &ONNXModel{session: session, path: cfg.ModelPath}, nil
}

func hasName(infos []onnxrt.InputOutputInfo, name string) bool {
	return slices.ContainsFunc(infos, func(i onnxrt.InputOutputInfo) bool { return i.Name == name })
}

// Run implements Model. Inference is serialized on the session.
func (m *ONNXModel) Run(ctx context.Context, input onnx.Tensor) (onnx.Tensor, error) {
	if err := ctx.Err(); err != nil {
		return onnx.Tensor{}, err
	}

	in, err := onnxrt.NewTensor(onnxrt.NewShape(input.Shape...), input.Data)
	if err != nil {
		return onnx.Tensor{}, fmt.Errorf("failed to create input tensor: %w", err)
	}
	defer func() { _ = in.Destroy() }()

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session == nil {
		return onnx.Tensor{}, errors.New("corner model is closed")
	}

	outs := []onnxrt.Value{nil}
	if err := m.session.Run([]onnxrt.Value{in}, outs); err != nil {
		return onnx.Tensor{}, fmt.Errorf("inference failed: %w", err)
	}
	if outs[0] == nil {
		return onnx.Tensor{}, errors.New("no output from model")
	}
	defer func() { _ = outs[0].Destroy() }()

	t, ok := outs[0].(*onnxrt.Tensor[float32])
	if !ok {
		return onnx.Tensor{}, errors.New("invalid output tensor type")
	}

	// Output memory belongs to the runtime and dies with Destroy.
	data := slices.Clone(t.GetData())
	return onnx.Tensor{Data: data, Shape: slices.Clone([]int64(t.GetShape()))}, nil
}

// Close releases the session. The ONNX environment is left to onnx.Shutdown.
func (m *ONNXModel) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session == nil {
		return nil
	}
	err := m.session.Destroy()
	m.session = nil
	if err != nil {
		return fmt.Errorf("failed to destroy session %s: %w", m.path, err)
	}
	return nil
}
