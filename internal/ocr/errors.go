package ocr

import (
	"errors"
	"fmt"
)

var (
	// ErrUnsupportedEngine is returned for an engine name nobody registered.
	ErrUnsupportedEngine = errors.New("unsupported engine")
	// ErrRecognitionEngineFailure wraps network, API and response errors
	// from an engine.
	ErrRecognitionEngineFailure = errors.New("recognition engine failure")
)

// EngineError attributes a failure to an engine and lifecycle phase.
type EngineError struct {
	Engine string
	Phase  string
	Err    error
}

func (e *EngineError) Error() string {
	return fmt.Sprintf("engine %s %s: %v", e.Engine, e.Phase, e.Err)
}

func (e *EngineError) Unwrap() error { return e.Err }

// Is lets every EngineError match ErrRecognitionEngineFailure.
func (e *EngineError) Is(target error) bool {
	return target == ErrRecognitionEngineFailure
}

