// Package inference defines the boundary to the glasses classifier runtime.
package inference

import (
	"context"
	"errors"

	"github.com/menta2k/glasses-detector/pkg/types"
)

// ErrNoEngine is returned when classification is attempted before a model is ready
var ErrNoEngine = errors.New("inference engine not ready")

// Engine runs the classifier on one 224x224x3 uint8 RGB tensor and returns
// the two class scores.
type Engine interface {
	Infer(ctx context.Context, tensor []uint8) (types.Scores, error)
	Close() error
}

// EngineFunc adapts a plain function to the Engine interface
type EngineFunc func(ctx context.Context, tensor []uint8) (types.Scores, error)

// Infer calls f
func (f EngineFunc) Infer(ctx context.Context, tensor []uint8) (types.Scores, error) {
	return f(ctx, tensor)
}

// Close is a no-op
func (f EngineFunc) Close() error {
	return nil
}
