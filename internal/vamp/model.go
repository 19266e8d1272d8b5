// Package vamp implements the iterative masked-token generation engine:
// a coarse predictive stage followed by a coarse-to-fine upsampling stage,
// both driven by the same schedule and confidence-ranked partial commit.
package vamp

import (
	"context"
	"errors"
	"fmt"

	"github.com/samcharles93/vamp/internal/grid"
)

// ErrShapeMismatch indicates the model returned logits whose shape
// disagrees with the grid. It is a contract violation and is never retried.
var ErrShapeMismatch = errors.New("vamp: model output shape mismatch")

// Model is the predictive capability the sampler drives. Implementations
// are stateless per call and must tolerate arbitrary mask patterns, not
// just prefix masks. The fine model sees the committed coarse rows in the
// grid as its conditioning context.
type Model interface {
	// Infer returns logits of shape [hi-lo][steps][vocab] for the layer
	// span this model predicts, given the current grid state.
	Infer(ctx context.Context, g *grid.Grid) ([][][]float32, error)
	// LayerRange reports the half-open [lo, hi) span of codebook layers
	// this model predicts.
	LayerRange() (lo, hi int)
}

// checkShape validates model output against the grid before any token is
// written.
func checkShape(out [][][]float32, g *grid.Grid, lo, hi int) error {
	if len(out) != hi-lo {
		return fmt.Errorf("%w: got %d layer rows, want %d", ErrShapeMismatch, len(out), hi-lo)
	}
	for l, row := range out {
		if len(row) != g.Steps {
			return fmt.Errorf("%w: layer %d has %d steps, want %d", ErrShapeMismatch, lo+l, len(row), g.Steps)
		}
		for t, vec := range row {
			if len(vec) != g.Vocab {
				return fmt.Errorf("%w: layer %d step %d has %d logits, want %d",
					ErrShapeMismatch, lo+l, t, len(vec), g.Vocab)
			}
		}
	}
	return nil
}
