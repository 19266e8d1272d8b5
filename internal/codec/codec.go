// Package codec defines the bridge between waveforms and token grids.
//
// The neural codec itself is an external collaborator; this package only
// fixes the contract the sampler relies on: audio in, token grid out, and
// back. The round trip is lossy.
package codec

import (
	"context"
	"errors"
	"fmt"

	"github.com/samcharles93/vamp/internal/grid"
)

var ErrPartialGrid = errors.New("codec: grid contains masked positions")

// Codec converts between waveforms and token grids.
type Codec interface {
	// Encode quantises a mono waveform into a token grid.
	Encode(ctx context.Context, samples []float32, sampleRate int) (*grid.Grid, error)
	// Decode renders a fully committed token grid back to a waveform.
	// Implementations must reject grids that still contain mask sentinels.
	Decode(ctx context.Context, g *grid.Grid) ([]float32, error)

	SampleRate() int
	// HopLength is the number of audio samples covered by one time step.
	HopLength() int
	Layers() int
	Vocab() int
}

// CheckComplete guards Decode implementations against partial grids from a
// cancelled or failed run.
func CheckComplete(g *grid.Grid) error {
	if err := g.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrPartialGrid, err)
	}
	return nil
}
