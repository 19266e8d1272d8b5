// Package constraint builds the initial grid state for a generation
// request: prompt token injection, user fixed regions and loop stitching.
// All pinning happens here, before any stage runs; stages never un-fix a
// position.
package constraint

import (
	"errors"
	"fmt"

	"github.com/samcharles93/vamp/internal/grid"
)

var (
	ErrPromptTooLong = errors.New("constraint: prompt exceeds grid length")
	ErrPromptShape   = errors.New("constraint: prompt layer count mismatch")
	ErrBadRegion     = errors.New("constraint: keep region out of range")
	ErrLoopWidth     = errors.New("constraint: invalid loop boundary width")
)

// Region is a half-open [Start, End) range of time steps to keep fixed
// across all codebook layers.
type Region struct {
	Start int
	End   int
}

// Spec describes the initial grid for one generation request.
type Spec struct {
	Layers int
	Steps  int
	Vocab  int

	// Prompt optionally seeds the grid with encoded audio tokens. It may be
	// shorter than Steps; positions beyond it start masked.
	Prompt *grid.Grid

	// Keep pins prompt tokens inside these regions for all stages.
	Keep []Region

	// Loop mirrors LoopWidth tail steps into fixed head positions so the
	// generated clip loops seamlessly. Requires a full-length prompt.
	Loop      bool
	LoopWidth int
}

// Build returns a grid ready for the coarse stage: every cell masked except
// those pinned by Keep regions or loop stitching.
func Build(spec Spec) (*grid.Grid, error) {
	g, err := grid.New(spec.Layers, spec.Steps, spec.Vocab)
	if err != nil {
		return nil, err
	}

	promptSteps := 0
	if spec.Prompt != nil {
		if spec.Prompt.Layers != spec.Layers {
			return nil, fmt.Errorf("%w: prompt has %d layers, grid has %d",
				ErrPromptShape, spec.Prompt.Layers, spec.Layers)
		}
		if spec.Prompt.Steps > spec.Steps {
			return nil, fmt.Errorf("%w: prompt %d steps, grid %d steps",
				ErrPromptTooLong, spec.Prompt.Steps, spec.Steps)
		}
		promptSteps = spec.Prompt.Steps
	}

	for _, reg := range spec.Keep {
		if reg.Start < 0 || reg.End <= reg.Start || reg.End > spec.Steps {
			return nil, fmt.Errorf("%w: [%d,%d) in %d steps", ErrBadRegion, reg.Start, reg.End, spec.Steps)
		}
		if reg.End > promptSteps {
			return nil, fmt.Errorf("%w: [%d,%d) beyond prompt length %d",
				ErrBadRegion, reg.Start, reg.End, promptSteps)
		}
		for l := 0; l < spec.Layers; l++ {
			for t := reg.Start; t < reg.End; t++ {
				if err := g.Pin(l, t, spec.Prompt.Tokens[l][t]); err != nil {
					return nil, err
				}
			}
		}
	}

	if spec.Loop {
		if err := stitchLoop(g, spec, promptSteps); err != nil {
			return nil, err
		}
	}

	return g, nil
}

// stitchLoop pins the prompt's tail tokens at both ends of the grid: the
// tail keeps its own tokens and the head receives a copy, so decoding the
// result end-to-start crosses an identical boundary.
func stitchLoop(g *grid.Grid, spec Spec, promptSteps int) error {
	w := spec.LoopWidth
	if w <= 0 || 2*w > spec.Steps {
		return fmt.Errorf("%w: width %d on %d steps", ErrLoopWidth, w, spec.Steps)
	}
	if promptSteps < spec.Steps {
		return fmt.Errorf("%w: loop stitching needs a full-length prompt (%d < %d steps)",
			ErrLoopWidth, promptSteps, spec.Steps)
	}
	for l := 0; l < spec.Layers; l++ {
		for i := 0; i < w; i++ {
			tail := spec.Steps - w + i
			tok := spec.Prompt.Tokens[l][tail]
			if err := g.Pin(l, i, tok); err != nil {
				return err
			}
			if err := g.Pin(l, tail, tok); err != nil {
				return err
			}
		}
	}
	return nil
}
