// Package grid holds the token grid shared by every generation stage.
//
// A grid is a [layers × steps] matrix of codebook indices plus a parallel
// mask matrix. Layer 0 is the coarsest codebook; higher layers add residual
// detail. The reserved mask sentinel is the vocabulary size itself, so valid
// tokens occupy [0, Vocab) and MaskToken() never collides with them.
package grid

import (
	"errors"
	"fmt"
)

var (
	ErrBadShape   = errors.New("grid: invalid shape")
	ErrTokenRange = errors.New("grid: token out of vocabulary range")
	ErrMaskedCell = errors.New("grid: mask sentinel present")
)

// Position addresses a single cell.
type Position struct {
	Layer int
	Step  int
}

// Grid is a token matrix with its mask state.
//
// Mask marks cells that the active stage still has to (re)generate.
// Fixed marks cells pinned by the constraint handler; no stage may ever
// set Mask true on a fixed cell again.
type Grid struct {
	Layers int
	Steps  int
	Vocab  int

	Tokens [][]int
	Mask   [][]bool
	Fixed  [][]bool
}

// New returns a fully masked grid: every cell holds the mask sentinel and
// is marked for generation.
func New(layers, steps, vocab int) (*Grid, error) {
	if layers <= 0 || steps <= 0 || vocab <= 0 {
		return nil, fmt.Errorf("%w: layers=%d steps=%d vocab=%d", ErrBadShape, layers, steps, vocab)
	}
	g := &Grid{
		Layers: layers,
		Steps:  steps,
		Vocab:  vocab,
		Tokens: make([][]int, layers),
		Mask:   make([][]bool, layers),
		Fixed:  make([][]bool, layers),
	}
	for l := 0; l < layers; l++ {
		g.Tokens[l] = make([]int, steps)
		g.Mask[l] = make([]bool, steps)
		g.Fixed[l] = make([]bool, steps)
		for t := 0; t < steps; t++ {
			g.Tokens[l][t] = g.MaskToken()
			g.Mask[l][t] = true
		}
	}
	return g, nil
}

// FromTokens builds an unmasked grid from existing rows, eg codec output.
// Rows must be rectangular and every token must lie in [0, vocab).
func FromTokens(tokens [][]int, vocab int) (*Grid, error) {
	if len(tokens) == 0 || len(tokens[0]) == 0 {
		return nil, fmt.Errorf("%w: empty token matrix", ErrBadShape)
	}
	layers := len(tokens)
	steps := len(tokens[0])
	g, err := New(layers, steps, vocab)
	if err != nil {
		return nil, err
	}
	for l, row := range tokens {
		if len(row) != steps {
			return nil, fmt.Errorf("%w: ragged row %d (%d != %d)", ErrBadShape, l, len(row), steps)
		}
		for t, tok := range row {
			if tok < 0 || tok >= vocab {
				return nil, fmt.Errorf("%w: token %d at layer %d step %d", ErrTokenRange, tok, l, t)
			}
			g.Tokens[l][t] = tok
			g.Mask[l][t] = false
		}
	}
	return g, nil
}

// MaskToken returns the reserved sentinel written into masked cells.
func (g *Grid) MaskToken() int { return g.Vocab }

// Clone deep-copies the grid, including mask state.
func (g *Grid) Clone() *Grid {
	out := &Grid{
		Layers: g.Layers,
		Steps:  g.Steps,
		Vocab:  g.Vocab,
		Tokens: make([][]int, g.Layers),
		Mask:   make([][]bool, g.Layers),
		Fixed:  make([][]bool, g.Layers),
	}
	for l := 0; l < g.Layers; l++ {
		out.Tokens[l] = append([]int(nil), g.Tokens[l]...)
		out.Mask[l] = append([]bool(nil), g.Mask[l]...)
		out.Fixed[l] = append([]bool(nil), g.Fixed[l]...)
	}
	return out
}

// MaskedCount returns the number of cells currently marked for generation
// across the given layer range [lo, hi).
func (g *Grid) MaskedCount(lo, hi int) int {
	n := 0
	for l := lo; l < hi; l++ {
		for t := 0; t < g.Steps; t++ {
			if g.Mask[l][t] {
				n++
			}
		}
	}
	return n
}

// MaskedPositions lists every masked cell in layer range [lo, hi), in
// layer-major order.
func (g *Grid) MaskedPositions(lo, hi int) []Position {
	var out []Position
	for l := lo; l < hi; l++ {
		for t := 0; t < g.Steps; t++ {
			if g.Mask[l][t] {
				out = append(out, Position{Layer: l, Step: t})
			}
		}
	}
	return out
}

// MaskNonFixed re-masks every non-fixed cell in layer range [lo, hi) and
// writes the sentinel into it. Fixed cells keep their seed tokens.
func (g *Grid) MaskNonFixed(lo, hi int) {
	for l := lo; l < hi; l++ {
		for t := 0; t < g.Steps; t++ {
			if g.Fixed[l][t] {
				continue
			}
			g.Mask[l][t] = true
			g.Tokens[l][t] = g.MaskToken()
		}
	}
}

// Pin writes tok at (layer, step), clears its mask and marks it fixed.
func (g *Grid) Pin(layer, step, tok int) error {
	if layer < 0 || layer >= g.Layers || step < 0 || step >= g.Steps {
		return fmt.Errorf("%w: pin at layer %d step %d", ErrBadShape, layer, step)
	}
	if tok < 0 || tok >= g.Vocab {
		return fmt.Errorf("%w: token %d at layer %d step %d", ErrTokenRange, tok, layer, step)
	}
	g.Tokens[layer][step] = tok
	g.Mask[layer][step] = false
	g.Fixed[layer][step] = true
	return nil
}

// Validate checks the post-generation invariant: no cell holds the mask
// sentinel or any value outside [0, Vocab).
func (g *Grid) Validate() error {
	for l := 0; l < g.Layers; l++ {
		for t := 0; t < g.Steps; t++ {
			tok := g.Tokens[l][t]
			if tok == g.MaskToken() {
				return fmt.Errorf("%w: layer %d step %d", ErrMaskedCell, l, t)
			}
			if tok < 0 || tok >= g.Vocab {
				return fmt.Errorf("%w: token %d at layer %d step %d", ErrTokenRange, tok, l, t)
			}
		}
	}
	return nil
}
