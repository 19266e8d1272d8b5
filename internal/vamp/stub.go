package vamp

import (
	"context"

	"github.com/samcharles93/vamp/internal/grid"
)

// StubModel is a deterministic Model used by tests and the synthetic CLI
// mode. Each cell prefers one vocabulary entry, with the peak sharpened by
// how many of the cell's step neighbours are already committed, so the
// confidence ranking changes across iterations the way a real model's
// would.
type StubModel struct {
	Lo    int
	Hi    int
	Vocab int

	// Preferred overrides the default preferred-token rule when non-nil.
	Preferred func(layer, step int) int
}

func (m *StubModel) LayerRange() (int, int) { return m.Lo, m.Hi }

func (m *StubModel) Infer(ctx context.Context, g *grid.Grid) ([][][]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make([][][]float32, m.Hi-m.Lo)
	for l := m.Lo; l < m.Hi; l++ {
		row := make([][]float32, g.Steps)
		for t := 0; t < g.Steps; t++ {
			vec := make([]float32, m.Vocab)
			peak := float32(4.0)
			if t > 0 && !g.Mask[l][t-1] {
				peak += 2
			}
			if t+1 < g.Steps && !g.Mask[l][t+1] {
				peak += 2
			}
			vec[m.preferred(l, t)] = peak
			row[t] = vec
		}
		out[l-m.Lo] = row
	}
	return out, nil
}

func (m *StubModel) preferred(layer, step int) int {
	if m.Preferred != nil {
		return m.Preferred(layer, step) % m.Vocab
	}
	return (layer*31 + step*7) % m.Vocab
}
