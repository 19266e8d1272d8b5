package vamp

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/samcharles93/vamp/internal/grid"
	"github.com/samcharles93/vamp/internal/logger"
	"github.com/samcharles93/vamp/internal/logits"
	"github.com/samcharles93/vamp/internal/schedule"
)

// StageConfig drives one generation stage. Immutable for the duration of a
// call.
type StageConfig struct {
	Iterations int
	Sampling   logits.SamplerConfig
	Curve      schedule.Curve
}

type candidate struct {
	pos  grid.Position
	conf float64
}

// runStage executes the iterative masked refinement over the model's layer
// span: a full prediction pass fills every masked position, then the lowest
// confidence tokens are re-masked according to the schedule. Positions
// committed in earlier iterations carry infinite confidence, so only
// just-sampled tokens are ever re-masked and fixed positions are never
// touched at all.
func runStage(ctx context.Context, log logger.Logger, g *grid.Grid, m Model, cfg StageConfig, sampler *logits.Sampler) (StageStats, error) {
	lo, hi := m.LayerRange()
	start := time.Now()

	iters := cfg.Iterations
	if iters < 1 {
		iters = 1
	}

	total := g.MaskedCount(lo, hi)
	stats := StageStats{Iterations: iters, Positions: total}
	if total == 0 {
		stats.Duration = time.Since(start)
		return stats, nil
	}

	var allConf []float64
	cands := make([]candidate, 0, total)

	for i := 0; i < iters; i++ {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		out, err := m.Infer(ctx, g)
		if err != nil {
			return stats, fmt.Errorf("infer iteration %d: %w", i, err)
		}
		if err := checkShape(out, g, lo, hi); err != nil {
			return stats, err
		}

		// Full prediction pass: every currently-masked position is filled.
		positions := g.MaskedPositions(lo, hi)
		cands = cands[:0]
		for _, p := range positions {
			tok, conf, err := sampler.Sample(out[p.Layer-lo][p.Step])
			if err != nil {
				return stats, fmt.Errorf("sample layer %d step %d: %w", p.Layer, p.Step, err)
			}
			g.Tokens[p.Layer][p.Step] = tok
			g.Mask[p.Layer][p.Step] = false
			cands = append(cands, candidate{pos: p, conf: conf})
		}

		remask := schedule.Remaining(total, i+1, iters, cfg.Curve)
		if i != iters-1 {
			// Keep at least one commit and one re-mask per non-final pass.
			if remask > len(cands)-1 {
				remask = len(cands) - 1
			}
			if remask < 1 {
				remask = 1
			}
		}

		// Rank ascending by confidence; on ties prefer re-masking later
		// time steps so earlier context stabilises first.
		sort.SliceStable(cands, func(a, b int) bool {
			ca, cb := cands[a], cands[b]
			if ca.conf != cb.conf {
				return ca.conf < cb.conf
			}
			if ca.pos.Step != cb.pos.Step {
				return ca.pos.Step > cb.pos.Step
			}
			return ca.pos.Layer > cb.pos.Layer
		})

		for j := 0; j < remask && j < len(cands); j++ {
			p := cands[j].pos
			g.Mask[p.Layer][p.Step] = true
			g.Tokens[p.Layer][p.Step] = g.MaskToken()
		}

		iterConf := make([]float64, len(cands))
		for j, c := range cands {
			iterConf[j] = c.conf
		}
		mean, low := summarise(iterConf)
		stats.PerIteration = append(stats.PerIteration, IterationStats{
			Sampled:        len(cands),
			Remasked:       remask,
			MeanConfidence: mean,
			MinConfidence:  low,
		})
		for _, c := range cands[remask:] {
			allConf = append(allConf, c.conf)
		}

		log.Debug("stage iteration",
			"iteration", i,
			"sampled", len(cands),
			"remasked", remask,
			"mean_confidence", mean)
	}

	if n := g.MaskedCount(lo, hi); n != 0 {
		return stats, fmt.Errorf("%w: %d positions still masked after final iteration", ErrShapeMismatch, n)
	}

	stats.MeanConfidence, stats.MinConfidence = summarise(allConf)
	stats.Duration = time.Since(start)
	return stats, nil
}
