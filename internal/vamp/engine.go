package vamp

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/samcharles93/vamp/internal/codec"
	"github.com/samcharles93/vamp/internal/constraint"
	"github.com/samcharles93/vamp/internal/grid"
	"github.com/samcharles93/vamp/internal/logger"
	"github.com/samcharles93/vamp/internal/logits"
)

// Engine composes the two predictive stages with the codec bridge. The
// coarse model must predict layers [0, fineLo) and the fine model
// [fineLo, layers); Fine may be nil when the coarse model covers every
// layer.
type Engine struct {
	Coarse Model
	Fine   Model
	Codec  codec.Codec
	Log    logger.Logger
}

// Request describes one generation call. Each request owns its grid and
// random state exclusively; nothing is shared across concurrent requests.
type Request struct {
	Steps int

	// Prompt optionally seeds the grid, eg from Codec.Encode.
	Prompt *grid.Grid
	Keep   []constraint.Region

	Loop      bool
	LoopWidth int

	Seed int64

	// Vocab sizes the token vocabulary when the engine has no codec to
	// derive it from (SkipDecode runs).
	Vocab int

	CoarseConfig StageConfig
	FineConfig   StageConfig

	// SkipDecode returns the token grid without rendering audio.
	SkipDecode bool
}

// Result is the outcome of a completed generation.
type Result struct {
	Grid       *grid.Grid
	Waveform   []float32
	SampleRate int

	CoarseStats StageStats
	FineStats   StageStats
}

// Generate runs constraint handling, the coarse loop, the coarse-to-fine
// upsampler and finally the codec decode. Cancellation is checked between
// iterations; a cancelled run returns ctx.Err() and never decodes audio.
func (e *Engine) Generate(ctx context.Context, req *Request) (*Result, error) {
	if req == nil {
		return nil, errors.New("vamp: request is required")
	}
	if e.Coarse == nil {
		return nil, errors.New("vamp: coarse model is required")
	}
	if e.Codec == nil && !req.SkipDecode {
		return nil, errors.New("vamp: codec is required unless SkipDecode is set")
	}

	log := e.Log
	if log == nil {
		log = logger.FromContext(ctx)
	}

	layers, err := e.layerSpan()
	if err != nil {
		return nil, err
	}
	vocab := req.Vocab
	if e.Codec != nil {
		vocab = e.Codec.Vocab()
	}
	if vocab <= 0 {
		return nil, errors.New("vamp: vocabulary size unknown; set Request.Vocab or attach a codec")
	}

	g, err := constraint.Build(constraint.Spec{
		Layers:    layers,
		Steps:     req.Steps,
		Vocab:     vocab,
		Prompt:    req.Prompt,
		Keep:      req.Keep,
		Loop:      req.Loop,
		LoopWidth: req.LoopWidth,
	})
	if err != nil {
		return nil, err
	}

	seed := req.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	start := time.Now()
	res := &Result{}

	coarseCfg := req.CoarseConfig
	coarseCfg.Sampling.Seed = seed
	coarseSampler := logits.NewSampler(coarseCfg.Sampling)
	res.CoarseStats, err = runStage(ctx, log, g, e.Coarse, coarseCfg, coarseSampler)
	if err != nil {
		return nil, fmt.Errorf("coarse stage: %w", err)
	}

	if e.Fine != nil {
		fineCfg := req.FineConfig
		fineCfg.Sampling.Seed = seed + 1
		fineSampler := logits.NewSampler(fineCfg.Sampling)
		res.FineStats, err = runStage(ctx, log, g, e.Fine, fineCfg, fineSampler)
		if err != nil {
			return nil, fmt.Errorf("fine stage: %w", err)
		}
	}

	if err := g.Validate(); err != nil {
		return nil, err
	}
	res.Grid = g

	log.Info("generation complete",
		"steps", req.Steps,
		"layers", layers,
		"coarse_iterations", res.CoarseStats.Iterations,
		"fine_iterations", res.FineStats.Iterations,
		"duration", time.Since(start))

	if req.SkipDecode {
		return res, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	wav, err := e.Codec.Decode(ctx, g)
	if err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	res.Waveform = wav
	res.SampleRate = e.Codec.SampleRate()
	return res, nil
}

// layerSpan validates that the coarse and fine models tile the codebook
// layers contiguously from 0 and returns the total layer count.
func (e *Engine) layerSpan() (int, error) {
	cLo, cHi := e.Coarse.LayerRange()
	if cLo != 0 || cHi <= cLo {
		return 0, fmt.Errorf("%w: coarse model spans [%d,%d)", ErrShapeMismatch, cLo, cHi)
	}
	layers := cHi
	if e.Fine != nil {
		fLo, fHi := e.Fine.LayerRange()
		if fLo != cHi || fHi <= fLo {
			return 0, fmt.Errorf("%w: fine model spans [%d,%d), coarse ends at %d",
				ErrShapeMismatch, fLo, fHi, cHi)
		}
		layers = fHi
	}
	if e.Codec != nil {
		if cl := e.Codec.Layers(); cl != layers {
			return 0, fmt.Errorf("%w: codec has %d layers, models cover %d", ErrShapeMismatch, cl, layers)
		}
	}
	return layers, nil
}
