package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/vamp/internal/audio"
	"github.com/samcharles93/vamp/internal/constraint"
	"github.com/samcharles93/vamp/internal/grid"
	"github.com/samcharles93/vamp/internal/logger"
	"github.com/samcharles93/vamp/internal/logits"
	"github.com/samcharles93/vamp/internal/schedule"
	"github.com/samcharles93/vamp/internal/vamp"
	"github.com/samcharles93/vamp/pkg/vgf"
)

func generateCmd() *cli.Command {
	var (
		steps          int64
		seed           int64
		temp           float64
		filter         string
		topK           int64
		topP           float64
		typicalMass    float64
		iterations     int64
		fineIterations int64
		curve          string

		inWAV   string
		inGrid  string
		outWAV  string
		outGrid string

		keepSpecs []string
		loop      bool
		loopWidth int64
	)

	flags := []cli.Flag{
		&cli.Int64Flag{
			Name:        "steps",
			Aliases:     []string{"n"},
			Usage:       "time steps to generate (ignored when a prompt sets the length)",
			Value:       256,
			Destination: &steps,
		},
		&cli.Int64Flag{
			Name:        "seed",
			Usage:       "random seed (0 = time-based)",
			Destination: &seed,
		},
		&cli.Float64Flag{
			Name:        "temp",
			Aliases:     []string{"temperature", "t"},
			Usage:       "sampling temperature",
			Value:       1.0,
			Destination: &temp,
		},
		&cli.StringFlag{
			Name:        "filter",
			Usage:       "filtering policy (none, top-k, top-p, typical)",
			Value:       "top-p",
			Destination: &filter,
		},
		&cli.Int64Flag{
			Name:        "top-k",
			Aliases:     []string{"top_k", "topk"},
			Usage:       "top-k sampling parameter",
			Value:       40,
			Destination: &topK,
		},
		&cli.Float64Flag{
			Name:        "top-p",
			Aliases:     []string{"top_p", "topp"},
			Usage:       "top-p sampling parameter",
			Value:       0.95,
			Destination: &topP,
		},
		&cli.Float64Flag{
			Name:        "typical-mass",
			Aliases:     []string{"typical_mass"},
			Usage:       "typical filtering mass",
			Value:       0.2,
			Destination: &typicalMass,
		},
		&cli.Int64Flag{
			Name:        "iterations",
			Aliases:     []string{"i"},
			Usage:       "coarse refinement iterations",
			Value:       12,
			Destination: &iterations,
		},
		&cli.Int64Flag{
			Name:        "fine-iterations",
			Aliases:     []string{"fine_iterations"},
			Usage:       "coarse-to-fine refinement iterations",
			Value:       4,
			Destination: &fineIterations,
		},
		&cli.StringFlag{
			Name:        "curve",
			Usage:       "mask schedule curve (cosine, linear)",
			Value:       "cosine",
			Destination: &curve,
		},
		&cli.StringFlag{
			Name:        "in",
			Usage:       "prompt WAV file (encoded through the codec)",
			Destination: &inWAV,
		},
		&cli.StringFlag{
			Name:        "grid-in",
			Aliases:     []string{"grid_in"},
			Usage:       "prompt token grid (.vgf)",
			Destination: &inGrid,
		},
		&cli.StringFlag{
			Name:        "out",
			Aliases:     []string{"o"},
			Usage:       "output WAV file",
			Value:       "vamp-out.wav",
			Destination: &outWAV,
		},
		&cli.StringFlag{
			Name:        "grid-out",
			Aliases:     []string{"grid_out"},
			Usage:       "optional output token grid (.vgf)",
			Destination: &outGrid,
		},
		&cli.StringSliceFlag{
			Name:        "keep",
			Usage:       "fixed time-step region start:end (repeatable)",
			Destination: &keepSpecs,
		},
		&cli.BoolFlag{
			Name:        "loop",
			Usage:       "stitch boundary steps so the result loops seamlessly",
			Destination: &loop,
		},
		&cli.Int64Flag{
			Name:        "loop-width",
			Aliases:     []string{"loop_width"},
			Usage:       "boundary steps mirrored for loop stitching",
			Value:       4,
			Destination: &loopWidth,
		},
	}
	flags = append(flags, pipelineFlags()...)

	return &cli.Command{
		Name:  "generate",
		Usage: "Generate or vamp a token grid and decode it to audio",
		Flags: flags,
		Action: func(ctx context.Context, cmd *cli.Command) error {
			log := logger.FromContext(ctx)
			cfg := LoadConfig()
			applyGenerateConfig(cmd, cfg,
				&temp, &filter, &topK, &topP, &typicalMass,
				&iterations, &fineIterations, &curve, &seed)

			eng := buildEngine(log)

			prompt, err := loadPrompt(ctx, eng, inWAV, inGrid)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: load prompt: %v", err), 1)
			}
			if prompt != nil {
				steps = int64(prompt.Steps)
			}

			keep, err := parseRegions(keepSpecs)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}

			f, err := logits.ParseFilter(filter)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}
			crv, err := schedule.ParseCurve(curve)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}

			sampling := logits.SamplerConfig{
				Temperature: float32(temp),
				Filter:      f,
				TopK:        int(topK),
				TopP:        float32(topP),
				TypicalMass: float32(typicalMass),
			}

			req := &vamp.Request{
				Steps:     int(steps),
				Seed:      seed,
				Prompt:    prompt,
				Keep:      keep,
				Loop:      loop,
				LoopWidth: int(loopWidth),
				CoarseConfig: vamp.StageConfig{
					Iterations: int(iterations),
					Sampling:   sampling,
					Curve:      crv,
				},
				FineConfig: vamp.StageConfig{
					Iterations: int(fineIterations),
					Sampling:   sampling,
					Curve:      crv,
				},
			}

			start := time.Now()
			res, err := eng.Generate(ctx, req)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: generate: %v", err), 1)
			}

			if err := audio.WriteWAV(outWAV, res.Waveform, res.SampleRate); err != nil {
				return cli.Exit(fmt.Sprintf("error: write %s: %v", outWAV, err), 1)
			}
			log.Info("wrote audio",
				"path", outWAV,
				"samples", len(res.Waveform),
				"duration", time.Since(start),
				"coarse_mean_confidence", res.CoarseStats.MeanConfidence,
				"fine_mean_confidence", res.FineStats.MeanConfidence)

			if outGrid != "" {
				meta := vgf.Meta{
					SampleRate: res.SampleRate,
					HopLength:  eng.Codec.HopLength(),
					CreatedAt:  time.Now().Unix(),
				}
				if err := vgf.WriteGridFile(outGrid, res.Grid, meta); err != nil {
					return cli.Exit(fmt.Sprintf("error: write %s: %v", outGrid, err), 1)
				}
				log.Info("wrote grid", "path", outGrid)
			}
			return nil
		},
	}
}

// loadPrompt resolves the optional prompt source: an encoded WAV file or a
// stored token grid. At most one may be given.
func loadPrompt(ctx context.Context, eng *vamp.Engine, inWAV, inGrid string) (*grid.Grid, error) {
	switch {
	case inWAV != "" && inGrid != "":
		return nil, fmt.Errorf("--in and --grid-in are mutually exclusive")
	case inWAV != "":
		samples, rate, err := audio.ReadWAV(inWAV)
		if err != nil {
			return nil, err
		}
		return eng.Codec.Encode(ctx, samples, rate)
	case inGrid != "":
		g, _, err := vgf.ReadGridFile(inGrid)
		return g, err
	default:
		return nil, nil
	}
}

// parseRegions parses repeated "start:end" specs into constraint regions.
func parseRegions(specs []string) ([]constraint.Region, error) {
	var out []constraint.Region
	for _, s := range specs {
		lo, hi, ok := strings.Cut(s, ":")
		if !ok {
			return nil, fmt.Errorf("keep region %q: want start:end", s)
		}
		start, err := strconv.Atoi(strings.TrimSpace(lo))
		if err != nil {
			return nil, fmt.Errorf("keep region %q: %v", s, err)
		}
		end, err := strconv.Atoi(strings.TrimSpace(hi))
		if err != nil {
			return nil, fmt.Errorf("keep region %q: %v", s, err)
		}
		out = append(out, constraint.Region{Start: start, End: end})
	}
	return out, nil
}
