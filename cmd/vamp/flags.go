package main

import (
	"log/slog"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/vamp/internal/logger"
)

var (
	logLevel  string
	logFormat string
	debug     bool

	// Synthetic pipeline shape. Real model/codec backends plug in through
	// the library API; the CLI drives the deterministic synthetic pair.
	layers       int64
	coarseLayers int64
	vocab        int64
	sampleRate   int64
	hopLength    int64
)

func loggingFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "log-level",
			Usage:       "log level (debug, info, warn, error)",
			Value:       "info",
			Destination: &logLevel,
		},
		&cli.StringFlag{
			Name:        "log-format",
			Usage:       "log format (pretty, json, text)",
			Value:       "pretty",
			Destination: &logFormat,
		},
		&cli.BoolFlag{
			Name:        "debug",
			Usage:       "enable debug logging (shorthand for --log-level=debug)",
			Destination: &debug,
		},
	}
}

func buildLogger() logger.Logger {
	level := logger.ParseLevel(logLevel)
	if debug {
		level = slog.LevelDebug
	}
	switch logFormat {
	case "json":
		return logger.JSON(os.Stderr, level)
	case "text":
		return logger.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	default:
		return logger.Pretty(os.Stderr, level)
	}
}

func pipelineFlags() []cli.Flag {
	return []cli.Flag{
		&cli.Int64Flag{
			Name:        "layers",
			Usage:       "total codebook layers",
			Value:       8,
			Destination: &layers,
		},
		&cli.Int64Flag{
			Name:        "coarse-layers",
			Aliases:     []string{"coarse_layers"},
			Usage:       "layers predicted by the coarse model",
			Value:       4,
			Destination: &coarseLayers,
		},
		&cli.Int64Flag{
			Name:        "vocab",
			Usage:       "codebook vocabulary size",
			Value:       1024,
			Destination: &vocab,
		},
		&cli.Int64Flag{
			Name:        "sample-rate",
			Aliases:     []string{"sample_rate"},
			Usage:       "codec sample rate",
			Value:       44100,
			Destination: &sampleRate,
		},
		&cli.Int64Flag{
			Name:        "hop-length",
			Aliases:     []string{"hop_length"},
			Usage:       "codec samples per time step",
			Value:       512,
			Destination: &hopLength,
		},
	}
}
