package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/vamp/pkg/vgf"
)

func inspectCmd() *cli.Command {
	var (
		gridPath   string
		showTokens bool
		tokenLimit int64
	)

	return &cli.Command{
		Name:  "inspect",
		Usage: "Inspect the contents of a .vgf token grid container",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "grid",
				Aliases:     []string{"g"},
				Usage:       "path to .vgf file",
				Destination: &gridPath,
				Required:    true,
			},
			&cli.BoolFlag{
				Name:        "tokens",
				Usage:       "print token rows",
				Destination: &showTokens,
			},
			&cli.Int64Flag{
				Name:        "token-limit",
				Usage:       "max steps to print per layer",
				Value:       16,
				Destination: &tokenLimit,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			f, err := vgf.Open(gridPath)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: open %s: %v", gridPath, err), 1)
			}
			hdr := *f.Header
			sections := make([]vgf.Section, len(f.Sections))
			copy(sections, f.Sections)
			if err := f.Close(); err != nil {
				return cli.Exit(fmt.Sprintf("error: close: %v", err), 1)
			}

			fmt.Printf("file:     %s\n", gridPath)
			fmt.Printf("version:  %d.%d\n", hdr.Major, hdr.Minor)
			fmt.Printf("size:     %d bytes\n", hdr.FileSize)
			fmt.Printf("sections: %d\n", hdr.SectionCount)
			for _, s := range sections {
				fmt.Printf("  type=0x%04x version=%d offset=%d size=%d\n", s.Type, s.Version, s.Offset, s.Size)
			}

			g, meta, err := vgf.ReadGridFile(gridPath)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: read grid: %v", err), 1)
			}
			fmt.Printf("grid:     %d layers x %d steps, vocab %d\n", meta.Layers, meta.Steps, meta.Vocab)
			if meta.SampleRate > 0 {
				fmt.Printf("audio:    %d Hz, hop %d\n", meta.SampleRate, meta.HopLength)
			}
			fmt.Printf("masked:   %d cells\n", g.MaskedCount(0, g.Layers))

			if showTokens {
				limit := int(tokenLimit)
				if limit <= 0 || limit > g.Steps {
					limit = g.Steps
				}
				for l := 0; l < g.Layers; l++ {
					fmt.Printf("layer %d: %v", l, g.Tokens[l][:limit])
					if limit < g.Steps {
						fmt.Printf(" ... (%d more)", g.Steps-limit)
					}
					fmt.Println()
				}
			}
			return nil
		},
	}
}
