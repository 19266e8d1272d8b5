package vgf

import (
	"encoding/binary"
	"fmt"
	"os"

	"github.com/goccy/go-json"

	"github.com/samcharles93/vamp/internal/grid"
)

// Meta is the JSON metadata section of a VGF file.
type Meta struct {
	ID         string `json:"id,omitempty"`
	Layers     int    `json:"layers"`
	Steps      int    `json:"steps"`
	Vocab      int    `json:"vocab"`
	SampleRate int    `json:"sample_rate,omitempty"`
	HopLength  int    `json:"hop_length,omitempty"`
	CreatedAt  int64  `json:"created_at,omitempty"`
}

// WriteGridFile persists a grid (including its mask state) to path.
func WriteGridFile(path string, g *grid.Grid, meta Meta) error {
	meta.Layers = g.Layers
	meta.Steps = g.Steps
	meta.Vocab = g.Vocab

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	w, err := NewWriter(f)
	if err != nil {
		return err
	}

	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("vgf: encode meta: %w", err)
	}
	if err := w.WriteSection(SectionMeta, 1, metaJSON); err != nil {
		return err
	}

	tokens := make([]byte, 4*g.Layers*g.Steps)
	cells := make([]byte, g.Layers*g.Steps)
	for l := 0; l < g.Layers; l++ {
		for t := 0; t < g.Steps; t++ {
			i := l*g.Steps + t
			binary.LittleEndian.PutUint32(tokens[4*i:], uint32(g.Tokens[l][t]))
			var flags uint8
			if g.Mask[l][t] {
				flags |= CellMasked
			}
			if g.Fixed[l][t] {
				flags |= CellFixed
			}
			cells[i] = flags
		}
	}
	if err := w.WriteSection(SectionTokens, 1, tokens); err != nil {
		return err
	}
	if err := w.WriteSection(SectionMask, 1, cells); err != nil {
		return err
	}
	return w.Finalise()
}

// ReadGridFile loads a grid and its metadata from path.
func ReadGridFile(path string) (*grid.Grid, Meta, error) {
	var meta Meta

	f, err := Open(path)
	if err != nil {
		return nil, meta, err
	}
	defer func() { _ = f.Close() }()

	metaSec := f.Section(SectionMeta)
	if metaSec == nil {
		return nil, meta, fmt.Errorf("%w: meta", ErrMissingSection)
	}
	if err := json.Unmarshal(f.SectionData(metaSec), &meta); err != nil {
		return nil, meta, fmt.Errorf("%w: meta: %v", ErrCorruptFile, err)
	}
	if meta.Layers <= 0 || meta.Steps <= 0 || meta.Vocab <= 0 {
		return nil, meta, fmt.Errorf("%w: meta shape %dx%d vocab %d", ErrCorruptFile, meta.Layers, meta.Steps, meta.Vocab)
	}

	tokSec := f.Section(SectionTokens)
	if tokSec == nil {
		return nil, meta, fmt.Errorf("%w: tokens", ErrMissingSection)
	}
	tokens := f.SectionData(tokSec)
	cellCount := meta.Layers * meta.Steps
	if len(tokens) != 4*cellCount {
		return nil, meta, fmt.Errorf("%w: token section is %d bytes, want %d", ErrCorruptFile, len(tokens), 4*cellCount)
	}

	g, err := grid.New(meta.Layers, meta.Steps, meta.Vocab)
	if err != nil {
		return nil, meta, fmt.Errorf("%w: %v", ErrCorruptFile, err)
	}
	for l := 0; l < meta.Layers; l++ {
		for t := 0; t < meta.Steps; t++ {
			i := l*meta.Steps + t
			tok := int(binary.LittleEndian.Uint32(tokens[4*i:]))
			if tok < 0 || tok > g.MaskToken() {
				return nil, meta, fmt.Errorf("%w: token %d at cell %d", ErrCorruptFile, tok, i)
			}
			g.Tokens[l][t] = tok
			g.Mask[l][t] = false
		}
	}

	if maskSec := f.Section(SectionMask); maskSec != nil {
		cells := f.SectionData(maskSec)
		if len(cells) != cellCount {
			return nil, meta, fmt.Errorf("%w: mask section is %d bytes, want %d", ErrCorruptFile, len(cells), cellCount)
		}
		for l := 0; l < meta.Layers; l++ {
			for t := 0; t < meta.Steps; t++ {
				flags := cells[l*meta.Steps+t]
				g.Mask[l][t] = flags&CellMasked != 0
				g.Fixed[l][t] = flags&CellFixed != 0
			}
		}
	}

	return g, meta, nil
}
