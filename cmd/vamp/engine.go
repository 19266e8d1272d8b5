package main

import (
	"github.com/samcharles93/vamp/internal/codec"
	"github.com/samcharles93/vamp/internal/logger"
	"github.com/samcharles93/vamp/internal/vamp"
)

// buildEngine assembles the synthetic pipeline from the shared shape flags.
// The coarse model predicts layers [0, coarseLayers); the fine model covers
// the remainder when any fine layers exist.
func buildEngine(log logger.Logger) *vamp.Engine {
	c := codec.NewSynthetic(int(sampleRate), int(hopLength), int(layers), int(vocab))

	nc := int(coarseLayers)
	if nc <= 0 || nc > c.Layers() {
		nc = c.Layers()
	}

	eng := &vamp.Engine{
		Coarse: &vamp.StubModel{Lo: 0, Hi: nc, Vocab: c.Vocab()},
		Codec:  c,
		Log:    log,
	}
	if nc < c.Layers() {
		eng.Fine = &vamp.StubModel{Lo: nc, Hi: c.Layers(), Vocab: c.Vocab()}
	}
	return eng
}
