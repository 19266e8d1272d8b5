package logits

import (
	"errors"
	"math"
	"testing"
)

func TestSampleDeterministic(t *testing.T) {
	t.Parallel()

	logits := []float32{0.1, 2.5, -1.0, 0.7, 1.9}
	cfg := SamplerConfig{Seed: 42, Temperature: 0.9, Filter: FilterTopP, TopP: 0.95}

	a := NewSampler(cfg)
	b := NewSampler(cfg)
	for i := 0; i < 64; i++ {
		ta, ca, err := a.Sample(logits)
		if err != nil {
			t.Fatalf("sample a: %v", err)
		}
		tb, cb, err := b.Sample(logits)
		if err != nil {
			t.Fatalf("sample b: %v", err)
		}
		if ta != tb || ca != cb {
			t.Fatalf("draw %d diverged: (%d,%g) vs (%d,%g)", i, ta, ca, tb, cb)
		}
	}
}

func TestSampleTopKOneIsGreedy(t *testing.T) {
	t.Parallel()

	s := NewSampler(SamplerConfig{Seed: 7, Filter: FilterTopK, TopK: 1})
	logits := []float32{-3.0, 4.2, 0.5, 4.1}
	for i := 0; i < 32; i++ {
		tok, conf, err := s.Sample(logits)
		if err != nil {
			t.Fatalf("sample: %v", err)
		}
		if tok != 1 {
			t.Fatalf("draw %d: got token %d, want argmax 1", i, tok)
		}
		if conf <= 0 || conf > 1 {
			t.Fatalf("confidence %g out of range", conf)
		}
	}
}

func TestSampleTopKZeroFails(t *testing.T) {
	t.Parallel()

	s := NewSampler(SamplerConfig{Filter: FilterTopK, TopK: 0})
	if _, _, err := s.Sample([]float32{1, 2, 3}); !errors.Is(err, ErrInvalidDistribution) {
		t.Fatalf("got %v, want ErrInvalidDistribution", err)
	}
}

func TestSampleEmptyLogits(t *testing.T) {
	t.Parallel()

	s := NewSampler(SamplerConfig{})
	if _, _, err := s.Sample(nil); !errors.Is(err, ErrInvalidDistribution) {
		t.Fatalf("got %v, want ErrInvalidDistribution", err)
	}
}

func TestSampleTopPExcludesTail(t *testing.T) {
	t.Parallel()

	// One dominant token carries ~0.98 of the mass, so top-p 0.9 keeps it
	// alone and every draw must return it.
	logits := []float32{8, 0, 0, 0}
	s := NewSampler(SamplerConfig{Seed: 3, Filter: FilterTopP, TopP: 0.9})
	for i := 0; i < 32; i++ {
		tok, _, err := s.Sample(logits)
		if err != nil {
			t.Fatalf("sample: %v", err)
		}
		if tok != 0 {
			t.Fatalf("draw %d: got token %d, want 0", i, tok)
		}
	}
}

func TestSampleConfidenceIsUnfiltered(t *testing.T) {
	t.Parallel()

	// With top-k 1 the draw is forced, but the reported confidence must be
	// the token's probability under the full softmax, not 1.0.
	logits := []float32{1, 1, 1, 2}
	s := NewSampler(SamplerConfig{Filter: FilterTopK, TopK: 1})

	_, conf, err := s.Sample(logits)
	if err != nil {
		t.Fatalf("sample: %v", err)
	}
	want := math.Exp(2) / (3*math.Exp(1) + math.Exp(2))
	if math.Abs(conf-want) > 1e-9 {
		t.Fatalf("confidence %g, want %g", conf, want)
	}
}

func TestSampleTypicalAlwaysKeepsOne(t *testing.T) {
	t.Parallel()

	s := NewSampler(SamplerConfig{Seed: 11, Filter: FilterTypical, TypicalMass: 0.2})
	logits := []float32{0, 0, 0, 0}
	for i := 0; i < 16; i++ {
		tok, _, err := s.Sample(logits)
		if err != nil {
			t.Fatalf("sample: %v", err)
		}
		if tok < 0 || tok >= len(logits) {
			t.Fatalf("token %d out of range", tok)
		}
	}
}

func TestParseFilter(t *testing.T) {
	t.Parallel()

	cases := map[string]Filter{
		"":        FilterNone,
		"none":    FilterNone,
		"top-k":   FilterTopK,
		"top_p":   FilterTopP,
		"nucleus": FilterTopP,
		"typical": FilterTypical,
	}
	for in, want := range cases {
		got, err := ParseFilter(in)
		if err != nil {
			t.Fatalf("parse %q: %v", in, err)
		}
		if got != want {
			t.Fatalf("parse %q: got %v, want %v", in, got, want)
		}
	}
	if _, err := ParseFilter("random"); err == nil {
		t.Fatal("expected error for unknown filter")
	}
}
