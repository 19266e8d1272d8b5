// Package logits converts model logit vectors into sampled tokens with
// confidence scores.
package logits

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sort"
)

// ErrInvalidDistribution is returned when the filtering policy removes all
// probability mass, leaving nothing to sample from.
var ErrInvalidDistribution = errors.New("logits: filtering removed all probability mass")

// Filter selects the truncation policy applied before drawing a token.
type Filter int

const (
	FilterNone Filter = iota
	FilterTopK
	FilterTopP
	FilterTypical
)

func (f Filter) String() string {
	switch f {
	case FilterNone:
		return "none"
	case FilterTopK:
		return "top-k"
	case FilterTopP:
		return "top-p"
	case FilterTypical:
		return "typical"
	default:
		return fmt.Sprintf("filter(%d)", int(f))
	}
}

// ParseFilter maps a config string to a Filter.
func ParseFilter(s string) (Filter, error) {
	switch s {
	case "", "none":
		return FilterNone, nil
	case "top-k", "top_k", "topk":
		return FilterTopK, nil
	case "top-p", "top_p", "topp", "nucleus":
		return FilterTopP, nil
	case "typical":
		return FilterTypical, nil
	default:
		return FilterNone, fmt.Errorf("logits: unknown filter %q", s)
	}
}

// SamplerConfig configures the behaviour of a Sampler. It is immutable for
// the duration of one generation stage.
type SamplerConfig struct {
	Seed        int64
	Temperature float32
	Filter      Filter
	TopK        int
	TopP        float32
	TypicalMass float32
}

// Sampler draws tokens from logit vectors. Each generation request owns its
// own Sampler so random state is never shared across requests.
type Sampler struct {
	rng *rand.Rand
	cfg SamplerConfig

	prob  []float64
	order []int
	keep  []bool
}

// NewSampler returns a sampler with the provided configuration. Out-of-range
// fields fall back to safe defaults, except TopK which is validated at
// sample time so a k<=0 misconfiguration surfaces as ErrInvalidDistribution.
func NewSampler(cfg SamplerConfig) *Sampler {
	if cfg.Temperature <= 0 {
		cfg.Temperature = 1
	}
	if cfg.TopP <= 0 || cfg.TopP > 1 {
		cfg.TopP = 1
	}
	if cfg.TypicalMass <= 0 || cfg.TypicalMass > 1 {
		cfg.TypicalMass = 1
	}
	return &Sampler{
		rng: rand.New(rand.NewSource(cfg.Seed)),
		cfg: cfg,
	}
}

// Config returns the sampler's resolved configuration.
func (s *Sampler) Config() SamplerConfig { return s.cfg }

// Sample draws one token from the logits vector and reports its confidence.
//
// The logits are scaled by the inverse temperature and softmaxed; the
// filtering policy then truncates the distribution and the token is drawn
// from the renormalised remainder. Confidence is the drawn token's
// probability under the unfiltered temperature-scaled distribution, so it
// reflects model certainty rather than a filtering artifact.
func (s *Sampler) Sample(logits []float32) (int, float64, error) {
	if len(logits) == 0 {
		return 0, 0, fmt.Errorf("%w: empty logits", ErrInvalidDistribution)
	}

	prob := s.softmax(logits)

	keep, err := s.filter(prob)
	if err != nil {
		return 0, 0, err
	}

	var mass float64
	for i, k := range keep {
		if k {
			mass += prob[i]
		}
	}
	if mass <= 0 {
		return 0, 0, ErrInvalidDistribution
	}

	r := s.rng.Float64() * mass
	var c float64
	last := -1
	for i, k := range keep {
		if !k {
			continue
		}
		last = i
		c += prob[i]
		if r <= c {
			return i, prob[i], nil
		}
	}
	// Floating point shortfall: fall back to the last kept token.
	return last, prob[last], nil
}

// softmax computes the temperature-scaled distribution into s.prob.
func (s *Sampler) softmax(logits []float32) []float64 {
	if cap(s.prob) < len(logits) {
		s.prob = make([]float64, len(logits))
	}
	prob := s.prob[:len(logits)]

	invTemp := 1.0 / float64(s.cfg.Temperature)
	maxv := float64(logits[0]) * invTemp
	for i := 1; i < len(logits); i++ {
		if v := float64(logits[i]) * invTemp; v > maxv {
			maxv = v
		}
	}
	var sum float64
	for i := range logits {
		e := math.Exp(float64(logits[i])*invTemp - maxv)
		prob[i] = e
		sum += e
	}
	inv := 1.0 / sum
	for i := range prob {
		prob[i] *= inv
	}
	return prob
}

// filter marks the tokens that survive the configured truncation policy.
func (s *Sampler) filter(prob []float64) ([]bool, error) {
	if cap(s.keep) < len(prob) {
		s.keep = make([]bool, len(prob))
	}
	keep := s.keep[:len(prob)]

	switch s.cfg.Filter {
	case FilterNone:
		for i := range keep {
			keep[i] = true
		}
		return keep, nil

	case FilterTopK:
		if s.cfg.TopK <= 0 {
			return nil, fmt.Errorf("%w: top-k with k=%d", ErrInvalidDistribution, s.cfg.TopK)
		}
		order := s.byProbDesc(prob)
		for i := range keep {
			keep[i] = false
		}
		k := min(s.cfg.TopK, len(prob))
		for _, idx := range order[:k] {
			keep[idx] = true
		}
		return keep, nil

	case FilterTopP:
		order := s.byProbDesc(prob)
		for i := range keep {
			keep[i] = false
		}
		var c float64
		for _, idx := range order {
			keep[idx] = true
			c += prob[idx]
			if c >= float64(s.cfg.TopP) {
				break
			}
		}
		return keep, nil

	case FilterTypical:
		return s.typical(prob, keep), nil

	default:
		return nil, fmt.Errorf("%w: unknown filter %d", ErrInvalidDistribution, int(s.cfg.Filter))
	}
}

// typical keeps the smallest set of tokens closest to the distribution's
// entropy whose cumulative probability reaches the configured mass. At
// least one token always survives.
func (s *Sampler) typical(prob []float64, keep []bool) []bool {
	var entropy float64
	for _, p := range prob {
		if p > 0 {
			entropy -= p * math.Log(p)
		}
	}

	order := s.orderBuf(len(prob))
	sort.SliceStable(order, func(a, b int) bool {
		return typicalScore(prob[order[a]], entropy) < typicalScore(prob[order[b]], entropy)
	})

	for i := range keep {
		keep[i] = false
	}
	var c float64
	for _, idx := range order {
		keep[idx] = true
		c += prob[idx]
		if c >= float64(s.cfg.TypicalMass) {
			break
		}
	}
	return keep
}

// typicalScore is the distance between a token's surprisal and the
// distribution entropy. Zero-probability tokens sort last.
func typicalScore(p, entropy float64) float64 {
	if p <= 0 {
		return math.Inf(1)
	}
	return math.Abs(-math.Log(p) - entropy)
}

// byProbDesc returns token indices ordered by descending probability.
// The sort is stable so equal-probability tokens keep index order.
func (s *Sampler) byProbDesc(prob []float64) []int {
	order := s.orderBuf(len(prob))
	sort.SliceStable(order, func(a, b int) bool {
		return prob[order[a]] > prob[order[b]]
	})
	return order
}

func (s *Sampler) orderBuf(n int) []int {
	if cap(s.order) < n {
		s.order = make([]int, n)
	}
	order := s.order[:n]
	for i := range order {
		order[i] = i
	}
	return order
}
