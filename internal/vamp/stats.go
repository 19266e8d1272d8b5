package vamp

import (
	"math"
	"time"
)

// IterationStats captures one refinement pass for diagnostics.
type IterationStats struct {
	Sampled        int     `json:"sampled"`
	Remasked       int     `json:"remasked"`
	MeanConfidence float64 `json:"mean_confidence"`
	MinConfidence  float64 `json:"min_confidence"`
}

// StageStats summarises one generation stage.
type StageStats struct {
	Iterations     int              `json:"iterations"`
	Positions      int              `json:"positions"`
	MeanConfidence float64          `json:"mean_confidence"`
	MinConfidence  float64          `json:"min_confidence"`
	Duration       time.Duration    `json:"duration"`
	PerIteration   []IterationStats `json:"per_iteration,omitempty"`
}

func summarise(conf []float64) (mean, lo float64) {
	if len(conf) == 0 {
		return 0, 0
	}
	lo = math.Inf(1)
	var sum float64
	for _, c := range conf {
		sum += c
		if c < lo {
			lo = c
		}
	}
	return sum / float64(len(conf)), lo
}
