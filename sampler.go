package hardmine

import (
	"math/rand/v2"
	"slices"
)

// NegativeSampler decides whether a candidate classified as Negative is kept.
type NegativeSampler interface {
	Keep(res Result) bool
}

// KeepAll retains every negative.
type KeepAll struct{}

// Keep always returns true.
func (KeepAll) Keep(Result) bool { return true }

// HardNegativeSampler drops a negative with probability DropProbability and
// always drops it when the detector score is below MinScore. The random draw
// happens for every negative, so the stream of draws does not depend on scores.
type HardNegativeSampler struct {
	DropProbability float64
	MinScore        float64
	rng             *rand.Rand
}

// NewHardNegativeSampler creates a sampler with its own seeded generator.
func NewHardNegativeSampler(dropProb, minScore float64, seed uint64) *HardNegativeSampler {
	return &HardNegativeSampler{
		DropProbability: dropProb,
		MinScore:        minScore,
		rng:             rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
	}
}

// Keep reports whether the negative survives.
func (s *HardNegativeSampler) Keep(res Result) bool {
	if s.rng.Float64() > 1-s.DropProbability {
		return false
	}
	return res.Score >= s.MinScore
}

// SamplerForStage returns the hard negative sampler for the coarse cascade
// sizes and KeepAll for every other stage.
func SamplerForStage(netSize int, opts *Options) NegativeSampler {
	if slices.Contains(opts.CoarseSizes, netSize) {
		return NewHardNegativeSampler(opts.DropProbability, opts.MinNegativeScore, opts.Seed)
	}
	return KeepAll{}
}
