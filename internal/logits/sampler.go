package logits

import (
	"math/rand"
	"slices"
	"time"
)

// SamplerConfig configures the behaviour of a Sampler.
type SamplerConfig struct {
	// Seed for the categorical draw. Negative seeds use the wall clock.
	Seed int64
	// Temperature divides the scores before filtering. Zero selects greedy
	// decoding; negative values leave the scores unscaled.
	Temperature float32
	TopK        int
	TopP        float32
	// RepetitionPenalty divides the score of every token already present in
	// the sequence. 1.0 (or 0) disables it.
	RepetitionPenalty float32
}

// Sampler picks the next token from one score vector. It is not safe for
// concurrent use because it owns a random source.
type Sampler struct {
	rng *rand.Rand
	cfg SamplerConfig
}

// NewSampler returns a new sampler with the provided configuration.
func NewSampler(cfg SamplerConfig) *Sampler {
	if cfg.RepetitionPenalty <= 0 {
		cfg.RepetitionPenalty = 1.0
	}
	seed := cfg.Seed
	if seed < 0 {
		seed = time.Now().UnixNano()
	}
	return &Sampler{
		rng: rand.New(rand.NewSource(seed)), //nolint:gosec // sampling, not crypto
		cfg: cfg,
	}
}

// Config returns the normalised configuration.
func (s *Sampler) Config() SamplerConfig { return s.cfg }

// Greedy reports whether Sample always returns the arg-max.
func (s *Sampler) Greedy() bool { return s.cfg.Temperature == 0 }

// Sample draws the next token for one sequence. history holds every token
// already in that sequence. The steps are:
//
//  1. scale by 1/temperature (skipped when temperature <= 0)
//  2. repetition penalty over the distinct tokens in history
//  3. top-k / top-p filtering
//  4. arg-max when temperature == 0, otherwise a categorical draw
//
// scores is left untouched.
func (s *Sampler) Sample(scores []float32, history []int) int {
	v := Scale(scores, s.cfg.Temperature)
	v = Penalize(v, history, s.cfg.RepetitionPenalty)
	v = Filter(v, s.cfg.TopK, s.cfg.TopP)
	if s.Greedy() {
		return Argmax(v)
	}
	return s.draw(Softmax(v))
}

// Scale returns scores divided by temperature. A non-positive temperature
// returns an unscaled copy.
func Scale(scores []float32, temperature float32) []float32 {
	out := slices.Clone(scores)
	if temperature <= 0 || temperature == 1 {
		return out
	}
	inv := 1 / temperature
	for i := range out {
		out[i] *= inv
	}
	return out
}

// Penalize returns a copy of scores where every distinct token of history is
// pushed down by penalty: positive scores are divided, negative scores are
// multiplied. Ids outside the vocabulary are ignored.
func Penalize(scores []float32, history []int, penalty float32) []float32 {
	out := slices.Clone(scores)
	if penalty == 1 || penalty <= 0 || len(history) == 0 {
		return out
	}
	seen := make(map[int]struct{}, len(history))
	for _, id := range history {
		if id < 0 || id >= len(out) {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		if out[id] > 0 {
			out[id] /= penalty
		} else {
			out[id] *= penalty
		}
	}
	return out
}

// Argmax returns the index of the maximum value. Ties resolve to the lowest
// index. It panics on an empty slice.
func Argmax(x []float32) int {
	if len(x) == 0 {
		panic("argmax: empty slice")
	}
	bestI := 0
	bestV := x[0]
	for i := 1; i < len(x); i++ {
		if x[i] > bestV {
			bestV = x[i]
			bestI = i
		}
	}
	return bestI
}

func (s *Sampler) draw(prob []float64) int {
	r := s.rng.Float64()
	var c float64
	last := -1
	for i, p := range prob {
		if p == 0 {
			continue
		}
		last = i
		c += p
		if r < c {
			return i
		}
	}
	if last < 0 {
		// Everything was masked; fall back to the first entry.
		return 0
	}
	return last
}
