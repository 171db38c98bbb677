// Package generate extends a batch of token sequences with a language model,
// one lock-step sampling step at a time.
package generate

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/samcharles93/smithy/internal/logger"
	"github.com/samcharles93/smithy/internal/logits"
	"github.com/samcharles93/smithy/internal/model"
)

// ErrInvalidRequest is returned for requests that cannot be sampled.
var ErrInvalidRequest = errors.New("invalid generation request")

// Request describes one sampling run.
type Request struct {
	// Context is the starting token sequence shared by every sample.
	Context []int
	// Length is the exact number of tokens appended to each sample.
	Length int
	// Segments optionally labels every position. The sampler passes
	// Segments[:len(seq)] to the model; positions past its end reuse the
	// last label.
	Segments []int
	// NumSamples is the number of independent continuations.
	NumSamples int

	Temperature       float32
	TopK              int
	TopP              float32
	RepetitionPenalty float32
	// Seed seeds the categorical draws; negative uses the wall clock.
	Seed int64
}

// Stats reports timing of a run.
type Stats struct {
	Steps    int
	Duration time.Duration
}

// Sampler runs Requests against a model.
type Sampler struct {
	Model model.LanguageModel
	Log   logger.Logger
}

// New returns a Sampler for m.
func New(m model.LanguageModel, log logger.Logger) *Sampler {
	if log == nil {
		log = logger.Default()
	}
	return &Sampler{Model: m, Log: log}
}

func (r Request) validate() error {
	switch {
	case len(r.Context) == 0:
		return fmt.Errorf("%w: empty context", ErrInvalidRequest)
	case r.NumSamples <= 0:
		return fmt.Errorf("%w: num samples must be positive, got %d", ErrInvalidRequest, r.NumSamples)
	case r.Length < 0:
		return fmt.Errorf("%w: negative length %d", ErrInvalidRequest, r.Length)
	}
	return nil
}

// Sample returns NumSamples sequences, each len(Context)+Length tokens long
// and starting with Context.
func (s *Sampler) Sample(ctx context.Context, req Request) ([][]int, Stats, error) {
	var stats Stats
	if err := req.validate(); err != nil {
		return nil, stats, err
	}
	if s.Model == nil {
		return nil, stats, fmt.Errorf("%w: no model", ErrInvalidRequest)
	}

	seqs := make([][]int, req.NumSamples)
	for i := range seqs {
		seqs[i] = make([]int, len(req.Context), len(req.Context)+req.Length)
		copy(seqs[i], req.Context)
	}

	pick := logits.NewSampler(logits.SamplerConfig{
		Seed:              req.Seed,
		Temperature:       req.Temperature,
		TopK:              req.TopK,
		TopP:              req.TopP,
		RepetitionPenalty: req.RepetitionPenalty,
	})

	start := time.Now()
	for step := 0; step < req.Length; step++ {
		if err := ctx.Err(); err != nil {
			return nil, stats, err
		}

		var segs [][]int
		if len(req.Segments) > 0 {
			segs = replicate(segmentPrefix(req.Segments, len(seqs[0])), len(seqs))
		}

		out, err := s.forward(ctx, seqs, segs)
		if err != nil {
			return nil, stats, fmt.Errorf("forward step %d: %w", step, err)
		}

		for i := range seqs {
			next := pick.Sample(out.Last(i), seqs[i])
			seqs[i] = append(seqs[i], next)
		}
		stats.Steps++
	}
	stats.Duration = time.Since(start)

	s.Log.Debug("sampling finished",
		"samples", req.NumSamples,
		"steps", stats.Steps,
		"context_len", len(req.Context),
		"duration", stats.Duration,
	)
	return seqs, stats, nil
}

// forward scores the batch, using ForwardLast when the model offers it.
func (s *Sampler) forward(ctx context.Context, seqs, segs [][]int) (*model.Logits, error) {
	positions := len(seqs[0])
	var (
		out *model.Logits
		err error
	)
	if lp, ok := s.Model.(model.LastPositionScorer); ok {
		out, err = lp.ForwardLast(ctx, seqs, segs)
		positions = 1
	} else {
		out, err = s.Model.Forward(ctx, seqs, segs)
	}
	if err != nil {
		return nil, err
	}
	if out.Batch != len(seqs) || out.Positions != positions {
		return nil, fmt.Errorf("model returned [%d x %d], want [%d x %d]",
			out.Batch, out.Positions, len(seqs), positions)
	}
	return out, nil
}

// segmentPrefix returns the first n labels of template, padding with the last
// label when the sequence has outgrown the template.
func segmentPrefix(template []int, n int) []int {
	if n <= len(template) {
		return template[:n]
	}
	out := make([]int, n)
	copy(out, template)
	last := template[len(template)-1]
	for i := len(template); i < n; i++ {
		out[i] = last
	}
	return out
}

func replicate(row []int, n int) [][]int {
	out := make([][]int, n)
	for i := range out {
		out[i] = slices.Clone(row)
	}
	return out
}
