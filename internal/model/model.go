// Package model defines the language-model collaborator used by the sampler
// and ships a small local implementation backed by a safetensors file.
package model

import (
	"context"
	"fmt"
)

// LanguageModel scores the next token for every position of a batch of
// sequences.
type LanguageModel interface {
	// Forward evaluates ids (one row per sequence, all rows the same length).
	// segments, when non-nil, holds one segment label per position and must
	// have the same shape as ids.
	Forward(ctx context.Context, ids, segments [][]int) (*Logits, error)
	VocabSize() int
}

// LastPositionScorer is implemented by models that can evaluate only the
// final position of each sequence. The returned Logits has Positions == 1.
type LastPositionScorer interface {
	ForwardLast(ctx context.Context, ids, segments [][]int) (*Logits, error)
}

// Logits is a dense [batch][position][vocab] score tensor.
type Logits struct {
	Batch     int
	Positions int
	Vocab     int
	Data      []float32
}

// NewLogits allocates a zeroed tensor.
func NewLogits(batch, positions, vocab int) *Logits {
	return &Logits{
		Batch:     batch,
		Positions: positions,
		Vocab:     vocab,
		Data:      make([]float32, batch*positions*vocab),
	}
}

// At returns the scores for sequence b at position t. The slice aliases Data.
func (l *Logits) At(b, t int) []float32 {
	off := (b*l.Positions + t) * l.Vocab
	return l.Data[off : off+l.Vocab]
}

// Last returns the next-token scores of sequence b.
func (l *Logits) Last(b int) []float32 {
	return l.At(b, l.Positions-1)
}

// CheckBatch validates the shape of a Forward call.
func CheckBatch(ids, segments [][]int) (batch, positions int, err error) {
	if len(ids) == 0 {
		return 0, 0, fmt.Errorf("empty batch")
	}
	positions = len(ids[0])
	if positions == 0 {
		return 0, 0, fmt.Errorf("empty sequence")
	}
	for i, row := range ids {
		if len(row) != positions {
			return 0, 0, fmt.Errorf("sequence %d has length %d, want %d", i, len(row), positions)
		}
	}
	if segments != nil {
		if len(segments) != len(ids) {
			return 0, 0, fmt.Errorf("segments batch %d, ids batch %d", len(segments), len(ids))
		}
		for i, row := range segments {
			if len(row) != positions {
				return 0, 0, fmt.Errorf("segments row %d has length %d, want %d", i, len(row), positions)
			}
		}
	}
	return len(ids), positions, nil
}
