package model

import (
	"context"
	"errors"
	"fmt"

	"github.com/samcharles93/smithy/internal/safetensors"
	"github.com/samcharles93/smithy/internal/tensor"
)

// ErrLoad wraps every failure to read model weights.
var ErrLoad = errors.New("model load failed")

// Tensor names expected in the weights file.
const (
	TensorTokenEmbedding    = "wte"
	TensorPositionEmbedding = "wpe"
	TensorOutputBias        = "bias"
)

// Embedding is a GPT-2 style embedding stack without transformer blocks:
//
//	h[t]      = wte[id[t]] + wpe[t] + wte[seg[t]]
//	logits[t] = h[t] · wteᵀ + bias
//
// Segment ids are looked up in the token table, as GPT-2 does for
// token_type_ids. Positions past the end of wpe reuse its last row.
type Embedding struct {
	Vocab  int
	Hidden int
	MaxPos int

	wte  tensor.Mat // [Vocab x Hidden]
	wpe  tensor.Mat // [MaxPos x Hidden]
	bias []float32  // [Vocab], may be nil
}

// NewEmbedding builds a model from raw row-major weights.
func NewEmbedding(vocab, hidden int, wte, wpe, bias []float32) (*Embedding, error) {
	if vocab <= 0 || hidden <= 0 {
		return nil, fmt.Errorf("invalid dims vocab=%d hidden=%d", vocab, hidden)
	}
	if len(wpe) == 0 || len(wpe)%hidden != 0 {
		return nil, fmt.Errorf("%s: %d values is not a multiple of hidden=%d", TensorPositionEmbedding, len(wpe), hidden)
	}
	if bias != nil && len(bias) != vocab {
		return nil, fmt.Errorf("%s: got %d values, want %d", TensorOutputBias, len(bias), vocab)
	}
	wteMat, err := tensor.NewMatFromData(vocab, hidden, wte)
	if err != nil {
		return nil, fmt.Errorf("%s: got %d values, want %d", TensorTokenEmbedding, len(wte), vocab*hidden)
	}
	wpeMat, err := tensor.NewMatFromData(len(wpe)/hidden, hidden, wpe)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", TensorPositionEmbedding, err)
	}
	return &Embedding{
		Vocab:  vocab,
		Hidden: hidden,
		MaxPos: wpeMat.R,
		wte:    wteMat,
		wpe:    wpeMat,
		bias:   bias,
	}, nil
}

// LoadEmbedding reads an Embedding from a safetensors file.
func LoadEmbedding(path string) (*Embedding, error) {
	st, err := safetensors.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrLoad, path, err)
	}
	defer func() { _ = st.Close() }()

	wte, info, err := st.ReadTensorF32(TensorTokenEmbedding)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoad, err)
	}
	if len(info.Shape) != 2 {
		return nil, fmt.Errorf("%w: %s: expected 2D tensor, got shape %v", ErrLoad, TensorTokenEmbedding, info.Shape)
	}
	vocab, hidden := info.Shape[0], info.Shape[1]

	wpe, info, err := st.ReadTensorF32(TensorPositionEmbedding)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoad, err)
	}
	if len(info.Shape) != 2 || info.Shape[1] != hidden {
		return nil, fmt.Errorf("%w: %s: expected [n x %d], got shape %v", ErrLoad, TensorPositionEmbedding, hidden, info.Shape)
	}

	var bias []float32
	if _, ok := st.Tensor(TensorOutputBias); ok {
		bias, _, err = st.ReadTensorF32(TensorOutputBias)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrLoad, err)
		}
	}

	m, err := NewEmbedding(vocab, hidden, wte, wpe, bias)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoad, err)
	}
	return m, nil
}

// Load is the default weights loader used by the CLI.
func Load(path string) (LanguageModel, error) {
	m, err := LoadEmbedding(path)
	if err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Embedding) VocabSize() int { return m.Vocab }

func (m *Embedding) Forward(ctx context.Context, ids, segments [][]int) (*Logits, error) {
	return m.forward(ctx, ids, segments, false)
}

// ForwardLast scores only the final position of every sequence. Positions
// do not interact in this model, so the result equals the last position of
// Forward.
func (m *Embedding) ForwardLast(ctx context.Context, ids, segments [][]int) (*Logits, error) {
	return m.forward(ctx, ids, segments, true)
}

func (m *Embedding) forward(ctx context.Context, ids, segments [][]int, lastOnly bool) (*Logits, error) {
	batch, positions, err := CheckBatch(ids, segments)
	if err != nil {
		return nil, err
	}
	from := 0
	if lastOnly {
		from = positions - 1
	}
	out := NewLogits(batch, positions-from, m.Vocab)
	h := make([]float32, m.Hidden)
	for b := 0; b < batch; b++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for t := from; t < positions; t++ {
			if err := m.hidden(h, ids[b][t], segmentAt(segments, b, t), t); err != nil {
				return nil, fmt.Errorf("sequence %d position %d: %w", b, t, err)
			}
			tensor.MatVec(out.At(b, t-from), &m.wte, h, m.bias)
		}
	}
	return out, nil
}

func segmentAt(segments [][]int, b, t int) int {
	if segments == nil {
		return -1
	}
	return segments[b][t]
}

func (m *Embedding) hidden(dst []float32, id, seg, pos int) error {
	if id < 0 || id >= m.Vocab {
		return fmt.Errorf("token id %d out of range [0,%d)", id, m.Vocab)
	}
	copy(dst, m.wte.Row(id))
	tensor.Add(dst, m.wpe.Row(min(pos, m.MaxPos-1)))
	if seg < 0 {
		return nil
	}
	if seg >= m.Vocab {
		return fmt.Errorf("segment id %d out of range [0,%d)", seg, m.Vocab)
	}
	tensor.Add(dst, m.wte.Row(seg))
	return nil
}
