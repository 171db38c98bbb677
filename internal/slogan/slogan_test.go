package slogan

import (
	"context"
	"errors"
	"net/http"
	"path/filepath"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samcharles93/smithy/internal/logger"
	"github.com/samcharles93/smithy/internal/model"
	"github.com/samcharles93/smithy/internal/tokenizer"
	"github.com/samcharles93/smithy/internal/translate"
)

const testTokenizerJSON = `{
  "added_tokens": [{"id": 17, "content": "<|endoftext|>", "special": true}],
  "model": {
    "type": "BPE",
    "vocab": {
      "h": 0, "e": 1, "l": 2, "o": 3, "w": 4, "r": 5, "d": 6, "Ġ": 7,
      "he": 8, "ll": 9, "hell": 10, "hello": 11,
      "Ġw": 12, "or": 13, "Ġwor": 14, "Ġworl": 15, "Ġworld": 16,
      "<|endoftext|>": 17
    },
    "merges": ["h e", "l l", "he ll", "hell o", "Ġ w", "o r", "Ġw or", "Ġwor l", "Ġworl d"]
  }
}`

// Token ids in the test vocabulary.
const (
	idHello   = 11
	idWorld   = 16
	idEOT     = 17
	idContext = 19
	idSlogan  = 20
	vocabSize = 21
)

func testTokenizer(t *testing.T, specials bool) *tokenizer.HFTokenizer {
	t.Helper()
	tok, err := tokenizer.LoadHFTokenizerBytes([]byte(testTokenizerJSON))
	require.NoError(t, err)
	if specials {
		tok.AddSpecialTokens(tokenizer.SloganSpecials...)
	}
	return tok
}

// scriptedModel emits script[step] with overwhelming probability, where step
// counts positions past the prompt.
type scriptedModel struct {
	prompt int
	script []int
	// rows and segs keep a copy of the first row of every call.
	rows    [][]int
	segs    [][]int
	batches []int
}

func (m *scriptedModel) VocabSize() int { return vocabSize }

func (m *scriptedModel) Forward(_ context.Context, ids, segments [][]int) (*model.Logits, error) {
	batch, positions, err := model.CheckBatch(ids, segments)
	if err != nil {
		return nil, err
	}
	m.rows = append(m.rows, slices.Clone(ids[0]))
	m.batches = append(m.batches, batch)
	if segments != nil {
		m.segs = append(m.segs, slices.Clone(segments[0]))
	}
	next := m.script[(positions-m.prompt)%len(m.script)]
	out := model.NewLogits(batch, positions, vocabSize)
	for b := 0; b < batch; b++ {
		out.Last(b)[next] = 100
	}
	return out, nil
}

func helloTranslator(calls *[]string) translate.Translator {
	return translate.Func(func(_ context.Context, text string) (string, error) {
		*calls = append(*calls, text)
		return "hello world", nil
	})
}

func TestEnsloganEndToEnd(t *testing.T) {
	var calls []string
	m := &scriptedModel{prompt: 4, script: []int{idHello, idWorld, idEOT, idHello}}
	r, err := New(Options{
		Translator: helloTranslator(&calls),
		Tokenizer:  testTokenizer(t, true),
		Model:      m,
		Log:        logger.Discard(),
	})
	require.NoError(t, err)

	slogans, err := r.Enslogan(context.Background(), "안녕 세상")
	require.NoError(t, err)
	assert.Equal(t, []string{"안녕 세상"}, calls)

	require.Len(t, slogans, 8)
	for _, s := range slogans {
		assert.Equal(t, "hello world", s)
	}

	require.Len(t, m.rows, 30)
	assert.Equal(t, 8, m.batches[0])
	assert.Equal(t, []int{idContext, idHello, idWorld, idSlogan}, m.rows[0])
	assert.Equal(t, []int{idContext, idContext, idContext, idSlogan}, m.segs[0])
	assert.Len(t, m.rows[29], 4+29)
	assert.Len(t, m.segs[29], 4+29)
}

func TestGenerateResult(t *testing.T) {
	var calls []string
	r, err := New(Options{
		Translator: helloTranslator(&calls),
		Tokenizer:  testTokenizer(t, true),
		Model:      &scriptedModel{prompt: 4, script: []int{idWorld, idEOT}},
		Generation: GenerationConfig{SeqLen: 64, Length: 3, NumSamples: 2, Temperature: 0},
		Log:        logger.Discard(),
	})
	require.NoError(t, err)

	res, err := r.Generate(context.Background(), "세상")
	require.NoError(t, err)
	assert.NotEmpty(t, res.RequestID)
	assert.Equal(t, "세상", res.Source)
	assert.Equal(t, "hello world", res.Translation)
	assert.Equal(t, []string{" world", " world"}, res.Slogans)
}

func TestGenerateDedupe(t *testing.T) {
	var calls []string
	r, err := New(Options{
		Translator: helloTranslator(&calls),
		Tokenizer:  testTokenizer(t, true),
		Model:      &scriptedModel{prompt: 4, script: []int{idWorld, idEOT}},
		Generation: GenerationConfig{SeqLen: 64, Length: 2, NumSamples: 4},
		Dedupe:     true,
		Log:        logger.Discard(),
	})
	require.NoError(t, err)

	slogans, err := r.Enslogan(context.Background(), "세상")
	require.NoError(t, err)
	assert.Equal(t, []string{" world"}, slogans)
}

func TestEnsloganTranslationForbidden(t *testing.T) {
	forbidden := translate.Func(func(context.Context, string) (string, error) {
		return "", &translate.Error{Status: http.StatusForbidden, Body: `{"errorCode":"024"}`}
	})
	m := &scriptedModel{prompt: 4, script: []int{idHello}}
	r, err := New(Options{
		Translator: forbidden,
		Tokenizer:  testTokenizer(t, true),
		Model:      m,
		Log:        logger.Discard(),
	})
	require.NoError(t, err)

	slogans, err := r.Enslogan(context.Background(), "안녕")
	require.Error(t, err)
	assert.Nil(t, slogans)
	assert.ErrorIs(t, err, ErrTranslation)
	assert.ErrorIs(t, err, translate.ErrTranslation)

	var terr *translate.Error
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, http.StatusForbidden, terr.Status)
	assert.Empty(t, m.rows, "model must not run after a failed translation")
}

func TestNewRequiresMarkers(t *testing.T) {
	var calls []string
	_, err := New(Options{
		Translator: helloTranslator(&calls),
		Tokenizer:  testTokenizer(t, false),
		Model:      &scriptedModel{script: []int{0}},
		Log:        logger.Discard(),
	})
	require.ErrorContains(t, err, tokenizer.Context)
}

func TestNewRequiresCollaborators(t *testing.T) {
	_, err := New(Options{Tokenizer: testTokenizer(t, true)})
	require.Error(t, err)

	var calls []string
	_, err = New(Options{Translator: helloTranslator(&calls)})
	require.Error(t, err)
}

func TestModelLoadFailure(t *testing.T) {
	var calls []string
	_, err := New(Options{
		Translator: helloTranslator(&calls),
		Tokenizer:  testTokenizer(t, true),
		ModelPath:  filepath.Join(t.TempDir(), "missing.safetensors"),
		Log:        logger.Discard(),
	})
	require.ErrorIs(t, err, ErrModelLoad)
	assert.ErrorIs(t, err, model.ErrLoad)
}

func TestReloadModel(t *testing.T) {
	var calls []string
	var loads []string
	m := &scriptedModel{prompt: 4, script: []int{idWorld, idEOT}}
	r, err := New(Options{
		Translator: helloTranslator(&calls),
		Tokenizer:  testTokenizer(t, true),
		ModelPath:  "weights.safetensors",
		Loader: func(path string) (model.LanguageModel, error) {
			loads = append(loads, path)
			return m, nil
		},
		ReloadModel: true,
		Generation:  GenerationConfig{SeqLen: 64, Length: 2, NumSamples: 1},
		Log:         logger.Discard(),
	})
	require.NoError(t, err)
	assert.Empty(t, loads)

	for range 2 {
		_, err := r.Enslogan(context.Background(), "x")
		require.NoError(t, err)
	}
	assert.Equal(t, []string{"weights.safetensors", "weights.safetensors"}, loads)
}

func TestReloadModelFailure(t *testing.T) {
	var calls []string
	r, err := New(Options{
		Translator: helloTranslator(&calls),
		Tokenizer:  testTokenizer(t, true),
		Loader: func(string) (model.LanguageModel, error) {
			return nil, errors.New("corrupt")
		},
		ReloadModel: true,
		Log:         logger.Discard(),
	})
	require.NoError(t, err)

	_, err = r.Enslogan(context.Background(), "x")
	require.ErrorIs(t, err, ErrModelLoad)
}

func TestDefaultGeneration(t *testing.T) {
	var calls []string
	r, err := New(Options{
		Translator: helloTranslator(&calls),
		Tokenizer:  testTokenizer(t, true),
		Model:      &scriptedModel{script: []int{0}},
		Log:        logger.Discard(),
	})
	require.NoError(t, err)
	assert.Equal(t, DefaultGenerationConfig(), r.Generation())
	assert.Equal(t, GenerationConfig{
		SeqLen: 64, Length: 30, NumSamples: 8, Temperature: 0.9,
		TopK: 50, TopP: 0.95, RepetitionPenalty: 1.0, Seed: -1,
	}, r.Generation())
}

func TestPrompt(t *testing.T) {
	var calls []string
	r, err := New(Options{
		Translator: helloTranslator(&calls),
		Tokenizer:  testTokenizer(t, true),
		Model:      &scriptedModel{script: []int{0}},
		Log:        logger.Discard(),
	})
	require.NoError(t, err)

	ids, segs, err := r.Prompt("hello world")
	require.NoError(t, err)
	assert.Equal(t, []int{idContext, idHello, idWorld, idSlogan}, ids)
	require.Len(t, segs, 64)
	assert.Equal(t, []int{idContext, idContext, idContext, idSlogan}, segs[:4])
	for _, s := range segs[3:] {
		assert.Equal(t, idSlogan, s)
	}

	_, _, err = r.Prompt("xyz")
	require.Error(t, err)
}

func TestSegments(t *testing.T) {
	assert.Equal(t, []int{1, 1, 2, 2}, Segments(2, 4, 1, 2))
	// A context longer than the template still leaves the marker labelled.
	assert.Equal(t, []int{1, 1, 1, 2}, Segments(3, 2, 1, 2))
}

func TestExtract(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"<context>hello<slogan> great taste<|endoftext|>junk", " great taste"},
		{"<context>hello world", ""},
		{"<context>a<slogan>b<slogan>c", "b"},
		{"<context>a<|endoftext|><slogan>b", ""},
		{"<context>x<slogan> it 's good .<|endoftext|>", " it's good."},
		{"<slogan>", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Extract(tt.in), tt.in)
	}
}

func TestDedupe(t *testing.T) {
	assert.Equal(t, []string{"a", "b", ""}, Dedupe([]string{"a", "b", "a", "", ""}))
	assert.Empty(t, Dedupe(nil))
}
