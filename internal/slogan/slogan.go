// Package slogan turns Korean text into English slogan candidates: the text
// is translated, wrapped in context/slogan markers and continued by the
// language model.
package slogan

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/samcharles93/smithy/internal/generate"
	"github.com/samcharles93/smithy/internal/logger"
	"github.com/samcharles93/smithy/internal/model"
	"github.com/samcharles93/smithy/internal/tokenizer"
	"github.com/samcharles93/smithy/internal/translate"
)

var (
	// ErrTranslation wraps translation failures. Errors carrying it also
	// match translate.ErrTranslation.
	ErrTranslation = errors.New("slogan: translation failed")
	// ErrModelLoad wraps failures to load the model weights.
	ErrModelLoad = errors.New("slogan: model load failed")
)

// DefaultModelPath is where the fine-tuned weights are expected.
const DefaultModelPath = "models/en_slogan.safetensors"

// GenerationConfig holds the sampling parameters of one call.
type GenerationConfig struct {
	// SeqLen is the length of the segment template.
	SeqLen            int
	Length            int
	NumSamples        int
	Temperature       float32
	TopK              int
	TopP              float32
	RepetitionPenalty float32
	Seed              int64
}

// DefaultGenerationConfig returns the parameters the slogan model was tuned
// with.
func DefaultGenerationConfig() GenerationConfig {
	return GenerationConfig{
		SeqLen:            64,
		Length:            30,
		NumSamples:        8,
		Temperature:       0.9,
		TopK:              50,
		TopP:              0.95,
		RepetitionPenalty: 1.0,
		Seed:              -1,
	}
}

// ModelLoader opens the language model stored at path.
type ModelLoader func(path string) (model.LanguageModel, error)

// Options configure a Runtime.
type Options struct {
	Translator translate.Translator
	// Tokenizer must know the <context> and <slogan> tokens.
	Tokenizer tokenizer.Tokenizer
	// Model is used as-is when set. Otherwise Loader(ModelPath) is called.
	Model     model.LanguageModel
	ModelPath string
	Loader    ModelLoader
	// ReloadModel loads the weights again on every call instead of once.
	ReloadModel bool
	// Generation defaults to DefaultGenerationConfig when zero.
	Generation GenerationConfig
	// Dedupe drops repeated candidates, keeping the first occurrence.
	Dedupe bool
	Log    logger.Logger
}

// Runtime holds the loaded collaborators for Enslogan.
type Runtime struct {
	translator translate.Translator
	tok        tokenizer.Tokenizer
	model      model.LanguageModel
	loader     ModelLoader
	modelPath  string
	reload     bool
	gen        GenerationConfig
	dedupe     bool
	log        logger.Logger

	contextID int
	sloganID  int
}

// Result is the outcome of one Generate call.
type Result struct {
	RequestID   string        `json:"request_id"`
	Source      string        `json:"source"`
	Translation string        `json:"translation"`
	Slogans     []string      `json:"slogans"`
	Duration    time.Duration `json:"duration_ns"`
}

// New validates opts and loads the model unless ReloadModel is set.
func New(opts Options) (*Runtime, error) {
	if opts.Translator == nil {
		return nil, errors.New("slogan: no translator")
	}
	if opts.Tokenizer == nil {
		return nil, errors.New("slogan: no tokenizer")
	}
	if opts.Log == nil {
		opts.Log = logger.Default()
	}
	if opts.Loader == nil {
		opts.Loader = model.Load
	}
	if opts.ModelPath == "" {
		opts.ModelPath = DefaultModelPath
	}
	if opts.Generation == (GenerationConfig{}) {
		opts.Generation = DefaultGenerationConfig()
	}

	contextID, err := tokenizer.MustID(opts.Tokenizer, tokenizer.Context)
	if err != nil {
		return nil, fmt.Errorf("slogan: %w", err)
	}
	sloganID, err := tokenizer.MustID(opts.Tokenizer, tokenizer.Slogan)
	if err != nil {
		return nil, fmt.Errorf("slogan: %w", err)
	}

	r := &Runtime{
		translator: opts.Translator,
		tok:        opts.Tokenizer,
		model:      opts.Model,
		loader:     opts.Loader,
		modelPath:  opts.ModelPath,
		reload:     opts.ReloadModel,
		gen:        opts.Generation,
		dedupe:     opts.Dedupe,
		log:        opts.Log.With(logger.ComponentKey, "slogan"),
		contextID:  contextID,
		sloganID:   sloganID,
	}
	if r.model == nil && !r.reload {
		if r.model, err = r.loadModel(); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Generation returns the sampling parameters in use.
func (r *Runtime) Generation() GenerationConfig { return r.gen }

func (r *Runtime) loadModel() (model.LanguageModel, error) {
	start := time.Now()
	m, err := r.loader(r.modelPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrModelLoad, err)
	}
	r.log.Debug("model loaded", "path", r.modelPath, "vocab", m.VocabSize(), "duration", time.Since(start))
	return m, nil
}

func (r *Runtime) languageModel() (model.LanguageModel, error) {
	if r.reload || r.model == nil {
		return r.loadModel()
	}
	return r.model, nil
}

// Enslogan returns NumSamples slogan candidates for text, in generation
// order.
func (r *Runtime) Enslogan(ctx context.Context, text string) ([]string, error) {
	res, err := r.Generate(ctx, text)
	if err != nil {
		return nil, err
	}
	return res.Slogans, nil
}

// Generate is Enslogan with the intermediate translation and timing.
func (r *Runtime) Generate(ctx context.Context, text string) (*Result, error) {
	res := &Result{RequestID: uuid.NewString(), Source: text}
	log := r.log.With("request_id", res.RequestID)
	start := time.Now()

	translation, err := r.translator.Translate(ctx, text)
	if err != nil {
		log.Error("translation failed", "error", err)
		return nil, fmt.Errorf("%w: %w", ErrTranslation, err)
	}
	res.Translation = translation
	log.Debug("translated", "translation", translation)

	ids, segments, err := r.Prompt(translation)
	if err != nil {
		return nil, err
	}

	m, err := r.languageModel()
	if err != nil {
		log.Error("model load failed", "path", r.modelPath, "error", err)
		return nil, err
	}

	seqs, stats, err := generate.New(m, log).Sample(ctx, generate.Request{
		Context:           ids,
		Length:            r.gen.Length,
		Segments:          segments,
		NumSamples:        r.gen.NumSamples,
		Temperature:       r.gen.Temperature,
		TopK:              r.gen.TopK,
		TopP:              r.gen.TopP,
		RepetitionPenalty: r.gen.RepetitionPenalty,
		Seed:              r.gen.Seed,
	})
	if err != nil {
		return nil, fmt.Errorf("slogan: sample: %w", err)
	}

	res.Slogans = make([]string, 0, len(seqs))
	for _, seq := range seqs {
		decoded, err := r.tok.Decode(seq)
		if err != nil {
			return nil, fmt.Errorf("slogan: decode: %w", err)
		}
		res.Slogans = append(res.Slogans, Extract(decoded))
	}
	if r.dedupe {
		res.Slogans = Dedupe(res.Slogans)
	}
	res.Duration = time.Since(start)

	log.Info("slogans generated",
		"samples", len(seqs),
		"candidates", len(res.Slogans),
		"steps", stats.Steps,
		"duration", res.Duration,
	)
	return res, nil
}

// Prompt encodes translation as <context> text <slogan> and returns the
// matching segment template.
func (r *Runtime) Prompt(translation string) (ids, segments []int, err error) {
	enc, err := r.tok.Encode(translation)
	if err != nil {
		return nil, nil, fmt.Errorf("slogan: encode: %w", err)
	}
	ids = make([]int, 0, len(enc)+2)
	ids = append(ids, r.contextID)
	ids = append(ids, enc...)
	segments = Segments(len(ids), r.gen.SeqLen, r.contextID, r.sloganID)
	ids = append(ids, r.sloganID)
	return ids, segments, nil
}

// Segments labels the first contextLen positions with contextID and the rest
// of a seqLen template with sloganID. The template is extended so the
// position of the slogan marker is always labelled sloganID.
func Segments(contextLen, seqLen, contextID, sloganID int) []int {
	n := max(seqLen, contextLen+1)
	out := make([]int, n)
	for i := range out {
		if i < contextLen {
			out[i] = contextID
		} else {
			out[i] = sloganID
		}
	}
	return out
}

// Extract returns the slogan in a decoded sequence: the text after the first
// <slogan> marker, stopping at the next marker or at <|endoftext|>. A sequence
// without a marker yields "".
func Extract(decoded string) string {
	decoded, _, _ = strings.Cut(decoded, tokenizer.EndOfText)
	_, after, ok := strings.Cut(decoded, tokenizer.Slogan)
	if !ok {
		return ""
	}
	after, _, _ = strings.Cut(after, tokenizer.Slogan)
	return tokenizer.CleanUpSpaces(after)
}

// Dedupe returns slogans without repeats, in first-seen order.
func Dedupe(slogans []string) []string {
	seen := make(map[string]struct{}, len(slogans))
	out := make([]string, 0, len(slogans))
	for _, s := range slogans {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
