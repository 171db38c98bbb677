// Package tokenizer turns text into GPT-2 token ids and back. Two backends
// are provided: a byte-level BPE loaded from a Hugging Face tokenizer.json,
// and the r50k_base encoding from tiktoken-go. Both support extra special
// tokens appended after the base vocabulary, the way add_special_tokens does.
package tokenizer

import (
	"fmt"
	"strings"
)

// Special tokens used by the slogan model.
const (
	EndOfText = "<|endoftext|>"
	Pad       = "<pad>"
	Context   = "<context>"
	Slogan    = "<slogan>"
)

// SloganSpecials are the tokens added on top of the GPT-2 vocabulary, in
// id order.
var SloganSpecials = []string{Pad, Context, Slogan}

// Tokenizer defines the minimal interface used by the generator.
type Tokenizer interface {
	Encode(text string) ([]int, error)
	Decode(ids []int) (string, error)
	// TokenID resolves a single vocabulary entry, including special tokens.
	TokenID(token string) (int, bool)
	VocabSize() int
}

// Backend names accepted by Load.
const (
	BackendHF       = "hf"
	BackendTiktoken = "tiktoken"
)

// Config selects and configures a backend.
type Config struct {
	Backend string
	// Path is the tokenizer.json for the hf backend.
	Path string
	// Encoding is the tiktoken encoding name; defaults to r50k_base.
	Encoding string
	// Specials are added after the base vocabulary when missing.
	Specials []string
}

// Load builds the configured tokenizer and registers cfg.Specials.
func Load(cfg Config) (Tokenizer, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case BackendHF, "":
		if strings.TrimSpace(cfg.Path) == "" {
			return nil, fmt.Errorf("tokenizer: hf backend needs a tokenizer.json path")
		}
		tok, err := LoadHFTokenizer(cfg.Path)
		if err != nil {
			return nil, err
		}
		tok.AddSpecialTokens(cfg.Specials...)
		return tok, nil
	case BackendTiktoken:
		tok, err := NewTikToken(cfg.Encoding)
		if err != nil {
			return nil, err
		}
		tok.AddSpecialTokens(cfg.Specials...)
		return tok, nil
	default:
		return nil, fmt.Errorf("tokenizer: unknown backend %q", cfg.Backend)
	}
}

// MustID resolves token or returns an error naming it.
func MustID(t Tokenizer, token string) (int, error) {
	id, ok := t.TokenID(token)
	if !ok {
		return 0, fmt.Errorf("tokenizer: %q is not in the vocabulary", token)
	}
	return id, nil
}

var cleanUpReplacer = strings.NewReplacer(
	" .", ".",
	" ?", "?",
	" !", "!",
	" ,", ",",
	" ' ", "'",
	" n't", "n't",
	" 'm", "'m",
	" 's", "'s",
	" 've", "'ve",
	" 're", "'re",
)

// CleanUpSpaces removes the spaces BPE decoding leaves before punctuation
// and English contractions.
func CleanUpSpaces(text string) string {
	return cleanUpReplacer.Replace(text)
}
