package tokenizer

import (
	"fmt"
	"strings"

	"github.com/pkoukk/tiktoken-go"
)

// DefaultEncoding is the GPT-2 byte-pair encoding.
const DefaultEncoding = "r50k_base"

// gpt2Encodings lists the tiktoken encodings that share the GPT-2 layout:
// the number of ids in the encoding and the id of <|endoftext|>.
var gpt2Encodings = map[string]struct{ size, eot int }{
	"r50k_base": {size: 50257, eot: 50256},
	"p50k_base": {size: 50281, eot: 50256},
}

// TikToken wraps pkoukk/tiktoken-go. Extra special tokens are numbered
// from the end of the encoding.
type TikToken struct {
	encoding *tiktoken.Tiktoken
	name     string
	size     int

	special  specialSet
	specials map[string]int
	byID     map[int]string
}

// NewTikToken loads a GPT-2 family encoding. The BPE ranks are fetched and
// cached by tiktoken-go on first use.
func NewTikToken(encodingName string) (*TikToken, error) {
	if strings.TrimSpace(encodingName) == "" {
		encodingName = DefaultEncoding
	}
	layout, ok := gpt2Encodings[encodingName]
	if !ok {
		return nil, fmt.Errorf("tokenizer: encoding %q is not a GPT-2 encoding", encodingName)
	}
	encoding, err := tiktoken.GetEncoding(encodingName)
	if err != nil {
		return nil, fmt.Errorf("failed to load tiktoken encoding %q: %w", encodingName, err)
	}
	t := &TikToken{
		encoding: encoding,
		name:     encodingName,
		size:     layout.size,
		specials: map[string]int{EndOfText: layout.eot},
		byID:     map[int]string{layout.eot: EndOfText},
	}
	t.special.add(EndOfText)
	return t, nil
}

// AddSpecialTokens registers tokens after the base encoding, in argument
// order. Tokens already known keep their id.
func (t *TikToken) AddSpecialTokens(tokens ...string) {
	for _, s := range tokens {
		if s == "" {
			continue
		}
		if _, ok := t.specials[s]; ok {
			continue
		}
		id := t.VocabSize()
		t.specials[s] = id
		t.byID[id] = s
		t.special.add(s)
	}
}

// Encode converts text to token IDs.
func (t *TikToken) Encode(text string) ([]int, error) {
	var ids []int
	for _, part := range t.special.split(text) {
		if part.isSpecial {
			ids = append(ids, t.specials[part.text])
			continue
		}
		ids = append(ids, t.encoding.Encode(part.text, nil, nil)...)
	}
	return ids, nil
}

// Decode converts token IDs back to text. Runs of ordinary ids are decoded
// together so multi-byte characters split across tokens survive.
func (t *TikToken) Decode(ids []int) (string, error) {
	var b strings.Builder
	var run []int
	flush := func() {
		if len(run) > 0 {
			b.WriteString(t.encoding.Decode(run))
			run = run[:0]
		}
	}
	for _, id := range ids {
		if s, ok := t.byID[id]; ok {
			flush()
			b.WriteString(s)
			continue
		}
		if id < 0 || id >= t.size {
			return "", fmt.Errorf("tokenizer: token id out of range: %d", id)
		}
		run = append(run, id)
	}
	flush()
	return b.String(), nil
}

func (t *TikToken) TokenID(token string) (int, bool) {
	if id, ok := t.specials[token]; ok {
		return id, true
	}
	ids := t.encoding.Encode(token, nil, nil)
	if len(ids) != 1 {
		return 0, false
	}
	return ids[0], true
}

// VocabSize returns the encoding size plus the added special tokens.
func (t *TikToken) VocabSize() int {
	n := t.size
	for id := range t.byID {
		n = max(n, id+1)
	}
	return n
}

// Name returns the encoding name.
func (t *TikToken) Name() string { return t.name }
