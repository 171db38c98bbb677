package tokenizer

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/goccy/go-json"
)

// gpt2Pattern is the GPT-2 pre-tokenizer regex without the `\s+(?!\S)`
// lookahead, which RE2 lacks. pretokenize restores its effect.
const gpt2Pattern = `'s|'t|'re|'ve|'m|'ll|'d| ?\p{L}+| ?\p{N}+| ?[^\s\p{L}\p{N}]+|\s+`

// HFTokenizer is a byte-level BPE tokenizer read from tokenizer.json.
type HFTokenizer struct {
	encoder     map[string]int
	decoder     []string
	bpeRanks    map[Pair]int
	byteEncoder map[byte]string
	byteDecoder map[string]byte
	pattern     *regexp.Regexp
	unkID       int
	special     specialSet

	mu    sync.Mutex
	cache map[string][]string
}

type hfAddedToken struct {
	ID      int    `json:"id"`
	Content string `json:"content"`
	Special bool   `json:"special"`
}

type hfTokenizerJSON struct {
	Model struct {
		Type     string         `json:"type"`
		Vocab    map[string]int `json:"vocab"`
		Merges   []any          `json:"merges"`
		UnkToken *string        `json:"unk_token"`
	} `json:"model"`
	PreTokenizer *struct {
		Type          string `json:"type"`
		Pretokenizers []struct {
			Type    string `json:"type"`
			Pattern struct {
				Regex string `json:"Regex"`
			} `json:"pattern"`
		} `json:"pretokenizers"`
	} `json:"pre_tokenizer"`
	AddedTokens []hfAddedToken `json:"added_tokens"`
}

// LoadHFTokenizer reads a tokenizer.json file.
func LoadHFTokenizer(path string) (*HFTokenizer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("tokenizer: %w", err)
	}
	return LoadHFTokenizerBytes(data)
}

// LoadHFTokenizerBytes parses the contents of a tokenizer.json file.
func LoadHFTokenizerBytes(data []byte) (*HFTokenizer, error) {
	var tj hfTokenizerJSON
	if err := json.Unmarshal(data, &tj); err != nil {
		return nil, fmt.Errorf("tokenizer: parse tokenizer.json: %w", err)
	}
	if strings.ToUpper(tj.Model.Type) != "BPE" {
		return nil, fmt.Errorf("tokenizer: unsupported model type %q", tj.Model.Type)
	}

	maxID := -1
	for _, id := range tj.Model.Vocab {
		if id < 0 {
			return nil, fmt.Errorf("tokenizer: negative id %d in vocab", id)
		}
		maxID = max(maxID, id)
	}
	for _, at := range tj.AddedTokens {
		maxID = max(maxID, at.ID)
	}
	if maxID < 0 {
		return nil, fmt.Errorf("tokenizer: empty vocabulary")
	}

	encoder := make(map[string]int, maxID+1)
	decoder := make([]string, maxID+1)
	for tok, id := range tj.Model.Vocab {
		encoder[tok] = id
		decoder[id] = tok
	}

	tok := &HFTokenizer{
		encoder:  encoder,
		decoder:  decoder,
		bpeRanks: parseMerges(tj.Model.Merges),
		unkID:    -1,
		cache:    make(map[string][]string),
	}
	tok.byteEncoder, tok.byteDecoder = bytesToUnicode()

	pat := gpt2Pattern
	if tj.PreTokenizer != nil && tj.PreTokenizer.Type == "Sequence" {
		for _, p := range tj.PreTokenizer.Pretokenizers {
			if p.Type == "Split" && p.Pattern.Regex != "" {
				pat = p.Pattern.Regex
				break
			}
		}
	}
	re, err := regexp.Compile(pat)
	if err != nil {
		re = regexp.MustCompile(gpt2Pattern)
	}
	tok.pattern = re

	for _, at := range tj.AddedTokens {
		if at.ID < 0 || at.Content == "" {
			continue
		}
		encoder[at.Content] = at.ID
		decoder[at.ID] = at.Content
		tok.special.add(at.Content)
	}
	for t := range encoder {
		if isControlToken(t) {
			tok.special.add(t)
		}
	}
	if tj.Model.UnkToken != nil {
		if id, ok := encoder[*tj.Model.UnkToken]; ok {
			tok.unkID = id
		}
	}
	return tok, nil
}

func parseMerges(raw []any) map[Pair]int {
	ranks := make(map[Pair]int, len(raw))
	rank := 0
	for _, m := range raw {
		line := ""
		switch v := m.(type) {
		case string:
			line = v
		case []any:
			if len(v) == 2 {
				a, aok := v[0].(string)
				b, bok := v[1].(string)
				if aok && bok {
					line = a + " " + b
				}
			}
		}
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.Split(line, " ")
		if len(parts) != 2 {
			continue
		}
		p := Pair{A: parts[0], B: parts[1]}
		if _, ok := ranks[p]; !ok {
			ranks[p] = rank
			rank++
		}
	}
	return ranks
}

// AddSpecialTokens registers tokens that must be matched verbatim. Tokens
// missing from the vocabulary get the next free id, in argument order.
func (t *HFTokenizer) AddSpecialTokens(tokens ...string) {
	for _, s := range tokens {
		if s == "" {
			continue
		}
		if _, ok := t.encoder[s]; !ok {
			t.encoder[s] = len(t.decoder)
			t.decoder = append(t.decoder, s)
		}
		t.special.add(s)
	}
}

func (t *HFTokenizer) Encode(text string) ([]int, error) {
	var ids []int
	for _, part := range t.special.split(text) {
		if part.isSpecial {
			ids = append(ids, t.encoder[part.text])
			continue
		}
		for _, word := range t.pretokenize(part.text) {
			for _, piece := range t.bpe(t.byteEncode(word)) {
				id, ok := t.encoder[piece]
				if !ok {
					if t.unkID >= 0 {
						ids = append(ids, t.unkID)
						continue
					}
					return nil, fmt.Errorf("tokenizer: unknown token %q", piece)
				}
				ids = append(ids, id)
			}
		}
	}
	return ids, nil
}

func (t *HFTokenizer) Decode(ids []int) (string, error) {
	var b []byte
	for _, id := range ids {
		if id < 0 || id >= len(t.decoder) {
			return "", fmt.Errorf("tokenizer: token id out of range: %d", id)
		}
		token := t.decoder[id]
		if t.special.has(token) {
			b = append(b, token...)
			continue
		}
		for _, r := range token {
			if by, ok := t.byteDecoder[string(r)]; ok {
				b = append(b, by)
			} else {
				b = append(b, string(r)...)
			}
		}
	}
	return string(b), nil
}

func (t *HFTokenizer) TokenID(token string) (int, bool) {
	id, ok := t.encoder[token]
	return id, ok
}

func (t *HFTokenizer) VocabSize() int { return len(t.decoder) }

// TokenString returns the raw vocabulary entry for id.
func (t *HFTokenizer) TokenString(id int) string {
	if id < 0 || id >= len(t.decoder) {
		return ""
	}
	return t.decoder[id]
}

// pretokenize splits s into words. A whitespace run followed by more text
// gives up its last character to the next word, matching `\s+(?!\S)`.
func (t *HFTokenizer) pretokenize(s string) []string {
	var out []string
	for len(s) > 0 {
		loc := t.pattern.FindStringIndex(s)
		if loc == nil {
			out = append(out, s)
			break
		}
		if loc[0] > 0 {
			out = append(out, s[:loc[0]])
		}
		end := loc[1]
		m := s[loc[0]:end]
		if end < len(s) && strings.TrimSpace(m) == "" && utf8.RuneCountInString(m) > 1 {
			_, size := utf8.DecodeLastRuneInString(m)
			end -= size
			m = m[:len(m)-size]
		}
		if end == 0 {
			// Zero-width match; consume one rune to make progress.
			_, size := utf8.DecodeRuneInString(s)
			end = size
			m = s[:size]
		}
		out = append(out, m)
		s = s[end:]
	}
	return out
}

func (t *HFTokenizer) byteEncode(s string) string {
	var b strings.Builder
	for _, by := range []byte(s) {
		b.WriteString(t.byteEncoder[by])
	}
	return b.String()
}

func (t *HFTokenizer) bpe(token string) []string {
	t.mu.Lock()
	if v, ok := t.cache[token]; ok {
		t.mu.Unlock()
		return v
	}
	t.mu.Unlock()

	word := splitRunes(token)
	pairs := getPairs(word)
	for len(pairs) > 0 {
		bestRank := int(^uint(0) >> 1)
		bestPair := Pair{}
		found := false
		for p := range pairs {
			if rank, ok := t.bpeRanks[p]; ok && rank < bestRank {
				bestRank = rank
				bestPair = p
				found = true
			}
		}
		if !found {
			break
		}
		word = mergePair(word, bestPair)
		if len(word) == 1 {
			break
		}
		pairs = getPairs(word)
	}

	t.mu.Lock()
	t.cache[token] = word
	t.mu.Unlock()
	return word
}
