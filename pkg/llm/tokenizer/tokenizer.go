// Package tokenizer counts and bounds LLM tokens in distilled page text.
package tokenizer

import (
	"fmt"
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"
)

// encodingName is the cl100k_base encoding shared by the GPT-4 family.
const encodingName = "cl100k_base"

// charsPerToken is the estimate used when no encoder is available.
const charsPerToken = 4

// Tokenizer wraps a tiktoken encoder. A nil *Tokenizer is valid and
// falls back to a character-based estimate.
type Tokenizer struct {
	enc *tiktoken.Tiktoken
}

// New loads the cl100k_base encoding. It may fail in offline
// environments, in which case callers keep a nil tokenizer.
func New() (*Tokenizer, error) {
	enc, err := tiktoken.GetEncoding(encodingName)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s encoding: %w", encodingName, err)
	}
	return &Tokenizer{enc: enc}, nil
}

// CountTokens returns the number of tokens in text.
func (t *Tokenizer) CountTokens(text string) int {
	if t == nil || t.enc == nil {
		return estimateTokens(text)
	}
	return len(t.enc.Encode(text, nil, nil))
}

// Truncate cuts text down to at most maxTokens tokens. It reports whether
// anything was removed. maxTokens <= 0 disables the bound.
func (t *Tokenizer) Truncate(text string, maxTokens int) (string, bool) {
	if maxTokens <= 0 {
		return text, false
	}

	if t == nil || t.enc == nil {
		limit := maxTokens * charsPerToken
		if len(text) <= limit {
			return text, false
		}
		// Back off to a rune boundary.
		for limit > 0 && !utf8.RuneStart(text[limit]) {
			limit--
		}
		return text[:limit], true
	}

	tokens := t.enc.Encode(text, nil, nil)
	if len(tokens) <= maxTokens {
		return text, false
	}
	return t.enc.Decode(tokens[:maxTokens]), true
}

func estimateTokens(text string) int {
	if text == "" {
		return 0
	}
	return (len(text) + charsPerToken - 1) / charsPerToken
}
