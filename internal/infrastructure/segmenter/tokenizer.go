package segmenter

import (
	"strings"

	"github.com/pkoukk/tiktoken-go"
)

// Tokenizer provides the two operations segmentation needs: a token budget
// for a piece of text and the decoded tail of exactly n tokens. The same
// tokenizer must serve both so chunk sizes stay comparable across runs.
type Tokenizer interface {
	Count(text string) int
	Tail(text string, tokens int) string
}

type tiktokenTokenizer struct {
	enc *tiktoken.Tiktoken
}

// NewTokenizer returns a cl100k_base tokenizer. When the encoding cannot be
// loaded it degrades to approximate character-based slicing instead of
// failing, so segmentation never blocks on tokenizer availability.
func NewTokenizer() Tokenizer {
	enc, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		return charTokenizer{}
	}
	return &tiktokenTokenizer{enc: enc}
}

func (t *tiktokenTokenizer) Count(text string) int {
	return len(t.enc.Encode(text, nil, nil))
}

func (t *tiktokenTokenizer) Tail(text string, tokens int) string {
	if tokens <= 0 {
		return ""
	}
	ids := t.enc.Encode(text, nil, nil)
	if len(ids) <= tokens {
		return text
	}
	return t.enc.Decode(ids[len(ids)-tokens:])
}

// charTokenizer approximates one token as four runes. Fallback only.
type charTokenizer struct{}

const runesPerToken = 4

func (charTokenizer) Count(text string) int {
	n := len([]rune(text))
	if n == 0 {
		return 0
	}
	return (n + runesPerToken - 1) / runesPerToken
}

func (charTokenizer) Tail(text string, tokens int) string {
	if tokens <= 0 {
		return ""
	}
	runes := []rune(text)
	cut := len(runes) - tokens*runesPerToken
	if cut <= 0 {
		return text
	}
	return strings.TrimLeft(string(runes[cut:]), " ")
}
