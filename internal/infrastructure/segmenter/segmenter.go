package segmenter

import (
	"strings"

	"github.com/rkudryashov/knowledge-pipeline/internal/core/domain"
)

// Inputs this short and single-sentence are returned as one verbatim chunk.
const shortInputTokens = 100

// Segmenter splits document text into token-bounded chunks on sentence
// boundaries, seeding each new chunk with the trailing tokens of the
// previous one.
type Segmenter struct {
	minTokens     int
	maxTokens     int
	overlapTokens int
	tok           Tokenizer
}

func New(minTokens, maxTokens, overlapTokens int, tok Tokenizer) *Segmenter {
	if maxTokens <= 0 {
		maxTokens = 1200
	}
	if minTokens <= 0 || minTokens > maxTokens {
		minTokens = maxTokens / 2
	}
	if overlapTokens < 0 {
		overlapTokens = 0
	}
	if overlapTokens >= minTokens {
		overlapTokens = minTokens / 4
	}
	if tok == nil {
		tok = NewTokenizer()
	}
	return &Segmenter{
		minTokens:     minTokens,
		maxTokens:     maxTokens,
		overlapTokens: overlapTokens,
		tok:           tok,
	}
}

func (s *Segmenter) Segment(text string) []domain.Chunk {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil
	}

	sentences := splitSentences(trimmed)
	if len(sentences) <= 1 && s.tok.Count(trimmed) < shortInputTokens {
		return []domain.Chunk{{
			Text:        trimmed,
			TokenCount:  s.tok.Count(trimmed),
			Position:    0,
			TotalChunks: 1,
		}}
	}

	var chunks []domain.Chunk
	var buf strings.Builder
	bufTokens := 0

	flush := func() string {
		closed := strings.TrimSpace(buf.String())
		if closed == "" {
			return ""
		}
		chunks = append(chunks, domain.Chunk{
			Text:       closed,
			TokenCount: s.tok.Count(closed),
			Position:   len(chunks),
		})
		buf.Reset()
		bufTokens = 0
		return closed
	}

	seedOverlap := func(closed string) {
		if s.overlapTokens <= 0 || closed == "" {
			return
		}
		overlap := s.tok.Tail(closed, s.overlapTokens)
		buf.WriteString(overlap)
		buf.WriteString(" ")
		bufTokens = s.tok.Count(overlap)
	}

	// A run-on sentence longer than the maximum budget would either produce
	// an oversized chunk or force an undersized flush of the buffer before
	// it. Break such sentences on word boundaries first so the greedy loop
	// packs them like any other input.
	parts := make([]string, 0, len(sentences))
	for _, sentence := range sentences {
		if s.tok.Count(sentence) > s.maxTokens {
			parts = append(parts, s.splitOversized(sentence)...)
			continue
		}
		parts = append(parts, sentence)
	}

	for i, sentence := range parts {
		sentenceTokens := s.tok.Count(sentence)

		if bufTokens > 0 && bufTokens+sentenceTokens > s.maxTokens {
			seedOverlap(flush())
		}

		buf.WriteString(sentence)
		buf.WriteString(" ")
		bufTokens += sentenceTokens

		// Eager close: the buffer already satisfies the minimum and the next
		// sentence would overflow the maximum. Closing here keeps later
		// chunks from starving.
		if bufTokens >= s.minTokens && i+1 < len(parts) {
			if bufTokens+s.tok.Count(parts[i+1]) > s.maxTokens {
				seedOverlap(flush())
			}
		}
	}
	flush()

	for i := range chunks {
		chunks[i].TotalChunks = len(chunks)
	}
	return chunks
}

// splitOversized breaks a sentence exceeding the maximum budget into words,
// letting the greedy loop repack them. A single whitespace-free run longer
// than the budget is cut by rune windows, shrinking until the window fits.
func (s *Segmenter) splitOversized(sentence string) []string {
	fields := strings.Fields(sentence)
	parts := make([]string, 0, len(fields))
	for _, field := range fields {
		if s.tok.Count(field) <= s.maxTokens {
			parts = append(parts, field)
			continue
		}
		runes := []rune(field)
		for len(runes) > 0 {
			n := len(runes)
			if n > s.maxTokens*runesPerToken {
				n = s.maxTokens * runesPerToken
			}
			for n > 1 && s.tok.Count(string(runes[:n])) > s.maxTokens {
				n /= 2
			}
			parts = append(parts, string(runes[:n]))
			runes = runes[n:]
		}
	}
	return parts
}

// splitSentences breaks text after runs of terminal punctuation followed by
// whitespace, keeping the punctuation with the preceding sentence.
func splitSentences(text string) []string {
	var sentences []string
	start := 0
	runes := []rune(text)
	for i := 0; i < len(runes); i++ {
		if !isTerminal(runes[i]) {
			continue
		}
		j := i
		for j+1 < len(runes) && isTerminal(runes[j+1]) {
			j++
		}
		if j+1 < len(runes) && !isSpace(runes[j+1]) {
			i = j
			continue
		}
		sentence := strings.TrimSpace(string(runes[start : j+1]))
		if sentence != "" {
			sentences = append(sentences, sentence)
		}
		i = j
		start = j + 1
	}
	if tail := strings.TrimSpace(string(runes[start:])); tail != "" {
		sentences = append(sentences, tail)
	}
	return sentences
}

func isTerminal(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n' || r == '\r'
}
