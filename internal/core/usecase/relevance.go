package usecase

import (
	"math"
	"strings"
	"unicode"
)

// jaccardSimilarity is the word-set overlap between two texts: the size of
// the intersection over the size of the union, in [0,1].
func jaccardSimilarity(a, b string) float64 {
	setA := toTokenSet(a)
	setB := toTokenSet(b)
	if len(setA) == 0 || len(setB) == 0 {
		return 0
	}

	intersection := 0
	for token := range setA {
		if _, ok := setB[token]; ok {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

// tfidfCosine scores the query against corpus[target] with TF-IDF weights
// computed over the whole corpus. Used in place of vector similarity when the
// stored embedding is a placeholder and its cosine score carries no meaning.
func tfidfCosine(query string, corpus []string, target int) float64 {
	if target < 0 || target >= len(corpus) {
		return 0
	}

	queryTokens := splitAlphaNumLower(query)
	targetTokens := splitAlphaNumLower(corpus[target])
	if len(queryTokens) == 0 || len(targetTokens) == 0 {
		return 0
	}

	documentFrequency := make(map[string]int)
	for _, doc := range corpus {
		for token := range toTokenSet(doc) {
			documentFrequency[token]++
		}
	}

	idf := func(token string) float64 {
		return math.Log(float64(len(corpus)+1)/float64(documentFrequency[token]+1)) + 1
	}

	queryWeights := tfidfWeights(queryTokens, idf)
	targetWeights := tfidfWeights(targetTokens, idf)

	var dot, normQ, normT float64
	for token, wq := range queryWeights {
		normQ += wq * wq
		if wt, ok := targetWeights[token]; ok {
			dot += wq * wt
		}
	}
	for _, wt := range targetWeights {
		normT += wt * wt
	}
	if normQ == 0 || normT == 0 {
		return 0
	}
	return dot / (math.Sqrt(normQ) * math.Sqrt(normT))
}

func tfidfWeights(tokens []string, idf func(string) float64) map[string]float64 {
	counts := make(map[string]int, len(tokens))
	for _, token := range tokens {
		counts[token]++
	}
	weights := make(map[string]float64, len(counts))
	for token, count := range counts {
		tf := float64(count) / float64(len(tokens))
		weights[token] = tf * idf(token)
	}
	return weights
}

func toTokenSet(s string) map[string]struct{} {
	tokens := splitAlphaNumLower(s)
	out := make(map[string]struct{}, len(tokens))
	for _, token := range tokens {
		out[token] = struct{}{}
	}
	return out
}

func splitAlphaNumLower(s string) []string {
	if s == "" {
		return nil
	}

	tokens := make([]string, 0, 16)
	var b strings.Builder
	for _, r := range s {
		r = unicode.ToLower(r)
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			continue
		}
		if b.Len() > 0 {
			tokens = append(tokens, b.String())
			b.Reset()
		}
	}
	if b.Len() > 0 {
		tokens = append(tokens, b.String())
	}
	return tokens
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
