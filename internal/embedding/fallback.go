package embedding

import (
	"math"
	"strings"
	"unicode"

	"manualqa/internal/vector"
)

const hashBlockSize = 64

// Fallback computes a deterministic embedding without any external service.
// It is a pure function of the input text: the front of the vector carries
// rolling-hash signatures of four feature groups (word tokens, bigrams,
// trigrams, character stream), the remainder carries word-frequency features,
// and the whole vector is L2-normalized.
func Fallback(text string, dim int) []float32 {
	if dim <= 0 {
		return nil
	}
	words := strings.Fields(normalizeFeatures(text))

	tokens := make([]string, 0, len(words))
	for _, w := range words {
		if len([]rune(w)) > 2 {
			tokens = append(tokens, w)
		}
	}
	bigrams := ngrams(words, 2)
	trigrams := ngrams(words, 3)
	chars := strings.Join(words, "")

	buf := make([]float32, dim)
	pos := 0
	for _, group := range []string{
		strings.Join(tokens, " "),
		strings.Join(bigrams, " "),
		strings.Join(trigrams, " "),
		chars,
	} {
		pos = writeHashBlock(buf, pos, rollingHash(group))
	}

	// Word-frequency features fill the tail, one slot per distinct word in
	// order of first appearance.
	if len(words) > 0 && pos < dim {
		counts := make(map[string]int, len(words))
		order := make([]string, 0, len(words))
		for _, w := range words {
			if counts[w] == 0 {
				order = append(order, w)
			}
			counts[w]++
		}
		total := float64(len(words))
		for _, w := range order {
			if pos >= dim {
				break
			}
			buf[pos] = float32(math.Tanh(float64(counts[w]) / total))
			pos++
		}
	}

	return vector.Normalize(buf)
}

func normalizeFeatures(text string) string {
	lower := strings.ToLower(text)
	mapped := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return r
		}
		return ' '
	}, lower)
	return strings.Join(strings.Fields(mapped), " ")
}

func ngrams(words []string, n int) []string {
	if len(words) < n {
		return nil
	}
	out := make([]string, 0, len(words)-n+1)
	for i := 0; i+n <= len(words); i++ {
		out = append(out, strings.Join(words[i:i+n], " "))
	}
	return out
}

// rollingHash is the standard multiply-and-add 32-bit hash.
func rollingHash(s string) uint32 {
	var h uint32
	for i := 0; i < len(s); i++ {
		h = h*31 + uint32(s[i])
	}
	return h
}

// writeHashBlock expands a single hash into 64 pseudo-values and writes them
// into buf starting at pos, stopping at the end of the buffer.
func writeHashBlock(buf []float32, pos int, h uint32) int {
	for i := 0; i < hashBlockSize && pos < len(buf); i++ {
		buf[pos] = float32(h*uint32(i+1)%256) - 127.5
		pos++
	}
	return pos
}
