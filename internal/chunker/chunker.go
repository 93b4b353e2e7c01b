package chunker

import "strings"

const (
	DefaultSize    = 300
	DefaultOverlap = 50
)

// Chunk splits text into overlapping windows of up to size words. Consecutive
// windows share overlap words, except possibly the final shorter window.
// overlap >= size is clamped to size-1 so every step makes progress.
func Chunk(text string, size, overlap int) []string {
	if size <= 0 {
		size = DefaultSize
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= size {
		overlap = size - 1
	}
	words := strings.Fields(text)
	step := size - overlap
	out := make([]string, 0, (len(words)+step-1)/step)
	for start := 0; start < len(words); start += step {
		end := start + size
		if end > len(words) {
			end = len(words)
		}
		part := strings.TrimSpace(strings.Join(words[start:end], " "))
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
