package chunker

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func sequence(n int) string {
	words := make([]string, n)
	for i := range words {
		words[i] = fmt.Sprintf("w%d", i)
	}
	return strings.Join(words, " ")
}

func TestChunkSingleWindow(t *testing.T) {
	text := "The compressor operates at 45 PSI. Replace filter every 3 months."
	chunks := Chunk(text, 300, 50)
	require.Len(t, chunks, 1)
	require.Equal(t, strings.Join(strings.Fields(text), " "), chunks[0])
}

func TestChunkWindowStartsAndOverlap(t *testing.T) {
	chunks := Chunk(sequence(700), 300, 50)
	require.Len(t, chunks, 3)

	first := strings.Fields(chunks[0])
	second := strings.Fields(chunks[1])
	require.Len(t, first, 300)
	require.Equal(t, "w0", first[0])
	require.Equal(t, "w250", second[0])
	// consecutive windows overlap by exactly 50 words
	require.Equal(t, first[250:], second[:50])

	third := strings.Fields(chunks[2])
	require.Equal(t, "w500", third[0])
	require.Equal(t, "w699", third[len(third)-1])
}

func TestChunkEmitsWindowForEveryStart(t *testing.T) {
	// starts advance by size-overlap until they reach the word count, even
	// when an earlier window already ended on the last word
	chunks := Chunk(sequence(25), 10, 2)
	require.Len(t, chunks, 4)
	require.Equal(t, "w0", strings.Fields(chunks[0])[0])
	require.Equal(t, "w8", strings.Fields(chunks[1])[0])
	require.Equal(t, "w16", strings.Fields(chunks[2])[0])
	require.Equal(t, "w24", chunks[3])
}

func TestChunkCoversAllWords(t *testing.T) {
	n := 1234
	chunks := Chunk(sequence(n), 300, 50)
	seen := map[string]bool{}
	for _, c := range chunks {
		for _, w := range strings.Fields(c) {
			seen[w] = true
		}
	}
	require.Len(t, seen, n)
}

func TestChunkClampsOverlap(t *testing.T) {
	// overlap >= size must still terminate and make progress
	chunks := Chunk(sequence(10), 4, 9)
	require.NotEmpty(t, chunks)
	require.Equal(t, "w0 w1 w2 w3", chunks[0])
	last := chunks[len(chunks)-1]
	require.Contains(t, strings.Fields(last), "w9")
}

func TestChunkEmptyAndWhitespace(t *testing.T) {
	require.Empty(t, Chunk("", 300, 50))
	require.Empty(t, Chunk("   \n\t  ", 300, 50))
}

func TestChunkDefaultsOnBadSize(t *testing.T) {
	chunks := Chunk(sequence(400), 0, 50)
	require.Len(t, chunks, 2)
	require.Len(t, strings.Fields(chunks[0]), DefaultSize)
}
