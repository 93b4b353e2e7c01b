package retrieval

import (
	"context"
	"fmt"
	"sort"

	"manualqa/internal/storage"
	"manualqa/internal/vector"
)

const DefaultTopK = 5

// ChunkSource abstracts the chunk store read path.
type ChunkSource interface {
	ListChunks(ctx context.Context, documentID string) ([]storage.StoredChunk, error)
}

// Index answers top-k nearest-neighbor queries over one document's chunks by
// brute-force cosine similarity. Ties keep original chunk order.
type Index struct {
	source ChunkSource
}

func NewIndex(source ChunkSource) *Index {
	return &Index{source: source}
}

func (ix *Index) Search(ctx context.Context, queryVec []float32, documentID string, k int) ([]string, error) {
	if k <= 0 {
		k = DefaultTopK
	}
	chunks, err := ix.source.ListChunks(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("load chunks for %s: %w", documentID, err)
	}

	type scored struct {
		content string
		score   float64
	}
	list := make([]scored, 0, len(chunks))
	for _, c := range chunks {
		score, err := vector.Cosine(c.Embedding, queryVec)
		if err != nil {
			return nil, fmt.Errorf("score chunk for %s: %w", documentID, err)
		}
		list = append(list, scored{content: c.Content, score: score})
	}
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].score > list[j].score
	})

	if k > len(list) {
		k = len(list)
	}
	out := make([]string, 0, k)
	for i := 0; i < k; i++ {
		out = append(out, list[i].content)
	}
	return out, nil
}
