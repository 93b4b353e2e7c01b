package storage

import (
	"context"
	"fmt"

	"manualqa/internal/util"
	"manualqa/internal/vector"
)

type ChunkRecord struct {
	ChunkID         string
	DocumentID      string
	ChunkIndex      int
	Text            string
	EmbeddingVector string
}

// StoredChunk is a chunk as the retrieval index consumes it.
type StoredChunk struct {
	Content   string
	Embedding []float32
}

type ChunkRepo struct {
	db *DB
}

func NewChunkRepo(db *DB) *ChunkRepo {
	return &ChunkRepo{db: db}
}

func (r *ChunkRepo) InsertChunks(ctx context.Context, chunks []ChunkRecord) error {
	if len(chunks) == 0 {
		return nil
	}
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx insert chunks: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	for _, c := range chunks {
		_, err := tx.Exec(ctx, `
INSERT INTO chunks (chunk_id, document_id, chunk_index, text, embedding)
VALUES ($1, $2, $3, $4, $5::vector)`,
			c.ChunkID, c.DocumentID, c.ChunkIndex, util.SanitizeText(c.Text), c.EmbeddingVector,
		)
		if err != nil {
			return fmt.Errorf("insert chunk %s: %w", c.ChunkID, err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit chunks tx: %w", err)
	}
	return nil
}

// ListChunks returns a document's chunks with decoded embeddings, in
// insertion order.
func (r *ChunkRepo) ListChunks(ctx context.Context, documentID string) ([]StoredChunk, error) {
	rows, err := r.db.Pool.Query(ctx, `
SELECT text, embedding::text
FROM chunks
WHERE document_id=$1
ORDER BY chunk_index ASC`, documentID)
	if err != nil {
		return nil, fmt.Errorf("list chunks: %w", err)
	}
	defer rows.Close()

	out := make([]StoredChunk, 0, 64)
	for rows.Next() {
		var content, literal string
		if err := rows.Scan(&content, &literal); err != nil {
			return nil, fmt.Errorf("scan chunk: %w", err)
		}
		emb, err := vector.FromLiteral(literal)
		if err != nil {
			return nil, fmt.Errorf("decode chunk embedding: %w", err)
		}
		out = append(out, StoredChunk{Content: content, Embedding: emb})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate chunks: %w", err)
	}
	return out, nil
}
