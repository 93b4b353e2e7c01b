package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"manualqa/internal/chunker"
	"manualqa/internal/config"
	"manualqa/internal/extract"
	"manualqa/internal/models"
	"manualqa/internal/storage"
	"manualqa/internal/util"
	"manualqa/internal/vector"
)

// DocumentStore is the write path for document records.
type DocumentStore interface {
	CreateDocument(ctx context.Context, userID, filename string) (models.Document, error)
}

// ChunkStore is the write path for chunk records.
type ChunkStore interface {
	InsertChunks(ctx context.Context, chunks []storage.ChunkRecord) error
}

// Extractor converts a source file into text, reporting recognition progress.
type Extractor interface {
	ExtractWithProgress(ctx context.Context, file extract.SourceFile, forceRecognition bool, onRecognize func(done, total int)) (string, error)
}

// Embedder produces fixed-dimension vectors for chunk text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Controller sequences extraction, chunking, embedding and persistence for a
// single upload. One call is one attempt; failed stages are not retried.
type Controller struct {
	docs         DocumentStore
	chunks       ChunkStore
	extractor    Extractor
	embedder     Embedder
	chunkSize    int
	chunkOverlap int
	workers      int
	log          *slog.Logger
}

func NewController(docs DocumentStore, chunks ChunkStore, extractor Extractor, embedder Embedder, cfg config.Config, log *slog.Logger) *Controller {
	if log == nil {
		log = slog.Default()
	}
	workers := cfg.EmbedWorkers
	if workers <= 0 {
		workers = 4
	}
	return &Controller{
		docs:         docs,
		chunks:       chunks,
		extractor:    extractor,
		embedder:     embedder,
		chunkSize:    cfg.ChunkSize,
		chunkOverlap: cfg.ChunkOverlap,
		workers:      workers,
		log:          log,
	}
}

// Ingest runs the full pipeline for one file. No document record is created
// when extraction fails; a failure after the record exists leaves the record
// and any inserted chunks in place.
func (c *Controller) Ingest(ctx context.Context, file extract.SourceFile, userID string, sink ProgressSink) (models.Document, error) {
	emit := newEmitter(sink)

	emit(StageStarted, 0, "upload received")
	if err := ctx.Err(); err != nil {
		return models.Document{}, fmt.Errorf("ingest: %w: %v", util.ErrCancelled, err)
	}

	emit(StageExtracting, 10, "extracting text")
	recognized := false
	text, err := c.extractor.ExtractWithProgress(ctx, file, false, func(done, total int) {
		if total <= 0 {
			total = 1
		}
		recognized = true
		emit(StageRecognizing, 40+40*done/total, fmt.Sprintf("recognizing page %d of %d", done, total))
	})
	if err != nil {
		return models.Document{}, err
	}
	if recognized {
		emit(StageRecognizing, 80, "text extracted")
	} else {
		emit(StageExtracting, 40, "text extracted")
	}

	doc, err := c.docs.CreateDocument(ctx, userID, file.Name)
	if err != nil {
		return models.Document{}, fmt.Errorf("register document: %w", err)
	}
	emit(StageRecordCreated, 85, "document registered")
	c.log.Info("document registered", "document_id", doc.DocumentID, "user_id", userID, "filename", file.Name)

	emit(StageChunking, 87, "chunking text")
	parts := chunker.Chunk(text, c.chunkSize, c.chunkOverlap)
	if len(parts) == 0 {
		return doc, fmt.Errorf("chunk %s: %w", doc.DocumentID, util.ErrNoReadableText)
	}

	emit(StageEmbedding, 90, fmt.Sprintf("embedding %d chunks", len(parts)))
	vectors, err := c.embedAll(ctx, parts, func(done int) {
		emit(StageEmbedding, 90+8*done/len(parts), fmt.Sprintf("embedded %d of %d chunks", done, len(parts)))
	})
	if err != nil {
		return doc, err
	}

	emit(StagePersisting, 98, "persisting chunks")
	records := make([]storage.ChunkRecord, 0, len(parts))
	for i, part := range parts {
		chunkHash := util.SHA256Hex([]byte(part))
		records = append(records, storage.ChunkRecord{
			ChunkID:         util.SHA256Hex([]byte(fmt.Sprintf("%s:%d:%s", doc.DocumentID, i, chunkHash))),
			DocumentID:      doc.DocumentID,
			ChunkIndex:      i,
			Text:            part,
			EmbeddingVector: vector.ToLiteral(vectors[i]),
		})
	}
	if err := c.chunks.InsertChunks(ctx, records); err != nil {
		return doc, fmt.Errorf("persist chunks: %w", err)
	}

	emit(StagePersisting, 100, "complete")
	c.log.Info("ingestion complete", "document_id", doc.DocumentID, "chunks", len(parts))
	return doc, nil
}

// embedAll embeds chunks concurrently under a worker bound, preserving chunk
// order in the result. Progress is reported from the count of completed
// embeddings so it stays monotone regardless of completion order.
func (c *Controller) embedAll(ctx context.Context, parts []string, onDone func(done int)) ([][]float32, error) {
	vectors := make([][]float32, len(parts))
	var mu sync.Mutex
	completed := 0

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.workers)
	for i, part := range parts {
		g.Go(func() error {
			vec, err := c.embedder.Embed(gctx, part)
			if err != nil {
				return fmt.Errorf("embed chunk %d: %w", i, err)
			}
			vectors[i] = vec
			mu.Lock()
			completed++
			done := completed
			mu.Unlock()
			onDone(done)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		if !errors.Is(err, util.ErrCancelled) && ctx.Err() != nil {
			return nil, fmt.Errorf("embedding: %w: %v", util.ErrCancelled, ctx.Err())
		}
		return nil, err
	}
	return vectors, nil
}

// newEmitter returns a thread-safe emit function that keeps percents
// monotonically non-decreasing and swallows sink panics.
func newEmitter(sink ProgressSink) func(stage Stage, percent int, msg string) {
	var mu sync.Mutex
	last := 0
	return func(stage Stage, percent int, msg string) {
		if sink == nil {
			return
		}
		// The lock is held across the sink call so concurrent embedding
		// workers cannot deliver percents out of order.
		mu.Lock()
		defer mu.Unlock()
		if percent < last {
			percent = last
		}
		last = percent

		defer func() {
			// sink panics are the sink's problem, never the pipeline's
			_ = recover()
		}()
		sink.OnProgress(ProgressEvent{Stage: stage, Percent: percent, Message: msg})
	}
}
