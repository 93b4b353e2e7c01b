package answer

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"manualqa/internal/providers"
	"manualqa/internal/util"
)

const systemInstruction = "You are a technical documentation assistant. Answer the user's question using only the provided manual context. If the context does not contain the answer, say so explicitly instead of guessing. Be concise and quote exact values (pressures, intervals, part numbers) when present."

const apology = "I'm sorry, I couldn't generate an answer for that question. Please try rephrasing it."

// Embedder produces the query vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Searcher retrieves the top-k chunk contents for a document.
type Searcher interface {
	Search(ctx context.Context, queryVec []float32, documentID string, k int) ([]string, error)
}

// Orchestrator grounds a completion call in retrieved manual chunks.
type Orchestrator struct {
	embedder Embedder
	searcher Searcher
	client   providers.CompletionClient
	model    string
	topK     int
	log      *slog.Logger
}

func NewOrchestrator(embedder Embedder, searcher Searcher, client providers.CompletionClient, model string, topK int, log *slog.Logger) *Orchestrator {
	if topK <= 0 {
		topK = 5
	}
	if log == nil {
		log = slog.Default()
	}
	return &Orchestrator{
		embedder: embedder,
		searcher: searcher,
		client:   client,
		model:    model,
		topK:     topK,
		log:      log,
	}
}

func (o *Orchestrator) Answer(ctx context.Context, query, documentID string) (string, error) {
	queryVec, err := o.embedder.Embed(ctx, query)
	if err != nil {
		return "", fmt.Errorf("embed query: %w", err)
	}
	contexts, err := o.searcher.Search(ctx, queryVec, documentID, o.topK)
	if err != nil {
		return "", fmt.Errorf("retrieve context: %w", err)
	}
	o.log.Debug("retrieved context", "document_id", documentID, "chunks", len(contexts))

	contextBlock := strings.Join(contexts, "\n\n")
	out, err := o.client.Complete(ctx, providers.CompletionRequest{
		Messages: []providers.Message{
			{Role: providers.RoleSystem, Content: systemInstruction + "\n\nContext:\n" + contextBlock},
			{Role: providers.RoleUser, Content: query},
		},
		Model:       o.model,
		Temperature: 0.2,
		MaxTokens:   1024,
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", util.ErrGenerationFailed, err)
	}
	if strings.TrimSpace(out) == "" {
		return apology, nil
	}
	return out, nil
}
