package embedding

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"manualqa/internal/providers"
	"manualqa/internal/util"
)

// Service produces fixed-dimension embeddings. The primary path asks the
// completion service for a semantic vector; any primary failure falls through
// to the deterministic local path and is never surfaced to the caller.
type Service struct {
	client providers.CompletionClient
	model  string
	dim    int
	log    *slog.Logger
}

func NewService(client providers.CompletionClient, model string, dim int, log *slog.Logger) *Service {
	if dim <= 0 {
		dim = 1536
	}
	if log == nil {
		log = slog.Default()
	}
	return &Service{client: client, model: model, dim: dim, log: log}
}

func (s *Service) Dimension() int { return s.dim }

func (s *Service) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("embed: %w: %v", util.ErrCancelled, err)
	}
	if s.client != nil {
		if vec, err := s.embedSemantic(ctx, text); err == nil {
			return vec, nil
		} else if ctx.Err() == nil {
			s.log.Debug("semantic embedding unavailable, using fallback", "error", err)
		}
	}
	return Fallback(text, s.dim), nil
}

func (s *Service) embedSemantic(ctx context.Context, text string) ([]float32, error) {
	sys := fmt.Sprintf(
		"You convert text into semantic vectors. Respond with only a JSON array of exactly %d floating point numbers between -1 and 1 representing the meaning of the user's text. No prose, no code fences.",
		s.dim)
	out, err := s.client.Complete(ctx, providers.CompletionRequest{
		Messages: []providers.Message{
			{Role: providers.RoleSystem, Content: sys},
			{Role: providers.RoleUser, Content: text},
		},
		Model:       s.model,
		Temperature: 0,
	})
	if err != nil {
		return nil, err
	}
	return parseVectorJSON(out, s.dim)
}

// parseVectorJSON extracts a JSON array of floats from a completion response,
// tolerating surrounding prose or code fences.
func parseVectorJSON(out string, dim int) ([]float32, error) {
	start := strings.Index(out, "[")
	end := strings.LastIndex(out, "]")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("no JSON array in response")
	}
	var raw []float64
	if err := json.Unmarshal([]byte(out[start:end+1]), &raw); err != nil {
		return nil, fmt.Errorf("decode vector array: %w", err)
	}
	if len(raw) != dim {
		return nil, fmt.Errorf("vector length %d, want %d", len(raw), dim)
	}
	vec := make([]float32, dim)
	for i, f := range raw {
		vec[i] = float32(f)
	}
	return vec, nil
}
