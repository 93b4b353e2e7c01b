package providers

import "context"

const (
	RoleSystem = "system"
	RoleUser   = "user"
)

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// CompletionRequest enumerates every field the completion service recognizes.
type CompletionRequest struct {
	Messages    []Message `json:"messages"`
	Model       string    `json:"model"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens"`
}

// CompletionClient is the single outbound surface to the semantic completion
// service. Both the embedding primary path and answer generation go through
// it; neither retries a failed call.
type CompletionClient interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}
