package providers

import (
	"fmt"
	"os"
	"strings"

	"manualqa/internal/config"
)

// NewClient builds the configured completion client. The mock client is the
// default so a fresh checkout works without keys or local model servers.
func NewClient(cfg config.Config) (CompletionClient, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.CompletionProvider)) {
	case "", "mock":
		return NewMockClient(), nil
	case "openai":
		return NewOpenAIClient(cfg.CompletionBaseURL, os.Getenv("OPENAI_API_KEY")), nil
	case "ollama":
		return NewOllamaClient(os.Getenv("MANUALQA_OLLAMA_BASE_URL")), nil
	default:
		return nil, fmt.Errorf("unsupported completion provider: %s", cfg.CompletionProvider)
	}
}
