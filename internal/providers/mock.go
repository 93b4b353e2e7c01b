package providers

import (
	"context"
	"strings"
)

// MockClient returns deterministic output so the pipeline runs end to end
// without any external service.
type MockClient struct{}

func NewMockClient() *MockClient {
	return &MockClient{}
}

func (m *MockClient) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	_ = ctx
	var sys, user string
	for _, msg := range req.Messages {
		switch msg.Role {
		case RoleSystem:
			sys = msg.Content
		case RoleUser:
			user = msg.Content
		}
	}
	// Embedding-primary requests ask for a raw JSON array; returning prose
	// here deliberately exercises the deterministic fallback path.
	if strings.Contains(sys, "JSON array") {
		return "I cannot produce semantic vectors.", nil
	}
	if strings.TrimSpace(user) == "" {
		return "", nil
	}
	b := strings.Builder{}
	b.WriteString("Mock answer based on the provided manual excerpts")
	if strings.Contains(sys, "context") {
		b.WriteString(" (grounded)")
	}
	b.WriteString(".")
	return b.String(), nil
}
