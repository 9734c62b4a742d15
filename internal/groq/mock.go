package groq

import (
	"context"
	"fmt"
	"strings"
)

// MockClient returns deterministic replies when no API key is configured.
type MockClient struct{}

func NewMockClient() *MockClient { return &MockClient{} }

func (c *MockClient) Complete(ctx context.Context, prompt, model string) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	default:
	}
	return buildMockReply(prompt, model), nil
}

// buildMockReply echoes the live question, which follows the last "Human: ".
func buildMockReply(prompt, model string) string {
	question := prompt
	if i := strings.LastIndex(prompt, "Human: "); i >= 0 {
		question = prompt[i+len("Human: "):]
	}
	question = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(question), "AI:"))
	if question == "" {
		question = "nothing"
	}
	if strings.TrimSpace(model) == "" {
		return fmt.Sprintf("You asked: %s", question)
	}
	return fmt.Sprintf("[%s] You asked: %s", model, question)
}
