package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/satriahrh/chatwidget/domain/repositories"
)

var _ repositories.Generator = (*EchoGenerator)(nil)

// EchoGenerator is an offline stand-in for a real model, used in development
// when no provider credentials are configured. It answers the last user line
// of the prompt.
type EchoGenerator struct{}

// NewEchoGenerator creates a new echo generator
func NewEchoGenerator() *EchoGenerator {
	return &EchoGenerator{}
}

// Model implements repositories.Generator
func (g *EchoGenerator) Model() string {
	return "echo"
}

// Generate implements repositories.Generator
func (g *EchoGenerator) Generate(ctx context.Context, prompt string, maxNewTokens int) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	last := lastUserLine(prompt)
	if last == "" {
		return truncateWords("Hello! What would you like to talk about today?", maxNewTokens), nil
	}
	return truncateWords(fmt.Sprintf("You said: %q. Tell me more!", last), maxNewTokens), nil
}

func lastUserLine(prompt string) string {
	lines := strings.Split(prompt, "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if text, ok := strings.CutPrefix(lines[i], "User: "); ok {
			return strings.TrimSpace(text)
		}
	}
	return ""
}

// truncateWords approximates a token budget with whitespace-separated words
func truncateWords(s string, limit int) string {
	if limit <= 0 {
		return s
	}
	words := strings.Fields(s)
	if len(words) <= limit {
		return s
	}
	return strings.Join(words[:limit], " ")
}
