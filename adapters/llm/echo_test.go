package llm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEchoGenerator_AnswersLastUserLine(t *testing.T) {
	g := NewEchoGenerator()

	reply, err := g.Generate(context.Background(), "User: Hello!\nBot: Hi!\nUser: What is AI?\nBot:", 64)
	require.NoError(t, err)
	assert.Equal(t, `You said: "What is AI?". Tell me more!`, reply)
	assert.Equal(t, "echo", g.Model())
}

func TestEchoGenerator_EmptyPrompt(t *testing.T) {
	reply, err := NewEchoGenerator().Generate(context.Background(), "", 64)
	require.NoError(t, err)
	assert.NotEmpty(t, reply)
}

func TestEchoGenerator_RespectsTokenBudget(t *testing.T) {
	reply, err := NewEchoGenerator().Generate(context.Background(), "User: one two three four", 3)
	require.NoError(t, err)
	assert.Equal(t, `You said: "one`, reply)
}

func TestEchoGenerator_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewEchoGenerator().Generate(ctx, "User: hi", 10)
	assert.ErrorIs(t, err, context.Canceled)
}
