package repositories

import "context"

// Generator abstracts the external pre-trained language model. It is the
// only call the chat flow makes across the model boundary.
type Generator interface {
	// Generate completes prompt with at most maxNewTokens of output
	Generate(ctx context.Context, prompt string, maxNewTokens int) (string, error)
	// Model names the model serving the completions
	Model() string
}
