// Package llm adapts external language model providers to the Generator port.
package llm

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/satriahrh/chatwidget/domain/repositories"
	"github.com/satriahrh/chatwidget/internal/config"
)

// NewGenerator builds the Generator for the configured provider. Model
// loading happens here, so an unavailable model surfaces at startup.
func NewGenerator(ctx context.Context, cfg config.Config, logger *zap.Logger) (repositories.Generator, error) {
	switch cfg.Provider {
	case config.ProviderGemini:
		return NewGeminiGenerator(ctx, GeminiConfig{
			APIKey:        cfg.GeminiAPIKey,
			Model:         cfg.Model,
			FallbackModel: cfg.FallbackModel,
			SystemPrompt:  cfg.SystemPrompt,
		}, logger)
	case config.ProviderOpenAI:
		return NewOpenAIGenerator(ctx, OpenAIConfig{
			APIKey:        cfg.OpenAIAPIKey,
			BaseURL:       cfg.OpenAIBaseURL,
			Model:         cfg.Model,
			FallbackModel: cfg.FallbackModel,
			SystemPrompt:  cfg.SystemPrompt,
		}, logger)
	case config.ProviderEcho:
		logger.Warn("No model provider credentials configured, using the echo generator")
		return NewEchoGenerator(), nil
	default:
		return nil, fmt.Errorf("unknown provider %q", cfg.Provider)
	}
}
