package llm

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/satriahrh/chatwidget/domain"
	"github.com/satriahrh/chatwidget/domain/repositories"
)

var _ repositories.Generator = (*GeminiGenerator)(nil)

// GeminiConfig configures the Gemini generator
type GeminiConfig struct {
	APIKey        string
	Model         string
	FallbackModel string
	SystemPrompt  string
	// BaseURL overrides the API endpoint; empty uses the public one
	BaseURL string
}

// GeminiGenerator implements the Generator interface using Google's Gemini API
type GeminiGenerator struct {
	client       *genai.Client
	logger       *zap.Logger
	model        string
	systemPrompt string
}

// NewGeminiGenerator creates a Gemini client and selects the first available
// model among the configured primary and fallback models.
func NewGeminiGenerator(ctx context.Context, config GeminiConfig, logger *zap.Logger) (*GeminiGenerator, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is required")
	}

	clientConfig := &genai.ClientConfig{
		APIKey:  config.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if config.BaseURL != "" {
		clientConfig.HTTPOptions = genai.HTTPOptions{BaseURL: config.BaseURL}
	}

	client, err := genai.NewClient(ctx, clientConfig)
	if err != nil {
		return nil, domain.NewExternalServiceError("load", config.Model, fmt.Errorf("failed to create Gemini client: %w", err))
	}

	model, err := SelectModel(ctx, logger, func(ctx context.Context, name string) error {
		_, err := client.Models.Get(ctx, name, nil)
		return err
	}, config.Model, config.FallbackModel)
	if err != nil {
		return nil, err
	}

	return &GeminiGenerator{
		client:       client,
		logger:       logger,
		model:        model,
		systemPrompt: config.SystemPrompt,
	}, nil
}

// Model implements repositories.Generator
func (g *GeminiGenerator) Model() string {
	return g.model
}

// Generate implements repositories.Generator. It makes exactly one call; a
// failure is reported, never retried.
func (g *GeminiGenerator) Generate(ctx context.Context, prompt string, maxNewTokens int) (string, error) {
	config := &genai.GenerateContentConfig{
		MaxOutputTokens: int32(maxNewTokens),
	}
	if g.systemPrompt != "" {
		config.SystemInstruction = genai.NewContentFromText(g.systemPrompt, genai.RoleUser)
	}

	contents := []*genai.Content{genai.NewContentFromText(prompt, genai.RoleUser)}

	response, err := g.client.Models.GenerateContent(ctx, g.model, contents, config)
	if err != nil {
		g.logger.Error("Failed to generate content",
			zap.String("model", g.model),
			zap.Error(err))
		return "", domain.NewExternalServiceError("generate", g.model, err)
	}

	if len(response.Candidates) == 0 || response.Candidates[0].Content == nil {
		fields := []zap.Field{zap.String("model", g.model)}
		if response.PromptFeedback != nil {
			fields = append(fields, zap.String("block_reason", string(response.PromptFeedback.BlockReason)))
		}
		if len(response.Candidates) > 0 {
			fields = append(fields, zap.String("finish_reason", string(response.Candidates[0].FinishReason)))
		}
		g.logger.Warn("No candidates generated", fields...)
		return "", domain.NewExternalServiceError("generate", g.model, domain.ErrEmptyReply)
	}

	// Extract the answer text; thought parts are the model's reasoning
	var b strings.Builder
	for _, part := range response.Candidates[0].Content.Parts {
		if part == nil || part.Thought || part.Text == "" {
			continue
		}
		b.WriteString(part.Text)
	}

	g.logger.Debug("Generated reply",
		zap.String("model", g.model),
		zap.Int("prompt_length", len(prompt)),
		zap.Int("reply_length", b.Len()))

	return b.String(), nil
}
