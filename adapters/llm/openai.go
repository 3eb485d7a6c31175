package llm

import (
	"context"
	"fmt"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/satriahrh/chatwidget/domain"
	"github.com/satriahrh/chatwidget/domain/repositories"
)

var _ repositories.Generator = (*OpenAIGenerator)(nil)

// OpenAIConfig configures the OpenAI-compatible generator
type OpenAIConfig struct {
	APIKey        string
	BaseURL       string
	Model         string
	FallbackModel string
	SystemPrompt  string
}

// OpenAIGenerator talks to any server implementing the OpenAI chat
// completions API, including locally hosted models.
type OpenAIGenerator struct {
	client       *openai.Client
	logger       *zap.Logger
	model        string
	systemPrompt string
}

// NewOpenAIGenerator creates the client and selects the first available model
func NewOpenAIGenerator(ctx context.Context, config OpenAIConfig, logger *zap.Logger) (*OpenAIGenerator, error) {
	clientConfig := openai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		clientConfig.BaseURL = config.BaseURL
	}
	client := openai.NewClientWithConfig(clientConfig)

	model, err := SelectModel(ctx, logger, func(ctx context.Context, name string) error {
		_, err := client.GetModel(ctx, name)
		return err
	}, config.Model, config.FallbackModel)
	if err != nil {
		return nil, err
	}

	return &OpenAIGenerator{
		client:       client,
		logger:       logger,
		model:        model,
		systemPrompt: config.SystemPrompt,
	}, nil
}

// Model implements repositories.Generator
func (g *OpenAIGenerator) Model() string {
	return g.model
}

// Generate implements repositories.Generator
func (g *OpenAIGenerator) Generate(ctx context.Context, prompt string, maxNewTokens int) (string, error) {
	messages := make([]openai.ChatCompletionMessage, 0, 2)
	if g.systemPrompt != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: g.systemPrompt,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: prompt,
	})

	response, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:     g.model,
		Messages:  messages,
		MaxTokens: maxNewTokens,
	})
	if err != nil {
		g.logger.Error("Failed to create chat completion",
			zap.String("model", g.model),
			zap.Error(err))
		return "", domain.NewExternalServiceError("generate", g.model, err)
	}

	if len(response.Choices) == 0 {
		return "", domain.NewExternalServiceError("generate", g.model, fmt.Errorf("no response choices returned: %w", domain.ErrEmptyReply))
	}

	return response.Choices[0].Message.Content, nil
}
