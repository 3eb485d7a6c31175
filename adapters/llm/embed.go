package llm

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"strings"
	"unicode"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/satriahrh/chatwidget/domain"
	"github.com/satriahrh/chatwidget/domain/repositories"
	"github.com/satriahrh/chatwidget/internal/config"
)

var (
	_ repositories.Embedder = (*GeminiEmbedder)(nil)
	_ repositories.Embedder = (*OpenAIEmbedder)(nil)
	_ repositories.Embedder = (*HashEmbedder)(nil)
)

// geminiEmbedBatch is the most texts the Gemini API embeds in one request
const geminiEmbedBatch = 100

// NewEmbedder builds the Embedder matching the configured provider
func NewEmbedder(ctx context.Context, cfg config.Config, logger *zap.Logger) (repositories.Embedder, error) {
	switch cfg.Provider {
	case config.ProviderGemini:
		return NewGeminiEmbedder(ctx, GeminiConfig{
			APIKey: cfg.GeminiAPIKey,
			Model:  cfg.EmbeddingModel,
		}, logger)
	case config.ProviderOpenAI:
		return NewOpenAIEmbedder(OpenAIConfig{
			APIKey:  cfg.OpenAIAPIKey,
			BaseURL: cfg.OpenAIBaseURL,
			Model:   cfg.EmbeddingModel,
		}, logger), nil
	case config.ProviderEcho:
		return NewHashEmbedder(hashEmbedderDims), nil
	default:
		return nil, fmt.Errorf("unknown provider %q", cfg.Provider)
	}
}

// GeminiEmbedder embeds texts with a Gemini embedding model
type GeminiEmbedder struct {
	client *genai.Client
	model  string
	logger *zap.Logger
}

// NewGeminiEmbedder creates a Gemini client for embeddings. Only APIKey,
// Model and BaseURL of config are used.
func NewGeminiEmbedder(ctx context.Context, config GeminiConfig, logger *zap.Logger) (*GeminiEmbedder, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is required")
	}
	if config.Model == "" {
		return nil, fmt.Errorf("embedding model is required")
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

	return &GeminiEmbedder{client: client, model: config.Model, logger: logger}, nil
}

// Model implements repositories.Embedder
func (e *GeminiEmbedder) Model() string {
	return e.model
}

// Embed implements repositories.Embedder
func (e *GeminiEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += geminiEmbedBatch {
		end := min(start+geminiEmbedBatch, len(texts))

		contents := make([]*genai.Content, 0, end-start)
		for _, text := range texts[start:end] {
			contents = append(contents, genai.NewContentFromText(text, genai.RoleUser))
		}

		response, err := e.client.Models.EmbedContent(ctx, e.model, contents, nil)
		if err != nil {
			e.logger.Error("Failed to embed content",
				zap.String("model", e.model),
				zap.Int("texts", end-start),
				zap.Error(err))
			return nil, domain.NewExternalServiceError("embed", e.model, err)
		}
		if len(response.Embeddings) != end-start {
			return nil, domain.NewExternalServiceError("embed", e.model,
				fmt.Errorf("expected %d embeddings, got %d", end-start, len(response.Embeddings)))
		}
		for _, embedding := range response.Embeddings {
			if embedding == nil {
				return nil, domain.NewExternalServiceError("embed", e.model, fmt.Errorf("missing embedding"))
			}
			vectors = append(vectors, embedding.Values)
		}
	}
	return vectors, nil
}

// OpenAIEmbedder embeds texts through an OpenAI-compatible embeddings API
type OpenAIEmbedder struct {
	client *openai.Client
	model  string
	logger *zap.Logger
}

// NewOpenAIEmbedder creates the embeddings client. Only APIKey, BaseURL and
// Model of config are used.
func NewOpenAIEmbedder(config OpenAIConfig, logger *zap.Logger) *OpenAIEmbedder {
	clientConfig := openai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		clientConfig.BaseURL = config.BaseURL
	}
	return &OpenAIEmbedder{
		client: openai.NewClientWithConfig(clientConfig),
		model:  config.Model,
		logger: logger,
	}
}

// Model implements repositories.Embedder
func (e *OpenAIEmbedder) Model() string {
	return e.model
}

// Embed implements repositories.Embedder
func (e *OpenAIEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	response, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: texts,
		Model: openai.EmbeddingModel(e.model),
	})
	if err != nil {
		e.logger.Error("Failed to create embeddings",
			zap.String("model", e.model),
			zap.Int("texts", len(texts)),
			zap.Error(err))
		return nil, domain.NewExternalServiceError("embed", e.model, err)
	}
	if len(response.Data) != len(texts) {
		return nil, domain.NewExternalServiceError("embed", e.model,
			fmt.Errorf("expected %d embeddings, got %d", len(texts), len(response.Data)))
	}

	// results carry their input index and are not guaranteed to be ordered
	vectors := make([][]float32, len(texts))
	for _, item := range response.Data {
		if item.Index < 0 || item.Index >= len(texts) {
			return nil, domain.NewExternalServiceError("embed", e.model, fmt.Errorf("embedding index %d out of range", item.Index))
		}
		vectors[item.Index] = item.Embedding
	}
	return vectors, nil
}

const hashEmbedderDims = 512

var stopWords = map[string]bool{
	"a": true, "an": true, "and": true, "are": true, "as": true, "at": true,
	"be": true, "by": true, "can": true, "do": true, "does": true, "for": true,
	"from": true, "how": true, "i": true, "in": true, "is": true, "it": true,
	"me": true, "of": true, "on": true, "or": true, "the": true, "to": true,
	"what": true, "which": true, "with": true, "you": true,
}

// HashEmbedder is an offline bag-of-words embedder: every word is hashed
// into one of dims buckets and the counts are normalized. It pairs with the
// echo generator so retrieval works without a provider.
type HashEmbedder struct {
	dims int
}

// NewHashEmbedder creates a hashing embedder with the given vector size
func NewHashEmbedder(dims int) *HashEmbedder {
	if dims < 1 {
		dims = hashEmbedderDims
	}
	return &HashEmbedder{dims: dims}
}

// Model implements repositories.Embedder
func (e *HashEmbedder) Model() string {
	return "hash"
}

// Embed implements repositories.Embedder
func (e *HashEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vector := make([]float32, e.dims)
		words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r)
		})
		for _, word := range words {
			if stopWords[word] {
				continue
			}
			h := fnv.New32a()
			_, _ = h.Write([]byte(word))
			vector[h.Sum32()%uint32(e.dims)]++
		}
		normalize(vector)
		vectors[i] = vector
	}
	return vectors, nil
}

func normalize(v []float32) {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return
	}
	norm := float32(math.Sqrt(sum))
	for i := range v {
		v[i] /= norm
	}
}
