package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"
)

// Provider names accepted by CHAT_PROVIDER
const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
	ProviderEcho   = "echo"
)

// Config holds every runtime setting of the server
type Config struct {
	Port string `yaml:"port"`

	Provider      string `yaml:"provider"`
	Model         string `yaml:"model"`
	FallbackModel string `yaml:"fallback_model"`
	GeminiAPIKey  string `yaml:"gemini_api_key"`
	OpenAIAPIKey  string `yaml:"openai_api_key"`
	OpenAIBaseURL string `yaml:"openai_base_url"`

	MaxNewTokens    int           `yaml:"max_new_tokens"`
	HistoryTurns    int           `yaml:"history_turns"`
	GenerateTimeout time.Duration `yaml:"-"`
	SessionIdleTTL  time.Duration `yaml:"-"`
	SystemPrompt    string        `yaml:"system_prompt"`

	// Retrieval is on when a corpus is configured, inline or by file
	Corpus         []string `yaml:"corpus"`
	CorpusFile     string   `yaml:"corpus_file"`
	EmbeddingModel string   `yaml:"embedding_model"`
	RetrievalTopK  int      `yaml:"retrieval_top_k"`

	JWTSecret string        `yaml:"jwt_secret"`
	TokenTTL  time.Duration `yaml:"-"`

	Title       string   `yaml:"title"`
	Description string   `yaml:"description"`
	Examples    []string `yaml:"examples"`

	// Durations are spelled as strings in the YAML file ("60s", "30m")
	RawGenerateTimeout string `yaml:"generate_timeout"`
	RawSessionIdleTTL  string `yaml:"session_idle_ttl"`
	RawTokenTTL        string `yaml:"token_ttl"`
}

// Default returns the configuration used when nothing is overridden
func Default() Config {
	return Config{
		Port:            "8080",
		Provider:        ProviderGemini,
		Model:           "gemini-2.0-flash",
		FallbackModel:   "gemini-2.0-flash-lite",
		MaxNewTokens:    256,
		HistoryTurns:    10,
		GenerateTimeout: 60 * time.Second,
		SessionIdleTTL:  30 * time.Minute,
		TokenTTL:        24 * time.Hour,
		RetrievalTopK:   2,
		Title:           "Chatbot",
		Description:     "Ask me anything! I'm powered by a pre-trained conversational model.",
		Examples:        []string{"Hello!", "What is AI?", "Tell me a joke."},
	}
}

// Load builds the configuration from defaults, the optional YAML file named
// by CHAT_CONFIG_FILE, and the environment (a .env file is loaded first when
// present). Later sources win.
func Load() (Config, error) {
	// .env is optional; a missing file is not an error
	_ = godotenv.Load()

	cfg := Default()

	if path := os.Getenv("CHAT_CONFIG_FILE"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return Config{}, err
		}
	}

	if err := cfg.applyEnv(os.Getenv); err != nil {
		return Config{}, err
	}

	cfg.resolveProvider()

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	return c.parseYAML(data)
}

func (c *Config) parseYAML(data []byte) error {
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	durations := []struct {
		raw  string
		dst  *time.Duration
		name string
	}{
		{c.RawGenerateTimeout, &c.GenerateTimeout, "generate_timeout"},
		{c.RawSessionIdleTTL, &c.SessionIdleTTL, "session_idle_ttl"},
		{c.RawTokenTTL, &c.TokenTTL, "token_ttl"},
	}
	for _, d := range durations {
		if d.raw == "" {
			continue
		}
		v, err := time.ParseDuration(d.raw)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", d.name, d.raw, err)
		}
		*d.dst = v
	}
	return nil
}

func (c *Config) applyEnv(getenv func(string) string) error {
	setString := func(key string, dst *string) {
		if v := getenv(key); v != "" {
			*dst = v
		}
	}
	setInt := func(key string, dst *int) error {
		v := getenv(key)
		if v == "" {
			return nil
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", key, v, err)
		}
		*dst = n
		return nil
	}
	setDuration := func(key string, dst *time.Duration) error {
		v := getenv(key)
		if v == "" {
			return nil
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", key, v, err)
		}
		*dst = d
		return nil
	}

	setString("PORT", &c.Port)
	setString("CHAT_PROVIDER", &c.Provider)
	setString("CHAT_MODEL", &c.Model)
	setString("CHAT_FALLBACK_MODEL", &c.FallbackModel)
	setString("GEMINI_API_KEY", &c.GeminiAPIKey)
	setString("OPENAI_API_KEY", &c.OpenAIAPIKey)
	setString("OPENAI_BASE_URL", &c.OpenAIBaseURL)
	setString("CHAT_SYSTEM_PROMPT", &c.SystemPrompt)
	setString("CHAT_CORPUS_FILE", &c.CorpusFile)
	setString("CHAT_EMBEDDING_MODEL", &c.EmbeddingModel)
	setString("JWT_SECRET", &c.JWTSecret)
	setString("CHAT_TITLE", &c.Title)
	setString("CHAT_DESCRIPTION", &c.Description)

	if v := getenv("CHAT_EXAMPLES"); v != "" {
		var examples []string
		for _, e := range strings.Split(v, "|") {
			if e = strings.TrimSpace(e); e != "" {
				examples = append(examples, e)
			}
		}
		c.Examples = examples
	}

	if err := setInt("CHAT_MAX_NEW_TOKENS", &c.MaxNewTokens); err != nil {
		return err
	}
	if err := setInt("CHAT_HISTORY_TURNS", &c.HistoryTurns); err != nil {
		return err
	}
	if err := setInt("CHAT_RETRIEVAL_TOP_K", &c.RetrievalTopK); err != nil {
		return err
	}
	if err := setDuration("CHAT_GENERATE_TIMEOUT", &c.GenerateTimeout); err != nil {
		return err
	}
	if err := setDuration("CHAT_SESSION_IDLE_TTL", &c.SessionIdleTTL); err != nil {
		return err
	}
	return setDuration("CHAT_TOKEN_TTL", &c.TokenTTL)
}

// resolveProvider falls back to the offline echo provider when the selected
// hosted provider has no credentials. An OpenAI-compatible server reached
// through a custom base URL may not need a key.
func (c *Config) resolveProvider() {
	c.Provider = strings.ToLower(strings.TrimSpace(c.Provider))
	switch c.Provider {
	case ProviderGemini:
		if c.GeminiAPIKey == "" {
			c.Provider = ProviderEcho
		}
	case ProviderOpenAI:
		if c.OpenAIAPIKey == "" && c.OpenAIBaseURL == "" {
			c.Provider = ProviderEcho
		}
	}

	if c.EmbeddingModel == "" {
		c.EmbeddingModel = defaultEmbeddingModels[c.Provider]
	}
}

var defaultEmbeddingModels = map[string]string{
	ProviderGemini: "text-embedding-004",
	ProviderOpenAI: "text-embedding-3-small",
}

// RetrievalEnabled reports whether prompts are grounded in a document corpus
func (c Config) RetrievalEnabled() bool {
	return len(c.Corpus) > 0 || c.CorpusFile != ""
}

// Validate checks the configuration for values the server cannot run with
func (c Config) Validate() error {
	switch c.Provider {
	case ProviderGemini, ProviderOpenAI, ProviderEcho:
	default:
		return fmt.Errorf("unknown provider %q", c.Provider)
	}
	if c.Port == "" {
		return fmt.Errorf("port is required")
	}
	if c.Provider != ProviderEcho && c.Model == "" {
		return fmt.Errorf("model is required for provider %s", c.Provider)
	}
	if c.MaxNewTokens <= 0 {
		return fmt.Errorf("max new tokens must be positive, got %d", c.MaxNewTokens)
	}
	if c.HistoryTurns <= 0 {
		return fmt.Errorf("history turns must be positive, got %d", c.HistoryTurns)
	}
	if c.GenerateTimeout <= 0 {
		return fmt.Errorf("generate timeout must be positive, got %s", c.GenerateTimeout)
	}
	if c.SessionIdleTTL <= 0 {
		return fmt.Errorf("session idle ttl must be positive, got %s", c.SessionIdleTTL)
	}
	if c.TokenTTL <= 0 {
		return fmt.Errorf("token ttl must be positive, got %s", c.TokenTTL)
	}
	if c.RetrievalEnabled() {
		if c.RetrievalTopK <= 0 {
			return fmt.Errorf("retrieval top k must be positive, got %d", c.RetrievalTopK)
		}
		if c.Provider != ProviderEcho && c.EmbeddingModel == "" {
			return fmt.Errorf("embedding model is required for provider %s", c.Provider)
		}
	}
	return nil
}
