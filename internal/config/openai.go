package config

import (
	"fmt"
	"os"
)

const (
	EnvOpenAIAPIKey         = "LECTERN_OPENAI_API_KEY"
	EnvOpenAIAPIKeyFallback = "OPENAI_API_KEY"
	EnvOpenAIChatModel      = "LECTERN_OPENAI_CHAT_MODEL"
	EnvOpenAIEmbeddingModel = "LECTERN_OPENAI_EMBEDDING_MODEL"
)

// OpenAIConfig holds settings for the OpenAI client used for embeddings,
// the routing judgment call, and answer synthesis. The API key comes from
// the environment only; it is never read from a config file.
type OpenAIConfig struct {
	ChatModel      string `toml:"chat_model"`
	EmbeddingModel string `toml:"embedding_model"`
	Dimensions     int    `toml:"dimensions"`

	apiKey string
}

// APIKey returns the key resolved during Finalize.
func (c *OpenAIConfig) APIKey() string {
	return c.apiKey
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *OpenAIConfig) Finalize() error {
	c.loadDefaults()
	c.loadEnv()
	return c.validate()
}

// Merge overwrites non-zero fields from overlay.
func (c *OpenAIConfig) Merge(overlay *OpenAIConfig) {
	if overlay.ChatModel != "" {
		c.ChatModel = overlay.ChatModel
	}
	if overlay.EmbeddingModel != "" {
		c.EmbeddingModel = overlay.EmbeddingModel
	}
	if overlay.Dimensions != 0 {
		c.Dimensions = overlay.Dimensions
	}
}

func (c *OpenAIConfig) loadDefaults() {
	if c.ChatModel == "" {
		c.ChatModel = "gpt-4o"
	}
	if c.EmbeddingModel == "" {
		c.EmbeddingModel = "text-embedding-3-small"
	}
	if c.Dimensions == 0 {
		c.Dimensions = 1536
	}
}

func (c *OpenAIConfig) loadEnv() {
	if v := os.Getenv(EnvOpenAIChatModel); v != "" {
		c.ChatModel = v
	}
	if v := os.Getenv(EnvOpenAIEmbeddingModel); v != "" {
		c.EmbeddingModel = v
	}

	c.apiKey = os.Getenv(EnvOpenAIAPIKey)
	if c.apiKey == "" {
		c.apiKey = os.Getenv(EnvOpenAIAPIKeyFallback)
	}
}

func (c *OpenAIConfig) validate() error {
	if c.apiKey == "" {
		return fmt.Errorf("%s not set", EnvOpenAIAPIKey)
	}
	if c.Dimensions < 1 {
		return fmt.Errorf("invalid dimensions: %d", c.Dimensions)
	}
	return nil
}
