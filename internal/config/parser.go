package config

import (
	"fmt"
	"os"
	"time"
)

const (
	EnvParserAPIKey  = "LECTERN_PARSER_API_KEY"
	EnvParserBaseURL = "LECTERN_PARSER_BASE_URL"
)

// ParserConfig holds settings for the document parsing service.
type ParserConfig struct {
	BaseURL      string        `toml:"base_url"`
	PollInterval time.Duration `toml:"poll_interval"`
	Timeout      time.Duration `toml:"timeout"`

	apiKey string
}

func (c *ParserConfig) APIKey() string {
	return c.apiKey
}

func (c *ParserConfig) Finalize() error {
	c.loadDefaults()
	c.loadEnv()
	return c.validate()
}

func (c *ParserConfig) Merge(overlay *ParserConfig) {
	if overlay.BaseURL != "" {
		c.BaseURL = overlay.BaseURL
	}
	if overlay.PollInterval != 0 {
		c.PollInterval = overlay.PollInterval
	}
	if overlay.Timeout != 0 {
		c.Timeout = overlay.Timeout
	}
}

func (c *ParserConfig) loadDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = "https://api.cloud.llamaindex.ai"
	}
	if c.PollInterval == 0 {
		c.PollInterval = 2 * time.Second
	}
	if c.Timeout == 0 {
		c.Timeout = 5 * time.Minute
	}
}

func (c *ParserConfig) loadEnv() {
	if v := os.Getenv(EnvParserBaseURL); v != "" {
		c.BaseURL = v
	}
	c.apiKey = os.Getenv(EnvParserAPIKey)
}

func (c *ParserConfig) validate() error {
	if c.apiKey == "" {
		return fmt.Errorf("%s not set", EnvParserAPIKey)
	}
	if c.PollInterval < 100*time.Millisecond {
		return fmt.Errorf("poll_interval too small: %s", c.PollInterval)
	}
	if c.Timeout <= c.PollInterval {
		return fmt.Errorf("timeout %s must exceed poll_interval %s", c.Timeout, c.PollInterval)
	}
	return nil
}
