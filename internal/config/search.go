package config

import (
	"fmt"
	"os"
	"time"
)

const (
	EnvSearchAPIKey  = "LECTERN_SEARCH_API_KEY"
	EnvSearchBaseURL = "LECTERN_SEARCH_BASE_URL"
)

// SearchConfig holds settings for the web search branch.
type SearchConfig struct {
	BaseURL    string        `toml:"base_url"`
	MaxResults int           `toml:"max_results"`
	Depth      string        `toml:"depth"`
	Timeout    time.Duration `toml:"timeout"`

	apiKey string
}

// APIKey returns the key resolved during Finalize. An empty key disables
// the web search branch rather than failing startup.
func (c *SearchConfig) APIKey() string {
	return c.apiKey
}

func (c *SearchConfig) Finalize() error {
	c.loadDefaults()
	c.loadEnv()
	return c.validate()
}

func (c *SearchConfig) Merge(overlay *SearchConfig) {
	if overlay.BaseURL != "" {
		c.BaseURL = overlay.BaseURL
	}
	if overlay.MaxResults != 0 {
		c.MaxResults = overlay.MaxResults
	}
	if overlay.Depth != "" {
		c.Depth = overlay.Depth
	}
	if overlay.Timeout != 0 {
		c.Timeout = overlay.Timeout
	}
}

func (c *SearchConfig) loadDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = "https://api.tavily.com"
	}
	if c.MaxResults == 0 {
		c.MaxResults = 5
	}
	if c.Depth == "" {
		c.Depth = "advanced"
	}
	if c.Timeout == 0 {
		c.Timeout = 15 * time.Second
	}
}

func (c *SearchConfig) loadEnv() {
	if v := os.Getenv(EnvSearchBaseURL); v != "" {
		c.BaseURL = v
	}
	c.apiKey = os.Getenv(EnvSearchAPIKey)
}

func (c *SearchConfig) validate() error {
	if c.MaxResults < 1 {
		return fmt.Errorf("invalid max_results: %d", c.MaxResults)
	}
	switch c.Depth {
	case "basic", "advanced":
	default:
		return fmt.Errorf("invalid depth: %q", c.Depth)
	}
	return nil
}
