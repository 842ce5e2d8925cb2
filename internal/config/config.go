package config

import (
	"fmt"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"

	gaconfig "github.com/JaimeStill/go-agents/pkg/config"

	"github.com/lectern-labs/lectern/pkg/database"
	"github.com/lectern-labs/lectern/pkg/storage"
)

const (
	BaseConfigFile       = "config.toml"
	OverlayConfigPattern = "config.%s.toml"

	EnvLecternEnv             = "LECTERN_ENV"
	EnvLecternShutdownTimeout = "LECTERN_SHUTDOWN_TIMEOUT"
	EnvLecternVersion         = "LECTERN_VERSION"
)

var databaseEnv = &database.Env{
	Host:            "LECTERN_DB_HOST",
	Port:            "LECTERN_DB_PORT",
	Name:            "LECTERN_DB_NAME",
	User:            "LECTERN_DB_USER",
	Password:        "LECTERN_DB_PASSWORD",
	SSLMode:         "LECTERN_DB_SSL_MODE",
	MaxOpenConns:    "LECTERN_DB_MAX_OPEN_CONNS",
	MaxIdleConns:    "LECTERN_DB_MAX_IDLE_CONNS",
	ConnMaxLifetime: "LECTERN_DB_CONN_MAX_LIFETIME",
	ConnTimeout:     "LECTERN_DB_CONN_TIMEOUT",
}

var storageEnv = &storage.Env{
	ContainerName:    "LECTERN_STORAGE_CONTAINER_NAME",
	ConnectionString: "LECTERN_STORAGE_CONNECTION_STRING",
}

// Config is the root configuration for the Lectern service.
type Config struct {
	Server          ServerConfig        `toml:"server"`
	Database        database.Config     `toml:"database"`
	Storage         storage.Config      `toml:"storage"`
	API             APIConfig           `toml:"api"`
	Agent           gaconfig.AgentConfig `toml:"agent"`
	OpenAI          OpenAIConfig        `toml:"openai"`
	Search          SearchConfig        `toml:"search"`
	Parser          ParserConfig        `toml:"parser"`
	Query           QueryConfig         `toml:"query"`
	ShutdownTimeout string              `toml:"shutdown_timeout"`
	Version         string              `toml:"version"`
}

// Env returns the LECTERN_ENV value, defaulting to "local".
func (c *Config) Env() string {
	if env := os.Getenv(EnvLecternEnv); env != "" {
		return env
	}
	return "local"
}

// ShutdownTimeoutDuration returns ShutdownTimeout as a time.Duration.
func (c *Config) ShutdownTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.ShutdownTimeout)
	return d
}

// Load reads the base config (if present), applies any environment overlay,
// and finalizes all values. If no config.toml exists, defaults and environment
// variables provide all configuration.
func Load() (*Config, error) {
	cfg := &Config{}

	if _, err := os.Stat(BaseConfigFile); err == nil {
		loaded, err := load(BaseConfigFile)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if path := overlayPath(); path != "" {
		overlay, err := load(path)
		if err != nil {
			return nil, fmt.Errorf("load overlay %s: %w", path, err)
		}
		cfg.Merge(overlay)
	}

	if err := cfg.finalize(); err != nil {
		return nil, fmt.Errorf("finalize config: %w", err)
	}

	return cfg, nil
}

// Merge overwrites non-zero fields from overlay across all sub-configs.
func (c *Config) Merge(overlay *Config) {
	if overlay.ShutdownTimeout != "" {
		c.ShutdownTimeout = overlay.ShutdownTimeout
	}
	if overlay.Version != "" {
		c.Version = overlay.Version
	}
	c.Server.Merge(&overlay.Server)
	c.Database.Merge(&overlay.Database)
	c.Storage.Merge(&overlay.Storage)
	c.API.Merge(&overlay.API)
	c.Agent.Merge(&overlay.Agent)
	c.OpenAI.Merge(&overlay.OpenAI)
	c.Search.Merge(&overlay.Search)
	c.Parser.Merge(&overlay.Parser)
	c.Query.Merge(&overlay.Query)
}

func (c *Config) finalize() error {
	c.loadDefaults()
	c.loadEnv()

	if err := c.validate(); err != nil {
		return err
	}
	if err := c.Server.Finalize(); err != nil {
		return fmt.Errorf("server: %w", err)
	}
	if err := c.Database.Finalize(databaseEnv); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if err := c.Storage.Finalize(storageEnv); err != nil {
		return fmt.Errorf("storage: %w", err)
	}
	if err := c.API.Finalize(); err != nil {
		return fmt.Errorf("api: %w", err)
	}
	if err := FinalizeAgent(&c.Agent); err != nil {
		return fmt.Errorf("agent: %w", err)
	}
	if err := c.OpenAI.Finalize(); err != nil {
		return fmt.Errorf("openai: %w", err)
	}
	if err := c.Search.Finalize(); err != nil {
		return fmt.Errorf("search: %w", err)
	}
	if err := c.Parser.Finalize(); err != nil {
		return fmt.Errorf("parser: %w", err)
	}
	if err := c.Query.Finalize(); err != nil {
		return fmt.Errorf("query: %w", err)
	}
	return nil
}
func (c *Config) loadDefaults() {
	if c.ShutdownTimeout == "" {
		c.ShutdownTimeout = "30s"
	}
	if c.Version == "" {
		c.Version = "0.1.0"
	}
}

func (c *Config) loadEnv() {
	if v := os.Getenv(EnvLecternShutdownTimeout); v != "" {
		c.ShutdownTimeout = v
	}
	if v := os.Getenv(EnvLecternVersion); v != "" {
		c.Version = v
	}
}

func (c *Config) validate() error {
	if _, err := time.ParseDuration(c.ShutdownTimeout); err != nil {
		return fmt.Errorf("invalid shutdown_timeout: %w", err)
	}
	return nil
}

func load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	return &cfg, nil
}

func overlayPath() string {
	if env := os.Getenv(EnvLecternEnv); env != "" {
		path := fmt.Sprintf(OverlayConfigPattern, env)
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}
