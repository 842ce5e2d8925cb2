package config

import (
	"fmt"
	"os"

	"github.com/lectern-labs/lectern/pkg/formatting"
	"github.com/lectern-labs/lectern/pkg/middleware"
	"github.com/lectern-labs/lectern/pkg/openapi"
	"github.com/lectern-labs/lectern/pkg/pagination"
)

var corsEnv = &middleware.CORSEnv{
	Enabled:          "LECTERN_CORS_ENABLED",
	Origins:          "LECTERN_CORS_ORIGINS",
	AllowedMethods:   "LECTERN_CORS_ALLOWED_METHODS",
	AllowedHeaders:   "LECTERN_CORS_ALLOWED_HEADERS",
	AllowCredentials: "LECTERN_CORS_ALLOW_CREDENTIALS",
	MaxAge:           "LECTERN_CORS_MAX_AGE",
}

var paginationEnv = &pagination.ConfigEnv{
	DefaultPageSize: "LECTERN_API_DEFAULT_PAGE_SIZE",
	MaxPageSize:     "LECTERN_API_MAX_PAGE_SIZE",
}

var openapiEnv = &openapi.ConfigEnv{
	Title:       "LECTERN_API_TITLE",
	Description: "LECTERN_API_DESCRIPTION",
}

// APIConfig holds API routing, upload, pagination, and CORS settings.
type APIConfig struct {
	BasePath      string                `toml:"base_path"`
	MaxUploadSize string                `toml:"max_upload_size"`
	Pagination    pagination.Config     `toml:"pagination"`
	OpenAPI       openapi.Config        `toml:"openapi"`
	CORS          middleware.CORSConfig `toml:"cors"`
}

func (c *APIConfig) MaxUploadSizeBytes() int64 {
	size, err := formatting.ParseBytes(c.MaxUploadSize)
	if err != nil {
		return 50 * 1024 * 1024 // 50MB fallback
	}
	return size
}

// Finalize applies defaults, environment variable overrides, and validation
// for the API config and its nested CORS config.
func (c *APIConfig) Finalize() error {
	c.loadDefaults()
	c.loadEnv()

	if err := c.Pagination.Finalize(paginationEnv); err != nil {
		return fmt.Errorf("pagination: %w", err)
	}
	if err := c.OpenAPI.Finalize(openapiEnv); err != nil {
		return fmt.Errorf("openapi: %w", err)
	}
	if err := c.CORS.Finalize(corsEnv); err != nil {
		return fmt.Errorf("cors: %w", err)
	}
	return nil
}

// Merge overwrites non-zero fields from overlay across nested configs.
func (c *APIConfig) Merge(overlay *APIConfig) {
	if overlay.BasePath != "" {
		c.BasePath = overlay.BasePath
	}
	if overlay.MaxUploadSize != "" {
		c.MaxUploadSize = overlay.MaxUploadSize
	}

	c.Pagination.Merge(&overlay.Pagination)
	c.OpenAPI.Merge(&overlay.OpenAPI)
	c.CORS.Merge(&overlay.CORS)
}

func (c *APIConfig) loadDefaults() {
	if c.BasePath == "" {
		c.BasePath = "/api"
	}
	if c.MaxUploadSize == "" {
		c.MaxUploadSize = "50MB"
	}
}

func (c *APIConfig) loadEnv() {
	if v := os.Getenv("LECTERN_API_BASE_PATH"); v != "" {
		c.BasePath = v
	}
	if v := os.Getenv("LECTERN_API_MAX_UPLOAD_SIZE"); v != "" {
		c.MaxUploadSize = v
	}
}
