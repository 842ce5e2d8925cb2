// Package api assembles the API module with all domain systems and route registration.
package api

import (
	"fmt"
	"net/http"

	"github.com/lectern-labs/lectern/internal/config"
	"github.com/lectern-labs/lectern/internal/infrastructure"
	"github.com/lectern-labs/lectern/pkg/middleware"
	"github.com/lectern-labs/lectern/pkg/module"
	"github.com/lectern-labs/lectern/pkg/openapi"
)

// NewModule creates the API module with all domain handlers and middleware.
func NewModule(cfg *config.Config, infra *infrastructure.Infrastructure) (*module.Module, error) {
	runtime := NewRuntime(cfg, infra)

	domain, err := NewDomain(runtime)
	if err != nil {
		return nil, err
	}

	specBytes, err := openapi.MarshalJSON(buildSpec(cfg))
	if err != nil {
		return nil, fmt.Errorf("marshal openapi spec: %w", err)
	}

	mux := http.NewServeMux()
	registerRoutes(mux, domain, cfg)
	mux.HandleFunc("GET /openapi.json", openapi.ServeSpec(specBytes))

	m := module.New(cfg.API.BasePath, mux)
	m.Use(middleware.CORS(&cfg.API.CORS))
	m.Use(middleware.Logger(runtime.Infrastructure.Logger))

	return m, nil
}
