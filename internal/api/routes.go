package api

import (
	"net/http"

	"github.com/lectern-labs/lectern/internal/config"
	"github.com/lectern-labs/lectern/pkg/routes"
)

func registerRoutes(
	mux *http.ServeMux,
	domain *Domain,
	cfg *config.Config,
) {
	routes.Register(
		mux,
		domain.Ingest.Handler(cfg.API.MaxUploadSizeBytes()).Routes(),
		domain.Ask.Handler().Routes(),
	)
}
