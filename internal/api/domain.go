package api

import (
	"fmt"

	"github.com/lectern-labs/lectern/internal/ask"
	"github.com/lectern-labs/lectern/internal/embedding"
	"github.com/lectern-labs/lectern/internal/index"
	"github.com/lectern-labs/lectern/internal/ingest"
	"github.com/lectern-labs/lectern/internal/parse"
	"github.com/lectern-labs/lectern/internal/query"
	"github.com/lectern-labs/lectern/internal/render"
	"github.com/lectern-labs/lectern/internal/retrieval"
	"github.com/lectern-labs/lectern/internal/vision"
)

// Domain holds all domain systems that comprise the API.
type Domain struct {
	Ingest ingest.System
	Ask    ask.System
}

// NewDomain creates all domain systems from the API runtime.
func NewDomain(runtime *Runtime) (*Domain, error) {
	cfg := runtime.Config
	logger := runtime.Logger
	db := runtime.Database.Connection()

	indexSystem := index.New(db, cfg.API.Pagination, logger)
	embeddingSystem := embedding.New(&cfg.OpenAI, runtime.OpenAI, logger)
	parseSystem := parse.New(&cfg.Parser, logger)
	renderSystem := render.New(runtime.Storage, logger)

	ingestSystem, err := ingest.New(
		indexSystem,
		parseSystem,
		renderSystem,
		embeddingSystem,
		runtime.Storage,
		cfg.API.Pagination,
		logger,
	)
	if err != nil {
		return nil, fmt.Errorf("ingest system: %w", err)
	}

	retrievalSystem := retrieval.New(cfg, indexSystem, embeddingSystem, logger)
	router := vision.NewRouter(&cfg.OpenAI, runtime.OpenAI, logger)
	analyst := vision.NewAnalyst(runtime.Agent, runtime.Storage, logger)
	synthesizer := query.NewSynthesizer(&cfg.OpenAI, runtime.OpenAI, logger)

	queryRuntime, err := query.NewRuntime(
		cfg.Query,
		retrievalSystem,
		router,
		analyst,
		indexSystem,
		synthesizer,
		logger,
	)
	if err != nil {
		return nil, fmt.Errorf("query runtime: %w", err)
	}

	return &Domain{
		Ingest: ingestSystem,
		Ask:    ask.New(queryRuntime, indexSystem, logger),
	}, nil
}
