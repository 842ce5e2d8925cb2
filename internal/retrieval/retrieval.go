// Package retrieval gathers evidence for a question from the local vector
// index and from web search. The two branches run as independent graph tasks;
// each returns chunks that merge through the contexts reducer.
package retrieval

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/lectern-labs/lectern/internal/config"
	"github.com/lectern-labs/lectern/internal/embedding"
	"github.com/lectern-labs/lectern/internal/index"
	"github.com/lectern-labs/lectern/workflow"
)

// System retrieves context chunks for a question.
type System interface {
	// Local embeds the question and searches the paper's chunk index,
	// returning parent-scale chunks ranked by child similarity.
	Local(ctx context.Context, paperID uuid.UUID, question string) ([]workflow.Chunk, error)

	// Web searches the public web. Returns no chunks when web search is
	// not configured.
	Web(ctx context.Context, question string) ([]workflow.Chunk, error)
}

type retriever struct {
	index     index.System
	embedding embedding.System
	search    *searchClient
	k         int
	logger    *slog.Logger
}

// New creates a retrieval system. An empty search API key disables the web
// branch without failing construction.
func New(
	cfg *config.Config,
	idx index.System,
	emb embedding.System,
	logger *slog.Logger,
) System {
	var search *searchClient
	if key := cfg.Search.APIKey(); key != "" {
		search = newSearchClient(
			cfg.Search.BaseURL,
			key,
			cfg.Search.MaxResults,
			cfg.Search.Depth,
			cfg.Search.Timeout,
		)
	}

	return &retriever{
		index:     idx,
		embedding: emb,
		search:    search,
		k:         cfg.Query.RetrieveK,
		logger:    logger.With("system", "retrieval"),
	}
}

func (r *retriever) Local(ctx context.Context, paperID uuid.UUID, question string) ([]workflow.Chunk, error) {
	vector, err := r.embedding.Embed(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("%w: embed question: %w", workflow.ErrRetrievalFailed, err)
	}

	chunks, err := r.index.Search(ctx, paperID, vector, r.k)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", workflow.ErrRetrievalFailed, err)
	}

	r.logger.Info("local retrieval complete", "paper", paperID, "chunks", len(chunks))
	return chunks, nil
}

func (r *retriever) Web(ctx context.Context, question string) ([]workflow.Chunk, error) {
	if r.search == nil {
		r.logger.Debug("web search not configured, skipping")
		return nil, nil
	}

	results, err := r.search.search(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", workflow.ErrRetrievalFailed, err)
	}

	chunks := make([]workflow.Chunk, 0, len(results))
	for _, res := range results {
		chunks = append(chunks, workflow.Chunk{
			Content: fmt.Sprintf("[웹: %s]\n%s", res.Title, res.Content),
			Source:  workflow.SourceExternal,
			Locator: res.URL,
		})
	}

	r.logger.Info("web retrieval complete", "chunks", len(chunks))
	return chunks, nil
}
