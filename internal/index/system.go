package index

import (
	"context"

	"github.com/google/uuid"

	"github.com/lectern-labs/lectern/pkg/pagination"
	"github.com/lectern-labs/lectern/workflow"
)

// System defines the public contract for registry and vector index operations.
type System interface {
	// FindByHash returns the paper registered under the given content hash.
	// Returns ErrNotFound when no such paper exists.
	FindByHash(ctx context.Context, hash string) (*Paper, error)

	// Find returns the paper with the given id.
	Find(ctx context.Context, id uuid.UUID) (*Paper, error)

	// Latest returns the most recently ingested paper. Returns ErrEmpty
	// when the registry holds no papers.
	Latest(ctx context.Context) (*Paper, error)

	// List returns a page of registered papers, most recent first by
	// default. The search term matches against filenames.
	List(ctx context.Context, page pagination.PageRequest) (*pagination.PageResult[Paper], error)

	// Create registers a paper and its chunk hierarchy atomically.
	// Returns ErrDuplicate when the content hash is already registered.
	Create(ctx context.Context, cmd CreateCommand) (*Paper, error)

	// Touch refreshes a paper's ingestion timestamp. Duplicate uploads
	// re-promote the existing entry instead of re-indexing.
	Touch(ctx context.Context, id uuid.UUID) (*Paper, error)

	// Search returns up to k parent chunks for the paper, ranked by the
	// best cosine distance among their children to the query vector.
	Search(ctx context.Context, paperID uuid.UUID, vector []float32, k int) ([]workflow.Chunk, error)
}
