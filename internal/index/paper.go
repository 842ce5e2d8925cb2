// Package index implements the paper registry and the parent/child vector
// index. A paper is registered exactly once per content hash; its child
// chunks carry embeddings for dense search, and every child resolves to a
// parent section whose full text feeds answer synthesis.
package index

import (
	"time"

	"github.com/google/uuid"

	"github.com/lectern-labs/lectern/workflow"
)

// Paper is one registered document with the completion record of its
// ingestion. A row in the registry is the canonical marker that ingestion
// finished; partial ingestions never produce one.
type Paper struct {
	ID          uuid.UUID `json:"id"`
	ContentHash string    `json:"content_hash"`
	Filename    string    `json:"filename"`
	SizeBytes   int64     `json:"size_bytes"`
	PageCount   int       `json:"page_count"`
	StorageKey  string    `json:"storage_key"`
	ChunkCount  int       `json:"chunk_count"`
	IngestedAt  time.Time `json:"ingested_at"`
}

// IndexedChild is one embeddable chunk ready for insertion.
type IndexedChild struct {
	Content string
	Vector  []float32
}

// IndexedParent is one section chunk with its embedded children.
type IndexedParent struct {
	Content  string
	Page     int
	Kind     workflow.ElementKind
	Children []IndexedChild
}

// CreateCommand carries everything needed to register a paper and its chunk
// hierarchy in a single transaction.
type CreateCommand struct {
	ContentHash string
	Filename    string
	SizeBytes   int64
	PageCount   int
	StorageKey  string
	Parents     []IndexedParent
}
