package index

import (
	"github.com/lectern-labs/lectern/pkg/query"
	"github.com/lectern-labs/lectern/pkg/repository"
)

var projection = query.
	NewProjectionMap("public", "papers", "p").
	Project("id", "ID").
	Project("content_hash", "ContentHash").
	Project("filename", "Filename").
	Project("size_bytes", "SizeBytes").
	Project("page_count", "PageCount").
	Project("storage_key", "StorageKey").
	Project("chunk_count", "ChunkCount").
	Project("ingested_at", "IngestedAt")

var defaultSort = query.SortField{
	Field:      "IngestedAt",
	Descending: true,
}

func scanPaper(s repository.Scanner) (Paper, error) {
	var p Paper
	err := s.Scan(
		&p.ID,
		&p.ContentHash,
		&p.Filename,
		&p.SizeBytes,
		&p.PageCount,
		&p.StorageKey,
		&p.ChunkCount,
		&p.IngestedAt,
	)
	return p, err
}
