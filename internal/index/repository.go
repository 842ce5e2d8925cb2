package index

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"

	"github.com/lectern-labs/lectern/pkg/pagination"
	"github.com/lectern-labs/lectern/pkg/query"
	"github.com/lectern-labs/lectern/pkg/repository"
	"github.com/lectern-labs/lectern/workflow"
)

const paperColumns = `
	id, content_hash, filename, size_bytes, page_count,
	storage_key, chunk_count, ingested_at`

type repo struct {
	db         *sql.DB
	logger     *slog.Logger
	pagination pagination.Config
}

// New creates an index repository implementing the System interface.
func New(db *sql.DB, pager pagination.Config, logger *slog.Logger) System {
	return &repo{
		db:         db,
		logger:     logger.With("system", "index"),
		pagination: pager,
	}
}

func (r *repo) FindByHash(ctx context.Context, hash string) (*Paper, error) {
	q := fmt.Sprintf(
		"SELECT %s FROM papers WHERE content_hash = $1",
		paperColumns,
	)

	p, err := repository.QueryOne(ctx, r.db, q, []any{hash}, scanPaper)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}
	return &p, nil
}

func (r *repo) Find(ctx context.Context, id uuid.UUID) (*Paper, error) {
	q := fmt.Sprintf(
		"SELECT %s FROM papers WHERE id = $1",
		paperColumns,
	)

	p, err := repository.QueryOne(ctx, r.db, q, []any{id}, scanPaper)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}
	return &p, nil
}

func (r *repo) Latest(ctx context.Context) (*Paper, error) {
	q := fmt.Sprintf(
		"SELECT %s FROM papers ORDER BY ingested_at DESC LIMIT 1",
		paperColumns,
	)

	p, err := repository.QueryOne(ctx, r.db, q, nil, scanPaper)
	if err != nil {
		return nil, repository.MapError(err, ErrEmpty, ErrDuplicate)
	}
	return &p, nil
}

func (r *repo) List(
	ctx context.Context,
	page pagination.PageRequest,
) (*pagination.PageResult[Paper], error) {
	page.Normalize(r.pagination)

	qb := query.
		NewBuilder(projection, defaultSort).
		WhereSearch(page.Search, "Filename")

	if len(page.Sort) > 0 {
		qb.OrderByFields(page.Sort)
	}

	countSQL, countArgs := qb.BuildCount()
	var total int
	if err := r.db.QueryRowContext(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count papers: %w", err)
	}

	pageSQL, pageArgs := qb.BuildPage(page.Page, page.PageSize)
	papers, err := repository.QueryMany(ctx, r.db, pageSQL, pageArgs, scanPaper)
	if err != nil {
		return nil, fmt.Errorf("query papers: %w", err)
	}

	result := pagination.NewPageResult(papers, total, page.Page, page.PageSize)
	return &result, nil
}

func (r *repo) Create(ctx context.Context, cmd CreateCommand) (*Paper, error) {
	chunks := 0
	for _, parent := range cmd.Parents {
		chunks += len(parent.Children)
	}

	insertPaper := `
		INSERT INTO papers(id, content_hash, filename, size_bytes, page_count, storage_key, chunk_count)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING` + paperColumns

	insertParent := `
		INSERT INTO parent_chunks(id, paper_id, position, content, page, kind)
		VALUES ($1, $2, $3, $4, $5, $6)`

	insertChild := `
		INSERT INTO child_chunks(id, parent_id, position, content, embedding)
		VALUES ($1, $2, $3, $4, $5)`

	id := uuid.New()

	p, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (Paper, error) {
		p, err := repository.QueryOne(ctx, tx, insertPaper, []any{
			id,
			cmd.ContentHash,
			cmd.Filename,
			cmd.SizeBytes,
			cmd.PageCount,
			cmd.StorageKey,
			chunks,
		}, scanPaper)
		if err != nil {
			return Paper{}, err
		}

		for pos, parent := range cmd.Parents {
			parentID := uuid.New()
			if _, err := tx.ExecContext(ctx, insertParent,
				parentID, id, pos, parent.Content, parent.Page, string(parent.Kind),
			); err != nil {
				return Paper{}, fmt.Errorf("insert parent chunk %d: %w", pos, err)
			}

			for cpos, child := range parent.Children {
				if _, err := tx.ExecContext(ctx, insertChild,
					uuid.New(), parentID, cpos, child.Content,
					pgvector.NewVector(child.Vector),
				); err != nil {
					return Paper{}, fmt.Errorf("insert child chunk %d.%d: %w", pos, cpos, err)
				}
			}
		}

		return p, nil
	})

	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	r.logger.Info("paper indexed",
		"id", p.ID,
		"hash", p.ContentHash,
		"parents", len(cmd.Parents),
		"children", chunks,
	)

	return &p, nil
}

func (r *repo) Touch(ctx context.Context, id uuid.UUID) (*Paper, error) {
	q := fmt.Sprintf(`
		UPDATE papers SET ingested_at = now()
		WHERE id = $1
		RETURNING %s`, paperColumns)

	p, err := repository.QueryOne(ctx, r.db, q, []any{id}, scanPaper)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}
	return &p, nil
}

// Search ranks child chunks by cosine distance, then collapses them to their
// parents in rank order so each section appears once at its best rank.
func (r *repo) Search(ctx context.Context, paperID uuid.UUID, vector []float32, k int) ([]workflow.Chunk, error) {
	if k < 1 {
		return nil, nil
	}

	q := `
		SELECT p.id, p.content, p.page, p.kind
		FROM child_chunks c
		JOIN parent_chunks p ON p.id = c.parent_id
		WHERE p.paper_id = $1
		ORDER BY c.embedding <=> $2
		LIMIT $3`

	type hit struct {
		parentID uuid.UUID
		chunk    workflow.Chunk
	}

	scanHit := func(s repository.Scanner) (hit, error) {
		var h hit
		var kind string
		err := s.Scan(&h.parentID, &h.chunk.Content, &h.chunk.Page, &kind)
		h.chunk.Source = workflow.SourceLocal
		h.chunk.Kind = workflow.ElementKind(kind)
		return h, err
	}

	// Overfetch children since several may share a parent.
	hits, err := repository.QueryMany(ctx, r.db, q,
		[]any{paperID, pgvector.NewVector(vector), k * 4},
		scanHit,
	)
	if err != nil {
		return nil, fmt.Errorf("search chunks: %w", err)
	}

	seen := make(map[uuid.UUID]struct{})
	var chunks []workflow.Chunk
	for _, h := range hits {
		if _, ok := seen[h.parentID]; ok {
			continue
		}
		seen[h.parentID] = struct{}{}

		chunks = append(chunks, h.chunk)
		if len(chunks) == k {
			break
		}
	}

	return chunks, nil
}
