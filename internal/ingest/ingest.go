// Package ingest turns an uploaded PDF into a registered, searchable paper.
// The pipeline runs as a linear task graph (prepare, chunk, index) gated by
// a content-hash deduplicator: identical bytes never index twice, and
// concurrent uploads of the same bytes collapse into one pipeline run.
package ingest

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/lectern-labs/lectern/internal/corpus"
	"github.com/lectern-labs/lectern/internal/embedding"
	"github.com/lectern-labs/lectern/internal/index"
	"github.com/lectern-labs/lectern/internal/parse"
	"github.com/lectern-labs/lectern/internal/render"
	"github.com/lectern-labs/lectern/pkg/graph"
	"github.com/lectern-labs/lectern/pkg/pagination"
	"github.com/lectern-labs/lectern/pkg/storage"
	"github.com/lectern-labs/lectern/workflow"
)

const sourcePDF = "source.pdf"

// SourceKey returns the blob key for a paper's original PDF.
func SourceKey(hash string) string {
	return fmt.Sprintf("papers/%s/%s", hash, sourcePDF)
}

// Result reports the outcome of an ingest request.
type Result struct {
	Paper   *index.Paper
	Created bool
}

// System defines the public contract for ingestion.
type System interface {
	Handler(maxUploadSize int64) *Handler

	// Ingest registers the document, running the full pipeline unless the
	// content hash is already indexed. pageCount is the caller-validated
	// page count of the PDF; rendering refines it.
	Ingest(ctx context.Context, filename string, data []byte, pageCount int) (*Result, error)

	// Papers lists a page of registered papers, most recent first.
	Papers(ctx context.Context, page pagination.PageRequest) (*pagination.PageResult[index.Paper], error)
}

type service struct {
	index      index.System
	parse      parse.System
	render     render.System
	embedding  embedding.System
	storage    storage.System
	pipeline   *graph.Graph[pipelineState, pipelineUpdate]
	flight     singleflight.Group
	pagination pagination.Config
	logger     *slog.Logger
}

// New creates the ingestion system. The pipeline graph is built once; each
// ingest request executes it with fresh state.
func New(
	idx index.System,
	parser parse.System,
	renderer render.System,
	emb embedding.System,
	store storage.System,
	pager pagination.Config,
	logger *slog.Logger,
) (System, error) {
	s := &service{
		index:      idx,
		parse:      parser,
		render:     renderer,
		embedding:  emb,
		storage:    store,
		pagination: pager,
		logger:     logger.With("system", "ingest"),
	}

	pipeline, err := s.buildPipeline()
	if err != nil {
		return nil, fmt.Errorf("build ingest pipeline: %w", err)
	}
	s.pipeline = pipeline

	return s, nil
}

func (s *service) Handler(maxUploadSize int64) *Handler {
	return NewHandler(s, s.logger, s.pagination, maxUploadSize)
}

func (s *service) Papers(ctx context.Context, page pagination.PageRequest) (*pagination.PageResult[index.Paper], error) {
	return s.index.List(ctx, page)
}

func (s *service) Ingest(ctx context.Context, filename string, data []byte, pageCount int) (*Result, error) {
	if len(data) == 0 {
		return nil, ErrEmptyUpload
	}

	sum := sha256.Sum256(data)
	hash := hex.EncodeToString(sum[:])

	if existing, err := s.index.FindByHash(ctx, hash); err == nil {
		return s.refresh(ctx, existing)
	} else if !errors.Is(err, index.ErrNotFound) {
		return nil, err
	}

	paper, err, _ := s.flight.Do(hash, func() (any, error) {
		// A racing upload may have finished while this call waited.
		if existing, err := s.index.FindByHash(ctx, hash); err == nil {
			return existing, nil
		} else if !errors.Is(err, index.ErrNotFound) {
			return nil, err
		}

		return s.run(ctx, hash, filename, pageCount, data)
	})
	if err != nil {
		return nil, err
	}

	return &Result{Paper: paper.(*index.Paper), Created: true}, nil
}

// refresh re-promotes an already indexed paper without re-running the
// pipeline.
func (s *service) refresh(ctx context.Context, paper *index.Paper) (*Result, error) {
	touched, err := s.index.Touch(ctx, paper.ID)
	if err != nil {
		return nil, err
	}

	s.logger.Info("duplicate upload, entry refreshed", "id", touched.ID, "hash", touched.ContentHash)
	return &Result{Paper: touched, Created: false}, nil
}

func (s *service) run(ctx context.Context, hash, filename string, pageCount int, data []byte) (*index.Paper, error) {
	tempDir, err := os.MkdirTemp("", "lectern-ingest-*")
	if err != nil {
		return nil, fmt.Errorf("create temp dir: %w", err)
	}
	defer os.RemoveAll(tempDir)

	pdfPath := filepath.Join(tempDir, sourcePDF)
	if err := os.WriteFile(pdfPath, data, 0600); err != nil {
		return nil, fmt.Errorf("write temp pdf: %w", err)
	}

	final, err := s.pipeline.Execute(ctx, pipelineState{
		Hash:      hash,
		Filename:  filename,
		Data:      data,
		PDFPath:   pdfPath,
		PageCount: pageCount,
	}, nil)
	if err != nil {
		s.compensate(hash)
		return nil, err
	}

	return final.Paper, nil
}

// compensate removes the source blob after a failed pipeline so storage
// never holds documents the registry does not know about. Page images are
// keyed by hash and simply overwritten on retry.
func (s *service) compensate(hash string) {
	ctx, cancel := context.WithTimeout(context.Background(), storageCleanupTimeout)
	defer cancel()

	if err := s.storage.Delete(ctx, SourceKey(hash)); err != nil && !errors.Is(err, storage.ErrNotFound) {
		s.logger.Warn("compensating blob delete failed", "hash", hash, "error", err)
	}
}

func (s *service) buildPipeline() (*graph.Graph[pipelineState, pipelineUpdate], error) {
	reducers, err := pipelineReducers()
	if err != nil {
		return nil, err
	}

	b := graph.New("ingest", reducers)
	steps := []error{
		b.Task("prepare", s.prepareTask),
		b.Task("chunk", s.chunkTask),
		b.Task("index", s.indexTask),
		b.Edge("prepare", "chunk"),
		b.Edge("chunk", "index"),
		b.Entry("prepare"),
	}
	if err := errors.Join(steps...); err != nil {
		return nil, err
	}

	return b.Build()
}

// prepareTask uploads the source PDF, renders page images, and parses the
// document. Upload runs first so render and parse failures leave a blob the
// compensating delete can find; render and parse then run concurrently.
func (s *service) prepareTask(ctx context.Context, st pipelineState) (pipelineUpdate, error) {
	key := SourceKey(st.Hash)
	if err := s.storage.Upload(ctx, key, bytes.NewReader(st.Data), "application/pdf"); err != nil {
		return pipelineUpdate{}, fmt.Errorf("upload source pdf: %w", err)
	}

	var elements []workflow.Element
	var rendered int

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		rendered, err = s.render.Pages(gctx, st.PDFPath, st.Hash)
		return err
	})
	g.Go(func() error {
		var err error
		elements, err = s.parse.Parse(gctx, bytes.NewReader(st.Data), st.Filename)
		return err
	})
	if err := g.Wait(); err != nil {
		return pipelineUpdate{}, err
	}

	update := pipelineUpdate{Elements: elements}
	if rendered > 0 {
		update.PageCount = rendered
	}
	return update, nil
}

// chunkTask builds the parent/child hierarchy and embeds every child.
func (s *service) chunkTask(ctx context.Context, st pipelineState) (pipelineUpdate, error) {
	parents := corpus.Build(st.Elements)

	var texts []string
	for _, parent := range parents {
		texts = append(texts, parent.Children...)
	}

	vectors, err := s.embedding.EmbedBatch(ctx, texts)
	if err != nil {
		return pipelineUpdate{}, fmt.Errorf("embed children: %w", err)
	}

	indexed := make([]index.IndexedParent, len(parents))
	cursor := 0
	for i, parent := range parents {
		children := make([]index.IndexedChild, len(parent.Children))
		for j, content := range parent.Children {
			children[j] = index.IndexedChild{Content: content, Vector: vectors[cursor]}
			cursor++
		}

		indexed[i] = index.IndexedParent{
			Content:  parent.Content,
			Page:     parent.Page,
			Kind:     parent.Kind,
			Children: children,
		}
	}

	return pipelineUpdate{Parents: indexed}, nil
}

// indexTask registers the paper. Losing a duplicate race resolves to the
// winner's committed entry.
func (s *service) indexTask(ctx context.Context, st pipelineState) (pipelineUpdate, error) {
	paper, err := s.index.Create(ctx, index.CreateCommand{
		ContentHash: st.Hash,
		Filename:    st.Filename,
		SizeBytes:   int64(len(st.Data)),
		PageCount:   st.PageCount,
		StorageKey:  SourceKey(st.Hash),
		Parents:     st.Parents,
	})
	if err != nil {
		if !errors.Is(err, index.ErrDuplicate) {
			return pipelineUpdate{}, err
		}

		s.logger.Info("duplicate race lost, using committed entry", "hash", st.Hash)
		paper, err = s.index.FindByHash(ctx, st.Hash)
		if err != nil {
			return pipelineUpdate{}, fmt.Errorf("%w: %w", workflow.ErrDuplicateRace, err)
		}
	}

	return pipelineUpdate{Paper: paper}, nil
}
