// Package ask exposes the question-answering operations. It resolves which
// paper a question targets, runs the query graph, and shapes the final
// answer with page-level sources.
package ask

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/lectern-labs/lectern/internal/index"
	"github.com/lectern-labs/lectern/internal/query"
	"github.com/lectern-labs/lectern/pkg/graph"
)

// Request is the wire shape for a question. An empty PaperID targets the
// most recently ingested paper.
type Request struct {
	Question string `json:"question"`
	PaperID  string `json:"paper_id,omitempty"`
}

// Answer is the wire shape for a completed question.
type Answer struct {
	Answer  string `json:"answer"`
	Sources []int  `json:"sources"`
	Vision  string `json:"vision,omitempty"`
}

// Domain errors for question handling.
var (
	ErrEmptyQuestion  = errors.New("question required")
	ErrInvalidPaperID = errors.New("invalid paper id")
)

// MapHTTPStatus maps ask errors to HTTP status codes.
func MapHTTPStatus(err error) int {
	if errors.Is(err, ErrEmptyQuestion) || errors.Is(err, ErrInvalidPaperID) {
		return http.StatusBadRequest
	}
	return index.MapHTTPStatus(err)
}

// System defines the public contract for question answering.
type System interface {
	Handler() *Handler

	// Ask runs the query graph to completion. The observer, when non-nil,
	// receives task lifecycle events as they happen.
	Ask(ctx context.Context, req Request, observe graph.Observer) (*Answer, error)
}

type service struct {
	runtime *query.Runtime
	index   index.System
	logger  *slog.Logger
}

// New creates the ask system.
func New(runtime *query.Runtime, idx index.System, logger *slog.Logger) System {
	return &service{
		runtime: runtime,
		index:   idx,
		logger:  logger.With("system", "ask"),
	}
}

func (s *service) Handler() *Handler {
	return NewHandler(s, s.logger)
}

func (s *service) Ask(ctx context.Context, req Request, observe graph.Observer) (*Answer, error) {
	if req.Question == "" {
		return nil, ErrEmptyQuestion
	}

	paper, err := s.resolve(ctx, req.PaperID)
	if err != nil {
		return nil, err
	}

	final, err := s.runtime.Run(ctx, req.Question, paper.ID, observe)
	if err != nil {
		return nil, err
	}

	return &Answer{
		Answer:  final.Answer,
		Sources: final.SourcePages(),
		Vision:  final.Finding,
	}, nil
}

// resolve returns the targeted paper, defaulting to the most recent entry.
func (s *service) resolve(ctx context.Context, paperID string) (*index.Paper, error) {
	if paperID == "" {
		return s.index.Latest(ctx)
	}

	id, err := uuid.Parse(paperID)
	if err != nil {
		return nil, ErrInvalidPaperID
	}

	return s.index.Find(ctx, id)
}
