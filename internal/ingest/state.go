package ingest

import (
	"time"

	"github.com/lectern-labs/lectern/internal/index"
	"github.com/lectern-labs/lectern/pkg/graph"
	"github.com/lectern-labs/lectern/workflow"
)

const storageCleanupTimeout = 30 * time.Second

// pipelineState threads one ingest run through the task graph. Hash,
// Filename, Data, and PDFPath are fixed at submission; the remaining fields
// are written by at most one task each.
type pipelineState struct {
	Hash      string
	Filename  string
	Data      []byte
	PDFPath   string
	PageCount int
	Elements  []workflow.Element
	Parents   []index.IndexedParent
	Paper     *index.Paper
}

type pipelineUpdate struct {
	PageCount int
	Elements  []workflow.Element
	Parents   []index.IndexedParent
	Paper     *index.Paper
}

func pipelineReducers() (*graph.Reducers[pipelineState, pipelineUpdate], error) {
	r := graph.NewReducers[pipelineState, pipelineUpdate]()

	if err := r.Field("page_count", func(s *pipelineState, u pipelineUpdate) {
		if u.PageCount != 0 {
			s.PageCount = u.PageCount
		}
	}); err != nil {
		return nil, err
	}

	if err := r.Field("elements", func(s *pipelineState, u pipelineUpdate) {
		if u.Elements != nil {
			s.Elements = u.Elements
		}
	}); err != nil {
		return nil, err
	}

	if err := r.Field("parents", func(s *pipelineState, u pipelineUpdate) {
		if u.Parents != nil {
			s.Parents = u.Parents
		}
	}); err != nil {
		return nil, err
	}

	if err := r.Field("paper", func(s *pipelineState, u pipelineUpdate) {
		if u.Paper != nil {
			s.Paper = u.Paper
		}
	}); err != nil {
		return nil, err
	}

	return r, nil
}
