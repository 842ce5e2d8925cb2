package query

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/lectern-labs/lectern/internal/vision"
	"github.com/lectern-labs/lectern/pkg/graph"
	"github.com/lectern-labs/lectern/workflow"
)

// Run executes the query graph for one question against one paper. The
// observer, when non-nil, receives task lifecycle events in actual
// completion order.
func (rt *Runtime) Run(
	ctx context.Context,
	question string,
	paperID uuid.UUID,
	observe graph.Observer,
) (workflow.State, error) {
	initial := workflow.State{
		Question: question,
		PaperID:  paperID.String(),
	}

	final, err := rt.graph.Execute(ctx, initial, observe)
	if err != nil {
		return workflow.State{}, err
	}

	return final, nil
}

func (rt *Runtime) planTask(ctx context.Context, s workflow.State) (workflow.Update, error) {
	rt.logger.InfoContext(ctx, "query started", "paper", s.PaperID, "question", s.Question)
	return workflow.Update{}, nil
}

func (rt *Runtime) localTask(ctx context.Context, s workflow.State) (workflow.Update, error) {
	ctx, cancel := context.WithTimeout(ctx, rt.cfg.BranchTimeout)
	defer cancel()

	paperID, err := uuid.Parse(s.PaperID)
	if err != nil {
		return workflow.Update{}, fmt.Errorf("%w: parse paper id: %w", workflow.ErrRetrievalFailed, err)
	}

	chunks, err := rt.retrieval.Local(ctx, paperID, s.Question)
	if err != nil {
		return workflow.Update{}, err
	}

	return workflow.Update{Contexts: chunks}, nil
}

func (rt *Runtime) webTask(ctx context.Context, s workflow.State) (workflow.Update, error) {
	ctx, cancel := context.WithTimeout(ctx, rt.cfg.BranchTimeout)
	defer cancel()

	chunks, err := rt.retrieval.Web(ctx, s.Question)
	if err != nil {
		return workflow.Update{}, err
	}

	return workflow.Update{Contexts: chunks}, nil
}

// routerTask runs the three-tier decision engine. The engine never fails;
// an unreachable or malformed judgment call already resolved inside it.
func (rt *Runtime) routerTask(ctx context.Context, s workflow.State) (workflow.Update, error) {
	ctx, cancel := context.WithTimeout(ctx, rt.cfg.JudgeTimeout)
	defer cancel()

	decision := rt.router.Decide(ctx, s.Question, s.Contexts)
	return workflow.Update{Verdict: decision.Verdict}, nil
}

func (rt *Runtime) analystTask(ctx context.Context, s workflow.State) (workflow.Update, error) {
	ctx, cancel := context.WithTimeout(ctx, rt.cfg.VisionTimeout)
	defer cancel()

	paperID, err := uuid.Parse(s.PaperID)
	if err != nil {
		return workflow.Update{}, fmt.Errorf("%w: parse paper id: %w", workflow.ErrVisionFailed, err)
	}

	paper, err := rt.index.Find(ctx, paperID)
	if err != nil {
		return workflow.Update{}, fmt.Errorf("%w: find paper: %w", workflow.ErrVisionFailed, err)
	}

	candidates := vision.SelectPages(s.Contexts, paper.PageCount)
	if len(candidates) == 0 {
		return workflow.Update{}, fmt.Errorf("%w: no candidate pages", workflow.ErrVisionFailed)
	}

	finding, err := rt.analyst.Analyze(ctx, s.Question, paper.ContentHash, candidates)
	if err != nil {
		return workflow.Update{}, err
	}

	return workflow.Update{Finding: finding}, nil
}

func (rt *Runtime) synthesisTask(ctx context.Context, s workflow.State) (workflow.Update, error) {
	ctx, cancel := context.WithTimeout(ctx, rt.cfg.SynthesisTimeout)
	defer cancel()

	answer, err := rt.synth.Synthesize(ctx, s)
	if err != nil {
		return workflow.Update{}, err
	}

	return workflow.Update{Answer: answer}, nil
}
