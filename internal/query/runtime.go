// Package query builds and runs the question-answering task graph. Two
// retrieval branches fan out from the entry task, merge into the vision
// router, and a conditional edge decides whether visual analysis runs before
// synthesis. Retrieval and analysis branches degrade on failure instead of
// aborting the request.
package query

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/lectern-labs/lectern/internal/config"
	"github.com/lectern-labs/lectern/internal/index"
	"github.com/lectern-labs/lectern/internal/retrieval"
	"github.com/lectern-labs/lectern/internal/vision"
	"github.com/lectern-labs/lectern/pkg/graph"
	"github.com/lectern-labs/lectern/workflow"
)

// Task names as they appear in stream events.
const (
	TaskPlan          = "plan"
	TaskLocalRetrieve = "local_retriever"
	TaskWebSearch     = "web_searcher"
	TaskVisionRouter  = "vision_router"
	TaskVisionAnalyst = "vision_analyst"
	TaskSynthesis     = "synthesis"
)

const synthesisFallback = "답변 생성 중 오류가 발생했습니다."

// Runtime bundles the collaborators the graph tasks require and holds the
// built graph. It is constructed once and shared across requests; each run
// owns its state instance exclusively.
type Runtime struct {
	retrieval retrieval.System
	router    vision.Router
	analyst   vision.Analyst
	index     index.System
	synth     Synthesizer
	cfg       config.QueryConfig
	graph     *graph.Graph[workflow.State, workflow.Update]
	logger    *slog.Logger
}

// NewRuntime creates the query runtime and builds its task graph.
func NewRuntime(
	cfg config.QueryConfig,
	ret retrieval.System,
	router vision.Router,
	analyst vision.Analyst,
	idx index.System,
	synth Synthesizer,
	logger *slog.Logger,
) (*Runtime, error) {
	rt := &Runtime{
		retrieval: ret,
		router:    router,
		analyst:   analyst,
		index:     idx,
		synth:     synth,
		cfg:       cfg,
		logger:    logger.With("system", "query"),
	}

	g, err := rt.buildGraph()
	if err != nil {
		return nil, fmt.Errorf("build query graph: %w", err)
	}
	rt.graph = g

	return rt, nil
}

func (rt *Runtime) buildGraph() (*graph.Graph[workflow.State, workflow.Update], error) {
	reducers, err := workflow.Reducers()
	if err != nil {
		return nil, err
	}

	b := graph.New("query", reducers)
	steps := []error{
		b.Task(TaskPlan, rt.planTask),
		b.TaskWithFallback(TaskLocalRetrieve, rt.localTask, workflow.Update{}),
		b.TaskWithFallback(TaskWebSearch, rt.webTask, workflow.Update{}),
		b.Task(TaskVisionRouter, rt.routerTask),
		b.TaskWithFallback(TaskVisionAnalyst, rt.analystTask, workflow.Update{}),
		b.TaskWithFallback(TaskSynthesis, rt.synthesisTask, workflow.Update{Answer: synthesisFallback}),

		b.Edge(TaskPlan, TaskLocalRetrieve),
		b.Edge(TaskPlan, TaskWebSearch),
		b.Edge(TaskLocalRetrieve, TaskVisionRouter),
		b.Edge(TaskWebSearch, TaskVisionRouter),
		b.Route(TaskVisionRouter, routeVision, TaskVisionAnalyst, TaskSynthesis),
		b.Edge(TaskVisionAnalyst, TaskSynthesis),
		b.Entry(TaskPlan),
	}
	if err := errors.Join(steps...); err != nil {
		return nil, err
	}

	return b.Build()
}

// routeVision selects the conditional branch after the router's verdict has
// merged into state.
func routeVision(s workflow.State) string {
	if s.Verdict == workflow.VisionNeeded {
		return TaskVisionAnalyst
	}
	return TaskSynthesis
}
