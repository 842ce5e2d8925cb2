// Package graph implements a directed task graph executor with fan-out,
// fan-in, conditional edges, and per-field merge reducers over a shared
// state record. Tasks with satisfied predecessors run concurrently; a
// task's recoverable failure is replaced by its declared fallback update
// and never aborts sibling tasks.
package graph

import (
	"errors"
	"fmt"
)

// Graph construction errors, surfaced at build time.
var (
	ErrInvalidReducer = errors.New("invalid reducer registration")
	ErrDuplicateTask  = errors.New("task already registered")
	ErrUnknownTask    = errors.New("unknown task")
	ErrNoEntry        = errors.New("entry point not set")
	ErrMixedEdges     = errors.New("task declares both static edges and a router")
	ErrDuplicateEdge  = errors.New("edge already declared")
	ErrCycle          = errors.New("graph contains a cycle")
	ErrUnreachable    = errors.New("task unreachable from entry")
)

// ErrBadRoute indicates a router returned a tag outside its declared
// target set. The target set is closed at build time, so this is a
// programming error in the route function itself.
var ErrBadRoute = errors.New("router returned undeclared target")

// TaskError wraps a task failure that had no declared fallback and
// therefore aborted the execution.
type TaskError struct {
	Task string
	Err  error
}

func (e *TaskError) Error() string {
	return fmt.Sprintf("task %s: %v", e.Task, e.Err)
}

func (e *TaskError) Unwrap() error {
	return e.Err
}
