package graph

import (
	"context"
	"fmt"
)

// TaskFunc is a pure function from the current state to a partial update.
// Implementations must treat the state snapshot as read-only; all writes
// flow through the reducer registry.
type TaskFunc[S, U any] func(ctx context.Context, s S) (U, error)

// RouteFunc selects exactly one successor tag for a conditional edge.
// It observes the state after the routing task's own update has merged.
type RouteFunc[S any] func(s S) string

type task[S, U any] struct {
	name     string
	fn       TaskFunc[S, U]
	fallback *U
	route    RouteFunc[S]
	targets  []string
}

type edge struct {
	from, to string
}

// Builder accumulates tasks and edges for a Graph. All structural errors
// (unknown names, mixed edge kinds, cycles) surface from the builder or
// from Build, never at execution time.
type Builder[S, U any] struct {
	name     string
	reducers *Reducers[S, U]
	tasks    map[string]*task[S, U]
	edges    []edge
	entry    string
}

// New creates a graph builder bound to a reducer registry.
func New[S, U any](name string, reducers *Reducers[S, U]) *Builder[S, U] {
	return &Builder[S, U]{
		name:     name,
		reducers: reducers,
		tasks:    make(map[string]*task[S, U]),
	}
}

// Task registers a named task. A failure in a task without a fallback
// aborts the execution (see TaskError).
func (b *Builder[S, U]) Task(name string, fn TaskFunc[S, U]) error {
	return b.addTask(name, fn, nil)
}

// TaskWithFallback registers a named task whose recoverable failures are
// replaced by the given fallback update.
func (b *Builder[S, U]) TaskWithFallback(name string, fn TaskFunc[S, U], fallback U) error {
	return b.addTask(name, fn, &fallback)
}

func (b *Builder[S, U]) addTask(name string, fn TaskFunc[S, U], fallback *U) error {
	if name == "" {
		return fmt.Errorf("%w: empty task name", ErrUnknownTask)
	}
	if _, ok := b.tasks[name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateTask, name)
	}

	b.tasks[name] = &task[S, U]{name: name, fn: fn, fallback: fallback}
	return nil
}

// Edge declares a static edge: to starts once all of its predecessors
// complete (fan-in); a completed task fires all of its static successors
// (fan-out).
func (b *Builder[S, U]) Edge(from, to string) error {
	if _, ok := b.tasks[from]; !ok {
		return fmt.Errorf("%w: edge source %s", ErrUnknownTask, from)
	}
	if _, ok := b.tasks[to]; !ok {
		return fmt.Errorf("%w: edge target %s", ErrUnknownTask, to)
	}
	for _, e := range b.edges {
		if e.from == from && e.to == to {
			return fmt.Errorf("%w: %s -> %s", ErrDuplicateEdge, from, to)
		}
	}

	b.edges = append(b.edges, edge{from: from, to: to})
	return nil
}

// Route declares a conditional edge set: after from completes, route picks
// exactly one of targets; the unselected targets are not scheduled for that
// execution. The target set is closed here; a route function returning any
// other tag fails the execution with ErrBadRoute.
func (b *Builder[S, U]) Route(from string, route RouteFunc[S], targets ...string) error {
	t, ok := b.tasks[from]
	if !ok {
		return fmt.Errorf("%w: router source %s", ErrUnknownTask, from)
	}
	if t.route != nil {
		return fmt.Errorf("%w: %s already routes", ErrDuplicateEdge, from)
	}
	if len(targets) == 0 {
		return fmt.Errorf("%w: router %s has no targets", ErrUnknownTask, from)
	}

	seen := make(map[string]struct{}, len(targets))
	for _, target := range targets {
		if _, ok := b.tasks[target]; !ok {
			return fmt.Errorf("%w: router target %s", ErrUnknownTask, target)
		}
		if _, dup := seen[target]; dup {
			return fmt.Errorf("%w: %s -> %s", ErrDuplicateEdge, from, target)
		}
		seen[target] = struct{}{}
	}

	t.route = route
	t.targets = append([]string(nil), targets...)
	return nil
}

// Entry sets the single entry point task.
func (b *Builder[S, U]) Entry(name string) error {
	if _, ok := b.tasks[name]; !ok {
		return fmt.Errorf("%w: entry %s", ErrUnknownTask, name)
	}
	b.entry = name
	return nil
}

// Build validates the declared structure and returns an executable Graph.
func (b *Builder[S, U]) Build() (*Graph[S, U], error) {
	if b.entry == "" {
		return nil, fmt.Errorf("graph %s: %w", b.name, ErrNoEntry)
	}

	g := &Graph[S, U]{
		name:     b.name,
		entry:    b.entry,
		reducers: b.reducers,
		tasks:    b.tasks,
		in:       make(map[string][]string),
		out:      make(map[string][]string),
	}

	for _, e := range b.edges {
		if b.tasks[e.from].route != nil {
			return nil, fmt.Errorf("graph %s: %w: %s", b.name, ErrMixedEdges, e.from)
		}
		g.out[e.from] = append(g.out[e.from], e.to)
		g.in[e.to] = append(g.in[e.to], e.from)
	}
	for name, t := range b.tasks {
		for _, target := range t.targets {
			g.in[target] = append(g.in[target], name)
		}
	}

	if err := g.checkAcyclic(); err != nil {
		return nil, fmt.Errorf("graph %s: %w", b.name, err)
	}

	if err := g.checkReachable(); err != nil {
		return nil, fmt.Errorf("graph %s: %w", b.name, err)
	}

	return g, nil
}

// Graph is an executable task graph. It is immutable after Build and safe
// to execute from multiple goroutines; each Execute call owns its state
// instance exclusively.
type Graph[S, U any] struct {
	name     string
	entry    string
	reducers *Reducers[S, U]
	tasks    map[string]*task[S, U]
	in       map[string][]string
	out      map[string][]string
}

// Name returns the graph's name.
func (g *Graph[S, U]) Name() string {
	return g.name
}

func (g *Graph[S, U]) successors(name string) []string {
	t := g.tasks[name]
	if t.route != nil {
		return t.targets
	}
	return g.out[name]
}

func (g *Graph[S, U]) checkAcyclic() error {
	const (
		unvisited = iota
		visiting
		done
	)

	marks := make(map[string]int, len(g.tasks))

	var visit func(name string) error
	visit = func(name string) error {
		switch marks[name] {
		case visiting:
			return fmt.Errorf("%w: at %s", ErrCycle, name)
		case done:
			return nil
		}

		marks[name] = visiting
		for _, next := range g.successors(name) {
			if err := visit(next); err != nil {
				return err
			}
		}
		marks[name] = done
		return nil
	}

	for name := range g.tasks {
		if err := visit(name); err != nil {
			return err
		}
	}
	return nil
}

func (g *Graph[S, U]) checkReachable() error {
	reached := make(map[string]bool, len(g.tasks))
	queue := []string{g.entry}
	reached[g.entry] = true

	for len(queue) > 0 {
		name := queue[0]
		queue = queue[1:]
		for _, next := range g.successors(name) {
			if !reached[next] {
				reached[next] = true
				queue = append(queue, next)
			}
		}
	}

	for name := range g.tasks {
		if !reached[name] {
			return fmt.Errorf("%w: %s", ErrUnreachable, name)
		}
	}
	return nil
}
