package graph

import (
	"context"
	"fmt"
	"slices"
)

type edgeState uint8

const (
	edgePending edgeState = iota
	edgeFired
	edgeSkipped
)

type result[U any] struct {
	task   string
	update U
	err    error
}

// Execute runs the graph against one state instance and returns the final
// state. Reducer application happens only on the scheduler goroutine, so
// concurrent updates to the same field merge without destructive races;
// for associative and commutative reducers the outcome is independent of
// completion order.
//
// A fan-in task is scheduled only after every incoming edge has resolved,
// so it always observes the fully merged contributions of all predecessor
// branches. A conditional successor that is never selected is skipped, and
// skipping propagates: a task all of whose incoming edges are skipped is
// itself skipped.
//
// Cancellation stops scheduling immediately; tasks already running are
// drained and their results discarded without reducer application.
func (g *Graph[S, U]) Execute(ctx context.Context, initial S, observe Observer) (S, error) {
	if observe == nil {
		observe = func(Event) {}
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	state := initial
	results := make(chan result[U])
	running := 0

	launched := make(map[string]bool, len(g.tasks))
	skipped := make(map[string]bool, len(g.tasks))
	edges := make(map[string]map[string]edgeState, len(g.tasks))
	for name, preds := range g.in {
		edges[name] = make(map[string]edgeState, len(preds))
		for _, pred := range preds {
			edges[name][pred] = edgePending
		}
	}

	start := func(name string) {
		launched[name] = true
		running++
		observe(Event{Kind: TaskStarted, Task: name})

		fn := g.tasks[name].fn
		snapshot := state
		go func() {
			update, err := fn(ctx, snapshot)
			results <- result[U]{task: name, update: update, err: err}
		}()
	}

	drain := func() {
		cancel()
		for running > 0 {
			<-results
			running--
		}
	}

	// resolve marks every outgoing edge of name with st. For routers,
	// selected names the chosen target; all other targets are skipped
	// regardless of st, and a skipped router (empty selected) skips all.
	resolve := func(name, selected string, st edgeState) {
		t := g.tasks[name]
		if t.route != nil {
			for _, target := range t.targets {
				if target == selected {
					edges[target][name] = st
				} else {
					edges[target][name] = edgeSkipped
				}
			}
			return
		}
		for _, target := range g.out[name] {
			edges[target][name] = st
		}
	}

	// settle starts every task whose incoming edges have all resolved with
	// at least one fired, and skips tasks whose edges all resolved with
	// none fired, propagating skips until a fixpoint.
	var settle func()
	settle = func() {
		for changed := true; changed; {
			changed = false
			for name := range g.tasks {
				if launched[name] || skipped[name] || name == g.entry {
					continue
				}

				resolved, fired := true, false
				for _, st := range edges[name] {
					switch st {
					case edgePending:
						resolved = false
					case edgeFired:
						fired = true
					}
				}
				if !resolved || len(edges[name]) == 0 {
					continue
				}

				if fired {
					start(name)
				} else {
					skipped[name] = true
					resolve(name, "", edgeSkipped)
				}
				changed = true
			}
		}
	}

	start(g.entry)

	for running > 0 {
		select {
		case <-ctx.Done():
			drain()
			return state, ctx.Err()

		case res := <-results:
			running--
			t := g.tasks[res.task]

			if res.err != nil {
				if t.fallback == nil {
					drain()
					return state, &TaskError{Task: res.task, Err: res.err}
				}
				g.reducers.Apply(&state, *t.fallback)
				observe(Event{Kind: TaskFinished, Task: res.task, Degraded: true, Err: res.err})
			} else {
				g.reducers.Apply(&state, res.update)
				observe(Event{Kind: TaskFinished, Task: res.task})
			}

			selected := ""
			if t.route != nil {
				selected = t.route(state)
				if !slices.Contains(t.targets, selected) {
					drain()
					return state, fmt.Errorf("%w: task %s returned %q", ErrBadRoute, res.task, selected)
				}
			}

			resolve(res.task, selected, edgeFired)
			settle()
		}
	}

	return state, nil
}
