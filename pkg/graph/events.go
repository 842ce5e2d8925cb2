package graph

// EventKind identifies a task lifecycle event.
type EventKind string

// Task lifecycle events emitted by the executor.
const (
	TaskStarted  EventKind = "task_started"
	TaskFinished EventKind = "task_finished"
)

// Event reports a task starting or finishing during an execution.
// Degraded marks a task that completed through its fallback update after a
// recoverable error; Err carries that error for observability. Events are
// delivered from the scheduler goroutine in actual completion order, not
// graph declaration order.
type Event struct {
	Kind     EventKind
	Task     string
	Degraded bool
	Err      error
}

// Observer receives executor events. Observers must not block for long;
// they run on the scheduler goroutine.
type Observer func(Event)
