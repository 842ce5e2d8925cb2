package graph

import "fmt"

// Reducer combines one field of a partial update into the shared state.
// Reducers for fields written by concurrently scheduled tasks must be
// associative and commutative (e.g. append); single-writer fields may use
// last-write semantics.
type Reducer[S, U any] func(s *S, u U)

// Reducers is the per-field merge registry for a graph's state schema.
// Every field is bound to exactly one reducer at graph-build time; there is
// no implicit overwrite default for an unregistered field.
type Reducers[S, U any] struct {
	fields []reducerField[S, U]
	names  map[string]struct{}
}

type reducerField[S, U any] struct {
	name  string
	apply Reducer[S, U]
}

// NewReducers creates an empty reducer registry.
func NewReducers[S, U any]() *Reducers[S, U] {
	return &Reducers[S, U]{
		names: make(map[string]struct{}),
	}
}

// Field registers the reducer for a named state field.
// Registering the same field twice is a configuration error.
func (r *Reducers[S, U]) Field(name string, apply Reducer[S, U]) error {
	if name == "" {
		return fmt.Errorf("%w: empty field name", ErrInvalidReducer)
	}
	if apply == nil {
		return fmt.Errorf("%w: nil reducer for field %q", ErrInvalidReducer, name)
	}
	if _, ok := r.names[name]; ok {
		return fmt.Errorf("%w: field %q registered twice", ErrInvalidReducer, name)
	}

	r.names[name] = struct{}{}
	r.fields = append(r.fields, reducerField[S, U]{name: name, apply: apply})
	return nil
}

// Apply merges a partial update into the state, field by field,
// in registration order.
func (r *Reducers[S, U]) Apply(s *S, u U) {
	for _, f := range r.fields {
		f.apply(s, u)
	}
}

// Fields returns the registered field names in registration order.
func (r *Reducers[S, U]) Fields() []string {
	names := make([]string, len(r.fields))
	for i, f := range r.fields {
		names[i] = f.name
	}
	return names
}
