package workflow

import "github.com/lectern-labs/lectern/pkg/graph"

// Reducers returns the merge registry for the query state schema, resolved
// once at graph-build time. Contexts uses append-combine (associative and
// commutative, so concurrent branch writes merge losslessly in any order);
// every other field is last-write with a single writer by construction.
func Reducers() (*graph.Reducers[State, Update], error) {
	r := graph.NewReducers[State, Update]()

	if err := r.Field("contexts", func(s *State, u Update) {
		s.Contexts = append(s.Contexts, u.Contexts...)
	}); err != nil {
		return nil, err
	}

	if err := r.Field("verdict", func(s *State, u Update) {
		if u.Verdict != "" {
			s.Verdict = u.Verdict
		}
	}); err != nil {
		return nil, err
	}

	if err := r.Field("finding", func(s *State, u Update) {
		if u.Finding != "" {
			s.Finding = u.Finding
		}
	}); err != nil {
		return nil, err
	}

	if err := r.Field("answer", func(s *State, u Update) {
		if u.Answer != "" {
			s.Answer = u.Answer
		}
	}); err != nil {
		return nil, err
	}

	return r, nil
}
