// Package workflow defines the shared state schema for Lectern's query
// graph: the chunk model with provenance metadata, the state record with
// its per-field merge reducers, and the failure taxonomy that separates
// recoverable branch failures from request-level ones.
package workflow

import "errors"

// Failure taxonomy. Retrieval, routing judgment, and vision analysis
// failures are recoverable: they degrade to an empty contribution rather
// than aborting the request. Parse failures and duplicate-index races
// belong to ingestion; only parse and synthesis failures surface to the
// caller.
var (
	ErrParseFailed     = errors.New("document parse failed")
	ErrRetrievalFailed = errors.New("retrieval failed")
	ErrJudgmentFailed  = errors.New("routing judgment failed")
	ErrVisionFailed    = errors.New("vision analysis failed")
	ErrSynthesisFailed = errors.New("answer synthesis failed")
	ErrDuplicateRace   = errors.New("concurrent ingest of identical content")
)
