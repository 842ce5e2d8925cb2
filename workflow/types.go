package workflow

import "slices"

// Source identifies where a retrieved chunk came from.
type Source string

// Chunk provenance values.
const (
	SourceLocal    Source = "local"
	SourceExternal Source = "external"
)

// ElementKind classifies the document element a local chunk was extracted
// from. It is set at ingestion time and never inferred later; an empty kind
// is treated as text.
type ElementKind string

// Element kinds recognized at ingestion.
const (
	ElementText   ElementKind = "text"
	ElementTable  ElementKind = "table"
	ElementImage  ElementKind = "image"
	ElementFigure ElementKind = "figure"
)

// Visual reports whether the element kind is one the vision engine treats
// as a visual artifact.
func (k ElementKind) Visual() bool {
	return k == ElementTable || k == ElementImage || k == ElementFigure
}

// Element is one parsed unit of a source document before chunking. Text may
// be empty for visual elements; the chunker substitutes a placeholder so the
// index retains a record of them.
type Element struct {
	Page int         `json:"page"`
	Kind ElementKind `json:"kind"`
	Text string      `json:"text"`
}

// Chunk is one retrievable unit of content with provenance metadata.
// Local chunks carry a page number and element kind; external chunks carry
// a locator (URL). Content may be a generated placeholder when the source
// element had no extractable text.
type Chunk struct {
	Content string      `json:"content"`
	Source  Source      `json:"source"`
	Page    int         `json:"page,omitempty"`
	Locator string      `json:"locator,omitempty"`
	Kind    ElementKind `json:"kind,omitempty"`
}

// Local reports whether the chunk came from the local corpus.
func (c Chunk) Local() bool {
	return c.Source == SourceLocal
}

// Verdict is the vision routing decision. The zero value means the router
// has not run yet; a terminal verdict is never revisited.
type Verdict string

// Vision routing verdicts.
const (
	VisionNeeded    Verdict = "needed"
	VisionNotNeeded Verdict = "not_needed"
)

// State is the record threaded through one query's task graph. It is owned
// exclusively by a single execution; Question and PaperID are immutable for
// the life of the request, Contexts merges concurrent appends, and the
// remaining fields are each written by at most one task.
type State struct {
	Question string  `json:"question"`
	PaperID  string  `json:"paper_id"`
	Contexts []Chunk `json:"contexts"`
	Verdict  Verdict `json:"verdict,omitempty"`
	Finding  string  `json:"finding,omitempty"`
	Answer   string  `json:"answer,omitempty"`
}

// Update is a task's partial contribution to the State. Zero-valued fields
// contribute nothing; each non-zero field merges through its registered
// reducer.
type Update struct {
	Contexts []Chunk
	Verdict  Verdict
	Finding  string
	Answer   string
}

// SourcePages returns the distinct page numbers referenced by local chunks,
// ascending.
func (s State) SourcePages() []int {
	return Pages(s.Contexts)
}

// Pages returns the distinct page numbers referenced by local chunks in the
// given set, ascending.
func Pages(chunks []Chunk) []int {
	seen := make(map[int]struct{})
	var pages []int
	for _, c := range chunks {
		if !c.Local() || c.Page < 1 {
			continue
		}
		if _, ok := seen[c.Page]; ok {
			continue
		}
		seen[c.Page] = struct{}{}
		pages = append(pages, c.Page)
	}

	slices.Sort(pages)
	return pages
}
