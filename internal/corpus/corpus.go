// Package corpus converts parsed document elements into the parent/child
// chunk hierarchy used by the retrieval index. Children are small enough for
// dense vector search; each child points back to the parent section whose
// full text is returned at query time.
package corpus

import (
	"fmt"
	"strings"

	"github.com/lectern-labs/lectern/workflow"
)

// Chunk geometry. Children target ~400 tokens for embedding precision,
// parents ~2000 tokens for answer context.
const (
	ChildChunkSize    = 1600
	ChildChunkOverlap = 200

	ParentChunkSize    = 8000
	ParentChunkOverlap = 400
)

// Parent is one section-scale chunk together with the child chunks derived
// from it. Children are what get embedded; the parent content is what gets
// surfaced on a child match.
type Parent struct {
	Content  string
	Page     int
	Kind     workflow.ElementKind
	Children []string
}

// Build converts parsed elements into the parent/child hierarchy. Visual
// elements with no extractable text become placeholder chunks so the index
// keeps a record of every table and figure; empty text elements are dropped.
func Build(elements []workflow.Element) []Parent {
	parentSplitter := NewSplitter(ParentChunkSize, ParentChunkOverlap)
	childSplitter := NewSplitter(ChildChunkSize, ChildChunkOverlap)

	var parents []Parent
	for _, elem := range normalize(elements) {
		for _, content := range parentSplitter.Split(elem.Text) {
			parents = append(parents, Parent{
				Content:  content,
				Page:     elem.Page,
				Kind:     elem.Kind,
				Children: childSplitter.Split(content),
			})
		}
	}

	return parents
}

// normalize trims element text and substitutes placeholders for text-less
// visual elements. Placeholders keep the original Korean labels so retrieval
// vocabulary matches the questions this corpus serves.
func normalize(elements []workflow.Element) []workflow.Element {
	out := make([]workflow.Element, 0, len(elements))

	for _, elem := range elements {
		text := strings.TrimSpace(elem.Text)
		if text == "" {
			switch elem.Kind {
			case workflow.ElementImage, workflow.ElementFigure:
				text = fmt.Sprintf("[그림 - 페이지 %d]", elem.Page)
			case workflow.ElementTable:
				text = fmt.Sprintf("[표 - 페이지 %d]", elem.Page)
			default:
				continue
			}
		}

		elem.Text = text
		if elem.Kind == "" {
			elem.Kind = workflow.ElementText
		}
		out = append(out, elem)
	}

	return out
}
