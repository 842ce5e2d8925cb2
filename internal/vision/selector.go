package vision

import (
	"slices"

	"github.com/lectern-labs/lectern/workflow"
)

// MaxPages caps the candidate set handed to the analyst.
const MaxPages = 5

// SelectPages returns the candidate pages for visual analysis. Each page
// referenced by a local chunk expands to its neighbors, since figures and
// tables often sit adjacent to the paragraph that cites them. Pages are
// clamped to [1, pageCount], deduplicated, ordered ascending, and capped at
// MaxPages. An empty referenced set returns nil; the caller must treat that
// as no candidates, not guess a default range.
func SelectPages(contexts []workflow.Chunk, pageCount int) []int {
	referenced := workflow.Pages(contexts)
	if len(referenced) == 0 {
		return nil
	}

	seen := make(map[int]struct{})
	var candidates []int
	for _, p := range referenced {
		for _, n := range []int{p - 1, p, p + 1} {
			if n < 1 {
				continue
			}
			if pageCount > 0 && n > pageCount {
				continue
			}
			if _, ok := seen[n]; ok {
				continue
			}
			seen[n] = struct{}{}
			candidates = append(candidates, n)
		}
	}

	slices.Sort(candidates)
	if len(candidates) > MaxPages {
		candidates = candidates[:MaxPages]
	}

	return candidates
}
