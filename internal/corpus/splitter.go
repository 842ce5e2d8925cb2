package corpus

import (
	"strings"
	"unicode/utf8"
)

// defaultSeparators orders split boundaries from most to least structural.
// The empty separator is the terminal fallback: fixed-size windows.
var defaultSeparators = []string{"\n\n", "\n", " ", ""}

// Splitter divides text into chunks of at most Size runes, carrying Overlap
// runes of trailing context into each successive chunk. Boundaries prefer
// paragraph breaks, then line breaks, then spaces. Sizes are measured in
// runes so multibyte scripts chunk the same as ASCII.
type Splitter struct {
	size       int
	overlap    int
	separators []string
}

// NewSplitter creates a splitter with the given rune budget and overlap.
func NewSplitter(size, overlap int) *Splitter {
	if size < 1 {
		size = 1
	}
	if overlap < 0 || overlap >= size {
		overlap = 0
	}
	return &Splitter{
		size:       size,
		overlap:    overlap,
		separators: defaultSeparators,
	}
}

// Split returns the chunks of text. Whitespace-only chunks are dropped.
func (s *Splitter) Split(text string) []string {
	var chunks []string
	s.split(text, s.separators, &chunks)
	return chunks
}

func (s *Splitter) split(text string, separators []string, out *[]string) {
	if utf8.RuneCountInString(text) <= s.size {
		s.emit(text, out)
		return
	}

	sep, rest := pick(text, separators)
	if sep == "" {
		s.windows(text, out)
		return
	}

	sepLen := utf8.RuneCountInString(sep)
	var b strings.Builder
	length := 0

	flush := func() {
		chunk := b.String()
		if utf8.RuneCountInString(chunk) > s.size {
			s.split(chunk, rest, out)
		} else {
			s.emit(chunk, out)
		}

		carry := tail(chunk, s.overlap)
		b.Reset()
		b.WriteString(carry)
		length = utf8.RuneCountInString(carry)
	}

	for _, part := range strings.Split(text, sep) {
		partLen := utf8.RuneCountInString(part)
		if length > 0 && length+sepLen+partLen > s.size {
			flush()
		}
		if length > 0 {
			b.WriteString(sep)
			length += sepLen
		}
		b.WriteString(part)
		length += partLen
	}

	final := b.String()
	if utf8.RuneCountInString(final) > s.size {
		s.split(final, rest, out)
	} else {
		s.emit(final, out)
	}
}

// windows covers text with fixed-size rune windows stepping by size-overlap.
func (s *Splitter) windows(text string, out *[]string) {
	runes := []rune(text)
	step := s.size - s.overlap

	for start := 0; start < len(runes); start += step {
		end := min(start+s.size, len(runes))
		s.emit(string(runes[start:end]), out)
		if end == len(runes) {
			break
		}
	}
}

func (s *Splitter) emit(chunk string, out *[]string) {
	if strings.TrimSpace(chunk) == "" {
		return
	}
	*out = append(*out, chunk)
}

// pick selects the first separator present in text and returns it with the
// remaining fallbacks.
func pick(text string, separators []string) (string, []string) {
	for i, sep := range separators {
		if sep == "" {
			return "", nil
		}
		if strings.Contains(text, sep) {
			return sep, separators[i+1:]
		}
	}
	return "", nil
}

// tail returns the last n runes of text.
func tail(text string, n int) string {
	if n <= 0 {
		return ""
	}
	runes := []rune(text)
	if len(runes) <= n {
		return text
	}
	return string(runes[len(runes)-n:])
}
