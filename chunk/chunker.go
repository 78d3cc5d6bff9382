// Package chunk splits extracted page text into bounded-length chunks.
package chunk

import (
	"strings"
	"unicode"

	"github.com/fwojciec/doccrawl"
)

// Ensure Chunker implements doccrawl.Chunker at compile time.
var _ doccrawl.Chunker = (*Chunker)(nil)

// Chunker splits text into chunks of at most Size characters, preferring to
// cut at paragraph breaks, then line breaks, then sentence ends, then any
// whitespace. A word longer than Size is cut hard.
type Chunker struct {
	size    int
	overlap int
}

// Option configures a Chunker.
type Option func(*Chunker)

// WithSize sets the maximum chunk length in characters.
func WithSize(n int) Option {
	return func(c *Chunker) {
		c.size = n
	}
}

// WithOverlap sets how many trailing characters of a chunk are repeated at
// the start of the next one. The overlap is snapped forward to a word
// boundary, so the repeated text may be shorter.
func WithOverlap(n int) Option {
	return func(c *Chunker) {
		c.overlap = n
	}
}

// New creates a Chunker. Without options it uses doccrawl.DefaultChunkSize
// and no overlap.
func New(opts ...Option) *Chunker {
	c := &Chunker{size: doccrawl.DefaultChunkSize}
	for _, opt := range opts {
		opt(c)
	}
	if c.size < 1 {
		c.size = doccrawl.DefaultChunkSize
	}
	if c.overlap < 0 || c.overlap >= c.size {
		c.overlap = 0
	}
	return c
}

// Chunk splits text into ordered chunks tagged with url.
// With zero overlap, concatenating the chunk contents yields Normalize(text).
func (c *Chunker) Chunk(url string, text string) []doccrawl.Chunk {
	runes := []rune(Normalize(text))
	n := len(runes)
	if n == 0 {
		return nil
	}

	var chunks []doccrawl.Chunk
	start := 0
	for start < n {
		end := start + c.size
		if end >= n {
			chunks = append(chunks, newChunk(url, runes[start:n], len(chunks)))
			break
		}

		cut := c.findCut(runes, start, end)
		chunks = append(chunks, newChunk(url, runes[start:cut], len(chunks)))
		start = c.nextStart(runes, start, cut)
	}
	return chunks
}

func newChunk(url string, content []rune, index int) doccrawl.Chunk {
	return doccrawl.Chunk{
		Content:     string(content),
		URL:         url,
		ChunkLength: len(content),
		Index:       index,
	}
}

// findCut returns the exclusive end of the chunk starting at start.
// The returned position is in (start, end]. Boundary cuts fall between the
// boundary whitespace and the next visible rune, so a chunk only begins
// with whitespace after a hard cut and never consists of whitespace alone.
func (c *Chunker) findCut(r []rune, start, end int) int {
	// The chunk must hold at least one visible rune.
	first := start
	for first < end && unicode.IsSpace(r[first]) {
		first++
	}
	lo := first + 1
	floor := max(start+c.size/2, lo)

	for _, match := range []func([]rune, int) bool{isParagraphBreak, isLineBreak, isSentenceEnd} {
		if p := lastIndex(r, floor, end, match); p > 0 {
			return p
		}
	}
	if p := lastIndex(r, lo, end, isSpaceBefore); p > 0 {
		return p
	}
	return end
}

func (c *Chunker) nextStart(r []rune, start, cut int) int {
	if c.overlap == 0 {
		return cut
	}
	s := cut - c.overlap
	for s < cut && s > 0 && !unicode.IsSpace(r[s-1]) {
		s++
	}
	for s < cut && unicode.IsSpace(r[s]) {
		s++
	}
	if s <= start || s >= cut {
		return cut
	}
	return s
}

// lastIndex returns the largest p in [lo, hi] with match(r, p) that is
// followed by a visible rune or the end of text, or -1.
func lastIndex(r []rune, lo, hi int, match func([]rune, int) bool) int {
	for p := hi; p >= lo; p-- {
		if p < len(r) && unicode.IsSpace(r[p]) {
			continue
		}
		if match(r, p) {
			return p
		}
	}
	return -1
}

func isParagraphBreak(r []rune, p int) bool {
	return p >= 2 && r[p-1] == '\n' && r[p-2] == '\n'
}

func isLineBreak(r []rune, p int) bool {
	return p >= 1 && r[p-1] == '\n'
}

func isSentenceEnd(r []rune, p int) bool {
	if p < 2 || !unicode.IsSpace(r[p-1]) {
		return false
	}
	switch r[p-2] {
	case '.', '!', '?':
		return true
	}
	return false
}

func isSpaceBefore(r []rune, p int) bool {
	return p >= 1 && unicode.IsSpace(r[p-1])
}

// Normalize canonicalizes whitespace: line endings become "\n", runs of
// other whitespace collapse to one space, lines are trimmed, and more than
// one blank line collapses to a single paragraph break.
func Normalize(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")

	lines := strings.Split(text, "\n")
	var b strings.Builder
	b.Grow(len(text))
	blank := 0
	wrote := false
	for _, line := range lines {
		line = strings.Join(strings.FieldsFunc(line, isHorizontalSpace), " ")
		if line == "" {
			blank++
			continue
		}
		if wrote {
			if blank > 0 {
				b.WriteString("\n\n")
			} else {
				b.WriteByte('\n')
			}
		}
		b.WriteString(line)
		wrote = true
		blank = 0
	}
	return b.String()
}

func isHorizontalSpace(r rune) bool {
	return r != '\n' && unicode.IsSpace(r)
}
