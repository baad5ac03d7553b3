// Package chunker splits conversational text into bounded, overlapping
// segments for embedding. Overlap preserves semantic continuity across
// chunk boundaries so similarity search does not miss content that straddles
// a cut.
package chunker

import (
	"fmt"
	"unicode"
)

const (
	// DefaultChunkSize is the default maximum chunk length in runes.
	DefaultChunkSize = 1000

	// DefaultChunkOverlap is the default tail overlap between consecutive
	// chunks, in runes.
	DefaultChunkOverlap = 200

	// lookbackWindow is how far back from a hard boundary Split searches
	// for a natural break (whitespace or newline) before cutting mid-word.
	lookbackWindow = 100
)

// Chunker splits text into bounded overlapping chunks. The zero value is not
// usable; construct with New.
type Chunker struct {
	size    int
	overlap int
}

// New creates a Chunker with the given chunk size and overlap, both counted
// in runes. Size must be positive and overlap must be smaller than size.
func New(size, overlap int) (*Chunker, error) {
	if size <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", size)
	}
	if overlap < 0 || overlap >= size {
		return nil, fmt.Errorf("chunk overlap must be in [0, size), got %d with size %d", overlap, size)
	}
	return &Chunker{size: size, overlap: overlap}, nil
}

// Split splits text into ordered chunks. Deterministic for identical input
// and configuration. Empty input yields nil.
//
// Policy: greedily pack runes up to the chunk size; when a boundary falls
// mid-word, prefer the nearest whitespace within the lookback window, else
// hard-cut. Each chunk after the first starts overlap runes before the
// previous chunk's end.
func (c *Chunker) Split(text string) []string {
	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}
	if len(runes) <= c.size {
		return []string{text}
	}

	var chunks []string
	start := 0
	for start < len(runes) {
		end := start + c.size
		if end >= len(runes) {
			chunks = append(chunks, string(runes[start:]))
			break
		}

		cut := c.naturalBreak(runes, start, end)
		chunks = append(chunks, string(runes[start:cut]))

		next := cut - c.overlap
		// The overlap must never move the window backwards or stall it.
		if next <= start {
			next = cut
		}
		start = next
	}

	return chunks
}

// naturalBreak returns the cut position for a chunk spanning [start, end).
// It scans back from end looking for whitespace inside the lookback window;
// if none is found the hard boundary stands.
func (c *Chunker) naturalBreak(runes []rune, start, end int) int {
	limit := end - lookbackWindow
	if limit < start+1 {
		limit = start + 1
	}
	for i := end; i > limit; i-- {
		if unicode.IsSpace(runes[i-1]) {
			return i
		}
	}
	return end
}

// Size returns the configured maximum chunk length in runes.
func (c *Chunker) Size() int { return c.size }

// Overlap returns the configured chunk overlap in runes.
func (c *Chunker) Overlap() int { return c.overlap }
