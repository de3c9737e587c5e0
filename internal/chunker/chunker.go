// Package chunker splits plain text into overlapping, boundary-aware chunks.
package chunker

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrInvalidConfig is returned by New for unusable window/overlap parameters.
var ErrInvalidConfig = errors.New("invalid chunker configuration")

// Chunk is one window of cleaned text. Start and End are character offsets
// into the cleaned text; End of the last chunk equals the cleaned length.
type Chunk struct {
	ID    string
	Index int
	Text  string
	Start int
	End   int
	Total int
}

// TextChunker slides a fixed-size window over cleaned text, preferring to
// cut at sentence or word boundaries. It is a pure function of its inputs
// and safe to use concurrently.
type TextChunker struct {
	windowSize int
	overlap    int
}

// New validates the window parameters. Overlap must be strictly smaller
// than the window size, otherwise the window cannot advance.
func New(windowSize, overlap int) (*TextChunker, error) {
	if windowSize <= 0 {
		return nil, fmt.Errorf("%w: window size must be positive, got %d", ErrInvalidConfig, windowSize)
	}
	if overlap < 0 {
		return nil, fmt.Errorf("%w: overlap must be non-negative, got %d", ErrInvalidConfig, overlap)
	}
	if overlap >= windowSize {
		return nil, fmt.Errorf("%w: overlap %d must be less than window size %d", ErrInvalidConfig, overlap, windowSize)
	}
	return &TextChunker{windowSize: windowSize, overlap: overlap}, nil
}

var (
	whitespaceRe = regexp.MustCompile(`\s+`)
	controlRe    = regexp.MustCompile("[\x00-\x08\x0B\x0C\x0E-\x1F\x7F]")
)

// Clean collapses whitespace runs to single spaces, strips control
// characters and trims the result. All chunk positions refer to the
// cleaned form of the input.
func Clean(text string) string {
	if text == "" {
		return ""
	}
	text = whitespaceRe.ReplaceAllString(text, " ")
	text = controlRe.ReplaceAllString(text, "")
	return strings.TrimSpace(text)
}

// Chunk splits text into overlapping chunks. Empty or whitespace-only
// input yields no chunks; it is not an error.
func (c *TextChunker) Chunk(text, fileID string) []Chunk {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	cleaned := []rune(Clean(text))
	n := len(cleaned)
	if n == 0 {
		return nil
	}

	if n <= c.windowSize {
		return []Chunk{{
			ID:    chunkID(fileID, 0),
			Index: 0,
			Text:  string(cleaned),
			Start: 0,
			End:   n,
			Total: 1,
		}}
	}

	var chunks []Chunk
	pos := 0
	index := 0

	for pos < n {
		end := pos + c.windowSize
		if end > n {
			end = n
		}
		if end < n {
			// Not the final chunk: prefer a sentence or word boundary.
			end = breakAtBoundary(cleaned, pos, end)
		}

		chunks = append(chunks, Chunk{
			ID:    chunkID(fileID, index),
			Index: index,
			Text:  string(cleaned[pos:end]),
			Start: pos,
			End:   end,
		})

		next := end - c.overlap
		if next <= pos {
			// The overlap would revisit the chunk we just emitted; drop it
			// for this step so the loop always advances.
			next = end
		}
		pos = next
		index++
	}

	for i := range chunks {
		chunks[i].Total = len(chunks)
	}
	return chunks
}

// breakAtBoundary searches backward from the tentative end for a sentence
// ending within the last 100 characters, then for a space within the last
// 50. A sentence cut lands just after the punctuation; a word cut excludes
// the space. Falls back to the tentative end when neither is found, and
// never cuts at or before pos, so every chunk is non-empty.
func breakAtBoundary(text []rune, pos, end int) int {
	limit := end - 100
	if limit < pos {
		limit = pos
	}
	for i := end - 1; i >= limit; i-- {
		switch text[i] {
		case '.', '!', '?', '\n':
			return i + 1
		}
	}

	limit = end - 50
	if limit < pos {
		limit = pos
	}
	for i := end - 1; i >= limit; i-- {
		if text[i] == ' ' && i > pos {
			return i
		}
	}

	return end
}

func chunkID(fileID string, index int) string {
	return fmt.Sprintf("%s_chunk_%d", fileID, index)
}
