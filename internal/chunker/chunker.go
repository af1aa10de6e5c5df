package chunker

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"document-qa/internal/models"
)

// ErrEmptyDocument is returned when a document has no extractable text.
// The load is fatal; no index can be built from it.
var ErrEmptyDocument = errors.New("document contains no extractable text")

// Chunker splits document text into overlapping passages with stable ids
// and byte-offset provenance into the original text.
type Chunker struct {
	size    int
	overlap int
}

func New(size, overlap int) (*Chunker, error) {
	if size <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", size)
	}
	if overlap <= 0 || overlap >= size {
		return nil, fmt.Errorf("overlap must be between 1 and size-1, got %d", overlap)
	}
	return &Chunker{size: size, overlap: overlap}, nil
}

// ChunkDocument splits the document text into chunks of at most c.size
// bytes, each overlapping the previous one by c.overlap bytes. Cuts prefer
// a sentence or whitespace boundary within the trailing tenth of the window
// and always land on a rune boundary. Every byte of the text is covered by
// at least one chunk and offsets are non-decreasing across ascending ids.
func (c *Chunker) ChunkDocument(doc models.Document) ([]models.Chunk, error) {
	text := doc.Text
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyDocument
	}

	var chunks []models.Chunk
	start := 0
	for start < len(text) {
		end := start + c.size
		if end >= len(text) {
			end = len(text)
		} else {
			end = softBoundary(text, start, end)
		}

		chunks = append(chunks, models.Chunk{
			ID:          len(chunks),
			Text:        text[start:end],
			StartOffset: start,
			EndOffset:   end,
			SourceLabel: labelFor(doc.Regions, start),
		})

		if end == len(text) {
			break
		}
		next := end - c.overlap
		if next <= start {
			next = start + 1
		}
		// keep chunk starts on rune boundaries too
		for next > 0 && next < len(text) && !utf8.RuneStart(text[next]) {
			next--
		}
		if next <= start {
			next = end
		}
		start = next
	}
	return chunks, nil
}

// softBoundary moves the cut back to the nearest sentence end or whitespace
// within the last tenth of the window, falling back to the nearest rune
// boundary at or before end.
func softBoundary(text string, start, end int) int {
	lookBack := (end - start) / 10
	for i := end - 1; i >= end-lookBack && i > start; i-- {
		switch text[i] {
		case '.', '!', '?', '\n', ' ':
			return i + 1
		}
	}
	for end > start+1 && !utf8.RuneStart(text[end]) {
		end--
	}
	return end
}

// labelFor resolves the source label for a byte offset from the document's
// labeled regions: the last region starting at or before the offset wins.
// Regions are ordered and non-overlapping by construction.
func labelFor(regions []models.Region, offset int) string {
	label := "document"
	for _, r := range regions {
		if r.Start > offset {
			break
		}
		label = r.Label
	}
	return label
}
