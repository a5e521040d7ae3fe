// Package chunking splits extracted text into retrieval-sized spans while
// preserving paragraph provenance for citations.
package chunking

import (
	"strings"

	"github.com/kirillkom/legal-case-assistant/internal/core/ports"
)

type Splitter struct {
	ChunkSize int
	Overlap   int
}

func NewSplitter(chunkSize, overlap int) *Splitter {
	if chunkSize <= 0 {
		chunkSize = 2400
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= chunkSize {
		overlap = chunkSize / 4
	}
	return &Splitter{
		ChunkSize: chunkSize,
		Overlap:   overlap,
	}
}

// Split packs whole paragraphs into spans up to ChunkSize runes. Each span
// records the index of the first paragraph it contains; an oversized
// paragraph falls back to windowed slicing within the same paragraph index.
func (s *Splitter) Split(text string) []ports.ChunkSpan {
	paragraphs := splitParagraphs(text)
	if len(paragraphs) == 0 {
		return nil
	}

	var out []ports.ChunkSpan
	var current strings.Builder
	currentStart := 0

	flush := func() {
		if chunk := strings.TrimSpace(current.String()); chunk != "" {
			out = append(out, ports.ChunkSpan{Text: chunk, Paragraph: currentStart})
		}
		current.Reset()
	}

	for i, paragraph := range paragraphs {
		runes := []rune(paragraph)
		if len(runes) > s.ChunkSize {
			flush()
			for _, window := range s.slice(runes) {
				out = append(out, ports.ChunkSpan{Text: window, Paragraph: i})
			}
			currentStart = i + 1
			continue
		}

		if current.Len() > 0 && current.Len()+len(paragraph)+2 > s.ChunkSize {
			flush()
			currentStart = i
		}
		if current.Len() == 0 {
			currentStart = i
		} else {
			current.WriteString("\n\n")
		}
		current.WriteString(paragraph)
	}
	flush()
	return out
}

func (s *Splitter) slice(runes []rune) []string {
	step := s.ChunkSize - s.Overlap
	if step <= 0 {
		step = s.ChunkSize
	}

	out := make([]string, 0, len(runes)/step+1)
	for start := 0; start < len(runes); start += step {
		end := start + s.ChunkSize
		if end > len(runes) {
			end = len(runes)
		}
		if chunk := strings.TrimSpace(string(runes[start:end])); chunk != "" {
			out = append(out, chunk)
		}
		if end == len(runes) {
			break
		}
	}
	return out
}

func splitParagraphs(text string) []string {
	var out []string
	for _, block := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n\n") {
		if trimmed := strings.TrimSpace(block); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
