// Package extractor routes documents to the format-specific extractors.
package extractor

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/kirillkom/legal-case-assistant/internal/core/domain"
	"github.com/kirillkom/legal-case-assistant/internal/core/ports"
)

// Dispatcher picks an extractor by file extension, falling back to the plain
// text extractor for everything unrecognized.
type Dispatcher struct {
	pdf         ports.TextExtractor
	spreadsheet ports.TextExtractor
	plaintext   ports.TextExtractor
}

func NewDispatcher(pdf, spreadsheet, plaintext ports.TextExtractor) *Dispatcher {
	return &Dispatcher{
		pdf:         pdf,
		spreadsheet: spreadsheet,
		plaintext:   plaintext,
	}
}

func (d *Dispatcher) Extract(ctx context.Context, doc *domain.Document) ([]domain.Section, error) {
	switch strings.ToLower(filepath.Ext(doc.Filename)) {
	case ".pdf":
		return d.pdf.Extract(ctx, doc)
	case ".xlsx", ".xlsm":
		return d.spreadsheet.Extract(ctx, doc)
	case ".txt", ".md", ".text", "":
		return d.plaintext.Extract(ctx, doc)
	default:
		sections, err := d.plaintext.Extract(ctx, doc)
		if err != nil {
			return nil, fmt.Errorf("unsupported format %s: %w", doc.Filename, err)
		}
		return sections, nil
	}
}
