package ports

import (
	"context"
	"io"

	"github.com/kirillkom/legal-case-assistant/internal/core/domain"
)

// DocumentIngestor is the inbound contract for document upload orchestration.
type DocumentIngestor interface {
	Upload(ctx context.Context, caseID, filename, mimeType string, body io.Reader) (*domain.Document, error)
}

// DocumentProcessor is the inbound contract for asynchronous document
// processing. Processing is serialized per case.
type DocumentProcessor interface {
	ProcessByID(ctx context.Context, caseID, documentID string) error
}

// CaseAnswerer is the inbound contract for the answer pipeline.
type CaseAnswerer interface {
	Answer(ctx context.Context, caseID, question string) (*domain.AnswerResult, error)
}

// DocumentReader is the inbound read model for document metadata/state.
type DocumentReader interface {
	GetByID(ctx context.Context, id string) (*domain.Document, error)
}
