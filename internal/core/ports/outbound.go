package ports

import (
	"context"
	"io"

	"github.com/kirillkom/legal-case-assistant/internal/core/domain"
)

// DocumentRepository persists upload-lifecycle state for client files.
type DocumentRepository interface {
	Create(ctx context.Context, doc *domain.Document) error
	GetByID(ctx context.Context, id string) (*domain.Document, error)
	UpdateStatus(ctx context.Context, id string, status domain.DocumentStatus, errMessage string) error
	SetProcessingResult(ctx context.Context, id string, chunkCount int, ocrApplied bool) error
}

// ChunkRepository is the chunk store: immutable chunks with provenance,
// deleted only with their case.
type ChunkRepository interface {
	InsertChunks(ctx context.Context, chunks []domain.DocumentChunk) error
	GetChunk(ctx context.Context, caseID, chunkID string) (*domain.DocumentChunk, error)
	DeleteCase(ctx context.Context, caseID string) error
}

// ObjectStorage stores raw uploaded files.
type ObjectStorage interface {
	Save(ctx context.Context, key string, data io.Reader) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

// MessageQueue publishes/consumes document-processing events.
type MessageQueue interface {
	PublishDocumentIngested(ctx context.Context, caseID, documentID string) error
	SubscribeDocumentIngested(ctx context.Context, handler func(ctx context.Context, caseID, documentID string) error) error
}

// TextExtractor extracts provenance-bearing text sections from a stored file.
type TextExtractor interface {
	Extract(ctx context.Context, doc *domain.Document) ([]domain.Section, error)
}

// ChunkSpan is a retrieval-sized span of a section, tracking the paragraph
// index it starts at.
type ChunkSpan struct {
	Text      string
	Paragraph int
}

// Chunker splits a text section into retrieval-sized spans.
type Chunker interface {
	Split(text string) []ChunkSpan
}

// Embedder builds vectors for chunks and query text. The same model must be
// used at ingestion and query time; implementations report the model name so
// chunks can be version-stamped.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
	Model() string
}

// ChunkIndex serves both retrieval legs over indexed chunks: dense
// nearest-neighbour and sparse keyword ranking, always filtered per case.
type ChunkIndex interface {
	IndexChunks(ctx context.Context, chunks []domain.DocumentChunk) error
	SearchSemantic(ctx context.Context, caseID string, queryVector []float32, limit int) ([]domain.EvidenceItem, error)
	SearchKeyword(ctx context.Context, caseID, queryText string, limit int) ([]domain.EvidenceItem, error)
	DeleteCase(ctx context.Context, caseID string) error
}

// SnapshotStore persists immutable legal-page snapshots, content-addressed by
// (domain, source id). Stored text must read back byte-identically.
type SnapshotStore interface {
	Put(ctx context.Context, snap *domain.LegalSnapshot) error
	GetByID(ctx context.Context, sourceID string) (*domain.LegalSnapshot, error)
	GetByURL(ctx context.Context, url string) (*domain.LegalSnapshot, error)
}

// PageFetcher retrieves one legal page. Implementations must refuse
// non-whitelisted domains before any network I/O.
type PageFetcher interface {
	Fetch(ctx context.Context, url string) (*domain.LegalSnapshot, error)
}

// LegalSearcher queries public legal search endpoints for candidate URLs.
type LegalSearcher interface {
	Search(ctx context.Context, query string, limit int) ([]domain.LegalSearchHit, error)
}

// AnswerGenerator is the black-box generation collaborator: prompt in, text
// out, no structural guarantees beyond what the engine itself parses.
type AnswerGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// SessionStore persists per-case session state. Load returns a fresh state
// for unknown cases rather than an error.
type SessionStore interface {
	Load(ctx context.Context, caseID string) (*domain.SessionState, error)
	Save(ctx context.Context, state *domain.SessionState) error
}
