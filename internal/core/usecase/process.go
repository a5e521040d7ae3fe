package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/kirillkom/legal-case-assistant/internal/core/domain"
	"github.com/kirillkom/legal-case-assistant/internal/core/ports"
)

// ProcessDocumentUseCase turns an uploaded file into indexed chunks: extract
// sections with provenance, split, embed, persist, index. Processing is
// serialized per case so concurrent uploads cannot interleave index appends
// for the same case.
type ProcessDocumentUseCase struct {
	repo      ports.DocumentRepository
	chunks    ports.ChunkRepository
	extractor ports.TextExtractor
	chunker   ports.Chunker
	embedder  ports.Embedder
	index     ports.ChunkIndex

	mu        sync.Mutex
	caseLocks map[string]*sync.Mutex
}

func NewProcessDocumentUseCase(
	repo ports.DocumentRepository,
	chunks ports.ChunkRepository,
	extractor ports.TextExtractor,
	chunker ports.Chunker,
	embedder ports.Embedder,
	index ports.ChunkIndex,
) *ProcessDocumentUseCase {
	return &ProcessDocumentUseCase{
		repo:      repo,
		chunks:    chunks,
		extractor: extractor,
		chunker:   chunker,
		embedder:  embedder,
		index:     index,
		caseLocks: make(map[string]*sync.Mutex),
	}
}

func (uc *ProcessDocumentUseCase) ProcessByID(ctx context.Context, caseID, documentID string) error {
	if err := domain.ValidateCaseID(caseID); err != nil {
		return err
	}

	lock := uc.caseLock(caseID)
	lock.Lock()
	defer lock.Unlock()

	if err := uc.repo.UpdateStatus(ctx, documentID, domain.StatusProcessing, ""); err != nil {
		return fmt.Errorf("set status=processing: %w", err)
	}

	chunkCount, ocrApplied, err := uc.processPipeline(ctx, caseID, documentID)
	if err != nil {
		if failErr := uc.repo.UpdateStatus(ctx, documentID, domain.StatusFailed, err.Error()); failErr != nil {
			return fmt.Errorf("%w; mark failed status: %v", err, failErr)
		}
		return err
	}

	if err := uc.repo.SetProcessingResult(ctx, documentID, chunkCount, ocrApplied); err != nil {
		return fmt.Errorf("record processing result: %w", err)
	}
	if err := uc.repo.UpdateStatus(ctx, documentID, domain.StatusReady, ""); err != nil {
		return fmt.Errorf("set status=ready: %w", err)
	}
	return nil
}

func (uc *ProcessDocumentUseCase) processPipeline(ctx context.Context, caseID, documentID string) (int, bool, error) {
	doc, err := uc.repo.GetByID(ctx, documentID)
	if err != nil {
		return 0, false, fmt.Errorf("fetch document by id: %w", err)
	}
	if doc.CaseID != caseID {
		return 0, false, domain.WrapError(domain.ErrInvalidInput, "process document",
			fmt.Errorf("document %s belongs to case %s", documentID, doc.CaseID))
	}

	sections, err := uc.extractor.Extract(ctx, doc)
	if err != nil {
		return 0, false, fmt.Errorf("extract text: %w", err)
	}

	chunks, ocrApplied := uc.buildChunks(doc, sections)
	if len(chunks) == 0 {
		return 0, false, domain.WrapError(domain.ErrInvalidInput, "chunk document", errors.New("no text extracted"))
	}

	texts := make([]string, len(chunks))
	for i := range chunks {
		texts[i] = chunks[i].Text
	}
	vectors, err := uc.embedder.Embed(ctx, texts)
	if err != nil {
		return 0, false, fmt.Errorf("embed chunks: %w", err)
	}
	if len(vectors) != len(chunks) {
		return 0, false, domain.WrapError(domain.ErrInvalidInput, "embed chunks",
			fmt.Errorf("vectors/chunks mismatch: %d/%d", len(vectors), len(chunks)))
	}
	model := uc.embedder.Model()
	for i := range chunks {
		chunks[i].Embedding = vectors[i]
		chunks[i].EmbeddingModel = model
	}

	if err := uc.chunks.InsertChunks(ctx, chunks); err != nil {
		return 0, false, fmt.Errorf("persist chunks: %w", err)
	}
	if err := uc.index.IndexChunks(ctx, chunks); err != nil {
		return 0, false, fmt.Errorf("index chunks: %w", err)
	}
	return len(chunks), ocrApplied, nil
}

func (uc *ProcessDocumentUseCase) buildChunks(doc *domain.Document, sections []domain.Section) ([]domain.DocumentChunk, bool) {
	var chunks []domain.DocumentChunk
	ocrApplied := false
	for _, section := range sections {
		if section.LowText {
			ocrApplied = true
		}
		for _, span := range uc.chunker.Split(section.Text) {
			chunks = append(chunks, domain.DocumentChunk{
				ChunkID:    uuid.NewString(),
				CaseID:     doc.CaseID,
				DocumentID: doc.ID,
				FileName:   doc.Filename,
				Page:       section.Page,
				Paragraph:  span.Paragraph,
				Text:       span.Text,
				OCR:        section.LowText,
			})
		}
	}
	return chunks, ocrApplied
}

func (uc *ProcessDocumentUseCase) caseLock(caseID string) *sync.Mutex {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	lock, ok := uc.caseLocks[caseID]
	if !ok {
		lock = &sync.Mutex{}
		uc.caseLocks[caseID] = lock
	}
	return lock
}
