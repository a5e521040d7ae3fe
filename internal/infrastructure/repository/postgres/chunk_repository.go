package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/kirillkom/legal-case-assistant/internal/core/domain"
)

// ChunkRepository is the durable chunk store. Chunks are append-only; the only
// delete path removes a whole case.
type ChunkRepository struct {
	db *sql.DB
}

func NewChunkRepository(db *sql.DB) *ChunkRepository {
	return &ChunkRepository{db: db}
}

func (r *ChunkRepository) InsertChunks(ctx context.Context, chunks []domain.DocumentChunk) error {
	if len(chunks) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin chunk tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	stmt, err := tx.PrepareContext(ctx, `
INSERT INTO chunks (
	chunk_id, case_id, document_id, file_name, page, paragraph, text, embedding_model, ocr, created_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
`)
	if err != nil {
		return fmt.Errorf("prepare chunk insert: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for _, chunk := range chunks {
		if _, err := stmt.ExecContext(ctx,
			chunk.ChunkID, chunk.CaseID, chunk.DocumentID, chunk.FileName,
			chunk.Page, chunk.Paragraph, chunk.Text, chunk.EmbeddingModel, chunk.OCR, now,
		); err != nil {
			return fmt.Errorf("insert chunk %s: %w", chunk.ChunkID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit chunk tx: %w", err)
	}
	return nil
}

// GetChunk resolves a cited chunk within its case. A chunk that exists under
// a different case is reported as not found, never leaked.
func (r *ChunkRepository) GetChunk(ctx context.Context, caseID, chunkID string) (*domain.DocumentChunk, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT chunk_id, case_id, document_id, file_name, page, paragraph, text, embedding_model, ocr
FROM chunks
WHERE case_id = $1 AND chunk_id = $2
`, caseID, chunkID)

	var chunk domain.DocumentChunk
	err := row.Scan(
		&chunk.ChunkID, &chunk.CaseID, &chunk.DocumentID, &chunk.FileName,
		&chunk.Page, &chunk.Paragraph, &chunk.Text, &chunk.EmbeddingModel, &chunk.OCR,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrNotFound, "get chunk", fmt.Errorf("chunk %s in case %s", chunkID, caseID))
		}
		return nil, fmt.Errorf("scan chunk: %w", err)
	}
	return &chunk, nil
}

func (r *ChunkRepository) DeleteCase(ctx context.Context, caseID string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM chunks WHERE case_id = $1`, caseID); err != nil {
		return fmt.Errorf("delete case chunks: %w", err)
	}
	return nil
}
