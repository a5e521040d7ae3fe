package usecase

import (
	"context"

	"github.com/kirillkom/legal-case-assistant/internal/core/domain"
	"github.com/kirillkom/legal-case-assistant/internal/core/ports"
)

// StoredSourceResolver resolves citations against the stores populated during
// the current pipeline run: the chunk repository for client citations and the
// snapshot store for legal citations.
type StoredSourceResolver struct {
	chunks    ports.ChunkRepository
	snapshots ports.SnapshotStore
}

func NewStoredSourceResolver(chunks ports.ChunkRepository, snapshots ports.SnapshotStore) *StoredSourceResolver {
	return &StoredSourceResolver{chunks: chunks, snapshots: snapshots}
}

func (r *StoredSourceResolver) ResolveLegal(ctx context.Context, sourceID string) (*domain.LegalSnapshot, error) {
	return r.snapshots.GetByID(ctx, sourceID)
}

func (r *StoredSourceResolver) ResolveChunk(ctx context.Context, caseID, chunkID string) (*domain.DocumentChunk, error) {
	return r.chunks.GetChunk(ctx, caseID, chunkID)
}
