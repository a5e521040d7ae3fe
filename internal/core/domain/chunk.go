package domain

// DocumentChunk is the retrieval unit: a bounded span of client-document text
// with full provenance. Chunks are immutable once written and are removed only
// when their case is deleted.
type DocumentChunk struct {
	ChunkID        string    `json:"chunk_id"`
	CaseID         string    `json:"case_id"`
	DocumentID     string    `json:"document_id"`
	FileName       string    `json:"file_name"`
	Page           int       `json:"page"`
	Paragraph      int       `json:"paragraph"`
	Text           string    `json:"text"`
	Embedding      []float32 `json:"-"`
	EmbeddingModel string    `json:"embedding_model"`
	OCR            bool      `json:"ocr"`
}

// EvidenceItem is a transient, per-query view of a chunk with its fused
// relevance score. Never persisted.
type EvidenceItem struct {
	ChunkID   string  `json:"chunk_id"`
	FileName  string  `json:"file_name"`
	Page      int     `json:"page"`
	Paragraph int     `json:"paragraph"`
	Text      string  `json:"text"`
	Score     float64 `json:"score"`
}
