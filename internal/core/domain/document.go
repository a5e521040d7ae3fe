package domain

import "time"

type DocumentStatus string

const (
	StatusUploaded   DocumentStatus = "uploaded"
	StatusProcessing DocumentStatus = "processing"
	StatusReady      DocumentStatus = "ready"
	StatusFailed     DocumentStatus = "failed"
)

// Document is the upload-lifecycle record for a single client file.
type Document struct {
	ID          string         `json:"id"`
	CaseID      string         `json:"case_id"`
	Filename    string         `json:"filename"`
	MimeType    string         `json:"mime_type"`
	StoragePath string         `json:"storage_path"`
	Status      DocumentStatus `json:"status"`
	ChunkCount  int            `json:"chunk_count"`
	OCRApplied  bool           `json:"ocr_applied"`
	Error       string         `json:"error,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// Section is a provenance-bearing span of extracted text. Page is 1-based for
// paginated formats and 0 for formats without pages.
type Section struct {
	Page    int
	Text    string
	LowText bool // likely scanned page; text came from an OCR layer if at all
}
