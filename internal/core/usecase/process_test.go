package usecase

import (
	"context"
	"testing"

	"github.com/kirillkom/legal-case-assistant/internal/core/domain"
)

type processHarness struct {
	uc       *ProcessDocumentUseCase
	repo     *memDocumentRepo
	chunks   *memChunkRepo
	index    *stubIndex
	embedder *stubEmbedder
}

func newProcessHarness(t *testing.T, extractor *stubExtractor) *processHarness {
	t.Helper()
	repo := newMemDocumentRepo()
	chunks := newMemChunkRepo()
	index := &stubIndex{}
	embedder := &stubEmbedder{}
	uc := NewProcessDocumentUseCase(repo, chunks, extractor, stubChunker{}, embedder, index)
	return &processHarness{uc: uc, repo: repo, chunks: chunks, index: index, embedder: embedder}
}

func (h *processHarness) seedDocument(t *testing.T, caseID string) *domain.Document {
	t.Helper()
	doc := &domain.Document{
		ID:       "doc-1",
		CaseID:   caseID,
		Filename: "employment_contract.pdf",
		Status:   domain.StatusUploaded,
	}
	if err := h.repo.Create(context.Background(), doc); err != nil {
		t.Fatalf("seed document: %v", err)
	}
	return doc
}

func TestProcessDocumentHappyPath(t *testing.T) {
	extractor := &stubExtractor{sections: []domain.Section{
		{Page: 1, Text: "Clause one.\n\nClause two."},
		{Page: 2, Text: "Clause three."},
	}}
	h := newProcessHarness(t, extractor)
	h.seedDocument(t, "case-7")

	if err := h.uc.ProcessByID(context.Background(), "case-7", "doc-1"); err != nil {
		t.Fatalf("ProcessByID() error = %v", err)
	}

	wantTransitions := []domain.DocumentStatus{
		domain.StatusUploaded, domain.StatusProcessing, domain.StatusReady,
	}
	got := h.repo.statusLog("doc-1")
	if len(got) != len(wantTransitions) {
		t.Fatalf("status transitions = %v, want %v", got, wantTransitions)
	}
	for i := range got {
		if got[i] != wantTransitions[i] {
			t.Fatalf("status transitions = %v, want %v", got, wantTransitions)
		}
	}

	doc, _ := h.repo.GetByID(context.Background(), "doc-1")
	if doc.ChunkCount != 3 {
		t.Fatalf("expected 3 chunks recorded, got %d", doc.ChunkCount)
	}
	if doc.OCRApplied {
		t.Fatalf("no low-text sections, OCR must not be flagged")
	}
	if len(h.index.indexed) != 3 {
		t.Fatalf("expected 3 chunks indexed, got %d", len(h.index.indexed))
	}
	for _, chunk := range h.index.indexed {
		if chunk.CaseID != "case-7" || chunk.DocumentID != "doc-1" {
			t.Fatalf("chunk missing provenance: %+v", chunk)
		}
		if chunk.FileName != "employment_contract.pdf" {
			t.Fatalf("chunk missing file name: %+v", chunk)
		}
		if chunk.EmbeddingModel != "test-embed" {
			t.Fatalf("chunk not stamped with embedding model: %+v", chunk)
		}
		if len(chunk.Embedding) == 0 {
			t.Fatalf("chunk missing vector: %+v", chunk)
		}
	}
}

func TestProcessDocumentKeepsPageAndParagraph(t *testing.T) {
	extractor := &stubExtractor{sections: []domain.Section{
		{Page: 4, Text: "First paragraph.\n\nSecond paragraph."},
	}}
	h := newProcessHarness(t, extractor)
	h.seedDocument(t, "case-7")

	if err := h.uc.ProcessByID(context.Background(), "case-7", "doc-1"); err != nil {
		t.Fatalf("ProcessByID() error = %v", err)
	}

	if len(h.index.indexed) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(h.index.indexed))
	}
	for i, chunk := range h.index.indexed {
		if chunk.Page != 4 {
			t.Fatalf("chunk %d page = %d, want 4", i, chunk.Page)
		}
		if chunk.Paragraph != i {
			t.Fatalf("chunk %d paragraph = %d, want %d", i, chunk.Paragraph, i)
		}
	}
}

func TestProcessDocumentFlagsOCRSections(t *testing.T) {
	extractor := &stubExtractor{sections: []domain.Section{
		{Page: 1, Text: "Typed page."},
		{Page: 2, Text: "Scanned page text.", LowText: true},
	}}
	h := newProcessHarness(t, extractor)
	h.seedDocument(t, "case-7")

	if err := h.uc.ProcessByID(context.Background(), "case-7", "doc-1"); err != nil {
		t.Fatalf("ProcessByID() error = %v", err)
	}

	doc, _ := h.repo.GetByID(context.Background(), "doc-1")
	if !doc.OCRApplied {
		t.Fatalf("document with a low-text section must be flagged OCR")
	}
	for _, chunk := range h.index.indexed {
		wantOCR := chunk.Page == 2
		if chunk.OCR != wantOCR {
			t.Fatalf("chunk page %d OCR = %v, want %v", chunk.Page, chunk.OCR, wantOCR)
		}
	}
}

func TestProcessDocumentExtractionFailureMarksFailed(t *testing.T) {
	extractor := &stubExtractor{err: domain.WrapError(domain.ErrInvalidInput, "extract", context.Canceled)}
	h := newProcessHarness(t, extractor)
	h.seedDocument(t, "case-7")

	if err := h.uc.ProcessByID(context.Background(), "case-7", "doc-1"); err == nil {
		t.Fatalf("expected extraction failure to surface")
	}

	doc, _ := h.repo.GetByID(context.Background(), "doc-1")
	if doc.Status != domain.StatusFailed {
		t.Fatalf("expected failed status, got %s", doc.Status)
	}
	if doc.Error == "" {
		t.Fatalf("failed document must record the error message")
	}
	if len(h.index.indexed) != 0 {
		t.Fatalf("nothing may be indexed on failure")
	}
}

func TestProcessDocumentRejectsCaseMismatch(t *testing.T) {
	extractor := &stubExtractor{sections: []domain.Section{{Page: 1, Text: "text"}}}
	h := newProcessHarness(t, extractor)
	h.seedDocument(t, "case-7")

	err := h.uc.ProcessByID(context.Background(), "other-case", "doc-1")
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for case mismatch, got %v", err)
	}

	doc, _ := h.repo.GetByID(context.Background(), "doc-1")
	if doc.Status != domain.StatusFailed {
		t.Fatalf("mismatched document must end failed, got %s", doc.Status)
	}
}

func TestProcessDocumentEmptyExtractionFails(t *testing.T) {
	extractor := &stubExtractor{sections: nil}
	h := newProcessHarness(t, extractor)
	h.seedDocument(t, "case-7")

	err := h.uc.ProcessByID(context.Background(), "case-7", "doc-1")
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for empty extraction, got %v", err)
	}
}

func TestProcessDocumentEmbeddingCountMismatchFails(t *testing.T) {
	extractor := &stubExtractor{sections: []domain.Section{
		{Page: 1, Text: "One.\n\nTwo."},
	}}
	h := newProcessHarness(t, extractor)
	h.embedder.shortEmbed = true
	h.seedDocument(t, "case-7")

	if err := h.uc.ProcessByID(context.Background(), "case-7", "doc-1"); err == nil {
		t.Fatalf("expected vectors/chunks mismatch to surface")
	}

	doc, _ := h.repo.GetByID(context.Background(), "doc-1")
	if doc.Status != domain.StatusFailed {
		t.Fatalf("expected failed status, got %s", doc.Status)
	}
	if len(h.index.indexed) != 0 {
		t.Fatalf("mismatched batch must not be indexed")
	}
}

func TestProcessDocumentUnknownIDFails(t *testing.T) {
	h := newProcessHarness(t, &stubExtractor{})

	err := h.uc.ProcessByID(context.Background(), "case-7", "missing-doc")
	if err == nil {
		t.Fatalf("expected unknown document to fail")
	}
}
