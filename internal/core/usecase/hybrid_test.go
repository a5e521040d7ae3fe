package usecase

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/kirillkom/legal-case-assistant/internal/core/domain"
)

func item(id, file string, page int, score float64, text string) domain.EvidenceItem {
	return domain.EvidenceItem{ChunkID: id, FileName: file, Page: page, Text: text, Score: score}
}

func TestSearchFusesBothLegs(t *testing.T) {
	index := &stubIndex{
		keyword: []domain.EvidenceItem{
			item("k1", "contract.pdf", 1, 10, "notice period of three months"),
			item("both", "contract.pdf", 2, 5, "severance pay on redundancy"),
		},
		semantic: []domain.EvidenceItem{
			item("both", "contract.pdf", 2, 0.9, "severance pay on redundancy"),
			item("s1", "handbook.pdf", 4, 0.8, "holiday entitlement accrual"),
		},
	}
	uc := NewHybridSearchUseCase(&stubEmbedder{}, index, HybridSearchConfig{})

	results, err := uc.Search(context.Background(), "case-7", "notice period", 8)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("expected 3 fused items, got %d", len(results))
	}
	// "both" appears in both legs with top normalized semantic score and a
	// mid keyword score; "k1" only tops the keyword leg.
	if results[0].ChunkID != "both" && results[0].ChunkID != "k1" {
		t.Fatalf("unexpected top result %q", results[0].ChunkID)
	}
	for _, r := range results {
		if r.Score < 0 || r.Score > 1 {
			t.Fatalf("fused score out of range: %v", r.Score)
		}
	}
}

func TestSearchCapsPerDocument(t *testing.T) {
	var keyword []domain.EvidenceItem
	for i := 0; i < 6; i++ {
		keyword = append(keyword, item(
			fmt.Sprintf("c%d", i), "contract.pdf", i+1, float64(10-i),
			fmt.Sprintf("clause number %d entirely distinct content %d", i, i*7),
		))
	}
	index := &stubIndex{keyword: keyword}
	uc := NewHybridSearchUseCase(&stubEmbedder{}, index, HybridSearchConfig{})

	results, err := uc.Search(context.Background(), "case-7", "clauses", 8)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("expected per-document cap of 3, got %d items", len(results))
	}
	for _, r := range results {
		if r.FileName != "contract.pdf" {
			t.Fatalf("unexpected file %q", r.FileName)
		}
	}
}

func TestSearchSuppressesNearDuplicates(t *testing.T) {
	text := "the employee is entitled to three months notice in writing"
	index := &stubIndex{
		keyword: []domain.EvidenceItem{
			item("a", "contract.pdf", 1, 10, text),
			item("b", "scan.pdf", 3, 8, text+" signed"),
			item("c", "handbook.pdf", 2, 6, "pension contributions are matched up to five percent"),
		},
	}
	uc := NewHybridSearchUseCase(&stubEmbedder{}, index, HybridSearchConfig{})

	results, err := uc.Search(context.Background(), "case-7", "notice", 8)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected duplicate suppressed, got %d items", len(results))
	}
	if results[0].ChunkID != "a" {
		t.Fatalf("higher-scored duplicate must win, got %q", results[0].ChunkID)
	}
}

func TestSearchUniformScoresNormalizeToOne(t *testing.T) {
	index := &stubIndex{
		keyword: []domain.EvidenceItem{
			item("a", "a.pdf", 1, 7, "first completely distinct text"),
			item("b", "b.pdf", 1, 7, "second entirely different content"),
		},
	}
	uc := NewHybridSearchUseCase(&stubEmbedder{}, index, HybridSearchConfig{KeywordWeight: 1, SemanticWeight: 0})

	results, err := uc.Search(context.Background(), "case-7", "q", 8)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	for _, r := range results {
		if r.Score != 1.0 {
			t.Fatalf("uniform positive scores must normalize to 1.0, got %v", r.Score)
		}
	}
}

func TestSearchTieBreakIsDeterministic(t *testing.T) {
	index := &stubIndex{
		keyword: []domain.EvidenceItem{
			{ChunkID: "z", FileName: "a.pdf", Page: 2, Paragraph: 0, Text: "alpha unique", Score: 5},
			{ChunkID: "a", FileName: "a.pdf", Page: 1, Paragraph: 3, Text: "beta distinct", Score: 5},
			{ChunkID: "m", FileName: "a.pdf", Page: 1, Paragraph: 1, Text: "gamma separate", Score: 5},
		},
	}
	uc := NewHybridSearchUseCase(&stubEmbedder{}, index, HybridSearchConfig{})

	results, err := uc.Search(context.Background(), "case-7", "q", 8)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	order := []string{results[0].ChunkID, results[1].ChunkID, results[2].ChunkID}
	if order[0] != "m" || order[1] != "a" || order[2] != "z" {
		t.Fatalf("expected page/paragraph tie-break order [m a z], got %v", order)
	}
}

func TestSearchEmptyIndexYieldsEmptyList(t *testing.T) {
	uc := NewHybridSearchUseCase(&stubEmbedder{}, &stubIndex{}, HybridSearchConfig{})

	results, err := uc.Search(context.Background(), "case-7", "anything", 8)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("expected empty result, got %d items", len(results))
	}
}

func TestSearchEmbedFailureIsRetrievalError(t *testing.T) {
	uc := NewHybridSearchUseCase(&stubEmbedder{queryErr: errors.New("model offline")}, &stubIndex{}, HybridSearchConfig{})

	_, err := uc.Search(context.Background(), "case-7", "anything", 8)
	if !domain.IsKind(err, domain.ErrRetrieval) {
		t.Fatalf("expected ErrRetrieval, got %v", err)
	}
}
