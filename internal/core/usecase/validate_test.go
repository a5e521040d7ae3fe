package usecase

import (
	"context"
	"testing"

	"github.com/kirillkom/legal-case-assistant/internal/core/domain"
)

func newTestValidator(t *testing.T) (*CitationValidator, *memSnapshotStore, *memChunkRepo) {
	t.Helper()
	snaps := newMemSnapshotStore()
	chunks := newMemChunkRepo()
	whitelist := domain.NewWhitelist([]string{"gov.uk", "legislation.gov.uk"})
	return NewCitationValidator(NewStoredSourceResolver(chunks, snaps), whitelist), snaps, chunks
}

func storedSnapshot(snaps *memSnapshotStore, url, text string) *domain.LegalSnapshot {
	snap := &domain.LegalSnapshot{
		ID:     domain.SnapshotIDForURL(url),
		URL:    url,
		Domain: "www.gov.uk",
		Text:   text,
	}
	_ = snaps.Put(context.Background(), snap)
	return snap
}

func TestValidateLegalCitationPasses(t *testing.T) {
	v, snaps, _ := newTestValidator(t)
	snap := storedSnapshot(snaps, "https://www.gov.uk/redundancy",
		"You are entitled to statutory redundancy pay after two years of service.")

	result := v.Validate(context.Background(), "case-7", domain.Citation{
		SourceID:   snap.ID,
		SourceType: domain.SourceLegal,
		URL:        snap.URL,
		Excerpt:    "statutory redundancy pay after two years",
	})
	if !result.OK || result.Reason != domain.ReasonValid {
		t.Fatalf("expected valid, got %+v", result)
	}
}

func TestValidateUnknownIDShortCircuits(t *testing.T) {
	v, _, _ := newTestValidator(t)

	result := v.Validate(context.Background(), "case-7", domain.Citation{
		SourceID:   "SRC-999",
		SourceType: domain.SourceLegal,
		URL:        "https://www.gov.uk/redundancy",
		Excerpt:    "anything",
	})
	if result.OK || result.Reason != domain.ReasonUnknownID {
		t.Fatalf("expected unknown_id, got %+v", result)
	}
}

func TestValidateURLMismatch(t *testing.T) {
	v, snaps, _ := newTestValidator(t)
	snap := storedSnapshot(snaps, "https://www.gov.uk/redundancy", "redundancy guidance text")

	result := v.Validate(context.Background(), "case-7", domain.Citation{
		SourceID:   snap.ID,
		SourceType: domain.SourceLegal,
		URL:        "https://www.gov.uk/holiday-entitlement",
		Excerpt:    "redundancy guidance",
	})
	if result.OK || result.Reason != domain.ReasonURLMismatch {
		t.Fatalf("expected url_mismatch, got %+v", result)
	}
}

func TestValidateURLMismatchToleratesNormalizationDifferences(t *testing.T) {
	v, snaps, _ := newTestValidator(t)
	snap := storedSnapshot(snaps, "https://www.gov.uk/redundancy", "redundancy guidance text")

	result := v.Validate(context.Background(), "case-7", domain.Citation{
		SourceID:   snap.ID,
		SourceType: domain.SourceLegal,
		URL:        "HTTPS://WWW.GOV.UK/redundancy/",
		Excerpt:    "redundancy guidance",
	})
	if !result.OK {
		t.Fatalf("normalization-equal URL must pass, got %+v", result)
	}
}

func TestValidateDomainNotWhitelisted(t *testing.T) {
	v, snaps, _ := newTestValidator(t)
	// A snapshot that predates a whitelist change.
	snap := storedSnapshot(snaps, "https://example.com/advice", "some advice text")

	result := v.Validate(context.Background(), "case-7", domain.Citation{
		SourceID:   snap.ID,
		SourceType: domain.SourceLegal,
		URL:        snap.URL,
		Excerpt:    "some advice",
	})
	if result.OK || result.Reason != domain.ReasonDomainNotWhitelisted {
		t.Fatalf("expected domain_not_whitelisted, got %+v", result)
	}
}

func TestValidateExcerptWhitespaceTolerant(t *testing.T) {
	v, snaps, _ := newTestValidator(t)
	snap := storedSnapshot(snaps, "https://www.gov.uk/redundancy",
		"Notice periods:\n\n  at least one week   per year of employment.")

	result := v.Validate(context.Background(), "case-7", domain.Citation{
		SourceID:   snap.ID,
		SourceType: domain.SourceLegal,
		URL:        snap.URL,
		Excerpt:    "AT LEAST ONE WEEK per year",
	})
	if !result.OK {
		t.Fatalf("whitespace/case differences must be tolerated, got %+v", result)
	}
}

func TestValidateParaphraseFails(t *testing.T) {
	v, snaps, _ := newTestValidator(t)
	snap := storedSnapshot(snaps, "https://www.gov.uk/redundancy",
		"You must be given at least one week of notice per year of employment.")

	result := v.Validate(context.Background(), "case-7", domain.Citation{
		SourceID:   snap.ID,
		SourceType: domain.SourceLegal,
		URL:        snap.URL,
		Excerpt:    "employees get a week per year worked",
	})
	if result.OK || result.Reason != domain.ReasonExcerptNotFound {
		t.Fatalf("paraphrase must fail as excerpt_not_found, got %+v", result)
	}
}

func TestValidateClientChunkCitation(t *testing.T) {
	v, _, chunks := newTestValidator(t)
	_ = chunks.InsertChunks(context.Background(), []domain.DocumentChunk{{
		ChunkID:  "chunk-1",
		CaseID:   "case-7",
		FileName: "employment_contract.pdf",
		Page:     3,
		Text:     "The Employee's notice period shall be three (3) months.",
	}})

	ok := v.Validate(context.Background(), "case-7", domain.Citation{
		SourceID:   "chunk-1",
		SourceType: domain.SourceClient,
		FileName:   "employment_contract.pdf",
		Excerpt:    "notice period shall be three (3) months",
	})
	if !ok.OK {
		t.Fatalf("expected valid client citation, got %+v", ok)
	}

	crossCase := v.Validate(context.Background(), "other-case", domain.Citation{
		SourceID:   "chunk-1",
		SourceType: domain.SourceClient,
		Excerpt:    "notice period",
	})
	if crossCase.OK || crossCase.Reason != domain.ReasonUnknownID {
		t.Fatalf("cross-case chunk must be unknown_id, got %+v", crossCase)
	}
}

func TestValidateIsIdempotent(t *testing.T) {
	v, snaps, _ := newTestValidator(t)
	snap := storedSnapshot(snaps, "https://www.gov.uk/redundancy", "fixed snapshot text here")

	citation := domain.Citation{
		SourceID:   snap.ID,
		SourceType: domain.SourceLegal,
		URL:        snap.URL,
		Excerpt:    "fixed snapshot text",
	}
	first := v.Validate(context.Background(), "case-7", citation)
	second := v.Validate(context.Background(), "case-7", citation)
	if first != second {
		t.Fatalf("validation must be deterministic: %+v vs %+v", first, second)
	}
}

func TestValidateAllCollectsFailures(t *testing.T) {
	v, snaps, _ := newTestValidator(t)
	snap := storedSnapshot(snaps, "https://www.gov.uk/redundancy", "redundancy pay rules text")

	results, failures := v.ValidateAll(context.Background(), "case-7", []domain.Citation{
		{SourceID: snap.ID, SourceType: domain.SourceLegal, URL: snap.URL, Excerpt: "redundancy pay rules"},
		{SourceID: "SRC-999", SourceType: domain.SourceLegal, Excerpt: "made up"},
	})
	if len(results) != 2 || !results[0].OK || results[1].OK {
		t.Fatalf("unexpected results: %+v", results)
	}
	if len(failures) != 1 {
		t.Fatalf("expected 1 failure string, got %v", failures)
	}
}
