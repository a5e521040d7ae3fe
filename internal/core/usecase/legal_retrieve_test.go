package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/kirillkom/legal-case-assistant/internal/core/domain"
	"github.com/kirillkom/legal-case-assistant/internal/core/ports"
)

func newRetrieveHarness(searchers []ports.LegalSearcher, fetcher *countingFetcher, cfg LegalRetrieveConfig) *LegalRetrieveUseCase {
	store := newMemSnapshotStore()
	whitelist := domain.NewWhitelist([]string{"gov.uk"})
	cache := NewSnapshotCacheUseCase(store, fetcher, whitelist, nil, testLogger())
	return NewLegalRetrieveUseCase(searchers, cache, cfg, testLogger())
}

func TestRetrieveFetchesWhitelistedHits(t *testing.T) {
	searcher := &stubSearcher{hits: []domain.LegalSearchHit{
		{URL: "https://www.gov.uk/redundancy", Title: "Redundancy"},
		{URL: "https://www.gov.uk/notice-periods", Title: "Notice periods"},
	}}
	uc := newRetrieveHarness([]ports.LegalSearcher{searcher}, &countingFetcher{}, LegalRetrieveConfig{})

	sources, err := uc.Retrieve(context.Background(), "redundancy notice")
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}
	if len(sources) != 2 {
		t.Fatalf("expected 2 sources, got %d", len(sources))
	}
	for _, s := range sources {
		if s.Text == "" || s.ID == "" {
			t.Fatalf("snapshot must carry text and id: %+v", s)
		}
	}
}

func TestRetrieveSkipsNonWhitelistedHits(t *testing.T) {
	searcher := &stubSearcher{hits: []domain.LegalSearchHit{
		{URL: "https://blog.example.com/opinion"},
		{URL: "https://www.gov.uk/redundancy"},
	}}
	fetcher := &countingFetcher{}
	uc := newRetrieveHarness([]ports.LegalSearcher{searcher}, fetcher, LegalRetrieveConfig{})

	sources, err := uc.Retrieve(context.Background(), "redundancy")
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}
	if len(sources) != 1 {
		t.Fatalf("expected the non-whitelisted hit dropped, got %d sources", len(sources))
	}
	if fetcher.count() != 1 {
		t.Fatalf("non-whitelisted hit must not be fetched, got %d fetches", fetcher.count())
	}
}

func TestRetrieveDegradesOnSearcherFailure(t *testing.T) {
	broken := &stubSearcher{err: errors.New("search endpoint down")}
	working := &stubSearcher{hits: []domain.LegalSearchHit{
		{URL: "https://www.gov.uk/redundancy"},
	}}
	uc := newRetrieveHarness([]ports.LegalSearcher{broken, working}, &countingFetcher{}, LegalRetrieveConfig{})

	sources, err := uc.Retrieve(context.Background(), "redundancy")
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}
	if len(sources) != 1 {
		t.Fatalf("expected partial results despite a failing searcher, got %d", len(sources))
	}
}

func TestRetrieveDeduplicatesAcrossSearchers(t *testing.T) {
	first := &stubSearcher{hits: []domain.LegalSearchHit{{URL: "https://www.gov.uk/redundancy"}}}
	second := &stubSearcher{hits: []domain.LegalSearchHit{{URL: "https://www.gov.uk/redundancy/"}}}
	fetcher := &countingFetcher{}
	uc := newRetrieveHarness([]ports.LegalSearcher{first, second}, fetcher, LegalRetrieveConfig{})

	sources, err := uc.Retrieve(context.Background(), "redundancy")
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}
	if len(sources) != 1 {
		t.Fatalf("expected deduplicated source, got %d", len(sources))
	}
	if fetcher.count() != 1 {
		t.Fatalf("expected one fetch for the shared page, got %d", fetcher.count())
	}
}

func TestRetrieveHonorsMaxSources(t *testing.T) {
	searcher := &stubSearcher{hits: []domain.LegalSearchHit{
		{URL: "https://www.gov.uk/a"},
		{URL: "https://www.gov.uk/b"},
		{URL: "https://www.gov.uk/c"},
	}}
	uc := newRetrieveHarness([]ports.LegalSearcher{searcher}, &countingFetcher{}, LegalRetrieveConfig{MaxSources: 2})

	sources, err := uc.Retrieve(context.Background(), "q")
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}
	if len(sources) > 2 {
		t.Fatalf("expected at most 2 sources, got %d", len(sources))
	}
}
