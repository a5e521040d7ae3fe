package legalweb

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/kirillkom/legal-case-assistant/internal/core/domain"
)

const samplePage = `<html>
<head><title>Redundancy: your rights</title><script>track();</script></head>
<body>
<nav>Home | Benefits | Work</nav>
<main>
<h1>Redundancy: your rights</h1>
<p>You are entitled to statutory redundancy pay after two years of service.</p>
</main>
<footer>Crown copyright</footer>
</body>
</html>`

func TestFetchBuildsSnapshotFromWhitelistedPage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("User-Agent") == "" {
			t.Errorf("fetch must identify itself with a user agent")
		}
		_, _ = w.Write([]byte(samplePage))
	}))
	defer server.Close()

	fetcher := NewFetcher(domain.NewWhitelist([]string{"127.0.0.1"}), FetcherOptions{})

	snap, err := fetcher.Fetch(context.Background(), server.URL+"/redundancy")
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if snap.ID != domain.SnapshotIDForURL(server.URL+"/redundancy") {
		t.Fatalf("snapshot id must derive from the url, got %q", snap.ID)
	}
	if snap.Title != "Redundancy: your rights" {
		t.Fatalf("title = %q", snap.Title)
	}
	if !strings.Contains(snap.Text, "statutory redundancy pay after two years") {
		t.Fatalf("readable text missing body content: %q", snap.Text)
	}
	if strings.Contains(snap.Text, "track()") || strings.Contains(snap.Text, "Crown copyright") {
		t.Fatalf("script/footer chrome must be stripped: %q", snap.Text)
	}
	if snap.ContentHash != domain.HashContent(snap.Text) {
		t.Fatalf("content hash must cover the extracted text")
	}
	if snap.HTML == "" {
		t.Fatalf("raw html must be kept for the snapshot record")
	}
}

func TestFetchRefusesNonWhitelistedBeforeIO(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer server.Close()

	fetcher := NewFetcher(domain.NewWhitelist([]string{"gov.uk"}), FetcherOptions{})

	_, err := fetcher.Fetch(context.Background(), server.URL+"/anything")
	if !domain.IsKind(err, domain.ErrDomainNotAllowed) {
		t.Fatalf("expected ErrDomainNotAllowed, got %v", err)
	}
	if hits.Load() != 0 {
		t.Fatalf("refused fetch must not reach the network, got %d requests", hits.Load())
	}
}

func TestFetchServerErrorIsTemporary(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream broken", http.StatusBadGateway)
	}))
	defer server.Close()

	fetcher := NewFetcher(domain.NewWhitelist([]string{"127.0.0.1"}), FetcherOptions{})

	_, err := fetcher.Fetch(context.Background(), server.URL+"/x")
	if !domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("5xx must classify as temporary, got %v", err)
	}
}

func TestFetchClientErrorIsPermanent(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	defer server.Close()

	fetcher := NewFetcher(domain.NewWhitelist([]string{"127.0.0.1"}), FetcherOptions{})

	_, err := fetcher.Fetch(context.Background(), server.URL+"/gone")
	if err == nil {
		t.Fatalf("4xx must fail")
	}
	if domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("4xx must not classify as temporary: %v", err)
	}
}
