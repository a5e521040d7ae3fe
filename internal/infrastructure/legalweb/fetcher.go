// Package legalweb talks to the permitted public legal websites: page
// fetching behind the domain whitelist and search over the public endpoints.
package legalweb

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/kirillkom/legal-case-assistant/internal/core/domain"
	"github.com/kirillkom/legal-case-assistant/internal/infrastructure/resilience"
)

const userAgent = "Mozilla/5.0 (compatible; CaseAssistantBot/1.0; legal research)"

// Fetcher retrieves whitelisted legal pages. The whitelist check happens
// before any network I/O; a rate limiter keeps the crawl polite across
// concurrent requests.
type Fetcher struct {
	httpClient *http.Client
	whitelist  domain.Whitelist
	limiter    *rate.Limiter
	executor   *resilience.Executor
}

type FetcherOptions struct {
	Timeout            time.Duration
	RequestsPerSecond  float64
	ResilienceExecutor *resilience.Executor
}

func NewFetcher(whitelist domain.Whitelist, options FetcherOptions) *Fetcher {
	timeout := options.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	rps := options.RequestsPerSecond
	if rps <= 0 {
		rps = 2
	}
	return &Fetcher{
		httpClient: &http.Client{Timeout: timeout},
		whitelist:  whitelist,
		limiter:    rate.NewLimiter(rate.Limit(rps), 1),
		executor:   options.ResilienceExecutor,
	}
}

// Fetch downloads one page and returns a complete snapshot. rawURL must
// already be normalized; its ID and content hash are derived here so the
// snapshot is self-consistent.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*domain.LegalSnapshot, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, domain.WrapError(domain.ErrInvalidInput, "fetch legal page", err)
	}
	if !f.whitelist.AllowsHost(u.Host) {
		return nil, domain.WrapError(domain.ErrDomainNotAllowed, "fetch legal page",
			fmt.Errorf("%s is outside the whitelist (%s)", u.Host, f.whitelist))
	}

	if err := f.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	var html string
	fetch := func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("User-Agent", userAgent)

		resp, err := f.httpClient.Do(req)
		if err != nil {
			return domain.WrapError(domain.ErrTemporary, "fetch legal page", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 500 {
			return domain.WrapError(domain.ErrTemporary, "fetch legal page", fmt.Errorf("status %s", resp.Status))
		}
		if resp.StatusCode >= 300 {
			return fmt.Errorf("fetch %s: status %s", rawURL, resp.Status)
		}

		raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
		if err != nil {
			return domain.WrapError(domain.ErrTemporary, "read legal page", err)
		}
		html = string(raw)
		return nil
	}

	if f.executor != nil {
		err = f.executor.Execute(ctx, "legal_fetch", fetch, classifyFetchError)
	} else {
		err = fetch(ctx)
	}
	if err != nil {
		return nil, err
	}

	title, text := extractReadableText(html)
	return &domain.LegalSnapshot{
		ID:          domain.SnapshotIDForURL(rawURL),
		URL:         rawURL,
		Domain:      hostWithoutPort(u.Host),
		Title:       title,
		Excerpt:     excerptOf(text),
		Text:        text,
		HTML:        html,
		ContentHash: domain.HashContent(text),
		FetchedAt:   time.Now().UTC(),
	}, nil
}

func excerptOf(text string) string {
	text = strings.TrimSpace(text)
	if len(text) <= 500 {
		return text
	}
	return strings.TrimSpace(text[:500]) + "..."
}

func hostWithoutPort(host string) string {
	if i := strings.IndexByte(host, ':'); i >= 0 {
		return host[:i]
	}
	return host
}
