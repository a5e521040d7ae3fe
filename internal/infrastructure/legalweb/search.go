package legalweb

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/kirillkom/legal-case-assistant/internal/core/domain"
)

// GovUKSearcher queries the GOV.UK Search API for guidance and legislation
// pages. Results are candidate URLs only; the whitelist gate still applies at
// fetch time.
type GovUKSearcher struct {
	baseURL    string
	httpClient *http.Client
}

func NewGovUKSearcher(baseURL string) *GovUKSearcher {
	if baseURL == "" {
		baseURL = "https://www.gov.uk"
	}
	return &GovUKSearcher{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

func (s *GovUKSearcher) Search(ctx context.Context, query string, limit int) ([]domain.LegalSearchHit, error) {
	if limit <= 0 {
		limit = 3
	}
	endpoint := fmt.Sprintf("%s/api/search.json?q=%s&count=%d", s.baseURL, url.QueryEscape(query), limit)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create search request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, domain.WrapError(domain.ErrTemporary, "gov.uk search", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("gov.uk search status: %s", resp.Status)
	}

	var payload struct {
		Results []struct {
			Title       string `json:"title"`
			Link        string `json:"link"`
			Description string `json:"description"`
		} `json:"results"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode gov.uk search response: %w", err)
	}

	hits := make([]domain.LegalSearchHit, 0, len(payload.Results))
	for _, result := range payload.Results {
		link := result.Link
		if strings.HasPrefix(link, "/") {
			link = s.baseURL + link
		}
		hits = append(hits, domain.LegalSearchHit{
			URL:     link,
			Title:   result.Title,
			Snippet: result.Description,
		})
	}
	return hits, nil
}

// CaseLawSearcher queries the Find Case Law Atom feed at the National
// Archives for judgments.
type CaseLawSearcher struct {
	baseURL    string
	httpClient *http.Client
}

func NewCaseLawSearcher(baseURL string) *CaseLawSearcher {
	if baseURL == "" {
		baseURL = "https://caselaw.nationalarchives.gov.uk"
	}
	return &CaseLawSearcher{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

func (s *CaseLawSearcher) Search(ctx context.Context, query string, limit int) ([]domain.LegalSearchHit, error) {
	if limit <= 0 {
		limit = 3
	}
	endpoint := fmt.Sprintf("%s/atom.xml?query=%s&per_page=%d", s.baseURL, url.QueryEscape(query), limit)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create search request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, domain.WrapError(domain.ErrTemporary, "case law search", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("case law search status: %s", resp.Status)
	}

	var feed struct {
		Entries []struct {
			Title   string `xml:"title"`
			Summary string `xml:"summary"`
			Links   []struct {
				Rel  string `xml:"rel,attr"`
				Href string `xml:"href,attr"`
			} `xml:"link"`
		} `xml:"entry"`
	}
	if err := xml.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&feed); err != nil {
		return nil, fmt.Errorf("decode case law feed: %w", err)
	}

	hits := make([]domain.LegalSearchHit, 0, len(feed.Entries))
	for _, entry := range feed.Entries {
		href := ""
		for _, link := range entry.Links {
			if link.Rel == "" || link.Rel == "alternate" {
				href = link.Href
				break
			}
		}
		if href == "" {
			continue
		}
		if strings.HasPrefix(href, "/") {
			href = s.baseURL + href
		}
		hits = append(hits, domain.LegalSearchHit{
			URL:     href,
			Title:   strings.TrimSpace(entry.Title),
			Snippet: strings.TrimSpace(entry.Summary),
		})
		if len(hits) >= limit {
			break
		}
	}
	return hits, nil
}
