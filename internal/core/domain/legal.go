package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// LegalSnapshot is an immutable, content-addressed capture of a fetched legal
// page. ID is derived from the normalized URL, so a re-fetch of an unchanged
// page lands on the same address.
type LegalSnapshot struct {
	ID          string    `json:"id"`
	URL         string    `json:"url"`
	Domain      string    `json:"domain"`
	Title       string    `json:"title,omitempty"`
	Excerpt     string    `json:"excerpt,omitempty"`
	Text        string    `json:"-"`
	HTML        string    `json:"-"`
	ContentHash string    `json:"content_hash"`
	FetchedAt   time.Time `json:"fetched_at"`
}

type SourceType string

const (
	SourceClient SourceType = "client"
	SourceLegal  SourceType = "legal"
)

// Citation is a claim of provenance extracted from generated text. It is never
// surfaced without passing validation against exactly one stored source.
type Citation struct {
	SourceID   string     `json:"source_id"`
	SourceType SourceType `json:"source_type"`
	URL        string     `json:"url,omitempty"`
	Domain     string     `json:"domain,omitempty"`
	FileName   string     `json:"file_name,omitempty"`
	Page       int        `json:"page,omitempty"`
	Excerpt    string     `json:"excerpt"`
}

type ValidationReason string

const (
	ReasonValid                ValidationReason = "valid"
	ReasonUnknownID            ValidationReason = "unknown_id"
	ReasonURLMismatch          ValidationReason = "url_mismatch"
	ReasonDomainNotWhitelisted ValidationReason = "domain_not_whitelisted"
	ReasonExcerptNotFound      ValidationReason = "excerpt_not_found"
)

type ValidationResult struct {
	OK     bool             `json:"ok"`
	Reason ValidationReason `json:"reason"`
	Detail string           `json:"detail,omitempty"`
}

// LegalSearchHit is an unfetched search-engine result; it becomes usable only
// after passing the whitelist gate and being snapshotted.
type LegalSearchHit struct {
	URL     string
	Title   string
	Snippet string
}

// SnapshotIDForURL derives the stable source ID from a normalized URL: the
// first 16 hex characters of its SHA-256. Stable across re-fetches, safe as a
// filesystem name.
func SnapshotIDForURL(normalizedURL string) string {
	sum := sha256.Sum256([]byte(normalizedURL))
	return hex.EncodeToString(sum[:])[:16]
}

// HashContent fingerprints snapshot text so unchanged re-fetches are
// recognizably identical.
func HashContent(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}
