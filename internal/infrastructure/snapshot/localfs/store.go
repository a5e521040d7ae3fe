// Package localfs persists legal snapshots content-addressed on the local
// filesystem: one directory per (domain, source id) holding the raw HTML, the
// extracted text, and a metadata file. The text file is the verification
// source of truth and is read back byte-identically.
package localfs

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/kirillkom/legal-case-assistant/internal/core/domain"
)

const (
	htmlFile = "source.html"
	textFile = "source.txt"
	metaFile = "meta.json"
)

type Store struct {
	basePath string
}

func New(basePath string) (*Store, error) {
	if basePath == "" {
		basePath = "./data/legal_cache"
	}
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("create snapshot dir: %w", err)
	}
	return &Store{basePath: basePath}, nil
}

type snapshotMeta struct {
	ID          string    `json:"id"`
	URL         string    `json:"url"`
	Domain      string    `json:"domain"`
	Title       string    `json:"title,omitempty"`
	ContentHash string    `json:"content_hash"`
	FetchedAt   time.Time `json:"fetched_at"`
}

// Put writes a snapshot. Writes are append-only: an existing snapshot at the
// same address is left untouched, so two coalesced fetch results cannot
// diverge.
func (s *Store) Put(_ context.Context, snap *domain.LegalSnapshot) error {
	dir := s.snapshotDir(snap.Domain, snap.ID)
	if _, err := os.Stat(filepath.Join(dir, metaFile)); err == nil {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create snapshot dir: %w", err)
	}

	if err := writeFileAtomic(filepath.Join(dir, htmlFile), []byte(snap.HTML)); err != nil {
		return fmt.Errorf("write html: %w", err)
	}
	if err := writeFileAtomic(filepath.Join(dir, textFile), []byte(snap.Text)); err != nil {
		return fmt.Errorf("write text: %w", err)
	}

	meta := snapshotMeta{
		ID:          snap.ID,
		URL:         snap.URL,
		Domain:      snap.Domain,
		Title:       snap.Title,
		ContentHash: snap.ContentHash,
		FetchedAt:   snap.FetchedAt,
	}
	raw, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal meta: %w", err)
	}
	// Meta lands last: a directory without meta.json is treated as absent.
	if err := writeFileAtomic(filepath.Join(dir, metaFile), raw); err != nil {
		return fmt.Errorf("write meta: %w", err)
	}
	return nil
}

func (s *Store) GetByID(_ context.Context, sourceID string) (*domain.LegalSnapshot, error) {
	if !safeName(sourceID) {
		return nil, domain.WrapError(domain.ErrNotFound, "snapshot by id", fmt.Errorf("malformed source id %q", sourceID))
	}
	entries, err := os.ReadDir(s.basePath)
	if err != nil {
		return nil, fmt.Errorf("read snapshot base dir: %w", err)
	}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		dir := filepath.Join(s.basePath, entry.Name(), sourceID)
		if _, err := os.Stat(filepath.Join(dir, metaFile)); err == nil {
			return s.load(dir)
		}
	}
	return nil, domain.WrapError(domain.ErrNotFound, "snapshot by id", fmt.Errorf("source %s", sourceID))
}

func (s *Store) GetByURL(_ context.Context, rawURL string) (*domain.LegalSnapshot, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, domain.WrapError(domain.ErrInvalidInput, "snapshot by url", err)
	}
	dir := s.snapshotDir(hostOnly(u.Host), domain.SnapshotIDForURL(rawURL))
	if _, err := os.Stat(filepath.Join(dir, metaFile)); err != nil {
		return nil, domain.WrapError(domain.ErrNotFound, "snapshot by url", fmt.Errorf("url %s", rawURL))
	}
	return s.load(dir)
}

func (s *Store) load(dir string) (*domain.LegalSnapshot, error) {
	raw, err := os.ReadFile(filepath.Join(dir, metaFile))
	if err != nil {
		return nil, fmt.Errorf("read meta: %w", err)
	}
	var meta snapshotMeta
	if err := json.Unmarshal(raw, &meta); err != nil {
		return nil, fmt.Errorf("decode meta: %w", err)
	}

	text, err := os.ReadFile(filepath.Join(dir, textFile))
	if err != nil {
		return nil, fmt.Errorf("read text: %w", err)
	}
	html, err := os.ReadFile(filepath.Join(dir, htmlFile))
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read html: %w", err)
	}

	return &domain.LegalSnapshot{
		ID:          meta.ID,
		URL:         meta.URL,
		Domain:      meta.Domain,
		Title:       meta.Title,
		Excerpt:     makeExcerpt(string(text)),
		Text:        string(text),
		HTML:        string(html),
		ContentHash: meta.ContentHash,
		FetchedAt:   meta.FetchedAt,
	}, nil
}

func (s *Store) snapshotDir(host, sourceID string) string {
	return filepath.Join(s.basePath, sanitizeSegment(host), sanitizeSegment(sourceID))
}

func writeFileAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func makeExcerpt(text string) string {
	text = strings.TrimSpace(text)
	if len(text) <= 500 {
		return text
	}
	return strings.TrimSpace(text[:500]) + "..."
}

func hostOnly(host string) string {
	if i := strings.IndexByte(host, ':'); i >= 0 {
		return host[:i]
	}
	return host
}

func sanitizeSegment(segment string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, segment)
}

func safeName(name string) bool {
	if name == "" {
		return false
	}
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
		default:
			return false
		}
	}
	return true
}
