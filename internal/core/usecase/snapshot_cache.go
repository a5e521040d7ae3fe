package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"golang.org/x/sync/singleflight"

	"github.com/kirillkom/legal-case-assistant/internal/core/domain"
	"github.com/kirillkom/legal-case-assistant/internal/core/ports"
)

// SnapshotCacheMetrics observes cache traffic. Implementations must be safe
// for concurrent use.
type SnapshotCacheMetrics interface {
	SnapshotCacheHit()
	SnapshotCacheMiss()
}

// SnapshotCacheUseCase is the write-through legal snapshot cache: whitelist
// gate, content-addressed storage, and per-URL fetch coalescing. Reads need no
// locking because stored snapshots are immutable.
type SnapshotCacheUseCase struct {
	store     ports.SnapshotStore
	fetcher   ports.PageFetcher
	whitelist domain.Whitelist
	metrics   SnapshotCacheMetrics
	logger    *slog.Logger

	flight singleflight.Group
}

func NewSnapshotCacheUseCase(
	store ports.SnapshotStore,
	fetcher ports.PageFetcher,
	whitelist domain.Whitelist,
	metrics SnapshotCacheMetrics,
	logger *slog.Logger,
) *SnapshotCacheUseCase {
	if logger == nil {
		logger = slog.Default()
	}
	return &SnapshotCacheUseCase{
		store:     store,
		fetcher:   fetcher,
		whitelist: whitelist,
		metrics:   metrics,
		logger:    logger,
	}
}

// Get returns a snapshot by source id, or ErrNotFound.
func (uc *SnapshotCacheUseCase) Get(ctx context.Context, sourceID string) (*domain.LegalSnapshot, error) {
	return uc.store.GetByID(ctx, sourceID)
}

// GetOrFetch returns the cached snapshot for rawURL, fetching and persisting
// it on a miss. The whitelist is enforced before any network I/O. Concurrent
// calls for the same normalized URL coalesce onto a single fetch.
func (uc *SnapshotCacheUseCase) GetOrFetch(ctx context.Context, rawURL string) (*domain.LegalSnapshot, error) {
	normalized, err := NormalizeSourceURL(rawURL)
	if err != nil {
		return nil, domain.WrapError(domain.ErrInvalidInput, "normalize url", err)
	}
	if !uc.whitelist.AllowsURL(normalized) {
		return nil, domain.WrapError(domain.ErrDomainNotAllowed, "snapshot fetch",
			fmt.Errorf("%s is outside the whitelist (%s)", normalized, uc.whitelist))
	}

	if cached, err := uc.store.GetByURL(ctx, normalized); err == nil {
		uc.countHit()
		return cached, nil
	} else if !domain.IsKind(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("snapshot lookup: %w", err)
	}
	uc.countMiss()

	result, err, _ := uc.flight.Do(normalized, func() (any, error) {
		// Another waiter may have completed the fetch before we got the slot.
		if cached, err := uc.store.GetByURL(ctx, normalized); err == nil {
			return cached, nil
		}

		snap, err := uc.fetcher.Fetch(ctx, normalized)
		if err != nil {
			return nil, fmt.Errorf("fetch %s: %w", normalized, err)
		}

		// A fetch that landed is persisted even if this request is being
		// abandoned; the snapshot benefits future requests.
		persistCtx := context.WithoutCancel(ctx)
		if err := uc.store.Put(persistCtx, snap); err != nil {
			return nil, fmt.Errorf("persist snapshot %s: %w", snap.ID, err)
		}
		uc.logger.Info("legal_snapshot_stored",
			"source_id", snap.ID, "domain", snap.Domain, "content_hash", snap.ContentHash)
		return snap, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(*domain.LegalSnapshot), nil
}

func (uc *SnapshotCacheUseCase) countHit() {
	if uc.metrics != nil {
		uc.metrics.SnapshotCacheHit()
	}
}

func (uc *SnapshotCacheUseCase) countMiss() {
	if uc.metrics != nil {
		uc.metrics.SnapshotCacheMiss()
	}
}

// NormalizeSourceURL canonicalizes a URL for use as a cache key: lowercased
// scheme and host, default port and fragment dropped, trailing slash trimmed
// from the path.
func NormalizeSourceURL(rawURL string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return "", err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return "", fmt.Errorf("url has no host")
	}
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	if (u.Scheme == "http" && strings.HasSuffix(u.Host, ":80")) ||
		(u.Scheme == "https" && strings.HasSuffix(u.Host, ":443")) {
		u.Host = u.Host[:strings.LastIndexByte(u.Host, ':')]
	}
	u.Fragment = ""
	if len(u.Path) > 1 {
		u.Path = strings.TrimRight(u.Path, "/")
	}
	return u.String(), nil
}
