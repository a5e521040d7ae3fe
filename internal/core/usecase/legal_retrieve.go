package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/kirillkom/legal-case-assistant/internal/core/domain"
	"github.com/kirillkom/legal-case-assistant/internal/core/ports"
)

// LegalRetrieveConfig bounds the legal leg of Phase A.
type LegalRetrieveConfig struct {
	MaxSources   int
	FetchTimeout time.Duration
}

func (c LegalRetrieveConfig) normalize() LegalRetrieveConfig {
	out := c
	if out.MaxSources <= 0 {
		out.MaxSources = 4
	}
	if out.FetchTimeout <= 0 {
		out.FetchTimeout = 20 * time.Second
	}
	return out
}

// LegalRetrieveUseCase turns a question into whitelisted legal snapshots:
// search the permitted public endpoints, filter hits through the whitelist,
// write each fetched page through the snapshot cache. Partial results are
// acceptable; a slow or failing source never fails the whole leg.
type LegalRetrieveUseCase struct {
	searchers []ports.LegalSearcher
	cache     *SnapshotCacheUseCase
	cfg       LegalRetrieveConfig
	logger    *slog.Logger
}

func NewLegalRetrieveUseCase(
	searchers []ports.LegalSearcher,
	cache *SnapshotCacheUseCase,
	cfg LegalRetrieveConfig,
	logger *slog.Logger,
) *LegalRetrieveUseCase {
	if logger == nil {
		logger = slog.Default()
	}
	return &LegalRetrieveUseCase{
		searchers: searchers,
		cache:     cache,
		cfg:       cfg.normalize(),
		logger:    logger,
	}
}

// Retrieve collects up to MaxSources snapshots relevant to the query within
// the configured deadline.
func (uc *LegalRetrieveUseCase) Retrieve(ctx context.Context, query string) ([]domain.LegalSnapshot, error) {
	ctx, cancel := context.WithTimeout(ctx, uc.cfg.FetchTimeout)
	defer cancel()

	perSearcher := uc.cfg.MaxSources
	if len(uc.searchers) > 1 {
		perSearcher = (uc.cfg.MaxSources + len(uc.searchers) - 1) / len(uc.searchers)
	}

	sources := make([]domain.LegalSnapshot, 0, uc.cfg.MaxSources)
	seen := make(map[string]struct{}, uc.cfg.MaxSources)

	for _, searcher := range uc.searchers {
		if ctx.Err() != nil {
			break
		}
		hits, err := searcher.Search(ctx, query, perSearcher)
		if err != nil {
			uc.logger.Warn("legal_search_failed", "error", err)
			continue
		}
		for _, hit := range hits {
			if len(sources) >= uc.cfg.MaxSources || ctx.Err() != nil {
				break
			}
			snap, err := uc.cache.GetOrFetch(ctx, hit.URL)
			if err != nil {
				// Non-whitelisted hits and fetch failures are skipped, not
				// fatal: validation is what guarantees safety downstream.
				uc.logger.Warn("legal_fetch_skipped", "url", hit.URL, "error", err)
				continue
			}
			if _, dup := seen[snap.ID]; dup {
				continue
			}
			seen[snap.ID] = struct{}{}
			if snap.Title == "" {
				snap.Title = hit.Title
			}
			sources = append(sources, *snap)
		}
	}

	return sources, nil
}
