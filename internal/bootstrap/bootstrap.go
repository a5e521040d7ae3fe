// Package bootstrap wires configuration, infrastructure adapters, and use
// cases into a running application for both binaries.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/kirillkom/legal-case-assistant/internal/config"
	"github.com/kirillkom/legal-case-assistant/internal/core/domain"
	"github.com/kirillkom/legal-case-assistant/internal/core/ports"
	"github.com/kirillkom/legal-case-assistant/internal/core/usecase"
	"github.com/kirillkom/legal-case-assistant/internal/infrastructure/chunking"
	"github.com/kirillkom/legal-case-assistant/internal/infrastructure/extractor"
	"github.com/kirillkom/legal-case-assistant/internal/infrastructure/extractor/pdf"
	"github.com/kirillkom/legal-case-assistant/internal/infrastructure/extractor/plaintext"
	"github.com/kirillkom/legal-case-assistant/internal/infrastructure/extractor/spreadsheet"
	"github.com/kirillkom/legal-case-assistant/internal/infrastructure/legalweb"
	"github.com/kirillkom/legal-case-assistant/internal/infrastructure/llm/ollama"
	"github.com/kirillkom/legal-case-assistant/internal/infrastructure/queue/nats"
	"github.com/kirillkom/legal-case-assistant/internal/infrastructure/repository/postgres"
	"github.com/kirillkom/legal-case-assistant/internal/infrastructure/resilience"
	snapshotfs "github.com/kirillkom/legal-case-assistant/internal/infrastructure/snapshot/localfs"
	"github.com/kirillkom/legal-case-assistant/internal/infrastructure/storage/localfs"
	"github.com/kirillkom/legal-case-assistant/internal/infrastructure/vector/qdrant"
)

type App struct {
	Config    config.Config
	Whitelist domain.Whitelist

	Queue     ports.MessageQueue
	Documents ports.DocumentRepository
	Sessions  ports.SessionStore

	IngestUC      *usecase.IngestDocumentUseCase
	ProcessUC     *usecase.ProcessDocumentUseCase
	Answerer      *usecase.AnswerEngine
	SnapshotCache *usecase.SnapshotCacheUseCase

	closeFn func()
}

// Options carries the per-binary collaborators that bootstrap cannot decide
// on its own. Both metrics fields may be nil.
type Options struct {
	Logger          *slog.Logger
	AnswerMetrics   usecase.AnswerMetrics
	SnapshotMetrics usecase.SnapshotCacheMetrics
}

func New(ctx context.Context, cfg config.Config, options Options) (*App, error) {
	logger := options.Logger
	if logger == nil {
		logger = slog.Default()
	}

	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := postgres.EnsureSchema(ctx, db); err != nil {
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	documents := postgres.NewDocumentRepository(db)
	chunks := postgres.NewChunkRepository(db)
	sessions := postgres.NewSessionRepository(db)

	storage, err := localfs.New(cfg.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("init object storage: %w", err)
	}
	snapshotStore, err := snapshotfs.New(cfg.SnapshotPath)
	if err != nil {
		return nil, fmt.Errorf("init snapshot store: %w", err)
	}

	executor := resilience.NewExecutor(resilience.DefaultConfig())

	queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{
		ResilienceExecutor: executor,
	})
	if err != nil {
		return nil, fmt.Errorf("init message queue: %w", err)
	}

	ollamaClient := ollama.New(ollama.Options{
		BaseURL:            cfg.OllamaURL,
		GenerateModel:      cfg.OllamaGenModel,
		EmbedModel:         cfg.OllamaEmbedModel,
		ResilienceExecutor: executor,
	})

	index := qdrant.New(cfg.QdrantURL, cfg.QdrantCollection)
	chunker := chunking.NewSplitter(cfg.ChunkSize, cfg.ChunkOverlap)
	extract := extractor.NewDispatcher(
		pdf.NewExtractor(storage),
		spreadsheet.NewExtractor(storage),
		plaintext.NewExtractor(storage),
	)

	whitelist := domain.NewWhitelist(cfg.WhitelistDomains)
	fetcher := legalweb.NewFetcher(whitelist, legalweb.FetcherOptions{
		RequestsPerSecond:  cfg.LegalRequestsPerSecond,
		ResilienceExecutor: executor,
	})
	searchers := []ports.LegalSearcher{
		legalweb.NewGovUKSearcher(cfg.GovUKSearchURL),
		legalweb.NewCaseLawSearcher(cfg.CaseLawSearchURL),
	}

	snapshotCache := usecase.NewSnapshotCacheUseCase(snapshotStore, fetcher, whitelist, options.SnapshotMetrics, logger)
	legalRetrieve := usecase.NewLegalRetrieveUseCase(searchers, snapshotCache, usecase.LegalRetrieveConfig{
		MaxSources:   cfg.LegalMaxSources,
		FetchTimeout: time.Duration(cfg.LegalFetchTimeoutSecs) * time.Second,
	}, logger)

	hybrid := usecase.NewHybridSearchUseCase(ollamaClient, index, usecase.HybridSearchConfig{
		KeywordWeight:  cfg.KeywordWeight,
		SemanticWeight: cfg.SemanticWeight,
		MaxPerDocument: cfg.MaxPerDocument,
		DedupThreshold: cfg.DedupThreshold,
	})

	resolver := usecase.NewStoredSourceResolver(chunks, snapshotStore)
	validator := usecase.NewCitationValidator(resolver, whitelist)

	answerer := usecase.NewAnswerEngine(
		hybrid,
		legalRetrieve,
		validator,
		ollamaClient,
		sessions,
		whitelist,
		usecase.AnswerEngineConfig{
			TopK:              cfg.AnswerTopK,
			MaxRetries:        cfg.MaxAnswerRetries,
			PartialAcceptance: cfg.PartialAcceptance,
		},
		options.AnswerMetrics,
		logger,
	)

	ingestUC := usecase.NewIngestDocumentUseCase(documents, storage, queue)
	processUC := usecase.NewProcessDocumentUseCase(documents, chunks, extract, chunker, ollamaClient, index)

	return &App{
		Config:    cfg,
		Whitelist: whitelist,

		Queue:     queue,
		Documents: documents,
		Sessions:  sessions,

		IngestUC:      ingestUC,
		ProcessUC:     processUC,
		Answerer:      answerer,
		SnapshotCache: snapshotCache,

		closeFn: func() {
			queue.Close()
			_ = db.Close()
		},
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
