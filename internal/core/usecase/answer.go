package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/kirillkom/legal-case-assistant/internal/core/domain"
	"github.com/kirillkom/legal-case-assistant/internal/core/ports"
)

// AnswerMetrics observes answer-engine outcomes.
type AnswerMetrics interface {
	AnswerFinished(state domain.AnswerState, attempts int)
	CitationFailure(reason domain.ValidationReason)
}

// AnswerEngineConfig bounds the answer turn.
type AnswerEngineConfig struct {
	TopK int
	// MaxRetries is the regeneration budget after the first attempt.
	MaxRetries int
	// PartialAcceptance, when enabled, surfaces the answer with the failing
	// citations stripped instead of failing the whole turn. Off by default:
	// fail closed.
	PartialAcceptance bool
}

func (c AnswerEngineConfig) normalize() AnswerEngineConfig {
	out := c
	if out.TopK <= 0 {
		out.TopK = 8
	}
	if out.MaxRetries < 0 {
		out.MaxRetries = 0
	} else if out.MaxRetries == 0 {
		out.MaxRetries = 2
	}
	return out
}

// AnswerEngine orchestrates one question through retrieval, generation, and
// validation. No generated text reaches the caller without passing the
// citation validator; exhausted regeneration fails closed.
type AnswerEngine struct {
	hybrid    *HybridSearchUseCase
	legal     *LegalRetrieveUseCase
	validator *CitationValidator
	generator ports.AnswerGenerator
	sessions  ports.SessionStore
	whitelist domain.Whitelist
	cfg       AnswerEngineConfig
	metrics   AnswerMetrics
	logger    *slog.Logger

	// Serializes session writes per case so concurrent answers cannot
	// interleave a write. Last writer wins.
	sessionMu sync.Mutex
	caseLocks map[string]*sync.Mutex
}

func NewAnswerEngine(
	hybrid *HybridSearchUseCase,
	legal *LegalRetrieveUseCase,
	validator *CitationValidator,
	generator ports.AnswerGenerator,
	sessions ports.SessionStore,
	whitelist domain.Whitelist,
	cfg AnswerEngineConfig,
	metrics AnswerMetrics,
	logger *slog.Logger,
) *AnswerEngine {
	if logger == nil {
		logger = slog.Default()
	}
	return &AnswerEngine{
		hybrid:    hybrid,
		legal:     legal,
		validator: validator,
		generator: generator,
		sessions:  sessions,
		whitelist: whitelist,
		cfg:       cfg.normalize(),
		metrics:   metrics,
		logger:    logger,
		caseLocks: make(map[string]*sync.Mutex),
	}
}

// Answer runs the full pipeline for one question.
func (e *AnswerEngine) Answer(ctx context.Context, caseID, question string) (*domain.AnswerResult, error) {
	if err := domain.ValidateCaseID(caseID); err != nil {
		return nil, err
	}
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "answer", fmt.Errorf("question is empty"))
	}

	session, err := e.sessions.Load(ctx, caseID)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}

	evidence, sources, err := e.retrieve(ctx, caseID, question)
	if err != nil {
		return nil, err
	}

	// Designed terminal success state: nothing to answer from means exactly
	// that, with zero citations and no generation call.
	if len(evidence) == 0 && len(sources) == 0 {
		result := &domain.AnswerResult{
			CaseID:   caseID,
			Question: question,
			Answer:   domain.NoInformationAnswer,
			State:    domain.AnswerDone,
		}
		e.finished(result)
		return result, nil
	}

	result, err := e.generateAndValidate(ctx, caseID, question, session, evidence, sources)
	if err != nil {
		return nil, err
	}

	if result.State == domain.AnswerDone {
		if err := e.updateSession(ctx, session, evidence, sources); err != nil {
			e.logger.Warn("session_update_failed", "case_id", caseID, "error", err)
		} else {
			result.SessionUpdated = true
		}
	}
	e.finished(result)
	return result, nil
}

// retrieve is Phase A: both retrieval legs run concurrently and the turn
// waits for both (join, not race). The legal leg degrades to empty on error;
// the client leg is load-bearing and fails the turn.
func (e *AnswerEngine) retrieve(ctx context.Context, caseID, question string) ([]domain.EvidenceItem, []domain.LegalSnapshot, error) {
	var (
		evidence []domain.EvidenceItem
		sources  []domain.LegalSnapshot
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		items, err := e.hybrid.Search(gctx, caseID, question, e.cfg.TopK)
		if err != nil {
			return fmt.Errorf("client evidence search: %w", err)
		}
		evidence = items
		return nil
	})
	g.Go(func() error {
		snaps, err := e.legal.Retrieve(gctx, question)
		if err != nil {
			e.logger.Warn("legal_retrieval_degraded", "case_id", caseID, "error", err)
			return nil
		}
		sources = snaps
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return evidence, sources, nil
}

// generateAndValidate is Phase B: the bounded generate/validate/regenerate
// loop. Attempt count is explicit loop state, not recursion, so per-attempt
// cancellation and the retry budget stay enforceable.
func (e *AnswerEngine) generateAndValidate(
	ctx context.Context,
	caseID, question string,
	session *domain.SessionState,
	evidence []domain.EvidenceItem,
	sources []domain.LegalSnapshot,
) (*domain.AnswerResult, error) {
	basePrompt := buildAnswerPrompt(question, evidence, sources, sessionContext(session), e.whitelist)

	var (
		lastAnswer string
		lastValid  []domain.Citation
		failures   []string
	)

	maxAttempts := e.cfg.MaxRetries + 1
	attempt := 0
	for attempt = 1; attempt <= maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		prompt := basePrompt
		if len(failures) > 0 {
			prompt = buildStricterPrompt(basePrompt, failures)
		}

		response, err := e.generator.Generate(ctx, prompt)
		if err != nil {
			return nil, fmt.Errorf("generate answer (attempt %d): %w", attempt, err)
		}

		answer, citations := parseCitations(response)
		lastAnswer = answer

		if len(citations) == 0 {
			if isNoInformationAnswer(answer) {
				return &domain.AnswerResult{
					CaseID:   caseID,
					Question: question,
					Answer:   domain.NoInformationAnswer,
					State:    domain.AnswerDone,
					Attempts: attempt,
					Evidence: evidence,
				}, nil
			}
			// Factual text without citations is a policy violation, not a
			// validator failure. Regenerate with the reason spelled out.
			failures = []string{"answer made factual claims with no citations despite available sources"}
			e.logger.Info("citation_soft_failure", "case_id", caseID, "attempt", attempt)
			continue
		}

		results, errs := e.validator.ValidateAll(ctx, caseID, citations)
		if len(errs) == 0 {
			return &domain.AnswerResult{
				CaseID:       caseID,
				Question:     question,
				Answer:       answer,
				State:        domain.AnswerDone,
				Attempts:     attempt,
				Evidence:     evidence,
				LegalSources: trimSnapshots(sources),
				Citations:    citations,
			}, nil
		}

		lastValid = lastValid[:0]
		for i, result := range results {
			if result.OK {
				lastValid = append(lastValid, citations[i])
			} else if e.metrics != nil {
				e.metrics.CitationFailure(result.Reason)
			}
		}
		failures = errs
		e.logger.Info("citation_validation_failed",
			"case_id", caseID, "attempt", attempt, "failures", len(errs))
	}

	// Attempts exhausted with unverifiable citations remaining.
	result := &domain.AnswerResult{
		CaseID:           caseID,
		Question:         question,
		Answer:           domain.UnverifiableAnswer,
		State:            domain.AnswerFailed,
		Attempts:         maxAttempts,
		Evidence:         evidence,
		LegalSources:     trimSnapshots(sources),
		ValidationErrors: failures,
	}
	if e.cfg.PartialAcceptance && len(lastValid) > 0 {
		result.Answer = lastAnswer
		result.Citations = lastValid
	}
	return result, nil
}

func (e *AnswerEngine) updateSession(ctx context.Context, session *domain.SessionState, evidence []domain.EvidenceItem, sources []domain.LegalSnapshot) error {
	facts := make([]string, 0, len(evidence))
	for i, item := range evidence {
		if i == 5 {
			break
		}
		facts = append(facts, truncate(item.Text, 200))
	}
	sourceIDs := make([]string, 0, len(sources))
	for _, snap := range sources {
		sourceIDs = append(sourceIDs, snap.ID)
	}

	lock := e.caseLock(session.CaseID)
	lock.Lock()
	defer lock.Unlock()

	session.RecordTurn(facts, sourceIDs)
	return e.sessions.Save(ctx, session)
}

func (e *AnswerEngine) caseLock(caseID string) *sync.Mutex {
	e.sessionMu.Lock()
	defer e.sessionMu.Unlock()
	lock, ok := e.caseLocks[caseID]
	if !ok {
		lock = &sync.Mutex{}
		e.caseLocks[caseID] = lock
	}
	return lock
}

func (e *AnswerEngine) finished(result *domain.AnswerResult) {
	if e.metrics != nil {
		e.metrics.AnswerFinished(result.State, result.Attempts)
	}
}

func isNoInformationAnswer(answer string) bool {
	normalized := normalizeForMatch(answer)
	return normalized == "" || strings.Contains(normalized, "does not appear in the current case documents")
}

// trimSnapshots drops the full page text before results leave the engine; the
// stored snapshot remains the verification source of truth.
func trimSnapshots(sources []domain.LegalSnapshot) []domain.LegalSnapshot {
	out := make([]domain.LegalSnapshot, len(sources))
	for i, snap := range sources {
		snap.Text = ""
		snap.HTML = ""
		out[i] = snap
	}
	return out
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
