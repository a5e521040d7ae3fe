package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/kirillkom/legal-case-assistant/internal/core/domain"
)

// SourceResolver resolves a citation's claimed identity to stored source
// material. Legal citations resolve to snapshots, client citations to chunks.
type SourceResolver interface {
	ResolveLegal(ctx context.Context, sourceID string) (*domain.LegalSnapshot, error)
	ResolveChunk(ctx context.Context, caseID, chunkID string) (*domain.DocumentChunk, error)
}

// CitationValidator mechanically proves citations against stored source text.
// It is pure: it never fetches and never mutates.
//
// Four ordered checks, short-circuiting on first failure: unknown id, URL
// mismatch, domain not whitelisted, excerpt not found. The whitelist check is
// redundant with the fetch-time gate on purpose — the citation's claimed URL
// can diverge from the snapshot's.
type CitationValidator struct {
	resolver  SourceResolver
	whitelist domain.Whitelist
}

func NewCitationValidator(resolver SourceResolver, whitelist domain.Whitelist) *CitationValidator {
	return &CitationValidator{resolver: resolver, whitelist: whitelist}
}

// Validate runs the 4-check verification for one citation.
func (v *CitationValidator) Validate(ctx context.Context, caseID string, citation domain.Citation) domain.ValidationResult {
	switch citation.SourceType {
	case domain.SourceLegal:
		return v.validateLegal(ctx, citation)
	case domain.SourceClient:
		return v.validateClient(ctx, caseID, citation)
	default:
		return domain.ValidationResult{
			OK:     false,
			Reason: domain.ReasonUnknownID,
			Detail: fmt.Sprintf("unknown source type %q", citation.SourceType),
		}
	}
}

func (v *CitationValidator) validateLegal(ctx context.Context, citation domain.Citation) domain.ValidationResult {
	source, err := v.resolver.ResolveLegal(ctx, citation.SourceID)
	if err != nil || source == nil {
		return domain.ValidationResult{
			OK:     false,
			Reason: domain.ReasonUnknownID,
			Detail: fmt.Sprintf("source %q is not in the permitted set", citation.SourceID),
		}
	}

	if citation.URL != "" {
		cited, err := NormalizeSourceURL(citation.URL)
		if err != nil || cited != source.URL {
			return domain.ValidationResult{
				OK:     false,
				Reason: domain.ReasonURLMismatch,
				Detail: fmt.Sprintf("cited %q but source %s has %q", citation.URL, source.ID, source.URL),
			}
		}
	}

	if !v.whitelist.AllowsURL(source.URL) {
		return domain.ValidationResult{
			OK:     false,
			Reason: domain.ReasonDomainNotWhitelisted,
			Detail: fmt.Sprintf("domain of %q is not whitelisted", source.URL),
		}
	}

	return checkExcerpt(citation.Excerpt, source.Text, source.URL)
}

func (v *CitationValidator) validateClient(ctx context.Context, caseID string, citation domain.Citation) domain.ValidationResult {
	chunk, err := v.resolver.ResolveChunk(ctx, caseID, citation.SourceID)
	if err != nil || chunk == nil {
		return domain.ValidationResult{
			OK:     false,
			Reason: domain.ReasonUnknownID,
			Detail: fmt.Sprintf("chunk %q is not in the permitted set", citation.SourceID),
		}
	}
	label := chunk.FileName
	if label == "" {
		label = chunk.ChunkID
	}
	return checkExcerpt(citation.Excerpt, chunk.Text, label)
}

// checkExcerpt is check 4: after the shared whitespace normalization, the
// excerpt must be a substring of the stored source text.
func checkExcerpt(excerpt, sourceText, label string) domain.ValidationResult {
	if strings.TrimSpace(excerpt) == "" {
		return domain.ValidationResult{
			OK:     false,
			Reason: domain.ReasonExcerptNotFound,
			Detail: "citation has no excerpt",
		}
	}
	if !strings.Contains(normalizeForMatch(sourceText), normalizeForMatch(excerpt)) {
		return domain.ValidationResult{
			OK:     false,
			Reason: domain.ReasonExcerptNotFound,
			Detail: fmt.Sprintf("excerpt not found in %s", label),
		}
	}
	return domain.ValidationResult{OK: true, Reason: domain.ReasonValid}
}

// ValidateAll validates every citation and returns the per-citation results
// plus human-readable failure descriptions for the regeneration prompt.
func (v *CitationValidator) ValidateAll(ctx context.Context, caseID string, citations []domain.Citation) ([]domain.ValidationResult, []string) {
	results := make([]domain.ValidationResult, 0, len(citations))
	var failures []string
	for _, citation := range citations {
		result := v.Validate(ctx, caseID, citation)
		results = append(results, result)
		if !result.OK {
			ref := citation.URL
			if ref == "" {
				ref = citation.FileName
			}
			if ref == "" {
				ref = citation.SourceID
			}
			failures = append(failures, fmt.Sprintf("%s: %s (%s)", ref, result.Reason, result.Detail))
		}
	}
	return results, failures
}
