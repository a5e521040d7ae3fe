package usecase

import (
	"context"
	"fmt"
	"sort"

	"github.com/kirillkom/legal-case-assistant/internal/core/domain"
	"github.com/kirillkom/legal-case-assistant/internal/core/ports"
)

// HybridSearchConfig tunes score fusion and result shaping.
type HybridSearchConfig struct {
	KeywordWeight  float64
	SemanticWeight float64
	MaxPerDocument int
	DedupThreshold float64
}

func (c HybridSearchConfig) normalize() HybridSearchConfig {
	out := c
	if out.KeywordWeight <= 0 && out.SemanticWeight <= 0 {
		out.KeywordWeight = 0.5
		out.SemanticWeight = 0.5
	}
	if out.MaxPerDocument <= 0 {
		out.MaxPerDocument = 3
	}
	if out.DedupThreshold <= 0 || out.DedupThreshold > 1 {
		out.DedupThreshold = 0.9
	}
	return out
}

// HybridSearchUseCase fuses keyword and semantic retrieval over one case's
// chunks into a ranked, capped, deduplicated evidence list.
type HybridSearchUseCase struct {
	embedder ports.Embedder
	index    ports.ChunkIndex
	cfg      HybridSearchConfig
}

func NewHybridSearchUseCase(embedder ports.Embedder, index ports.ChunkIndex, cfg HybridSearchConfig) *HybridSearchUseCase {
	return &HybridSearchUseCase{
		embedder: embedder,
		index:    index,
		cfg:      cfg.normalize(),
	}
}

// Search returns at most topN evidence items ordered by fused score. An empty
// index yields an empty list; a failed query embedding is a retrieval error.
func (uc *HybridSearchUseCase) Search(ctx context.Context, caseID, query string, topN int) ([]domain.EvidenceItem, error) {
	if topN <= 0 {
		topN = 8
	}
	// Each leg over-fetches so fusion has candidates the other leg missed.
	fetchN := topN * 2

	queryVector, err := uc.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, domain.WrapError(domain.ErrRetrieval, "embed query", err)
	}
	if len(queryVector) == 0 {
		return nil, domain.WrapError(domain.ErrRetrieval, "embed query", fmt.Errorf("empty query embedding"))
	}

	keyword, err := uc.index.SearchKeyword(ctx, caseID, query, fetchN)
	if err != nil {
		return nil, fmt.Errorf("keyword search: %w", err)
	}
	semantic, err := uc.index.SearchSemantic(ctx, caseID, queryVector, fetchN)
	if err != nil {
		return nil, fmt.Errorf("semantic search: %w", err)
	}

	fused := fuseEvidence(keyword, semantic, uc.cfg.KeywordWeight, uc.cfg.SemanticWeight)
	fused = capPerDocument(fused, uc.cfg.MaxPerDocument)
	fused = suppressNearDuplicates(fused, uc.cfg.DedupThreshold)

	if len(fused) > topN {
		fused = fused[:topN]
	}
	return fused, nil
}

// fuseEvidence min-max normalizes each score set independently and combines
// them with the configured weights. A candidate missing from one leg
// contributes zero for that leg.
func fuseEvidence(keyword, semantic []domain.EvidenceItem, keywordWeight, semanticWeight float64) []domain.EvidenceItem {
	keyword = normalizeScores(keyword)
	semantic = normalizeScores(semantic)

	type legScores struct {
		keyword  float64
		semantic float64
	}
	merged := make(map[string]domain.EvidenceItem, len(keyword)+len(semantic))
	scores := make(map[string]legScores, len(keyword)+len(semantic))

	for _, item := range keyword {
		merged[item.ChunkID] = item
		s := scores[item.ChunkID]
		s.keyword = item.Score
		scores[item.ChunkID] = s
	}
	for _, item := range semantic {
		if _, ok := merged[item.ChunkID]; !ok {
			merged[item.ChunkID] = item
		}
		s := scores[item.ChunkID]
		s.semantic = item.Score
		scores[item.ChunkID] = s
	}

	out := make([]domain.EvidenceItem, 0, len(merged))
	for chunkID, item := range merged {
		s := scores[chunkID]
		item.Score = keywordWeight*s.keyword + semanticWeight*s.semantic
		out = append(out, item)
	}

	sortEvidence(out)
	return out
}

// sortEvidence orders by fused score descending; ties break by earlier page,
// then earlier paragraph, then chunk id, for determinism.
func sortEvidence(items []domain.EvidenceItem) {
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].Score != items[j].Score {
			return items[i].Score > items[j].Score
		}
		if items[i].Page != items[j].Page {
			return items[i].Page < items[j].Page
		}
		if items[i].Paragraph != items[j].Paragraph {
			return items[i].Paragraph < items[j].Paragraph
		}
		return items[i].ChunkID < items[j].ChunkID
	})
}

func normalizeScores(items []domain.EvidenceItem) []domain.EvidenceItem {
	if len(items) == 0 {
		return items
	}
	minScore := items[0].Score
	maxScore := items[0].Score
	for _, item := range items[1:] {
		if item.Score < minScore {
			minScore = item.Score
		}
		if item.Score > maxScore {
			maxScore = item.Score
		}
	}

	out := make([]domain.EvidenceItem, len(items))
	copy(out, items)

	scoreRange := maxScore - minScore
	if scoreRange == 0 {
		uniform := 0.0
		if maxScore > 0 {
			uniform = 1.0
		}
		for i := range out {
			out[i].Score = uniform
		}
		return out
	}
	for i := range out {
		out[i].Score = (out[i].Score - minScore) / scoreRange
	}
	return out
}

// capPerDocument keeps at most maxPerDoc chunks from any single file, highest
// fused score first, so one document cannot dominate the evidence list.
func capPerDocument(items []domain.EvidenceItem, maxPerDoc int) []domain.EvidenceItem {
	counts := make(map[string]int, len(items))
	out := make([]domain.EvidenceItem, 0, len(items))
	for _, item := range items {
		if counts[item.FileName] >= maxPerDoc {
			continue
		}
		counts[item.FileName]++
		out = append(out, item)
	}
	return out
}

// suppressNearDuplicates collapses pairs of chunks whose token overlap meets
// the threshold, keeping the higher-scored (earlier) one. Items must already
// be sorted by score descending.
func suppressNearDuplicates(items []domain.EvidenceItem, threshold float64) []domain.EvidenceItem {
	if len(items) < 2 {
		return items
	}
	kept := make([]domain.EvidenceItem, 0, len(items))
	keptTokens := make([]map[string]struct{}, 0, len(items))

	for _, item := range items {
		tokens := tokenSet(item.Text)
		duplicate := false
		for _, prior := range keptTokens {
			if tokenOverlap(tokens, prior) >= threshold {
				duplicate = true
				break
			}
		}
		if duplicate {
			continue
		}
		kept = append(kept, item)
		keptTokens = append(keptTokens, tokens)
	}
	return kept
}

// tokenOverlap measures how much of the smaller token set is contained in the
// larger one.
func tokenOverlap(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	small, large := a, b
	if len(b) < len(a) {
		small, large = b, a
	}
	matches := 0
	for token := range small {
		if _, ok := large[token]; ok {
			matches++
		}
	}
	return float64(matches) / float64(len(small))
}
