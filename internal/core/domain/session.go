package domain

import "time"

// RollingSummary is generated case context that persists across turns. It is
// advisory prompt material only and is never treated as a source of fact.
type RollingSummary struct {
	Version          int       `json:"version"`
	ClientBackground string    `json:"client_background,omitempty"`
	KeyChronology    []string  `json:"key_chronology,omitempty"`
	LegalIssues      []string  `json:"legal_issues,omitempty"`
	SourceReferences []string  `json:"source_references,omitempty"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// SessionState is the per-case state mutated after every successful answer.
type SessionState struct {
	CaseID           string         `json:"case_id"`
	RetrievedFacts   []string       `json:"retrieved_facts,omitempty"`
	LegalSourcesUsed []string       `json:"legal_sources_used,omitempty"`
	RollingSummary   RollingSummary `json:"rolling_summary"`
	TurnCount        int            `json:"turn_count"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
}

func NewSessionState(caseID string) *SessionState {
	now := time.Now().UTC()
	return &SessionState{
		CaseID:         caseID,
		RollingSummary: RollingSummary{Version: 1, UpdatedAt: now},
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

const maxRetainedFacts = 20

// RecordTurn folds a completed answer turn into the session: the most recent
// retrieved facts (bounded), the legal sources consulted (deduplicated), and
// the turn counter.
func (s *SessionState) RecordTurn(facts []string, legalSourceIDs []string) {
	s.RetrievedFacts = append(s.RetrievedFacts, facts...)
	if len(s.RetrievedFacts) > maxRetainedFacts {
		s.RetrievedFacts = s.RetrievedFacts[len(s.RetrievedFacts)-maxRetainedFacts:]
	}

	seen := make(map[string]struct{}, len(s.LegalSourcesUsed))
	for _, id := range s.LegalSourcesUsed {
		seen[id] = struct{}{}
	}
	for _, id := range legalSourceIDs {
		if _, ok := seen[id]; !ok {
			seen[id] = struct{}{}
			s.LegalSourcesUsed = append(s.LegalSourcesUsed, id)
		}
	}

	s.TurnCount++
	s.UpdatedAt = time.Now().UTC()
}
