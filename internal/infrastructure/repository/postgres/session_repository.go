package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/kirillkom/legal-case-assistant/internal/core/domain"
)

// SessionRepository persists per-case session state as a single JSONB row.
// Unknown cases load as a fresh state rather than an error.
type SessionRepository struct {
	db *sql.DB
}

func NewSessionRepository(db *sql.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

func (r *SessionRepository) Load(ctx context.Context, caseID string) (*domain.SessionState, error) {
	row := r.db.QueryRowContext(ctx, `SELECT state FROM sessions WHERE case_id = $1`, caseID)

	var raw []byte
	if err := row.Scan(&raw); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.NewSessionState(caseID), nil
		}
		return nil, fmt.Errorf("scan session: %w", err)
	}

	var state domain.SessionState
	if err := json.Unmarshal(raw, &state); err != nil {
		return nil, fmt.Errorf("unmarshal session state: %w", err)
	}
	state.CaseID = caseID
	return &state, nil
}

func (r *SessionRepository) Save(ctx context.Context, state *domain.SessionState) error {
	raw, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshal session state: %w", err)
	}

	now := time.Now().UTC()
	_, err = r.db.ExecContext(ctx, `
INSERT INTO sessions (case_id, state, created_at, updated_at)
VALUES ($1, $2, $3, $3)
ON CONFLICT (case_id) DO UPDATE SET state = EXCLUDED.state, updated_at = EXCLUDED.updated_at
`, state.CaseID, raw, now)
	if err != nil {
		return fmt.Errorf("upsert session: %w", err)
	}
	return nil
}
