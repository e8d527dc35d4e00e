package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/quotedesk/internal/draft"
)

var _ draft.KV = (*Store)(nil)

// LoadDraft returns the draft stored under key, or (nil, nil) if none.
func (s *Store) LoadDraft(ctx context.Context, key string) ([]byte, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx, `SELECT data FROM drafts WHERE key = ?`, key).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load draft %s: %w", key, err)
	}
	return data, nil
}

// SaveDraft stores data under key, replacing any previous draft.
func (s *Store) SaveDraft(ctx context.Context, key string, data []byte) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO drafts (key, data) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET data = excluded.data
	`, key, data)
	if err != nil {
		return fmt.Errorf("save draft %s: %w", key, err)
	}
	return nil
}

// ClearDraft removes the draft stored under key. Clearing a missing draft
// is not an error.
func (s *Store) ClearDraft(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM drafts WHERE key = ?`, key); err != nil {
		return fmt.Errorf("clear draft %s: %w", key, err)
	}
	return nil
}
