package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dlowans/facet/internal/filter"
	"github.com/dlowans/facet/internal/navctx"
)

// SaveNavigationContext upserts the user's filter snapshot. The
// snapshot is stored as JSON; fields added to the filter state later
// simply come back zero-valued and are filled in by sanitize on load.
func (s *Store) SaveNavigationContext(ctx context.Context, userID string, snap filter.State) error {
	raw, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to marshal navigation context: %w", err)
	}

	q := `
	INSERT INTO nav_context (user_id, snapshot, updated_at)
	VALUES (?, ?, ?)
	ON CONFLICT(user_id) DO UPDATE SET
		snapshot = excluded.snapshot,
		updated_at = excluded.updated_at
	`
	_, err = s.conn.ExecContext(ctx, q, userID, string(raw), time.Now().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to save navigation context for %s: %w", userID, err)
	}
	return nil
}

// LoadNavigationContext retrieves the user's saved snapshot. An
// unparseable stored snapshot is treated as absent rather than an
// error; the caller falls back to defaults.
func (s *Store) LoadNavigationContext(ctx context.Context, userID string) (filter.State, bool, error) {
	var raw string
	err := s.conn.QueryRowContext(ctx,
		`SELECT snapshot FROM nav_context WHERE user_id = ?`, userID).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return filter.State{}, false, nil
	}
	if err != nil {
		return filter.State{}, false, fmt.Errorf("failed to load navigation context for %s: %w", userID, err)
	}

	var snap filter.State
	if err := json.Unmarshal([]byte(raw), &snap); err != nil {
		return filter.State{}, false, nil
	}
	return snap, true, nil
}

var _ navctx.Store = (*Store)(nil)
