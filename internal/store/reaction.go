package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dukerupert/citievents/internal/model"
)

// ReactionStore remembers the last server-confirmed like state per event and
// visitor identity, so a restarted console can show it before the next
// toggle.
type ReactionStore struct {
	db        *sql.DB
	namespace string
}

func NewReactionStore(db *sql.DB, namespace string) *ReactionStore {
	return &ReactionStore{db: db, namespace: namespace}
}

func scanReaction(scanner interface{ Scan(...any) error }) (*model.ReactionState, error) {
	var r model.ReactionState
	var eventID string
	var liked int
	if err := scanner.Scan(&eventID, &r.Fingerprint, &liked, &r.Count); err != nil {
		return nil, err
	}
	r.EventID = model.ID(eventID)
	r.Liked = liked != 0
	return &r, nil
}

const reactionCols = `event_id, fingerprint, liked, like_count`

func (s *ReactionStore) Record(ctx context.Context, state model.ReactionState) error {
	var liked int
	if state.Liked {
		liked = 1
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO reactions (namespace, event_id, fingerprint, liked, like_count) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(namespace, event_id, fingerprint) DO UPDATE SET
		   liked = excluded.liked, like_count = excluded.like_count, updated_at = CURRENT_TIMESTAMP`,
		s.namespace, state.EventID.String(), state.Fingerprint, liked, state.Count,
	)
	if err != nil {
		return fmt.Errorf("record reaction: %w", err)
	}
	return nil
}

func (s *ReactionStore) Get(ctx context.Context, eventID model.ID, fingerprint string) (*model.ReactionState, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+reactionCols+` FROM reactions WHERE namespace = ? AND event_id = ? AND fingerprint = ?`,
		s.namespace, eventID.String(), fingerprint,
	)
	r, err := scanReaction(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get reaction: %w", err)
	}
	return r, nil
}

// ListByFingerprint returns every recorded reaction of one identity ordered
// by event.
func (s *ReactionStore) ListByFingerprint(ctx context.Context, fingerprint string) ([]model.ReactionState, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+reactionCols+` FROM reactions WHERE namespace = ? AND fingerprint = ? ORDER BY event_id`,
		s.namespace, fingerprint,
	)
	if err != nil {
		return nil, fmt.Errorf("list reactions: %w", err)
	}
	defer rows.Close()

	var out []model.ReactionState
	for rows.Next() {
		r, err := scanReaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan reaction: %w", err)
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}
