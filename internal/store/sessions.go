package store

import (
	"context"
	"fmt"
	"time"
)

// InsertSession records a session keyed by the digest of its token.
func (s *SQLiteStore) InsertSession(ctx context.Context, digest, userID string, createdAt, expiresAt time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions (token_digest, user_id, created_at, expires_at) VALUES (?, ?, ?, ?)
	`, digest, userID, formatTime(createdAt), formatTime(expiresAt))
	if err != nil {
		return fmt.Errorf("store: insert session: %w", err)
	}
	return nil
}

// SessionUser returns the user id of an unexpired session.
func (s *SQLiteStore) SessionUser(ctx context.Context, digest string, now time.Time) (string, error) {
	var userID string
	err := s.db.QueryRowContext(ctx, `
		SELECT user_id FROM sessions WHERE token_digest = ? AND expires_at > ?
	`, digest, formatTime(now)).Scan(&userID)
	if err != nil {
		return "", fmt.Errorf("store: session: %w", notFound(err))
	}
	return userID, nil
}

// DeleteSession removes a session. Deleting an unknown session is not an error.
func (s *SQLiteStore) DeleteSession(ctx context.Context, digest string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE token_digest = ?`, digest)
	if err != nil {
		return fmt.Errorf("store: delete session: %w", err)
	}
	return nil
}

// PurgeSessions deletes every session that expired before now and
// returns how many were removed.
func (s *SQLiteStore) PurgeSessions(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at <= ?`, formatTime(now))
	if err != nil {
		return 0, fmt.Errorf("store: purge sessions: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}
