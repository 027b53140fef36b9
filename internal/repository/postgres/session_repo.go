package postgres

import (
	"context"
	"errors"

	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"

	"github.com/and161185/authcore/internal/errs"
	"github.com/and161185/authcore/internal/model"
	"github.com/and161185/authcore/internal/repository"
)

// SessionRepo implements SessionRepository using PostgreSQL.
type SessionRepo struct{ db *DB }

// NewSessionRepo constructs a session repository.
func NewSessionRepo(db *DB) *SessionRepo { return &SessionRepo{db: db} }

// Create inserts a new session row.
func (r *SessionRepo) Create(ctx context.Context, s *model.Session) error {
	const q = `
INSERT INTO sessions (id, user_id, token_hash, expires_at, last_seen_at)
VALUES ($1, $2, $3, $4, now())`
	_, err := r.db.Pool.Exec(ctx, q, s.ID, s.UserID, s.TokenHash, s.ExpiresAt)
	return err
}

// GetLiveByFingerprint resolves a token fingerprint to a live session plus
// its owner and optional profile in one query. Expired rows are filtered,
// not deleted.
func (r *SessionRepo) GetLiveByFingerprint(ctx context.Context, fp string) (*repository.LiveSession, error) {
	const q = `
SELECT s.id, s.user_id, s.token_hash, s.expires_at, s.last_seen_at, u.email, p.id
FROM sessions s
JOIN users u ON u.id = s.user_id
LEFT JOIN profiles p ON p.user_id = u.id
WHERE s.token_hash = $1 AND s.expires_at > now()`
	var ls repository.LiveSession
	row := r.db.Pool.QueryRow(ctx, q, fp)
	err := row.Scan(&ls.Session.ID, &ls.Session.UserID, &ls.Session.TokenHash,
		&ls.Session.ExpiresAt, &ls.Session.LastSeenAt, &ls.Email, &ls.ProfileID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, err
	}
	return &ls, nil
}

// Touch updates the session's last-activity timestamp.
func (r *SessionRepo) Touch(ctx context.Context, id uuid.UUID) error {
	const q = `UPDATE sessions SET last_seen_at = now() WHERE id = $1`
	_, err := r.db.Pool.Exec(ctx, q, id)
	return err
}

// DeleteByFingerprint removes the session matching fp. Deleting a
// fingerprint with no row is not an error.
func (r *SessionRepo) DeleteByFingerprint(ctx context.Context, fp string) error {
	const q = `DELETE FROM sessions WHERE token_hash = $1`
	_, err := r.db.Pool.Exec(ctx, q, fp)
	return err
}

// DeleteAllForUser removes every session owned by userID.
func (r *SessionRepo) DeleteAllForUser(ctx context.Context, userID uuid.UUID) error {
	const q = `DELETE FROM sessions WHERE user_id = $1`
	_, err := r.db.Pool.Exec(ctx, q, userID)
	return err
}
