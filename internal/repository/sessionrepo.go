package repository

import (
	"context"

	"github.com/and161185/authcore/internal/model"
	"github.com/gofrs/uuid/v5"
)

// LiveSession is a live session row joined with its owning user and the
// optional profile reference, resolved in a single query.
type LiveSession struct {
	Session   model.Session
	Email     string
	ProfileID uuid.NullUUID
}

// SessionRepository provides persistence for sessions.
type SessionRepository interface {
	// Create inserts a new session row.
	Create(ctx context.Context, s *model.Session) error
	// GetLiveByFingerprint resolves a token fingerprint to a session whose
	// expiry is still in the future. Expired or unknown fingerprints return
	// errs.ErrNotFound; expired rows are not purged on read.
	GetLiveByFingerprint(ctx context.Context, fp string) (*LiveSession, error)
	// Touch updates the session's last-activity timestamp.
	Touch(ctx context.Context, id uuid.UUID) error
	// DeleteByFingerprint removes the session matching fp, if any.
	DeleteByFingerprint(ctx context.Context, fp string) error
	// DeleteAllForUser removes every session owned by userID.
	DeleteAllForUser(ctx context.Context, userID uuid.UUID) error
}
