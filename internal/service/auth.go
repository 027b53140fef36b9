// Package service contains the session service orchestrating registration,
// login, logout, and per-request session resolution.
package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"

	"github.com/and161185/authcore/internal/crypto"
	"github.com/and161185/authcore/internal/errs"
	"github.com/and161185/authcore/internal/model"
	"github.com/and161185/authcore/internal/repository"
)

// decoyHash is a valid argon2id hash of an unguessable throwaway value.
// Login verifies against it when the email is unknown so the miss path
// costs the same hashing work as a wrong password.
const decoyHash = "$argon2id$v=19$m=65536,t=3,p=1$c2Vzc2lvbi1kZWNveS1zYWx0$L9pOE5cmUG0yC5ca4bS0yq4VBGOap3DqZZ9myLYwnzQ"

// touchTimeout bounds the detached last-activity update.
const touchTimeout = 2 * time.Second

// AuthService defines session and account operations exposed to transports.
type AuthService interface {
	// Register creates an account and immediately issues a session for it.
	Register(ctx context.Context, email, password string) (model.Account, *IssuedSession, error)
	// Login verifies credentials and issues a fresh session, invalidating
	// every previous session of the user.
	Login(ctx context.Context, email, password string) (model.Account, *IssuedSession, error)
	// Logout deletes the session matching the given bearer token. Idempotent;
	// unknown or empty tokens are ignored.
	Logout(ctx context.Context, token string) error
	// Authenticate resolves a bearer token to a principal. A missing,
	// unknown, or expired token yields (nil, nil): anonymous, not an error.
	Authenticate(ctx context.Context, token string) (*model.Principal, error)
	// Self re-reads the principal's user row, failing with ErrUnauthorized
	// if the account no longer exists.
	Self(ctx context.Context, p *model.Principal) (model.Account, error)
}

// IssuedSession carries what a transport needs to set the session cookie.
type IssuedSession struct {
	Token     string
	ExpiresAt time.Time
}

// Auth implements AuthService over the repositories.
type Auth struct {
	users      repository.UserRepository
	sessions   repository.SessionRepository
	sessionTTL time.Duration
	log        *zap.Logger
}

// NewAuth constructs the session service. sessionTTL is the lifetime of an
// issued session.
func NewAuth(users repository.UserRepository, sessions repository.SessionRepository, sessionTTL time.Duration, log *zap.Logger) *Auth {
	return &Auth{users: users, sessions: sessions, sessionTTL: sessionTTL, log: log}
}

// Register creates an account and logs it in.
//
// The GetByEmail pre-check only gives a friendlier fast path; the unique
// index on lower(email) decides races, surfacing as ErrAlreadyExists from
// Create.
func (s *Auth) Register(ctx context.Context, email, password string) (model.Account, *IssuedSession, error) {
	email = normalizeEmail(email)

	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return model.Account{}, nil, errs.ErrAlreadyExists
	} else if !errors.Is(err, errs.ErrNotFound) {
		return model.Account{}, nil, err
	}

	hash, err := crypto.HashPassword(password)
	if err != nil {
		return model.Account{}, nil, err
	}
	id, err := crypto.NewID()
	if err != nil {
		return model.Account{}, nil, err
	}

	u := &model.User{ID: id, Email: email, PasswordHash: hash}
	if err := s.users.Create(ctx, u); err != nil {
		return model.Account{}, nil, err
	}

	issued, err := s.issueSession(ctx, u.ID)
	if err != nil {
		return model.Account{}, nil, err
	}
	return model.Account{UserID: u.ID, Email: u.Email, ProfileID: u.ProfileID}, issued, nil
}

// Login verifies credentials and replaces any existing sessions with one
// fresh session (at most one live session per user).
func (s *Auth) Login(ctx context.Context, email, password string) (model.Account, *IssuedSession, error) {
	email = normalizeEmail(email)

	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			// Burn the same hashing work as a real mismatch, then answer
			// exactly like one.
			crypto.VerifyPassword(password, decoyHash)
			return model.Account{}, nil, errs.ErrInvalidCredentials
		}
		return model.Account{}, nil, err
	}
	if !crypto.VerifyPassword(password, u.PasswordHash) {
		return model.Account{}, nil, errs.ErrInvalidCredentials
	}

	issued, err := s.issueSession(ctx, u.ID)
	if err != nil {
		return model.Account{}, nil, err
	}
	return model.Account{UserID: u.ID, Email: u.Email, ProfileID: u.ProfileID}, issued, nil
}

// issueSession purges the user's previous sessions and persists a new one.
// Two concurrent logins can interleave the purge and insert; either token
// surviving as the sole live session is acceptable (last write wins).
func (s *Auth) issueSession(ctx context.Context, userID uuid.UUID) (*IssuedSession, error) {
	if err := s.sessions.DeleteAllForUser(ctx, userID); err != nil {
		return nil, err
	}

	token, err := crypto.NewToken()
	if err != nil {
		return nil, err
	}
	id, err := crypto.NewID()
	if err != nil {
		return nil, err
	}

	sess := &model.Session{
		ID:        id,
		UserID:    userID,
		TokenHash: crypto.Fingerprint(token),
		ExpiresAt: time.Now().Add(s.sessionTTL),
	}
	if err := s.sessions.Create(ctx, sess); err != nil {
		return nil, err
	}
	return &IssuedSession{Token: token, ExpiresAt: sess.ExpiresAt}, nil
}

// Logout deletes the session behind token, if any.
func (s *Auth) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	return s.sessions.DeleteByFingerprint(ctx, crypto.Fingerprint(token))
}

// Authenticate resolves a bearer token to a principal and touches the
// session's last-activity stamp in the background.
func (s *Auth) Authenticate(ctx context.Context, token string) (*model.Principal, error) {
	if token == "" {
		return nil, nil
	}

	ls, err := s.sessions.GetLiveByFingerprint(ctx, crypto.Fingerprint(token))
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			// Expired or unknown tokens mean "logged out", not failure.
			return nil, nil
		}
		return nil, err
	}

	// Best-effort telemetry; must not block or fail the request.
	go s.touch(context.WithoutCancel(ctx), ls.Session.ID)

	return &model.Principal{
		Token:     token,
		SessionID: ls.Session.ID,
		UserID:    ls.Session.UserID,
		Email:     ls.Email,
		ProfileID: ls.ProfileID,
		ExpiresAt: ls.Session.ExpiresAt,
	}, nil
}

func (s *Auth) touch(ctx context.Context, sessionID uuid.UUID) {
	ctx, cancel := context.WithTimeout(ctx, touchTimeout)
	defer cancel()
	if err := s.sessions.Touch(ctx, sessionID); err != nil {
		s.log.Debug("session touch failed", zap.Stringer("session", sessionID), zap.Error(err))
	}
}

// Self re-reads the principal's account, defending against the user having
// been deleted while the session row is still live.
func (s *Auth) Self(ctx context.Context, p *model.Principal) (model.Account, error) {
	if p == nil {
		return model.Account{}, errs.ErrUnauthorized
	}
	u, err := s.users.GetByID(ctx, p.UserID)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return model.Account{}, errs.ErrUnauthorized
		}
		return model.Account{}, err
	}
	return model.Account{UserID: u.ID, Email: u.Email, ProfileID: u.ProfileID}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
