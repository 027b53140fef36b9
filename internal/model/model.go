// Package model defines domain entities used by services and repositories.
package model

import (
	"time"

	"github.com/gofrs/uuid/v5"
)

// User represents an account. The password is stored only as a salted
// one-way hash; email uniqueness is case-insensitive.
type User struct {
	ID           uuid.UUID // PK
	Email        string    // stored lowercased
	PasswordHash string    // PHC-encoded argon2id
	ProfileID    uuid.NullUUID
	CreatedAt    time.Time
}

// Session is one authenticated browser context. The bearer token itself is
// never persisted; only its fingerprint is.
type Session struct {
	ID         uuid.UUID // PK
	UserID     uuid.UUID // FK -> users.id
	TokenHash  string    // hex SHA-256 fingerprint of the bearer token
	ExpiresAt  time.Time // session is live while now() < ExpiresAt
	LastSeenAt time.Time // updated on every authenticated request
}

// Principal is the identity resolved for a single request. It is rebuilt
// from the session row on every request and never persisted.
type Principal struct {
	Token     string // raw bearer token from the cookie
	SessionID uuid.UUID
	UserID    uuid.UUID
	Email     string
	ProfileID uuid.NullUUID
	ExpiresAt time.Time
}

// Account is what register/login/self hand back to the transport layer.
type Account struct {
	UserID    uuid.UUID
	Email     string
	ProfileID uuid.NullUUID
}
