// Package errs contains sentinel errors used across layers for stable error mapping.
package errs

import "errors"

// Common sentinels across repo/service layers.
var (
	// ErrNotFound indicates the requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates a unique constraint violation (e.g., email taken).
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidCredentials indicates a failed login. Callers must not be able
	// to tell an unknown email from a wrong password.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrUnauthorized indicates a missing, expired, or otherwise invalid session.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrUnavailable indicates a transient storage/network fault; callers answer
	// with a generic "temporarily unavailable" rather than the cause.
	ErrUnavailable = errors.New("service unavailable")

	// ErrProbeTimeout indicates the database liveness probe lost the race
	// against its deadline.
	ErrProbeTimeout = errors.New("db probe timeout")
)
