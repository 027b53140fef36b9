package crypto

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"

	"github.com/gofrs/uuid/v5"
)

// tokenBytes is the entropy of a bearer token (256 bits).
const tokenBytes = 32

// NewToken returns a cryptographically random opaque bearer token,
// URL-safe base64 without padding. The raw token lives only in the client
// cookie; the server stores Fingerprint(token).
func NewToken() (string, error) {
	b, err := RandBytes(tokenBytes)
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// NewID returns a random UUID for new user/session rows.
func NewID() (uuid.UUID, error) {
	return uuid.NewV4()
}

// Fingerprint returns the hex SHA-256 digest of a bearer token. It is
// deterministic so sessions can be indexed by it, and one-way so a leaked
// database does not leak usable tokens.
func Fingerprint(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
