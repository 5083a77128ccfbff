// Package identity manages user accounts: registration, credential
// verification, and subject lookups for the session layer.
//
// Passwords are stored as argon2id hashes; the plain password never leaves
// the verification path.
package identity

import (
	"errors"
	"strings"
	"time"
)

var (
	// ErrInvalidCredentials covers a wrong password or an unknown username.
	// Callers must not be able to tell the two apart.
	ErrInvalidCredentials = errors.New("identity: invalid credentials")

	// ErrNotFound reports a missing user.
	ErrNotFound = errors.New("identity: user not found")

	// ErrConflict reports a username already taken.
	ErrConflict = errors.New("identity: username already taken")

	// ErrInvalidInput reports a malformed username or password.
	ErrInvalidInput = errors.New("identity: invalid input")
)

// User is the canonical account record.
type User struct {
	ID           string // ULID
	Username     string // normalized, unique
	PasswordHash string // argon2id encoded hash
	CreatedAt    time.Time
}

// NormalizeUsername performs case-insensitive canonicalization.
func NormalizeUsername(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// validUsername enforces the account-name policy: 3-64 chars from a
// conservative alphabet.
func validUsername(s string) bool {
	if len(s) < 3 || len(s) > 64 {
		return false
	}
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= '0' && r <= '9':
		case r == '.' || r == '-' || r == '_':
		default:
			return false
		}
	}
	return true
}
