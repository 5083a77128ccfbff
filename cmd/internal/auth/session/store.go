package session

import (
	"context"
	"time"
)

// Record is a persisted refresh-token row. Only the SHA-256 hash of the raw
// token is stored. RevokedAt transitions from nil to a timestamp exactly once
// (rotation or logout) and is never cleared.
type Record struct {
	ID        string // ULID
	Subject   string
	TokenHash string // sha256 hex, unique
	IssuedAt  time.Time
	ExpiresAt time.Time
	RevokedAt *time.Time
}

// Active reports whether the record is usable at time now:
// not revoked and not past its expiry.
func (r Record) Active(now time.Time) bool {
	return r.RevokedAt == nil && r.ExpiresAt.After(now)
}

// Store abstracts persistence for refresh-token records.
//
// RevokeIfActive is the rotation-safety primitive: implementations must make
// the revoked-at transition conditional on the record still being unrevoked,
// so two concurrent rotations of the same token cannot both win.
type Store interface {
	// Create inserts a new record. TokenHash collisions are a store error.
	Create(ctx context.Context, rec Record) error

	// GetByTokenHash loads a record by token hash.
	// Returns ErrRecordNotFound when no record matches.
	GetByTokenHash(ctx context.Context, tokenHash string) (Record, error)

	// RevokeIfActive sets revoked_at = now on the record with the given hash,
	// but only if revoked_at is still unset. Returns true iff this call
	// performed the transition. A missing record returns (false, nil).
	RevokeIfActive(ctx context.Context, tokenHash string, now time.Time) (bool, error)
}
