package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore persists refresh-token records in muse.refresh_tokens.
type PostgresStore struct {
	pool *pgxpool.Pool
}

var _ Store = (*PostgresStore)(nil)

// NewPostgresStore wraps a pgx pool.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) Create(ctx context.Context, rec Record) error {
	const q = `
		INSERT INTO muse.refresh_tokens (id, subject, token_hash, issued_at, expires_at, revoked_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := s.pool.Exec(ctx, q, rec.ID, rec.Subject, rec.TokenHash, rec.IssuedAt, rec.ExpiresAt, rec.RevokedAt)
	if err != nil {
		return fmt.Errorf("insert refresh token: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetByTokenHash(ctx context.Context, tokenHash string) (Record, error) {
	const q = `
		SELECT id, subject, token_hash, issued_at, expires_at, revoked_at
		FROM muse.refresh_tokens
		WHERE token_hash = $1
	`
	var rec Record
	err := s.pool.QueryRow(ctx, q, tokenHash).Scan(
		&rec.ID, &rec.Subject, &rec.TokenHash, &rec.IssuedAt, &rec.ExpiresAt, &rec.RevokedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Record{}, ErrRecordNotFound
	}
	if err != nil {
		return Record{}, fmt.Errorf("select refresh token: %w", err)
	}
	return rec, nil
}

// RevokeIfActive relies on the conditional UPDATE for atomicity: under
// concurrent rotations of the same token, Postgres serializes the row write
// and only one statement reports an affected row.
func (s *PostgresStore) RevokeIfActive(ctx context.Context, tokenHash string, now time.Time) (bool, error) {
	const q = `
		UPDATE muse.refresh_tokens
		SET revoked_at = $2
		WHERE token_hash = $1 AND revoked_at IS NULL
	`
	tag, err := s.pool.Exec(ctx, q, tokenHash, now)
	if err != nil {
		return false, fmt.Errorf("revoke refresh token: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// DeleteExpired removes records whose expiry passed before the cutoff.
// Intended for a periodic maintenance sweep; rotation correctness does not
// depend on it.
func (s *PostgresStore) DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	const q = `DELETE FROM muse.refresh_tokens WHERE expires_at < $1`
	tag, err := s.pool.Exec(ctx, q, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete expired refresh tokens: %w", err)
	}
	return tag.RowsAffected(), nil
}
