// Package session implements login, refresh-token rotation, and logout on top
// of the JWT codec and a persistent refresh-token allowlist.
//
// Rotation invariant: each rotation chain has at most one active record at any
// time. The predecessor is revoked with a conditional write before the
// successor becomes observable, so a replayed refresh token always loses.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"

	"muse/cmd/internal/auth/token"
	sectoken "muse/cmd/security/token"
)

// CredentialVerifier confirms a username/password pair. Implementations
// return ErrAuthentication (possibly wrapped) for bad credentials; any other
// error is treated as an infrastructure failure and surfaced as such.
type CredentialVerifier interface {
	VerifyCredentials(ctx context.Context, username, password string) error
}

// SubjectResolver reports whether a subject still exists. Implementations
// return ErrAuthentication (possibly wrapped) for unknown subjects.
type SubjectResolver interface {
	ResolveSubject(ctx context.Context, username string) error
}

// TokenPair is the result of Login and Refresh.
// ExpiresIn reports the access-token TTL in milliseconds.
type TokenPair struct {
	TokenType    string
	AccessToken  string
	RefreshToken string
	ExpiresIn    int64
}

// Service orchestrates the auth operations. It is safe for concurrent use;
// rotation safety against concurrent replays is delegated to
// Store.RevokeIfActive.
type Service struct {
	cfg      Config
	codec    *token.Codec
	store    Store
	creds    CredentialVerifier
	subjects SubjectResolver
	log      *slog.Logger
}

// NewService constructs a Service from its collaborators.
func NewService(cfg Config, codec *token.Codec, store Store, creds CredentialVerifier, subjects SubjectResolver, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{cfg: cfg, codec: codec, store: store, creds: creds, subjects: subjects, log: log}
}

// Login verifies credentials and issues a fresh token pair. Credential
// failures return ErrAuthentication without touching the store.
func (s *Service) Login(ctx context.Context, username, password string) (TokenPair, error) {
	if err := s.creds.VerifyCredentials(ctx, username, password); err != nil {
		if errors.Is(err, ErrAuthentication) {
			s.log.Info("auth.login.denied", "username", username)
			return TokenPair{}, err
		}
		return TokenPair{}, fmt.Errorf("session: verify credentials: %w", err)
	}

	pair, err := s.issuePair(ctx, username, time.Now())
	if err != nil {
		return TokenPair{}, err
	}

	s.log.Info("auth.login.ok", "username", username)
	return pair, nil
}

// Refresh performs the rotation protocol: validate the presented refresh
// token, check it against the allowlist, atomically revoke it, and mint a
// successor pair for the same subject. The old token is single-use: a
// concurrent or later replay fails with ErrUnauthorized.
func (s *Service) Refresh(ctx context.Context, oldRefreshToken string) (TokenPair, error) {
	now := time.Now()

	// 1. Extract the claimed subject; the token is not trusted yet.
	subject, err := s.codec.Subject(oldRefreshToken)
	if err != nil {
		s.log.Info("auth.refresh.malformed", "token_id", sectoken.LogID(oldRefreshToken))
		return TokenPair{}, fmt.Errorf("%w: invalid or expired refresh token", ErrUnauthorized)
	}

	// 2. The subject must still exist.
	if err := s.subjects.ResolveSubject(ctx, subject); err != nil {
		if errors.Is(err, ErrAuthentication) {
			s.log.Info("auth.refresh.unknown_subject", "token_id", sectoken.LogID(oldRefreshToken))
			return TokenPair{}, err
		}
		return TokenPair{}, fmt.Errorf("session: resolve subject: %w", err)
	}

	// 3. Signature, subject, and expiry of the JWT itself.
	ok, err := s.codec.Validate(oldRefreshToken, subject)
	if err != nil || !ok {
		s.log.Info("auth.refresh.invalid_token", "token_id", sectoken.LogID(oldRefreshToken))
		return TokenPair{}, fmt.Errorf("%w: invalid or expired refresh token", ErrUnauthorized)
	}

	// 4-5. Allowlist check: the hash must be present, unrevoked, unexpired.
	// Absence makes rotated-away tokens unusable even while their signature
	// is still valid.
	hash := sectoken.HashSHA256Hex(oldRefreshToken)

	rec, err := s.store.GetByTokenHash(ctx, hash)
	if err != nil {
		if errors.Is(err, ErrRecordNotFound) {
			s.log.Info("auth.refresh.unknown_record", "token_id", sectoken.LogID(oldRefreshToken))
			return TokenPair{}, fmt.Errorf("%w: unknown or revoked refresh token", ErrUnauthorized)
		}
		return TokenPair{}, fmt.Errorf("session: load record: %w", err)
	}
	if rec.RevokedAt != nil {
		s.log.Info("auth.refresh.revoked", "token_id", sectoken.LogID(oldRefreshToken))
		return TokenPair{}, fmt.Errorf("%w: unknown or revoked refresh token", ErrUnauthorized)
	}
	if !rec.ExpiresAt.After(now) {
		s.log.Info("auth.refresh.expired_record", "token_id", sectoken.LogID(oldRefreshToken))
		return TokenPair{}, fmt.Errorf("%w: refresh token expired", ErrUnauthorized)
	}

	// 6. Revoke the predecessor. The conditional write is the whole race:
	// of N concurrent rotations of the same token, exactly one observes the
	// nil-to-set transition.
	won, err := s.store.RevokeIfActive(ctx, hash, now)
	if err != nil {
		return TokenPair{}, fmt.Errorf("session: revoke predecessor: %w", err)
	}
	if !won {
		s.log.Info("auth.refresh.lost_race", "token_id", sectoken.LogID(oldRefreshToken))
		return TokenPair{}, fmt.Errorf("%w: unknown or revoked refresh token", ErrUnauthorized)
	}

	// 7-8. Mint and persist the successor.
	pair, err := s.issuePair(ctx, rec.Subject, now)
	if err != nil {
		return TokenPair{}, err
	}

	s.log.Info("auth.refresh.ok", "username", rec.Subject)
	return pair, nil
}

// Logout revokes the record for the presented refresh token. Unknown or
// already-revoked tokens are a silent no-op: logout is idempotent and never
// reveals whether a token existed.
func (s *Service) Logout(ctx context.Context, refreshToken string) error {
	hash := sectoken.HashSHA256Hex(refreshToken)

	if _, err := s.store.RevokeIfActive(ctx, hash, time.Now()); err != nil {
		return fmt.Errorf("session: revoke: %w", err)
	}

	s.log.Info("auth.logout", "token_id", sectoken.LogID(refreshToken))
	return nil
}

// issuePair mints an access/refresh pair for subject and persists the refresh
// record. The refresh token carries a jti so that back-to-back rotations in
// the same second still produce distinct tokens (and distinct hashes).
func (s *Service) issuePair(ctx context.Context, subject string, now time.Time) (TokenPair, error) {
	access, err := s.codec.Issue(subject, s.cfg.AccessTTL, nil)
	if err != nil {
		return TokenPair{}, fmt.Errorf("session: issue access token: %w", err)
	}

	id := ulid.Make().String()
	refresh, err := s.codec.Issue(subject, s.cfg.RefreshTTL, map[string]any{"jti": id})
	if err != nil {
		return TokenPair{}, fmt.Errorf("session: issue refresh token: %w", err)
	}

	rec := Record{
		ID:        id,
		Subject:   subject,
		TokenHash: sectoken.HashSHA256Hex(refresh),
		IssuedAt:  now,
		ExpiresAt: now.Add(s.cfg.RefreshTTL),
	}
	if err := s.store.Create(ctx, rec); err != nil {
		return TokenPair{}, fmt.Errorf("session: persist refresh record: %w", err)
	}

	return TokenPair{
		TokenType:    "Bearer",
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    s.cfg.AccessTTL.Milliseconds(),
	}, nil
}
