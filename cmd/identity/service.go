package identity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"

	"muse/cmd/security/password"
)

// Directory is the account service. It is safe for concurrent use.
type Directory struct {
	store  Store
	params password.Params
	log    *slog.Logger

	// dummyHash is verified against when the username is unknown, so the
	// unknown-user and wrong-password paths cost the same.
	dummyHash string
}

// NewDirectory builds a Directory over store with the given hashing cost.
func NewDirectory(store Store, params password.Params, log *slog.Logger) (*Directory, error) {
	if log == nil {
		log = slog.Default()
	}
	dummy, err := password.Hash("timing-guard-placeholder", params)
	if err != nil {
		return nil, fmt.Errorf("identity: prepare timing guard: %w", err)
	}
	return &Directory{store: store, params: params, log: log, dummyHash: dummy}, nil
}

// Register creates a new account and returns it.
func (d *Directory) Register(ctx context.Context, username, plainPassword string) (User, error) {
	username = NormalizeUsername(username)
	if !validUsername(username) {
		return User{}, fmt.Errorf("%w: username must be 3-64 chars of [a-z0-9._-]", ErrInvalidInput)
	}

	hash, err := password.Hash(plainPassword, d.params)
	if err != nil {
		if errors.Is(err, password.ErrPasswordTooShort) || errors.Is(err, password.ErrPasswordTooLong) {
			return User{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		return User{}, fmt.Errorf("identity: hash password: %w", err)
	}

	u := User{
		ID:           ulid.Make().String(),
		Username:     username,
		PasswordHash: hash,
		CreatedAt:    time.Now(),
	}
	if err := d.store.CreateUser(ctx, u); err != nil {
		return User{}, err
	}

	d.log.Info("identity.register", "username", username)
	return u, nil
}

// VerifyCredentials checks a username/password pair, returning
// ErrInvalidCredentials on any mismatch. The unknown-username path still runs
// a full hash verification so response timing does not leak which accounts
// exist.
func (d *Directory) VerifyCredentials(ctx context.Context, username, plainPassword string) error {
	username = NormalizeUsername(username)

	u, err := d.store.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			_, _ = password.Verify(plainPassword, d.dummyHash)
			return ErrInvalidCredentials
		}
		return fmt.Errorf("identity: load user: %w", err)
	}

	ok, err := password.Verify(plainPassword, u.PasswordHash)
	if err != nil {
		return fmt.Errorf("identity: verify password: %w", err)
	}
	if !ok {
		return ErrInvalidCredentials
	}
	return nil
}

// ResolveSubject reports whether username names an existing account.
func (d *Directory) ResolveSubject(ctx context.Context, username string) error {
	_, err := d.store.GetByUsername(ctx, NormalizeUsername(username))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrInvalidCredentials
		}
		return fmt.Errorf("identity: load user: %w", err)
	}
	return nil
}
