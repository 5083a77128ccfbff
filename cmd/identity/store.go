package identity

import "context"

// Store abstracts user persistence.
type Store interface {
	// CreateUser inserts a new user. A taken username yields ErrConflict.
	CreateUser(ctx context.Context, u User) error

	// GetByUsername loads a user by normalized username.
	// Returns ErrNotFound when no user matches.
	GetByUsername(ctx context.Context, username string) (User, error)
}
