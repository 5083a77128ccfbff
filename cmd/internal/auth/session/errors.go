package session

import "errors"

var (
	// ErrAuthentication covers bad credentials and unknown subjects.
	// Maps to 401 at the boundary with a generic message.
	ErrAuthentication = errors.New("session: authentication failed")

	// ErrUnauthorized covers structurally valid refresh tokens that are
	// revoked, unknown to the store, or expired in the store. Also 401, also
	// generic: the boundary never reveals which check failed.
	ErrUnauthorized = errors.New("session: unauthorized")

	// ErrRecordNotFound is returned by stores when no record matches a hash.
	ErrRecordNotFound = errors.New("session: refresh token record not found")

	// ErrConfig reports invalid session configuration.
	ErrConfig = errors.New("session: invalid config")
)
