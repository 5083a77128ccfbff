package token

import "errors"

var (
	// ErrNoSigningSecret means the signing secret is empty or blank.
	// This is a configuration error and is fatal at startup; a missing key
	// must never silently produce an insecure default.
	ErrNoSigningSecret = errors.New("token: signing secret is empty")

	// ErrTokenInvalid is returned for malformed, unsigned, or tampered tokens.
	ErrTokenInvalid = errors.New("token: invalid token")

	// ErrTokenExpired is returned by Verify for a structurally valid token
	// whose expiry has passed. It is distinguishable from ErrTokenInvalid so
	// clients know to re-authenticate rather than retry.
	ErrTokenExpired = errors.New("token: token expired")
)
