// Package token holds the hashing helpers shared by the refresh-token
// allowlist: tokens are persisted as SHA-256 hex digests, never raw.
package token

import (
	"crypto/sha256"
	"encoding/hex"
)

// HashSHA256Hex returns the SHA-256 hex digest of s (64 hex chars).
//
// Refresh tokens are stored only in this form; the raw token is shown to the
// client exactly once and must never reach the store or the logs.
func HashSHA256Hex(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

// LogID returns a short, non-reversible identifier for a token, safe to log.
func LogID(s string) string {
	if s == "" {
		return ""
	}
	return HashSHA256Hex(s)[:12]
}
