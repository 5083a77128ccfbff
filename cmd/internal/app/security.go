package app

import (
	"encoding/base64"
	"errors"
	"os"
	"strings"
)

const minSigningKeyBytes = 32

// ValidateSecurityConfig enforces the signing-key policy at startup.
// HMAC-SHA256 wants at least 32 key bytes; starting up with less would
// silently weaken every token the server ever mints.
func ValidateSecurityConfig() error {
	secret := strings.TrimSpace(os.Getenv("MUSE_JWT_SECRET"))
	if secret == "" {
		return errors.New("security policy: MUSE_JWT_SECRET is required")
	}

	// Mirror the codec's key handling: base64 when it decodes, raw otherwise.
	key := []byte(secret)
	if decoded, err := base64.StdEncoding.DecodeString(secret); err == nil {
		key = decoded
	}
	if len(key) < minSigningKeyBytes {
		return errors.New("security policy: MUSE_JWT_SECRET is too short (min 32 key bytes)")
	}
	return nil
}
