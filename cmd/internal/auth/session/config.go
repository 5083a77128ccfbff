package session

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// Config defines the runtime configuration for token issuance.
//
// TTLs are applied at issuance and never mutated afterwards. The secret feeds
// the HMAC signing key; it has no default on purpose.
type Config struct {
	// Secret is the HMAC signing secret (base64 or raw bytes, see token.New).
	Secret string

	// AccessTTL is the lifetime of access tokens.
	AccessTTL time.Duration

	// RefreshTTL is the lifetime of refresh tokens and of their store records.
	RefreshTTL time.Duration
}

// DefaultConfig returns the development defaults (secret must still be set).
func DefaultConfig() Config {
	return Config{
		AccessTTL:  5 * time.Minute,
		RefreshTTL: 24 * time.Hour,
	}
}

// LoadConfigFromEnv loads session configuration from environment variables.
//
// Required:
//   - MUSE_JWT_SECRET
//
// Optional (Go duration strings):
//   - MUSE_ACCESS_TTL
//   - MUSE_REFRESH_TTL
func LoadConfigFromEnv() (Config, error) {
	cfg := DefaultConfig()

	cfg.Secret = strings.TrimSpace(os.Getenv("MUSE_JWT_SECRET"))
	if cfg.Secret == "" {
		return Config{}, fmt.Errorf("%w: MUSE_JWT_SECRET is required", ErrConfig)
	}

	if v := os.Getenv("MUSE_ACCESS_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return Config{}, fmt.Errorf("%w: MUSE_ACCESS_TTL", ErrConfig)
		}
		cfg.AccessTTL = d
	}

	if v := os.Getenv("MUSE_REFRESH_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return Config{}, fmt.Errorf("%w: MUSE_REFRESH_TTL", ErrConfig)
		}
		cfg.RefreshTTL = d
	}

	if cfg.RefreshTTL <= cfg.AccessTTL {
		return Config{}, fmt.Errorf("%w: refresh TTL must exceed access TTL", ErrConfig)
	}

	return cfg, nil
}
