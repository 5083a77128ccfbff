// Package token implements the stateless JWT codec used for both access and
// refresh tokens: HMAC-SHA256 signed, carrying subject, issued-at, and expiry.
//
// Expiry is treated as a claim, not a parse failure: Subject and Expiry verify
// the signature only, so callers can inspect expired-but-authentic tokens.
package token

import (
	"encoding/base64"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Codec signs and verifies compact tokens with a single HMAC-SHA256 key.
// All methods are safe for unbounded concurrent use.
type Codec struct {
	key []byte
}

// New derives the signing key from secret: base64 (std) decoding is attempted
// first, falling back to the raw UTF-8 bytes when the secret is not valid
// base64. A blank secret fails with ErrNoSigningSecret.
func New(secret string) (*Codec, error) {
	s := strings.TrimSpace(secret)
	if s == "" {
		return nil, ErrNoSigningSecret
	}

	key, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		key = []byte(s)
	}
	return &Codec{key: key}, nil
}

// Issue builds and signs a token for subject with the given ttl.
// extra claims, if any, are merged in; sub/iat/exp always win.
func (c *Codec) Issue(subject string, ttl time.Duration, extra map[string]any) (string, error) {
	now := time.Now()

	claims := jwt.MapClaims{}
	for k, v := range extra {
		claims[k] = v
	}
	claims["sub"] = subject
	claims["iat"] = jwt.NewNumericDate(now)
	claims["exp"] = jwt.NewNumericDate(now.Add(ttl))

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.key)
}

// parse verifies the signature and returns the claims. Expiry is NOT enforced
// here; a bad signature or malformed structure yields ErrTokenInvalid.
func (c *Codec) parse(raw string) (jwt.MapClaims, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithoutClaimsValidation(),
	)

	claims := jwt.MapClaims{}
	parsed, err := parser.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return c.key, nil
	})
	if err != nil || !parsed.Valid {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}

// Subject returns the sub claim, verifying the signature as a side effect.
func (c *Codec) Subject(raw string) (string, error) {
	claims, err := c.parse(raw)
	if err != nil {
		return "", err
	}
	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return "", ErrTokenInvalid
	}
	return sub, nil
}

// Expiry returns the exp claim, verifying the signature as a side effect.
func (c *Codec) Expiry(raw string) (time.Time, error) {
	claims, err := c.parse(raw)
	if err != nil {
		return time.Time{}, err
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, ErrTokenInvalid
	}
	return exp.Time, nil
}

// IsExpired reports whether the token's expiry has passed.
// The error is non-nil only for structurally invalid input.
func (c *Codec) IsExpired(raw string) (bool, error) {
	exp, err := c.Expiry(raw)
	if err != nil {
		return false, err
	}
	return exp.Before(time.Now()), nil
}

// Validate is the single authorization predicate: true iff the signature
// verifies, the subject matches, and the token is not expired. Ordinary auth
// failures (wrong subject, expired) are reported through the boolean; the
// error is reserved for malformed input.
func (c *Codec) Validate(raw, expectedSubject string) (bool, error) {
	claims, err := c.parse(raw)
	if err != nil {
		return false, err
	}

	sub, err := claims.GetSubject()
	if err != nil || sub != expectedSubject {
		return false, nil
	}

	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false, nil
	}
	return exp.Time.After(time.Now()), nil
}

// Verify checks signature and expiry and returns the subject. It distinguishes
// ErrTokenExpired from ErrTokenInvalid for callers that want clients to
// re-authenticate rather than treat the token as garbage.
func (c *Codec) Verify(raw string) (string, error) {
	claims, err := c.parse(raw)
	if err != nil {
		return "", err
	}

	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return "", ErrTokenInvalid
	}

	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return "", ErrTokenInvalid
	}
	if exp.Time.Before(time.Now()) {
		return "", ErrTokenExpired
	}
	return sub, nil
}
