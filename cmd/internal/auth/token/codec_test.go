package token

import (
	"errors"
	"strings"
	"testing"
	"time"
)

const testSecret = "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRST" // 56 ASCII chars

func newTestCodec(t *testing.T) *Codec {
	t.Helper()
	c, err := New(testSecret)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func TestNew_BlankSecret(t *testing.T) {
	for _, secret := range []string{"", "   ", "\t\n"} {
		if _, err := New(secret); !errors.Is(err, ErrNoSigningSecret) {
			t.Fatalf("New(%q): expected ErrNoSigningSecret, got %v", secret, err)
		}
	}
}

func TestIssue_SubjectAndExpiryRoundTrip(t *testing.T) {
	c := newTestCodec(t)

	before := time.Now()
	tok, err := c.Issue("testuser", 5*time.Minute, nil)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	after := time.Now()

	if parts := strings.Split(tok, "."); len(parts) != 3 {
		t.Fatalf("expected 3 dot-delimited segments, got %d", len(parts))
	}

	sub, err := c.Subject(tok)
	if err != nil {
		t.Fatalf("Subject: %v", err)
	}
	if sub != "testuser" {
		t.Fatalf("Subject = %q, want testuser", sub)
	}

	exp, err := c.Expiry(tok)
	if err != nil {
		t.Fatalf("Expiry: %v", err)
	}
	// exp must land within [before+ttl, after+ttl], allowing for the
	// second-granularity of the exp claim.
	lo := before.Add(5 * time.Minute).Add(-time.Second)
	hi := after.Add(5 * time.Minute).Add(time.Second)
	if exp.Before(lo) || exp.After(hi) {
		t.Fatalf("Expiry = %v, want within [%v, %v]", exp, lo, hi)
	}
}

func TestIssue_ExtraClaimsDoNotOverrideRegistered(t *testing.T) {
	c := newTestCodec(t)

	tok, err := c.Issue("alice", time.Minute, map[string]any{"sub": "mallory", "kind": "refresh"})
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	sub, err := c.Subject(tok)
	if err != nil {
		t.Fatalf("Subject: %v", err)
	}
	if sub != "alice" {
		t.Fatalf("extra sub claim must not override: got %q", sub)
	}
}

func TestIsExpired(t *testing.T) {
	c := newTestCodec(t)

	tok, err := c.Issue("alice", time.Millisecond, nil)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	// exp has second granularity; wait past the full second boundary.
	time.Sleep(1100 * time.Millisecond)

	expired, err := c.IsExpired(tok)
	if err != nil {
		t.Fatalf("IsExpired: %v", err)
	}
	if !expired {
		t.Fatalf("expected token to be expired")
	}

	ok, err := c.Validate(tok, "alice")
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if ok {
		t.Fatalf("Validate must be false for an expired token")
	}

	if _, err := c.Verify(tok); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("Verify: expected ErrTokenExpired, got %v", err)
	}
}

func TestValidate(t *testing.T) {
	c := newTestCodec(t)

	tok, err := c.Issue("alice", time.Minute, nil)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	ok, err := c.Validate(tok, "alice")
	if err != nil || !ok {
		t.Fatalf("Validate(alice) = (%v, %v), want (true, nil)", ok, err)
	}

	// Subject mismatch is an ordinary auth failure, not an error.
	ok, err = c.Validate(tok, "bob")
	if err != nil {
		t.Fatalf("Validate(bob): unexpected error %v", err)
	}
	if ok {
		t.Fatalf("Validate must be false for a subject mismatch")
	}
}

func TestMalformedAndTamperedTokens(t *testing.T) {
	c := newTestCodec(t)

	for _, raw := range []string{"", "garbage", "a.b", "a.b.c.d"} {
		if _, err := c.Subject(raw); !errors.Is(err, ErrTokenInvalid) {
			t.Fatalf("Subject(%q): expected ErrTokenInvalid, got %v", raw, err)
		}
		if _, err := c.Validate(raw, "alice"); !errors.Is(err, ErrTokenInvalid) {
			t.Fatalf("Validate(%q): expected ErrTokenInvalid, got %v", raw, err)
		}
	}

	tok, err := c.Issue("alice", time.Minute, nil)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	tampered := tok[:len(tok)-2] + "xx"
	if _, err := c.Subject(tampered); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("tampered token: expected ErrTokenInvalid, got %v", err)
	}

	other, err := New("a-completely-different-signing-secret")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := other.Subject(tok); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("foreign key: expected ErrTokenInvalid, got %v", err)
	}
}

func TestNew_Base64Fallback(t *testing.T) {
	// Not valid base64 (odd length, '!' outside the alphabet): the raw bytes
	// must be used and tokens must still round-trip.
	c, err := New("not-base64!")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	tok, err := c.Issue("alice", time.Minute, nil)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if sub, err := c.Subject(tok); err != nil || sub != "alice" {
		t.Fatalf("Subject = (%q, %v), want (alice, nil)", sub, err)
	}
}
