package password

import (
	"strings"
	"testing"
)

func TestHashAndVerify(t *testing.T) {
	p := DefaultParams()
	// Keep the test fast; correctness does not depend on cost.
	p.MemoryKiB = 8 * 1024
	p.Iterations = 1

	enc, err := Hash("password123", p)
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if !strings.HasPrefix(enc, "$argon2id$v=19$") {
		t.Fatalf("unexpected hash prefix: %s", enc)
	}

	ok, err := Verify("password123", enc)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if !ok {
		t.Fatalf("expected match")
	}

	ok, err = Verify("wrong-password", enc)
	if err != nil {
		t.Fatalf("Verify mismatch: %v", err)
	}
	if ok {
		t.Fatalf("expected mismatch")
	}
}

func TestHashPolicy(t *testing.T) {
	p := DefaultParams()
	if _, err := Hash("short", p); err != ErrPasswordTooShort {
		t.Fatalf("expected ErrPasswordTooShort, got %v", err)
	}
	if _, err := Hash(strings.Repeat("x", 300), p); err != ErrPasswordTooLong {
		t.Fatalf("expected ErrPasswordTooLong, got %v", err)
	}
}

func TestVerifyRejectsMalformedHashes(t *testing.T) {
	cases := []string{
		"",
		"not-a-hash",
		"$argon2i$v=19$m=65536,t=3,p=2$c2FsdHNhbHQ$aGFzaGhhc2hoYXNoaGFzaA",
		"$argon2id$v=18$m=65536,t=3,p=2$c2FsdHNhbHQ$aGFzaGhhc2hoYXNoaGFzaA",
		"$argon2id$v=19$m=65536,t=3,p=2$!!!$aGFzaGhhc2hoYXNoaGFzaA",
	}
	for _, c := range cases {
		if _, err := Verify("whatever", c); err != ErrInvalidHash {
			t.Fatalf("hash %q: expected ErrInvalidHash, got %v", c, err)
		}
	}
}

func TestVerifyRejectsPathologicalCost(t *testing.T) {
	// m exceeds the verification bound.
	enc := "$argon2id$v=19$m=2097152,t=3,p=2$c2FsdHNhbHRzYWx0c2FsdA$aGFzaGhhc2hoYXNoaGFzaA"
	if _, err := Verify("whatever", enc); err != ErrInvalidHash {
		t.Fatalf("expected ErrInvalidHash for oversized cost, got %v", err)
	}
}
