package objstore

import (
	"context"
	"strings"
	"testing"
)

func TestCoverKey(t *testing.T) {
	k1 := CoverKey("01ALBUM", "Front.JPG")
	k2 := CoverKey("01ALBUM", "Front.JPG")

	if !strings.HasPrefix(k1, "covers/01ALBUM/") {
		t.Fatalf("key = %q, want covers/01ALBUM/ prefix", k1)
	}
	if !strings.HasSuffix(k1, ".jpg") {
		t.Fatalf("key = %q, want lowercased .jpg extension", k1)
	}
	if k1 == k2 {
		t.Fatalf("repeated uploads must produce distinct keys")
	}

	if k := CoverKey("01ALBUM", "noext"); strings.Contains(k[len("covers/01ALBUM/"):], ".") {
		t.Fatalf("extension-less filename must yield extension-less key, got %q", k)
	}
}

func TestNew_RequiresBucket(t *testing.T) {
	if _, err := New(context.Background(), Config{Region: "us-east-1"}); err == nil {
		t.Fatalf("expected error for missing bucket")
	}
}
