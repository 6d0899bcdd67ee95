package crypto

import (
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestHashAndVerify(t *testing.T) {
	h := NewHasher(bcrypt.MinCost)
	digest, err := h.Hash("Abcd1234!")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if digest == "Abcd1234!" || !strings.HasPrefix(digest, "$2a$") {
		t.Fatalf("unexpected digest %q", digest)
	}
	if !h.Verify("Abcd1234!", digest) {
		t.Fatalf("expected password to verify")
	}
	if h.Verify("abcd1234!", digest) {
		t.Fatalf("expected mismatched password to fail")
	}
}

func TestHashUsesFreshSalt(t *testing.T) {
	h := NewHasher(bcrypt.MinCost)
	first, err := h.Hash("same-password")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	second, err := h.Hash("same-password")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if first == second {
		t.Fatalf("expected distinct digests for repeated hashing")
	}
}

func TestVerifyMalformedDigest(t *testing.T) {
	h := NewHasher(bcrypt.MinCost)
	for _, digest := range []string{"", "not-a-hash", "$2a$10$short"} {
		if h.Verify("Abcd1234!", digest) {
			t.Fatalf("expected malformed digest %q to fail", digest)
		}
	}
}

func TestNewHasherClampsCost(t *testing.T) {
	if got := NewHasher(99).Cost(); got != DefaultCost {
		t.Fatalf("expected default cost, got %d", got)
	}
	if got := NewHasher(bcrypt.MinCost).Cost(); got != bcrypt.MinCost {
		t.Fatalf("expected min cost, got %d", got)
	}
}

func TestVerifyDummyNeverMatches(t *testing.T) {
	h := NewHasher(bcrypt.MinCost)
	if h.VerifyDummy("moviegate-dummy-password") {
		t.Fatalf("dummy verification must report false")
	}
}
