package crypto

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// DefaultCost is the bcrypt work factor used when none is configured.
const DefaultCost = 10

// Hasher hashes and verifies passwords with bcrypt.
type Hasher struct {
	cost  int
	dummy []byte
}

// NewHasher returns a Hasher using cost, clamped into the range bcrypt accepts.
func NewHasher(cost int) *Hasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultCost
	}
	// A fixed digest lets callers spend a full comparison on unknown accounts.
	dummy, err := bcrypt.GenerateFromPassword([]byte("moviegate-dummy-password"), cost)
	if err != nil {
		panic(fmt.Sprintf("crypto: dummy hash: %v", err))
	}
	return &Hasher{cost: cost, dummy: dummy}
}

// Cost reports the configured work factor.
func (h *Hasher) Cost() int {
	return h.cost
}

// Hash returns a salted bcrypt digest of plain. Every call uses a fresh salt.
func (h *Hasher) Hash(plain string) (string, error) {
	digest, err := bcrypt.GenerateFromPassword([]byte(plain), h.cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(digest), nil
}

// Verify reports whether plain matches digest. A malformed digest never matches.
func (h *Hasher) Verify(plain, digest string) bool {
	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(plain)) == nil
}

// VerifyDummy performs a comparison against a throwaway digest and always
// reports false.
func (h *Hasher) VerifyDummy(plain string) bool {
	_ = bcrypt.CompareHashAndPassword(h.dummy, []byte(plain))
	return false
}
