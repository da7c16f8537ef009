package authgate

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// PasswordHasher derives and verifies salted bcrypt digests for the
// credentials provider. Each digest embeds its own salt and cost, so
// verification is self-contained.
type PasswordHasher struct {
	Cost int
}

// dummyDigest is a bcrypt digest of a throwaway value. The credential
// authenticator compares against it when the user or account is missing so
// the failure path costs the same as a real verification.
const dummyDigest = "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"

// NewPasswordHasher returns a hasher with the given bcrypt cost.
// A cost <= 0 falls back to bcrypt.DefaultCost.
func NewPasswordHasher(cost int) *PasswordHasher {
	if cost <= 0 {
		cost = bcrypt.DefaultCost
	}
	return &PasswordHasher{Cost: cost}
}

// Hash derives a salted one-way digest of password suitable for storage.
func (h *PasswordHasher) Hash(password string) (string, error) {
	digest, err := bcrypt.GenerateFromPassword([]byte(password), h.Cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(digest), nil
}

// Verify reports whether candidate matches the stored digest. The comparison
// is constant-time. Malformed digests are not an error; they verify as false.
func (h *PasswordHasher) Verify(storedDigest, candidate string) bool {
	return bcrypt.CompareHashAndPassword([]byte(storedDigest), []byte(candidate)) == nil
}

// VerifyDummy burns one bcrypt comparison against a fixed digest. Callers use
// it to equalize the latency of "no such user" and "wrong password" failures.
func (h *PasswordHasher) VerifyDummy(candidate string) {
	_ = bcrypt.CompareHashAndPassword([]byte(dummyDigest), []byte(candidate))
}
