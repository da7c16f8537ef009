package authgate

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base32"
	"encoding/hex"
	"fmt"
	"strings"
)

// sessionTokenBytes is the entropy of a session token. 20 bytes (160 bits)
// makes collisions negligible, so tokens are treated as unique by
// construction and never checked for uniqueness on issue.
const sessionTokenBytes = 20

var tokenEncoding = base32.StdEncoding.WithPadding(base32.NoPadding)

// NewSessionToken generates a cryptographically secure session token,
// encoded as lowercase unpadded base32 so it is safe in cookies and URLs.
// The raw token is the client-held secret and must never be persisted.
func NewSessionToken() (string, error) {
	b := make([]byte, sessionTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return strings.ToLower(tokenEncoding.EncodeToString(b)), nil
}

// HashToken computes the storage key for a session token: sha256 over the
// token's UTF-8 bytes, lowercase hex. Deterministic and one-way, so the
// store never holds a reversible secret.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
