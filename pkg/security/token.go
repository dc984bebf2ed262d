package security

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base32"
	"encoding/hex"
	"fmt"
)

// tokenBytes is the entropy of a session token. 20 random bytes encode to a
// 32-character base32 string, which is unguessable for any practical purpose.
const tokenBytes = 20

var tokenEncoding = base32.StdEncoding.WithPadding(base32.NoPadding)

// GenerateSessionToken returns a new opaque session token for the client.
// Only the digest of this value is ever persisted.
func GenerateSessionToken() (string, error) {
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}
	return tokenEncoding.EncodeToString(buf), nil
}

// SessionIDFromToken derives the stored session ID from a client token.
// Storing the SHA-256 digest instead of the token means a read of the
// sessions table does not yield usable credentials.
func SessionIDFromToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
