// Package cryptox wraps the credential hashing used by the profile server
// and a helper for clearing secrets from memory.
package cryptox

import "golang.org/x/crypto/bcrypt"

// DefaultCost is the bcrypt cost used for stored profile credentials.
const DefaultCost = bcrypt.DefaultCost

// HashCredential returns the bcrypt hash of secret. A cost outside bcrypt's
// accepted range falls back to DefaultCost.
func HashCredential(secret []byte, cost int) ([]byte, error) {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultCost
	}
	return bcrypt.GenerateFromPassword(secret, cost)
}

// CheckCredential reports whether secret matches a hash produced by
// HashCredential. An empty hash never matches.
func CheckCredential(hash, secret []byte) bool {
	if len(hash) == 0 {
		return false
	}
	return bcrypt.CompareHashAndPassword(hash, secret) == nil
}

// WipeByteArray overwrites b with zeros. A nil slice is ignored.
func WipeByteArray(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
