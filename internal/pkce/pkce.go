// Package pkce generates the cryptographic parameters of an authorization
// request: the CSRF state and the PKCE verifier/challenge pair.
package pkce

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
)

const (
	stateMinLen = 16
	stateMaxLen = 128
)

// State returns a 256-bit random value, raw URL base64 encoded.
func State() (string, error) {
	var b [32]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b[:]), nil
}

// Verifier returns a PKCE code verifier.
func Verifier() (string, error) {
	// RFC 7636: 43..128 chars from ALPHA / DIGIT / "-" / "." / "_" / "~"
	// https://datatracker.ietf.org/doc/html/rfc7636#section-4.1
	const allowed = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789-._~"
	const n = 64 // any length 43-128
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	for i := range buf {
		buf[i] = allowed[int(buf[i])%len(allowed)]
	}
	return string(buf), nil
}

// ChallengeS256 derives the S256 code challenge for a verifier.
func ChallengeS256(verifier string) string {
	sum := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

// ValidStateFormat reports whether s is safe to use as a storage key.
// Values produced by State always pass; anything outside the bounded
// URL-safe alphabet is rejected before it reaches the shared namespace.
func ValidStateFormat(s string) bool {
	if len(s) < stateMinLen || len(s) > stateMaxLen {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case 'a' <= c && c <= 'z':
		case 'A' <= c && c <= 'Z':
		case '0' <= c && c <= '9':
		case c == '-' || c == '_':
		default:
			return false
		}
	}
	return true
}
