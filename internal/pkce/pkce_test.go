package pkce

import (
	"crypto/sha256"
	"encoding/base64"
	"strings"
	"testing"

	. "github.com/onsi/gomega"
)

func TestState(t *testing.T) {
	g := NewWithT(t)

	s1, err := State()
	g.Expect(err).ToNot(HaveOccurred())
	s2, err := State()
	g.Expect(err).ToNot(HaveOccurred())

	g.Expect(s1).ToNot(Equal(s2))
	g.Expect(ValidStateFormat(s1)).To(BeTrue())

	// 32 bytes raw URL base64 encode to 43 characters.
	g.Expect(s1).To(HaveLen(43))
	_, err = base64.RawURLEncoding.DecodeString(s1)
	g.Expect(err).ToNot(HaveOccurred())
}

func TestVerifier(t *testing.T) {
	g := NewWithT(t)

	const allowed = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789-._~"

	v, err := Verifier()
	g.Expect(err).ToNot(HaveOccurred())
	g.Expect(len(v)).To(BeNumerically(">=", 43))
	g.Expect(len(v)).To(BeNumerically("<=", 128))
	for _, c := range v {
		g.Expect(strings.ContainsRune(allowed, c)).To(BeTrue())
	}
}

func TestChallengeS256(t *testing.T) {
	g := NewWithT(t)

	verifier := "dBjftJeZ4CVP-mB92K27uhbUJU1p1r_wW1gFWFOEjXk"
	sum := sha256.Sum256([]byte(verifier))
	expected := base64.RawURLEncoding.EncodeToString(sum[:])

	g.Expect(ChallengeS256(verifier)).To(Equal(expected))
}

func TestValidStateFormat(t *testing.T) {
	tests := []struct {
		name  string
		state string
		valid bool
	}{
		{"valid URL-safe value", "abcDEF123_-abcDEF123", true},
		{"too short", "abc123", false},
		{"too long", strings.Repeat("a", 129), false},
		{"max length", strings.Repeat("a", 128), true},
		{"contains colon", "abc:def:123:456:789", false},
		{"contains wildcard", "abcdef123456789*", false},
		{"contains space", "abcdef 123456789", false},
		{"contains plus", "abcdef+123456789", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := NewWithT(t)
			g.Expect(ValidStateFormat(tt.state)).To(Equal(tt.valid))
		})
	}
}
