package server

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"net/http"
	"time"

	"github.com/fxamacker/cbor/v2"
	"golang.org/x/crypto/chacha20poly1305"

	"github.com/loginbridge/loginbridge/internal/constants"
)

const maxCookieLen = 8192

// cookieEnvelope is what the sealed cookie carries. Nothing else is stored
// browser-side.
type cookieEnvelope struct {
	SessionID string `cbor:"1,keyasint"`
}

// CookieManager seals and opens the session cookie. The value is an
// XChaCha20-Poly1305 sealed CBOR envelope; the AAD binds the cookie name
// and path so a value cannot be replayed under another identity.
//
// SameSite is Lax on purpose: the callback from the identity provider is a
// cross-site top-level navigation and Strict would silently drop the cookie.
type CookieManager struct {
	key    [chacha20poly1305.KeySize]byte
	secure bool
	maxAge int
}

func NewCookieManager(signingKey []byte, secure bool, sessionTTL time.Duration) *CookieManager {
	cm := &CookieManager{
		secure: secure,
		maxAge: int(sessionTTL.Seconds()),
	}
	cm.key = sha256.Sum256(signingKey)
	return cm
}

func (cm *CookieManager) aad() []byte {
	return []byte(constants.SessionCookieName + ":/")
}

// Set writes the session cookie for the session id.
func (cm *CookieManager) Set(w http.ResponseWriter, sessionID string) error {
	plain, err := cbor.Marshal(&cookieEnvelope{SessionID: sessionID})
	if err != nil {
		return fmt.Errorf("failed to marshal cookie envelope: %w", err)
	}

	aead, err := chacha20poly1305.NewX(cm.key[:])
	if err != nil {
		return fmt.Errorf("failed to build cookie cipher: %w", err)
	}
	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return fmt.Errorf("failed to generate cookie nonce: %w", err)
	}
	sealed := aead.Seal(nonce, nonce, plain, cm.aad())

	http.SetCookie(w, &http.Cookie{
		Name:     constants.SessionCookieName,
		Value:    base64.RawURLEncoding.EncodeToString(sealed),
		Path:     "/",
		MaxAge:   cm.maxAge,
		HttpOnly: true,
		Secure:   cm.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// Read returns the session id carried by the request, or "" when the cookie
// is absent or does not open.
func (cm *CookieManager) Read(r *http.Request) string {
	c, err := r.Cookie(constants.SessionCookieName)
	if err != nil || c.Value == "" || len(c.Value) > maxCookieLen {
		return ""
	}

	sealed, err := base64.RawURLEncoding.DecodeString(c.Value)
	if err != nil {
		return ""
	}
	aead, err := chacha20poly1305.NewX(cm.key[:])
	if err != nil {
		return ""
	}
	if len(sealed) < aead.NonceSize()+aead.Overhead() {
		return ""
	}
	nonce, ciphertext := sealed[:aead.NonceSize()], sealed[aead.NonceSize():]
	plain, err := aead.Open(nil, nonce, ciphertext, cm.aad())
	if err != nil {
		return ""
	}

	var env cookieEnvelope
	if err := cbor.Unmarshal(plain, &env); err != nil {
		return ""
	}
	return env.SessionID
}

// Clear removes the session cookie from the browser.
func (cm *CookieManager) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     constants.SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   cm.secure,
		SameSite: http.SameSiteLaxMode,
	})
}
