package server

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	. "github.com/onsi/gomega"

	"github.com/loginbridge/loginbridge/internal/constants"
)

var testCookieKey = []byte("0123456789abcdef0123456789abcdef")

func setCookie(g *WithT, cm *CookieManager, sessionID string) *http.Cookie {
	rec := httptest.NewRecorder()
	g.Expect(cm.Set(rec, sessionID)).To(Succeed())
	cookies := rec.Result().Cookies()
	g.Expect(cookies).To(HaveLen(1))
	return cookies[0]
}

func requestWithCookie(c *http.Cookie) *http.Request {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.AddCookie(c)
	return r
}

func TestCookieRoundTrip(t *testing.T) {
	g := NewWithT(t)

	cm := NewCookieManager(testCookieKey, true, 8*time.Hour)
	c := setCookie(g, cm, "session-id-1")

	g.Expect(c.Name).To(Equal(constants.SessionCookieName))
	g.Expect(c.Value).ToNot(ContainSubstring("session-id-1"))
	g.Expect(c.Path).To(Equal("/"))
	g.Expect(c.MaxAge).To(Equal(int((8 * time.Hour).Seconds())))
	g.Expect(c.HttpOnly).To(BeTrue())
	g.Expect(c.Secure).To(BeTrue())
	g.Expect(c.SameSite).To(Equal(http.SameSiteLaxMode))

	g.Expect(cm.Read(requestWithCookie(c))).To(Equal("session-id-1"))
}

func TestCookieInsecureMode(t *testing.T) {
	g := NewWithT(t)

	cm := NewCookieManager(testCookieKey, false, time.Hour)
	c := setCookie(g, cm, "session-id-1")

	g.Expect(c.Secure).To(BeFalse())
	g.Expect(c.HttpOnly).To(BeTrue())
}

func TestCookieRead_Invalid(t *testing.T) {
	g := NewWithT(t)

	cm := NewCookieManager(testCookieKey, true, time.Hour)
	c := setCookie(g, cm, "session-id-1")

	// No cookie at all.
	g.Expect(cm.Read(httptest.NewRequest(http.MethodGet, "/", nil))).To(BeEmpty())

	// Tampered value.
	tampered := *c
	tampered.Value = "x" + c.Value[1:]
	g.Expect(cm.Read(requestWithCookie(&tampered))).To(BeEmpty())

	// Not base64.
	garbage := *c
	garbage.Value = "!!not base64!!"
	g.Expect(cm.Read(requestWithCookie(&garbage))).To(BeEmpty())

	// Too short to carry a nonce.
	short := *c
	short.Value = "AAAA"
	g.Expect(cm.Read(requestWithCookie(&short))).To(BeEmpty())

	// Sealed under a different key.
	other := NewCookieManager([]byte("another-signing-key-of-32-bytes!"), true, time.Hour)
	g.Expect(other.Read(requestWithCookie(c))).To(BeEmpty())
}

func TestCookieClear(t *testing.T) {
	g := NewWithT(t)

	cm := NewCookieManager(testCookieKey, true, time.Hour)
	rec := httptest.NewRecorder()
	cm.Clear(rec)

	cookies := rec.Result().Cookies()
	g.Expect(cookies).To(HaveLen(1))
	g.Expect(cookies[0].Name).To(Equal(constants.SessionCookieName))
	g.Expect(cookies[0].Value).To(BeEmpty())
	g.Expect(cookies[0].MaxAge).To(Equal(-1))
	g.Expect(cookies[0].Path).To(Equal("/"))
}

func TestCookieValuesDiffer(t *testing.T) {
	g := NewWithT(t)

	// Random nonces make equal session ids seal to different values.
	cm := NewCookieManager(testCookieKey, true, time.Hour)
	c1 := setCookie(g, cm, "session-id-1")
	c2 := setCookie(g, cm, "session-id-1")
	g.Expect(c1.Value).ToNot(Equal(c2.Value))
}
