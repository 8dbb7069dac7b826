// Package auth issues and verifies the signed, time-limited access
// credential delivered as a cookie. Verification failures of any kind are
// reported as "not authenticated", never as errors.
package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

const (
	// CookieName is the credential cookie.
	CookieName = "auth_token"
	// TokenTTL matches the original 7-day validity window.
	TokenTTL = 7 * 24 * time.Hour
)

// Manager signs and verifies access tokens with an HMAC-SHA256 secret.
type Manager struct {
	secret []byte
	now    func() time.Time
}

func NewManager(secret string) *Manager {
	return &Manager{
		secret: []byte(secret),
		now:    time.Now,
	}
}

// Issue returns a token valid for TokenTTL. Format: base64(expiry).signature.
func (m *Manager) Issue() string {
	expiry := m.now().Add(TokenTTL).Unix()
	payload := base64.RawURLEncoding.EncodeToString([]byte(strconv.FormatInt(expiry, 10)))
	return payload + "." + m.sign(payload)
}

// Verify reports whether the token is well-formed, correctly signed, and not
// expired.
func (m *Manager) Verify(token string) bool {
	payload, sig, ok := strings.Cut(token, ".")
	if !ok {
		return false
	}
	if !hmac.Equal([]byte(m.sign(payload)), []byte(sig)) {
		return false
	}
	raw, err := base64.RawURLEncoding.DecodeString(payload)
	if err != nil {
		return false
	}
	expiry, err := strconv.ParseInt(string(raw), 10, 64)
	if err != nil {
		return false
	}
	return m.now().Unix() < expiry
}

func (m *Manager) sign(payload string) string {
	mac := hmac.New(sha256.New, m.secret)
	fmt.Fprint(mac, payload)
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

// Cookie wraps a token in the http-only, secure, cross-site-allowed cookie
// the front-end expects.
func Cookie(token string) *http.Cookie {
	return &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(TokenTTL.Seconds()),
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteNoneMode,
	}
}

// ClearCookie expires the credential cookie.
func ClearCookie() *http.Cookie {
	return &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteNoneMode,
	}
}

// Authenticated reads the credential cookie from a request and verifies it.
func (m *Manager) Authenticated(r *http.Request) bool {
	c, err := r.Cookie(CookieName)
	if err != nil || c.Value == "" {
		return false
	}
	return m.Verify(c.Value)
}
