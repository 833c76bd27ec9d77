package session

import (
	"net/http"
	"time"
)

// CookieName is the session cookie. The gh_ prefix marks it as the
// GitHub-backed operator session.
const CookieName = "gh_sess"

// DefaultTTL is how long an operator session lasts.
const DefaultTTL = 8 * time.Hour

// Manager owns the session cookie lifecycle. Cookie name, attributes
// and TTL are fixed here rather than caller-supplied so every issuance
// uses the same scope.
type Manager struct {
	codec  *Codec
	secure bool
	ttl    time.Duration
}

// NewManager creates a manager around the codec. secure should be true
// in production-like contexts so the cookie is only sent over TLS.
func NewManager(codec *Codec, secure bool) *Manager {
	return &Manager{codec: codec, secure: secure, ttl: DefaultTTL}
}

// Issue encodes the claims and sets the session cookie.
func (m *Manager) Issue(w http.ResponseWriter, claims Claims) error {
	token, err := m.codec.Encode(claims, m.ttl)
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(m.ttl.Seconds()),
		Secure:   m.secure,
	})
	return nil
}

// Read extracts and verifies the session from the request cookies.
func (m *Manager) Read(r *http.Request) (Claims, bool) {
	cookie, err := r.Cookie(CookieName)
	if err != nil {
		return Claims{}, false
	}
	return m.codec.Decode(cookie.Value)
}

// Clear expires the session cookie immediately.
func (m *Manager) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
		Secure:   m.secure,
	})
}
