package saml

import (
	"net/http"
	"net/url"

	"github.com/wildflowerhealth/wfh-mock-sydney/internal/session"
)

// DestinationGuard is the sole authorization boundary in front of
// issuance: the one production-like ACS requires an authenticated
// operator session, every other destination is open.
type DestinationGuard struct {
	protectedACS string
	sessions     *session.Manager
}

// NewDestinationGuard creates a guard protecting the given ACS URL.
func NewDestinationGuard(protectedACS string, sessions *session.Manager) *DestinationGuard {
	return &DestinationGuard{protectedACS: protectedACS, sessions: sessions}
}

// Check decides whether issuance for acsURL may proceed for this
// request. When blocked it returns a sign-in URL that brings the
// operator back to the page they came from.
func (g *DestinationGuard) Check(r *http.Request, acsURL string) (allowed bool, signInURL string) {
	if acsURL != g.protectedACS {
		return true, ""
	}
	if _, ok := g.sessions.Read(r); ok {
		return true, ""
	}

	next := r.Header.Get("Referer")
	if next == "" {
		next = "/"
	}
	return false, "/oauth/login?next=" + url.QueryEscape(next)
}
