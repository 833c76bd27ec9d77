package githubauth

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"log"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/wildflowerhealth/wfh-mock-sydney/internal/core"
	"github.com/wildflowerhealth/wfh-mock-sydney/internal/session"
)

var (
	// ErrInvalidState means the anti-forgery state did not match.
	ErrInvalidState = errors.New("invalid oauth state")
	// ErrTokenExchange means GitHub returned no access token.
	ErrTokenExchange = errors.New("oauth token exchange failed")
	// ErrForbidden means the identity failed the org membership check.
	ErrForbidden = errors.New("org membership check failed")
)

const (
	stateCookie = "gh_oauth_state"
	nextCookie  = "gh_oauth_next"

	// The anti-forgery cookies only need to survive the round trip
	// through GitHub.
	tempCookieMaxAge = 600

	defaultNext = "/saml/sydney"
)

// Gate runs the three-step OAuth protocol that authenticates an
// operator against GitHub and authorizes them by org membership,
// producing a session cookie on success. Correlation between steps is
// carried entirely in browser cookies; the server keeps no state.
type Gate struct {
	client   *Client
	sessions *session.Manager
	baseURL  string
	org      string
	secure   bool
}

// NewGate wires the gate from process configuration.
func NewGate(cfg *core.Config, client *Client, sessions *session.Manager) *Gate {
	return &Gate{
		client:   client,
		sessions: sessions,
		baseURL:  cfg.BaseURL,
		org:      cfg.RequiredOrg,
		secure:   cfg.IsProduction(),
	}
}

// RegisterRoutes mounts the gate's endpoints.
func (g *Gate) RegisterRoutes(r chi.Router) {
	r.Get("/oauth/login", g.handleLogin)
	r.Get("/oauth/callback", g.handleCallback)
	r.Get("/oauth/logout", g.handleLogout)
	r.Get("/session", g.handleSession)
}

// Sessions exposes the session manager for components that only need
// to read sessions.
func (g *Gate) Sessions() *session.Manager {
	return g.sessions
}

func (g *Gate) handleLogin(w http.ResponseWriter, r *http.Request) {
	next := r.URL.Query().Get("next")
	if next == "" {
		next = defaultNext
	}

	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		core.WriteError(w, http.StatusInternalServerError, "failed to generate state")
		return
	}
	state := hex.EncodeToString(buf)

	g.setTempCookie(w, stateCookie, state, tempCookieMaxAge)
	g.setTempCookie(w, nextCookie, url.QueryEscape(next), tempCookieMaxAge)

	http.Redirect(w, r, g.client.AuthorizeURL(g.redirectURI(), state), http.StatusFound)
}

func (g *Gate) handleCallback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	code := r.URL.Query().Get("code")
	state := r.URL.Query().Get("state")

	// State must exactly match the stored cookie. The failure mode is
	// identical whether the query value is absent or wrong.
	stored, err := r.Cookie(stateCookie)
	if state == "" || err != nil || stored.Value != state {
		g.clearTempCookies(w)
		http.Error(w, "Invalid OAuth state", http.StatusBadRequest)
		return
	}

	accessToken, err := g.client.ExchangeCode(ctx, code, g.redirectURI())
	if err != nil {
		log.Printf("oauth callback: %v", err)
		http.Error(w, "OAuth token exchange failed", http.StatusUnauthorized)
		return
	}

	if err := g.client.CheckOrgMembership(ctx, accessToken, g.org); err != nil {
		log.Printf("oauth callback: %v", err)
		http.Error(w, "Not an active member of required org", http.StatusForbidden)
		return
	}

	user, err := g.client.FetchUser(ctx, accessToken)
	if err != nil {
		log.Printf("oauth callback: %v", err)
		http.Error(w, "Failed to fetch user profile", http.StatusBadGateway)
		return
	}

	if err := g.sessions.Issue(w, session.Claims{Sub: user.ID, Login: user.Login}); err != nil {
		core.WriteError(w, http.StatusInternalServerError, "failed to issue session")
		return
	}
	g.clearTempCookies(w)

	next := defaultNext
	if cookie, err := r.Cookie(nextCookie); err == nil {
		if decoded, err := url.QueryUnescape(cookie.Value); err == nil && decoded != "" {
			next = decoded
		} else {
			next = "/"
		}
	}
	http.Redirect(w, r, next, http.StatusFound)
}

func (g *Gate) handleLogout(w http.ResponseWriter, r *http.Request) {
	g.sessions.Clear(w)
	http.Redirect(w, r, defaultNext, http.StatusFound)
}

func (g *Gate) handleSession(w http.ResponseWriter, r *http.Request) {
	claims, ok := g.sessions.Read(r)
	if !ok {
		core.WriteJSON(w, http.StatusOK, map[string]interface{}{"session": nil})
		return
	}
	core.WriteJSON(w, http.StatusOK, map[string]interface{}{"session": claims})
}

func (g *Gate) redirectURI() string {
	return g.baseURL + "/oauth/callback"
}

func (g *Gate) setTempCookie(w http.ResponseWriter, name, value string, maxAge int) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   maxAge,
		Secure:   g.secure,
	})
}

func (g *Gate) clearTempCookies(w http.ResponseWriter) {
	g.setTempCookie(w, stateCookie, "", -1)
	g.setTempCookie(w, nextCookie, "", -1)
}
