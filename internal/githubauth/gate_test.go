package githubauth

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wildflowerhealth/wfh-mock-sydney/internal/core"
	"github.com/wildflowerhealth/wfh-mock-sydney/internal/session"
)

// fakeGitHub stands in for GitHub's OAuth and REST endpoints.
type fakeGitHub struct {
	accessToken     string // empty means the exchange yields no token
	membershipState string // empty means 404 from the membership endpoint
	user            User

	lastUserAgent string
}

func (f *fakeGitHub) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/login/oauth/access_token", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if f.accessToken == "" {
			w.Write([]byte(`{}`))
			return
		}
		json.NewEncoder(w).Encode(map[string]string{"access_token": f.accessToken})
	})
	mux.HandleFunc("/user/memberships/orgs/", func(w http.ResponseWriter, r *http.Request) {
		f.lastUserAgent = r.Header.Get("User-Agent")
		if f.membershipState == "" {
			http.NotFound(w, r)
			return
		}
		json.NewEncoder(w).Encode(map[string]string{"state": f.membershipState})
	})
	mux.HandleFunc("/user", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(f.user)
	})
	return mux
}

func newTestGate(t *testing.T, fake *fakeGitHub) (chi.Router, *session.Manager, *httptest.Server) {
	t.Helper()

	srv := httptest.NewServer(fake.handler())
	t.Cleanup(srv.Close)

	cfg := &core.Config{
		Environment:        "development",
		BaseURL:            "http://localhost:4123",
		GitHubClientID:     "client-id",
		GitHubClientSecret: "client-secret",
		GitHubAuthBaseURL:  srv.URL,
		GitHubAPIBaseURL:   srv.URL,
		RequiredOrg:        "wildflowerhealth",
	}

	codec, err := session.NewCodec("test-secret")
	require.NoError(t, err)
	sessions := session.NewManager(codec, false)

	gate := NewGate(cfg, NewClient(cfg.GitHubAuthBaseURL, cfg.GitHubAPIBaseURL, cfg.GitHubClientID, cfg.GitHubClientSecret, nil), sessions)

	r := chi.NewRouter()
	gate.RegisterRoutes(r)
	return r, sessions, srv
}

func cookieByName(cookies []*http.Cookie, name string) *http.Cookie {
	for _, c := range cookies {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestLoginRedirectsToGitHub(t *testing.T) {
	router, _, srv := newTestGate(t, &fakeGitHub{})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/oauth/login?next=/dashboard", nil))

	resp := w.Result()
	require.Equal(t, http.StatusFound, resp.StatusCode)

	location := resp.Header.Get("Location")
	assert.True(t, strings.HasPrefix(location, srv.URL+"/login/oauth/authorize?"), "unexpected redirect %q", location)

	parsed, err := url.Parse(location)
	require.NoError(t, err)
	query := parsed.Query()
	assert.Equal(t, "client-id", query.Get("client_id"))
	assert.Equal(t, "read:user read:org", query.Get("scope"))
	assert.Equal(t, "http://localhost:4123/oauth/callback", query.Get("redirect_uri"))

	cookies := resp.Cookies()
	state := cookieByName(cookies, stateCookie)
	require.NotNil(t, state)
	assert.Equal(t, query.Get("state"), state.Value)
	assert.True(t, state.HttpOnly)
	assert.Equal(t, tempCookieMaxAge, state.MaxAge)

	next := cookieByName(cookies, nextCookie)
	require.NotNil(t, next)
	assert.Equal(t, url.QueryEscape("/dashboard"), next.Value)
}

func TestCallbackRejectsMissingStateCookie(t *testing.T) {
	router, _, _ := newTestGate(t, &fakeGitHub{})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/oauth/callback?code=abc&state=xyz", nil))

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCallbackRejectsMismatchedState(t *testing.T) {
	router, _, _ := newTestGate(t, &fakeGitHub{})

	req := httptest.NewRequest(http.MethodGet, "/oauth/callback?code=abc&state=attacker", nil)
	req.AddCookie(&http.Cookie{Name: stateCookie, Value: "expected"})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	// The anti-forgery cookies are expired on rejection
	state := cookieByName(w.Result().Cookies(), stateCookie)
	require.NotNil(t, state)
	assert.Negative(t, state.MaxAge)
}

func TestCallbackHappyPath(t *testing.T) {
	fake := &fakeGitHub{
		accessToken:     "gho_token",
		membershipState: "active",
		user:            User{ID: 42, Login: "octocat"},
	}
	router, sessions, _ := newTestGate(t, fake)

	req := httptest.NewRequest(http.MethodGet, "/oauth/callback?code=abc&state=expected", nil)
	req.AddCookie(&http.Cookie{Name: stateCookie, Value: "expected"})
	req.AddCookie(&http.Cookie{Name: nextCookie, Value: url.QueryEscape("/dashboard")})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	resp := w.Result()
	require.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/dashboard", resp.Header.Get("Location"))
	assert.Equal(t, "wfh-mock-sydney", fake.lastUserAgent)

	sess := cookieByName(resp.Cookies(), session.CookieName)
	require.NotNil(t, sess)

	read := httptest.NewRequest(http.MethodGet, "/", nil)
	read.AddCookie(sess)
	claims, ok := sessions.Read(read)
	require.True(t, ok)
	assert.Equal(t, int64(42), claims.Sub)
	assert.Equal(t, "octocat", claims.Login)

	state := cookieByName(resp.Cookies(), stateCookie)
	require.NotNil(t, state)
	assert.Negative(t, state.MaxAge)
}

func TestCallbackTokenExchangeFailure(t *testing.T) {
	router, _, _ := newTestGate(t, &fakeGitHub{})

	req := httptest.NewRequest(http.MethodGet, "/oauth/callback?code=abc&state=expected", nil)
	req.AddCookie(&http.Cookie{Name: stateCookie, Value: "expected"})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCallbackRejectsInactiveMembership(t *testing.T) {
	fake := &fakeGitHub{
		accessToken:     "gho_token",
		membershipState: "pending",
		user:            User{ID: 42, Login: "octocat"},
	}
	router, _, _ := newTestGate(t, fake)

	req := httptest.NewRequest(http.MethodGet, "/oauth/callback?code=abc&state=expected", nil)
	req.AddCookie(&http.Cookie{Name: stateCookie, Value: "expected"})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Nil(t, cookieByName(w.Result().Cookies(), session.CookieName))
}

func TestCallbackRejectsNonMember(t *testing.T) {
	fake := &fakeGitHub{
		accessToken: "gho_token",
		user:        User{ID: 42, Login: "octocat"},
	}
	router, _, _ := newTestGate(t, fake)

	req := httptest.NewRequest(http.MethodGet, "/oauth/callback?code=abc&state=expected", nil)
	req.AddCookie(&http.Cookie{Name: stateCookie, Value: "expected"})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestLogoutClearsSessionAndRedirects(t *testing.T) {
	router, _, _ := newTestGate(t, &fakeGitHub{})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/oauth/logout", nil))

	resp := w.Result()
	require.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, defaultNext, resp.Header.Get("Location"))

	sess := cookieByName(resp.Cookies(), session.CookieName)
	require.NotNil(t, sess)
	assert.Negative(t, sess.MaxAge)
}

func TestSessionEndpoint(t *testing.T) {
	router, sessions, _ := newTestGate(t, &fakeGitHub{})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/session", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"session":null}`, w.Body.String())

	issue := httptest.NewRecorder()
	require.NoError(t, sessions.Issue(issue, session.Claims{Sub: 42, Login: "octocat"}))

	req := httptest.NewRequest(http.MethodGet, "/session", nil)
	for _, c := range issue.Result().Cookies() {
		req.AddCookie(c)
	}
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Session *session.Claims `json:"session"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.NotNil(t, body.Session)
	assert.Equal(t, "octocat", body.Session.Login)
}
