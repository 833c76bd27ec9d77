package githubauth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

const userAgent = "wfh-mock-sydney"

// Scope requested from GitHub: profile for the session claims, org
// read for the membership check.
const oauthScope = "read:user read:org"

// User is the subset of the GitHub profile carried into session claims.
type User struct {
	ID    int64  `json:"id"`
	Login string `json:"login"`
}

// Client talks to GitHub's OAuth and REST endpoints. Base URLs are
// injected so tests can stand in local fakes.
type Client struct {
	httpClient   *http.Client
	authBaseURL  string
	apiBaseURL   string
	clientID     string
	clientSecret string
}

// NewClient creates a GitHub client. A nil httpClient gets a default
// with a 10 second timeout.
func NewClient(authBaseURL, apiBaseURL, clientID, clientSecret string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{
		httpClient:   httpClient,
		authBaseURL:  authBaseURL,
		apiBaseURL:   apiBaseURL,
		clientID:     clientID,
		clientSecret: clientSecret,
	}
}

// AuthorizeURL builds the external authorization URL the operator is
// redirected to.
func (c *Client) AuthorizeURL(redirectURI, state string) string {
	params := url.Values{}
	params.Set("client_id", c.clientID)
	params.Set("redirect_uri", redirectURI)
	params.Set("scope", oauthScope)
	params.Set("state", state)
	return c.authBaseURL + "/login/oauth/authorize?" + params.Encode()
}

// ExchangeCode trades an authorization code for an access token.
func (c *Client) ExchangeCode(ctx context.Context, code, redirectURI string) (string, error) {
	body, err := json.Marshal(map[string]string{
		"client_id":     c.clientID,
		"client_secret": c.clientSecret,
		"code":          code,
		"redirect_uri":  redirectURI,
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.authBaseURL+"/login/oauth/access_token", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("token exchange request failed: %w", err)
	}
	defer resp.Body.Close()

	var tokenResp struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tokenResp); err != nil {
		return "", fmt.Errorf("failed to decode token response: %w", err)
	}
	if tokenResp.AccessToken == "" {
		return "", ErrTokenExchange
	}
	return tokenResp.AccessToken, nil
}

// CheckOrgMembership verifies the authenticated user has an active
// membership in org. This is the authorization gate: a valid GitHub
// identity outside the org is still refused.
func (c *Client) CheckOrgMembership(ctx context.Context, accessToken, org string) error {
	var membership struct {
		State string `json:"state"`
	}
	if err := c.getJSON(ctx, accessToken, "/user/memberships/orgs/"+org, &membership); err != nil {
		return fmt.Errorf("%w: %v", ErrForbidden, err)
	}
	if membership.State != "active" {
		return fmt.Errorf("%w: membership state %q", ErrForbidden, membership.State)
	}
	return nil
}

// FetchUser retrieves the authenticated user's profile.
func (c *Client) FetchUser(ctx context.Context, accessToken string) (User, error) {
	var user User
	if err := c.getJSON(ctx, accessToken, "/user", &user); err != nil {
		return User{}, err
	}
	return user, nil
}

func (c *Client) getJSON(ctx context.Context, accessToken, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiBaseURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("GitHub API %s returned %d", path, resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
