package session

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"
	"time"
)

// Claims is the payload carried by a session token. Immutable once
// issued; a token past its expiry is treated as no session at all.
type Claims struct {
	// Sub is the GitHub user id
	Sub int64 `json:"sub"`
	// Login is the GitHub username
	Login string `json:"login"`
	// Exp is the expiry in epoch seconds
	Exp int64 `json:"exp"`
}

// Codec encodes and decodes signed session tokens. The token format is
// base64url(JSON claims) + "." + base64url(HMAC-SHA256 over the JSON).
// Verification is stateless: there is no server-side session store and
// no revocation list, which is acceptable for the short-lived demo
// gate this protects.
type Codec struct {
	secret []byte
	now    func() time.Time
}

// NewCodec creates a codec with the given signing secret. An empty
// secret is refused: signing with a default key would make every
// token forgeable.
func NewCodec(secret string) (*Codec, error) {
	if secret == "" {
		return nil, errors.New("session secret must not be empty")
	}
	return &Codec{secret: []byte(secret), now: time.Now}, nil
}

// Encode stamps the expiry and returns the signed token.
func (c *Codec) Encode(claims Claims, ttl time.Duration) (string, error) {
	claims.Exp = c.now().Add(ttl).Unix()
	payload, err := json.Marshal(claims)
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(payload) + "." + c.sign(payload), nil
}

// Decode verifies and parses a token. Any structural problem, a
// signature mismatch, an unparseable payload, or a past expiry all
// yield (zero, false) rather than an error: a bad token is simply no
// session.
func (c *Codec) Decode(token string) (Claims, bool) {
	if token == "" {
		return Claims{}, false
	}
	body, sig, found := strings.Cut(token, ".")
	if !found || body == "" || sig == "" {
		return Claims{}, false
	}

	payload, err := base64.RawURLEncoding.DecodeString(body)
	if err != nil {
		return Claims{}, false
	}

	want, err := base64.RawURLEncoding.DecodeString(sig)
	if err != nil {
		return Claims{}, false
	}
	mac := hmac.New(sha256.New, c.secret)
	mac.Write(payload)
	if !hmac.Equal(mac.Sum(nil), want) {
		return Claims{}, false
	}

	var claims Claims
	if err := json.Unmarshal(payload, &claims); err != nil {
		return Claims{}, false
	}
	if claims.Exp < c.now().Unix() {
		return Claims{}, false
	}
	return claims, true
}

// sign computes the MAC over the raw JSON payload, not its base64 form.
func (c *Codec) sign(payload []byte) string {
	mac := hmac.New(sha256.New, c.secret)
	mac.Write(payload)
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}
