package inspect

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/wildflowerhealth/wfh-mock-sydney/internal/session"
)

// Inspector decodes tokens pasted by engineers during integration
// debugging: this IdP's own session tokens and third-party JWTs. JWT
// decoding is deliberately unverified; the inspector shows contents,
// it does not vouch for them.
type Inspector struct {
	codec *session.Codec
}

// NewInspector creates an inspector around the session codec.
func NewInspector(codec *session.Codec) *Inspector {
	return &Inspector{codec: codec}
}

// InspectResult describes a decoded token.
type InspectResult struct {
	Kind string `json:"kind"` // "session" or "jwt"

	// Session tokens
	Claims json.RawMessage `json:"claims,omitempty"`
	Valid  bool            `json:"valid,omitempty"`

	// JWTs
	Header  map[string]interface{} `json:"header,omitempty"`
	Payload map[string]interface{} `json:"payload,omitempty"`
}

// Inspect decodes a token by shape: two segments is a session token,
// three is a JWT.
func (i *Inspector) Inspect(token string) (*InspectResult, error) {
	token = strings.TrimSpace(token)
	switch strings.Count(token, ".") {
	case 1:
		return i.inspectSessionToken(token)
	case 2:
		return i.inspectJWT(token)
	default:
		return nil, fmt.Errorf("unrecognized token format")
	}
}

func (i *Inspector) inspectSessionToken(token string) (*InspectResult, error) {
	body, _, _ := strings.Cut(token, ".")
	payload, err := base64.RawURLEncoding.DecodeString(body)
	if err != nil {
		return nil, fmt.Errorf("malformed session token payload")
	}
	if !json.Valid(payload) {
		return nil, fmt.Errorf("session token payload is not JSON")
	}

	// Valid reflects a full signature and expiry check, while the
	// claims are shown either way.
	_, valid := i.codec.Decode(token)
	return &InspectResult{
		Kind:   "session",
		Claims: json.RawMessage(payload),
		Valid:  valid,
	}, nil
}

func (i *Inspector) inspectJWT(token string) (*InspectResult, error) {
	parser := jwt.NewParser()
	claims := jwt.MapClaims{}
	parsed, _, err := parser.ParseUnverified(token, claims)
	if err != nil {
		return nil, fmt.Errorf("failed to parse JWT: %w", err)
	}

	return &InspectResult{
		Kind:    "jwt",
		Header:  parsed.Header,
		Payload: map[string]interface{}(claims),
	}, nil
}
