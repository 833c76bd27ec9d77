package inspect

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wildflowerhealth/wfh-mock-sydney/internal/session"
)

func newTestInspector(t *testing.T) (*Inspector, *session.Codec) {
	t.Helper()
	codec, err := session.NewCodec("test-secret")
	require.NoError(t, err)
	return NewInspector(codec), codec
}

func TestInspectValidSessionToken(t *testing.T) {
	inspector, codec := newTestInspector(t)

	token, err := codec.Encode(session.Claims{Sub: 42, Login: "octocat"}, time.Hour)
	require.NoError(t, err)

	result, err := inspector.Inspect(token)
	require.NoError(t, err)
	assert.Equal(t, "session", result.Kind)
	assert.True(t, result.Valid)
	assert.Contains(t, string(result.Claims), `"login":"octocat"`)
}

func TestInspectExpiredSessionTokenShowsClaims(t *testing.T) {
	inspector, codec := newTestInspector(t)

	token, err := codec.Encode(session.Claims{Sub: 42, Login: "octocat"}, -time.Second)
	require.NoError(t, err)

	result, err := inspector.Inspect(token)
	require.NoError(t, err)
	assert.Equal(t, "session", result.Kind)
	assert.False(t, result.Valid)
	assert.Contains(t, string(result.Claims), `"login":"octocat"`)
}

func TestInspectJWT(t *testing.T) {
	inspector, _ := newTestInspector(t)

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  "1234567890",
		"name": "Jane Doe",
	}).SignedString([]byte("some-other-key"))
	require.NoError(t, err)

	result, err := inspector.Inspect(token)
	require.NoError(t, err)
	assert.Equal(t, "jwt", result.Kind)
	assert.Equal(t, "HS256", result.Header["alg"])
	assert.Equal(t, "Jane Doe", result.Payload["name"])
}

func TestInspectRejectsUnrecognizedInput(t *testing.T) {
	inspector, _ := newTestInspector(t)

	for _, token := range []string{"", "no dots here", "a.b.c.d"} {
		_, err := inspector.Inspect(token)
		assert.Error(t, err, "token %q accepted", token)
	}
}

func TestInspectRejectsNonJSONSessionPayload(t *testing.T) {
	inspector, _ := newTestInspector(t)

	_, err := inspector.Inspect("!!notbase64!!.c2ln")
	assert.Error(t, err)
}
