package core

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pingComponent struct{}

func (pingComponent) RegisterRoutes(r chi.Router) {
	r.Get("/ping", func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, http.StatusOK, map[string]string{"pong": "yes"})
	})
}

func newTestServer() *Server {
	cfg := validConfig()
	cfg.CORSOrigins = []string{"http://localhost:3000"}
	cfg.EligibilityAPIKey = "super-secret-key"
	return NewServer(cfg, pingComponent{})
}

func TestHealthEndpoint(t *testing.T) {
	w := httptest.NewRecorder()
	newTestServer().Router().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, w.Code)

	var body HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body.Status)
	assert.Equal(t, "development", body.Environment)
}

func TestEnvironmentsEndpointRedactsKeys(t *testing.T) {
	w := httptest.NewRecorder()
	newTestServer().Router().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/environments", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "super-secret-key")

	var body struct {
		Environments []EnvironmentSummary `json:"environments"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Environments, len(Environments))

	supported := map[Environment]bool{}
	for _, env := range body.Environments {
		assert.NotEmpty(t, env.ACS)
		assert.NotEmpty(t, env.Audience)
		supported[env.Name] = env.MockEligibilitySupported
	}
	assert.True(t, supported[EnvDev])
	assert.False(t, supported[EnvProd])
}

func TestComponentRoutesMounted(t *testing.T) {
	w := httptest.NewRecorder()
	newTestServer().Router().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"pong":"yes"}`, w.Body.String())
}

func TestSecurityHeadersApplied(t *testing.T) {
	w := httptest.NewRecorder()
	newTestServer().Router().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
}
