package core

import (
	"errors"
	"os"
	"strings"
)

// Config holds the process-wide configuration. It is loaded once at
// startup and passed by reference into every component that needs it.
type Config struct {
	// Environment (development, production)
	Environment string

	// Server listening address
	ListenAddr string

	// Base URL for constructing absolute URLs (OAuth redirect URI)
	BaseURL string

	// Secret used to sign session tokens
	SessionSecret string

	// GitHub OAuth application credentials
	GitHubClientID     string
	GitHubClientSecret string

	// GitHub endpoints, overridable so tests can point at local fakes
	GitHubAuthBaseURL string
	GitHubAPIBaseURL  string

	// Organization whose active members may target the production ACS
	RequiredOrg string

	// SAML issuer entity ID
	SAMLEntityID string

	// PEM-encoded signing key material; when both are empty a
	// self-signed development certificate is generated at startup
	SAMLPrivateKeyPEM  string
	SAMLCertificatePEM string

	// API key sent to environment eligibility stores
	EligibilityAPIKey string

	// CORS allowed origins
	CORSOrigins []string
}

// LoadConfig loads configuration from environment variables with sensible defaults
func LoadConfig() *Config {
	return &Config{
		Environment:        getEnv("NODE_ENV", "development"),
		ListenAddr:         getEnv("LISTEN_ADDR", ":4123"),
		BaseURL:            getEnv("APP_URL", "http://localhost:4123"),
		SessionSecret:      os.Getenv("SESSION_SECRET"),
		GitHubClientID:     os.Getenv("GITHUB_CLIENT_ID"),
		GitHubClientSecret: os.Getenv("GITHUB_CLIENT_SECRET"),
		GitHubAuthBaseURL:  getEnv("GITHUB_AUTH_URL", "https://github.com"),
		GitHubAPIBaseURL:   getEnv("GITHUB_API_URL", "https://api.github.com"),
		RequiredOrg:        getEnv("GITHUB_REQUIRED_ORG", "wildflowerhealth"),
		SAMLEntityID:       getEnv("SAML_ENTITY_ID", "https://saml.wildflowerhealth.com"),
		SAMLPrivateKeyPEM:  os.Getenv("SAML_PRIVATE_KEY"),
		SAMLCertificatePEM: os.Getenv("SAML_CERTIFICATE"),
		EligibilityAPIKey:  getEnv("AG_API_KEY", defaultEligibilityAPIKey),
		CORSOrigins:        getEnvList("CORS_ORIGINS", []string{"http://localhost:3000"}),
	}
}

// Validate checks that configuration required for safe operation is
// present. A missing signing secret is fatal: operating with an empty
// key would make every session token forgeable.
func (c *Config) Validate() error {
	if c.SessionSecret == "" {
		return errors.New("missing SESSION_SECRET")
	}
	if c.GitHubClientID == "" || c.GitHubClientSecret == "" {
		return errors.New("missing GITHUB_CLIENT_ID or GITHUB_CLIENT_SECRET")
	}
	if c.BaseURL == "" {
		return errors.New("missing APP_URL")
	}
	if (c.SAMLPrivateKeyPEM == "") != (c.SAMLCertificatePEM == "") {
		return errors.New("SAML_PRIVATE_KEY and SAML_CERTIFICATE must be set together")
	}
	return nil
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return strings.Split(value, ",")
}
