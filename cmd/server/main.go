package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/wildflowerhealth/wfh-mock-sydney/internal/core"
	"github.com/wildflowerhealth/wfh-mock-sydney/internal/crypto"
	"github.com/wildflowerhealth/wfh-mock-sydney/internal/eligibility"
	"github.com/wildflowerhealth/wfh-mock-sydney/internal/githubauth"
	"github.com/wildflowerhealth/wfh-mock-sydney/internal/inspect"
	"github.com/wildflowerhealth/wfh-mock-sydney/internal/saml"
	"github.com/wildflowerhealth/wfh-mock-sydney/internal/session"
)

func main() {
	cfg := core.LoadConfig()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	keys, err := loadKeys(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize signing keys: %v", err)
	}
	log.Println("SAML signing keys initialized")

	codec, err := session.NewCodec(cfg.SessionSecret)
	if err != nil {
		log.Fatalf("Failed to initialize session codec: %v", err)
	}
	sessions := session.NewManager(codec, cfg.IsProduction())

	githubClient := githubauth.NewClient(
		cfg.GitHubAuthBaseURL,
		cfg.GitHubAPIBaseURL,
		cfg.GitHubClientID,
		cfg.GitHubClientSecret,
		nil,
	)
	gate := githubauth.NewGate(cfg, githubClient, sessions)

	feed := inspect.NewFeed(inspect.NewInspector(codec))

	issuer := saml.NewAssertionIssuer(cfg.SAMLEntityID, keys)
	guard := saml.NewDestinationGuard(core.ProductionACS, sessions)
	samlHandler := saml.NewHandler(issuer, guard, feed)

	relay := eligibility.NewRelay(core.EnvironmentTable(cfg.EligibilityAPIKey), nil)

	server := core.NewServer(cfg, gate, samlHandler, relay, feed)
	httpServer := &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      server.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Server starting on %s", cfg.ListenAddr)
		log.Printf("SAML issuance at %s/auth", cfg.BaseURL)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited gracefully")
}

// loadKeys loads configured PEM key material, or generates a
// self-signed development certificate when none is configured.
func loadKeys(cfg *core.Config) (*crypto.SigningKeys, error) {
	if cfg.SAMLPrivateKeyPEM != "" {
		return crypto.LoadSigningKeys(cfg.SAMLPrivateKeyPEM, cfg.SAMLCertificatePEM)
	}
	log.Println("No SAML key material configured, generating self-signed development certificate")
	return crypto.GenerateSigningKeys(cfg.SAMLEntityID)
}
