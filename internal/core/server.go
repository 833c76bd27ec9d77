package core

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// Component is anything that mounts its own routes on the server.
type Component interface {
	RegisterRoutes(r chi.Router)
}

// Server is the HTTP server for the mock identity provider
type Server struct {
	config       *Config
	environments map[Environment]SAMLEnvironment
	router       chi.Router
}

// NewServer creates a new server instance and mounts the given components
func NewServer(cfg *Config, components ...Component) *Server {
	s := &Server{
		config:       cfg,
		environments: EnvironmentTable(cfg.EligibilityAPIKey),
	}
	s.setupRouter(components)
	return s
}

// Router returns the configured router
func (s *Server) Router() chi.Router {
	return s.router
}

func (s *Server) setupRouter(components []Component) {
	r := chi.NewRouter()

	// Global middleware
	r.Use(Recovery)
	r.Use(RequestLogger)
	r.Use(SecurityHeaders)
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Timeout(60 * time.Second))

	// CORS configuration
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.config.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	rateLimiter := NewRateLimiter(100, time.Minute)
	r.Use(rateLimiter.Limit)

	r.Get("/health", s.handleHealth)
	r.Get("/api/environments", s.handleEnvironments)

	for _, c := range components {
		c.RegisterRoutes(r)
	}

	s.router = r
}

type HealthResponse struct {
	Status      string `json:"status"`
	Environment string `json:"environment"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, HealthResponse{
		Status:      "healthy",
		Environment: s.config.Environment,
	})
}

// EnvironmentSummary is the client-visible view of one environment
// table entry. API keys are never exposed.
type EnvironmentSummary struct {
	Name                     Environment `json:"name"`
	ACS                      string      `json:"acs"`
	Audience                 string      `json:"audience"`
	MockEligibilitySupported bool        `json:"mockEligibilitySupported"`
}

func (s *Server) handleEnvironments(w http.ResponseWriter, r *http.Request) {
	out := make([]EnvironmentSummary, 0, len(Environments))
	for _, name := range Environments {
		entry := s.environments[name]
		out = append(out, EnvironmentSummary{
			Name:                     name,
			ACS:                      entry.ACS,
			Audience:                 entry.Audience,
			MockEligibilitySupported: entry.MockEligibility != "" && entry.APIKey != "",
		})
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{"environments": out})
}

// WriteJSON writes a JSON response with the given status code
func WriteJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// WriteError writes a JSON error response
func WriteError(w http.ResponseWriter, status int, message string) {
	WriteJSON(w, status, map[string]string{"error": message})
}
