package saml

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/wildflowerhealth/wfh-mock-sydney/internal/core"
)

// IssuancePublisher receives a redacted notification of each issuance.
// Attribute values are never part of the notification.
type IssuancePublisher interface {
	PublishIssuance(requestID, audience, acsURL string)
}

// Handler exposes assertion issuance over HTTP.
type Handler struct {
	issuer    *AssertionIssuer
	guard     *DestinationGuard
	publisher IssuancePublisher
}

// NewHandler wires the issuance endpoint. publisher may be nil.
func NewHandler(issuer *AssertionIssuer, guard *DestinationGuard, publisher IssuancePublisher) *Handler {
	return &Handler{issuer: issuer, guard: guard, publisher: publisher}
}

// RegisterRoutes mounts the issuance endpoint.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/auth", h.handleAuth)
}

// authRequest accepts a superset of the field names the form has used
// over time and maps them permissively.
type authRequest struct {
	ID         string `json:"id"`
	Audience   string `json:"audience"`
	ACSURL     string `json:"acsUrl"`
	RelayState string `json:"relayState"`

	Email     string `json:"email"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	DOB       string `json:"dob"`
	ProxyID   string `json:"proxyId"`
	HCID      string `json:"hcid"`

	BrandID string `json:"brandId"`
	BrandCd string `json:"brandCd"`

	EmployerID string `json:"employerId"`
	GroupID    string `json:"groupId"`

	StateCode   string `json:"stateCode"`
	FundingType string `json:"fundingType"`
}

func (h *Handler) handleAuth(w http.ResponseWriter, r *http.Request) {
	var body authRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		core.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if allowed, signInURL := h.guard.Check(r, body.ACSURL); !allowed {
		core.WriteJSON(w, http.StatusUnauthorized, map[string]interface{}{
			"ok":           false,
			"requiresAuth": true,
			"signInUrl":    signInURL,
		})
		return
	}

	req := IssuanceRequest{
		RequestID:  body.ID,
		Audience:   body.Audience,
		ACSURL:     body.ACSURL,
		RelayState: body.RelayState,
		Attributes: UserAttributes{
			HCID:        body.HCID,
			ProxyID:     body.ProxyID,
			FirstName:   body.FirstName,
			LastName:    body.LastName,
			DOB:         body.DOB,
			Email:       body.Email,
			BrandID:     firstNonEmpty(body.BrandID, body.BrandCd),
			EmployerID:  firstNonEmpty(body.EmployerID, body.GroupID),
			StateCode:   body.StateCode,
			FundingType: body.FundingType,
		},
	}

	html, err := h.issuer.Issue(req)
	if err != nil {
		log.Printf("saml issuance failed for request %s: %v", body.ID, err)
		core.WriteError(w, http.StatusInternalServerError, "failed to sign SAML response")
		return
	}

	// Attribute contents stay out of logs and events.
	log.Printf("issued SAML response: request=%s audience=%s acs=%s", body.ID, body.Audience, body.ACSURL)
	if h.publisher != nil {
		h.publisher.PublishIssuance(body.ID, body.Audience, body.ACSURL)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write([]byte(html))
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
