package saml

import (
	"encoding/base64"
	"encoding/xml"
	"fmt"

	"github.com/google/uuid"

	"github.com/wildflowerhealth/wfh-mock-sydney/internal/crypto"
)

// IssuanceRequest carries everything one issuance needs. Transient:
// built per call, never persisted.
type IssuanceRequest struct {
	// RequestID is the relying party's request id, echoed into
	// InResponseTo without correlation (there is no SP-initiated
	// flow to correlate against).
	RequestID  string
	Audience   string
	ACSURL     string
	RelayState string
	Attributes UserAttributes
}

// AssertionIssuer produces signed, base64-encoded SAML Responses
// wrapped in auto-submitting POST forms.
type AssertionIssuer struct {
	entityID string
	signer   *XMLSigner
}

// NewAssertionIssuer creates an issuer signing with the process keys.
func NewAssertionIssuer(entityID string, keys *crypto.SigningKeys) *AssertionIssuer {
	return &AssertionIssuer{
		entityID: entityID,
		signer:   NewXMLSigner(keys.PrivateKey(), keys.Certificate()),
	}
}

// EntityID returns the issuer entity id bound into assertions.
func (i *AssertionIssuer) EntityID() string {
	return i.entityID
}

// Issue builds and signs the SAML Response for the request and returns
// the auto-submitting HTML document. A signing failure aborts the
// whole issuance; no partial HTML is ever returned.
func (i *AssertionIssuer) Issue(req IssuanceRequest) (string, error) {
	response := NewSuccessResponse(i.entityID, req.ACSURL, req.RequestID)
	response.Assertions = []*Assertion{
		NewBearerAssertion(
			i.entityID,
			req.Audience,
			req.ACSURL,
			req.RequestID,
			req.Attributes.Email,
			uuid.NewString(),
			req.Attributes.SAMLAttributes(),
		),
	}

	if err := i.signer.SignResponse(response); err != nil {
		return "", err
	}

	signed, err := xml.MarshalIndent(response, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal signed response: %w", err)
	}

	encoded := base64.StdEncoding.EncodeToString([]byte(xml.Header + string(signed)))
	return GeneratePostForm(req.ACSURL, encoded, req.RelayState)
}
