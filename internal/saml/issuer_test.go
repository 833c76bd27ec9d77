package saml

import (
	"encoding/base64"
	"encoding/xml"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wildflowerhealth/wfh-mock-sydney/internal/crypto"
)

var samlResponseValueRe = regexp.MustCompile(`name="SAMLResponse" value="([^"]+)"`)

func newTestIssuer(t *testing.T) (*AssertionIssuer, *crypto.SigningKeys) {
	t.Helper()
	keys, err := crypto.GenerateSigningKeys("https://saml.wildflowerhealth.com")
	require.NoError(t, err)
	return NewAssertionIssuer("https://saml.wildflowerhealth.com", keys), keys
}

// decodeResponseHTML pulls the base64 SAMLResponse out of the POST
// binding form and parses it.
func decodeResponseHTML(t *testing.T, html string) *Response {
	t.Helper()

	match := samlResponseValueRe.FindStringSubmatch(html)
	require.NotNil(t, match, "no SAMLResponse input in form")

	raw, err := base64.StdEncoding.DecodeString(match[1])
	require.NoError(t, err)

	var response Response
	require.NoError(t, xml.Unmarshal(raw, &response))
	return &response
}

func testAttributes() UserAttributes {
	return UserAttributes{
		HCID:        "HC123456",
		ProxyID:     "PRX789",
		FirstName:   "Jane",
		LastName:    "Doe",
		DOB:         "01/02/1990",
		Email:       "jane@example.com",
		BrandID:     "ABCBS",
		EmployerID:  "GRP001",
		StateCode:   "CA",
		FundingType: "FI",
	}
}

func TestIssueProducesSignedResponse(t *testing.T) {
	issuer, keys := newTestIssuer(t)

	html, err := issuer.Issue(IssuanceRequest{
		RequestID:  "req-001",
		Audience:   "com.wildflowerhealth.saml.dev",
		ACSURL:     "https://anthem.dev.wildflowerhealth.digital/api/sso/saml/wfhMock",
		RelayState: "state-1",
		Attributes: testAttributes(),
	})
	require.NoError(t, err)

	response := decodeResponseHTML(t, html)
	assert.Equal(t, "2.0", response.Version)
	assert.Equal(t, "req-001", response.InResponseTo)
	assert.Equal(t, "https://anthem.dev.wildflowerhealth.digital/api/sso/saml/wfhMock", response.Destination)
	require.NotNil(t, response.Issuer)
	assert.Equal(t, "https://saml.wildflowerhealth.com", response.Issuer.Value)
	require.NotNil(t, response.Status)
	assert.Equal(t, StatusSuccess, response.Status.StatusCode.Value)

	require.Len(t, response.Assertions, 1)
	assertion := response.Assertions[0]
	require.NotNil(t, assertion.Subject)
	require.NotNil(t, assertion.Subject.NameID)
	assert.Equal(t, "jane@example.com", assertion.Subject.NameID.Value)
	assert.Equal(t, NameIDFormatEmail, assertion.Subject.NameID.Format)

	require.NotNil(t, assertion.Conditions)
	require.NotNil(t, assertion.Conditions.AudienceRestriction)
	assert.Equal(t, []string{"com.wildflowerhealth.saml.dev"}, assertion.Conditions.AudienceRestriction.Audience)

	require.NotNil(t, assertion.AuthnStatement)
	assert.NotEmpty(t, assertion.AuthnStatement.SessionIndex)

	require.NoError(t, VerifyResponseSignature(response, keys.PublicKey()))
}

func TestIssueMapsClaimNames(t *testing.T) {
	issuer, _ := newTestIssuer(t)

	html, err := issuer.Issue(IssuanceRequest{
		RequestID:  "req-002",
		Audience:   "com.wildflowerhealth.saml.dev",
		ACSURL:     "http://127.0.0.1:3005/api/sso/saml/wfhMock",
		Attributes: testAttributes(),
	})
	require.NoError(t, err)

	response := decodeResponseHTML(t, html)
	require.Len(t, response.Assertions, 1)
	require.NotNil(t, response.Assertions[0].AttributeStatement)

	values := map[string]string{}
	var names []string
	for _, attr := range response.Assertions[0].AttributeStatement.Attributes {
		names = append(names, attr.Name)
		require.Len(t, attr.AttributeValues, 1)
		values[attr.Name] = attr.AttributeValues[0].Value
	}

	assert.Equal(t, []string{
		"email",
		"UserId",
		"ProxyID",
		"userName",
		"userSurname",
		"userDateOfBirth",
		"UserEmail",
		"BrandId",
		"EmployerID",
		"UnderWritingStateCd",
		"FundgTypeCd",
	}, names)

	assert.Equal(t, "jane@example.com", values["email"])
	assert.Equal(t, "HC123456", values["UserId"])
	assert.Equal(t, "PRX789", values["ProxyID"])
	assert.Equal(t, "CA", values["UnderWritingStateCd"])
	assert.Equal(t, "FI", values["FundgTypeCd"])
	assert.Equal(t, "01/02/1990", values["userDateOfBirth"])
}

func TestIssueRejectsUnsafeDestination(t *testing.T) {
	issuer, _ := newTestIssuer(t)

	_, err := issuer.Issue(IssuanceRequest{
		RequestID:  "req-003",
		Audience:   "com.wildflowerhealth.saml.dev",
		ACSURL:     "javascript:alert(1)",
		Attributes: testAttributes(),
	})
	assert.Error(t, err)
}

func TestVerifyRejectsTamperedSignature(t *testing.T) {
	issuer, keys := newTestIssuer(t)

	html, err := issuer.Issue(IssuanceRequest{
		RequestID:  "req-004",
		Audience:   "com.wildflowerhealth.saml.dev",
		ACSURL:     "http://127.0.0.1:3005/api/sso/saml/wfhMock",
		Attributes: testAttributes(),
	})
	require.NoError(t, err)

	response := decodeResponseHTML(t, html)
	require.NotNil(t, response.Signature)

	response.Signature.SignatureValue = base64.StdEncoding.EncodeToString([]byte("forged"))
	assert.Error(t, VerifyResponseSignature(response, keys.PublicKey()))
}

func TestVerifyRejectsMismatchedReference(t *testing.T) {
	issuer, keys := newTestIssuer(t)

	html, err := issuer.Issue(IssuanceRequest{
		RequestID:  "req-005",
		Audience:   "com.wildflowerhealth.saml.dev",
		ACSURL:     "http://127.0.0.1:3005/api/sso/saml/wfhMock",
		Attributes: testAttributes(),
	})
	require.NoError(t, err)

	response := decodeResponseHTML(t, html)
	response.ID = "_someoneelse"
	assert.Error(t, VerifyResponseSignature(response, keys.PublicKey()))
}
