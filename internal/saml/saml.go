package saml

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/xml"
	"time"
)

// SAML 2.0 XML namespaces
const (
	NamespaceSAML  = "urn:oasis:names:tc:SAML:2.0:assertion"
	NamespaceSAMLp = "urn:oasis:names:tc:SAML:2.0:protocol"
	NamespaceDS    = "http://www.w3.org/2000/09/xmldsig#"
)

// NameID formats
const (
	NameIDFormatEmail = "urn:oasis:names:tc:SAML:1.1:nameid-format:emailAddress"
)

// Status codes
const (
	StatusSuccess = "urn:oasis:names:tc:SAML:2.0:status:Success"
)

const (
	subjectConfirmationBearer = "urn:oasis:names:tc:SAML:2.0:cm:bearer"
	attrNameFormatBasic       = "urn:oasis:names:tc:SAML:2.0:attrname-format:basic"

	authnContextPasswordProtectedTransport = "urn:oasis:names:tc:SAML:2.0:ac:classes:PasswordProtectedTransport"
)

// Issuer represents the SAML Issuer element
type Issuer struct {
	XMLName xml.Name `xml:"urn:oasis:names:tc:SAML:2.0:assertion Issuer"`
	Value   string   `xml:",chardata"`
}

// NameID represents the SAML NameID element
type NameID struct {
	XMLName xml.Name `xml:"urn:oasis:names:tc:SAML:2.0:assertion NameID"`
	Format  string   `xml:"Format,attr,omitempty"`
	Value   string   `xml:",chardata"`
}

// Subject represents the SAML Subject element
type Subject struct {
	XMLName             xml.Name             `xml:"urn:oasis:names:tc:SAML:2.0:assertion Subject"`
	NameID              *NameID              `xml:"NameID,omitempty"`
	SubjectConfirmation *SubjectConfirmation `xml:"SubjectConfirmation,omitempty"`
}

// SubjectConfirmation represents the SAML SubjectConfirmation element
type SubjectConfirmation struct {
	XMLName                 xml.Name                 `xml:"urn:oasis:names:tc:SAML:2.0:assertion SubjectConfirmation"`
	Method                  string                   `xml:"Method,attr"`
	SubjectConfirmationData *SubjectConfirmationData `xml:"SubjectConfirmationData,omitempty"`
}

// SubjectConfirmationData represents the SAML SubjectConfirmationData element
type SubjectConfirmationData struct {
	XMLName      xml.Name `xml:"urn:oasis:names:tc:SAML:2.0:assertion SubjectConfirmationData"`
	NotOnOrAfter string   `xml:"NotOnOrAfter,attr,omitempty"`
	Recipient    string   `xml:"Recipient,attr,omitempty"`
	InResponseTo string   `xml:"InResponseTo,attr,omitempty"`
}

// Conditions represents the SAML Conditions element
type Conditions struct {
	XMLName             xml.Name             `xml:"urn:oasis:names:tc:SAML:2.0:assertion Conditions"`
	NotBefore           string               `xml:"NotBefore,attr,omitempty"`
	NotOnOrAfter        string               `xml:"NotOnOrAfter,attr,omitempty"`
	AudienceRestriction *AudienceRestriction `xml:"AudienceRestriction,omitempty"`
}

// AudienceRestriction represents the SAML AudienceRestriction element
type AudienceRestriction struct {
	XMLName  xml.Name `xml:"urn:oasis:names:tc:SAML:2.0:assertion AudienceRestriction"`
	Audience []string `xml:"Audience"`
}

// AuthnStatement represents the SAML AuthnStatement element
type AuthnStatement struct {
	XMLName             xml.Name      `xml:"urn:oasis:names:tc:SAML:2.0:assertion AuthnStatement"`
	AuthnInstant        string        `xml:"AuthnInstant,attr"`
	SessionIndex        string        `xml:"SessionIndex,attr,omitempty"`
	SessionNotOnOrAfter string        `xml:"SessionNotOnOrAfter,attr,omitempty"`
	AuthnContext        *AuthnContext `xml:"AuthnContext"`
}

// AuthnContext represents the SAML AuthnContext element
type AuthnContext struct {
	XMLName              xml.Name `xml:"urn:oasis:names:tc:SAML:2.0:assertion AuthnContext"`
	AuthnContextClassRef string   `xml:"AuthnContextClassRef"`
}

// AttributeStatement represents the SAML AttributeStatement element
type AttributeStatement struct {
	XMLName    xml.Name    `xml:"urn:oasis:names:tc:SAML:2.0:assertion AttributeStatement"`
	Attributes []Attribute `xml:"Attribute"`
}

// Attribute represents the SAML Attribute element
type Attribute struct {
	XMLName         xml.Name         `xml:"urn:oasis:names:tc:SAML:2.0:assertion Attribute"`
	Name            string           `xml:"Name,attr"`
	NameFormat      string           `xml:"NameFormat,attr,omitempty"`
	AttributeValues []AttributeValue `xml:"AttributeValue"`
}

// AttributeValue represents the SAML AttributeValue element
type AttributeValue struct {
	XMLName xml.Name `xml:"urn:oasis:names:tc:SAML:2.0:assertion AttributeValue"`
	Value   string   `xml:",chardata"`
}

// Signature represents the XML digital signature element
type Signature struct {
	XMLName        xml.Name   `xml:"http://www.w3.org/2000/09/xmldsig# Signature"`
	SignedInfo     SignedInfo `xml:"SignedInfo"`
	SignatureValue string     `xml:"SignatureValue"`
	KeyInfo        *KeyInfo   `xml:"KeyInfo,omitempty"`
}

// SignedInfo represents the SignedInfo element
type SignedInfo struct {
	XMLName                xml.Name               `xml:"http://www.w3.org/2000/09/xmldsig# SignedInfo"`
	CanonicalizationMethod CanonicalizationMethod `xml:"CanonicalizationMethod"`
	SignatureMethod        SignatureMethod        `xml:"SignatureMethod"`
	Reference              Reference              `xml:"Reference"`
}

// CanonicalizationMethod represents the CanonicalizationMethod element
type CanonicalizationMethod struct {
	XMLName   xml.Name `xml:"http://www.w3.org/2000/09/xmldsig# CanonicalizationMethod"`
	Algorithm string   `xml:"Algorithm,attr"`
}

// SignatureMethod represents the SignatureMethod element
type SignatureMethod struct {
	XMLName   xml.Name `xml:"http://www.w3.org/2000/09/xmldsig# SignatureMethod"`
	Algorithm string   `xml:"Algorithm,attr"`
}

// Reference represents the Reference element
type Reference struct {
	XMLName      xml.Name     `xml:"http://www.w3.org/2000/09/xmldsig# Reference"`
	URI          string       `xml:"URI,attr"`
	Transforms   Transforms   `xml:"Transforms"`
	DigestMethod DigestMethod `xml:"DigestMethod"`
	DigestValue  string       `xml:"DigestValue"`
}

// Transforms represents the Transforms element
type Transforms struct {
	XMLName    xml.Name    `xml:"http://www.w3.org/2000/09/xmldsig# Transforms"`
	Transforms []Transform `xml:"Transform"`
}

// Transform represents a single Transform element
type Transform struct {
	XMLName   xml.Name `xml:"http://www.w3.org/2000/09/xmldsig# Transform"`
	Algorithm string   `xml:"Algorithm,attr"`
}

// DigestMethod represents the DigestMethod element
type DigestMethod struct {
	XMLName   xml.Name `xml:"http://www.w3.org/2000/09/xmldsig# DigestMethod"`
	Algorithm string   `xml:"Algorithm,attr"`
}

// KeyInfo represents the KeyInfo element
type KeyInfo struct {
	XMLName  xml.Name  `xml:"http://www.w3.org/2000/09/xmldsig# KeyInfo"`
	X509Data *X509Data `xml:"X509Data,omitempty"`
}

// X509Data represents the X509Data element
type X509Data struct {
	XMLName         xml.Name `xml:"http://www.w3.org/2000/09/xmldsig# X509Data"`
	X509Certificate string   `xml:"X509Certificate"`
}

// Response represents a SAML Response message
type Response struct {
	XMLName      xml.Name     `xml:"urn:oasis:names:tc:SAML:2.0:protocol Response"`
	SAMLP        string       `xml:"xmlns:samlp,attr"`
	SAML         string       `xml:"xmlns:saml,attr"`
	ID           string       `xml:"ID,attr"`
	Version      string       `xml:"Version,attr"`
	IssueInstant string       `xml:"IssueInstant,attr"`
	Destination  string       `xml:"Destination,attr,omitempty"`
	InResponseTo string       `xml:"InResponseTo,attr,omitempty"`
	Issuer       *Issuer      `xml:"Issuer,omitempty"`
	Signature    *Signature   `xml:"Signature,omitempty"`
	Status       *Status      `xml:"Status"`
	Assertions   []*Assertion `xml:"Assertion,omitempty"`
}

// Status represents the SAML Status element
type Status struct {
	XMLName    xml.Name   `xml:"urn:oasis:names:tc:SAML:2.0:protocol Status"`
	StatusCode StatusCode `xml:"StatusCode"`
}

// StatusCode represents the SAML StatusCode element
type StatusCode struct {
	XMLName xml.Name `xml:"urn:oasis:names:tc:SAML:2.0:protocol StatusCode"`
	Value   string   `xml:"Value,attr"`
}

// Assertion represents a SAML Assertion
type Assertion struct {
	XMLName            xml.Name            `xml:"urn:oasis:names:tc:SAML:2.0:assertion Assertion"`
	SAML               string              `xml:"xmlns:saml,attr,omitempty"`
	ID                 string              `xml:"ID,attr"`
	Version            string              `xml:"Version,attr"`
	IssueInstant       string              `xml:"IssueInstant,attr"`
	Issuer             *Issuer             `xml:"Issuer"`
	Signature          *Signature          `xml:"Signature,omitempty"`
	Subject            *Subject            `xml:"Subject,omitempty"`
	Conditions         *Conditions         `xml:"Conditions,omitempty"`
	AuthnStatement     *AuthnStatement     `xml:"AuthnStatement,omitempty"`
	AttributeStatement *AttributeStatement `xml:"AttributeStatement,omitempty"`
}

// GenerateID generates a unique SAML ID
func GenerateID() string {
	id := make([]byte, 16)
	rand.Read(id)
	return "_" + hex.EncodeToString(id)
}

// SAMLTimeFormat is the required time format for SAML 2.0 (xs:dateTime
// in UTC with 'Z' suffix per SAML 2.0 Core Section 1.3.3)
const SAMLTimeFormat = "2006-01-02T15:04:05Z"

// TimeNow returns the current time in SAML format
func TimeNow() string {
	return time.Now().UTC().Format(SAMLTimeFormat)
}

// TimeIn returns a time offset from now in SAML format
func TimeIn(d time.Duration) string {
	return time.Now().UTC().Add(d).Format(SAMLTimeFormat)
}

// NewSuccessResponse creates a successful SAML Response addressed to
// the relying party's ACS, echoing the request id it answers.
func NewSuccessResponse(issuer, destination, inResponseTo string) *Response {
	return &Response{
		SAMLP:        NamespaceSAMLp,
		SAML:         NamespaceSAML,
		ID:           GenerateID(),
		Version:      "2.0",
		IssueInstant: TimeNow(),
		Destination:  destination,
		InResponseTo: inResponseTo,
		Issuer:       &Issuer{Value: issuer},
		Status: &Status{
			StatusCode: StatusCode{Value: StatusSuccess},
		},
	}
}

// NewBearerAssertion creates an Assertion with a bearer subject, an
// audience restriction, and the given ordered attributes. The subject
// NameID is the asserted email address.
func NewBearerAssertion(issuer, audience, recipient, inResponseTo, email, sessionIndex string, attributes []Attribute) *Assertion {
	now := TimeNow()
	notOnOrAfter := TimeIn(5 * time.Minute)

	assertion := &Assertion{
		SAML:         NamespaceSAML,
		ID:           GenerateID(),
		Version:      "2.0",
		IssueInstant: now,
		Issuer:       &Issuer{Value: issuer},
		Subject: &Subject{
			NameID: &NameID{
				Format: NameIDFormatEmail,
				Value:  email,
			},
			SubjectConfirmation: &SubjectConfirmation{
				Method: subjectConfirmationBearer,
				SubjectConfirmationData: &SubjectConfirmationData{
					NotOnOrAfter: notOnOrAfter,
					Recipient:    recipient,
					InResponseTo: inResponseTo,
				},
			},
		},
		Conditions: &Conditions{
			NotBefore:    now,
			NotOnOrAfter: notOnOrAfter,
			AudienceRestriction: &AudienceRestriction{
				Audience: []string{audience},
			},
		},
		AuthnStatement: &AuthnStatement{
			AuthnInstant:        now,
			SessionIndex:        sessionIndex,
			SessionNotOnOrAfter: TimeIn(8 * time.Hour),
			AuthnContext: &AuthnContext{
				AuthnContextClassRef: authnContextPasswordProtectedTransport,
			},
		},
	}

	if len(attributes) > 0 {
		assertion.AttributeStatement = &AttributeStatement{Attributes: attributes}
	}

	return assertion
}
