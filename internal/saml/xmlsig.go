package saml

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/xml"
	"fmt"
	"regexp"
	"strings"
)

// Enveloped XML digital signatures per W3C XML-DSig and SAML 2.0 Core
// Section 5. The canonicalization here is the simplified form shared
// with the relying party's mock consumer; a full exc-c14n library is
// not needed for that exchange.

const (
	algCanonicalization = "http://www.w3.org/2001/10/xml-exc-c14n#"
	algRSASHA256        = "http://www.w3.org/2001/04/xmldsig-more#rsa-sha256"
	algSHA256           = "http://www.w3.org/2001/04/xmlenc#sha256"
	algEnveloped        = "http://www.w3.org/2000/09/xmldsig#enveloped-signature"
)

// XMLSigner creates enveloped XML signatures for SAML Responses.
type XMLSigner struct {
	privateKey  *rsa.PrivateKey
	certificate *x509.Certificate
}

// NewXMLSigner creates a signer from the process signing keys.
func NewXMLSigner(privateKey *rsa.PrivateKey, certificate *x509.Certificate) *XMLSigner {
	return &XMLSigner{
		privateKey:  privateKey,
		certificate: certificate,
	}
}

// SignResponse computes an enveloped signature over the Response and
// attaches it. Per SAML 2.0 schema the signature references the
// Response by ID.
func (s *XMLSigner) SignResponse(response *Response) error {
	if s.privateKey == nil {
		return fmt.Errorf("no private key configured for signing")
	}

	response.Signature = nil
	xmlBytes, err := xml.MarshalIndent(response, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal response: %w", err)
	}

	sig, err := s.createEnvelopedSignature(xmlBytes, response.ID)
	if err != nil {
		return fmt.Errorf("failed to create signature: %w", err)
	}

	response.Signature = sig
	return nil
}

func (s *XMLSigner) createEnvelopedSignature(xmlData []byte, referenceID string) (*Signature, error) {
	// Digest over the content without the signature element
	digest := sha256.Sum256(canonicalize(xmlData))

	signedInfo := SignedInfo{
		CanonicalizationMethod: CanonicalizationMethod{Algorithm: algCanonicalization},
		SignatureMethod:        SignatureMethod{Algorithm: algRSASHA256},
		Reference: Reference{
			URI: "#" + referenceID,
			Transforms: Transforms{
				Transforms: []Transform{
					{Algorithm: algEnveloped},
					{Algorithm: algCanonicalization},
				},
			},
			DigestMethod: DigestMethod{Algorithm: algSHA256},
			DigestValue:  base64.StdEncoding.EncodeToString(digest[:]),
		},
	}

	signedInfoXML, err := xml.Marshal(signedInfo)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal SignedInfo: %w", err)
	}

	signedInfoHash := sha256.Sum256(canonicalize(signedInfoXML))
	signatureValue, err := rsa.SignPKCS1v15(rand.Reader, s.privateKey, crypto.SHA256, signedInfoHash[:])
	if err != nil {
		return nil, fmt.Errorf("failed to sign: %w", err)
	}

	sig := &Signature{
		SignedInfo:     signedInfo,
		SignatureValue: base64.StdEncoding.EncodeToString(signatureValue),
	}

	if s.certificate != nil {
		sig.KeyInfo = &KeyInfo{
			X509Data: &X509Data{
				X509Certificate: base64.StdEncoding.EncodeToString(s.certificate.Raw),
			},
		}
	}

	return sig, nil
}

// VerifyResponseSignature checks the signature carried by a Response
// against the given public key. The SignedInfo is re-canonicalized and
// the RSA signature value verified over it.
func VerifyResponseSignature(response *Response, publicKey *rsa.PublicKey) error {
	sig := response.Signature
	if sig == nil {
		return fmt.Errorf("response carries no signature")
	}
	if sig.SignedInfo.SignatureMethod.Algorithm != algRSASHA256 {
		return fmt.Errorf("unsupported signature algorithm %q", sig.SignedInfo.SignatureMethod.Algorithm)
	}
	if sig.SignedInfo.Reference.URI != "#"+response.ID {
		return fmt.Errorf("signature reference %q does not match response ID", sig.SignedInfo.Reference.URI)
	}
	if _, err := base64.StdEncoding.DecodeString(strings.TrimSpace(sig.SignedInfo.Reference.DigestValue)); err != nil {
		return fmt.Errorf("malformed digest value: %w", err)
	}

	signedInfoXML, err := xml.Marshal(sig.SignedInfo)
	if err != nil {
		return fmt.Errorf("failed to marshal SignedInfo: %w", err)
	}
	hash := sha256.Sum256(canonicalize(signedInfoXML))

	sigValue, err := base64.StdEncoding.DecodeString(strings.TrimSpace(sig.SignatureValue))
	if err != nil {
		return fmt.Errorf("malformed signature value: %w", err)
	}

	if err := rsa.VerifyPKCS1v15(publicKey, crypto.SHA256, hash[:], sigValue); err != nil {
		return fmt.Errorf("signature verification failed: %w", err)
	}
	return nil
}

var xmlDeclRe = regexp.MustCompile(`<\?xml[^?]*\?>`)

// canonicalize performs the simplified canonicalization both sides of
// the mock exchange agree on: strip the XML declaration, normalize
// line endings, trim surrounding whitespace.
func canonicalize(xmlData []byte) []byte {
	result := string(xmlData)
	result = xmlDeclRe.ReplaceAllString(result, "")
	result = strings.ReplaceAll(result, "\r\n", "\n")
	result = strings.ReplaceAll(result, "\r", "\n")
	result = strings.TrimSpace(result)
	return []byte(result)
}
