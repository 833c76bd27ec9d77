package crypto

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"errors"
	"fmt"
	"math/big"
	"time"
)

// SigningKeys holds the process-wide SAML signing key pair. It is
// created once at startup and never mutated.
type SigningKeys struct {
	privateKey  *rsa.PrivateKey
	certificate *x509.Certificate
}

// LoadSigningKeys parses a PEM-encoded RSA private key and X.509
// certificate. Malformed key material is a startup failure, not
// something to limp along with.
func LoadSigningKeys(privateKeyPEM, certificatePEM string) (*SigningKeys, error) {
	keyBlock, _ := pem.Decode([]byte(privateKeyPEM))
	if keyBlock == nil {
		return nil, errors.New("no PEM block found in private key")
	}

	key, err := parsePrivateKey(keyBlock.Bytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key: %w", err)
	}

	certBlock, _ := pem.Decode([]byte(certificatePEM))
	if certBlock == nil {
		return nil, errors.New("no PEM block found in certificate")
	}
	cert, err := x509.ParseCertificate(certBlock.Bytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse certificate: %w", err)
	}

	certKey, ok := cert.PublicKey.(*rsa.PublicKey)
	if !ok {
		return nil, errors.New("certificate does not carry an RSA public key")
	}
	if certKey.N.Cmp(key.PublicKey.N) != 0 || certKey.E != key.PublicKey.E {
		return nil, errors.New("certificate public key does not match private key")
	}

	return &SigningKeys{privateKey: key, certificate: cert}, nil
}

func parsePrivateKey(der []byte) (*rsa.PrivateKey, error) {
	if key, err := x509.ParsePKCS1PrivateKey(der); err == nil {
		return key, nil
	}
	parsed, err := x509.ParsePKCS8PrivateKey(der)
	if err != nil {
		return nil, err
	}
	key, ok := parsed.(*rsa.PrivateKey)
	if !ok {
		return nil, errors.New("private key is not RSA")
	}
	return key, nil
}

// GenerateSigningKeys creates a fresh RSA key with a self-signed
// certificate for the given entity ID. Used in development where no
// key material is configured; the relying party's lower environments
// do not pin the IdP certificate.
func GenerateSigningKeys(entityID string) (*SigningKeys, error) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return nil, fmt.Errorf("failed to generate RSA key: %w", err)
	}

	serial, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 128))
	if err != nil {
		return nil, fmt.Errorf("failed to generate serial number: %w", err)
	}

	template := &x509.Certificate{
		SerialNumber: serial,
		Subject: pkix.Name{
			CommonName:   entityID,
			Organization: []string{"Wildflower Health"},
		},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(365 * 24 * time.Hour),
		KeyUsage:              x509.KeyUsageDigitalSignature,
		BasicConstraintsValid: true,
	}

	der, err := x509.CreateCertificate(rand.Reader, template, template, &key.PublicKey, key)
	if err != nil {
		return nil, fmt.Errorf("failed to create certificate: %w", err)
	}
	cert, err := x509.ParseCertificate(der)
	if err != nil {
		return nil, fmt.Errorf("failed to parse generated certificate: %w", err)
	}

	return &SigningKeys{privateKey: key, certificate: cert}, nil
}

// PrivateKey returns the RSA private key
func (k *SigningKeys) PrivateKey() *rsa.PrivateKey {
	return k.privateKey
}

// PublicKey returns the RSA public key
func (k *SigningKeys) PublicKey() *rsa.PublicKey {
	return &k.privateKey.PublicKey
}

// Certificate returns the signing certificate
func (k *SigningKeys) Certificate() *x509.Certificate {
	return k.certificate
}

// CertificatePEM returns the certificate in PEM form
func (k *SigningKeys) CertificatePEM() string {
	return string(pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: k.certificate.Raw}))
}
