package certs

import (
	"crypto"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"fmt"
)

// CSRSubject identifies the taxpayer in a CSID certificate request.
type CSRSubject struct {
	CommonName       string
	OrganizationName string
	VATNumber        string
	Country          string
}

// BuildCSR produces a PEM certificate request for the compliance and
// onboarding CSID flows.
func BuildCSR(subject CSRSubject, key crypto.Signer) (string, error) {
	tpl := &x509.CertificateRequest{
		Subject: pkix.Name{
			CommonName:         subject.CommonName,
			Organization:       []string{subject.OrganizationName},
			OrganizationalUnit: []string{subject.VATNumber},
			Country:            []string{subject.Country},
		},
		SignatureAlgorithm: x509.SHA256WithRSA,
	}

	der, err := x509.CreateCertificateRequest(rand.Reader, tpl, key)
	if err != nil {
		return "", fmt.Errorf("create certificate request: %w", err)
	}

	return string(pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE REQUEST", Bytes: der})), nil
}
