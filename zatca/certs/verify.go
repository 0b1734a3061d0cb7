package certs

import (
	"crypto/rsa"

	"github.com/fatoora-dev/go-zatca-client/zatca"
)

// VerifyKeyPair checks that the certificate's public key and the private key
// are the same RSA key (modulus and exponent equal). This runs once, when a
// signing asset is uploaded; a mismatch caught later would surface only as an
// undetectable signature rejection at the authority.
func VerifyKeyPair(certPEM, keyPEM []byte, password []byte) error {
	cert, err := LoadCertificate(certPEM)
	if err != nil {
		return &zatca.CertKeyMismatchError{Reason: "unreadable certificate: " + err.Error()}
	}

	certPub, ok := cert.PublicKey.(*rsa.PublicKey)
	if !ok {
		return &zatca.CertKeyMismatchError{Reason: "certificate does not hold an RSA public key"}
	}

	signer, err := LoadSignerFromPEM(keyPEM, password)
	if err != nil {
		return &zatca.CertKeyMismatchError{Reason: "unreadable private key: " + err.Error()}
	}

	keyPub, ok := signer.Public().(*rsa.PublicKey)
	if !ok {
		return &zatca.CertKeyMismatchError{Reason: "private key is not RSA"}
	}

	if certPub.N.Cmp(keyPub.N) != 0 {
		return &zatca.CertKeyMismatchError{Reason: "RSA modulus differs"}
	}
	if certPub.E != keyPub.E {
		return &zatca.CertKeyMismatchError{Reason: "RSA public exponent differs"}
	}
	return nil
}
