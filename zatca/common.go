package zatca

import (
	"errors"
	"fmt"
)

var (
	// ErrUnauthorized marks any 401 from the authority.
	ErrUnauthorized = errors.New("zatca unauthorized")
	ErrForbidden    = errors.New("zatca forbidden")

	// ErrInvalidCredentials means the token endpoint rejected the
	// client id/secret pair. Retrying will not help.
	ErrInvalidCredentials = errors.New("invalid client credentials")

	// ErrAuthTimeout means the token endpoint did not answer in time.
	ErrAuthTimeout = errors.New("token request timed out")

	// ErrSigningNotConfigured is fatal on the clearance path: key or
	// certificate material is missing or unreadable and no placeholder
	// signature may stand in for it.
	ErrSigningNotConfigured = errors.New("signing not configured")
)

// ApiError carries the authority's HTTP-level rejection context.
type ApiError struct {
	Status  int
	Code    string
	Message string
	Body    []byte
}

func (e *ApiError) Error() string {
	return fmt.Sprintf("zatca returned http status %d: %s %s", e.Status, e.Code, e.Message)
}

// Retryable reports whether the failure is worth another attempt:
// 5xx yes, 4xx no.
func (e *ApiError) Retryable() bool {
	return e.Status >= 500
}

// CertKeyMismatchError is raised when a certificate's public key does not
// belong to the supplied private key.
type CertKeyMismatchError struct {
	Reason string
}

func (e *CertKeyMismatchError) Error() string {
	return "certificate/key mismatch: " + e.Reason
}
