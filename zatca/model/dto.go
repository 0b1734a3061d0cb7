package model

import "github.com/go-faster/errors"

// Explicit structs per authority endpoint. Responses validate their required
// fields after decoding so a half-shaped answer fails at the boundary instead
// of defaulting silently downstream.

type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

func (r *TokenResponse) Validate() error {
	if r.AccessToken == "" {
		return errors.New("token response missing access_token")
	}
	if r.TokenType == "" {
		return errors.New("token response missing token_type")
	}
	if r.ExpiresIn <= 0 {
		return errors.New("token response missing expires_in")
	}
	return nil
}

type ComplianceCSIDRequest struct {
	CSR string `json:"csr"`
}

type CSIDResponse struct {
	RequestID           string `json:"requestID"`
	DispositionMessage  string `json:"dispositionMessage"`
	Secret              string `json:"secret"`
	BinarySecurityToken string `json:"binarySecurityToken"`
}

func (r *CSIDResponse) Validate() error {
	if r.BinarySecurityToken == "" {
		return errors.New("csid response missing binarySecurityToken")
	}
	if r.Secret == "" {
		return errors.New("csid response missing secret")
	}
	return nil
}

type OnboardingCSIDRequest struct {
	CSR              string `json:"csr"`
	OrganizationName string `json:"organizationName"`
	VATNumber        string `json:"vatNumber"`
}

type OnboardingChallengeResponse struct {
	RequestID string `json:"requestID"`
	OTP       string `json:"otp,omitempty"`
}

func (r *OnboardingChallengeResponse) Validate() error {
	if r.RequestID == "" {
		return errors.New("onboarding response missing requestID")
	}
	return nil
}

type ValidateOTPRequest struct {
	RequestID string `json:"requestID"`
	OTP       string `json:"otp"`
}

type ClearanceRequest struct {
	Invoice string `json:"invoice"` // base64 of the signed XML
	UUID    string `json:"uuid"`
}

type ClearanceResponse struct {
	ClearanceStatus string `json:"clearanceStatus"`
	ClearanceUUID   string `json:"clearanceUUID"`
	QRCode          string `json:"qrCode"`
	ReportingStatus string `json:"reportingStatus,omitempty"`
}

func (r *ClearanceResponse) Validate() error {
	if r.ClearanceStatus == "" {
		return errors.New("clearance response missing clearanceStatus")
	}
	return nil
}

type ReportingRequest struct {
	UUID string `json:"uuid"`
}

type ReportingResponse struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

func (r *ReportingResponse) Validate() error {
	if r.Status == "" {
		return errors.New("reporting response missing status")
	}
	return nil
}
