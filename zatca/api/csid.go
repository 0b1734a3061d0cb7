package api

import (
	"context"

	log "github.com/sirupsen/logrus"

	"github.com/fatoora-dev/go-zatca-client/zatca"
	"github.com/fatoora-dev/go-zatca-client/zatca/model"
)

// CSIDService covers cryptographic stamp identifier issuance: the
// sandbox-only compliance flow and the OTP-gated production onboarding.
type CSIDService interface {
	IssueCompliance(ctx context.Context, csr string) (*model.CSIDResponse, error)
	StartOnboarding(ctx context.Context, csr, organizationName, vatNumber string) (*model.OnboardingChallengeResponse, error)
	ValidateOTP(ctx context.Context, requestID, otp string) (*model.CSIDResponse, error)
}

type csid struct {
	client *Client
	env    zatca.Environment
}

func NewCSIDService(client *Client, env zatca.Environment) CSIDService {
	return &csid{client: client, env: env}
}

// IssueCompliance exchanges a CSR for a compliance certificate. Sandbox
// only; production certificates go through onboarding + OTP.
func (s *csid) IssueCompliance(ctx context.Context, csr string) (*model.CSIDResponse, error) {
	if s.env != zatca.Sandbox {
		return nil, &zatca.ApiError{Status: 403, Message: "compliance CSID issuance is sandbox-only"}
	}

	log.Debug("requesting compliance CSID")

	res := &model.CSIDResponse{}
	err := s.client.PostJSONNoAuth(ctx, zatca.EndpointComplianceCSID,
		model.ComplianceCSIDRequest{CSR: csr}, res, nil)
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (s *csid) StartOnboarding(ctx context.Context, csr, organizationName, vatNumber string) (*model.OnboardingChallengeResponse, error) {

	log.Debugf("starting CSID onboarding for %s", vatNumber)

	req := model.OnboardingCSIDRequest{
		CSR:              csr,
		OrganizationName: organizationName,
		VATNumber:        vatNumber,
	}

	res := &model.OnboardingChallengeResponse{}
	if err := s.client.PostJSONNoAuth(ctx, zatca.EndpointOnboardingCSID, req, res, nil); err != nil {
		return nil, err
	}
	return res, nil
}

func (s *csid) ValidateOTP(ctx context.Context, requestID, otp string) (*model.CSIDResponse, error) {

	log.Debugf("validating onboarding OTP for request %s", requestID)

	req := model.ValidateOTPRequest{RequestID: requestID, OTP: otp}

	res := &model.CSIDResponse{}
	if err := s.client.PostJSONNoAuth(ctx, zatca.EndpointValidateOTP, req, res, nil); err != nil {
		return nil, err
	}
	return res, nil
}
