package api

import (
	"context"
	"encoding/base64"

	log "github.com/sirupsen/logrus"

	"github.com/fatoora-dev/go-zatca-client/zatca"
	"github.com/fatoora-dev/go-zatca-client/zatca/model"
)

// AcceptVersion is the authority API version every invoice call pins.
const AcceptVersion = "1.0"

type ClearanceService interface {
	Clear(ctx context.Context, invoiceUUID string, signedXML []byte) (*model.ClearanceResponse, error)
}

type ReportingService interface {
	Report(ctx context.Context, invoiceUUID, clearanceStatus string) (*model.ReportingResponse, error)
}

type clearance struct {
	client *Client
}

func NewClearanceService(client *Client) ClearanceService {
	return &clearance{client: client}
}

// Clear submits a signed invoice for synchronous clearance. The authority
// takes the XML base64-encoded inside a JSON body, never raw.
func (s *clearance) Clear(ctx context.Context, invoiceUUID string, signedXML []byte) (*model.ClearanceResponse, error) {

	log.Debugf("clearing invoice %s", invoiceUUID)

	req := model.ClearanceRequest{
		Invoice: base64.StdEncoding.EncodeToString(signedXML),
		UUID:    invoiceUUID,
	}

	res := &model.ClearanceResponse{}
	headers := map[string]string{"Accept-Version": AcceptVersion}

	if err := s.client.PostJSON(ctx, zatca.EndpointClearance, req, res, headers); err != nil {
		return nil, err
	}
	return res, nil
}

type reporting struct {
	client *Client
}

func NewReportingService(client *Client) ReportingService {
	return &reporting{client: client}
}

// Report notifies the authority of an already-cleared (or
// reporting-only) invoice. Clearance-Status rides in a header, not the
// body.
func (s *reporting) Report(ctx context.Context, invoiceUUID, clearanceStatus string) (*model.ReportingResponse, error) {

	log.Debugf("reporting invoice %s (clearance status %s)", invoiceUUID, clearanceStatus)

	req := model.ReportingRequest{UUID: invoiceUUID}

	res := &model.ReportingResponse{}
	headers := map[string]string{
		"Clearance-Status": clearanceStatus,
		"Accept-Version":   AcceptVersion,
	}

	if err := s.client.PostJSON(ctx, zatca.EndpointReporting, req, res, headers); err != nil {
		return nil, err
	}
	return res, nil
}
