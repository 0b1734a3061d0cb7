// Package pipeline sequences one invoice through canonicalization, signing,
// the safety guard, the policy firewall and submission. Steps within one
// invoice are strictly sequential; many invoices may run concurrently.
package pipeline

import (
	"context"
	"strings"

	"github.com/go-faster/errors"
	"github.com/sirupsen/logrus"

	"github.com/fatoora-dev/go-zatca-client/zatca"
	"github.com/fatoora-dev/go-zatca-client/zatca/api"
	"github.com/fatoora-dev/go-zatca-client/zatca/certs"
	"github.com/fatoora-dev/go-zatca-client/zatca/guard"
	"github.com/fatoora-dev/go-zatca-client/zatca/model"
	"github.com/fatoora-dev/go-zatca-client/zatca/policy"
	"github.com/fatoora-dev/go-zatca-client/zatca/ubl"
)

var logger = logrus.WithField("component", "zatca.pipeline")

// State names the pipeline's progress for logging and diagnostics.
type State string

const (
	StateReceived       State = "received"
	StateCanonicalized  State = "canonicalized"
	StateSigned         State = "signed"
	StateGuardPassed    State = "guard-passed"
	StatePolicyApproved State = "policy-approved"
	StateSubmitted      State = "submitted"
	StateCleared        State = "cleared"
	StateRejected       State = "rejected"
	StateFailed         State = "failed"
	StateReported       State = "reported"
)

type Orchestrator struct {
	env       zatca.Environment
	store     certs.Store
	pool      *SignPool
	clearance api.ClearanceService
	reporting api.ReportingService
}

func NewOrchestrator(env zatca.Environment, store certs.Store, pool *SignPool,
	clearance api.ClearanceService, reporting api.ReportingService) *Orchestrator {
	return &Orchestrator{
		env:       env,
		store:     store,
		pool:      pool,
		clearance: clearance,
		reporting: reporting,
	}
}

var invoiceTypes = map[model.InvoiceTypeName]zatca.InvoiceType{
	model.TypeStandard:   zatca.Standard,
	model.TypeSimplified: zatca.Simplified,
	model.TypeDebitNote:  zatca.DebitNote,
}

// Submit runs the full pipeline for one validated invoice. Failures before
// submission are local: no network call has been made and the result is
// FAILED with the specific validation error. Failures at submission are
// classified by the client's retry policy.
func (o *Orchestrator) Submit(ctx context.Context, inv *model.Invoice) *model.SubmissionResult {
	log := logger.WithFields(logrus.Fields{"invoice": inv.UUID, "tenant": inv.TenantID})
	state := StateReceived

	typ, ok := invoiceTypes[inv.Type]
	if !ok {
		return failed(errors.Errorf("unknown invoice type %q", inv.Type))
	}

	xml, err := ubl.Build(inv)
	if err != nil {
		return failed(errors.Wrap(err, "render invoice"))
	}
	state = transition(log, state, StateCanonicalized)

	// signing assets are read fresh so a rotated certificate is picked up
	// on the very next invoice
	asset, err := o.store.Load(inv.TenantID, o.env)
	if err != nil {
		return failed(err)
	}

	signed, err := o.pool.Sign(ctx, xml, asset)
	if err != nil {
		return failed(err)
	}
	state = transition(log, state, StateSigned)

	if err := guard.Check(signed.SignedXML, signed.SignatureValue, inv); err != nil {
		return failed(err)
	}
	state = transition(log, state, StateGuardPassed)

	if err := policy.ValidateClearanceAllowed(o.env, typ); err != nil {
		return failed(err)
	}
	state = transition(log, state, StatePolicyApproved)

	res, err := o.clearance.Clear(ctx, inv.UUID, signed.SignedXML)
	state = transition(log, state, StateSubmitted)
	if err != nil {
		return o.classifySubmissionFailure(err, signed.InvoiceHash)
	}

	result := &model.SubmissionResult{
		AuthorityUUID: res.ClearanceUUID,
		QRCode:        res.QRCode,
		InvoiceHash:   signed.InvoiceHash,
	}

	if !strings.EqualFold(res.ClearanceStatus, "CLEARED") {
		transition(log, state, StateRejected)
		result.Status = model.StatusRejected
		result.Err = errors.Errorf("authority returned clearance status %q", res.ClearanceStatus)
		return result
	}

	state = transition(log, state, StateCleared)
	result.Status = model.StatusCleared

	// automatic reporting only where the policy table says Both; in
	// Production a Standard invoice is clearance-only and the report is
	// skipped without touching the already-successful clearance
	if policy.Decide(o.env, typ) == policy.Both {
		report, err := o.reporting.Report(ctx, inv.UUID, res.ClearanceStatus)
		if err != nil {
			log.Warnf("automatic report failed after clearance: %v", err)
			result.ReportingError = err.Error()
		} else {
			transition(log, state, StateReported)
			result.ReportingStatus = report.Status
		}
	} else {
		log.Debugf("automatic reporting skipped: policy is %s", policy.Decide(o.env, typ))
	}

	return result
}

func (o *Orchestrator) classifySubmissionFailure(err error, invoiceHash string) *model.SubmissionResult {
	result := &model.SubmissionResult{InvoiceHash: invoiceHash, Err: err}

	var apiErr *zatca.ApiError
	if errors.As(err, &apiErr) && apiErr.Status >= 400 && apiErr.Status < 500 {
		result.Status = model.StatusRejected
		return result
	}

	result.Status = model.StatusFailed
	return result
}

func failed(err error) *model.SubmissionResult {
	return &model.SubmissionResult{Status: model.StatusFailed, Err: err}
}

func transition(log *logrus.Entry, from, to State) State {
	log.Debugf("%s -> %s", from, to)
	return to
}
