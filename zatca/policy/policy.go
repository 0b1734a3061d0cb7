package policy

import (
	"fmt"

	"github.com/fatoora-dev/go-zatca-client/zatca"
)

// Decision says which authority flows an (environment, invoice type) pair
// may use. The table is fixed by the regulation; nothing mutates it at
// runtime.
type Decision int

const (
	Denied Decision = iota
	Clearance
	Reporting
	Both
)

func (d Decision) String() string {
	switch d {
	case Clearance:
		return "clearance"
	case Reporting:
		return "reporting"
	case Both:
		return "clearance+reporting"
	}
	return "denied"
}

func (d Decision) AllowsClearance() bool { return d == Clearance || d == Both }
func (d Decision) AllowsReporting() bool { return d == Reporting || d == Both }

var table = map[zatca.Environment]map[zatca.InvoiceType]Decision{
	zatca.Sandbox: {
		zatca.Standard:   Both,
		zatca.Simplified: Both,
		zatca.DebitNote:  Both,
	},
	zatca.Production: {
		zatca.Standard:   Clearance,
		zatca.Simplified: Reporting,
		zatca.DebitNote:  Clearance,
	},
}

// Decide is the compliance firewall's lookup. Unknown pairs are Denied.
func Decide(env zatca.Environment, typ zatca.InvoiceType) Decision {
	byType, ok := table[env]
	if !ok {
		return Denied
	}
	d, ok := byType[typ]
	if !ok {
		return Denied
	}
	return d
}

// Error reports a compliance rule blocking a requested action. It runs
// before any network call; a denied action never reaches the wire.
type Error struct {
	Environment zatca.Environment
	InvoiceType zatca.InvoiceType
	Requested   string
	Allowed     Decision
}

func (e *Error) Error() string {
	return fmt.Sprintf("policy violation: %s not permitted for %s invoices in %s (allowed: %s)",
		e.Requested, e.InvoiceType, e.Environment, e.Allowed)
}

func ValidateClearanceAllowed(env zatca.Environment, typ zatca.InvoiceType) error {
	if d := Decide(env, typ); !d.AllowsClearance() {
		return &Error{Environment: env, InvoiceType: typ, Requested: "clearance", Allowed: d}
	}
	return nil
}

func ValidateReportingAllowed(env zatca.Environment, typ zatca.InvoiceType) error {
	if d := Decide(env, typ); !d.AllowsReporting() {
		return &Error{Environment: env, InvoiceType: typ, Requested: "reporting", Allowed: d}
	}
	return nil
}

func ValidateBothAllowed(env zatca.Environment, typ zatca.InvoiceType) error {
	if d := Decide(env, typ); d != Both {
		return &Error{Environment: env, InvoiceType: typ, Requested: "clearance+reporting", Allowed: d}
	}
	return nil
}
