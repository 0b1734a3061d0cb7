package zatca

// Environment selects the ZATCA gateway to talk to.
type Environment int

const (
	Sandbox Environment = iota
	Production
)

func (e Environment) BaseURL() string {
	switch e {
	case Production:
		return "https://gw-fatoora.zatca.gov.sa/e-invoicing/core"
	case Sandbox:
		return "https://gw-fatoora.zatca.gov.sa/e-invoicing/developer-portal"
	}
	panic("invalid environment")
}

func (e Environment) String() string {
	switch e {
	case Production:
		return "production"
	case Sandbox:
		return "sandbox"
	}
	return "unknown"
}

// Endpoint paths relative to BaseURL().
const (
	EndpointToken          = "/oauth/token"
	EndpointComplianceCSID = "/compliance/csid"
	EndpointOnboardingCSID = "/onboarding/csid"
	EndpointValidateOTP    = "/onboarding/csid/validate-otp"
	EndpointClearance      = "/invoices/clearance"
	EndpointReporting      = "/invoices/report"
)

// InvoiceType determines which compliance flow an invoice goes through.
type InvoiceType int

const (
	Standard InvoiceType = iota
	Simplified
	DebitNote
)

func (t InvoiceType) String() string {
	switch t {
	case Standard:
		return "standard"
	case Simplified:
		return "simplified"
	case DebitNote:
		return "debit-note"
	}
	return "unknown"
}
