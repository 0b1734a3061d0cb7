package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// StandardRate is the KSA standard VAT rate in percent.
var StandardRate = decimal.RequireFromString("15.00")

// TaxCategory per UBL5305.
type TaxCategory string

const (
	TaxStandard   TaxCategory = "S"
	TaxZeroRated  TaxCategory = "Z"
	TaxExempt     TaxCategory = "E"
	TaxOutOfScope TaxCategory = "O"
)

type Party struct {
	Name      string
	VATNumber string
	Street    string
	City      string
	Country   string // ISO 3166-1 alpha-2
}

type Line struct {
	Name        string
	Quantity    decimal.Decimal
	UnitPrice   decimal.Decimal
	Discount    decimal.Decimal
	TaxCategory TaxCategory
	TaxPercent  decimal.Decimal
}

// Taxable is (quantity × unit price) − discount.
func (l Line) Taxable() decimal.Decimal {
	return l.Quantity.Mul(l.UnitPrice).Sub(l.Discount)
}

// Tax is the line VAT amount, rounded to 2 places.
func (l Line) Tax() decimal.Decimal {
	return l.Taxable().Mul(l.TaxPercent).Div(decimal.NewFromInt(100)).Round(2)
}

// Invoice is validated upstream; this package carries it through the
// signing-and-clearance pipeline unchanged.
type Invoice struct {
	UUID      string
	Number    string
	TenantID  string
	Type      InvoiceTypeName
	IssueDate time.Time
	Seller    Party
	Buyer     Party
	Lines     []Line

	// PreviousHash is the lowercase-hex SHA-256 of the most recently
	// cleared invoice in this tenant's chain. Empty only for the first
	// invoice; the authority, not this client, enforces chain integrity.
	PreviousHash string
}

// InvoiceTypeName mirrors zatca.InvoiceType without the import cycle.
type InvoiceTypeName string

const (
	TypeStandard   InvoiceTypeName = "standard"
	TypeSimplified InvoiceTypeName = "simplified"
	TypeDebitNote  InvoiceTypeName = "debit-note"
)

// TaxExclusive sums line taxable amounts.
func (inv *Invoice) TaxExclusive() decimal.Decimal {
	sum := decimal.Zero
	for _, l := range inv.Lines {
		sum = sum.Add(l.Taxable())
	}
	return sum
}

// TaxTotal sums line VAT amounts.
func (inv *Invoice) TaxTotal() decimal.Decimal {
	sum := decimal.Zero
	for _, l := range inv.Lines {
		sum = sum.Add(l.Tax())
	}
	return sum
}

// TaxInclusive is the payable total.
func (inv *Invoice) TaxInclusive() decimal.Decimal {
	return inv.TaxExclusive().Add(inv.TaxTotal())
}
