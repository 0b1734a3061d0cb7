// Package guard runs the last local checks before an invoice is allowed
// near the network. The authority's rejection loop is slow and costly;
// a defect caught here costs nothing and keeps known-bad documents out of
// the audit trail entirely.
package guard

import (
	"fmt"

	"github.com/beevik/etree"
	"github.com/shopspring/decimal"

	"github.com/fatoora-dev/go-zatca-client/zatca/model"
)

// Tolerance for rounding drift between decimal arithmetic and rendered
// two-place amounts.
var tolerance = decimal.RequireFromString("0.01")

// Error is fatal: the pipeline terminates locally without any network call.
type Error struct {
	Check  string
	Detail string
}

func (e *Error) Error() string {
	return fmt.Sprintf("safety guard failed [%s]: %s", e.Check, e.Detail)
}

func fail(check, format string, args ...any) error {
	return &Error{Check: check, Detail: fmt.Sprintf(format, args...)}
}

// Check verifies the rendered, signed XML against the original line items.
// Checks run in a fixed order; the first failure wins.
func Check(signedXML []byte, signatureValue string, inv *model.Invoice) error {
	if signatureValue == "" {
		return fail("signature", "signature value is empty")
	}

	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(signedXML); err != nil {
		return fail("parse", "unreadable document: %v", err)
	}
	root := doc.Root()
	if root == nil {
		return fail("parse", "document has no root element")
	}

	if err := checkTaxRates(root); err != nil {
		return err
	}
	if err := checkAllowances(root, inv); err != nil {
		return err
	}
	if err := checkTotals(root, inv); err != nil {
		return err
	}
	return checkLineAmounts(root, inv)
}

// checkTaxRates requires every Percent in the document to agree, and the
// standard-rated category to carry exactly the standard rate.
func checkTaxRates(root *etree.Element) error {
	categories := root.FindElements("//cac:TaxCategory")
	categories = append(categories, root.FindElements("//cac:ClassifiedTaxCategory")...)
	if len(categories) == 0 {
		return fail("tax-rate", "no tax category elements in document")
	}

	var first *decimal.Decimal
	for _, cat := range categories {
		pctEl := cat.FindElement("cbc:Percent")
		if pctEl == nil {
			return fail("tax-rate", "tax category without Percent")
		}
		pct, err := decimal.NewFromString(pctEl.Text())
		if err != nil {
			return fail("tax-rate", "unparseable Percent %q", pctEl.Text())
		}

		if first == nil {
			first = &pct
		} else if !pct.Equal(*first) {
			return fail("tax-rate", "inconsistent tax percents: %s vs %s", first, pct)
		}

		if id := cat.FindElement("cbc:ID"); id != nil && id.Text() == string(model.TaxStandard) {
			if !pct.Equal(model.StandardRate) {
				return fail("tax-rate", "standard-rated category carries %s, expected %s",
					pct.StringFixed(2), model.StandardRate.StringFixed(2))
			}
		}
	}
	return nil
}

// checkAllowances requires an AllowanceCharge with ChargeIndicator=false
// inside every rendered line whose source line has a positive discount.
func checkAllowances(root *etree.Element, inv *model.Invoice) error {
	xmlLines := root.FindElements("//cac:InvoiceLine")
	if len(xmlLines) != len(inv.Lines) {
		return fail("structure", "document has %d lines, invoice has %d", len(xmlLines), len(inv.Lines))
	}

	for i, l := range inv.Lines {
		if !l.Discount.IsPositive() {
			continue
		}
		found := false
		for _, ac := range xmlLines[i].FindElements("cac:AllowanceCharge") {
			ind := ac.FindElement("cbc:ChargeIndicator")
			if ind != nil && ind.Text() == "false" {
				found = true
				break
			}
		}
		if !found {
			return fail("structure",
				"line %d has discount %s but no AllowanceCharge with ChargeIndicator=false",
				i+1, l.Discount.StringFixed(2))
		}
	}
	return nil
}

// checkTotals compares the document's monetary totals against the sums of
// the original lines.
func checkTotals(root *etree.Element, inv *model.Invoice) error {
	wantExclusive := inv.TaxExclusive()
	wantTax := inv.TaxTotal()
	wantInclusive := inv.TaxInclusive()

	gotExclusive, err := findAmount(root, "//cac:LegalMonetaryTotal/cbc:TaxExclusiveAmount")
	if err != nil {
		return err
	}
	gotInclusive, err := findAmount(root, "//cac:LegalMonetaryTotal/cbc:TaxInclusiveAmount")
	if err != nil {
		return err
	}
	gotTax, err := findAmount(root, "//cac:TaxTotal/cbc:TaxAmount")
	if err != nil {
		return err
	}

	if !within(gotExclusive, wantExclusive) {
		return fail("totals", "TaxExclusiveAmount %s, line sum %s",
			gotExclusive.StringFixed(2), wantExclusive.StringFixed(2))
	}
	if !within(gotTax, wantTax) {
		return fail("totals", "TaxAmount %s, line tax sum %s",
			gotTax.StringFixed(2), wantTax.StringFixed(2))
	}
	if !within(gotInclusive, wantInclusive) {
		return fail("totals", "TaxInclusiveAmount %s, expected %s",
			gotInclusive.StringFixed(2), wantInclusive.StringFixed(2))
	}
	return nil
}

// checkLineAmounts verifies each rendered line's taxable amount equals
// (quantity × unit price) − discount.
func checkLineAmounts(root *etree.Element, inv *model.Invoice) error {
	xmlLines := root.FindElements("//cac:InvoiceLine")
	for i, l := range inv.Lines {
		el := xmlLines[i].FindElement("cbc:LineExtensionAmount")
		if el == nil {
			return fail("line-amount", "line %d has no LineExtensionAmount", i+1)
		}
		got, err := decimal.NewFromString(el.Text())
		if err != nil {
			return fail("line-amount", "line %d: unparseable amount %q", i+1, el.Text())
		}
		want := l.Taxable()
		if !within(got, want) {
			return fail("line-amount", "line %d: rendered %s, computed (%s×%s)−%s = %s",
				i+1, got.StringFixed(2), l.Quantity, l.UnitPrice,
				l.Discount.StringFixed(2), want.StringFixed(2))
		}
	}
	return nil
}

func findAmount(root *etree.Element, path string) (decimal.Decimal, error) {
	el := root.FindElement(path)
	if el == nil {
		return decimal.Zero, fail("totals", "missing element %s", path)
	}
	v, err := decimal.NewFromString(el.Text())
	if err != nil {
		return decimal.Zero, fail("totals", "unparseable amount at %s: %q", path, el.Text())
	}
	return v, nil
}

func within(a, b decimal.Decimal) bool {
	return a.Sub(b).Abs().LessThanOrEqual(tolerance)
}
