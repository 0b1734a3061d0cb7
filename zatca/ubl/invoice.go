// Package ubl renders invoices as UBL 2.1 XML the way the authority expects
// them: compact (no indentation), with the previous-invoice-hash reference
// and per-line tax breakdown the clearance checks read back.
package ubl

import (
	"encoding/base64"
	"fmt"
	"strconv"

	"github.com/beevik/etree"
	"github.com/shopspring/decimal"

	"github.com/fatoora-dev/go-zatca-client/zatca/model"
)

const (
	nsInvoice = "urn:oasis:names:specification:ubl:schema:xsd:Invoice-2"
	nsCAC     = "urn:oasis:names:specification:ubl:schema:xsd:CommonAggregateComponents-2"
	nsCBC     = "urn:oasis:names:specification:ubl:schema:xsd:CommonBasicComponents-2"

	currency = "SAR"
)

// invoice type codes per UBL1001 as ZATCA profiles them.
var typeCodes = map[model.InvoiceTypeName]string{
	model.TypeStandard:   "388",
	model.TypeSimplified: "388",
	model.TypeDebitNote:  "383",
}

var typeSubCodes = map[model.InvoiceTypeName]string{
	model.TypeStandard:   "0100000",
	model.TypeSimplified: "0200000",
	model.TypeDebitNote:  "0100000",
}

// Build renders the invoice. Output is deterministic for a given invoice
// value; no timestamps or random IDs are generated here.
func Build(inv *model.Invoice) ([]byte, error) {
	if inv.UUID == "" {
		return nil, fmt.Errorf("invoice has no UUID")
	}
	if len(inv.Lines) == 0 {
		return nil, fmt.Errorf("invoice %s has no lines", inv.UUID)
	}

	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)

	root := doc.CreateElement("Invoice")
	root.CreateAttr("xmlns", nsInvoice)
	root.CreateAttr("xmlns:cac", nsCAC)
	root.CreateAttr("xmlns:cbc", nsCBC)

	text(root, "cbc:ID", inv.Number)
	text(root, "cbc:UUID", inv.UUID)
	text(root, "cbc:IssueDate", inv.IssueDate.Format("2006-01-02"))
	text(root, "cbc:IssueTime", inv.IssueDate.Format("15:04:05"))

	typeCode := root.CreateElement("cbc:InvoiceTypeCode")
	typeCode.CreateAttr("name", typeSubCodes[inv.Type])
	typeCode.SetText(typeCodes[inv.Type])

	text(root, "cbc:DocumentCurrencyCode", currency)
	text(root, "cbc:TaxCurrencyCode", currency)

	if inv.PreviousHash != "" {
		appendPIH(root, inv.PreviousHash)
	}

	appendParty(root, "cac:AccountingSupplierParty", inv.Seller)
	appendParty(root, "cac:AccountingCustomerParty", inv.Buyer)

	for i, l := range inv.Lines {
		if l.Discount.IsPositive() {
			appendAllowance(root, i+1, l)
		}
	}

	appendTaxTotal(root, inv)
	appendMonetaryTotal(root, inv)

	for i, l := range inv.Lines {
		appendLine(root, i+1, l)
	}

	return doc.WriteToBytes()
}

// appendPIH embeds the previous invoice hash: base64 of the lowercase hex
// digest string, per the authority's chain convention.
func appendPIH(root *etree.Element, hexHash string) {
	ref := root.CreateElement("cac:AdditionalDocumentReference")
	text(ref, "cbc:ID", "PIH")
	attachment := ref.CreateElement("cac:Attachment")
	obj := attachment.CreateElement("cbc:EmbeddedDocumentBinaryObject")
	obj.CreateAttr("mimeCode", "text/plain")
	obj.SetText(base64.StdEncoding.EncodeToString([]byte(hexHash)))
}

func appendParty(root *etree.Element, tag string, p model.Party) {
	wrapper := root.CreateElement(tag)
	party := wrapper.CreateElement("cac:Party")

	addr := party.CreateElement("cac:PostalAddress")
	text(addr, "cbc:StreetName", p.Street)
	text(addr, "cbc:CityName", p.City)
	country := addr.CreateElement("cac:Country")
	text(country, "cbc:IdentificationCode", p.Country)

	if p.VATNumber != "" {
		scheme := party.CreateElement("cac:PartyTaxScheme")
		text(scheme, "cbc:CompanyID", p.VATNumber)
		taxScheme := scheme.CreateElement("cac:TaxScheme")
		text(taxScheme, "cbc:ID", "VAT")
	}

	legal := party.CreateElement("cac:PartyLegalEntity")
	text(legal, "cbc:RegistrationName", p.Name)
}

// appendAllowance records a document-level view of a line discount. The
// safety guard requires one AllowanceCharge with ChargeIndicator=false per
// discounted line.
func appendAllowance(root *etree.Element, lineID int, l model.Line) {
	ac := root.CreateElement("cac:AllowanceCharge")
	text(ac, "cbc:ChargeIndicator", "false")
	text(ac, "cbc:AllowanceChargeReason", "discount")
	amount(ac, "cbc:Amount", l.Discount)
	ac.CreateElement("cbc:AllowanceChargeReasonCode").SetText(strconv.Itoa(lineID))
}

func appendTaxTotal(root *etree.Element, inv *model.Invoice) {
	taxTotal := root.CreateElement("cac:TaxTotal")
	amount(taxTotal, "cbc:TaxAmount", inv.TaxTotal())

	// one subtotal per tax category present
	type agg struct {
		taxable decimal.Decimal
		tax     decimal.Decimal
		percent decimal.Decimal
	}
	byCategory := map[model.TaxCategory]*agg{}
	var order []model.TaxCategory
	for _, l := range inv.Lines {
		a, ok := byCategory[l.TaxCategory]
		if !ok {
			a = &agg{percent: l.TaxPercent}
			byCategory[l.TaxCategory] = a
			order = append(order, l.TaxCategory)
		}
		a.taxable = a.taxable.Add(l.Taxable())
		a.tax = a.tax.Add(l.Tax())
	}

	for _, cat := range order {
		a := byCategory[cat]
		sub := taxTotal.CreateElement("cac:TaxSubtotal")
		amount(sub, "cbc:TaxableAmount", a.taxable)
		amount(sub, "cbc:TaxAmount", a.tax)
		catEl := sub.CreateElement("cac:TaxCategory")
		text(catEl, "cbc:ID", string(cat))
		text(catEl, "cbc:Percent", a.percent.StringFixed(2))
		taxScheme := catEl.CreateElement("cac:TaxScheme")
		text(taxScheme, "cbc:ID", "VAT")
	}
}

func appendMonetaryTotal(root *etree.Element, inv *model.Invoice) {
	total := root.CreateElement("cac:LegalMonetaryTotal")
	amount(total, "cbc:LineExtensionAmount", inv.TaxExclusive())
	amount(total, "cbc:TaxExclusiveAmount", inv.TaxExclusive())
	amount(total, "cbc:TaxInclusiveAmount", inv.TaxInclusive())
	amount(total, "cbc:PayableAmount", inv.TaxInclusive())
}

func appendLine(root *etree.Element, id int, l model.Line) {
	line := root.CreateElement("cac:InvoiceLine")
	text(line, "cbc:ID", strconv.Itoa(id))

	qty := line.CreateElement("cbc:InvoicedQuantity")
	qty.CreateAttr("unitCode", "PCE")
	qty.SetText(l.Quantity.String())

	amount(line, "cbc:LineExtensionAmount", l.Taxable())

	if l.Discount.IsPositive() {
		ac := line.CreateElement("cac:AllowanceCharge")
		text(ac, "cbc:ChargeIndicator", "false")
		amount(ac, "cbc:Amount", l.Discount)
	}

	taxTotal := line.CreateElement("cac:TaxTotal")
	amount(taxTotal, "cbc:TaxAmount", l.Tax())

	item := line.CreateElement("cac:Item")
	text(item, "cbc:Name", l.Name)
	cat := item.CreateElement("cac:ClassifiedTaxCategory")
	text(cat, "cbc:ID", string(l.TaxCategory))
	text(cat, "cbc:Percent", l.TaxPercent.StringFixed(2))
	taxScheme := cat.CreateElement("cac:TaxScheme")
	text(taxScheme, "cbc:ID", "VAT")

	price := line.CreateElement("cac:Price")
	amount(price, "cbc:PriceAmount", l.UnitPrice)
}

func text(parent *etree.Element, tag, value string) {
	parent.CreateElement(tag).SetText(value)
}

func amount(parent *etree.Element, tag string, v decimal.Decimal) {
	el := parent.CreateElement(tag)
	el.CreateAttr("currencyID", currency)
	el.SetText(v.StringFixed(2))
}
