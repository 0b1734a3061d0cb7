// Package qr produces the phase-1 ZATCA QR payload: base64 over TLV-encoded
// seller identity and totals, and a PNG rendering of it.
package qr

import (
	"encoding/base64"
	"fmt"
	"time"

	"github.com/skip2/go-qrcode"

	"github.com/fatoora-dev/go-zatca-client/zatca/model"
)

// TLV tags defined by the regulation.
const (
	tagSellerName = 1
	tagVATNumber  = 2
	tagTimestamp  = 3
	tagTotal      = 4
	tagVATTotal   = 5
)

// Payload builds the base64 TLV string embedded in printed invoices.
func Payload(inv *model.Invoice) (string, error) {
	fields := []struct {
		tag   byte
		value string
	}{
		{tagSellerName, inv.Seller.Name},
		{tagVATNumber, inv.Seller.VATNumber},
		{tagTimestamp, inv.IssueDate.UTC().Format(time.RFC3339)},
		{tagTotal, inv.TaxInclusive().StringFixed(2)},
		{tagVATTotal, inv.TaxTotal().StringFixed(2)},
	}

	var buf []byte
	for _, f := range fields {
		v := []byte(f.value)
		if len(v) > 255 {
			return "", fmt.Errorf("TLV tag %d value exceeds 255 bytes", f.tag)
		}
		buf = append(buf, f.tag, byte(len(v)))
		buf = append(buf, v...)
	}

	return base64.StdEncoding.EncodeToString(buf), nil
}

// PNG renders the payload as a 300px QR image.
func PNG(payload string) ([]byte, error) {
	return qrcode.Encode(payload, qrcode.Medium, 300)
}
