package qr

import (
	"encoding/base64"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fatoora-dev/go-zatca-client/zatca/model"
)

func testInvoice() *model.Invoice {
	return &model.Invoice{
		UUID:      "9f1c1f50-0000-4000-8000-000000000003",
		IssueDate: time.Date(2026, 3, 14, 10, 30, 0, 0, time.UTC),
		Seller:    model.Party{Name: "Seller Co", VATNumber: "310122393500003"},
		Lines: []model.Line{
			{
				Quantity:    decimal.NewFromInt(4),
				UnitPrice:   decimal.RequireFromString("25.00"),
				TaxCategory: model.TaxStandard,
				TaxPercent:  model.StandardRate,
			},
		},
	}
}

func decodeTLV(t *testing.T, payload string) map[byte]string {
	t.Helper()
	raw, err := base64.StdEncoding.DecodeString(payload)
	require.NoError(t, err)

	fields := map[byte]string{}
	for i := 0; i < len(raw); {
		require.Less(t, i+1, len(raw))
		tag, length := raw[i], int(raw[i+1])
		require.LessOrEqual(t, i+2+length, len(raw))
		fields[tag] = string(raw[i+2 : i+2+length])
		i += 2 + length
	}
	return fields
}

func TestPayloadTLVFields(t *testing.T) {
	payload, err := Payload(testInvoice())
	require.NoError(t, err)

	fields := decodeTLV(t, payload)
	assert.Equal(t, "Seller Co", fields[1])
	assert.Equal(t, "310122393500003", fields[2])
	assert.Equal(t, "2026-03-14T10:30:00Z", fields[3])
	assert.Equal(t, "115.00", fields[4])
	assert.Equal(t, "15.00", fields[5])
}

func TestPayloadRejectsOversizeField(t *testing.T) {
	inv := testInvoice()
	long := make([]byte, 300)
	for i := range long {
		long[i] = 'a'
	}
	inv.Seller.Name = string(long)

	_, err := Payload(inv)
	assert.Error(t, err)
}

func TestPNGProducesImage(t *testing.T) {
	payload, err := Payload(testInvoice())
	require.NoError(t, err)

	img, err := PNG(payload)
	require.NoError(t, err)
	// PNG magic
	assert.Equal(t, []byte{0x89, 'P', 'N', 'G'}, img[:4])
}
