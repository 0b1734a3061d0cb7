package model

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestLineArithmetic(t *testing.T) {
	l := Line{
		Quantity:    d("4"),
		UnitPrice:   d("25.00"),
		Discount:    d("10.00"),
		TaxCategory: TaxStandard,
		TaxPercent:  StandardRate,
	}

	assert.Equal(t, "90.00", l.Taxable().StringFixed(2))
	assert.Equal(t, "13.50", l.Tax().StringFixed(2))
}

func TestInvoiceTotals(t *testing.T) {
	inv := &Invoice{Lines: []Line{
		{Quantity: d("4"), UnitPrice: d("25.00"), TaxPercent: StandardRate},
		{Quantity: d("2"), UnitPrice: d("50.00"), TaxPercent: StandardRate},
	}}

	assert.Equal(t, "200.00", inv.TaxExclusive().StringFixed(2))
	assert.Equal(t, "30.00", inv.TaxTotal().StringFixed(2))
	assert.Equal(t, "230.00", inv.TaxInclusive().StringFixed(2))
}

func TestTokenValidity(t *testing.T) {
	now := time.Now()
	tok := OAuthToken{AccessToken: "t", ExpiresAt: now.Add(time.Minute)}
	assert.True(t, tok.Valid(now))
	assert.False(t, tok.Valid(now.Add(2*time.Minute)))
	assert.False(t, OAuthToken{ExpiresAt: now.Add(time.Minute)}.Valid(now))
}

func TestResponseValidation(t *testing.T) {
	assert.Error(t, (&TokenResponse{}).Validate())
	assert.Error(t, (&TokenResponse{AccessToken: "t", TokenType: "Bearer"}).Validate())
	assert.NoError(t, (&TokenResponse{AccessToken: "t", TokenType: "Bearer", ExpiresIn: 60}).Validate())

	assert.Error(t, (&CSIDResponse{Secret: "s"}).Validate())
	assert.NoError(t, (&CSIDResponse{Secret: "s", BinarySecurityToken: "b"}).Validate())

	assert.Error(t, (&ClearanceResponse{}).Validate())
	assert.NoError(t, (&ClearanceResponse{ClearanceStatus: "CLEARED"}).Validate())
}
