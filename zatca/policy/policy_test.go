package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/fatoora-dev/go-zatca-client/zatca"
)

func TestDecideTable(t *testing.T) {
	tests := []struct {
		env  zatca.Environment
		typ  zatca.InvoiceType
		want Decision
	}{
		{zatca.Sandbox, zatca.Standard, Both},
		{zatca.Sandbox, zatca.Simplified, Both},
		{zatca.Sandbox, zatca.DebitNote, Both},
		{zatca.Production, zatca.Standard, Clearance},
		{zatca.Production, zatca.Simplified, Reporting},
		{zatca.Production, zatca.DebitNote, Clearance},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, Decide(tt.env, tt.typ),
			"Decide(%s, %s)", tt.env, tt.typ)
	}
}

func TestValidateClearanceAllowed(t *testing.T) {
	assert.NoError(t, ValidateClearanceAllowed(zatca.Production, zatca.Standard))
	assert.NoError(t, ValidateClearanceAllowed(zatca.Sandbox, zatca.Simplified))

	err := ValidateClearanceAllowed(zatca.Production, zatca.Simplified)
	var pe *Error
	assert.ErrorAs(t, err, &pe)
	assert.Contains(t, pe.Error(), "clearance")
	assert.Contains(t, pe.Error(), "simplified")
}

func TestValidateReportingAllowed(t *testing.T) {
	assert.NoError(t, ValidateReportingAllowed(zatca.Production, zatca.Simplified))

	err := ValidateReportingAllowed(zatca.Production, zatca.Standard)
	var pe *Error
	assert.ErrorAs(t, err, &pe)
}

func TestValidateBothAllowed(t *testing.T) {
	assert.NoError(t, ValidateBothAllowed(zatca.Sandbox, zatca.Standard))

	var pe *Error
	assert.ErrorAs(t, ValidateBothAllowed(zatca.Production, zatca.Standard), &pe)
	assert.ErrorAs(t, ValidateBothAllowed(zatca.Production, zatca.Simplified), &pe)
}

func TestDecisionCapabilities(t *testing.T) {
	assert.True(t, Both.AllowsClearance())
	assert.True(t, Both.AllowsReporting())
	assert.True(t, Clearance.AllowsClearance())
	assert.False(t, Clearance.AllowsReporting())
	assert.False(t, Reporting.AllowsClearance())
	assert.True(t, Reporting.AllowsReporting())
	assert.False(t, Denied.AllowsClearance())
	assert.False(t, Denied.AllowsReporting())
}
