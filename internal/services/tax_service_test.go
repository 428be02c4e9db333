package services

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"wastebill/server/internal/models"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func dp(s string) *decimal.Decimal {
	v := decimal.RequireFromString(s)
	return &v
}

func TestComputeTotals(t *testing.T) {
	calc := NewTaxCalculator(9, 9)

	tests := []struct {
		name              string
		subtotal          string
		additionalCharges string
		cgstRate          *decimal.Decimal
		sgstRate          *decimal.Decimal
		wantCGST          string
		wantSGST          string
		wantGrandTotal    string
	}{
		{
			name:           "default rates on a round subtotal",
			subtotal:       "1000",
			wantCGST:       "90",
			wantSGST:       "90",
			wantGrandTotal: "1180.00",
		},
		{
			name:              "charges join the taxable base",
			subtotal:          "1000",
			additionalCharges: "500",
			wantCGST:          "135",
			wantSGST:          "135",
			wantGrandTotal:    "1770.00",
		},
		{
			name:           "tax halves round to whole units",
			subtotal:       "1005",
			wantCGST:       "90", // 90.45 rounds down
			wantSGST:       "90",
			wantGrandTotal: "1185.00",
		},
		{
			name:           "midpoint rounds away from zero",
			subtotal:       "1005.56",
			wantCGST:       "91", // 90.5004
			wantSGST:       "91",
			wantGrandTotal: "1187.56",
		},
		{
			name:           "explicit rates override defaults",
			subtotal:       "1000",
			cgstRate:       dp("2.5"),
			sgstRate:       dp("2.5"),
			wantCGST:       "25",
			wantSGST:       "25",
			wantGrandTotal: "1050.00",
		},
		{
			name:           "zero rates yield no tax",
			subtotal:       "1000",
			cgstRate:       dp("0"),
			sgstRate:       dp("0"),
			wantCGST:       "0",
			wantSGST:       "0",
			wantGrandTotal: "1000.00",
		},
		{
			name:           "zero base",
			subtotal:       "0",
			wantCGST:       "0",
			wantSGST:       "0",
			wantGrandTotal: "0.00",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			charges := decimal.Zero
			if tt.additionalCharges != "" {
				charges = d(tt.additionalCharges)
			}
			totals := calc.ComputeTotals(d(tt.subtotal), charges, tt.cgstRate, tt.sgstRate)

			assert.True(t, totals.CGST.Equal(d(tt.wantCGST)), "CGST = %s, want %s", totals.CGST, tt.wantCGST)
			assert.True(t, totals.SGST.Equal(d(tt.wantSGST)), "SGST = %s, want %s", totals.SGST, tt.wantSGST)
			assert.True(t, totals.GrandTotal.Equal(d(tt.wantGrandTotal)), "GrandTotal = %s, want %s", totals.GrandTotal, tt.wantGrandTotal)
		})
	}
}

func TestDeriveStatus(t *testing.T) {
	calc := NewTaxCalculator(9, 9)

	tests := []struct {
		name       string
		payment    string
		grandTotal string
		want       models.InvoiceStatus
	}{
		{"no payment", "0", "1180.00", models.InvoiceStatusPending},
		{"negative payment treated as pending", "-5", "1180.00", models.InvoiceStatusPending},
		{"partial payment", "500", "1180.00", models.InvoiceStatusPartial},
		{"exact payment", "1180.00", "1180.00", models.InvoiceStatusPaid},
		{"short by less than tolerance", "1179.995", "1180.00", models.InvoiceStatusPaid},
		{"short by exactly tolerance", "1179.99", "1180.00", models.InvoiceStatusPaid},
		{"short by more than tolerance", "1179.98", "1180.00", models.InvoiceStatusPartial},
		{"overpayment", "1200", "1180.00", models.InvoiceStatusPaid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := calc.DeriveStatus(d(tt.payment), d(tt.grandTotal))
			assert.Equal(t, tt.want, got)
		})
	}
}
