package services

import (
	"github.com/shopspring/decimal"

	"wastebill/server/internal/models"
)

// paymentTolerance absorbs sub-paisa drift when comparing payment
// received against the grand total.
var paymentTolerance = decimal.New(1, -2) // 0.01

// Totals holds the computed tax figures for an invoice.
type Totals struct {
	CGST       decimal.Decimal
	SGST       decimal.Decimal
	GrandTotal decimal.Decimal
}

// TaxCalculator converts a taxable base into GST totals. It is pure:
// no store access, safe for concurrent use.
type TaxCalculator struct {
	defaultCGSTRate decimal.Decimal
	defaultSGSTRate decimal.Decimal
}

// NewTaxCalculator builds a calculator with fallback rates in percent.
func NewTaxCalculator(defaultCGSTRate, defaultSGSTRate float64) *TaxCalculator {
	return &TaxCalculator{
		defaultCGSTRate: decimal.NewFromFloat(defaultCGSTRate),
		defaultSGSTRate: decimal.NewFromFloat(defaultSGSTRate),
	}
}

// ComputeTotals applies CGST/SGST to subtotal + additionalCharges.
// Each tax half is rounded to the nearest whole currency unit (invoice
// convention, not paisa rounding); the grand total keeps two decimals.
// Nil rates fall back to the configured defaults.
func (c *TaxCalculator) ComputeTotals(subtotal, additionalCharges decimal.Decimal, cgstRate, sgstRate *decimal.Decimal) Totals {
	cgst := c.defaultCGSTRate
	if cgstRate != nil {
		cgst = *cgstRate
	}
	sgst := c.defaultSGSTRate
	if sgstRate != nil {
		sgst = *sgstRate
	}

	base := subtotal.Add(additionalCharges)
	hundred := decimal.NewFromInt(100)
	cgstAmount := base.Mul(cgst).Div(hundred).Round(0)
	sgstAmount := base.Mul(sgst).Div(hundred).Round(0)

	return Totals{
		CGST:       cgstAmount,
		SGST:       sgstAmount,
		GrandTotal: base.Add(cgstAmount).Add(sgstAmount).Round(2),
	}
}

// DeriveStatus classifies payment against the grand total with a 0.01
// absolute tolerance, so a payment short by float dust still counts as
// paid in full.
func (c *TaxCalculator) DeriveStatus(paymentReceived, grandTotal decimal.Decimal) models.InvoiceStatus {
	if paymentReceived.LessThanOrEqual(decimal.Zero) {
		return models.InvoiceStatusPending
	}
	if paymentReceived.GreaterThanOrEqual(grandTotal.Sub(paymentTolerance)) {
		return models.InvoiceStatusPaid
	}
	return models.InvoiceStatusPartial
}
