package services

import (
	"context"
	"fmt"

	"github.com/xuri/excelize/v2"

	"wastebill/server/internal/models"
)

// ExportService renders the invoice register as an XLSX workbook for
// the accountant's monthly filing.
type ExportService struct {
	invoices *InvoiceService
}

func NewExportService(invoices *InvoiceService) *ExportService {
	return &ExportService{invoices: invoices}
}

var registerHeader = []string{
	"Invoice No", "Date", "Type", "Billed To", "GSTIN",
	"Subtotal", "Additional Charges", "CGST", "SGST", "Grand Total",
	"Payment Received", "Payment Date", "Status",
}

// InvoiceRegister builds the register workbook for invoices matching the
// filter. The caller owns the returned file and must Close it.
func (s *ExportService) InvoiceRegister(ctx context.Context, filter InvoiceFilter) (*excelize.File, error) {
	invoices, err := s.invoices.ListInvoices(ctx, filter)
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	const sheet = "Invoice Register"
	f.SetSheetName("Sheet1", sheet)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"DDEBF7"}, Pattern: 1},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build header style: %w", err)
	}

	for col, title := range registerHeader {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		f.SetCellValue(sheet, cell, title)
		f.SetCellStyle(sheet, cell, cell, headerStyle)
	}

	for i, inv := range invoices {
		row := i + 2
		paymentDate := ""
		if inv.PaymentDate != nil {
			paymentDate = inv.PaymentDate.Format("2006-01-02")
		}
		values := []interface{}{
			inv.InvoiceNo,
			inv.Date.Format("2006-01-02"),
			string(inv.Type),
			inv.CounterpartyLabel(),
			counterpartyGSTIN(&inv),
			inv.Subtotal.InexactFloat64(),
			inv.AdditionalCharges.InexactFloat64(),
			inv.CGST.InexactFloat64(),
			inv.SGST.InexactFloat64(),
			inv.GrandTotal.InexactFloat64(),
			inv.PaymentReceived.InexactFloat64(),
			paymentDate,
			string(inv.Status),
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			f.SetCellValue(sheet, cell, v)
		}
	}

	f.SetColWidth(sheet, "A", "A", 18)
	f.SetColWidth(sheet, "D", "E", 28)
	f.SetColWidth(sheet, "F", "K", 16)

	return f, nil
}

func counterpartyGSTIN(inv *models.Invoice) string {
	switch {
	case inv.Company != nil:
		return inv.Company.GSTIN
	case inv.Transporter != nil:
		return inv.Transporter.GSTIN
	default:
		return ""
	}
}
