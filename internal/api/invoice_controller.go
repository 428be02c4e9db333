package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"wastebill/server/internal/models"
	"wastebill/server/internal/services"
)

// InvoiceController exposes the invoice consolidation endpoints.
type InvoiceController struct {
	invoices    *services.InvoiceService
	allocations *services.AllocationService
	export      *services.ExportService
}

// NewInvoiceController creates the controller over its services.
func NewInvoiceController(
	invoices *services.InvoiceService,
	allocations *services.AllocationService,
	export *services.ExportService,
) *InvoiceController {
	return &InvoiceController{
		invoices:    invoices,
		allocations: allocations,
		export:      export,
	}
}

// CreateInvoice creates an invoice, or appends records to an existing
// one when the body carries its invoice number.
// POST /api/v1/invoices
func (ic *InvoiceController) CreateInvoice(c *gin.Context) {
	var req services.InvoiceInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	invoice, err := ic.invoices.CreateInvoice(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err, "Failed to create invoice")
		return
	}

	c.JSON(http.StatusCreated, invoice)
}

// GetInvoice returns one invoice with its line items and manifest refs.
// GET /api/v1/invoices/:id
func (ic *InvoiceController) GetInvoice(c *gin.Context) {
	invoice, err := ic.invoices.GetInvoice(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err, "Failed to load invoice")
		return
	}
	c.JSON(http.StatusOK, invoice)
}

// ListInvoices returns invoices filtered by query parameters.
// GET /api/v1/invoices
func (ic *InvoiceController) ListInvoices(c *gin.Context) {
	filter := services.InvoiceFilter{
		Type:          models.InvoiceType(c.Query("type")),
		CompanyID:     c.Query("companyId"),
		TransporterID: c.Query("transporterId"),
		Status:        models.InvoiceStatus(c.Query("status")),
	}
	if from, ok := parseDateQuery(c, "from"); ok {
		filter.From = from
	}
	if to, ok := parseDateQuery(c, "to"); ok {
		filter.To = to
	}

	invoices, err := ic.invoices.ListInvoices(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err, "Failed to list invoices")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"invoices": invoices,
		"count":    len(invoices),
	})
}

// ListOpenInvoices returns a counterparty's not-fully-paid invoices,
// the candidates for append mode.
// GET /api/v1/invoices/open
func (ic *InvoiceController) ListOpenInvoices(c *gin.Context) {
	invoiceType := models.InvoiceType(c.Query("type"))
	counterpartyID := c.Query("counterpartyId")
	if counterpartyID == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "counterpartyId query parameter is required",
		})
		return
	}

	invoices, err := ic.invoices.ListOpenInvoices(c.Request.Context(), invoiceType, counterpartyID)
	if err != nil {
		respondError(c, err, "Failed to list open invoices")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"invoices": invoices,
		"count":    len(invoices),
	})
}

// UpdateInvoice replaces an invoice's items, manifests and linked
// records with the supplied sets.
// PUT /api/v1/invoices/:id
func (ic *InvoiceController) UpdateInvoice(c *gin.Context) {
	var req services.InvoiceInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	invoice, err := ic.invoices.UpdateInvoice(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		respondError(c, err, "Failed to update invoice")
		return
	}

	c.JSON(http.StatusOK, invoice)
}

// DeleteInvoice deletes an invoice after releasing its movement records.
// DELETE /api/v1/invoices/:id
func (ic *InvoiceController) DeleteInvoice(c *gin.Context) {
	if err := ic.invoices.DeleteInvoice(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err, "Failed to delete invoice")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Invoice deleted"})
}

// RecordPayment sets the received amount on an invoice and re-derives
// its status.
// POST /api/v1/invoices/:id/payment
func (ic *InvoiceController) RecordPayment(c *gin.Context) {
	var req struct {
		PaymentReceived   decimal.Decimal   `json:"paymentReceived"`
		PaymentReceivedOn *services.ISODate `json:"paymentReceivedOn"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	var receivedOn *time.Time
	if req.PaymentReceivedOn != nil && !req.PaymentReceivedOn.IsZero() {
		t := req.PaymentReceivedOn.Time
		receivedOn = &t
	}

	invoice, err := ic.invoices.RecordPayment(c.Request.Context(), c.Param("id"), req.PaymentReceived, receivedOn)
	if err != nil {
		respondError(c, err, "Failed to record payment")
		return
	}

	c.JSON(http.StatusOK, invoice)
}

// GetAllocations projects the invoice totals onto its linked records.
// GET /api/v1/invoices/:id/allocations
func (ic *InvoiceController) GetAllocations(c *gin.Context) {
	allocations, err := ic.allocations.AllocationsForInvoice(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err, "Failed to project allocations")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"allocations": allocations,
		"count":       len(allocations),
	})
}

// ExportRegister streams the filtered invoice register as XLSX.
// GET /api/v1/invoices/export
func (ic *InvoiceController) ExportRegister(c *gin.Context) {
	filter := services.InvoiceFilter{
		Type:   models.InvoiceType(c.Query("type")),
		Status: models.InvoiceStatus(c.Query("status")),
		Limit:  1000,
	}
	if from, ok := parseDateQuery(c, "from"); ok {
		filter.From = from
	}
	if to, ok := parseDateQuery(c, "to"); ok {
		filter.To = to
	}

	workbook, err := ic.export.InvoiceRegister(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err, "Failed to build invoice register")
		return
	}
	defer workbook.Close()

	filename := fmt.Sprintf("invoice-register-%s.xlsx", time.Now().Format("20060102"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	if err := workbook.Write(c.Writer); err != nil {
		c.Status(http.StatusInternalServerError)
	}
}

// parseDateQuery reads an ISO date query parameter.
func parseDateQuery(c *gin.Context, name string) (*time.Time, bool) {
	raw := c.Query(name)
	if raw == "" {
		return nil, false
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return nil, false
	}
	return &t, true
}
