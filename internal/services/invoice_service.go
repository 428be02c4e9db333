package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"wastebill/server/internal/models"
	"wastebill/server/internal/utils"
)

// maxNumberRetries bounds re-attempts after a generated number collides
// under a concurrent create.
const maxNumberRetries = 3

// ISODate accepts both bare ISO dates (2026-08-30) and RFC3339 stamps.
type ISODate struct {
	time.Time
}

func (d *ISODate) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		d.Time = time.Time{}
		return nil
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		d.Time = t
		return nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return fmt.Errorf("invalid date %q: %w", s, err)
	}
	d.Time = t
	return nil
}

func (d ISODate) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte(`null`), nil
	}
	return []byte(`"` + d.Format("2006-01-02") + `"`), nil
}

// MaterialInput is one billed material row in a create/update request.
type MaterialInput struct {
	MaterialName string           `json:"materialName"`
	Description  string           `json:"description"`
	Quantity     *decimal.Decimal `json:"quantity"`
	Unit         string           `json:"unit"`
	Rate         *decimal.Decimal `json:"rate"`
	Amount       *decimal.Decimal `json:"amount"`
	ManifestNo   string           `json:"manifestNo"`
}

// ChargeInput is one additional-charge row (transport, handling, ...).
type ChargeInput struct {
	Description string           `json:"description"`
	Quantity    *decimal.Decimal `json:"quantity"`
	Unit        string           `json:"unit"`
	Rate        *decimal.Decimal `json:"rate"`
	Amount      *decimal.Decimal `json:"amount"`
}

// InvoiceInput is the request body for invoice create and update. Update
// treats materials, charges, manifest numbers and movement record ids as
// a complete replacement set, not a delta.
type InvoiceInput struct {
	Type              models.InvoiceType `json:"type"`
	Date              ISODate            `json:"date"`
	CompanyID         *string            `json:"companyId"`
	TransporterID     *string            `json:"transporterId"`
	CustomerName      string             `json:"customerName"`
	InvoiceNo         string             `json:"invoiceNo"` // explicit number; on create, an existing one triggers the idempotent append path
	Materials         []MaterialInput    `json:"materials"`
	AdditionalCharges []ChargeInput      `json:"additionalChargesList"`
	ManifestNos       []string           `json:"manifestNos"`
	MovementRecordIDs []string           `json:"movementRecordIds"`
	Subtotal          *decimal.Decimal   `json:"subtotal"` // required only if materials is empty
	CGSTRate          *decimal.Decimal   `json:"cgstRate"`
	SGSTRate          *decimal.Decimal   `json:"sgstRate"`
	PaymentReceived   *decimal.Decimal   `json:"paymentReceived"`
	PaymentReceivedOn *ISODate           `json:"paymentReceivedOn"`
}

// InvoiceService orchestrates invoice consolidation: number allocation,
// linkage enforcement, tax totals and atomic persistence, all inside one
// transaction per request.
type InvoiceService struct {
	db        *gorm.DB
	sequences *SequenceService
	linkage   *LinkageService
	tax       *TaxCalculator
	events    *BillingEventPublisher
	cache     *utils.RedisClient
}

// NewInvoiceService wires the workflow with its collaborators.
func NewInvoiceService(
	db *gorm.DB,
	sequences *SequenceService,
	linkage *LinkageService,
	tax *TaxCalculator,
	events *BillingEventPublisher,
	cache *utils.RedisClient,
) *InvoiceService {
	return &InvoiceService{
		db:        db,
		sequences: sequences,
		linkage:   linkage,
		tax:       tax,
		events:    events,
		cache:     cache,
	}
}

// CreateInvoice validates, allocates a number (unless an existing one is
// supplied, which turns the call into an idempotent append), computes
// totals and persists the invoice with its line items and manifest refs,
// then links the movement records. A number collision under a concurrent
// create is retried in a fresh transaction up to maxNumberRetries times.
func (s *InvoiceService) CreateInvoice(ctx context.Context, in *InvoiceInput) (*models.Invoice, error) {
	if err := validateInvoiceInput(in, true); err != nil {
		return nil, err
	}

	var (
		result   *models.Invoice
		appended bool
		lastErr  error
	)

	for attempt := 0; attempt < maxNumberRetries; attempt++ {
		result, appended, lastErr = s.createOnce(ctx, in)
		if lastErr == nil {
			break
		}
		if !IsRetryableConflict(lastErr) {
			return nil, lastErr
		}
	}
	if lastErr != nil {
		return nil, lastErr
	}

	s.invalidate(ctx, result.ID)
	if appended {
		s.events.Publish(ctx, EventInvoiceUpdated, result)
	} else {
		s.events.Publish(ctx, EventInvoiceCreated, result)
	}
	return result, nil
}

func (s *InvoiceService) createOnce(ctx context.Context, in *InvoiceInput) (*models.Invoice, bool, error) {
	var (
		result   *models.Invoice
		appended bool
	)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.linkage.ValidateLinkable(tx, in.MovementRecordIDs, ""); err != nil {
			return err
		}

		number := in.InvoiceNo
		if number != "" {
			var existing models.Invoice
			err := tx.Preload("LineItems").Preload("ManifestRefs").
				First(&existing, "invoice_no = ?", number).Error
			switch {
			case err == nil:
				// Idempotent re-submit: the invoice already exists, so
				// only the new records are linked to it. Its own fields
				// are returned unchanged.
				if err := s.linkage.Link(tx, in.MovementRecordIDs, existing.ID); err != nil {
					return err
				}
				result = &existing
				appended = true
				return nil
			case !errors.Is(err, gorm.ErrRecordNotFound):
				return fmt.Errorf("failed to check invoice number %s: %w", number, err)
			}
		} else {
			allocated, err := s.sequences.NextInvoiceNumber(tx, in.Date.Time)
			if err != nil {
				return err
			}
			number = allocated
		}

		subtotal, err := subtotalFrom(in, nil)
		if err != nil {
			return err
		}
		additional := chargesTotal(in.AdditionalCharges)
		totals := s.tax.ComputeTotals(subtotal, additional, in.CGSTRate, in.SGSTRate)

		payment := decimal.Zero
		if in.PaymentReceived != nil {
			payment = *in.PaymentReceived
		}

		invoice := models.Invoice{
			InvoiceNo:         number,
			Type:              in.Type,
			Date:              in.Date.Time,
			CompanyID:         in.CompanyID,
			TransporterID:     in.TransporterID,
			CustomerName:      in.CustomerName,
			Subtotal:          subtotal,
			AdditionalCharges: additional,
			CGST:              totals.CGST,
			SGST:              totals.SGST,
			GrandTotal:        totals.GrandTotal,
			PaymentReceived:   payment,
			PaymentDate:       paymentDate(in),
			Status:            s.tax.DeriveStatus(payment, totals.GrandTotal),
			LineItems:         buildLineItems(in),
			ManifestRefs:      buildManifestRefs(in.ManifestNos),
		}

		if err := tx.Create(&invoice).Error; err != nil {
			if isUniqueViolation(err) {
				return newNumberConflict(number)
			}
			return fmt.Errorf("failed to persist invoice: %w", err)
		}

		if err := s.linkage.Link(tx, in.MovementRecordIDs, invoice.ID); err != nil {
			return err
		}

		result = &invoice
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return result, appended, nil
}

// UpdateInvoice replaces an invoice's content with the supplied set:
// line items and manifest refs are deleted and reinserted (partial
// diffing of mixed material/charge rows is error-prone), the linked
// record set is replaced via unlink-all-then-link, and totals and status
// are recomputed.
func (s *InvoiceService) UpdateInvoice(ctx context.Context, invoiceID string, in *InvoiceInput) (*models.Invoice, error) {
	if err := validateInvoiceInput(in, false); err != nil {
		return nil, err
	}

	var result *models.Invoice
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var invoice models.Invoice
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&invoice, "id = ?", invoiceID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return newNotFoundError("invoice", invoiceID)
			}
			return fmt.Errorf("failed to load invoice: %w", err)
		}

		if err := s.linkage.ValidateLinkable(tx, in.MovementRecordIDs, invoice.ID); err != nil {
			return err
		}

		// A materials-less invoice (flat-fee bill) stays valid: fall back
		// to the supplied subtotal scalar, then to the stored one.
		subtotal, err := subtotalFrom(in, &invoice.Subtotal)
		if err != nil {
			return err
		}
		additional := chargesTotal(in.AdditionalCharges)
		totals := s.tax.ComputeTotals(subtotal, additional, in.CGSTRate, in.SGSTRate)

		if err := tx.Where("invoice_id = ?", invoice.ID).Delete(&models.InvoiceLineItem{}).Error; err != nil {
			return fmt.Errorf("failed to clear line items: %w", err)
		}
		if err := tx.Where("invoice_id = ?", invoice.ID).Delete(&models.InvoiceManifestRef{}).Error; err != nil {
			return fmt.Errorf("failed to clear manifest refs: %w", err)
		}

		items := buildLineItems(in)
		for i := range items {
			items[i].InvoiceID = invoice.ID
		}
		if len(items) > 0 {
			if err := tx.Create(&items).Error; err != nil {
				return fmt.Errorf("failed to insert line items: %w", err)
			}
		}
		refs := buildManifestRefs(in.ManifestNos)
		for i := range refs {
			refs[i].InvoiceID = invoice.ID
		}
		if len(refs) > 0 {
			if err := tx.Create(&refs).Error; err != nil {
				return fmt.Errorf("failed to insert manifest refs: %w", err)
			}
		}

		if err := s.linkage.ReplaceLinks(tx, in.MovementRecordIDs, invoice.ID); err != nil {
			return err
		}

		if !in.Date.IsZero() {
			invoice.Date = in.Date.Time
		}
		if in.CompanyID != nil {
			invoice.CompanyID = in.CompanyID
		}
		if in.TransporterID != nil {
			invoice.TransporterID = in.TransporterID
		}
		if in.CustomerName != "" {
			invoice.CustomerName = in.CustomerName
		}
		if in.PaymentReceived != nil {
			invoice.PaymentReceived = *in.PaymentReceived
		}
		if pd := paymentDate(in); pd != nil {
			invoice.PaymentDate = pd
		}
		invoice.Subtotal = subtotal
		invoice.AdditionalCharges = additional
		invoice.CGST = totals.CGST
		invoice.SGST = totals.SGST
		invoice.GrandTotal = totals.GrandTotal
		invoice.Status = s.tax.DeriveStatus(invoice.PaymentReceived, totals.GrandTotal)

		if err := tx.Save(&invoice).Error; err != nil {
			return fmt.Errorf("failed to save invoice: %w", err)
		}

		invoice.LineItems = items
		invoice.ManifestRefs = refs
		result = &invoice
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx, result.ID)
	s.events.Publish(ctx, EventInvoiceUpdated, result)
	return result, nil
}

// DeleteInvoice unlinks every movement record pointing at the invoice
// before deleting it together with its line items and manifest refs.
// The records themselves are never deleted, they return to the billable
// pool.
func (s *InvoiceService) DeleteInvoice(ctx context.Context, invoiceID string) error {
	var deleted models.Invoice
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&deleted, "id = ?", invoiceID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return newNotFoundError("invoice", invoiceID)
			}
			return fmt.Errorf("failed to load invoice: %w", err)
		}

		if err := s.linkage.Unlink(tx, invoiceID); err != nil {
			return err
		}
		if err := tx.Where("invoice_id = ?", invoiceID).Delete(&models.InvoiceLineItem{}).Error; err != nil {
			return fmt.Errorf("failed to delete line items: %w", err)
		}
		if err := tx.Where("invoice_id = ?", invoiceID).Delete(&models.InvoiceManifestRef{}).Error; err != nil {
			return fmt.Errorf("failed to delete manifest refs: %w", err)
		}
		if err := tx.Delete(&models.Invoice{}, "id = ?", invoiceID).Error; err != nil {
			return fmt.Errorf("failed to delete invoice: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.invalidate(ctx, invoiceID)
	s.events.Publish(ctx, EventInvoiceDeleted, &deleted)
	return nil
}

// RecordPayment sets the received amount and date, then re-derives the
// status. Caller-supplied status is never trusted.
func (s *InvoiceService) RecordPayment(ctx context.Context, invoiceID string, amount decimal.Decimal, receivedOn *time.Time) (*models.Invoice, error) {
	if amount.IsNegative() {
		return nil, newValidationError("paymentReceived", "must not be negative")
	}

	var result *models.Invoice
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var invoice models.Invoice
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&invoice, "id = ?", invoiceID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return newNotFoundError("invoice", invoiceID)
			}
			return fmt.Errorf("failed to load invoice: %w", err)
		}

		invoice.PaymentReceived = amount
		invoice.PaymentDate = receivedOn
		invoice.Status = s.tax.DeriveStatus(amount, invoice.GrandTotal)

		if err := tx.Save(&invoice).Error; err != nil {
			return fmt.Errorf("failed to save payment: %w", err)
		}
		result = &invoice
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx, result.ID)
	s.events.Publish(ctx, EventPaymentRecorded, result)
	return result, nil
}

// GetInvoice loads an invoice with its line items and manifest refs.
func (s *InvoiceService) GetInvoice(ctx context.Context, invoiceID string) (*models.Invoice, error) {
	var invoice models.Invoice
	err := s.db.WithContext(ctx).
		Preload("LineItems").
		Preload("ManifestRefs").
		Preload("Company").
		Preload("Transporter").
		First(&invoice, "id = ?", invoiceID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, newNotFoundError("invoice", invoiceID)
		}
		return nil, fmt.Errorf("failed to load invoice: %w", err)
	}
	return &invoice, nil
}

// InvoiceFilter narrows ListInvoices.
type InvoiceFilter struct {
	Type          models.InvoiceType
	CompanyID     string
	TransporterID string
	Status        models.InvoiceStatus
	From, To      *time.Time
	Limit         int
}

// ListInvoices returns invoices matching the filter, newest first.
func (s *InvoiceService) ListInvoices(ctx context.Context, filter InvoiceFilter) ([]models.Invoice, error) {
	limit := filter.Limit
	if limit <= 0 || limit > 1000 {
		limit = 100
	}

	query := s.db.WithContext(ctx).Model(&models.Invoice{}).
		Preload("LineItems").
		Preload("Company").
		Preload("Transporter").
		Order("date DESC, invoice_no DESC").
		Limit(limit)

	if filter.Type != "" {
		query = query.Where("type = ?", filter.Type)
	}
	if filter.CompanyID != "" {
		query = query.Where("company_id = ?", filter.CompanyID)
	}
	if filter.TransporterID != "" {
		query = query.Where("transporter_id = ?", filter.TransporterID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.From != nil {
		query = query.Where("date >= ?", *filter.From)
	}
	if filter.To != nil {
		query = query.Where("date <= ?", *filter.To)
	}

	var invoices []models.Invoice
	if err := query.Find(&invoices).Error; err != nil {
		return nil, fmt.Errorf("failed to list invoices: %w", err)
	}
	return invoices, nil
}

// ListOpenInvoices returns the not-fully-paid invoices of one
// counterparty, the set the append-mode UI offers before the operator
// chooses "append" vs "new".
func (s *InvoiceService) ListOpenInvoices(ctx context.Context, invoiceType models.InvoiceType, counterpartyID string) ([]models.Invoice, error) {
	query := s.db.WithContext(ctx).Model(&models.Invoice{}).
		Where("type = ?", invoiceType).
		Where("status <> ?", models.InvoiceStatusPaid).
		Order("date DESC")

	switch invoiceType {
	case models.InvoiceTypeCompany:
		query = query.Where("company_id = ?", counterpartyID)
	case models.InvoiceTypeTransporter:
		query = query.Where("transporter_id = ?", counterpartyID)
	case models.InvoiceTypeCustomer:
		query = query.Where("customer_name = ?", counterpartyID)
	default:
		return nil, newValidationError("type", "unknown invoice type")
	}

	var invoices []models.Invoice
	if err := query.Find(&invoices).Error; err != nil {
		return nil, fmt.Errorf("failed to list open invoices: %w", err)
	}
	return invoices, nil
}

func (s *InvoiceService) invalidate(ctx context.Context, invoiceID string) {
	_ = s.cache.Delete(ctx, invoiceAggregateKey(invoiceID))
}

// --- input helpers ---

func validateInvoiceInput(in *InvoiceInput, isCreate bool) error {
	switch in.Type {
	case models.InvoiceTypeCompany:
		if in.CompanyID == nil || *in.CompanyID == "" {
			return newValidationError("companyId", "required for company invoices")
		}
	case models.InvoiceTypeTransporter:
		if in.TransporterID == nil || *in.TransporterID == "" {
			return newValidationError("transporterId", "required for transporter invoices")
		}
	case models.InvoiceTypeCustomer:
		if in.CustomerName == "" {
			return newValidationError("customerName", "required for customer invoices")
		}
	default:
		return newValidationError("type", "must be Company, Transporter or Customer")
	}

	if isCreate {
		if in.Date.IsZero() {
			return newValidationError("date", "required")
		}
		if len(in.Materials) == 0 && in.Subtotal == nil {
			return newValidationError("subtotal", "required when materials is empty")
		}
	}

	if in.Subtotal != nil && in.Subtotal.IsNegative() {
		return newValidationError("subtotal", "must not be negative")
	}
	if in.PaymentReceived != nil && in.PaymentReceived.IsNegative() {
		return newValidationError("paymentReceived", "must not be negative")
	}
	return nil
}

// subtotalFrom computes the subtotal from the material rows, or falls
// back to the explicit scalar, or to existing when updating an invoice
// that keeps its previous flat subtotal.
func subtotalFrom(in *InvoiceInput, existing *decimal.Decimal) (decimal.Decimal, error) {
	if len(in.Materials) > 0 {
		total := decimal.Zero
		for _, m := range in.Materials {
			total = total.Add(lineAmount(m.Quantity, m.Rate, m.Amount))
		}
		return total.Round(2), nil
	}
	if in.Subtotal != nil {
		return in.Subtotal.Round(2), nil
	}
	if existing != nil {
		return *existing, nil
	}
	return decimal.Zero, newValidationError("subtotal", "required when materials is empty")
}

func chargesTotal(charges []ChargeInput) decimal.Decimal {
	total := decimal.Zero
	for _, c := range charges {
		total = total.Add(lineAmount(c.Quantity, c.Rate, c.Amount))
	}
	return total.Round(2)
}

// lineAmount prefers the explicit amount and falls back to qty * rate.
func lineAmount(quantity, rate, amount *decimal.Decimal) decimal.Decimal {
	if amount != nil {
		return *amount
	}
	if quantity != nil && rate != nil {
		return quantity.Mul(*rate)
	}
	return decimal.Zero
}

func buildLineItems(in *InvoiceInput) []models.InvoiceLineItem {
	items := make([]models.InvoiceLineItem, 0, len(in.Materials)+len(in.AdditionalCharges))
	for _, m := range in.Materials {
		description := m.MaterialName
		if description == "" {
			description = m.Description
		}
		items = append(items, models.InvoiceLineItem{
			IsCharge:    false,
			Description: description,
			Quantity:    valueOrZero(m.Quantity),
			Unit:        m.Unit,
			Rate:        valueOrZero(m.Rate),
			Amount:      lineAmount(m.Quantity, m.Rate, m.Amount).Round(2),
			ManifestNo:  m.ManifestNo,
		})
	}
	for _, c := range in.AdditionalCharges {
		items = append(items, models.InvoiceLineItem{
			IsCharge:    true,
			Description: c.Description,
			Quantity:    valueOrZero(c.Quantity),
			Unit:        c.Unit,
			Rate:        valueOrZero(c.Rate),
			Amount:      lineAmount(c.Quantity, c.Rate, c.Amount).Round(2),
		})
	}
	return items
}

// buildManifestRefs collapses duplicates, preserving first-seen order.
func buildManifestRefs(manifestNos []string) []models.InvoiceManifestRef {
	seen := make(map[string]bool, len(manifestNos))
	refs := make([]models.InvoiceManifestRef, 0, len(manifestNos))
	for _, no := range manifestNos {
		no = strings.TrimSpace(no)
		if no == "" || seen[no] {
			continue
		}
		seen[no] = true
		refs = append(refs, models.InvoiceManifestRef{ManifestNo: no})
	}
	return refs
}

func paymentDate(in *InvoiceInput) *time.Time {
	if in.PaymentReceivedOn == nil || in.PaymentReceivedOn.IsZero() {
		return nil
	}
	t := in.PaymentReceivedOn.Time
	return &t
}

func valueOrZero(d *decimal.Decimal) decimal.Decimal {
	if d == nil {
		return decimal.Zero
	}
	return *d
}
