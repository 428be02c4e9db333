package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"wastebill/server/internal/models"
	"wastebill/server/internal/utils"
)

const invoiceAggregateTTL = 10 * time.Minute

func invoiceAggregateKey(invoiceID string) string {
	return "wastebill:invoice_aggregate:" + invoiceID
}

// InvoiceAggregate is the per-invoice summary the projector spreads over
// the invoice's movement records. SiblingCount is the number of line
// items on the invoice, the denominator for the equal overhead split.
type InvoiceAggregate struct {
	InvoiceNo       string          `json:"invoiceNo"`
	Subtotal        decimal.Decimal `json:"subtotal"`
	GrandTotal      decimal.Decimal `json:"grandTotal"`
	PaymentReceived decimal.Decimal `json:"paymentReceived"`
	Status          string          `json:"status"`
	SiblingCount    int             `json:"siblingCount"`
}

// RecordAllocation is a single movement record's projected share of its
// invoice. Display figures only; the invoice totals stay the source of
// truth.
type RecordAllocation struct {
	RecordID        string          `json:"recordId"`
	SerialNo        string          `json:"serialNo"`
	InvoiceNo       string          `json:"invoiceNo"`
	BaseAmount      decimal.Decimal `json:"baseAmount"`
	AllocatedTotal  decimal.Decimal `json:"allocatedTotal"`
	AllocatedPaid   decimal.Decimal `json:"allocatedPaid"`
	PaymentStatus   string          `json:"paymentStatus"`
}

// AllocationService projects invoice-level totals and payments back onto
// individual movement records for per-record reporting.
type AllocationService struct {
	db    *gorm.DB
	cache *utils.RedisClient
}

// NewAllocationService wires the projector with its store and cache.
func NewAllocationService(db *gorm.DB, cache *utils.RedisClient) *AllocationService {
	return &AllocationService{db: db, cache: cache}
}

// ProjectRecord computes one record's share of the aggregate. Taxes and
// charges (grandTotal - subtotal) are split equally across the invoice's
// line items; without a line-item count the share falls back to scaling
// the record's base by grandTotal/subtotal, and a zero subtotal leaves
// the base unscaled. Payment received is spread by the record's share
// of the grand total. Display figures only, never reconciled to the
// exact cent.
func ProjectRecord(record *models.MovementRecord, agg *InvoiceAggregate) RecordAllocation {
	base := record.BaseAmount()

	var allocatedTotal decimal.Decimal
	if agg.SiblingCount > 0 {
		overhead := agg.GrandTotal.Sub(agg.Subtotal).
			Div(decimal.NewFromInt(int64(agg.SiblingCount)))
		allocatedTotal = base.Add(overhead).Round(2)
	} else if agg.Subtotal.IsPositive() {
		allocatedTotal = base.Mul(agg.GrandTotal).Div(agg.Subtotal).Round(2)
	} else {
		allocatedTotal = base.Round(2)
	}

	allocatedPaid := decimal.Zero
	if agg.GrandTotal.IsPositive() {
		allocatedPaid = allocatedTotal.
			Mul(agg.PaymentReceived).
			Div(agg.GrandTotal).
			Round(2)
	}

	return RecordAllocation{
		RecordID:       record.ID,
		SerialNo:       record.SerialNo,
		InvoiceNo:      agg.InvoiceNo,
		BaseAmount:     base.Round(2),
		AllocatedTotal: allocatedTotal,
		AllocatedPaid:  allocatedPaid,
		PaymentStatus:  agg.Status,
	}
}

// AllocationsForInvoice projects every record linked to invoiceID.
func (s *AllocationService) AllocationsForInvoice(ctx context.Context, invoiceID string) ([]RecordAllocation, error) {
	agg, err := s.aggregate(ctx, invoiceID)
	if err != nil {
		return nil, err
	}

	var records []models.MovementRecord
	if err := s.db.WithContext(ctx).
		Where("invoice_id = ?", invoiceID).
		Order("serial_no ASC").
		Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to load linked records: %w", err)
	}

	allocations := make([]RecordAllocation, 0, len(records))
	for i := range records {
		allocations = append(allocations, ProjectRecord(&records[i], agg))
	}
	return allocations, nil
}

// AllocationForRecord projects a single movement record against its
// invoice. Records not linked to any invoice get a zero allocation with
// just their base amount filled in.
func (s *AllocationService) AllocationForRecord(ctx context.Context, recordID string) (*RecordAllocation, error) {
	var record models.MovementRecord
	if err := s.db.WithContext(ctx).First(&record, "id = ?", recordID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, newNotFoundError("movement record", recordID)
		}
		return nil, fmt.Errorf("failed to load movement record: %w", err)
	}

	if !record.IsInvoiced() {
		allocation := RecordAllocation{
			RecordID:   record.ID,
			SerialNo:   record.SerialNo,
			BaseAmount: record.BaseAmount().Round(2),
		}
		return &allocation, nil
	}

	agg, err := s.aggregate(ctx, *record.InvoiceID)
	if err != nil {
		return nil, err
	}
	allocation := ProjectRecord(&record, agg)
	return &allocation, nil
}

// aggregate loads the invoice summary, served from cache when warm.
func (s *AllocationService) aggregate(ctx context.Context, invoiceID string) (*InvoiceAggregate, error) {
	key := invoiceAggregateKey(invoiceID)

	// Cache errors fall through to the database.
	var cached InvoiceAggregate
	if err := s.cache.GetJSON(ctx, key, &cached); err == nil {
		return &cached, nil
	}

	var invoice models.Invoice
	if err := s.db.WithContext(ctx).First(&invoice, "id = ?", invoiceID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, newNotFoundError("invoice", invoiceID)
		}
		return nil, fmt.Errorf("failed to load invoice: %w", err)
	}

	var siblingCount int64
	if err := s.db.WithContext(ctx).Model(&models.InvoiceLineItem{}).
		Where("invoice_id = ?", invoiceID).
		Count(&siblingCount).Error; err != nil {
		return nil, fmt.Errorf("failed to count invoice line items: %w", err)
	}

	agg := InvoiceAggregate{
		InvoiceNo:       invoice.InvoiceNo,
		Subtotal:        invoice.Subtotal,
		GrandTotal:      invoice.GrandTotal,
		PaymentReceived: invoice.PaymentReceived,
		Status:          string(invoice.Status),
		SiblingCount:    int(siblingCount),
	}
	_ = s.cache.SetJSON(ctx, key, agg, invoiceAggregateTTL)
	return &agg, nil
}
