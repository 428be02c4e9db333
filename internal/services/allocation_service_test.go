package services

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"wastebill/server/internal/models"
)

func TestProjectRecord(t *testing.T) {
	record := func(quantity, rate string) *models.MovementRecord {
		return &models.MovementRecord{
			ID:       "rec-1",
			SerialNo: "IN-202608-0001",
			Quantity: d(quantity),
			Rate:     d(rate),
		}
	}

	t.Run("overhead splits equally across line items", func(t *testing.T) {
		// Subtotal 1000, grand total 1180, two line items: each item
		// carries 90 of overhead, so a 600 base projects to 690.
		agg := &InvoiceAggregate{
			InvoiceNo:    "INV-202608-0001",
			Subtotal:     d("1000"),
			GrandTotal:   d("1180.00"),
			SiblingCount: 2,
		}
		got := ProjectRecord(record("15", "40"), agg) // base 600

		assert.True(t, got.BaseAmount.Equal(d("600.00")), "base = %s", got.BaseAmount)
		assert.True(t, got.AllocatedTotal.Equal(d("690.00")), "allocated = %s", got.AllocatedTotal)
		assert.Equal(t, "INV-202608-0001", got.InvoiceNo)
	})

	t.Run("ratio fallback without a line item count", func(t *testing.T) {
		agg := &InvoiceAggregate{
			Subtotal:     d("1000"),
			GrandTotal:   d("1180.00"),
			SiblingCount: 0,
		}
		got := ProjectRecord(record("15", "40"), agg)
		// 600 * 1180/1000
		assert.True(t, got.AllocatedTotal.Equal(d("708.00")), "allocated = %s", got.AllocatedTotal)
	})

	t.Run("zero subtotal leaves the base unscaled", func(t *testing.T) {
		agg := &InvoiceAggregate{
			Subtotal:     d("0"),
			GrandTotal:   d("0"),
			SiblingCount: 0,
		}
		got := ProjectRecord(record("15", "40"), agg)
		assert.True(t, got.AllocatedTotal.Equal(d("600.00")), "allocated = %s", got.AllocatedTotal)
	})

	t.Run("payment share is proportional to allocated total", func(t *testing.T) {
		agg := &InvoiceAggregate{
			Subtotal:        d("1000"),
			GrandTotal:      d("1180.00"),
			PaymentReceived: d("590"),
			SiblingCount:    2,
			Status:          "partial",
		}
		got := ProjectRecord(record("15", "40"), agg) // allocated 690

		// 690 * 590/1180
		assert.True(t, got.AllocatedPaid.Equal(d("345.00")), "paid = %s", got.AllocatedPaid)
		assert.Equal(t, "partial", got.PaymentStatus)
	})

	t.Run("zero grand total yields zero paid share", func(t *testing.T) {
		agg := &InvoiceAggregate{
			Subtotal:        d("0"),
			GrandTotal:      d("0"),
			PaymentReceived: d("50"),
			SiblingCount:    1,
		}
		got := ProjectRecord(record("0", "0"), agg)
		assert.True(t, got.AllocatedPaid.IsZero())
		assert.True(t, got.AllocatedTotal.IsZero())
	})
}
