package services

import (
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const sequenceWidth = 4

// SequenceService allocates collision-free sequential identifiers
// (invoice numbers, lot numbers, movement serial numbers) scoped by a
// prefix. Every method takes the caller's transaction handle so the
// read-max and the insert consuming the number commit together; the
// unique index on the target column is the backstop, and a violation
// there surfaces as a retryable conflict.
type SequenceService struct {
	invoicePrefix string
	lotPrefix     string
}

// NewSequenceService creates an allocator with the configured prefixes.
func NewSequenceService(invoicePrefix, lotPrefix string) *SequenceService {
	return &SequenceService{
		invoicePrefix: invoicePrefix,
		lotPrefix:     lotPrefix,
	}
}

// InvoicePrefixFor builds the monthly invoice scope, e.g. INV-202608.
func (s *SequenceService) InvoicePrefixFor(date time.Time) string {
	return fmt.Sprintf("%s-%s", s.invoicePrefix, date.Format("200601"))
}

// NextInvoiceNumber allocates the next invoice number in the month scope
// of date, e.g. INV-202608-0007.
func (s *SequenceService) NextInvoiceNumber(tx *gorm.DB, date time.Time) (string, error) {
	return s.nextNumber(tx, "invoices", "invoice_no", s.InvoicePrefixFor(date))
}

// NextLotNumber allocates the next lot number grouping inward movement
// records for the month of date, e.g. LOT-202608-0012.
func (s *SequenceService) NextLotNumber(tx *gorm.DB, date time.Time) (string, error) {
	prefix := fmt.Sprintf("%s-%s", s.lotPrefix, date.Format("200601"))
	return s.nextNumber(tx, "movement_records", "lot_no", prefix)
}

// NextSerialNumber allocates the next serial number for a movement
// direction within the month of date, e.g. IN-202608-0031.
func (s *SequenceService) NextSerialNumber(tx *gorm.DB, directionPrefix string, date time.Time) (string, error) {
	prefix := fmt.Sprintf("%s-%s", directionPrefix, date.Format("200601"))
	return s.nextNumber(tx, "movement_records", "serial_no", prefix)
}

// nextNumber reads the highest identifier in the scope under a row lock
// and returns it incremented. The lock narrows the race window; the
// unique index closes it.
func (s *SequenceService) nextNumber(tx *gorm.DB, table, column, prefix string) (string, error) {
	var last sql.NullString
	err := tx.Table(table).
		Select(column).
		Where(column+" LIKE ?", prefix+"-%").
		Order(column + " DESC").
		Limit(1).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Scan(&last).Error
	if err != nil {
		return "", fmt.Errorf("failed to read last %s.%s: %w", table, column, err)
	}

	next := 1
	if last.Valid {
		suffix, err := parseSequenceSuffix(last.String)
		if err != nil {
			return "", fmt.Errorf("malformed identifier %q in %s.%s: %w", last.String, table, column, err)
		}
		next = suffix + 1
	}
	return formatSequence(prefix, next), nil
}

// parseSequenceSuffix extracts the trailing numeric suffix of an
// identifier like INV-202608-0042.
func parseSequenceSuffix(identifier string) (int, error) {
	idx := strings.LastIndex(identifier, "-")
	if idx < 0 || idx == len(identifier)-1 {
		return 0, fmt.Errorf("no numeric suffix")
	}
	n, err := strconv.Atoi(identifier[idx+1:])
	if err != nil {
		return 0, fmt.Errorf("suffix is not a number: %w", err)
	}
	return n, nil
}

// formatSequence renders a scope prefix and counter as PREFIX-NNNN with
// fixed-width zero padding.
func formatSequence(prefix string, n int) string {
	return fmt.Sprintf("%s-%0*d", prefix, sequenceWidth, n)
}
