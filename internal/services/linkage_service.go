package services

import (
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"wastebill/server/internal/models"
)

// LinkageService enforces the at-most-one-invoice-per-movement-record
// invariant. All methods run on the caller's transaction so linkage
// changes commit atomically with the invoice write that caused them.
type LinkageService struct {
	db *gorm.DB
}

// NewLinkageService creates the guard with its store handle.
func NewLinkageService(db *gorm.DB) *LinkageService {
	return &LinkageService{db: db}
}

// ValidateLinkable checks that every record in recordIDs is free to be
// linked. A record already pointing at a different invoice fails with a
// conflict naming the record's manifest number and the holding invoice's
// number, so the operator can decide whether to switch to append mode.
// excludeInvoiceID permits records already linked to the invoice being
// updated.
func (s *LinkageService) ValidateLinkable(tx *gorm.DB, recordIDs []string, excludeInvoiceID string) error {
	if len(recordIDs) == 0 {
		return nil
	}

	var records []models.MovementRecord
	if err := tx.
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id IN ?", recordIDs).
		Find(&records).Error; err != nil {
		return fmt.Errorf("failed to load movement records: %w", err)
	}

	if len(records) != len(recordIDs) {
		found := make(map[string]bool, len(records))
		for _, r := range records {
			found[r.ID] = true
		}
		for _, id := range recordIDs {
			if !found[id] {
				return newNotFoundError("movement record", id)
			}
		}
	}

	for _, record := range records {
		if !record.IsInvoiced() {
			continue
		}
		if excludeInvoiceID != "" && *record.InvoiceID == excludeInvoiceID {
			continue
		}
		var holder models.Invoice
		if err := tx.Select("invoice_no").First(&holder, "id = ?", *record.InvoiceID).Error; err != nil {
			return fmt.Errorf("failed to resolve holding invoice for record %s: %w", record.ID, err)
		}
		return newLinkageConflict(record.ManifestNo, holder.InvoiceNo)
	}
	return nil
}

// Link points every record in recordIDs at invoiceID.
func (s *LinkageService) Link(tx *gorm.DB, recordIDs []string, invoiceID string) error {
	if len(recordIDs) == 0 {
		return nil
	}
	res := tx.Model(&models.MovementRecord{}).
		Where("id IN ?", recordIDs).
		Update("invoice_id", invoiceID)
	if res.Error != nil {
		return fmt.Errorf("failed to link movement records: %w", res.Error)
	}
	if res.RowsAffected != int64(len(recordIDs)) {
		return newNotFoundError("movement record", "in link set")
	}
	return nil
}

// Unlink nulls the reference on every record currently pointing at
// invoiceID.
func (s *LinkageService) Unlink(tx *gorm.DB, invoiceID string) error {
	err := tx.Model(&models.MovementRecord{}).
		Where("invoice_id = ?", invoiceID).
		Update("invoice_id", nil).Error
	if err != nil {
		return fmt.Errorf("failed to unlink movement records: %w", err)
	}
	return nil
}

// ReplaceLinks makes recordIDs the exact linked set of invoiceID:
// unlink-all-then-link-selected, never a diff. The final state equals
// the supplied set even if the earlier state was inconsistent.
func (s *LinkageService) ReplaceLinks(tx *gorm.DB, recordIDs []string, invoiceID string) error {
	if err := s.Unlink(tx, invoiceID); err != nil {
		return err
	}
	return s.Link(tx, recordIDs, invoiceID)
}

// LinkedRecords returns the records currently billed by invoiceID.
func (s *LinkageService) LinkedRecords(tx *gorm.DB, invoiceID string) ([]models.MovementRecord, error) {
	var records []models.MovementRecord
	if err := tx.Where("invoice_id = ?", invoiceID).Order("serial_no ASC").Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to load linked records: %w", err)
	}
	return records, nil
}
