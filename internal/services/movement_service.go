package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"wastebill/server/internal/models"
)

// Direction prefixes used in movement serial numbers.
const (
	serialPrefixInward  = "IN"
	serialPrefixOutward = "OUT"
)

// MovementInput is the request body for creating a movement record.
// Inward entries additionally get a lot number allocated; LotNo may pin
// an existing lot to append a record to it.
type MovementInput struct {
	Direction     models.MovementDirection `json:"direction"`
	Date          ISODate                  `json:"date"`
	CompanyID     *string                  `json:"companyId"`
	TransporterID *string                  `json:"transporterId"`
	ManifestNo    string                   `json:"manifestNo"`
	MaterialName  string                   `json:"materialName"`
	Quantity      decimal.Decimal          `json:"quantity"`
	Unit          string                   `json:"unit"`
	Rate          decimal.Decimal          `json:"rate"`
	VehicleNo     string                   `json:"vehicleNo"`
	LotNo         string                   `json:"lotNo"`
}

// MovementService manages the inward/outward movement records that
// invoices consolidate.
type MovementService struct {
	db        *gorm.DB
	sequences *SequenceService
}

// NewMovementService wires the service with its store and allocator.
func NewMovementService(db *gorm.DB, sequences *SequenceService) *MovementService {
	return &MovementService{db: db, sequences: sequences}
}

// CreateMovement persists a new movement record, allocating its serial
// number (and, for inward entries without a pinned lot, a lot number) in
// the same transaction. Serial collisions under concurrent creates are
// retried.
func (s *MovementService) CreateMovement(ctx context.Context, in *MovementInput) (*models.MovementRecord, error) {
	if err := validateMovementInput(in); err != nil {
		return nil, err
	}

	var (
		result  *models.MovementRecord
		lastErr error
	)
	for attempt := 0; attempt < maxNumberRetries; attempt++ {
		result, lastErr = s.createOnce(ctx, in)
		if lastErr == nil {
			return result, nil
		}
		if !IsRetryableConflict(lastErr) {
			return nil, lastErr
		}
	}
	return nil, lastErr
}

func (s *MovementService) createOnce(ctx context.Context, in *MovementInput) (*models.MovementRecord, error) {
	var result *models.MovementRecord

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		prefix := serialPrefixInward
		if in.Direction == models.MovementOutward {
			prefix = serialPrefixOutward
		}

		serial, err := s.sequences.NextSerialNumber(tx, prefix, in.Date.Time)
		if err != nil {
			return err
		}

		record := models.MovementRecord{
			Direction:     in.Direction,
			SerialNo:      serial,
			Date:          in.Date.Time,
			CompanyID:     in.CompanyID,
			TransporterID: in.TransporterID,
			ManifestNo:    in.ManifestNo,
			MaterialName:  in.MaterialName,
			Quantity:      in.Quantity,
			Unit:          in.Unit,
			Rate:          in.Rate,
			VehicleNo:     in.VehicleNo,
		}

		if in.Direction == models.MovementInward {
			lot := in.LotNo
			if lot == "" {
				lot, err = s.sequences.NextLotNumber(tx, in.Date.Time)
				if err != nil {
					return err
				}
			}
			record.LotNo = &lot
		}

		if err := tx.Create(&record).Error; err != nil {
			if isUniqueViolation(err) {
				return newNumberConflict(serial)
			}
			return fmt.Errorf("failed to persist movement record: %w", err)
		}

		result = &record
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// GetMovement loads a single record.
func (s *MovementService) GetMovement(ctx context.Context, recordID string) (*models.MovementRecord, error) {
	var record models.MovementRecord
	err := s.db.WithContext(ctx).
		Preload("Company").
		Preload("Transporter").
		First(&record, "id = ?", recordID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, newNotFoundError("movement record", recordID)
		}
		return nil, fmt.Errorf("failed to load movement record: %w", err)
	}
	return &record, nil
}

// MovementFilter narrows ListMovements. Unbilled selects only records
// not yet linked to an invoice, the candidate pool for consolidation.
type MovementFilter struct {
	Direction     models.MovementDirection
	CompanyID     string
	TransporterID string
	Unbilled      bool
	From, To      *time.Time
	Limit         int
}

// ListMovements returns records matching the filter, newest first.
func (s *MovementService) ListMovements(ctx context.Context, filter MovementFilter) ([]models.MovementRecord, error) {
	limit := filter.Limit
	if limit <= 0 || limit > 1000 {
		limit = 200
	}

	query := s.db.WithContext(ctx).Model(&models.MovementRecord{}).
		Preload("Company").
		Preload("Transporter").
		Order("date DESC, serial_no DESC").
		Limit(limit)

	if filter.Direction != "" {
		query = query.Where("direction = ?", filter.Direction)
	}
	if filter.CompanyID != "" {
		query = query.Where("company_id = ?", filter.CompanyID)
	}
	if filter.TransporterID != "" {
		query = query.Where("transporter_id = ?", filter.TransporterID)
	}
	if filter.Unbilled {
		query = query.Where("invoice_id IS NULL")
	}
	if filter.From != nil {
		query = query.Where("date >= ?", *filter.From)
	}
	if filter.To != nil {
		query = query.Where("date <= ?", *filter.To)
	}

	var records []models.MovementRecord
	if err := query.Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to list movement records: %w", err)
	}
	return records, nil
}

// DeleteMovement removes an unbilled record. Billed records must be
// unlinked through their invoice first.
func (s *MovementService) DeleteMovement(ctx context.Context, recordID string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var record models.MovementRecord
		if err := tx.First(&record, "id = ?", recordID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return newNotFoundError("movement record", recordID)
			}
			return fmt.Errorf("failed to load movement record: %w", err)
		}
		if record.IsInvoiced() {
			return &ConflictError{
				ManifestNo: record.ManifestNo,
				Message:    fmt.Sprintf("record %s is billed and cannot be deleted", record.SerialNo),
			}
		}
		if err := tx.Delete(&record).Error; err != nil {
			return fmt.Errorf("failed to delete movement record: %w", err)
		}
		return nil
	})
}

func validateMovementInput(in *MovementInput) error {
	if in.Direction != models.MovementInward && in.Direction != models.MovementOutward {
		return newValidationError("direction", "must be inward or outward")
	}
	if in.Date.IsZero() {
		return newValidationError("date", "required")
	}
	if in.MaterialName == "" {
		return newValidationError("materialName", "required")
	}
	if in.Quantity.IsNegative() {
		return newValidationError("quantity", "must not be negative")
	}
	if in.Rate.IsNegative() {
		return newValidationError("rate", "must not be negative")
	}
	return nil
}
