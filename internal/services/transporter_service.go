package services

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"wastebill/server/internal/models"
)

// TransporterService manages the transport-contractor registry.
type TransporterService struct {
	db *gorm.DB
}

func NewTransporterService(db *gorm.DB) *TransporterService {
	return &TransporterService{db: db}
}

func (s *TransporterService) CreateTransporter(ctx context.Context, transporter *models.Transporter) error {
	if transporter.Name == "" {
		return newValidationError("name", "required")
	}
	if err := s.db.WithContext(ctx).Create(transporter).Error; err != nil {
		if isUniqueViolation(err) {
			return &ConflictError{Message: fmt.Sprintf("GSTIN %s is already registered", transporter.GSTIN)}
		}
		return fmt.Errorf("failed to create transporter: %w", err)
	}
	return nil
}

func (s *TransporterService) GetTransporter(ctx context.Context, id string) (*models.Transporter, error) {
	var transporter models.Transporter
	if err := s.db.WithContext(ctx).First(&transporter, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, newNotFoundError("transporter", id)
		}
		return nil, fmt.Errorf("failed to load transporter: %w", err)
	}
	return &transporter, nil
}

func (s *TransporterService) ListTransporters(ctx context.Context, includeArchived bool) ([]models.Transporter, error) {
	query := s.db.WithContext(ctx).Model(&models.Transporter{}).Order("name ASC")
	if !includeArchived {
		query = query.Where("status = ?", models.RegistryStatusActive)
	}
	var transporters []models.Transporter
	if err := query.Find(&transporters).Error; err != nil {
		return nil, fmt.Errorf("failed to list transporters: %w", err)
	}
	return transporters, nil
}

func (s *TransporterService) UpdateTransporter(ctx context.Context, id string, updates *models.Transporter) (*models.Transporter, error) {
	transporter, err := s.GetTransporter(ctx, id)
	if err != nil {
		return nil, err
	}

	if updates.Name != "" {
		transporter.Name = updates.Name
	}
	if updates.GSTIN != "" {
		transporter.GSTIN = updates.GSTIN
	}
	if updates.Address != "" {
		transporter.Address = updates.Address
	}
	if updates.ContactPerson != "" {
		transporter.ContactPerson = updates.ContactPerson
	}
	if updates.Phone != "" {
		transporter.Phone = updates.Phone
	}
	if updates.VehicleNos != "" {
		transporter.VehicleNos = updates.VehicleNos
	}
	if updates.Status != "" {
		transporter.Status = updates.Status
	}

	if err := s.db.WithContext(ctx).Save(transporter).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, &ConflictError{Message: fmt.Sprintf("GSTIN %s is already registered", transporter.GSTIN)}
		}
		return nil, fmt.Errorf("failed to update transporter: %w", err)
	}
	return transporter, nil
}

func (s *TransporterService) ArchiveTransporter(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Model(&models.Transporter{}).
		Where("id = ?", id).
		Update("status", models.RegistryStatusArchived)
	if res.Error != nil {
		return fmt.Errorf("failed to archive transporter: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return newNotFoundError("transporter", id)
	}
	return nil
}
