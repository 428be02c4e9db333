package services

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"wastebill/server/internal/models"
)

// CompanyService manages the waste-generator registry.
type CompanyService struct {
	db *gorm.DB
}

func NewCompanyService(db *gorm.DB) *CompanyService {
	return &CompanyService{db: db}
}

// CreateCompany registers a new company. GSTIN uniqueness is enforced by
// the index and surfaced as a conflict.
func (s *CompanyService) CreateCompany(ctx context.Context, company *models.Company) error {
	if company.Name == "" {
		return newValidationError("name", "required")
	}
	if err := s.db.WithContext(ctx).Create(company).Error; err != nil {
		if isUniqueViolation(err) {
			return &ConflictError{Message: fmt.Sprintf("GSTIN %s is already registered", company.GSTIN)}
		}
		return fmt.Errorf("failed to create company: %w", err)
	}
	return nil
}

func (s *CompanyService) GetCompany(ctx context.Context, id string) (*models.Company, error) {
	var company models.Company
	if err := s.db.WithContext(ctx).First(&company, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, newNotFoundError("company", id)
		}
		return nil, fmt.Errorf("failed to load company: %w", err)
	}
	return &company, nil
}

// ListCompanies returns registry entries, active ones first by name.
// includeArchived widens the listing to archived entries.
func (s *CompanyService) ListCompanies(ctx context.Context, includeArchived bool) ([]models.Company, error) {
	query := s.db.WithContext(ctx).Model(&models.Company{}).Order("name ASC")
	if !includeArchived {
		query = query.Where("status = ?", models.RegistryStatusActive)
	}
	var companies []models.Company
	if err := query.Find(&companies).Error; err != nil {
		return nil, fmt.Errorf("failed to list companies: %w", err)
	}
	return companies, nil
}

// UpdateCompany applies the non-empty fields of updates to the entry.
func (s *CompanyService) UpdateCompany(ctx context.Context, id string, updates *models.Company) (*models.Company, error) {
	company, err := s.GetCompany(ctx, id)
	if err != nil {
		return nil, err
	}

	if updates.Name != "" {
		company.Name = updates.Name
	}
	if updates.GSTIN != "" {
		company.GSTIN = updates.GSTIN
	}
	if updates.Address != "" {
		company.Address = updates.Address
	}
	if updates.ContactPerson != "" {
		company.ContactPerson = updates.ContactPerson
	}
	if updates.Phone != "" {
		company.Phone = updates.Phone
	}
	if updates.Email != "" {
		company.Email = updates.Email
	}
	if updates.Status != "" {
		company.Status = updates.Status
	}

	if err := s.db.WithContext(ctx).Save(company).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, &ConflictError{Message: fmt.Sprintf("GSTIN %s is already registered", company.GSTIN)}
		}
		return nil, fmt.Errorf("failed to update company: %w", err)
	}
	return company, nil
}

// ArchiveCompany soft-archives an entry so it stops appearing in pickers
// while its historical invoices keep resolving.
func (s *CompanyService) ArchiveCompany(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Model(&models.Company{}).
		Where("id = ?", id).
		Update("status", models.RegistryStatusArchived)
	if res.Error != nil {
		return fmt.Errorf("failed to archive company: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return newNotFoundError("company", id)
	}
	return nil
}
