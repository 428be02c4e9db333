package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// RegistryStatus marks a registry entry active or archived.
type RegistryStatus string

const (
	RegistryStatusActive   RegistryStatus = "Active"
	RegistryStatusArchived RegistryStatus = "Archived"
)

// Company is a waste generator registered with the operator.
type Company struct {
	ID            string         `json:"id" gorm:"type:uuid;primaryKey"`
	Name          string         `json:"name" gorm:"type:varchar(255);not null"`
	GSTIN         string         `json:"gstin" gorm:"type:varchar(20);uniqueIndex"`
	Address       string         `json:"address" gorm:"type:text"`
	ContactPerson string         `json:"contact_person" gorm:"type:varchar(255)"`
	Phone         string         `json:"phone" gorm:"type:varchar(50)"`
	Email         string         `json:"email" gorm:"type:varchar(255)"`
	Status        RegistryStatus `json:"status" gorm:"type:varchar(20);default:'Active';index"`

	CreatedAt time.Time      `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time      `json:"updated_at" gorm:"autoUpdateTime"`
	DeletedAt gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}

func (Company) TableName() string {
	return "companies"
}

func (c *Company) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	if c.Status == "" {
		c.Status = RegistryStatusActive
	}
	return nil
}
