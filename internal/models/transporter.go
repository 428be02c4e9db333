package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Transporter is a transport contractor moving consignments for the operator.
type Transporter struct {
	ID            string         `json:"id" gorm:"type:uuid;primaryKey"`
	Name          string         `json:"name" gorm:"type:varchar(255);not null"`
	GSTIN         string         `json:"gstin" gorm:"type:varchar(20);uniqueIndex"`
	Address       string         `json:"address" gorm:"type:text"`
	ContactPerson string         `json:"contact_person" gorm:"type:varchar(255)"`
	Phone         string         `json:"phone" gorm:"type:varchar(50)"`
	VehicleNos    string         `json:"vehicle_nos" gorm:"type:text"` // comma separated registration numbers
	Status        RegistryStatus `json:"status" gorm:"type:varchar(20);default:'Active';index"`

	CreatedAt time.Time      `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time      `json:"updated_at" gorm:"autoUpdateTime"`
	DeletedAt gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}

func (Transporter) TableName() string {
	return "transporters"
}

func (t *Transporter) BeforeCreate(tx *gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	if t.Status == "" {
		t.Status = RegistryStatusActive
	}
	return nil
}
