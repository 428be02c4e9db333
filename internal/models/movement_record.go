package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// MovementDirection distinguishes inward collections from outward dispatches.
type MovementDirection string

const (
	MovementInward  MovementDirection = "inward"
	MovementOutward MovementDirection = "outward"
)

// MovementRecord is one physical consignment (an inward collection or an
// outward dispatch). InvoiceID is the only link between a record and the
// invoice billing it: nullable, at most one, owned by this side. Deleting
// an invoice nulls the reference, it never deletes the record.
type MovementRecord struct {
	ID        string            `json:"id" gorm:"type:uuid;primaryKey"`
	Direction MovementDirection `json:"direction" gorm:"type:varchar(10);not null;index"`
	SerialNo  string            `json:"serial_no" gorm:"type:varchar(64);uniqueIndex;not null"`
	LotNo     *string           `json:"lot_no" gorm:"type:varchar(64);uniqueIndex"` // inward records only
	Date      time.Time         `json:"date" gorm:"not null;index"`

	CompanyID     *string      `json:"company_id" gorm:"type:uuid;index"`
	Company       *Company     `json:"company,omitempty" gorm:"foreignKey:CompanyID"`
	TransporterID *string      `json:"transporter_id" gorm:"type:uuid;index"`
	Transporter   *Transporter `json:"transporter,omitempty" gorm:"foreignKey:TransporterID"`

	// Regulatory tracking number. Unique per record in practice but not
	// enforced globally: the same manifest can appear on a re-entered row.
	ManifestNo string `json:"manifest_no" gorm:"type:varchar(64);not null;index"`

	MaterialName string          `json:"material_name" gorm:"type:varchar(255)"`
	Quantity     decimal.Decimal `json:"quantity" gorm:"type:decimal(20,4);not null"`
	Unit         string          `json:"unit" gorm:"type:varchar(32)"`
	Rate         decimal.Decimal `json:"rate" gorm:"type:decimal(20,4);not null"`
	VehicleNo    string          `json:"vehicle_no" gorm:"type:varchar(32)"`

	InvoiceID *string `json:"invoice_id" gorm:"type:uuid;index"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime;index"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

func (MovementRecord) TableName() string {
	return "movement_records"
}

func (m *MovementRecord) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	return nil
}

// BaseAmount is the record's own billable value before taxes and charges.
func (m *MovementRecord) BaseAmount() decimal.Decimal {
	return m.Quantity.Mul(m.Rate)
}

// IsInvoiced reports whether the record is currently linked to an invoice.
func (m *MovementRecord) IsInvoiced() bool {
	return m.InvoiceID != nil && *m.InvoiceID != ""
}
