package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// InvoiceType identifies which counterparty class an invoice bills.
type InvoiceType string

const (
	InvoiceTypeCompany     InvoiceType = "Company"     // waste generator company
	InvoiceTypeTransporter InvoiceType = "Transporter" // transport contractor
	InvoiceTypeCustomer    InvoiceType = "Customer"    // ad-hoc customer billed by name
)

// InvoiceStatus is derived from payment received vs grand total.
// It is recomputed on every write and never trusted as caller input.
type InvoiceStatus string

const (
	InvoiceStatusPaid    InvoiceStatus = "paid"
	InvoiceStatusPartial InvoiceStatus = "partial"
	InvoiceStatusPending InvoiceStatus = "pending"
)

// Invoice is a GST invoice consolidating one or more movement records.
// Movement records point at the invoice via their own nullable InvoiceID;
// the invoice holds no collection pointer back, traversal is by query.
type Invoice struct {
	ID        string      `json:"id" gorm:"type:uuid;primaryKey"`
	InvoiceNo string      `json:"invoice_no" gorm:"type:varchar(64);uniqueIndex;not null"`
	Type      InvoiceType `json:"type" gorm:"type:varchar(20);not null;index"`
	Date      time.Time   `json:"date" gorm:"not null;index"`

	CompanyID     *string      `json:"company_id" gorm:"type:uuid;index"`
	Company       *Company     `json:"company,omitempty" gorm:"foreignKey:CompanyID"`
	TransporterID *string      `json:"transporter_id" gorm:"type:uuid;index"`
	Transporter   *Transporter `json:"transporter,omitempty" gorm:"foreignKey:TransporterID"`
	CustomerName  string       `json:"customer_name" gorm:"type:varchar(255)"`

	Subtotal          decimal.Decimal `json:"subtotal" gorm:"type:decimal(15,2);not null"`
	AdditionalCharges decimal.Decimal `json:"additional_charges" gorm:"type:decimal(15,2);not null"`
	CGST              decimal.Decimal `json:"cgst" gorm:"type:decimal(15,2);not null"`
	SGST              decimal.Decimal `json:"sgst" gorm:"type:decimal(15,2);not null"`
	GrandTotal        decimal.Decimal `json:"grand_total" gorm:"type:decimal(15,2);not null"`

	PaymentReceived decimal.Decimal `json:"payment_received" gorm:"type:decimal(15,2);not null;default:0"`
	PaymentDate     *time.Time      `json:"payment_date"`
	Status          InvoiceStatus   `json:"status" gorm:"type:varchar(10);not null;index"`

	LineItems    []InvoiceLineItem    `json:"line_items" gorm:"foreignKey:InvoiceID;constraint:OnDelete:CASCADE"`
	ManifestRefs []InvoiceManifestRef `json:"manifest_refs" gorm:"foreignKey:InvoiceID;constraint:OnDelete:CASCADE"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime;index"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

func (Invoice) TableName() string {
	return "invoices"
}

// BeforeCreate generates the UUID and defaults the status.
func (i *Invoice) BeforeCreate(tx *gorm.DB) error {
	if i.ID == "" {
		i.ID = uuid.New().String()
	}
	if i.Status == "" {
		i.Status = InvoiceStatusPending
	}
	return nil
}

// IsOpen reports whether the invoice can still take appended items.
func (i *Invoice) IsOpen() bool {
	return i.Status != InvoiceStatusPaid
}

// CounterpartyLabel returns a display name for the billed party.
func (i *Invoice) CounterpartyLabel() string {
	switch {
	case i.Company != nil:
		return i.Company.Name
	case i.Transporter != nil:
		return i.Transporter.Name
	default:
		return i.CustomerName
	}
}

// InvoiceLineItem is one billed row: either a material (IsCharge false)
// or an additional charge (IsCharge true). ManifestNo is a display-only
// back-reference, not a foreign key.
type InvoiceLineItem struct {
	ID          string          `json:"id" gorm:"type:uuid;primaryKey"`
	InvoiceID   string          `json:"invoice_id" gorm:"type:uuid;index;not null"`
	IsCharge    bool            `json:"is_charge" gorm:"not null;default:false"`
	Description string          `json:"description" gorm:"type:varchar(255);not null"`
	Quantity    decimal.Decimal `json:"quantity" gorm:"type:decimal(20,4);not null;default:0"`
	Unit        string          `json:"unit" gorm:"type:varchar(32)"`
	Rate        decimal.Decimal `json:"rate" gorm:"type:decimal(20,4);not null;default:0"`
	Amount      decimal.Decimal `json:"amount" gorm:"type:decimal(15,2);not null"`
	ManifestNo  string          `json:"manifest_no" gorm:"type:varchar(64)"`
	CreatedAt   time.Time       `json:"created_at" gorm:"autoCreateTime"`
}

func (InvoiceLineItem) TableName() string {
	return "invoice_line_items"
}

func (li *InvoiceLineItem) BeforeCreate(tx *gorm.DB) error {
	if li.ID == "" {
		li.ID = uuid.New().String()
	}
	return nil
}

// InvoiceManifestRef attaches a manifest number to an invoice for audit
// and search. The composite unique index gives the set its semantics.
type InvoiceManifestRef struct {
	ID         string    `json:"id" gorm:"type:uuid;primaryKey"`
	InvoiceID  string    `json:"invoice_id" gorm:"type:uuid;not null;uniqueIndex:idx_invoice_manifest"`
	ManifestNo string    `json:"manifest_no" gorm:"type:varchar(64);not null;uniqueIndex:idx_invoice_manifest;index"`
	CreatedAt  time.Time `json:"created_at" gorm:"autoCreateTime"`
}

func (InvoiceManifestRef) TableName() string {
	return "invoice_manifest_refs"
}

func (r *InvoiceManifestRef) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	return nil
}
