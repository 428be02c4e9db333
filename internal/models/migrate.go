package models

import "gorm.io/gorm"

// AutoMigrate creates or updates the billing schema. Order matters:
// registries first, then invoices, then the records referencing them.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&Company{},
		&Transporter{},
		&Invoice{},
		&InvoiceLineItem{},
		&InvoiceManifestRef{},
		&MovementRecord{},
	)
}
