package store

import (
	"time"

	"github.com/store/backend/internal/domain/shared"
)

// Shipment tracks the delivery of an invoiced order
type Shipment struct {
	shared.BaseEntity
	TrackingCode string    `json:"trackingCode,omitempty" gorm:"type:varchar(255)"`
	Date         time.Time `json:"date" gorm:"not null"`
	Details      string    `json:"details,omitempty" gorm:"type:varchar(255)"`
	InvoiceID    *int64    `json:"-" gorm:"index"`
	Invoice      *Invoice  `json:"invoice,omitempty" gorm:"foreignKey:InvoiceID;constraint:OnDelete:SET NULL"`
}

// TableName returns the table name for GORM
func (Shipment) TableName() string {
	return "shipment"
}

// IndexName returns the search index for shipments
func (*Shipment) IndexName() string {
	return IndexShipment
}

// Validate checks that the shipment date is set
func (s *Shipment) Validate() error {
	return shared.NewValidation("Shipment").
		Require(!s.Date.IsZero(), "date", "must not be null").
		Err()
}

// LinkReferences copies the invoice identity into its foreign key
func (s *Shipment) LinkReferences() {
	s.InvoiceID = refID(s.Invoice)
}
