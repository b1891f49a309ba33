package store

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/store/backend/internal/domain/shared"
)

// Invoice bills a product order
type Invoice struct {
	shared.BaseEntity
	Code          string           `json:"code" gorm:"type:varchar(255);not null"`
	Date          time.Time        `json:"date" gorm:"not null"`
	Details       string           `json:"details,omitempty" gorm:"type:varchar(255)"`
	Status        InvoiceStatus    `json:"status" gorm:"type:varchar(20);not null"`
	PaymentMethod PaymentMethod    `json:"paymentMethod" gorm:"type:varchar(20);not null"`
	PaymentDate   time.Time        `json:"paymentDate" gorm:"not null"`
	PaymentAmount *decimal.Decimal `json:"paymentAmount" gorm:"type:decimal(21,2);not null"`
	OrderID       *int64           `json:"-" gorm:"index"`
	Order         *ProductOrder    `json:"order,omitempty" gorm:"foreignKey:OrderID;constraint:OnDelete:SET NULL"`
}

// TableName returns the table name for GORM
func (Invoice) TableName() string {
	return "invoice"
}

// IndexName returns the search index for invoices
func (*Invoice) IndexName() string {
	return IndexInvoice
}

// Validate checks the required fields and both enumerations
func (inv *Invoice) Validate() error {
	return shared.NewValidation("Invoice").
		Require(strings.TrimSpace(inv.Code) != "", "code", "must not be blank").
		Require(!inv.Date.IsZero(), "date", "must not be null").
		Require(inv.Status != "", "status", "must not be null").
		Require(inv.Status == "" || inv.Status.Valid(), "status", fmt.Sprintf("unknown invoice status %q", inv.Status)).
		Require(inv.PaymentMethod != "", "paymentMethod", "must not be null").
		Require(inv.PaymentMethod == "" || inv.PaymentMethod.Valid(), "paymentMethod", fmt.Sprintf("unknown payment method %q", inv.PaymentMethod)).
		Require(!inv.PaymentDate.IsZero(), "paymentDate", "must not be null").
		Require(inv.PaymentAmount != nil, "paymentAmount", "must not be null").
		Err()
}

// LinkReferences copies the order identity into its foreign key
func (inv *Invoice) LinkReferences() {
	inv.OrderID = refID(inv.Order)
}
