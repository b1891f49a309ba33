package store

import (
	"fmt"
	"strings"
	"time"

	"github.com/store/backend/internal/domain/shared"
)

// ProductOrder is a customer order
type ProductOrder struct {
	shared.BaseEntity
	PlacedDate time.Time   `json:"placedDate" gorm:"not null"`
	Status     OrderStatus `json:"status" gorm:"type:varchar(20);not null"`
	Code       string      `json:"code" gorm:"type:varchar(255);not null"`
}

// TableName returns the table name for GORM
func (ProductOrder) TableName() string {
	return "product_order"
}

// IndexName returns the search index for orders
func (*ProductOrder) IndexName() string {
	return IndexProductOrder
}

// Validate checks the required fields and the status enumeration
func (o *ProductOrder) Validate() error {
	return shared.NewValidation("ProductOrder").
		Require(!o.PlacedDate.IsZero(), "placedDate", "must not be null").
		Require(o.Status != "", "status", "must not be null").
		Require(o.Status == "" || o.Status.Valid(), "status", fmt.Sprintf("unknown order status %q", o.Status)).
		Require(strings.TrimSpace(o.Code) != "", "code", "must not be blank").
		Err()
}
