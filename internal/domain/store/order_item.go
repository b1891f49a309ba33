package store

import (
	"fmt"

	"github.com/store/backend/internal/domain/shared"
)

// OrderItem is one line of a product order
type OrderItem struct {
	shared.BaseEntity
	Quantity  *int            `json:"quantity" gorm:"not null"`
	Status    OrderItemStatus `json:"status" gorm:"type:varchar(20);not null"`
	ProductID *int64          `json:"-" gorm:"index"`
	Product   *Product        `json:"product,omitempty" gorm:"foreignKey:ProductID;constraint:OnDelete:SET NULL"`
	OrderID   *int64          `json:"-" gorm:"index"`
	Order     *ProductOrder   `json:"order,omitempty" gorm:"foreignKey:OrderID;constraint:OnDelete:SET NULL"`
}

// TableName returns the table name for GORM
func (OrderItem) TableName() string {
	return "order_item"
}

// IndexName returns the search index for order items
func (*OrderItem) IndexName() string {
	return IndexOrderItem
}

// Validate checks the quantity floor and the status enumeration
func (i *OrderItem) Validate() error {
	return shared.NewValidation("OrderItem").
		Require(i.Quantity != nil, "quantity", "must not be null").
		Require(i.Quantity == nil || *i.Quantity >= 0, "quantity", "must be greater than or equal to 0").
		Require(i.Status != "", "status", "must not be null").
		Require(i.Status == "" || i.Status.Valid(), "status", fmt.Sprintf("unknown order item status %q", i.Status)).
		Err()
}

// LinkReferences copies the product and order identities into their foreign keys
func (i *OrderItem) LinkReferences() {
	i.ProductID = refID(i.Product)
	i.OrderID = refID(i.Order)
}
