package store

import (
	"strings"

	"github.com/store/backend/internal/domain/shared"
)

// ProductCategory groups products in the catalog
type ProductCategory struct {
	shared.BaseEntity
	Name        string `json:"name" gorm:"type:varchar(255);not null"`
	Description string `json:"description,omitempty" gorm:"type:varchar(255)"`
}

// TableName returns the table name for GORM
func (ProductCategory) TableName() string {
	return "product_category"
}

// IndexName returns the search index for product categories
func (*ProductCategory) IndexName() string {
	return IndexProductCategory
}

// Validate checks the required fields
func (c *ProductCategory) Validate() error {
	return shared.NewValidation("ProductCategory").
		Require(strings.TrimSpace(c.Name) != "", "name", "must not be blank").
		Err()
}
