package store

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/store/backend/internal/domain/shared"
)

// Product is a sellable item of the catalog.
// The image bytes live in object storage; the record keeps only their key.
type Product struct {
	shared.BaseEntity
	Name              string           `json:"name" gorm:"type:varchar(255);not null"`
	Description       string           `json:"description,omitempty" gorm:"type:varchar(255)"`
	Price             *decimal.Decimal `json:"price" gorm:"type:decimal(21,2);not null"`
	Size              Size             `json:"size" gorm:"type:varchar(10);not null"`
	ImageKey          string           `json:"imageKey,omitempty" gorm:"type:varchar(255)"`
	ImageContentType  string           `json:"imageContentType,omitempty" gorm:"type:varchar(100)"`
	ProductCategoryID *int64           `json:"-" gorm:"index"`
	ProductCategory   *ProductCategory `json:"productCategory,omitempty" gorm:"foreignKey:ProductCategoryID;constraint:OnDelete:SET NULL"`
}

// TableName returns the table name for GORM
func (Product) TableName() string {
	return "product"
}

// IndexName returns the search index for products
func (*Product) IndexName() string {
	return IndexProduct
}

// Validate checks required fields, the price floor and the size enumeration
func (p *Product) Validate() error {
	return shared.NewValidation("Product").
		Require(strings.TrimSpace(p.Name) != "", "name", "must not be blank").
		Require(p.Price != nil, "price", "must not be null").
		Require(p.Price == nil || !p.Price.IsNegative(), "price", "must be greater than or equal to 0").
		Require(p.Size != "", "size", "must not be null").
		Require(p.Size == "" || p.Size.Valid(), "size", fmt.Sprintf("unknown size %q", p.Size)).
		Err()
}

// LinkReferences copies the category identity into its foreign key
func (p *Product) LinkReferences() {
	p.ProductCategoryID = refID(p.ProductCategory)
}

// ImageStorageKey is the object key holding the product image
func (p *Product) ImageStorageKey() string {
	return fmt.Sprintf("products/%d/image", p.ID)
}

// AttachImage records a freshly uploaded image
func (p *Product) AttachImage(key, contentType string) {
	p.ImageKey = key
	p.ImageContentType = contentType
}

// HasImage reports whether an image was uploaded
func (p *Product) HasImage() bool {
	return p.ImageKey != ""
}
