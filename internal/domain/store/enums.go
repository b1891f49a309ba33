package store

// Size is the garment size of a product
type Size string

const (
	SizeS   Size = "S"
	SizeM   Size = "M"
	SizeL   Size = "L"
	SizeXL  Size = "XL"
	SizeXXL Size = "XXL"
)

// Valid reports whether s is a declared size
func (s Size) Valid() bool {
	switch s {
	case SizeS, SizeM, SizeL, SizeXL, SizeXXL:
		return true
	}
	return false
}

// OrderStatus is the state of a product order
type OrderStatus string

const (
	OrderStatusCompleted OrderStatus = "COMPLETED"
	OrderStatusPending   OrderStatus = "PENDING"
	OrderStatusCancelled OrderStatus = "CANCELLED"
)

// Valid reports whether s is a declared order status
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusCompleted, OrderStatusPending, OrderStatusCancelled:
		return true
	}
	return false
}

// OrderItemStatus is the availability of an ordered item
type OrderItemStatus string

const (
	OrderItemStatusAvailable  OrderItemStatus = "AVAILABLE"
	OrderItemStatusOutOfStock OrderItemStatus = "OUT_OF_STOCK"
	OrderItemStatusBackOrder  OrderItemStatus = "BACK_ORDER"
)

// Valid reports whether s is a declared order item status
func (s OrderItemStatus) Valid() bool {
	switch s {
	case OrderItemStatusAvailable, OrderItemStatusOutOfStock, OrderItemStatusBackOrder:
		return true
	}
	return false
}

// InvoiceStatus is the payment state of an invoice
type InvoiceStatus string

const (
	InvoiceStatusPaid      InvoiceStatus = "PAID"
	InvoiceStatusIssued    InvoiceStatus = "ISSUED"
	InvoiceStatusCancelled InvoiceStatus = "CANCELLED"
)

// Valid reports whether s is a declared invoice status
func (s InvoiceStatus) Valid() bool {
	switch s {
	case InvoiceStatusPaid, InvoiceStatusIssued, InvoiceStatusCancelled:
		return true
	}
	return false
}

// PaymentMethod is how an invoice was paid
type PaymentMethod string

const (
	PaymentMethodCreditCard     PaymentMethod = "CREDIT_CARD"
	PaymentMethodCashOnDelivery PaymentMethod = "CASH_ON_DELIVERY"
	PaymentMethodPaypal         PaymentMethod = "PAYPAL"
)

// Valid reports whether m is a declared payment method
func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentMethodCreditCard, PaymentMethodCashOnDelivery, PaymentMethodPaypal:
		return true
	}
	return false
}
