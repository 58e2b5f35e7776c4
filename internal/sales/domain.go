package sales

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/coffee-export/export-manager/internal/shared"
)

// ShippingStatus tracks the physical progress of an order.
type ShippingStatus string

const (
	ShippingPending   ShippingStatus = "Pending"
	ShippingShipped   ShippingStatus = "Shipped"
	ShippingDelivered ShippingStatus = "Delivered"
)

// Valid reports whether s is a known shipping status.
func (s ShippingStatus) Valid() bool {
	switch s {
	case ShippingPending, ShippingShipped, ShippingDelivered:
		return true
	}
	return false
}

// Document is shipping paperwork metadata. Files themselves are not stored.
type Document struct {
	Name string `json:"name" validate:"required,max=200"`
	Type string `json:"type" validate:"required,max=50"`
}

// Order is a sales order for a quantity of green coffee.
type Order struct {
	ID              uuid.UUID       `json:"id"`
	CustomerID      uuid.UUID       `json:"customer_id"`
	Product         string          `json:"product"`
	Grade           string          `json:"grade"`
	QuantityKg      decimal.Decimal `json:"quantity_kg"`
	UnitPrice       decimal.Decimal `json:"unit_price"`
	TotalAmount     decimal.Decimal `json:"total_amount"`
	ShippingStatus  ShippingStatus  `json:"shipping_status"`
	OrderDate       shared.Date     `json:"order_date"`
	LinkedInvoiceID *uuid.UUID      `json:"linked_invoice_id"`
	Documents       []Document      `json:"documents"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// OrderTotal is the only way an order total is computed.
func OrderTotal(quantityKg, unitPrice decimal.Decimal) decimal.Decimal {
	return quantityKg.Mul(unitPrice)
}

// Recalculate resets TotalAmount from quantity and unit price.
func (o *Order) Recalculate() {
	o.TotalAmount = OrderTotal(o.QuantityKg, o.UnitPrice)
}

// Invoiced reports whether an invoice is linked to the order.
func (o Order) Invoiced() bool {
	return o.LinkedInvoiceID != nil
}

// CreateOrderRequest carries the fields for a new order. TotalAmount is
// accepted for form compatibility and always ignored.
type CreateOrderRequest struct {
	CustomerID     uuid.UUID        `json:"customer_id"`
	Product        string           `json:"product" validate:"required,max=200"`
	Grade          string           `json:"grade" validate:"max=50"`
	QuantityKg     decimal.Decimal  `json:"quantity_kg"`
	UnitPrice      decimal.Decimal  `json:"unit_price"`
	ShippingStatus ShippingStatus   `json:"shipping_status"`
	OrderDate      shared.Date      `json:"order_date"`
	Documents      []Document       `json:"documents" validate:"dive"`
	TotalAmount    *decimal.Decimal `json:"total_amount,omitempty"`
}

// UpdateOrderRequest carries a partial update. TotalAmount is ignored.
type UpdateOrderRequest struct {
	CustomerID     *uuid.UUID       `json:"customer_id"`
	Product        *string          `json:"product" validate:"omitempty,min=1,max=200"`
	Grade          *string          `json:"grade" validate:"omitempty,max=50"`
	QuantityKg     *decimal.Decimal `json:"quantity_kg"`
	UnitPrice      *decimal.Decimal `json:"unit_price"`
	ShippingStatus *ShippingStatus  `json:"shipping_status"`
	OrderDate      *shared.Date     `json:"order_date"`
	TotalAmount    *decimal.Decimal `json:"total_amount,omitempty"`
}

// ListOrdersRequest filters the order list. Empty fields match all.
type ListOrdersRequest struct {
	CustomerID     *uuid.UUID
	ShippingStatus ShippingStatus
}
