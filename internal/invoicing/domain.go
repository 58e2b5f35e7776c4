package invoicing

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/coffee-export/export-manager/internal/shared"
)

// Status is an invoice status. Only Unpaid, Partial and Paid are stored;
// Overdue is derived from the due date when the invoice is displayed.
type Status string

const (
	StatusUnpaid  Status = "Unpaid"
	StatusPartial Status = "Partial"
	StatusPaid    Status = "Paid"
	StatusOverdue Status = "Overdue"
)

// Valid reports whether s is any known status, derived or stored.
func (s Status) Valid() bool {
	switch s {
	case StatusUnpaid, StatusPartial, StatusPaid, StatusOverdue:
		return true
	}
	return false
}

// Stored reports whether s may be persisted on an invoice.
func (s Status) Stored() bool {
	return s == StatusUnpaid || s == StatusPartial || s == StatusPaid
}

// Open reports whether money is still expected for an invoice in status s.
func (s Status) Open() bool {
	return s == StatusUnpaid || s == StatusPartial || s == StatusOverdue
}

// PaymentMethod records how an invoice was settled.
type PaymentMethod string

const (
	MethodLetterOfCredit PaymentMethod = "Letter of Credit"
	MethodWireTransfer   PaymentMethod = "Wire Transfer"
	MethodCash           PaymentMethod = "Cash"
)

// Valid reports whether m is a known payment method.
func (m PaymentMethod) Valid() bool {
	switch m {
	case MethodLetterOfCredit, MethodWireTransfer, MethodCash:
		return true
	}
	return false
}

// Invoice bills a customer for one sales order.
type Invoice struct {
	ID            uuid.UUID       `json:"id"`
	InvoiceNumber string          `json:"invoice_number"`
	OrderID       uuid.UUID       `json:"order_id"`
	CustomerID    uuid.UUID       `json:"customer_id"`
	DateIssued    shared.Date     `json:"date_issued"`
	DueDate       shared.Date     `json:"due_date"`
	AmountDue     decimal.Decimal `json:"amount_due"`
	AmountPaid    decimal.Decimal `json:"amount_paid"`
	PaymentMethod *PaymentMethod  `json:"payment_method"`
	DatePaid      *shared.Date    `json:"date_paid"`
	Status        Status          `json:"status"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// Balance is the amount still owed, never negative.
func (i Invoice) Balance() decimal.Decimal {
	b := i.AmountDue.Sub(i.AmountPaid)
	if b.IsNegative() {
		return decimal.Zero
	}
	return b
}

// View is an invoice as presented to clients: the stored payment status
// combined with the derived overdue flag.
type View struct {
	Invoice
	EffectiveStatus Status          `json:"effective_status"`
	IsOverdue       bool            `json:"is_overdue"`
	BalanceDue      decimal.Decimal `json:"balance_due"`
}

// OrderRef is the slice of a sales order that invoicing reads.
type OrderRef struct {
	ID              uuid.UUID
	CustomerID      uuid.UUID
	TotalAmount     decimal.Decimal
	OrderDate       shared.Date
	LinkedInvoiceID *uuid.UUID
}

// CreateInvoiceRequest describes a manually entered invoice.
type CreateInvoiceRequest struct {
	OrderID       uuid.UUID        `json:"order_id"`
	DateIssued    shared.Date      `json:"date_issued"`
	DueDate       shared.Date      `json:"due_date"`
	AmountDue     *decimal.Decimal `json:"amount_due"`
	AmountPaid    decimal.Decimal  `json:"amount_paid"`
	PaymentMethod *PaymentMethod   `json:"payment_method"`
}

// UpdateInvoiceRequest edits an invoice. The order link cannot change and
// status is only changed through SetStatus or an amount edit.
type UpdateInvoiceRequest struct {
	DateIssued    *shared.Date     `json:"date_issued"`
	DueDate       *shared.Date     `json:"due_date"`
	AmountDue     *decimal.Decimal `json:"amount_due"`
	AmountPaid    *decimal.Decimal `json:"amount_paid"`
	PaymentMethod *PaymentMethod   `json:"payment_method"`
	DatePaid      *shared.Date     `json:"date_paid"`
}

// RecordPaymentRequest adds a received payment to an invoice.
type RecordPaymentRequest struct {
	Amount decimal.Decimal `json:"amount"`
	Method PaymentMethod   `json:"method"`
}

// SetStatusRequest selects a status manually.
type SetStatusRequest struct {
	Status Status `json:"status"`
}

// ListInvoicesRequest filters the invoice list. Status matches the effective status.
type ListInvoicesRequest struct {
	Status     Status
	CustomerID *uuid.UUID
}
