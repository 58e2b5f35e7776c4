package expenses

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/coffee-export/export-manager/internal/shared"
)

// Approval prompts. Neither is enforced on stored data.
var (
	// HighValueThreshold marks expenses the dashboard asks a manager to look at.
	HighValueThreshold = decimal.NewFromInt(500)
	// ReviewThreshold marks unapproved expenses flagged in the expense list.
	ReviewThreshold = decimal.NewFromInt(1000)
)

// Type categorises an expense.
type Type string

const (
	TypeLogistics     Type = "Logistics"
	TypeFarmerPayment Type = "Farmer Payment"
	TypeAdmin         Type = "Admin"
	TypePackaging     Type = "Packaging"
	TypeMarketing     Type = "Marketing"
	TypeOther         Type = "Other"
)

// Valid reports whether t is a known expense type.
func (t Type) Valid() bool {
	switch t {
	case TypeLogistics, TypeFarmerPayment, TypeAdmin, TypePackaging, TypeMarketing, TypeOther:
		return true
	}
	return false
}

// Expense is money spent by the business, optionally against a sales order.
type Expense struct {
	ID             uuid.UUID       `json:"id"`
	Type           Type            `json:"expense_type"`
	Date           shared.Date     `json:"date"`
	Amount         decimal.Decimal `json:"amount"`
	PaidTo         string          `json:"paid_to"`
	RelatedOrderID *uuid.UUID      `json:"related_order_id"`
	ReceiptURL     *string         `json:"receipt_url"`
	IsApproved     bool            `json:"is_approved"`
	Description    string          `json:"description"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// HighValue reports whether the amount exceeds HighValueThreshold.
func (e Expense) HighValue() bool {
	return e.Amount.GreaterThan(HighValueThreshold)
}

// NeedsReview reports whether an unapproved expense exceeds ReviewThreshold.
func (e Expense) NeedsReview() bool {
	return !e.IsApproved && e.Amount.GreaterThan(ReviewThreshold)
}

// View adds the approval prompts to an expense.
type View struct {
	Expense
	HighValue   bool `json:"high_value"`
	NeedsReview bool `json:"needs_review"`
}

// Display returns the expense with its prompts computed.
func (e Expense) Display() View {
	return View{Expense: e, HighValue: e.HighValue(), NeedsReview: e.NeedsReview()}
}

// CreateExpenseRequest carries the fields for a new expense.
type CreateExpenseRequest struct {
	Type           Type            `json:"expense_type"`
	Date           shared.Date     `json:"date"`
	Amount         decimal.Decimal `json:"amount"`
	PaidTo         string          `json:"paid_to" validate:"required,max=200"`
	RelatedOrderID *uuid.UUID      `json:"related_order_id"`
	ReceiptURL     *string         `json:"receipt_url" validate:"omitempty,url"`
	IsApproved     bool            `json:"is_approved"`
	Description    string          `json:"description" validate:"max=2000"`
}

// UpdateExpenseRequest carries a partial update. Approval changes go
// through SetApproval.
type UpdateExpenseRequest struct {
	Type              *Type            `json:"expense_type"`
	Date              *shared.Date     `json:"date"`
	Amount            *decimal.Decimal `json:"amount"`
	PaidTo            *string          `json:"paid_to" validate:"omitempty,min=1,max=200"`
	RelatedOrderID    *uuid.UUID       `json:"related_order_id"`
	ClearRelatedOrder bool             `json:"clear_related_order"`
	ReceiptURL        *string          `json:"receipt_url" validate:"omitempty,url"`
	Description       *string          `json:"description" validate:"omitempty,max=2000"`
}

// ApprovalRequest sets approval explicitly, or toggles it when Approved is nil.
type ApprovalRequest struct {
	Approved *bool `json:"approved"`
}

// ListExpensesRequest filters expenses. DatePrefix is YYYY or YYYY-MM.
type ListExpensesRequest struct {
	Type           Type
	DatePrefix     string
	RelatedOrderID *uuid.UUID
}

// PeriodTotal is the sum of expense amounts within one period.
type PeriodTotal struct {
	Period string          `json:"period"`
	Total  decimal.Decimal `json:"total"`
}

// Summary totals a filtered expense set by month and by year, newest first.
type Summary struct {
	Monthly []PeriodTotal   `json:"monthly"`
	Yearly  []PeriodTotal   `json:"yearly"`
	Total   decimal.Decimal `json:"total"`
	Count   int             `json:"count"`
}
