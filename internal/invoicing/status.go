package invoicing

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/coffee-export/export-manager/internal/shared"
)

// PaymentTermDays is the credit period granted on generated invoices.
const PaymentTermDays = 30

// AlertAfterDays is how long past due an open invoice must be to raise an alert.
const AlertAfterDays = 30

// PaymentStatusFor derives the stored status from the amounts alone.
func PaymentStatusFor(amountDue, amountPaid decimal.Decimal) Status {
	switch {
	case !amountDue.IsPositive():
		if amountPaid.IsPositive() {
			return StatusPaid
		}
		return StatusUnpaid
	case amountPaid.IsZero():
		return StatusUnpaid
	case amountPaid.LessThan(amountDue):
		return StatusPartial
	default:
		return StatusPaid
	}
}

// IsOverdue reports whether an open invoice is past its due date.
func IsOverdue(inv Invoice, today shared.Date) bool {
	if inv.Status != StatusUnpaid && inv.Status != StatusPartial {
		return false
	}
	return inv.DueDate.Before(today)
}

// EffectiveStatus is the status shown to users.
func EffectiveStatus(inv Invoice, today shared.Date) Status {
	if IsOverdue(inv, today) {
		return StatusOverdue
	}
	return inv.Status
}

// NeedsAlert reports whether an open invoice is more than AlertAfterDays past due.
func NeedsAlert(inv Invoice, today shared.Date) bool {
	if !EffectiveStatus(inv, today).Open() {
		return false
	}
	return inv.DueDate.Before(today.AddDays(-AlertAfterDays)) && inv.DueDate.Before(today)
}

// ApplyAmounts recomputes the status after an amount edit and keeps DatePaid
// in step: it is set on reaching Paid and cleared when leaving it.
func ApplyAmounts(inv *Invoice, today shared.Date) {
	prev := inv.Status
	inv.Status = PaymentStatusFor(inv.AmountDue, inv.AmountPaid)
	switch {
	case inv.Status == StatusPaid && inv.DatePaid == nil:
		d := today
		inv.DatePaid = &d
	case prev == StatusPaid && inv.Status != StatusPaid:
		inv.DatePaid = nil
	}
}

// FormatInvoiceNumber renders INV-{year}-{seq} with at least three digits.
func FormatInvoiceNumber(year, seq int) string {
	return fmt.Sprintf("INV-%d-%03d", year, seq)
}

// DueDateFor returns the due date for an invoice generated from an order.
func DueDateFor(orderDate shared.Date) shared.Date {
	return orderDate.AddDays(PaymentTermDays)
}

// Display combines the stored status and the overdue flag.
func (i Invoice) Display(today shared.Date) View {
	return View{
		Invoice:         i,
		EffectiveStatus: EffectiveStatus(i, today),
		IsOverdue:       IsOverdue(i, today),
		BalanceDue:      i.Balance(),
	}
}
