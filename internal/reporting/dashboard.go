// Package reporting derives dashboard metrics from the business records.
// Every function is pure and recomputes from the full collections.
package reporting

import (
	"sort"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/coffee-export/export-manager/internal/crm"
	"github.com/coffee-export/export-manager/internal/expenses"
	"github.com/coffee-export/export-manager/internal/invoicing"
	"github.com/coffee-export/export-manager/internal/sales"
	"github.com/coffee-export/export-manager/internal/shared"
)

const (
	topCustomerLimit     = 5
	recentApprovalsLimit = 5
)

// Snapshot is the record set a dashboard is computed from, in insertion order.
type Snapshot struct {
	Customers []crm.Customer
	Orders    []sales.Order
	Invoices  []invoicing.Invoice
	Expenses  []expenses.Expense
}

// CustomerSales is a customer's paid revenue.
type CustomerSales struct {
	CustomerID  uuid.UUID       `json:"customer_id"`
	CompanyName string          `json:"company_name"`
	TotalSales  decimal.Decimal `json:"total_sales"`
}

// ShipmentProfit is revenue against approved costs for one order.
type ShipmentProfit struct {
	OrderID    uuid.UUID       `json:"order_id"`
	CustomerID uuid.UUID       `json:"customer_id"`
	Product    string          `json:"product"`
	OrderDate  shared.Date     `json:"order_date"`
	Revenue    decimal.Decimal `json:"revenue"`
	Expenses   decimal.Decimal `json:"expenses"`
	Profit     decimal.Decimal `json:"profit"`
}

// Dashboard bundles every manager metric.
type Dashboard struct {
	AsOf                      shared.Date        `json:"as_of"`
	MonthlyRevenue            decimal.Decimal    `json:"monthly_revenue"`
	OutstandingPayments       decimal.Decimal    `json:"outstanding_payments"`
	ApprovedExpensesThisMonth decimal.Decimal    `json:"approved_expenses_this_month"`
	ActiveCustomers           int                `json:"active_customers"`
	TopCustomers              []CustomerSales    `json:"top_customers"`
	OverdueAlerts             []invoicing.View   `json:"overdue_alerts"`
	AwaitingApproval          []expenses.Expense `json:"high_value_awaiting_approval"`
	RecentlyApproved          []expenses.Expense `json:"recently_approved_high_value"`
	ProfitPerShipment         []ShipmentProfit   `json:"profit_per_shipment"`
}

// BuildDashboard computes every metric for today.
func BuildDashboard(s Snapshot, today shared.Date) Dashboard {
	alerts := OverdueAlerts(s.Invoices, today)
	views := make([]invoicing.View, len(alerts))
	for i, inv := range alerts {
		views[i] = inv.Display(today)
	}
	return Dashboard{
		AsOf:                      today,
		MonthlyRevenue:            MonthlyRevenue(s.Orders, s.Invoices),
		OutstandingPayments:       OutstandingPayments(s.Invoices, today),
		ApprovedExpensesThisMonth: ApprovedExpensesThisMonth(s.Expenses, today),
		ActiveCustomers:           ActiveCustomerCount(s.Customers),
		TopCustomers:              TopPerformingCustomers(s.Customers, s.Orders, s.Invoices),
		OverdueAlerts:             views,
		AwaitingApproval:          HighValueExpensesAwaitingApproval(s.Expenses),
		RecentlyApproved:          RecentlyApprovedHighValue(s.Expenses),
		ProfitPerShipment:         ProfitPerShipment(s.Orders, s.Invoices, s.Expenses),
	}
}

func earning(status invoicing.Status) bool {
	return status == invoicing.StatusPaid || status == invoicing.StatusPartial
}

// invoiceForOrder returns the first invoice billing orderID.
func invoiceForOrder(invoices []invoicing.Invoice, orderID uuid.UUID) *invoicing.Invoice {
	for i := range invoices {
		if invoices[i].OrderID == orderID {
			return &invoices[i]
		}
	}
	return nil
}

// paidInvoiceForOrder returns the first Paid or Partial invoice billing orderID.
func paidInvoiceForOrder(invoices []invoicing.Invoice, orderID uuid.UUID) *invoicing.Invoice {
	for i := range invoices {
		if invoices[i].OrderID == orderID && earning(invoices[i].Status) {
			return &invoices[i]
		}
	}
	return nil
}

// MonthlyRevenue sums the amount paid on every order whose invoice is Paid
// or Partial. It is not restricted to a calendar month.
func MonthlyRevenue(orders []sales.Order, invoices []invoicing.Invoice) decimal.Decimal {
	total := decimal.Zero
	for _, o := range orders {
		if inv := invoiceForOrder(invoices, o.ID); inv != nil && earning(inv.Status) {
			total = total.Add(inv.AmountPaid)
		}
	}
	return total
}

// OutstandingPayments sums amountDue minus amountPaid over open invoices.
func OutstandingPayments(invoices []invoicing.Invoice, today shared.Date) decimal.Decimal {
	total := decimal.Zero
	for _, inv := range invoices {
		if invoicing.EffectiveStatus(inv, today).Open() {
			total = total.Add(inv.AmountDue.Sub(inv.AmountPaid))
		}
	}
	return total
}

// ApprovedExpensesThisMonth sums approved expenses dated in today's month.
func ApprovedExpensesThisMonth(list []expenses.Expense, today shared.Date) decimal.Decimal {
	total := decimal.Zero
	for _, e := range list {
		if e.IsApproved && e.Date.SameMonth(today) {
			total = total.Add(e.Amount)
		}
	}
	return total
}

// ActiveCustomerCount counts customers in the Active or Repeat state.
func ActiveCustomerCount(customers []crm.Customer) int {
	n := 0
	for _, c := range customers {
		if c.Status.CountsAsActive() {
			n++
		}
	}
	return n
}

// TopPerformingCustomers ranks customers by paid revenue across their
// orders. Customers without revenue are dropped and ties keep customer order.
func TopPerformingCustomers(customers []crm.Customer, orders []sales.Order, invoices []invoicing.Invoice) []CustomerSales {
	ranked := []CustomerSales{}
	for _, c := range customers {
		total := decimal.Zero
		for _, o := range orders {
			if o.CustomerID != c.ID {
				continue
			}
			if inv := paidInvoiceForOrder(invoices, o.ID); inv != nil {
				total = total.Add(inv.AmountPaid)
			}
		}
		if total.IsPositive() {
			ranked = append(ranked, CustomerSales{CustomerID: c.ID, CompanyName: c.CompanyName, TotalSales: total})
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].TotalSales.GreaterThan(ranked[j].TotalSales)
	})
	if len(ranked) > topCustomerLimit {
		ranked = ranked[:topCustomerLimit]
	}
	return ranked
}

// OverdueAlerts returns open invoices more than 30 days past due.
func OverdueAlerts(invoices []invoicing.Invoice, today shared.Date) []invoicing.Invoice {
	alerts := []invoicing.Invoice{}
	for _, inv := range invoices {
		if invoicing.NeedsAlert(inv, today) {
			alerts = append(alerts, inv)
		}
	}
	return alerts
}

// HighValueExpensesAwaitingApproval returns unapproved expenses above 500.
func HighValueExpensesAwaitingApproval(list []expenses.Expense) []expenses.Expense {
	out := []expenses.Expense{}
	for _, e := range list {
		if !e.IsApproved && e.HighValue() {
			out = append(out, e)
		}
	}
	return out
}

// RecentlyApprovedHighValue returns the last five approved expenses above
// 500, most recently recorded first.
func RecentlyApprovedHighValue(list []expenses.Expense) []expenses.Expense {
	approved := []expenses.Expense{}
	for _, e := range list {
		if e.IsApproved && e.HighValue() {
			approved = append(approved, e)
		}
	}
	if len(approved) > recentApprovalsLimit {
		approved = approved[len(approved)-recentApprovalsLimit:]
	}
	out := make([]expenses.Expense, 0, len(approved))
	for i := len(approved) - 1; i >= 0; i-- {
		out = append(out, approved[i])
	}
	return out
}

// ProfitPerShipment computes paid revenue minus approved related expenses
// per order. Orders with neither revenue nor cost are omitted.
func ProfitPerShipment(orders []sales.Order, invoices []invoicing.Invoice, list []expenses.Expense) []ShipmentProfit {
	out := []ShipmentProfit{}
	for _, o := range orders {
		cost := decimal.Zero
		for _, e := range list {
			if e.IsApproved && e.RelatedOrderID != nil && *e.RelatedOrderID == o.ID {
				cost = cost.Add(e.Amount)
			}
		}
		revenue := decimal.Zero
		if inv := paidInvoiceForOrder(invoices, o.ID); inv != nil {
			revenue = inv.AmountPaid
		}
		if !revenue.IsPositive() && !cost.IsPositive() {
			continue
		}
		out = append(out, ShipmentProfit{
			OrderID:    o.ID,
			CustomerID: o.CustomerID,
			Product:    o.Product,
			OrderDate:  o.OrderDate,
			Revenue:    revenue,
			Expenses:   cost,
			Profit:     revenue.Sub(cost),
		})
	}
	return out
}
