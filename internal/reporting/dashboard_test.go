package reporting

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coffee-export/export-manager/internal/crm"
	"github.com/coffee-export/export-manager/internal/expenses"
	"github.com/coffee-export/export-manager/internal/invoicing"
	"github.com/coffee-export/export-manager/internal/sales"
	"github.com/coffee-export/export-manager/internal/shared"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func day(s string) shared.Date { return shared.MustParseDate(s) }

func customer(name string, status crm.CustomerStatus) crm.Customer {
	return crm.Customer{ID: uuid.New(), CompanyName: name, Status: status}
}

func order(c crm.Customer, product string) sales.Order {
	return sales.Order{ID: uuid.New(), CustomerID: c.ID, Product: product, OrderDate: day("2024-02-01")}
}

func invoice(o sales.Order, due, paid string, status invoicing.Status, dueDate string) invoicing.Invoice {
	return invoicing.Invoice{
		ID:         uuid.New(),
		OrderID:    o.ID,
		CustomerID: o.CustomerID,
		AmountDue:  dec(due),
		AmountPaid: dec(paid),
		Status:     status,
		DueDate:    day(dueDate),
	}
}

func expense(amount string, approved bool, date string, related *uuid.UUID) expenses.Expense {
	return expenses.Expense{
		ID:             uuid.New(),
		Type:           expenses.TypeLogistics,
		Amount:         dec(amount),
		IsApproved:     approved,
		Date:           day(date),
		RelatedOrderID: related,
	}
}

func TestTopPerformingCustomersDropsZeroSales(t *testing.T) {
	buyer := customer("Nordic Roasters", crm.StatusActive)
	idle := customer("Quiet Cafe", crm.StatusLead)
	o := order(buyer, "Guji")
	o2 := order(idle, "Limu")
	invoices := []invoicing.Invoice{
		invoice(o, "1000", "1000", invoicing.StatusPaid, "2024-03-01"),
		invoice(o2, "800", "0", invoicing.StatusUnpaid, "2024-03-01"),
	}

	top := TopPerformingCustomers([]crm.Customer{buyer, idle}, []sales.Order{o, o2}, invoices)
	require.Len(t, top, 1)
	assert.Equal(t, buyer.ID, top[0].CustomerID)
	assert.True(t, top[0].TotalSales.Equal(dec("1000")))
}

func TestTopPerformingCustomersOrderingAndLimit(t *testing.T) {
	var (
		customers []crm.Customer
		orders    []sales.Order
		invoices  []invoicing.Invoice
	)
	amounts := []string{"100", "500", "300", "500", "50", "700"}
	for i, amt := range amounts {
		c := customer(string(rune('A'+i)), crm.StatusActive)
		o := order(c, "Sidama")
		customers = append(customers, c)
		orders = append(orders, o)
		invoices = append(invoices, invoice(o, amt, amt, invoicing.StatusPaid, "2024-03-01"))
	}

	top := TopPerformingCustomers(customers, orders, invoices)
	require.Len(t, top, 5)
	names := []string{}
	for _, c := range top {
		names = append(names, c.CompanyName)
	}
	assert.Equal(t, []string{"F", "B", "D", "C", "A"}, names, "ties keep customer order")
}

func TestRevenueAndOutstanding(t *testing.T) {
	today := day("2024-03-15")
	c := customer("Kyoto Coffee", crm.StatusRepeat)
	paid := order(c, "Yirgacheffe")
	partial := order(c, "Harrar")
	open := order(c, "Guji")
	none := order(c, "Limu")
	invoices := []invoicing.Invoice{
		invoice(paid, "4250", "4250", invoicing.StatusPaid, "2024-02-01"),
		invoice(partial, "1000", "400", invoicing.StatusPartial, "2024-04-01"),
		invoice(open, "600", "0", invoicing.StatusUnpaid, "2024-01-01"),
	}
	orders := []sales.Order{paid, partial, open, none}

	assert.True(t, MonthlyRevenue(orders, invoices).Equal(dec("4650")))
	assert.True(t, OutstandingPayments(invoices, today).Equal(dec("1200")))
}

func TestOverdueAlerts(t *testing.T) {
	today := day("2024-03-01")
	c := customer("Berlin Beans", crm.StatusActive)
	o := order(c, "Sidama")
	stale := invoice(o, "100", "0", invoicing.StatusUnpaid, "2024-01-01")
	recent := invoice(order(c, "Guji"), "100", "0", invoicing.StatusUnpaid, "2024-02-20")
	settled := invoice(order(c, "Limu"), "100", "100", invoicing.StatusPaid, "2023-12-01")

	alerts := OverdueAlerts([]invoicing.Invoice{stale, recent, settled}, today)
	require.Len(t, alerts, 1)
	assert.Equal(t, stale.ID, alerts[0].ID)
}

func TestExpenseMetrics(t *testing.T) {
	today := day("2024-07-20")
	list := []expenses.Expense{
		expense("700", true, "2024-07-02", nil),
		expense("200", true, "2024-07-10", nil),
		expense("900", false, "2024-07-11", nil),
		expense("300", false, "2024-07-12", nil),
		expense("999", true, "2024-06-30", nil),
		expense("501", true, "2023-07-05", nil),
	}

	assert.True(t, ApprovedExpensesThisMonth(list, today).Equal(dec("900")))

	awaiting := HighValueExpensesAwaitingApproval(list)
	require.Len(t, awaiting, 1)
	assert.Equal(t, list[2].ID, awaiting[0].ID)

	recent := RecentlyApprovedHighValue(list)
	require.Len(t, recent, 3)
	assert.Equal(t, list[5].ID, recent[0].ID, "most recently recorded first")
	assert.Equal(t, list[0].ID, recent[2].ID)
}

func TestRecentlyApprovedHighValueKeepsLastFive(t *testing.T) {
	var list []expenses.Expense
	for i := 0; i < 7; i++ {
		list = append(list, expense("600", true, "2024-07-01", nil))
	}
	recent := RecentlyApprovedHighValue(list)
	require.Len(t, recent, 5)
	assert.Equal(t, list[6].ID, recent[0].ID)
	assert.Equal(t, list[2].ID, recent[4].ID)
}

func TestProfitPerShipment(t *testing.T) {
	c := customer("Seoul Roastery", crm.StatusActive)
	earning := order(c, "Yirgacheffe")
	costOnly := order(c, "Sidama")
	idle := order(c, "Guji")
	invoices := []invoicing.Invoice{
		invoice(earning, "4250", "3000", invoicing.StatusPartial, "2024-03-01"),
		invoice(idle, "100", "0", invoicing.StatusUnpaid, "2024-03-01"),
	}
	list := []expenses.Expense{
		expense("400", true, "2024-02-02", &earning.ID),
		expense("100", false, "2024-02-03", &earning.ID),
		expense("250", true, "2024-02-04", &costOnly.ID),
	}

	rows := ProfitPerShipment([]sales.Order{earning, costOnly, idle}, invoices, list)
	require.Len(t, rows, 2)
	assert.Equal(t, earning.ID, rows[0].OrderID)
	assert.True(t, rows[0].Revenue.Equal(dec("3000")))
	assert.True(t, rows[0].Expenses.Equal(dec("400")))
	assert.True(t, rows[0].Profit.Equal(dec("2600")))
	assert.True(t, rows[1].Profit.Equal(dec("-250")))
}

func TestBuildDashboardIsIdempotent(t *testing.T) {
	today := day("2024-03-01")
	a := customer("A", crm.StatusActive)
	b := customer("B", crm.StatusDormant)
	o := order(a, "Harrar")
	snap := Snapshot{
		Customers: []crm.Customer{a, b},
		Orders:    []sales.Order{o},
		Invoices:  []invoicing.Invoice{invoice(o, "100", "0", invoicing.StatusUnpaid, "2024-01-01")},
		Expenses:  []expenses.Expense{expense("800", false, "2024-03-01", &o.ID)},
	}

	first := BuildDashboard(snap, today)
	second := BuildDashboard(snap, today)
	assert.Equal(t, first, second)

	assert.Equal(t, 1, first.ActiveCustomers)
	require.Len(t, first.OverdueAlerts, 1)
	assert.Equal(t, invoicing.StatusOverdue, first.OverdueAlerts[0].EffectiveStatus)
	assert.True(t, first.OutstandingPayments.Equal(dec("100")))
	assert.Empty(t, first.TopCustomers)
	assert.Empty(t, first.ProfitPerShipment, "unapproved cost does not count")
	assert.Len(t, first.AwaitingApproval, 1)
}
