package reporting

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

const (
	sheetSummary   = "Summary"
	sheetCustomers = "Top Customers"
	sheetProfit    = "Profit per Shipment"
	sheetOverdue   = "Overdue Invoices"
	sheetApprovals = "Awaiting Approval"
)

// WriteProfitCSV emits profit per shipment as CSV.
func WriteProfitCSV(w io.Writer, rows []ShipmentProfit) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()
	if err := writer.Write([]string{"Order ID", "Order Date", "Product", "Revenue", "Expenses", "Profit"}); err != nil {
		return err
	}
	for _, row := range rows {
		if err := writer.Write([]string{
			row.OrderID.String(),
			row.OrderDate.String(),
			row.Product,
			money(row.Revenue),
			money(row.Expenses),
			money(row.Profit),
		}); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// WriteDashboardXLSX renders the dashboard as a workbook with one sheet per section.
func WriteDashboardXLSX(w io.Writer, d Dashboard) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", sheetSummary); err != nil {
		return fmt.Errorf("reporting: xlsx: %w", err)
	}
	summary := [][]any{
		{"Metric", "Value"},
		{"As Of", d.AsOf.String()},
		{"Monthly Revenue (Paid/Partial)", number(d.MonthlyRevenue)},
		{"Outstanding Payments", number(d.OutstandingPayments)},
		{"Approved Expenses (This Month)", number(d.ApprovedExpensesThisMonth)},
		{"Active Customers", d.ActiveCustomers},
	}
	if err := writeRows(f, sheetSummary, summary); err != nil {
		return err
	}

	customers := [][]any{{"Customer", "Total Sales"}}
	for _, c := range d.TopCustomers {
		customers = append(customers, []any{c.CompanyName, number(c.TotalSales)})
	}
	profit := [][]any{{"Order ID", "Order Date", "Product", "Revenue", "Expenses", "Profit"}}
	for _, p := range d.ProfitPerShipment {
		profit = append(profit, []any{
			p.OrderID.String(), p.OrderDate.String(), p.Product,
			number(p.Revenue), number(p.Expenses), number(p.Profit),
		})
	}
	overdue := [][]any{{"Invoice", "Due Date", "Amount Due", "Amount Paid", "Status"}}
	for _, inv := range d.OverdueAlerts {
		overdue = append(overdue, []any{
			inv.InvoiceNumber, inv.DueDate.String(),
			number(inv.AmountDue), number(inv.AmountPaid), string(inv.EffectiveStatus),
		})
	}
	approvals := [][]any{{"Date", "Type", "Paid To", "Amount"}}
	for _, e := range d.AwaitingApproval {
		approvals = append(approvals, []any{e.Date.String(), string(e.Type), e.PaidTo, number(e.Amount)})
	}

	for _, sheet := range []struct {
		name string
		rows [][]any
	}{
		{sheetCustomers, customers},
		{sheetProfit, profit},
		{sheetOverdue, overdue},
		{sheetApprovals, approvals},
	} {
		if _, err := f.NewSheet(sheet.name); err != nil {
			return fmt.Errorf("reporting: xlsx: %w", err)
		}
		if err := writeRows(f, sheet.name, sheet.rows); err != nil {
			return err
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("reporting: xlsx write: %w", err)
	}
	return nil
}

func writeRows(f *excelize.File, sheet string, rows [][]any) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return fmt.Errorf("reporting: xlsx: %w", err)
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("reporting: xlsx: %w", err)
		}
	}
	return nil
}

func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}

func number(d decimal.Decimal) float64 {
	return d.Round(2).InexactFloat64()
}
