package reporting

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/coffee-export/export-manager/internal/crm"
	"github.com/coffee-export/export-manager/internal/expenses"
	"github.com/coffee-export/export-manager/internal/invoicing"
	"github.com/coffee-export/export-manager/internal/sales"
	"github.com/coffee-export/export-manager/internal/shared"
)

// CustomerSource lists customers.
type CustomerSource interface {
	ListCustomers(ctx context.Context, req crm.ListCustomersRequest) ([]crm.Customer, error)
}

// OrderSource lists sales orders.
type OrderSource interface {
	ListOrders(ctx context.Context, req sales.ListOrdersRequest) ([]sales.Order, error)
}

// InvoiceSource lists every invoice.
type InvoiceSource interface {
	Invoices(ctx context.Context) ([]invoicing.Invoice, error)
}

// ExpenseSource lists every expense.
type ExpenseSource interface {
	Expenses(ctx context.Context) ([]expenses.Expense, error)
}

// Service loads the record collections and computes dashboards. Nothing is
// cached; each call reads fresh data.
type Service struct {
	customers CustomerSource
	orders    OrderSource
	invoices  InvoiceSource
	expenses  ExpenseSource
	clock     shared.Clock
}

// NewService wires the record sources.
func NewService(customers CustomerSource, orders OrderSource, invoices InvoiceSource, exps ExpenseSource, clock shared.Clock) *Service {
	return &Service{customers: customers, orders: orders, invoices: invoices, expenses: exps, clock: clock}
}

// Snapshot loads all four collections concurrently.
func (s *Service) Snapshot(ctx context.Context) (Snapshot, error) {
	var snap Snapshot
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		list, err := s.customers.ListCustomers(ctx, crm.ListCustomersRequest{})
		if err != nil {
			return fmt.Errorf("customers: %w", err)
		}
		snap.Customers = list
		return nil
	})

	g.Go(func() error {
		list, err := s.orders.ListOrders(ctx, sales.ListOrdersRequest{})
		if err != nil {
			return fmt.Errorf("orders: %w", err)
		}
		snap.Orders = list
		return nil
	})

	g.Go(func() error {
		list, err := s.invoices.Invoices(ctx)
		if err != nil {
			return fmt.Errorf("invoices: %w", err)
		}
		snap.Invoices = list
		return nil
	})

	g.Go(func() error {
		list, err := s.expenses.Expenses(ctx)
		if err != nil {
			return fmt.Errorf("expenses: %w", err)
		}
		snap.Expenses = list
		return nil
	})

	if err := g.Wait(); err != nil {
		return Snapshot{}, fmt.Errorf("reporting: load snapshot: %w", err)
	}
	return snap, nil
}

// Dashboard computes every metric as of today.
func (s *Service) Dashboard(ctx context.Context) (Dashboard, error) {
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return Dashboard{}, err
	}
	return BuildDashboard(snap, s.clock.Today()), nil
}
