package invoicing

import (
	"context"

	"github.com/google/uuid"
)

// ============================================================================
// MOCK REPOSITORY
// ============================================================================

// mockRepository keeps state in maps and restores a snapshot when a
// transaction callback fails, so rollback behaviour can be asserted.
type mockRepository struct {
	invoices map[uuid.UUID]*Invoice
	order    []uuid.UUID
	orders   map[uuid.UUID]*OrderRef
	seq      map[int]int

	// Error injection
	createError error
	linkError   error
	listError   error
}

func newMockRepository() *mockRepository {
	return &mockRepository{
		invoices: make(map[uuid.UUID]*Invoice),
		orders:   make(map[uuid.UUID]*OrderRef),
		seq:      make(map[int]int),
	}
}

func (m *mockRepository) addOrder(ref OrderRef) {
	stored := ref
	m.orders[ref.ID] = &stored
}

type snapshot struct {
	invoices map[uuid.UUID]Invoice
	order    []uuid.UUID
	orders   map[uuid.UUID]OrderRef
	seq      map[int]int
}

func (m *mockRepository) snapshot() snapshot {
	s := snapshot{
		invoices: make(map[uuid.UUID]Invoice, len(m.invoices)),
		order:    append([]uuid.UUID{}, m.order...),
		orders:   make(map[uuid.UUID]OrderRef, len(m.orders)),
		seq:      make(map[int]int, len(m.seq)),
	}
	for k, v := range m.invoices {
		s.invoices[k] = *v
	}
	for k, v := range m.orders {
		s.orders[k] = *v
	}
	for k, v := range m.seq {
		s.seq[k] = v
	}
	return s
}

func (m *mockRepository) restore(s snapshot) {
	m.invoices = make(map[uuid.UUID]*Invoice, len(s.invoices))
	for k, v := range s.invoices {
		inv := v
		m.invoices[k] = &inv
	}
	m.orders = make(map[uuid.UUID]*OrderRef, len(s.orders))
	for k, v := range s.orders {
		ref := v
		m.orders[k] = &ref
	}
	m.order = s.order
	m.seq = s.seq
}

func (m *mockRepository) WithTx(ctx context.Context, fn func(context.Context, Repository) error) error {
	snap := m.snapshot()
	if err := fn(ctx, m); err != nil {
		m.restore(snap)
		return err
	}
	return nil
}

func (m *mockRepository) NextNumber(ctx context.Context, year int) (int, error) {
	m.seq[year]++
	return m.seq[year], nil
}

func (m *mockRepository) CreateInvoice(ctx context.Context, inv Invoice) error {
	if m.createError != nil {
		return m.createError
	}
	for _, existing := range m.invoices {
		if existing.OrderID == inv.OrderID {
			return ErrInvoiceExists
		}
		if existing.InvoiceNumber == inv.InvoiceNumber {
			return ErrNumberTaken
		}
	}
	stored := inv
	m.invoices[inv.ID] = &stored
	m.order = append(m.order, inv.ID)
	return nil
}

func (m *mockRepository) GetInvoice(ctx context.Context, id uuid.UUID) (*Invoice, error) {
	inv, ok := m.invoices[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := *inv
	return &out, nil
}

func (m *mockRepository) GetInvoiceByOrder(ctx context.Context, orderID uuid.UUID) (*Invoice, error) {
	for _, id := range m.order {
		if inv := m.invoices[id]; inv.OrderID == orderID {
			out := *inv
			return &out, nil
		}
	}
	return nil, ErrNotFound
}

func (m *mockRepository) UpdateInvoice(ctx context.Context, inv Invoice) error {
	existing, ok := m.invoices[inv.ID]
	if !ok {
		return ErrNotFound
	}
	stored := inv
	stored.OrderID = existing.OrderID
	stored.InvoiceNumber = existing.InvoiceNumber
	m.invoices[inv.ID] = &stored
	return nil
}

func (m *mockRepository) DeleteInvoice(ctx context.Context, id uuid.UUID) error {
	if _, ok := m.invoices[id]; !ok {
		return ErrNotFound
	}
	delete(m.invoices, id)
	for i, existing := range m.order {
		if existing == id {
			m.order = append(m.order[:i:i], m.order[i+1:]...)
			break
		}
	}
	return nil
}

func (m *mockRepository) ListInvoices(ctx context.Context, customerID *uuid.UUID) ([]Invoice, error) {
	if m.listError != nil {
		return nil, m.listError
	}
	result := []Invoice{}
	for _, id := range m.order {
		inv := m.invoices[id]
		if customerID != nil && inv.CustomerID != *customerID {
			continue
		}
		result = append(result, *inv)
	}
	return result, nil
}

func (m *mockRepository) OrderForInvoicing(ctx context.Context, orderID uuid.UUID) (*OrderRef, error) {
	ref, ok := m.orders[orderID]
	if !ok {
		return nil, ErrOrderNotFound
	}
	out := *ref
	return &out, nil
}

func (m *mockRepository) LinkOrder(ctx context.Context, orderID, invoiceID uuid.UUID) error {
	if m.linkError != nil {
		return m.linkError
	}
	ref, ok := m.orders[orderID]
	if !ok {
		return ErrOrderNotFound
	}
	id := invoiceID
	ref.LinkedInvoiceID = &id
	return nil
}

func (m *mockRepository) UnlinkOrder(ctx context.Context, orderID, invoiceID uuid.UUID) error {
	ref, ok := m.orders[orderID]
	if ok && ref.LinkedInvoiceID != nil && *ref.LinkedInvoiceID == invoiceID {
		ref.LinkedInvoiceID = nil
	}
	return nil
}

func (m *mockRepository) ReconcileLinks(ctx context.Context) (int64, error) {
	var n int64
	for _, inv := range m.invoices {
		ref, ok := m.orders[inv.OrderID]
		if !ok {
			continue
		}
		if ref.LinkedInvoiceID == nil || *ref.LinkedInvoiceID != inv.ID {
			id := inv.ID
			ref.LinkedInvoiceID = &id
			n++
		}
	}
	return n, nil
}
