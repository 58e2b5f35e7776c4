package sales

import (
	"context"

	"github.com/google/uuid"
)

// ============================================================================
// MOCK DEPENDENCIES
// ============================================================================

type mockRepository struct {
	orders map[uuid.UUID]*Order
	order  []uuid.UUID

	// Error injection
	txError     error
	createError error
}

func newMockRepository() *mockRepository {
	return &mockRepository{orders: make(map[uuid.UUID]*Order)}
}

func (m *mockRepository) WithTx(ctx context.Context, fn func(context.Context, Repository) error) error {
	if m.txError != nil {
		return m.txError
	}
	return fn(ctx, m)
}

func (m *mockRepository) CreateOrder(ctx context.Context, o Order) error {
	if m.createError != nil {
		return m.createError
	}
	stored := o
	stored.Documents = append([]Document{}, o.Documents...)
	m.orders[o.ID] = &stored
	m.order = append(m.order, o.ID)
	return nil
}

func (m *mockRepository) GetOrder(ctx context.Context, id uuid.UUID) (*Order, error) {
	o, ok := m.orders[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := *o
	out.Documents = append([]Document{}, o.Documents...)
	return &out, nil
}

func (m *mockRepository) UpdateOrder(ctx context.Context, o Order) error {
	existing, ok := m.orders[o.ID]
	if !ok {
		return ErrNotFound
	}
	stored := o
	stored.LinkedInvoiceID = existing.LinkedInvoiceID
	stored.Documents = existing.Documents
	m.orders[o.ID] = &stored
	return nil
}

func (m *mockRepository) DeleteOrder(ctx context.Context, id uuid.UUID) error {
	if _, ok := m.orders[id]; !ok {
		return ErrNotFound
	}
	delete(m.orders, id)
	for i, existing := range m.order {
		if existing == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return nil
}

func (m *mockRepository) ListOrders(ctx context.Context, req ListOrdersRequest) ([]Order, error) {
	result := []Order{}
	for _, id := range m.order {
		o := m.orders[id]
		if req.CustomerID != nil && o.CustomerID != *req.CustomerID {
			continue
		}
		if req.ShippingStatus != "" && o.ShippingStatus != req.ShippingStatus {
			continue
		}
		result = append(result, *o)
	}
	return result, nil
}

func (m *mockRepository) AddDocument(ctx context.Context, orderID uuid.UUID, doc Document) error {
	o, ok := m.orders[orderID]
	if !ok {
		return ErrNotFound
	}
	o.Documents = append(o.Documents, doc)
	return nil
}

type stubDirectory struct {
	known map[uuid.UUID]bool
	err   error
}

func (s stubDirectory) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	if s.err != nil {
		return false, s.err
	}
	return s.known[id], nil
}
