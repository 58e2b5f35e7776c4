package crm

import (
	"context"

	"github.com/google/uuid"
)

// ============================================================================
// MOCK REPOSITORY
// ============================================================================

type mockRepository struct {
	customers    map[uuid.UUID]*Customer
	order        []uuid.UUID
	interactions map[uuid.UUID][]Interaction
	orderCounts  map[uuid.UUID]int

	// Error injection
	txError     error
	createError error
	listError   error
}

func newMockRepository() *mockRepository {
	return &mockRepository{
		customers:    make(map[uuid.UUID]*Customer),
		interactions: make(map[uuid.UUID][]Interaction),
		orderCounts:  make(map[uuid.UUID]int),
	}
}

func (m *mockRepository) WithTx(ctx context.Context, fn func(context.Context, Repository) error) error {
	if m.txError != nil {
		return m.txError
	}
	return fn(ctx, m)
}

func (m *mockRepository) CreateCustomer(ctx context.Context, c Customer) error {
	if m.createError != nil {
		return m.createError
	}
	stored := c
	stored.Interactions = nil
	m.customers[c.ID] = &stored
	m.order = append(m.order, c.ID)
	return nil
}

func (m *mockRepository) GetCustomer(ctx context.Context, id uuid.UUID) (*Customer, error) {
	c, ok := m.customers[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := *c
	out.Interactions = append([]Interaction{}, m.interactions[id]...)
	return &out, nil
}

func (m *mockRepository) UpdateCustomer(ctx context.Context, c Customer) error {
	if _, ok := m.customers[c.ID]; !ok {
		return ErrNotFound
	}
	stored := c
	stored.Interactions = nil
	m.customers[c.ID] = &stored
	return nil
}

func (m *mockRepository) DeleteCustomer(ctx context.Context, id uuid.UUID) error {
	if _, ok := m.customers[id]; !ok {
		return ErrNotFound
	}
	delete(m.customers, id)
	delete(m.interactions, id)
	for i, existing := range m.order {
		if existing == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return nil
}

func (m *mockRepository) ListCustomers(ctx context.Context, req ListCustomersRequest) ([]Customer, error) {
	if m.listError != nil {
		return nil, m.listError
	}
	result := []Customer{}
	for _, id := range m.order {
		c := m.customers[id]
		if req.Status != "" && c.Status != req.Status {
			continue
		}
		if req.Origin != "" && c.PreferredOrigin != req.Origin {
			continue
		}
		out := *c
		out.Interactions = append([]Interaction{}, m.interactions[id]...)
		result = append(result, out)
	}
	return result, nil
}

func (m *mockRepository) AppendInteraction(ctx context.Context, customerID uuid.UUID, in Interaction) error {
	if _, ok := m.customers[customerID]; !ok {
		return ErrNotFound
	}
	m.interactions[customerID] = append(m.interactions[customerID], in)
	return nil
}

func (m *mockRepository) CountOrders(ctx context.Context, customerID uuid.UUID) (int, error) {
	return m.orderCounts[customerID], nil
}
