package expenses

import (
	"context"

	"github.com/google/uuid"
)

type mockRepository struct {
	expenses map[uuid.UUID]*Expense
	order    []uuid.UUID

	// Error injection
	listError   error
	createError error
}

func newMockRepository() *mockRepository {
	return &mockRepository{expenses: make(map[uuid.UUID]*Expense)}
}

func (m *mockRepository) WithTx(ctx context.Context, fn func(context.Context, Repository) error) error {
	return fn(ctx, m)
}

func (m *mockRepository) CreateExpense(ctx context.Context, e Expense) error {
	if m.createError != nil {
		return m.createError
	}
	stored := e
	m.expenses[e.ID] = &stored
	m.order = append(m.order, e.ID)
	return nil
}

func (m *mockRepository) GetExpense(ctx context.Context, id uuid.UUID) (*Expense, error) {
	e, ok := m.expenses[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := *e
	return &out, nil
}

func (m *mockRepository) UpdateExpense(ctx context.Context, e Expense) error {
	if _, ok := m.expenses[e.ID]; !ok {
		return ErrNotFound
	}
	stored := e
	m.expenses[e.ID] = &stored
	return nil
}

func (m *mockRepository) DeleteExpense(ctx context.Context, id uuid.UUID) error {
	if _, ok := m.expenses[id]; !ok {
		return ErrNotFound
	}
	delete(m.expenses, id)
	for i, existing := range m.order {
		if existing == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return nil
}

func (m *mockRepository) ListExpenses(ctx context.Context, req ListExpensesRequest) ([]Expense, error) {
	if m.listError != nil {
		return nil, m.listError
	}
	result := []Expense{}
	for _, id := range m.order {
		if e := m.expenses[id]; req.Matches(*e) {
			result = append(result, *e)
		}
	}
	return result, nil
}

type stubOrders map[uuid.UUID]bool

func (s stubOrders) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	return s[id], nil
}
