package expenses

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/coffee-export/export-manager/internal/platform/httpx"
	"github.com/coffee-export/export-manager/internal/shared"
)

// OrderDirectory resolves sales order references.
type OrderDirectory interface {
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
}

// Service provides business logic for expenses.
type Service struct {
	repo     Repository
	orders   OrderDirectory
	validate *validator.Validate
	clock    shared.Clock
}

// NewService constructs an expense service. orders may be nil to skip
// checking related order references.
func NewService(repo Repository, orders OrderDirectory, clock shared.Clock) *Service {
	return &Service{repo: repo, orders: orders, validate: httpx.NewValidator(), clock: clock}
}

// ============================================================================
// EXPENSES
// ============================================================================

// CreateExpense validates and stores a new expense. The date defaults to today.
func (s *Service) CreateExpense(ctx context.Context, req CreateExpenseRequest) (*View, error) {
	req.PaidTo = strings.TrimSpace(req.PaidTo)
	if req.Date.IsZero() {
		req.Date = s.clock.Today()
	}
	verr := s.structErrors(req)
	if !req.Type.Valid() {
		verr.Add("expense_type", "unknown expense type")
	}
	checkAmount(verr, req.Amount)
	if err := verr.OrNil(); err != nil {
		return nil, err
	}
	if err := s.requireOrder(ctx, req.RelatedOrderID); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	expense := Expense{
		ID:             uuid.New(),
		Type:           req.Type,
		Date:           req.Date,
		Amount:         req.Amount,
		PaidTo:         req.PaidTo,
		RelatedOrderID: req.RelatedOrderID,
		ReceiptURL:     req.ReceiptURL,
		IsApproved:     req.IsApproved,
		Description:    req.Description,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.repo.CreateExpense(ctx, expense); err != nil {
		return nil, fmt.Errorf("create expense: %w", err)
	}
	view := expense.Display()
	return &view, nil
}

// UpdateExpense applies a partial update.
func (s *Service) UpdateExpense(ctx context.Context, id uuid.UUID, req UpdateExpenseRequest) (*View, error) {
	verr := s.structErrors(req)
	if req.Type != nil && !req.Type.Valid() {
		verr.Add("expense_type", "unknown expense type")
	}
	if req.Amount != nil {
		checkAmount(verr, *req.Amount)
	}
	if req.PaidTo != nil && strings.TrimSpace(*req.PaidTo) == "" {
		verr.Add("paid_to", "is required")
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}
	if !req.ClearRelatedOrder {
		if err := s.requireOrder(ctx, req.RelatedOrderID); err != nil {
			return nil, err
		}
	}

	return s.mutate(ctx, "update expense", id, func(e *Expense) {
		if req.Type != nil {
			e.Type = *req.Type
		}
		if req.Date != nil && !req.Date.IsZero() {
			e.Date = *req.Date
		}
		if req.Amount != nil {
			e.Amount = *req.Amount
		}
		if req.PaidTo != nil {
			e.PaidTo = strings.TrimSpace(*req.PaidTo)
		}
		switch {
		case req.ClearRelatedOrder:
			e.RelatedOrderID = nil
		case req.RelatedOrderID != nil:
			e.RelatedOrderID = req.RelatedOrderID
		}
		if req.ReceiptURL != nil {
			e.ReceiptURL = req.ReceiptURL
		}
		if req.Description != nil {
			e.Description = *req.Description
		}
	})
}

// SetApproval sets the approval flag, or flips it when req.Approved is nil.
func (s *Service) SetApproval(ctx context.Context, id uuid.UUID, req ApprovalRequest) (*View, error) {
	return s.mutate(ctx, "set expense approval", id, func(e *Expense) {
		if req.Approved == nil {
			e.IsApproved = !e.IsApproved
			return
		}
		e.IsApproved = *req.Approved
	})
}

// GetExpense returns one expense.
func (s *Service) GetExpense(ctx context.Context, id uuid.UUID) (*View, error) {
	e, err := s.repo.GetExpense(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get expense: %w", err)
	}
	view := e.Display()
	return &view, nil
}

// ListExpenses returns matching expenses, newest first.
func (s *Service) ListExpenses(ctx context.Context, req ListExpensesRequest) ([]View, error) {
	list, err := s.filtered(ctx, req)
	if err != nil {
		return nil, err
	}
	views := make([]View, len(list))
	for i, e := range list {
		views[i] = e.Display()
	}
	return views, nil
}

// Summaries totals the filtered expense set by month and year.
func (s *Service) Summaries(ctx context.Context, req ListExpensesRequest) (Summary, error) {
	list, err := s.filtered(ctx, req)
	if err != nil {
		return Summary{}, err
	}
	return Summarize(list), nil
}

// DeleteExpense removes an expense.
func (s *Service) DeleteExpense(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.DeleteExpense(ctx, id); err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}
	return nil
}

// Expenses returns every expense in insertion order for aggregation.
func (s *Service) Expenses(ctx context.Context) ([]Expense, error) {
	list, err := s.repo.ListExpenses(ctx, ListExpensesRequest{})
	if err != nil {
		return nil, fmt.Errorf("load expenses: %w", err)
	}
	return list, nil
}

func (s *Service) filtered(ctx context.Context, req ListExpensesRequest) ([]Expense, error) {
	verr := &httpx.ValidationError{}
	if req.Type != "" && !req.Type.Valid() {
		verr.Add("expense_type", "unknown expense type")
	}
	if !ValidDatePrefix(req.DatePrefix) {
		verr.Add("date", "must be YYYY or YYYY-MM")
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}
	list, err := s.repo.ListExpenses(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	SortNewestFirst(list)
	return list, nil
}

func (s *Service) mutate(ctx context.Context, op string, id uuid.UUID, fn func(*Expense)) (*View, error) {
	var updated *Expense
	err := s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		e, err := repo.GetExpense(ctx, id)
		if err != nil {
			return err
		}
		fn(e)
		e.UpdatedAt = s.clock.Now()
		if err := repo.UpdateExpense(ctx, *e); err != nil {
			return err
		}
		updated = e
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	view := updated.Display()
	return &view, nil
}

func (s *Service) requireOrder(ctx context.Context, id *uuid.UUID) error {
	if id == nil || s.orders == nil {
		return nil
	}
	ok, err := s.orders.Exists(ctx, *id)
	if err != nil {
		return fmt.Errorf("lookup order: %w", err)
	}
	if !ok {
		return httpx.NewValidationError("related_order_id", "sales order does not exist")
	}
	return nil
}

func (s *Service) structErrors(v any) *httpx.ValidationError {
	err := httpx.FromValidator(s.validate.Struct(v))
	var verr *httpx.ValidationError
	if errors.As(err, &verr) {
		return verr
	}
	return &httpx.ValidationError{}
}

func checkAmount(verr *httpx.ValidationError, amount decimal.Decimal) {
	if !amount.IsPositive() {
		verr.Add("amount", "must be greater than zero")
	}
}
