package invoicing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/coffee-export/export-manager/internal/platform/httpx"
	"github.com/coffee-export/export-manager/internal/shared"
)

// DefaultLockTTL bounds how long a generation lock is held if the holder dies.
const DefaultLockTTL = 30 * time.Second

// Service provides invoice lifecycle operations.
type Service struct {
	repo    Repository
	locker  Locker
	lockTTL time.Duration
	clock   shared.Clock
	logger  *slog.Logger
}

// NewService constructs an invoicing service. A nil locker disables
// cross-process locking; the unique order index still applies.
func NewService(repo Repository, locker Locker, lockTTL time.Duration, clock shared.Clock, logger *slog.Logger) *Service {
	if locker == nil {
		locker = noopLocker{}
	}
	if lockTTL <= 0 {
		lockTTL = DefaultLockTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, locker: locker, lockTTL: lockTTL, clock: clock, logger: logger}
}

// ============================================================================
// GENERATION
// ============================================================================

// GenerateInvoiceForOrder bills a sales order. It returns ErrInvoiceExists,
// without writing anything, when the order already has an invoice.
func (s *Service) GenerateInvoiceForOrder(ctx context.Context, orderID uuid.UUID) (*View, error) {
	release, err := s.locker.Lock(ctx, orderLockKey(orderID), s.lockTTL)
	if err != nil {
		if errors.Is(err, ErrLockNotObtained) {
			return nil, ErrBusy
		}
		return nil, err
	}
	defer func() {
		if err := release(context.WithoutCancel(ctx)); err != nil {
			s.logger.Warn("release invoice lock", slog.String("order_id", orderID.String()), slog.Any("error", err))
		}
	}()

	today := s.clock.Today()
	var created Invoice
	err = s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		order, err := repo.OrderForInvoicing(ctx, orderID)
		if err != nil {
			return err
		}
		if err := ensureUnbilled(ctx, repo, order, ErrInvoiceExists); err != nil {
			return err
		}
		number, err := allocateNumber(ctx, repo, today)
		if err != nil {
			return err
		}

		now := s.clock.Now()
		created = Invoice{
			ID:            uuid.New(),
			InvoiceNumber: number,
			OrderID:       order.ID,
			CustomerID:    order.CustomerID,
			DateIssued:    today,
			DueDate:       DueDateFor(order.OrderDate),
			AmountDue:     order.TotalAmount,
			AmountPaid:    decimal.Zero,
			Status:        StatusUnpaid,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		if err := repo.CreateInvoice(ctx, created); err != nil {
			return err
		}
		return repo.LinkOrder(ctx, order.ID, created.ID)
	})
	if err != nil {
		if errors.Is(err, ErrInvoiceExists) {
			return nil, err
		}
		return nil, fmt.Errorf("generate invoice: %w", err)
	}

	s.logger.Info("invoice generated",
		slog.String("invoice_number", created.InvoiceNumber),
		slog.String("order_id", orderID.String()),
	)
	view := created.Display(today)
	return &view, nil
}

// ensureUnbilled fails with conflict when the order's link resolves to an
// existing invoice or an invoice already references the order. A dangling
// link is ignored and overwritten.
func ensureUnbilled(ctx context.Context, repo Repository, order *OrderRef, conflict error) error {
	if order.LinkedInvoiceID != nil {
		_, err := repo.GetInvoice(ctx, *order.LinkedInvoiceID)
		switch {
		case err == nil:
			return conflict
		case !errors.Is(err, ErrNotFound):
			return err
		}
	}
	_, err := repo.GetInvoiceByOrder(ctx, order.ID)
	switch {
	case err == nil:
		return conflict
	case errors.Is(err, ErrNotFound):
		return nil
	default:
		return err
	}
}

func allocateNumber(ctx context.Context, repo Repository, today shared.Date) (string, error) {
	seq, err := repo.NextNumber(ctx, today.Year())
	if err != nil {
		return "", err
	}
	return FormatInvoiceNumber(today.Year(), seq), nil
}

// ============================================================================
// CRUD
// ============================================================================

// CreateInvoice stores a manually entered invoice for an unbilled order.
// The customer is taken from the order and the status from the amounts.
func (s *Service) CreateInvoice(ctx context.Context, req CreateInvoiceRequest) (*View, error) {
	verr := &httpx.ValidationError{}
	if req.OrderID == uuid.Nil {
		verr.Add("order_id", "is required")
	}
	if req.AmountDue != nil && req.AmountDue.IsNegative() {
		verr.Add("amount_due", "must not be negative")
	}
	if req.AmountPaid.IsNegative() {
		verr.Add("amount_paid", "must not be negative")
	}
	if req.PaymentMethod != nil && !req.PaymentMethod.Valid() {
		verr.Add("payment_method", "unknown payment method")
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}

	today := s.clock.Today()
	if req.DateIssued.IsZero() {
		req.DateIssued = today
	}
	if req.DueDate.IsZero() {
		req.DueDate = req.DateIssued.AddDays(PaymentTermDays)
	}
	if req.DueDate.Before(req.DateIssued) {
		return nil, httpx.NewValidationError("due_date", "must not be before date_issued")
	}

	var created Invoice
	err := s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		order, err := repo.OrderForInvoicing(ctx, req.OrderID)
		if err != nil {
			if errors.Is(err, ErrOrderNotFound) {
				return httpx.NewValidationError("order_id", "sales order does not exist")
			}
			return err
		}
		if err := ensureUnbilled(ctx, repo, order, ErrOrderLinked); err != nil {
			return err
		}
		number, err := allocateNumber(ctx, repo, today)
		if err != nil {
			return err
		}

		amountDue := order.TotalAmount
		if req.AmountDue != nil {
			amountDue = *req.AmountDue
		}
		now := s.clock.Now()
		created = Invoice{
			ID:            uuid.New(),
			InvoiceNumber: number,
			OrderID:       order.ID,
			CustomerID:    order.CustomerID,
			DateIssued:    req.DateIssued,
			DueDate:       req.DueDate,
			AmountDue:     amountDue,
			AmountPaid:    req.AmountPaid,
			PaymentMethod: req.PaymentMethod,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		ApplyAmounts(&created, today)
		if err := repo.CreateInvoice(ctx, created); err != nil {
			return err
		}
		return repo.LinkOrder(ctx, order.ID, created.ID)
	})
	if err != nil {
		return nil, fmt.Errorf("create invoice: %w", err)
	}
	view := created.Display(today)
	return &view, nil
}

// GetInvoice returns one invoice with its effective status.
func (s *Service) GetInvoice(ctx context.Context, id uuid.UUID) (*View, error) {
	inv, err := s.repo.GetInvoice(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get invoice: %w", err)
	}
	view := inv.Display(s.clock.Today())
	return &view, nil
}

// ListInvoices returns invoices in insertion order. The status filter
// matches the effective status, so Overdue is a valid filter.
func (s *Service) ListInvoices(ctx context.Context, req ListInvoicesRequest) ([]View, error) {
	if req.Status != "" && !req.Status.Valid() {
		return nil, httpx.NewValidationError("status", "unknown invoice status")
	}
	invoices, err := s.repo.ListInvoices(ctx, req.CustomerID)
	if err != nil {
		return nil, fmt.Errorf("list invoices: %w", err)
	}
	today := s.clock.Today()
	views := make([]View, 0, len(invoices))
	for _, inv := range invoices {
		view := inv.Display(today)
		if req.Status != "" && view.EffectiveStatus != req.Status {
			continue
		}
		views = append(views, view)
	}
	return views, nil
}

// UpdateInvoice edits dates, amounts and payment details. An amount edit
// recomputes the status.
func (s *Service) UpdateInvoice(ctx context.Context, id uuid.UUID, req UpdateInvoiceRequest) (*View, error) {
	verr := &httpx.ValidationError{}
	if req.AmountDue != nil && req.AmountDue.IsNegative() {
		verr.Add("amount_due", "must not be negative")
	}
	if req.AmountPaid != nil && req.AmountPaid.IsNegative() {
		verr.Add("amount_paid", "must not be negative")
	}
	if req.PaymentMethod != nil && !req.PaymentMethod.Valid() {
		verr.Add("payment_method", "unknown payment method")
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}

	today := s.clock.Today()
	return s.mutate(ctx, "update invoice", id, func(inv *Invoice) error {
		if req.DateIssued != nil && !req.DateIssued.IsZero() {
			inv.DateIssued = *req.DateIssued
		}
		if req.DueDate != nil && !req.DueDate.IsZero() {
			inv.DueDate = *req.DueDate
		}
		if (req.DateIssued != nil || req.DueDate != nil) && inv.DueDate.Before(inv.DateIssued) {
			return httpx.NewValidationError("due_date", "must not be before date_issued")
		}
		if req.PaymentMethod != nil {
			inv.PaymentMethod = req.PaymentMethod
		}
		if req.DatePaid != nil {
			if req.DatePaid.IsZero() {
				inv.DatePaid = nil
			} else {
				d := *req.DatePaid
				inv.DatePaid = &d
			}
		}
		if req.AmountDue != nil || req.AmountPaid != nil {
			if req.AmountDue != nil {
				inv.AmountDue = *req.AmountDue
			}
			if req.AmountPaid != nil {
				inv.AmountPaid = *req.AmountPaid
			}
			ApplyAmounts(inv, today)
		}
		return nil
	})
}

// RecordPayment adds a payment to the amount paid and recomputes the status.
func (s *Service) RecordPayment(ctx context.Context, id uuid.UUID, req RecordPaymentRequest) (*View, error) {
	verr := &httpx.ValidationError{}
	if !req.Amount.IsPositive() {
		verr.Add("amount", "must be greater than zero")
	}
	if !req.Method.Valid() {
		verr.Add("method", "unknown payment method")
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}

	today := s.clock.Today()
	view, err := s.mutate(ctx, "record payment", id, func(inv *Invoice) error {
		method := req.Method
		inv.AmountPaid = inv.AmountPaid.Add(req.Amount)
		inv.PaymentMethod = &method
		ApplyAmounts(inv, today)
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("payment recorded",
		slog.String("invoice_number", view.InvoiceNumber),
		slog.String("amount", req.Amount.StringFixed(2)),
		slog.String("status", string(view.Status)),
	)
	return view, nil
}

// SetStatus stores a manually selected status. DatePaid is left untouched.
func (s *Service) SetStatus(ctx context.Context, id uuid.UUID, req SetStatusRequest) (*View, error) {
	if req.Status == StatusOverdue {
		return nil, httpx.NewValidationError("status", "overdue is derived from the due date")
	}
	if !req.Status.Stored() {
		return nil, httpx.NewValidationError("status", "unknown invoice status")
	}
	return s.mutate(ctx, "set invoice status", id, func(inv *Invoice) error {
		inv.Status = req.Status
		return nil
	})
}

// DeleteInvoice removes an invoice and clears its order link atomically.
func (s *Service) DeleteInvoice(ctx context.Context, id uuid.UUID) error {
	err := s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		inv, err := repo.GetInvoice(ctx, id)
		if err != nil {
			return err
		}
		if err := repo.DeleteInvoice(ctx, id); err != nil {
			return err
		}
		return repo.UnlinkOrder(ctx, inv.OrderID, inv.ID)
	})
	if err != nil {
		return fmt.Errorf("delete invoice: %w", err)
	}
	return nil
}

func (s *Service) mutate(ctx context.Context, op string, id uuid.UUID, fn func(*Invoice) error) (*View, error) {
	var updated *Invoice
	err := s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		inv, err := repo.GetInvoice(ctx, id)
		if err != nil {
			return err
		}
		if err := fn(inv); err != nil {
			return err
		}
		inv.UpdatedAt = s.clock.Now()
		if err := repo.UpdateInvoice(ctx, *inv); err != nil {
			return err
		}
		updated = inv
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	view := updated.Display(s.clock.Today())
	return &view, nil
}

// ============================================================================
// MAINTENANCE
// ============================================================================

// ReconcileLinks repairs order links left inconsistent by earlier writes.
func (s *Service) ReconcileLinks(ctx context.Context) (int64, error) {
	n, err := s.repo.ReconcileLinks(ctx)
	if err != nil {
		return 0, fmt.Errorf("reconcile invoice links: %w", err)
	}
	return n, nil
}

// OverdueAlerts lists open invoices more than AlertAfterDays past due.
func (s *Service) OverdueAlerts(ctx context.Context) ([]View, error) {
	invoices, err := s.repo.ListInvoices(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("overdue alerts: %w", err)
	}
	today := s.clock.Today()
	alerts := []View{}
	for _, inv := range invoices {
		if NeedsAlert(inv, today) {
			alerts = append(alerts, inv.Display(today))
		}
	}
	return alerts, nil
}

// Invoices returns every invoice in insertion order for aggregation.
func (s *Service) Invoices(ctx context.Context) ([]Invoice, error) {
	invoices, err := s.repo.ListInvoices(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("load invoices: %w", err)
	}
	return invoices, nil
}
