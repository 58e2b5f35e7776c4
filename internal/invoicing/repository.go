package invoicing

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/coffee-export/export-manager/internal/platform/db"
	"github.com/coffee-export/export-manager/internal/shared"
)

const (
	constraintOrderUnique  = "invoices_order_id_key"
	constraintNumberUnique = "invoices_invoice_number_key"
)

// Repository persists invoices and the order link.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, Repository) error) error
	NextNumber(ctx context.Context, year int) (int, error)
	CreateInvoice(ctx context.Context, inv Invoice) error
	GetInvoice(ctx context.Context, id uuid.UUID) (*Invoice, error)
	GetInvoiceByOrder(ctx context.Context, orderID uuid.UUID) (*Invoice, error)
	UpdateInvoice(ctx context.Context, inv Invoice) error
	DeleteInvoice(ctx context.Context, id uuid.UUID) error
	ListInvoices(ctx context.Context, customerID *uuid.UUID) ([]Invoice, error)
	OrderForInvoicing(ctx context.Context, orderID uuid.UUID) (*OrderRef, error)
	LinkOrder(ctx context.Context, orderID, invoiceID uuid.UUID) error
	UnlinkOrder(ctx context.Context, orderID, invoiceID uuid.UUID) error
	ReconcileLinks(ctx context.Context) (int64, error)
}

// PGRepository implements Repository on PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
	db   db.DBTX
	inTx bool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool, db: pool}
}

// WithTx runs fn with a repository bound to a single transaction.
func (r *PGRepository) WithTx(ctx context.Context, fn func(context.Context, Repository) error) error {
	if r.inTx {
		return fn(ctx, r)
	}
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &PGRepository{pool: r.pool, db: tx, inTx: true})
	})
}

// NextNumber allocates the next invoice sequence value for year.
func (r *PGRepository) NextNumber(ctx context.Context, year int) (int, error) {
	const q = `INSERT INTO invoice_sequences (year, last_value) VALUES ($1, 1)
ON CONFLICT (year) DO UPDATE SET last_value = invoice_sequences.last_value + 1
RETURNING last_value`
	var seq int
	if err := r.db.QueryRow(ctx, q, year).Scan(&seq); err != nil {
		return 0, fmt.Errorf("invoicing: next number: %w", err)
	}
	return seq, nil
}

const invoiceColumns = `id, invoice_number, order_id, customer_id, date_issued, due_date,
	amount_due, amount_paid, payment_method, date_paid, status, created_at, updated_at`

// CreateInvoice inserts an invoice row.
func (r *PGRepository) CreateInvoice(ctx context.Context, inv Invoice) error {
	q := `INSERT INTO invoices (` + invoiceColumns + `)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`
	_, err := r.db.Exec(ctx, q,
		inv.ID, inv.InvoiceNumber, inv.OrderID, inv.CustomerID, inv.DateIssued.PG(), inv.DueDate.PG(),
		inv.AmountDue, inv.AmountPaid, methodPG(inv.PaymentMethod), shared.OptionalDatePG(inv.DatePaid),
		string(inv.Status), inv.CreatedAt, inv.UpdatedAt,
	)
	switch {
	case err == nil:
		return nil
	case db.IsUniqueViolation(err, constraintOrderUnique):
		return ErrInvoiceExists
	case db.IsUniqueViolation(err, constraintNumberUnique):
		return ErrNumberTaken
	default:
		return fmt.Errorf("invoicing: insert invoice: %w", err)
	}
}

// GetInvoice loads one invoice.
func (r *PGRepository) GetInvoice(ctx context.Context, id uuid.UUID) (*Invoice, error) {
	return r.getOne(ctx, `SELECT `+invoiceColumns+` FROM invoices WHERE id = $1`, id)
}

// GetInvoiceByOrder loads the invoice billing orderID.
func (r *PGRepository) GetInvoiceByOrder(ctx context.Context, orderID uuid.UUID) (*Invoice, error) {
	return r.getOne(ctx, `SELECT `+invoiceColumns+` FROM invoices WHERE order_id = $1`, orderID)
}

func (r *PGRepository) getOne(ctx context.Context, q string, arg uuid.UUID) (*Invoice, error) {
	inv, err := scanInvoice(r.db.QueryRow(ctx, q, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("invoicing: get invoice: %w", err)
	}
	return &inv, nil
}

// UpdateInvoice overwrites the editable fields. order_id and invoice_number are immutable.
func (r *PGRepository) UpdateInvoice(ctx context.Context, inv Invoice) error {
	const q = `UPDATE invoices SET date_issued = $2, due_date = $3, amount_due = $4, amount_paid = $5,
	payment_method = $6, date_paid = $7, status = $8, updated_at = $9
WHERE id = $1`
	tag, err := r.db.Exec(ctx, q,
		inv.ID, inv.DateIssued.PG(), inv.DueDate.PG(), inv.AmountDue, inv.AmountPaid,
		methodPG(inv.PaymentMethod), shared.OptionalDatePG(inv.DatePaid), string(inv.Status), inv.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("invoicing: update invoice: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteInvoice removes an invoice row.
func (r *PGRepository) DeleteInvoice(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM invoices WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("invoicing: delete invoice: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListInvoices returns invoices in insertion order.
func (r *PGRepository) ListInvoices(ctx context.Context, customerID *uuid.UUID) ([]Invoice, error) {
	var customer pgtype.UUID
	if customerID != nil {
		customer = pgtype.UUID{Bytes: *customerID, Valid: true}
	}
	q := `SELECT ` + invoiceColumns + ` FROM invoices
WHERE ($1::uuid IS NULL OR customer_id = $1)
ORDER BY created_at, id`
	rows, err := r.db.Query(ctx, q, customer)
	if err != nil {
		return nil, fmt.Errorf("invoicing: list invoices: %w", err)
	}
	defer rows.Close()

	invoices := []Invoice{}
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, fmt.Errorf("invoicing: scan invoice: %w", err)
		}
		invoices = append(invoices, inv)
	}
	return invoices, rows.Err()
}

// OrderForInvoicing loads and row-locks the order to be billed. The link is
// reconciled from invoices.order_id.
func (r *PGRepository) OrderForInvoicing(ctx context.Context, orderID uuid.UUID) (*OrderRef, error) {
	const q = `SELECT o.id, o.customer_id, o.total_amount, o.order_date, COALESCE(i.id, o.linked_invoice_id)
FROM sales_orders o
LEFT JOIN invoices i ON i.order_id = o.id
WHERE o.id = $1
FOR UPDATE OF o`
	var (
		ref    OrderRef
		total  decimal.Decimal
		date   pgtype.Date
		linked pgtype.UUID
	)
	err := r.db.QueryRow(ctx, q, orderID).Scan(&ref.ID, &ref.CustomerID, &total, &date, &linked)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("invoicing: load order: %w", err)
	}
	ref.TotalAmount = total
	ref.OrderDate = shared.DateFromPG(date)
	if linked.Valid {
		id := uuid.UUID(linked.Bytes)
		ref.LinkedInvoiceID = &id
	}
	return &ref, nil
}

// LinkOrder records invoiceID on the order.
func (r *PGRepository) LinkOrder(ctx context.Context, orderID, invoiceID uuid.UUID) error {
	const q = `UPDATE sales_orders SET linked_invoice_id = $2, updated_at = NOW() WHERE id = $1`
	tag, err := r.db.Exec(ctx, q, orderID, invoiceID)
	if err != nil {
		return fmt.Errorf("invoicing: link order: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrOrderNotFound
	}
	return nil
}

// UnlinkOrder clears the order link if it still points at invoiceID.
func (r *PGRepository) UnlinkOrder(ctx context.Context, orderID, invoiceID uuid.UUID) error {
	const q = `UPDATE sales_orders SET linked_invoice_id = NULL, updated_at = NOW()
WHERE id = $1 AND linked_invoice_id = $2`
	if _, err := r.db.Exec(ctx, q, orderID, invoiceID); err != nil {
		return fmt.Errorf("invoicing: unlink order: %w", err)
	}
	return nil
}

// ReconcileLinks repairs orders whose invoice exists but is not linked, and
// clears links to invoices that no longer exist.
func (r *PGRepository) ReconcileLinks(ctx context.Context) (int64, error) {
	const link = `UPDATE sales_orders o SET linked_invoice_id = i.id, updated_at = NOW()
FROM invoices i
WHERE i.order_id = o.id AND o.linked_invoice_id IS DISTINCT FROM i.id`
	const clear = `UPDATE sales_orders o SET linked_invoice_id = NULL, updated_at = NOW()
WHERE o.linked_invoice_id IS NOT NULL
  AND NOT EXISTS (SELECT 1 FROM invoices i WHERE i.id = o.linked_invoice_id)`

	linked, err := r.db.Exec(ctx, link)
	if err != nil {
		return 0, fmt.Errorf("invoicing: reconcile links: %w", err)
	}
	cleared, err := r.db.Exec(ctx, clear)
	if err != nil {
		return 0, fmt.Errorf("invoicing: clear stale links: %w", err)
	}
	return linked.RowsAffected() + cleared.RowsAffected(), nil
}

func scanInvoice(row pgx.Row) (Invoice, error) {
	var (
		inv     Invoice
		issued  pgtype.Date
		due     pgtype.Date
		paidOn  pgtype.Date
		method  pgtype.Text
		status  string
		amtDue  decimal.Decimal
		amtPaid decimal.Decimal
	)
	if err := row.Scan(
		&inv.ID, &inv.InvoiceNumber, &inv.OrderID, &inv.CustomerID, &issued, &due,
		&amtDue, &amtPaid, &method, &paidOn, &status, &inv.CreatedAt, &inv.UpdatedAt,
	); err != nil {
		return Invoice{}, err
	}
	inv.DateIssued = shared.DateFromPG(issued)
	inv.DueDate = shared.DateFromPG(due)
	inv.DatePaid = shared.OptionalDateFromPG(paidOn)
	inv.AmountDue = amtDue
	inv.AmountPaid = amtPaid
	inv.Status = Status(status)
	if method.Valid {
		m := PaymentMethod(method.String)
		inv.PaymentMethod = &m
	}
	return inv, nil
}

func methodPG(m *PaymentMethod) pgtype.Text {
	if m == nil {
		return pgtype.Text{}
	}
	return pgtype.Text{String: string(*m), Valid: true}
}

var _ Repository = (*PGRepository)(nil)
