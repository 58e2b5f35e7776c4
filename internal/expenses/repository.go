package expenses

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

// Repository persists expenses.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, Repository) error) error
	CreateExpense(ctx context.Context, e Expense) error
	GetExpense(ctx context.Context, id uuid.UUID) (*Expense, error)
	UpdateExpense(ctx context.Context, e Expense) error
	DeleteExpense(ctx context.Context, id uuid.UUID) error
	ListExpenses(ctx context.Context, req ListExpensesRequest) ([]Expense, error)
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

const expenseColumns = `id, expense_type, expense_date, amount, paid_to, related_order_id,
	receipt_url, is_approved, description, created_at, updated_at`

// CreateExpense inserts an expense row.
func (r *PGRepository) CreateExpense(ctx context.Context, e Expense) error {
	q := `INSERT INTO expenses (` + expenseColumns + `)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	_, err := r.db.Exec(ctx, q,
		e.ID, string(e.Type), e.Date.PG(), e.Amount, e.PaidTo, optionalUUID(e.RelatedOrderID),
		optionalText(e.ReceiptURL), e.IsApproved, e.Description, e.CreatedAt, e.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("expenses: insert expense: %w", err)
	}
	return nil
}

// GetExpense loads one expense.
func (r *PGRepository) GetExpense(ctx context.Context, id uuid.UUID) (*Expense, error) {
	e, err := scanExpense(r.db.QueryRow(ctx, `SELECT `+expenseColumns+` FROM expenses WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("expenses: get expense: %w", err)
	}
	return &e, nil
}

// UpdateExpense overwrites every editable field, approval included.
func (r *PGRepository) UpdateExpense(ctx context.Context, e Expense) error {
	const q = `UPDATE expenses SET expense_type = $2, expense_date = $3, amount = $4, paid_to = $5,
	related_order_id = $6, receipt_url = $7, is_approved = $8, description = $9, updated_at = $10
WHERE id = $1`
	tag, err := r.db.Exec(ctx, q,
		e.ID, string(e.Type), e.Date.PG(), e.Amount, e.PaidTo, optionalUUID(e.RelatedOrderID),
		optionalText(e.ReceiptURL), e.IsApproved, e.Description, e.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("expenses: update expense: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteExpense removes an expense row.
func (r *PGRepository) DeleteExpense(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM expenses WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("expenses: delete expense: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListExpenses returns matching expenses in insertion order.
func (r *PGRepository) ListExpenses(ctx context.Context, req ListExpensesRequest) ([]Expense, error) {
	q := `SELECT ` + expenseColumns + ` FROM expenses
WHERE ($1 = '' OR expense_type = $1)
  AND ($2 = '' OR to_char(expense_date, 'YYYY-MM-DD') LIKE $2 || '%')
  AND ($3::uuid IS NULL OR related_order_id = $3)
ORDER BY created_at, id`
	rows, err := r.db.Query(ctx, q, string(req.Type), req.DatePrefix, optionalUUID(req.RelatedOrderID))
	if err != nil {
		return nil, fmt.Errorf("expenses: list expenses: %w", err)
	}
	defer rows.Close()

	list := []Expense{}
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, fmt.Errorf("expenses: scan expense: %w", err)
		}
		list = append(list, e)
	}
	return list, rows.Err()
}

func scanExpense(row pgx.Row) (Expense, error) {
	var (
		e       Expense
		kind    string
		date    pgtype.Date
		amount  decimal.Decimal
		related pgtype.UUID
		receipt pgtype.Text
	)
	if err := row.Scan(
		&e.ID, &kind, &date, &amount, &e.PaidTo, &related,
		&receipt, &e.IsApproved, &e.Description, &e.CreatedAt, &e.UpdatedAt,
	); err != nil {
		return Expense{}, err
	}
	e.Type = Type(kind)
	e.Date = shared.DateFromPG(date)
	e.Amount = amount
	if related.Valid {
		id := uuid.UUID(related.Bytes)
		e.RelatedOrderID = &id
	}
	if receipt.Valid {
		url := receipt.String
		e.ReceiptURL = &url
	}
	return e, nil
}

func optionalUUID(id *uuid.UUID) pgtype.UUID {
	if id == nil {
		return pgtype.UUID{}
	}
	return pgtype.UUID{Bytes: *id, Valid: true}
}

func optionalText(s *string) pgtype.Text {
	if s == nil {
		return pgtype.Text{}
	}
	return pgtype.Text{String: *s, Valid: true}
}

var _ Repository = (*PGRepository)(nil)
