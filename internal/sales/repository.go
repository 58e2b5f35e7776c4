package sales

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

// Repository persists sales orders and their documents.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, Repository) error) error
	CreateOrder(ctx context.Context, order Order) error
	GetOrder(ctx context.Context, id uuid.UUID) (*Order, error)
	UpdateOrder(ctx context.Context, order Order) error
	DeleteOrder(ctx context.Context, id uuid.UUID) error
	ListOrders(ctx context.Context, req ListOrdersRequest) ([]Order, error)
	AddDocument(ctx context.Context, orderID uuid.UUID, doc Document) error
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

// The invoice link is reconciled on read: an invoice row pointing at the
// order wins over a missing or stale linked_invoice_id.
const orderSelect = `SELECT o.id, o.customer_id, o.product, o.grade, o.quantity_kg, o.unit_price,
	o.total_amount, o.shipping_status, o.order_date, COALESCE(i.id, o.linked_invoice_id),
	o.created_at, o.updated_at
FROM sales_orders o
LEFT JOIN invoices i ON i.order_id = o.id`

// CreateOrder inserts an order row and its documents.
func (r *PGRepository) CreateOrder(ctx context.Context, o Order) error {
	const q = `INSERT INTO sales_orders (id, customer_id, product, grade, quantity_kg, unit_price,
	total_amount, shipping_status, order_date, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	_, err := r.db.Exec(ctx, q,
		o.ID, o.CustomerID, o.Product, o.Grade, o.QuantityKg, o.UnitPrice, o.TotalAmount,
		string(o.ShippingStatus), o.OrderDate.PG(), o.CreatedAt, o.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("sales: insert order: %w", err)
	}
	for _, doc := range o.Documents {
		if err := r.AddDocument(ctx, o.ID, doc); err != nil {
			return err
		}
	}
	return nil
}

// GetOrder loads an order with its documents.
func (r *PGRepository) GetOrder(ctx context.Context, id uuid.UUID) (*Order, error) {
	o, err := scanOrder(r.db.QueryRow(ctx, orderSelect+` WHERE o.id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("sales: get order: %w", err)
	}
	docs, err := r.documentsFor(ctx, []uuid.UUID{o.ID})
	if err != nil {
		return nil, err
	}
	if list, ok := docs[o.ID]; ok {
		o.Documents = list
	}
	return &o, nil
}

// UpdateOrder overwrites the editable fields. linked_invoice_id is never written here.
func (r *PGRepository) UpdateOrder(ctx context.Context, o Order) error {
	const q = `UPDATE sales_orders SET customer_id = $2, product = $3, grade = $4, quantity_kg = $5,
	unit_price = $6, total_amount = $7, shipping_status = $8, order_date = $9, updated_at = $10
WHERE id = $1`
	tag, err := r.db.Exec(ctx, q,
		o.ID, o.CustomerID, o.Product, o.Grade, o.QuantityKg, o.UnitPrice, o.TotalAmount,
		string(o.ShippingStatus), o.OrderDate.PG(), o.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("sales: update order: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteOrder removes an order and its documents.
func (r *PGRepository) DeleteOrder(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM sales_orders WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("sales: delete order: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListOrders returns orders in insertion order.
func (r *PGRepository) ListOrders(ctx context.Context, req ListOrdersRequest) ([]Order, error) {
	var customer pgtype.UUID
	if req.CustomerID != nil {
		customer = pgtype.UUID{Bytes: *req.CustomerID, Valid: true}
	}
	q := orderSelect + `
WHERE ($1::uuid IS NULL OR o.customer_id = $1) AND ($2 = '' OR o.shipping_status = $2)
ORDER BY o.created_at, o.id`
	rows, err := r.db.Query(ctx, q, customer, string(req.ShippingStatus))
	if err != nil {
		return nil, fmt.Errorf("sales: list orders: %w", err)
	}
	defer rows.Close()

	var orders []Order
	var ids []uuid.UUID
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("sales: scan order: %w", err)
		}
		orders = append(orders, o)
		ids = append(ids, o.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sales: list orders: %w", err)
	}
	if len(ids) == 0 {
		return orders, nil
	}
	docs, err := r.documentsFor(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range orders {
		if list, ok := docs[orders[i].ID]; ok {
			orders[i].Documents = list
		}
	}
	return orders, nil
}

// AddDocument attaches document metadata to an order.
func (r *PGRepository) AddDocument(ctx context.Context, orderID uuid.UUID, doc Document) error {
	const q = `INSERT INTO order_documents (id, order_id, name, document_type) VALUES ($1, $2, $3, $4)`
	if _, err := r.db.Exec(ctx, q, uuid.New(), orderID, doc.Name, doc.Type); err != nil {
		return fmt.Errorf("sales: insert document: %w", err)
	}
	return nil
}

func (r *PGRepository) documentsFor(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID][]Document, error) {
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = id.String()
	}
	const q = `SELECT order_id, name, document_type FROM order_documents
WHERE order_id = ANY($1::uuid[])
ORDER BY created_at, id`
	rows, err := r.db.Query(ctx, q, keys)
	if err != nil {
		return nil, fmt.Errorf("sales: list documents: %w", err)
	}
	defer rows.Close()

	out := make(map[uuid.UUID][]Document, len(ids))
	for rows.Next() {
		var (
			orderID uuid.UUID
			doc     Document
		)
		if err := rows.Scan(&orderID, &doc.Name, &doc.Type); err != nil {
			return nil, fmt.Errorf("sales: scan document: %w", err)
		}
		out[orderID] = append(out[orderID], doc)
	}
	return out, rows.Err()
}

func scanOrder(row pgx.Row) (Order, error) {
	var (
		o        Order
		qty      decimal.Decimal
		price    decimal.Decimal
		total    decimal.Decimal
		status   string
		date     pgtype.Date
		linkedID pgtype.UUID
	)
	if err := row.Scan(
		&o.ID, &o.CustomerID, &o.Product, &o.Grade, &qty, &price, &total,
		&status, &date, &linkedID, &o.CreatedAt, &o.UpdatedAt,
	); err != nil {
		return Order{}, err
	}
	o.QuantityKg = qty
	o.UnitPrice = price
	o.TotalAmount = total
	o.ShippingStatus = ShippingStatus(status)
	o.OrderDate = shared.DateFromPG(date)
	if linkedID.Valid {
		id := uuid.UUID(linkedID.Bytes)
		o.LinkedInvoiceID = &id
	}
	o.Documents = []Document{}
	return o, nil
}

var _ Repository = (*PGRepository)(nil)
