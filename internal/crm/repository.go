package crm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/coffee-export/export-manager/internal/platform/db"
	"github.com/coffee-export/export-manager/internal/shared"
)

// Repository persists customers and their interactions.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, Repository) error) error
	CreateCustomer(ctx context.Context, customer Customer) error
	GetCustomer(ctx context.Context, id uuid.UUID) (*Customer, error)
	UpdateCustomer(ctx context.Context, customer Customer) error
	DeleteCustomer(ctx context.Context, id uuid.UUID) error
	ListCustomers(ctx context.Context, req ListCustomersRequest) ([]Customer, error)
	AppendInteraction(ctx context.Context, customerID uuid.UUID, interaction Interaction) error
	CountOrders(ctx context.Context, customerID uuid.UUID) (int, error)
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

const customerColumns = `id, company_name, contact_person, country, email, phone, preferred_origin,
	certifications, status, assigned_sales_rep, notes, next_follow_up, created_at, updated_at`

// CreateCustomer inserts a customer row.
func (r *PGRepository) CreateCustomer(ctx context.Context, c Customer) error {
	const q = `INSERT INTO customers (` + customerColumns + `)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`
	_, err := r.db.Exec(ctx, q,
		c.ID, c.CompanyName, c.ContactPerson, c.Country, c.Email, c.Phone, string(c.PreferredOrigin),
		certStrings(c.Certifications), string(c.Status), c.AssignedSalesRep, c.Notes,
		shared.OptionalDatePG(c.NextFollowUpDate), c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("crm: insert customer: %w", err)
	}
	return nil
}

// GetCustomer loads a customer with its interactions in insertion order.
func (r *PGRepository) GetCustomer(ctx context.Context, id uuid.UUID) (*Customer, error) {
	row := r.db.QueryRow(ctx, `SELECT `+customerColumns+` FROM customers WHERE id = $1`, id)
	c, err := scanCustomer(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("crm: get customer: %w", err)
	}
	interactions, err := r.interactionsFor(ctx, []uuid.UUID{c.ID})
	if err != nil {
		return nil, err
	}
	if list, ok := interactions[c.ID]; ok {
		c.Interactions = list
	}
	return &c, nil
}

// UpdateCustomer overwrites the editable fields of a customer.
func (r *PGRepository) UpdateCustomer(ctx context.Context, c Customer) error {
	const q = `UPDATE customers SET company_name = $2, contact_person = $3, country = $4, email = $5,
	phone = $6, preferred_origin = $7, certifications = $8, status = $9, assigned_sales_rep = $10,
	notes = $11, next_follow_up = $12, updated_at = $13
WHERE id = $1`
	tag, err := r.db.Exec(ctx, q,
		c.ID, c.CompanyName, c.ContactPerson, c.Country, c.Email, c.Phone, string(c.PreferredOrigin),
		certStrings(c.Certifications), string(c.Status), c.AssignedSalesRep, c.Notes,
		shared.OptionalDatePG(c.NextFollowUpDate), c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("crm: update customer: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteCustomer removes a customer and, through the foreign key, its interactions.
func (r *PGRepository) DeleteCustomer(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM customers WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("crm: delete customer: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListCustomers returns customers in insertion order.
func (r *PGRepository) ListCustomers(ctx context.Context, req ListCustomersRequest) ([]Customer, error) {
	const q = `SELECT ` + customerColumns + ` FROM customers
WHERE ($1 = '' OR status = $1) AND ($2 = '' OR preferred_origin = $2)
ORDER BY created_at, id`
	rows, err := r.db.Query(ctx, q, string(req.Status), string(req.Origin))
	if err != nil {
		return nil, fmt.Errorf("crm: list customers: %w", err)
	}
	defer rows.Close()

	var customers []Customer
	var ids []uuid.UUID
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, fmt.Errorf("crm: scan customer: %w", err)
		}
		customers = append(customers, c)
		ids = append(ids, c.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("crm: list customers: %w", err)
	}
	if len(ids) == 0 {
		return customers, nil
	}

	interactions, err := r.interactionsFor(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range customers {
		if list, ok := interactions[customers[i].ID]; ok {
			customers[i].Interactions = list
		}
	}
	return customers, nil
}

// AppendInteraction stores a new interaction for the customer.
func (r *PGRepository) AppendInteraction(ctx context.Context, customerID uuid.UUID, in Interaction) error {
	const q = `INSERT INTO customer_interactions (id, customer_id, occurred_on, interaction_type, notes)
VALUES ($1, $2, $3, $4, $5)`
	if _, err := r.db.Exec(ctx, q, in.ID, customerID, in.Date.PG(), string(in.Type), in.Notes); err != nil {
		return fmt.Errorf("crm: insert interaction: %w", err)
	}
	return nil
}

// CountOrders reports how many sales orders reference the customer.
func (r *PGRepository) CountOrders(ctx context.Context, customerID uuid.UUID) (int, error) {
	var n int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM sales_orders WHERE customer_id = $1`, customerID).Scan(&n); err != nil {
		return 0, fmt.Errorf("crm: count orders: %w", err)
	}
	return n, nil
}

func (r *PGRepository) interactionsFor(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID][]Interaction, error) {
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = id.String()
	}
	const q = `SELECT id, customer_id, occurred_on, interaction_type, notes
FROM customer_interactions
WHERE customer_id = ANY($1::uuid[])
ORDER BY created_at, id`
	rows, err := r.db.Query(ctx, q, keys)
	if err != nil {
		return nil, fmt.Errorf("crm: list interactions: %w", err)
	}
	defer rows.Close()

	out := make(map[uuid.UUID][]Interaction, len(ids))
	for rows.Next() {
		var (
			in         Interaction
			customerID uuid.UUID
			occurred   pgtype.Date
			kind       string
		)
		if err := rows.Scan(&in.ID, &customerID, &occurred, &kind, &in.Notes); err != nil {
			return nil, fmt.Errorf("crm: scan interaction: %w", err)
		}
		in.Date = shared.DateFromPG(occurred)
		in.Type = InteractionType(kind)
		out[customerID] = append(out[customerID], in)
	}
	return out, rows.Err()
}

func scanCustomer(row pgx.Row) (Customer, error) {
	var (
		c         Customer
		origin    string
		status    string
		certs     []string
		followUp  pgtype.Date
		createdAt time.Time
		updatedAt time.Time
	)
	if err := row.Scan(
		&c.ID, &c.CompanyName, &c.ContactPerson, &c.Country, &c.Email, &c.Phone, &origin,
		&certs, &status, &c.AssignedSalesRep, &c.Notes, &followUp, &createdAt, &updatedAt,
	); err != nil {
		return Customer{}, err
	}
	c.PreferredOrigin = CoffeeOrigin(origin)
	c.Status = CustomerStatus(status)
	c.Certifications = make([]Certification, len(certs))
	for i, cert := range certs {
		c.Certifications[i] = Certification(cert)
	}
	c.NextFollowUpDate = shared.OptionalDateFromPG(followUp)
	c.Interactions = []Interaction{}
	c.CreatedAt = createdAt
	c.UpdatedAt = updatedAt
	return c, nil
}

func certStrings(certs []Certification) []string {
	out := make([]string, len(certs))
	for i, c := range certs {
		out[i] = string(c)
	}
	return out
}

var _ Repository = (*PGRepository)(nil)
