package sales

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

// CustomerDirectory resolves customer references.
type CustomerDirectory interface {
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
}

// Service provides business logic for sales orders.
type Service struct {
	repo      Repository
	customers CustomerDirectory
	validate  *validator.Validate
	clock     shared.Clock
}

// NewService constructs a sales service.
func NewService(repo Repository, customers CustomerDirectory, clock shared.Clock) *Service {
	return &Service{repo: repo, customers: customers, validate: httpx.NewValidator(), clock: clock}
}

// CreateOrder validates and stores a new order. The total is always derived.
func (s *Service) CreateOrder(ctx context.Context, req CreateOrderRequest) (*Order, error) {
	if req.ShippingStatus == "" {
		req.ShippingStatus = ShippingPending
	}
	if req.OrderDate.IsZero() {
		req.OrderDate = s.clock.Today()
	}
	req.Product = strings.TrimSpace(req.Product)

	verr := s.structErrors(req)
	if req.CustomerID == uuid.Nil {
		verr.Add("customer_id", "is required")
	}
	checkAmounts(verr, req.QuantityKg, req.UnitPrice)
	if !req.ShippingStatus.Valid() {
		verr.Add("shipping_status", "unknown shipping status")
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}
	if err := s.requireCustomer(ctx, req.CustomerID); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	order := Order{
		ID:             uuid.New(),
		CustomerID:     req.CustomerID,
		Product:        req.Product,
		Grade:          req.Grade,
		QuantityKg:     req.QuantityKg,
		UnitPrice:      req.UnitPrice,
		ShippingStatus: req.ShippingStatus,
		OrderDate:      req.OrderDate,
		Documents:      append([]Document{}, req.Documents...),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	order.Recalculate()

	err := s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		return repo.CreateOrder(ctx, order)
	})
	if err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}
	return &order, nil
}

// UpdateOrder applies a partial update, recomputes the total and keeps the invoice link.
func (s *Service) UpdateOrder(ctx context.Context, id uuid.UUID, req UpdateOrderRequest) (*Order, error) {
	verr := s.structErrors(req)
	if req.ShippingStatus != nil && !req.ShippingStatus.Valid() {
		verr.Add("shipping_status", "unknown shipping status")
	}
	if req.Product != nil && strings.TrimSpace(*req.Product) == "" {
		verr.Add("product", "is required")
	}
	if req.CustomerID != nil && *req.CustomerID == uuid.Nil {
		verr.Add("customer_id", "is required")
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}

	var updated *Order
	err := s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		order, err := repo.GetOrder(ctx, id)
		if err != nil {
			return err
		}
		if req.CustomerID != nil && *req.CustomerID != order.CustomerID {
			if order.Invoiced() {
				return ErrOrderInvoiced
			}
			if err := s.requireCustomer(ctx, *req.CustomerID); err != nil {
				return err
			}
			order.CustomerID = *req.CustomerID
		}
		if req.Product != nil {
			order.Product = strings.TrimSpace(*req.Product)
		}
		if req.Grade != nil {
			order.Grade = *req.Grade
		}
		if req.QuantityKg != nil {
			order.QuantityKg = *req.QuantityKg
		}
		if req.UnitPrice != nil {
			order.UnitPrice = *req.UnitPrice
		}
		if req.ShippingStatus != nil {
			order.ShippingStatus = *req.ShippingStatus
		}
		if req.OrderDate != nil && !req.OrderDate.IsZero() {
			order.OrderDate = *req.OrderDate
		}

		amounts := &httpx.ValidationError{}
		checkAmounts(amounts, order.QuantityKg, order.UnitPrice)
		if err := amounts.OrNil(); err != nil {
			return err
		}

		order.Recalculate()
		order.UpdatedAt = s.clock.Now()
		if err := repo.UpdateOrder(ctx, *order); err != nil {
			return err
		}
		updated = order
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("update order: %w", err)
	}
	return updated, nil
}

// GetOrder returns a single order.
func (s *Service) GetOrder(ctx context.Context, id uuid.UUID) (*Order, error) {
	order, err := s.repo.GetOrder(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}
	return order, nil
}

// Exists reports whether an order id resolves.
func (s *Service) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	_, err := s.repo.GetOrder(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// ListOrders returns orders in insertion order, optionally filtered.
func (s *Service) ListOrders(ctx context.Context, req ListOrdersRequest) ([]Order, error) {
	if req.ShippingStatus != "" && !req.ShippingStatus.Valid() {
		return nil, httpx.NewValidationError("shipping_status", "unknown shipping status")
	}
	orders, err := s.repo.ListOrders(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return orders, nil
}

// DeleteOrder removes an order. An order with an invoice is kept so the
// invoice never points at a missing order.
func (s *Service) DeleteOrder(ctx context.Context, id uuid.UUID) error {
	err := s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		order, err := repo.GetOrder(ctx, id)
		if err != nil {
			return err
		}
		if order.Invoiced() {
			return ErrOrderInvoiced
		}
		return repo.DeleteOrder(ctx, id)
	})
	if err != nil {
		return fmt.Errorf("delete order: %w", err)
	}
	return nil
}

// AddDocument attaches shipping document metadata to an order.
func (s *Service) AddDocument(ctx context.Context, orderID uuid.UUID, doc Document) (*Order, error) {
	doc.Name = strings.TrimSpace(doc.Name)
	doc.Type = strings.TrimSpace(doc.Type)
	if err := httpx.FromValidator(s.validate.Struct(doc)); err != nil {
		return nil, err
	}

	var updated *Order
	err := s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		order, err := repo.GetOrder(ctx, orderID)
		if err != nil {
			return err
		}
		if err := repo.AddDocument(ctx, orderID, doc); err != nil {
			return err
		}
		order.Documents = append(order.Documents, doc)
		updated = order
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("add document: %w", err)
	}
	return updated, nil
}

func (s *Service) requireCustomer(ctx context.Context, id uuid.UUID) error {
	if s.customers == nil {
		return nil
	}
	ok, err := s.customers.Exists(ctx, id)
	if err != nil {
		return fmt.Errorf("lookup customer: %w", err)
	}
	if !ok {
		return httpx.NewValidationError("customer_id", "customer does not exist")
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

func checkAmounts(verr *httpx.ValidationError, qty, price decimal.Decimal) {
	if !qty.IsPositive() {
		verr.Add("quantity_kg", "must be greater than zero")
	}
	if price.IsNegative() {
		verr.Add("unit_price", "must not be negative")
	}
}
