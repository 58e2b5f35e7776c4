package crm

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/coffee-export/export-manager/internal/platform/httpx"
	"github.com/coffee-export/export-manager/internal/shared"
)

// Service provides business logic for customer relationship management.
type Service struct {
	repo     Repository
	validate *validator.Validate
	clock    shared.Clock
}

// NewService constructs a CRM service.
func NewService(repo Repository, clock shared.Clock) *Service {
	return &Service{repo: repo, validate: httpx.NewValidator(), clock: clock}
}

// ============================================================================
// CUSTOMERS
// ============================================================================

// CreateCustomer validates and stores a new customer. Status defaults to Lead.
func (s *Service) CreateCustomer(ctx context.Context, req CreateCustomerRequest) (*Customer, error) {
	if req.Status == "" {
		req.Status = StatusLead
	}
	req.CompanyName = strings.TrimSpace(req.CompanyName)
	if err := s.validateCreate(req); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	customer := Customer{
		ID:               uuid.New(),
		CompanyName:      req.CompanyName,
		ContactPerson:    req.ContactPerson,
		Country:          req.Country,
		Email:            req.Email,
		Phone:            req.Phone,
		PreferredOrigin:  req.PreferredOrigin,
		Certifications:   dedupeCerts(req.Certifications),
		Status:           req.Status,
		AssignedSalesRep: req.AssignedSalesRep,
		Notes:            req.Notes,
		NextFollowUpDate: req.NextFollowUpDate,
		Interactions:     []Interaction{},
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := s.repo.CreateCustomer(ctx, customer); err != nil {
		return nil, fmt.Errorf("create customer: %w", err)
	}
	return &customer, nil
}

// UpdateCustomer applies a partial update. Interactions are never touched here.
func (s *Service) UpdateCustomer(ctx context.Context, id uuid.UUID, req UpdateCustomerRequest) (*Customer, error) {
	if err := s.validateUpdate(req); err != nil {
		return nil, err
	}

	var updated *Customer
	err := s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		customer, err := repo.GetCustomer(ctx, id)
		if err != nil {
			return err
		}
		applyUpdate(customer, req)
		customer.UpdatedAt = s.clock.Now()
		if err := repo.UpdateCustomer(ctx, *customer); err != nil {
			return err
		}
		updated = customer
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("update customer: %w", err)
	}
	return updated, nil
}

// GetCustomer returns a single customer.
func (s *Service) GetCustomer(ctx context.Context, id uuid.UUID) (*Customer, error) {
	customer, err := s.repo.GetCustomer(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get customer: %w", err)
	}
	return customer, nil
}

// ListCustomers returns customers in insertion order, optionally filtered.
func (s *Service) ListCustomers(ctx context.Context, req ListCustomersRequest) ([]Customer, error) {
	verr := &httpx.ValidationError{}
	if req.Status != "" && !req.Status.Valid() {
		verr.Add("status", "unknown customer status")
	}
	if req.Origin != "" && !req.Origin.Valid() {
		verr.Add("origin", "unknown coffee origin")
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}
	customers, err := s.repo.ListCustomers(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("list customers: %w", err)
	}
	return customers, nil
}

// DeleteCustomer removes a customer unless sales orders still reference it.
func (s *Service) DeleteCustomer(ctx context.Context, id uuid.UUID) error {
	err := s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		if _, err := repo.GetCustomer(ctx, id); err != nil {
			return err
		}
		n, err := repo.CountOrders(ctx, id)
		if err != nil {
			return err
		}
		if n > 0 {
			return ErrCustomerInUse
		}
		return repo.DeleteCustomer(ctx, id)
	})
	if err != nil {
		return fmt.Errorf("delete customer: %w", err)
	}
	return nil
}

// Exists reports whether the customer id resolves. Used by sales to validate references.
func (s *Service) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	_, err := s.repo.GetCustomer(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// ============================================================================
// INTERACTIONS & FOLLOW-UPS
// ============================================================================

// LogInteraction appends an interaction to the customer's history.
func (s *Service) LogInteraction(ctx context.Context, customerID uuid.UUID, req LogInteractionRequest) (*Customer, error) {
	if err := httpx.FromValidator(s.validate.Struct(req)); err != nil {
		return nil, err
	}
	if !req.Type.Valid() {
		return nil, httpx.NewValidationError("type", "unknown interaction type")
	}
	if req.Date.IsZero() {
		req.Date = s.clock.Today()
	}

	var updated *Customer
	err := s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		customer, err := repo.GetCustomer(ctx, customerID)
		if err != nil {
			return err
		}
		interaction := Interaction{ID: uuid.New(), Date: req.Date, Type: req.Type, Notes: req.Notes}
		if err := repo.AppendInteraction(ctx, customerID, interaction); err != nil {
			return err
		}
		customer.Interactions = append(customer.Interactions, interaction)
		updated = customer
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("log interaction: %w", err)
	}
	return updated, nil
}

// FollowUpsDue lists customers whose next follow-up date is before today,
// oldest follow-up first.
func (s *Service) FollowUpsDue(ctx context.Context) ([]Customer, error) {
	customers, err := s.repo.ListCustomers(ctx, ListCustomersRequest{})
	if err != nil {
		return nil, fmt.Errorf("follow-ups due: %w", err)
	}
	return OverdueFollowUps(customers, s.clock.Today()), nil
}

// OverdueFollowUps filters customers with a follow-up date before today.
func OverdueFollowUps(customers []Customer, today shared.Date) []Customer {
	due := make([]Customer, 0)
	for _, c := range customers {
		if c.FollowUpOverdue(today) {
			due = append(due, c)
		}
	}
	sort.SliceStable(due, func(i, j int) bool {
		return due[i].NextFollowUpDate.Before(*due[j].NextFollowUpDate)
	})
	return due
}

// ============================================================================
// HELPERS
// ============================================================================

func (s *Service) validateCreate(req CreateCustomerRequest) error {
	verr := &httpx.ValidationError{}
	if err := httpx.FromValidator(s.validate.Struct(req)); err != nil {
		var fieldErrs *httpx.ValidationError
		if !errors.As(err, &fieldErrs) {
			return err
		}
		verr = fieldErrs
	}
	if req.PreferredOrigin != "" && !req.PreferredOrigin.Valid() {
		verr.Add("preferred_origin", "unknown coffee origin")
	}
	if !req.Status.Valid() {
		verr.Add("status", "unknown customer status")
	}
	validateCerts(verr, req.Certifications)
	return verr.OrNil()
}

func (s *Service) validateUpdate(req UpdateCustomerRequest) error {
	verr := &httpx.ValidationError{}
	if err := httpx.FromValidator(s.validate.Struct(req)); err != nil {
		var fieldErrs *httpx.ValidationError
		if !errors.As(err, &fieldErrs) {
			return err
		}
		verr = fieldErrs
	}
	if req.CompanyName != nil && strings.TrimSpace(*req.CompanyName) == "" {
		verr.Add("company_name", "is required")
	}
	if req.PreferredOrigin != nil && !req.PreferredOrigin.Valid() {
		verr.Add("preferred_origin", "unknown coffee origin")
	}
	if req.Status != nil && !req.Status.Valid() {
		verr.Add("status", "unknown customer status")
	}
	if req.Certifications != nil {
		validateCerts(verr, *req.Certifications)
	}
	return verr.OrNil()
}

func validateCerts(verr *httpx.ValidationError, certs []Certification) {
	for _, c := range certs {
		if !c.Valid() {
			verr.Add("certifications", fmt.Sprintf("unknown certification %q", c))
			return
		}
	}
}

func applyUpdate(c *Customer, req UpdateCustomerRequest) {
	if req.CompanyName != nil {
		c.CompanyName = strings.TrimSpace(*req.CompanyName)
	}
	if req.ContactPerson != nil {
		c.ContactPerson = *req.ContactPerson
	}
	if req.Country != nil {
		c.Country = *req.Country
	}
	if req.Email != nil {
		c.Email = *req.Email
	}
	if req.Phone != nil {
		c.Phone = *req.Phone
	}
	if req.PreferredOrigin != nil {
		c.PreferredOrigin = *req.PreferredOrigin
	}
	if req.Certifications != nil {
		c.Certifications = dedupeCerts(*req.Certifications)
	}
	if req.Status != nil {
		c.Status = *req.Status
	}
	if req.AssignedSalesRep != nil {
		c.AssignedSalesRep = *req.AssignedSalesRep
	}
	if req.Notes != nil {
		c.Notes = *req.Notes
	}
	if req.ClearFollowUp {
		c.NextFollowUpDate = nil
	} else if req.NextFollowUpDate != nil {
		c.NextFollowUpDate = req.NextFollowUpDate
	}
}

// dedupeCerts treats certifications as a set while keeping first-seen order.
func dedupeCerts(certs []Certification) []Certification {
	out := make([]Certification, 0, len(certs))
	seen := make(map[Certification]struct{}, len(certs))
	for _, c := range certs {
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	return out
}
