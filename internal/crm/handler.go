package crm

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/coffee-export/export-manager/internal/platform/httpx"
)

// CustomerService is the behaviour the HTTP layer needs from the CRM service.
type CustomerService interface {
	CreateCustomer(ctx context.Context, req CreateCustomerRequest) (*Customer, error)
	UpdateCustomer(ctx context.Context, id uuid.UUID, req UpdateCustomerRequest) (*Customer, error)
	GetCustomer(ctx context.Context, id uuid.UUID) (*Customer, error)
	ListCustomers(ctx context.Context, req ListCustomersRequest) ([]Customer, error)
	DeleteCustomer(ctx context.Context, id uuid.UUID) error
	LogInteraction(ctx context.Context, customerID uuid.UUID, req LogInteractionRequest) (*Customer, error)
	FollowUpsDue(ctx context.Context) ([]Customer, error)
}

// Handler exposes CRM endpoints.
type Handler struct {
	logger  *slog.Logger
	service CustomerService
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, service CustomerService) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers CRM routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/customers", h.listCustomers)
	r.Post("/customers", h.createCustomer)
	r.Get("/customers/{id}", h.showCustomer)
	r.Put("/customers/{id}", h.updateCustomer)
	r.Delete("/customers/{id}", h.deleteCustomer)
	r.Post("/customers/{id}/interactions", h.logInteraction)
	r.Get("/follow-ups", h.followUps)
}

func (h *Handler) listCustomers(w http.ResponseWriter, r *http.Request) {
	req := ListCustomersRequest{
		Status: CustomerStatus(r.URL.Query().Get("status")),
		Origin: CoffeeOrigin(r.URL.Query().Get("origin")),
	}
	customers, err := h.service.ListCustomers(r.Context(), req)
	if err != nil {
		h.fail(w, "list customers", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"customers": nonNil(customers)})
}

func (h *Handler) createCustomer(w http.ResponseWriter, r *http.Request) {
	var req CreateCustomerRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	customer, err := h.service.CreateCustomer(r.Context(), req)
	if err != nil {
		h.fail(w, "create customer", err)
		return
	}
	h.logger.Info("customer created", slog.String("customer_id", customer.ID.String()))
	httpx.JSON(w, http.StatusCreated, customer)
}

func (h *Handler) showCustomer(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	customer, err := h.service.GetCustomer(r.Context(), id)
	if err != nil {
		h.fail(w, "get customer", err)
		return
	}
	httpx.JSON(w, http.StatusOK, customer)
}

func (h *Handler) updateCustomer(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	var req UpdateCustomerRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	customer, err := h.service.UpdateCustomer(r.Context(), id, req)
	if err != nil {
		h.fail(w, "update customer", err)
		return
	}
	httpx.JSON(w, http.StatusOK, customer)
}

func (h *Handler) deleteCustomer(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	if err := h.service.DeleteCustomer(r.Context(), id); err != nil {
		h.fail(w, "delete customer", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) logInteraction(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	var req LogInteractionRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	customer, err := h.service.LogInteraction(r.Context(), id, req)
	if err != nil {
		h.fail(w, "log interaction", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, customer)
}

func (h *Handler) followUps(w http.ResponseWriter, r *http.Request) {
	customers, err := h.service.FollowUpsDue(r.Context())
	if err != nil {
		h.fail(w, "follow-ups", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"customers": nonNil(customers)})
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	h.logger.Warn(op, slog.Any("error", err))
	httpx.RespondError(w, err)
}

func parseID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.RespondError(w, httpx.NewValidationError("id", "must be a valid identifier"))
		return uuid.Nil, false
	}
	return id, true
}

func nonNil(customers []Customer) []Customer {
	if customers == nil {
		return []Customer{}
	}
	return customers
}
