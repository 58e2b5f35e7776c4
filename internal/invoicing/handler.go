package invoicing

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/coffee-export/export-manager/internal/platform/httpx"
)

// InvoiceService is the behaviour the HTTP layer needs from the invoicing service.
type InvoiceService interface {
	GenerateInvoiceForOrder(ctx context.Context, orderID uuid.UUID) (*View, error)
	CreateInvoice(ctx context.Context, req CreateInvoiceRequest) (*View, error)
	GetInvoice(ctx context.Context, id uuid.UUID) (*View, error)
	ListInvoices(ctx context.Context, req ListInvoicesRequest) ([]View, error)
	UpdateInvoice(ctx context.Context, id uuid.UUID, req UpdateInvoiceRequest) (*View, error)
	RecordPayment(ctx context.Context, id uuid.UUID, req RecordPaymentRequest) (*View, error)
	SetStatus(ctx context.Context, id uuid.UUID, req SetStatusRequest) (*View, error)
	DeleteInvoice(ctx context.Context, id uuid.UUID) error
}

// GenerationObserver counts invoice generation outcomes.
type GenerationObserver interface {
	ObserveInvoiceGeneration(outcome string)
}

// Handler manages invoice endpoints.
type Handler struct {
	logger   *slog.Logger
	service  InvoiceService
	observer GenerationObserver
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, service InvoiceService) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service}
}

// WithObserver attaches a generation observer, typically the metrics registry.
func (h *Handler) WithObserver(o GenerationObserver) *Handler {
	h.observer = o
	return h
}

// MountRoutes registers invoice routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.listInvoices)
	r.Post("/", h.createInvoice)
	r.Get("/{id}", h.showInvoice)
	r.Put("/{id}", h.updateInvoice)
	r.Delete("/{id}", h.deleteInvoice)
	r.Post("/{id}/payments", h.recordPayment)
	r.Put("/{id}/status", h.setStatus)
}

// GenerateForOrder handles POST /sales/orders/{id}/invoice.
func (h *Handler) GenerateForOrder(w http.ResponseWriter, r *http.Request) {
	orderID, ok := parseID(w, r)
	if !ok {
		return
	}
	view, err := h.service.GenerateInvoiceForOrder(r.Context(), orderID)
	h.observe(err)
	if err != nil {
		if errors.Is(err, ErrInvoiceExists) || errors.Is(err, ErrBusy) {
			h.logger.Warn("invoice not generated",
				slog.String("order_id", orderID.String()),
				slog.Any("reason", err),
			)
			httpx.RespondError(w, err)
			return
		}
		h.fail(w, "generate invoice", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, view)
}

func (h *Handler) observe(err error) {
	if h.observer == nil {
		return
	}
	outcome := "created"
	switch {
	case err == nil:
	case errors.Is(err, ErrInvoiceExists):
		outcome = "exists"
	case errors.Is(err, ErrBusy):
		outcome = "busy"
	case errors.Is(err, ErrOrderNotFound):
		outcome = "order_not_found"
	default:
		outcome = "error"
	}
	h.observer.ObserveInvoiceGeneration(outcome)
}

func (h *Handler) listInvoices(w http.ResponseWriter, r *http.Request) {
	req := ListInvoicesRequest{Status: Status(r.URL.Query().Get("status"))}
	if raw := r.URL.Query().Get("customer_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			httpx.RespondError(w, httpx.NewValidationError("customer_id", "must be a valid identifier"))
			return
		}
		req.CustomerID = &id
	}
	views, err := h.service.ListInvoices(r.Context(), req)
	if err != nil {
		h.fail(w, "list invoices", err)
		return
	}
	if views == nil {
		views = []View{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"invoices": views})
}

func (h *Handler) createInvoice(w http.ResponseWriter, r *http.Request) {
	var req CreateInvoiceRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	view, err := h.service.CreateInvoice(r.Context(), req)
	if err != nil {
		h.fail(w, "create invoice", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, view)
}

func (h *Handler) showInvoice(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	view, err := h.service.GetInvoice(r.Context(), id)
	if err != nil {
		h.fail(w, "get invoice", err)
		return
	}
	httpx.JSON(w, http.StatusOK, view)
}

func (h *Handler) updateInvoice(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	var req UpdateInvoiceRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	view, err := h.service.UpdateInvoice(r.Context(), id, req)
	if err != nil {
		h.fail(w, "update invoice", err)
		return
	}
	httpx.JSON(w, http.StatusOK, view)
}

func (h *Handler) deleteInvoice(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	if err := h.service.DeleteInvoice(r.Context(), id); err != nil {
		h.fail(w, "delete invoice", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) recordPayment(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	var req RecordPaymentRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	view, err := h.service.RecordPayment(r.Context(), id, req)
	if err != nil {
		h.fail(w, "record payment", err)
		return
	}
	httpx.JSON(w, http.StatusOK, view)
}

func (h *Handler) setStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	var req SetStatusRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	view, err := h.service.SetStatus(r.Context(), id, req)
	if err != nil {
		h.fail(w, "set invoice status", err)
		return
	}
	httpx.JSON(w, http.StatusOK, view)
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
