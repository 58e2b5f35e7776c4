package expenses

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/coffee-export/export-manager/internal/platform/httpx"
)

// ExpenseService is the behaviour the HTTP layer needs from the expense service.
type ExpenseService interface {
	CreateExpense(ctx context.Context, req CreateExpenseRequest) (*View, error)
	UpdateExpense(ctx context.Context, id uuid.UUID, req UpdateExpenseRequest) (*View, error)
	SetApproval(ctx context.Context, id uuid.UUID, req ApprovalRequest) (*View, error)
	GetExpense(ctx context.Context, id uuid.UUID) (*View, error)
	ListExpenses(ctx context.Context, req ListExpensesRequest) ([]View, error)
	Summaries(ctx context.Context, req ListExpensesRequest) (Summary, error)
	DeleteExpense(ctx context.Context, id uuid.UUID) error
}

// Handler manages expense endpoints.
type Handler struct {
	logger  *slog.Logger
	service ExpenseService
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, service ExpenseService) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers expense routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.listExpenses)
	r.Post("/", h.createExpense)
	r.Get("/summary", h.summary)
	r.Get("/{id}", h.showExpense)
	r.Put("/{id}", h.updateExpense)
	r.Delete("/{id}", h.deleteExpense)
	r.Post("/{id}/approval", h.approval)
}

func (h *Handler) listExpenses(w http.ResponseWriter, r *http.Request) {
	req, ok := parseFilters(w, r)
	if !ok {
		return
	}
	views, err := h.service.ListExpenses(r.Context(), req)
	if err != nil {
		h.fail(w, "list expenses", err)
		return
	}
	if views == nil {
		views = []View{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"expenses": views})
}

func (h *Handler) summary(w http.ResponseWriter, r *http.Request) {
	req, ok := parseFilters(w, r)
	if !ok {
		return
	}
	summary, err := h.service.Summaries(r.Context(), req)
	if err != nil {
		h.fail(w, "summarize expenses", err)
		return
	}
	httpx.JSON(w, http.StatusOK, summary)
}

func (h *Handler) createExpense(w http.ResponseWriter, r *http.Request) {
	var req CreateExpenseRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	view, err := h.service.CreateExpense(r.Context(), req)
	if err != nil {
		h.fail(w, "create expense", err)
		return
	}
	if view.HighValue && !view.IsApproved {
		h.logger.Info("high-value expense awaiting approval",
			slog.String("expense_id", view.ID.String()),
			slog.String("amount", view.Amount.StringFixed(2)),
		)
	}
	httpx.JSON(w, http.StatusCreated, view)
}

func (h *Handler) showExpense(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	view, err := h.service.GetExpense(r.Context(), id)
	if err != nil {
		h.fail(w, "get expense", err)
		return
	}
	httpx.JSON(w, http.StatusOK, view)
}

func (h *Handler) updateExpense(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	var req UpdateExpenseRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	view, err := h.service.UpdateExpense(r.Context(), id, req)
	if err != nil {
		h.fail(w, "update expense", err)
		return
	}
	httpx.JSON(w, http.StatusOK, view)
}

func (h *Handler) deleteExpense(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	if err := h.service.DeleteExpense(r.Context(), id); err != nil {
		h.fail(w, "delete expense", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// approval toggles when the body is empty.
func (h *Handler) approval(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	var req ApprovalRequest
	if r.ContentLength != 0 {
		if err := httpx.DecodeJSON(r, &req); err != nil {
			httpx.RespondError(w, err)
			return
		}
	}
	view, err := h.service.SetApproval(r.Context(), id, req)
	if err != nil {
		h.fail(w, "set expense approval", err)
		return
	}
	httpx.JSON(w, http.StatusOK, view)
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	h.logger.Warn(op, slog.Any("error", err))
	httpx.RespondError(w, err)
}

func parseFilters(w http.ResponseWriter, r *http.Request) (ListExpensesRequest, bool) {
	q := r.URL.Query()
	req := ListExpensesRequest{Type: Type(q.Get("expense_type")), DatePrefix: q.Get("date")}
	if raw := q.Get("related_order_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			httpx.RespondError(w, httpx.NewValidationError("related_order_id", "must be a valid identifier"))
			return req, false
		}
		req.RelatedOrderID = &id
	}
	return req, true
}

func parseID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.RespondError(w, httpx.NewValidationError("id", "must be a valid identifier"))
		return uuid.Nil, false
	}
	return id, true
}
