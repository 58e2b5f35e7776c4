package reporting

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/coffee-export/export-manager/internal/platform/httpx"
)

// DashboardService is the behaviour the HTTP layer needs from reporting.
type DashboardService interface {
	Dashboard(ctx context.Context) (Dashboard, error)
}

// Handler serves dashboard endpoints.
type Handler struct {
	logger  *slog.Logger
	service DashboardService
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, service DashboardService) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers dashboard routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.show)
	r.Get("/export.xlsx", h.exportXLSX)
	r.Get("/profit.csv", h.profitCSV)
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	d, ok := h.load(w, r)
	if !ok {
		return
	}
	httpx.JSON(w, http.StatusOK, d)
}

func (h *Handler) exportXLSX(w http.ResponseWriter, r *http.Request) {
	d, ok := h.load(w, r)
	if !ok {
		return
	}
	var buf bytes.Buffer
	if err := WriteDashboardXLSX(&buf, d); err != nil {
		h.logger.Error("render dashboard workbook", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="dashboard-`+d.AsOf.String()+`.xlsx"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (h *Handler) profitCSV(w http.ResponseWriter, r *http.Request) {
	d, ok := h.load(w, r)
	if !ok {
		return
	}
	var buf bytes.Buffer
	if err := WriteProfitCSV(&buf, d.ProfitPerShipment); err != nil {
		h.logger.Error("render profit csv", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="profit-per-shipment.csv"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (h *Handler) load(w http.ResponseWriter, r *http.Request) (Dashboard, bool) {
	d, err := h.service.Dashboard(r.Context())
	if err != nil {
		h.logger.Error("load dashboard", slog.Any("error", err))
		httpx.RespondError(w, err)
		return Dashboard{}, false
	}
	return d, true
}
