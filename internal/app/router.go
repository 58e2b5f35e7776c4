package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/coffee-export/export-manager/internal/auth"
	"github.com/coffee-export/export-manager/internal/crm"
	"github.com/coffee-export/export-manager/internal/expenses"
	"github.com/coffee-export/export-manager/internal/invoicing"
	"github.com/coffee-export/export-manager/internal/observability"
	"github.com/coffee-export/export-manager/internal/platform/httpx"
	"github.com/coffee-export/export-manager/internal/reporting"
	"github.com/coffee-export/export-manager/internal/sales"
	"github.com/coffee-export/export-manager/internal/shared"
	"github.com/coffee-export/export-manager/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger           *slog.Logger
	Config           *Config
	SessionManager   *shared.SessionManager
	CSRFManager      *shared.CSRFManager
	AuthHandler      *auth.Handler
	CRMHandler       *crm.Handler
	SalesHandler     *sales.Handler
	InvoicingHandler *invoicing.Handler
	ExpensesHandler  *expenses.Handler
	ReportingHandler *reporting.Handler
	JobHandler       *jobs.Handler
	Metrics          *observability.Metrics
}

// NewRouter constructs the chi.Router with the export manager defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
		CSRFManager:    params.CSRFManager,
		Metrics:        params.Metrics,
	}) {
		r.Use(mw)
	}

	if params.Config == nil || !params.Config.IsProduction() {
		r.Use(chimw.Logger)
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		httpx.Problem(w, http.StatusNotFound, "Not Found", "no route for "+r.URL.Path)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		httpx.Problem(w, http.StatusMethodNotAllowed, "Method Not Allowed", r.Method+" is not supported on "+r.URL.Path)
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}
	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}
	if params.AuthHandler != nil {
		r.Route("/auth", params.AuthHandler.MountRoutes)
	}

	r.Group(func(r chi.Router) {
		r.Use(auth.RequireSession)

		if params.CRMHandler != nil {
			r.Route("/crm", params.CRMHandler.MountRoutes)
		}
		r.Route("/sales", func(r chi.Router) {
			if params.SalesHandler != nil {
				params.SalesHandler.MountRoutes(r)
			}
			if params.InvoicingHandler != nil {
				r.Post("/orders/{id}/invoice", params.InvoicingHandler.GenerateForOrder)
			}
		})
		if params.InvoicingHandler != nil {
			r.Route("/invoices", params.InvoicingHandler.MountRoutes)
		}
		if params.ExpensesHandler != nil {
			r.Route("/expenses", params.ExpensesHandler.MountRoutes)
		}
		if params.ReportingHandler != nil {
			r.Route("/dashboard", params.ReportingHandler.MountRoutes)
		}
	})

	return r
}
