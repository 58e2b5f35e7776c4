package app

import (
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/coffee-export/export-manager/internal/auth"
	"github.com/coffee-export/export-manager/internal/crm"
	"github.com/coffee-export/export-manager/internal/expenses"
	"github.com/coffee-export/export-manager/internal/invoicing"
	"github.com/coffee-export/export-manager/internal/platform/cache"
	"github.com/coffee-export/export-manager/internal/reporting"
	"github.com/coffee-export/export-manager/internal/sales"
	"github.com/coffee-export/export-manager/internal/shared"
)

// Services holds the domain services shared by the API server and worker.
type Services struct {
	Auth      *auth.Service
	CRM       *crm.Service
	Sales     *sales.Service
	Invoicing *invoicing.Service
	Expenses  *expenses.Service
	Reporting *reporting.Service
}

// NewServices wires PostgreSQL repositories and the Redis invoice lock into
// the domain services.
func NewServices(cfg *Config, pool *pgxpool.Pool, redisClient redis.UniversalClient, clock shared.Clock, logger *slog.Logger) *Services {
	crmSvc := crm.NewService(crm.NewRepository(pool), clock)
	salesSvc := sales.NewService(sales.NewRepository(pool), crmSvc, clock)
	invoicingSvc := invoicing.NewService(
		invoicing.NewRepository(pool),
		invoicing.NewRedisLocker(cache.NewLocker(redisClient)),
		cfg.InvoiceLockTTL,
		clock,
		logger,
	)
	expensesSvc := expenses.NewService(expenses.NewRepository(pool), salesSvc, clock)
	return &Services{
		Auth:      auth.NewService(auth.NewRepository(pool), clock),
		CRM:       crmSvc,
		Sales:     salesSvc,
		Invoicing: invoicingSvc,
		Expenses:  expensesSvc,
		Reporting: reporting.NewService(crmSvc, salesSvc, invoicingSvc, expensesSvc, clock),
	}
}
