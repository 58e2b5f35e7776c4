package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/coffee-export/export-manager/internal/app"
	"github.com/coffee-export/export-manager/internal/auth"
	"github.com/coffee-export/export-manager/internal/crm"
	"github.com/coffee-export/export-manager/internal/expenses"
	"github.com/coffee-export/export-manager/internal/invoicing"
	"github.com/coffee-export/export-manager/internal/platform/cache"
	"github.com/coffee-export/export-manager/internal/platform/db"
	"github.com/coffee-export/export-manager/internal/sales"
	"github.com/coffee-export/export-manager/internal/shared"
)

func main() {
	ctx := context.Background()
	cfg, err := app.LoadConfig()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	logger := app.NewLogger(cfg)

	if err := db.Migrate(cfg.PGDSN, logger); err != nil {
		log.Fatalf("migrate: %v", err)
	}
	pool, err := db.New(ctx, cfg.PGDSN, db.PoolOptions{MaxConns: 4})
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()
	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		log.Fatalf("connect redis: %v", err)
	}
	defer redisClient.Close()

	svc := app.NewServices(cfg, pool, redisClient, shared.SystemClock, logger)

	fmt.Println("→ Seeding users...")
	if err := seedUsers(ctx, svc.Auth); err != nil {
		log.Fatalf("seed users: %v", err)
	}

	fmt.Println("→ Seeding customers...")
	customers, err := seedCustomers(ctx, svc.CRM)
	if err != nil {
		log.Fatalf("seed customers: %v", err)
	}

	fmt.Println("→ Seeding orders and invoices...")
	orders, err := seedOrders(ctx, svc.Sales, svc.Invoicing, customers)
	if err != nil {
		log.Fatalf("seed orders: %v", err)
	}

	fmt.Println("→ Seeding expenses...")
	if err := seedExpenses(ctx, svc.Expenses, orders); err != nil {
		log.Fatalf("seed expenses: %v", err)
	}

	fmt.Println("✓ Seed complete")
}

// =============================================================================
// USERS
// =============================================================================

func seedUsers(ctx context.Context, svc *auth.Service) error {
	password := getenv("SEED_PASSWORD", "coffee-admin")
	for _, email := range []string{"admin@coffee-export.test", "sales@coffee-export.test"} {
		if _, err := svc.Register(ctx, email, password); err != nil {
			if errors.Is(err, auth.ErrEmailTaken) {
				continue
			}
			return err
		}
	}
	return nil
}

// =============================================================================
// CRM
// =============================================================================

func seedCustomers(ctx context.Context, svc *crm.Service) ([]uuid.UUID, error) {
	followUp := shared.MustParseDate("2024-02-15")
	reqs := []crm.CreateCustomerRequest{
		{
			CompanyName:      "Nordic Roasters AB",
			ContactPerson:    "Karin Holm",
			Country:          "Sweden",
			Email:            "buying@nordicroasters.test",
			PreferredOrigin:  crm.OriginYirgacheffe,
			Certifications:   []crm.Certification{crm.CertOrganic, crm.CertFairTrade},
			Status:           crm.StatusActive,
			AssignedSalesRep: "Abebe",
			NextFollowUpDate: &followUp,
		},
		{
			CompanyName:      "Kyoto Bean Co.",
			ContactPerson:    "Haruto Sato",
			Country:          "Japan",
			PreferredOrigin:  crm.OriginGuji,
			Status:           crm.StatusRepeat,
			AssignedSalesRep: "Meron",
		},
		{
			CompanyName:     "Hamburg Kaffee GmbH",
			Country:         "Germany",
			PreferredOrigin: crm.OriginSidama,
			Certifications:  []crm.Certification{crm.CertRainforestAlliance},
		},
	}
	ids := make([]uuid.UUID, 0, len(reqs))
	for _, req := range reqs {
		c, err := svc.CreateCustomer(ctx, req)
		if err != nil {
			return nil, err
		}
		ids = append(ids, c.ID)
	}
	return ids, nil
}

// =============================================================================
// SALES & INVOICING
// =============================================================================

func seedOrders(ctx context.Context, salesSvc *sales.Service, invoiceSvc *invoicing.Service, customers []uuid.UUID) ([]uuid.UUID, error) {
	type seedOrder struct {
		customer int
		product  string
		grade    string
		qty      int64
		price    string
		status   sales.ShippingStatus
		date     string
		paid     string
	}
	seeds := []seedOrder{
		{0, "Yirgacheffe Washed", "G1", 19200, "6.85", sales.ShippingDelivered, "2024-01-08", "131520"},
		{1, "Guji Natural", "G1", 12000, "7.40", sales.ShippingShipped, "2024-01-22", "40000"},
		{0, "Sidama Washed", "G2", 6000, "5.90", sales.ShippingPending, "2024-02-05", ""},
	}

	ids := make([]uuid.UUID, 0, len(seeds))
	for _, s := range seeds {
		order, err := salesSvc.CreateOrder(ctx, sales.CreateOrderRequest{
			CustomerID:     customers[s.customer],
			Product:        s.product,
			Grade:          s.grade,
			QuantityKg:     decimal.NewFromInt(s.qty),
			UnitPrice:      decimal.RequireFromString(s.price),
			ShippingStatus: s.status,
			OrderDate:      shared.MustParseDate(s.date),
		})
		if err != nil {
			return nil, err
		}
		ids = append(ids, order.ID)

		inv, err := invoiceSvc.GenerateInvoiceForOrder(ctx, order.ID)
		if err != nil {
			return nil, fmt.Errorf("invoice %s: %w", s.product, err)
		}
		if s.paid == "" {
			continue
		}
		if _, err := invoiceSvc.RecordPayment(ctx, inv.ID, invoicing.RecordPaymentRequest{
			Amount: decimal.RequireFromString(s.paid),
			Method: invoicing.MethodLetterOfCredit,
		}); err != nil {
			return nil, err
		}
	}
	return ids, nil
}

// =============================================================================
// EXPENSES
// =============================================================================

func seedExpenses(ctx context.Context, svc *expenses.Service, orders []uuid.UUID) error {
	reqs := []expenses.CreateExpenseRequest{
		{Type: expenses.TypeLogistics, Date: shared.MustParseDate("2024-01-12"), Amount: decimal.NewFromInt(2400), PaidTo: "Djibouti Freight", RelatedOrderID: &orders[0], IsApproved: true},
		{Type: expenses.TypeFarmerPayment, Date: shared.MustParseDate("2024-01-15"), Amount: decimal.NewFromInt(36000), PaidTo: "Yirgacheffe Union", RelatedOrderID: &orders[0], IsApproved: true},
		{Type: expenses.TypePackaging, Date: shared.MustParseDate("2024-02-02"), Amount: decimal.NewFromInt(780), PaidTo: "GrainPro", RelatedOrderID: &orders[1]},
		{Type: expenses.TypeAdmin, Date: shared.MustParseDate("2024-02-10"), Amount: decimal.NewFromInt(120), PaidTo: "Customs Broker", Description: "Export permit"},
	}
	for _, req := range reqs {
		if _, err := svc.CreateExpense(ctx, req); err != nil {
			return err
		}
	}
	return nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
