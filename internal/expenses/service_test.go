package expenses

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coffee-export/export-manager/internal/platform/httpx"
	"github.com/coffee-export/export-manager/internal/shared"
)

var testNow = time.Date(2024, time.July, 12, 10, 0, 0, 0, time.UTC)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func day(s string) shared.Date { return shared.MustParseDate(s) }

type fixture struct {
	svc   *Service
	repo  *mockRepository
	order uuid.UUID
}

func newFixture() fixture {
	repo := newMockRepository()
	order := uuid.New()
	return fixture{
		svc:   NewService(repo, stubOrders{order: true}, shared.FixedClock(testNow)),
		repo:  repo,
		order: order,
	}
}

func (f fixture) create(t *testing.T, kind Type, date, amount string) *View {
	t.Helper()
	view, err := f.svc.CreateExpense(context.Background(), CreateExpenseRequest{
		Type:   kind,
		Date:   day(date),
		Amount: dec(amount),
		PaidTo: "Sidama Farmers Union",
	})
	require.NoError(t, err)
	return view
}

func TestCreateExpense(t *testing.T) {
	f := newFixture()
	receipt := "https://receipts.example.com/r/1"

	view, err := f.svc.CreateExpense(context.Background(), CreateExpenseRequest{
		Type:           TypeLogistics,
		Amount:         dec("1200"),
		PaidTo:         "  Djibouti Freight  ",
		RelatedOrderID: &f.order,
		ReceiptURL:     &receipt,
	})
	require.NoError(t, err)

	assert.Equal(t, "2024-07-12", view.Date.String(), "date defaults to today")
	assert.Equal(t, "Djibouti Freight", view.PaidTo)
	assert.False(t, view.IsApproved)
	assert.True(t, view.HighValue)
	assert.True(t, view.NeedsReview)
}

func TestCreateExpenseValidation(t *testing.T) {
	f := newFixture()
	bogusURL := "not a url"
	unknown := uuid.New()

	_, err := f.svc.CreateExpense(context.Background(), CreateExpenseRequest{
		Type:       "Travel",
		Amount:     dec("-5"),
		ReceiptURL: &bogusURL,
	})
	var verr *httpx.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "expense_type")
	assert.Contains(t, verr.Fields, "amount")
	assert.Contains(t, verr.Fields, "paid_to")
	assert.Contains(t, verr.Fields, "receipt_url")

	_, err = f.svc.CreateExpense(context.Background(), CreateExpenseRequest{
		Type:           TypeAdmin,
		Amount:         dec("10"),
		PaidTo:         "Office",
		RelatedOrderID: &unknown,
	})
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "related_order_id")
	assert.Empty(t, f.repo.expenses)
}

func TestListExpensesNewestFirstWithFilters(t *testing.T) {
	f := newFixture()
	a := f.create(t, TypeLogistics, "2024-05-03", "100")
	b := f.create(t, TypePackaging, "2024-07-01", "50")
	c := f.create(t, TypeLogistics, "2023-12-30", "75")
	d := f.create(t, TypeAdmin, "2024-07-01", "20")

	all, err := f.svc.ListExpenses(context.Background(), ListExpensesRequest{})
	require.NoError(t, err)
	ids := []uuid.UUID{}
	for _, v := range all {
		ids = append(ids, v.ID)
	}
	assert.Equal(t, []uuid.UUID{b.ID, d.ID, a.ID, c.ID}, ids)

	july, err := f.svc.ListExpenses(context.Background(), ListExpensesRequest{DatePrefix: "2024-07"})
	require.NoError(t, err)
	assert.Len(t, july, 2)

	logistics2024, err := f.svc.ListExpenses(context.Background(), ListExpensesRequest{Type: TypeLogistics, DatePrefix: "2024"})
	require.NoError(t, err)
	require.Len(t, logistics2024, 1)
	assert.Equal(t, a.ID, logistics2024[0].ID)

	_, err = f.svc.ListExpenses(context.Background(), ListExpensesRequest{DatePrefix: "2024-7"})
	assert.ErrorIs(t, err, httpx.ErrValidation)
}

func TestListExpensesByRelatedOrder(t *testing.T) {
	f := newFixture()
	f.create(t, TypeLogistics, "2024-05-03", "100")
	linked, err := f.svc.CreateExpense(context.Background(), CreateExpenseRequest{
		Type: TypeLogistics, Date: day("2024-05-04"), Amount: dec("40"), PaidTo: "Port", RelatedOrderID: &f.order,
	})
	require.NoError(t, err)

	list, err := f.svc.ListExpenses(context.Background(), ListExpensesRequest{RelatedOrderID: &f.order})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, linked.ID, list[0].ID)
}

func TestSummaries(t *testing.T) {
	f := newFixture()
	f.create(t, TypeLogistics, "2024-05-03", "100")
	f.create(t, TypePackaging, "2024-05-20", "50.25")
	f.create(t, TypeLogistics, "2023-12-30", "75")

	summary, err := f.svc.Summaries(context.Background(), ListExpensesRequest{})
	require.NoError(t, err)

	require.Len(t, summary.Monthly, 2)
	assert.Equal(t, "2024-05", summary.Monthly[0].Period)
	assert.True(t, summary.Monthly[0].Total.Equal(dec("150.25")))
	assert.Equal(t, "2023-12", summary.Monthly[1].Period)

	require.Len(t, summary.Yearly, 2)
	assert.Equal(t, "2024", summary.Yearly[0].Period)
	assert.True(t, summary.Total.Equal(dec("225.25")))
	assert.Equal(t, 3, summary.Count)

	filtered, err := f.svc.Summaries(context.Background(), ListExpensesRequest{Type: TypePackaging})
	require.NoError(t, err)
	require.Len(t, filtered.Monthly, 1)
	assert.True(t, filtered.Total.Equal(dec("50.25")))
}

func TestSetApproval(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	e := f.create(t, TypeFarmerPayment, "2024-07-01", "1500")

	view, err := f.svc.SetApproval(ctx, e.ID, ApprovalRequest{})
	require.NoError(t, err)
	assert.True(t, view.IsApproved)
	assert.False(t, view.NeedsReview)

	view, err = f.svc.SetApproval(ctx, e.ID, ApprovalRequest{})
	require.NoError(t, err)
	assert.False(t, view.IsApproved, "toggle flips back")

	yes := true
	view, err = f.svc.SetApproval(ctx, e.ID, ApprovalRequest{Approved: &yes})
	require.NoError(t, err)
	assert.True(t, view.IsApproved)
	view, err = f.svc.SetApproval(ctx, e.ID, ApprovalRequest{Approved: &yes})
	require.NoError(t, err)
	assert.True(t, view.IsApproved, "explicit approval is idempotent")

	_, err = f.svc.SetApproval(ctx, uuid.New(), ApprovalRequest{})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateExpense(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	e := f.create(t, TypeLogistics, "2024-07-01", "100")
	_, err := f.svc.SetApproval(ctx, e.ID, ApprovalRequest{})
	require.NoError(t, err)

	amount := dec("250")
	view, err := f.svc.UpdateExpense(ctx, e.ID, UpdateExpenseRequest{Amount: &amount, RelatedOrderID: &f.order})
	require.NoError(t, err)
	assert.True(t, view.Amount.Equal(amount))
	assert.True(t, view.IsApproved, "edits keep approval")
	require.NotNil(t, view.RelatedOrderID)

	view, err = f.svc.UpdateExpense(ctx, e.ID, UpdateExpenseRequest{ClearRelatedOrder: true})
	require.NoError(t, err)
	assert.Nil(t, view.RelatedOrderID)

	zero := dec("0")
	_, err = f.svc.UpdateExpense(ctx, e.ID, UpdateExpenseRequest{Amount: &zero})
	assert.ErrorIs(t, err, httpx.ErrValidation)
}

func TestDeleteExpense(t *testing.T) {
	f := newFixture()
	e := f.create(t, TypeOther, "2024-07-01", "10")

	require.NoError(t, f.svc.DeleteExpense(context.Background(), e.ID))
	assert.ErrorIs(t, f.svc.DeleteExpense(context.Background(), e.ID), ErrNotFound)
}

func TestExpensesLoaderKeepsInsertionOrder(t *testing.T) {
	f := newFixture()
	first := f.create(t, TypeOther, "2024-07-01", "10")
	f.create(t, TypeOther, "2024-01-01", "10")

	list, err := f.svc.Expenses(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, first.ID, list[0].ID)

	f.repo.listError = errors.New("timeout")
	_, err = f.svc.Expenses(context.Background())
	assert.Error(t, err)
}

func TestValidDatePrefix(t *testing.T) {
	for _, p := range []string{"", "2024", "2024-01", "2024-12"} {
		assert.True(t, ValidDatePrefix(p), p)
	}
	for _, p := range []string{"24", "2024-13", "2024-1", "2024-01-01", "abcd"} {
		assert.False(t, ValidDatePrefix(p), p)
	}
}
