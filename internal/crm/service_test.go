package crm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coffee-export/export-manager/internal/platform/httpx"
	"github.com/coffee-export/export-manager/internal/shared"
)

var testNow = time.Date(2024, time.June, 15, 9, 0, 0, 0, time.UTC)

func newTestService() (*Service, *mockRepository) {
	repo := newMockRepository()
	return NewService(repo, shared.FixedClock(testNow)), repo
}

func validCreateRequest() CreateCustomerRequest {
	return CreateCustomerRequest{
		CompanyName:     "Nordic Roasters",
		ContactPerson:   "Anna",
		Country:         "Sweden",
		Email:           "anna@nordic.example",
		PreferredOrigin: OriginYirgacheffe,
		Certifications:  []Certification{CertOrganic, CertFairTrade, CertOrganic},
	}
}

func datePtr(s string) *shared.Date {
	d := shared.MustParseDate(s)
	return &d
}

// ============================================================================
// CUSTOMER TESTS
// ============================================================================

func TestCreateCustomerDefaults(t *testing.T) {
	svc, repo := newTestService()

	customer, err := svc.CreateCustomer(context.Background(), validCreateRequest())
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, customer.ID)
	assert.Equal(t, StatusLead, customer.Status)
	assert.Equal(t, []Certification{CertOrganic, CertFairTrade}, customer.Certifications)
	assert.Empty(t, customer.Interactions)
	assert.Equal(t, testNow, customer.CreatedAt)
	assert.Contains(t, repo.customers, customer.ID)
}

func TestCreateCustomerValidation(t *testing.T) {
	svc, _ := newTestService()

	req := validCreateRequest()
	req.CompanyName = "  "
	req.Email = "not-an-email"
	req.PreferredOrigin = "Kona"
	req.Certifications = []Certification{"Bird Friendly"}

	_, err := svc.CreateCustomer(context.Background(), req)
	require.Error(t, err)
	assert.ErrorIs(t, err, httpx.ErrValidation)

	var verr *httpx.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "company_name")
	assert.Contains(t, verr.Fields, "email")
	assert.Contains(t, verr.Fields, "preferred_origin")
	assert.Contains(t, verr.Fields, "certifications")
}

func TestCreateCustomerRepositoryError(t *testing.T) {
	svc, repo := newTestService()
	repo.createError = errors.New("db down")

	_, err := svc.CreateCustomer(context.Background(), validCreateRequest())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db down")
}

func TestUpdateCustomerPartial(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	created, err := svc.CreateCustomer(ctx, validCreateRequest())
	require.NoError(t, err)
	_, err = svc.LogInteraction(ctx, created.ID, LogInteractionRequest{Type: InteractionCall, Notes: "intro"})
	require.NoError(t, err)

	status := StatusActive
	updated, err := svc.UpdateCustomer(ctx, created.ID, UpdateCustomerRequest{
		Status:           &status,
		NextFollowUpDate: datePtr("2024-07-01"),
	})
	require.NoError(t, err)

	assert.Equal(t, StatusActive, updated.Status)
	assert.Equal(t, "Nordic Roasters", updated.CompanyName)
	assert.Equal(t, "2024-07-01", updated.NextFollowUpDate.String())
	assert.Len(t, updated.Interactions, 1, "edits keep the interaction history")

	cleared, err := svc.UpdateCustomer(ctx, created.ID, UpdateCustomerRequest{ClearFollowUp: true})
	require.NoError(t, err)
	assert.Nil(t, cleared.NextFollowUpDate)
}

func TestUpdateCustomerNotFound(t *testing.T) {
	svc, _ := newTestService()
	name := "X"
	_, err := svc.UpdateCustomer(context.Background(), uuid.New(), UpdateCustomerRequest{CompanyName: &name})
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, err, httpx.ErrNotFound)
}

func TestListCustomersFilters(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	first := validCreateRequest()
	first.Status = StatusActive
	second := validCreateRequest()
	second.CompanyName = "Tokyo Beans"
	second.PreferredOrigin = OriginGuji
	second.Status = StatusRepeat

	_, err := svc.CreateCustomer(ctx, first)
	require.NoError(t, err)
	_, err = svc.CreateCustomer(ctx, second)
	require.NoError(t, err)

	all, err := svc.ListCustomers(ctx, ListCustomersRequest{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "Nordic Roasters", all[0].CompanyName, "insertion order")

	byOrigin, err := svc.ListCustomers(ctx, ListCustomersRequest{Origin: OriginGuji})
	require.NoError(t, err)
	require.Len(t, byOrigin, 1)
	assert.Equal(t, "Tokyo Beans", byOrigin[0].CompanyName)

	byStatus, err := svc.ListCustomers(ctx, ListCustomersRequest{Status: StatusActive})
	require.NoError(t, err)
	require.Len(t, byStatus, 1)

	_, err = svc.ListCustomers(ctx, ListCustomersRequest{Status: "Churned"})
	assert.ErrorIs(t, err, httpx.ErrValidation)
}

func TestDeleteCustomer(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()

	created, err := svc.CreateCustomer(ctx, validCreateRequest())
	require.NoError(t, err)

	repo.orderCounts[created.ID] = 1
	err = svc.DeleteCustomer(ctx, created.ID)
	assert.ErrorIs(t, err, ErrCustomerInUse)
	assert.ErrorIs(t, err, httpx.ErrConflict)
	assert.Contains(t, repo.customers, created.ID)

	repo.orderCounts[created.ID] = 0
	require.NoError(t, svc.DeleteCustomer(ctx, created.ID))
	assert.NotContains(t, repo.customers, created.ID)

	assert.ErrorIs(t, svc.DeleteCustomer(ctx, created.ID), ErrNotFound)
}

func TestExists(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	created, err := svc.CreateCustomer(ctx, validCreateRequest())
	require.NoError(t, err)

	ok, err := svc.Exists(ctx, created.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = svc.Exists(ctx, uuid.New())
	require.NoError(t, err)
	assert.False(t, ok)
}

// ============================================================================
// INTERACTION TESTS
// ============================================================================

func TestLogInteractionAppends(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	created, err := svc.CreateCustomer(ctx, validCreateRequest())
	require.NoError(t, err)

	_, err = svc.LogInteraction(ctx, created.ID, LogInteractionRequest{
		Date: shared.MustParseDate("2024-06-01"), Type: InteractionSample, Notes: "Grade 1 sample",
	})
	require.NoError(t, err)
	customer, err := svc.LogInteraction(ctx, created.ID, LogInteractionRequest{Type: InteractionEmail})
	require.NoError(t, err)

	require.Len(t, customer.Interactions, 2)
	assert.Equal(t, InteractionSample, customer.Interactions[0].Type)
	assert.Equal(t, "2024-06-15", customer.Interactions[1].Date.String(), "date defaults to today")
}

func TestLogInteractionRejectsUnknownType(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	created, err := svc.CreateCustomer(ctx, validCreateRequest())
	require.NoError(t, err)

	_, err = svc.LogInteraction(ctx, created.ID, LogInteractionRequest{Type: "Fax"})
	assert.ErrorIs(t, err, httpx.ErrValidation)

	_, err = svc.LogInteraction(ctx, uuid.New(), LogInteractionRequest{Type: InteractionCall})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFollowUpsDue(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	mk := func(name string, followUp *shared.Date) {
		req := validCreateRequest()
		req.CompanyName = name
		req.NextFollowUpDate = followUp
		_, err := svc.CreateCustomer(ctx, req)
		require.NoError(t, err)
	}
	mk("later", datePtr("2024-06-10"))
	mk("today", datePtr("2024-06-15"))
	mk("none", nil)
	mk("earlier", datePtr("2024-05-01"))

	due, err := svc.FollowUpsDue(ctx)
	require.NoError(t, err)
	require.Len(t, due, 2, "a follow-up due today is not yet overdue")
	assert.Equal(t, "earlier", due[0].CompanyName)
	assert.Equal(t, "later", due[1].CompanyName)
}
