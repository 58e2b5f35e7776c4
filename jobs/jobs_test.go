package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coffee-export/export-manager/internal/crm"
	"github.com/coffee-export/export-manager/internal/invoicing"
	jobmetrics "github.com/coffee-export/export-manager/internal/jobs"
	"github.com/coffee-export/export-manager/internal/shared"
	_ "github.com/coffee-export/export-manager/testing"
)

var testNow = time.Date(2024, time.March, 1, 6, 0, 0, 0, time.UTC)

type stubReconciler struct {
	repaired int64
	err      error
	calls    int
}

func (s *stubReconciler) ReconcileLinks(ctx context.Context) (int64, error) {
	s.calls++
	return s.repaired, s.err
}

type stubOverdue struct {
	views []invoicing.View
	err   error
}

func (s stubOverdue) OverdueAlerts(ctx context.Context) ([]invoicing.View, error) {
	return s.views, s.err
}

type stubFollowUps struct {
	customers []crm.Customer
	err       error
}

func (s stubFollowUps) FollowUpsDue(ctx context.Context) ([]crm.Customer, error) {
	return s.customers, s.err
}

func mustTask(t *testing.T, taskType string) *asynq.Task {
	t.Helper()
	task, err := NewTask(taskType, "test", testNow)
	require.NoError(t, err)
	return task
}

func TestNewTaskRejectsUnknownType(t *testing.T) {
	_, err := NewTask("mail:send", "test", testNow)
	assert.Error(t, err)

	task := mustTask(t, TaskOverdueScan)
	var payload TaskPayload
	require.NoError(t, json.Unmarshal(task.Payload(), &payload))
	assert.Equal(t, "test", payload.TriggeredBy)
	assert.True(t, testNow.Equal(payload.RequestedAt))
}

func TestDefaultScheduleCoversEveryTask(t *testing.T) {
	schedule, err := DefaultSchedule(testNow)
	require.NoError(t, err)

	var types []string
	for _, entry := range schedule {
		assert.NotEmpty(t, entry.Spec)
		types = append(types, entry.Task.Type())
	}
	assert.ElementsMatch(t, TaskTypes(), types)
}

func TestReconcileLinksJob(t *testing.T) {
	metrics := jobmetrics.NewMetrics(prometheus.NewRegistry())
	svc := &stubReconciler{repaired: 2}
	job := NewReconcileLinksJob(svc, nil, metrics)

	require.NoError(t, job.Handle(context.Background(), mustTask(t, TaskReconcileLinks)))
	assert.Equal(t, 1, svc.calls)

	svc.err = errors.New("db down")
	assert.Error(t, job.Handle(context.Background(), mustTask(t, TaskReconcileLinks)))
}

func TestJobsSkipRetryOnMalformedPayload(t *testing.T) {
	job := NewReconcileLinksJob(&stubReconciler{}, nil, nil)
	err := job.Handle(context.Background(), asynq.NewTask(TaskReconcileLinks, []byte("{oops")))
	assert.ErrorIs(t, err, asynq.SkipRetry)
}

func TestUnconfiguredJobsFail(t *testing.T) {
	var job *OverdueScanJob
	assert.Error(t, job.Handle(context.Background(), mustTask(t, TaskOverdueScan)))
	assert.Error(t, NewFollowUpDigestJob(nil, nil, nil).Handle(context.Background(), mustTask(t, TaskFollowUpDigest)))
}

func TestOverdueScanJob(t *testing.T) {
	views := []invoicing.View{{
		Invoice: invoicing.Invoice{
			ID:            uuid.New(),
			InvoiceNumber: "INV-2024-001",
			CustomerID:    uuid.New(),
			DueDate:       shared.MustParseDate("2024-01-01"),
		},
		EffectiveStatus: invoicing.StatusOverdue,
		IsOverdue:       true,
		BalanceDue:      decimal.NewFromInt(4250),
	}}
	job := NewOverdueScanJob(stubOverdue{views: views}, nil, nil)
	assert.NoError(t, job.Handle(context.Background(), mustTask(t, TaskOverdueScan)))

	failing := NewOverdueScanJob(stubOverdue{err: errors.New("timeout")}, nil, nil)
	assert.Error(t, failing.Handle(context.Background(), mustTask(t, TaskOverdueScan)))
}

func TestFollowUpDigestJob(t *testing.T) {
	due := shared.MustParseDate("2024-02-20")
	customers := []crm.Customer{
		{ID: uuid.New(), CompanyName: "Nordic Roasters", NextFollowUpDate: &due},
		{ID: uuid.New(), CompanyName: "Kyoto Beans"},
	}
	job := NewFollowUpDigestJob(stubFollowUps{customers: customers}, nil, nil)
	assert.NoError(t, job.Handle(context.Background(), mustTask(t, TaskFollowUpDigest)))
}

type stubInspector struct {
	info *asynq.QueueInfo
	err  error
}

func (s stubInspector) GetQueueInfo(queue string) (*asynq.QueueInfo, error) {
	return s.info, s.err
}

func TestHealthEndpoint(t *testing.T) {
	cases := []struct {
		name      string
		inspector QueueInspector
		status    int
		pending   int
	}{
		{"no inspector", nil, http.StatusOK, 0},
		{"queue info", stubInspector{info: &asynq.QueueInfo{Queue: QueueDefault, Pending: 4}}, http.StatusOK, 4},
		{"redis down", stubInspector{err: errors.New("dial tcp")}, http.StatusServiceUnavailable, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := chi.NewRouter()
			r.Route("/jobs", NewHandler(tc.inspector, nil).MountRoutes)
			rr := httptest.NewRecorder()
			r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/jobs/health", nil))

			require.Equal(t, tc.status, rr.Code)
			if tc.status != http.StatusOK {
				return
			}
			var stats QueueStats
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &stats))
			assert.Equal(t, QueueDefault, stats.Queue)
			assert.Equal(t, tc.pending, stats.Pending)
		})
	}
}
