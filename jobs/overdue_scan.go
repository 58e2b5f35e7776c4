package jobs

import (
	"context"
	"errors"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/coffee-export/export-manager/internal/invoicing"
	jobmetrics "github.com/coffee-export/export-manager/internal/jobs"
)

// OverdueSource lists invoices that warrant an overdue alert.
type OverdueSource interface {
	OverdueAlerts(ctx context.Context) ([]invoicing.View, error)
}

// OverdueScanJob logs and counts invoices more than thirty days past due.
type OverdueScanJob struct {
	Source  OverdueSource
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// NewOverdueScanJob builds the handler.
func NewOverdueScanJob(src OverdueSource, logger *slog.Logger, metrics *jobmetrics.Metrics) *OverdueScanJob {
	return &OverdueScanJob{Source: src, Logger: logger, Metrics: metrics}
}

// Handle executes one scan.
func (j *OverdueScanJob) Handle(ctx context.Context, t *asynq.Task) (err error) {
	if j == nil || j.Source == nil {
		return errors.New("overdue scan: handler not configured")
	}
	payload, err := decodePayload(t)
	if err != nil {
		return err
	}
	tracker := j.Metrics.Track(TaskOverdueScan)
	defer func() { err = tracker.End(err) }()

	logger := loggerOrDefault(j.Logger).With(slog.String("job", TaskOverdueScan), slog.String("triggered_by", payload.TriggeredBy))
	alerts, err := j.Source.OverdueAlerts(ctx)
	if err != nil {
		logger.Error("overdue scan failed", slog.Any("error", err))
		return err
	}
	for _, inv := range alerts {
		logger.Warn("invoice overdue",
			slog.String("invoice_number", inv.InvoiceNumber),
			slog.String("customer_id", inv.CustomerID.String()),
			slog.String("due_date", inv.DueDate.String()),
			slog.String("balance_due", inv.BalanceDue.StringFixed(2)),
		)
	}
	j.Metrics.AddAlerts(jobmetrics.AlertOverdueInvoice, len(alerts))
	logger.Info("completed overdue scan", slog.Int("alerts", len(alerts)))
	return nil
}
