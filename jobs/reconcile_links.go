package jobs

import (
	"context"
	"errors"
	"log/slog"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/coffee-export/export-manager/internal/jobs"
)

// LinkReconciler repairs order to invoice links.
type LinkReconciler interface {
	ReconcileLinks(ctx context.Context) (int64, error)
}

// ReconcileLinksJob restores linked_invoice_id on orders left behind by a
// partial failure.
type ReconcileLinksJob struct {
	Service LinkReconciler
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// NewReconcileLinksJob builds the handler.
func NewReconcileLinksJob(svc LinkReconciler, logger *slog.Logger, metrics *jobmetrics.Metrics) *ReconcileLinksJob {
	return &ReconcileLinksJob{Service: svc, Logger: logger, Metrics: metrics}
}

// Handle executes one reconciliation pass.
func (j *ReconcileLinksJob) Handle(ctx context.Context, t *asynq.Task) (err error) {
	if j == nil || j.Service == nil {
		return errors.New("reconcile links: handler not configured")
	}
	payload, err := decodePayload(t)
	if err != nil {
		return err
	}
	tracker := j.Metrics.Track(TaskReconcileLinks)
	defer func() { err = tracker.End(err) }()

	logger := loggerOrDefault(j.Logger).With(slog.String("job", TaskReconcileLinks), slog.String("triggered_by", payload.TriggeredBy))
	repaired, err := j.Service.ReconcileLinks(ctx)
	if err != nil {
		logger.Error("reconcile links failed", slog.Any("error", err))
		return err
	}
	if repaired > 0 {
		logger.Warn("repaired order invoice links", slog.Int64("orders", repaired))
		j.Metrics.AddAlerts(jobmetrics.AlertLinkRepaired, int(repaired))
		return nil
	}
	logger.Info("order invoice links consistent")
	return nil
}

func loggerOrDefault(l *slog.Logger) *slog.Logger {
	if l == nil {
		return slog.Default()
	}
	return l
}
