package jobs

import (
	"context"
	"errors"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/coffee-export/export-manager/internal/crm"
	jobmetrics "github.com/coffee-export/export-manager/internal/jobs"
)

// FollowUpSource lists customers whose follow-up date has passed.
type FollowUpSource interface {
	FollowUpsDue(ctx context.Context) ([]crm.Customer, error)
}

// FollowUpDigestJob logs the customers a sales rep should contact.
type FollowUpDigestJob struct {
	Source  FollowUpSource
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// NewFollowUpDigestJob builds the handler.
func NewFollowUpDigestJob(src FollowUpSource, logger *slog.Logger, metrics *jobmetrics.Metrics) *FollowUpDigestJob {
	return &FollowUpDigestJob{Source: src, Logger: logger, Metrics: metrics}
}

// Handle executes one digest run.
func (j *FollowUpDigestJob) Handle(ctx context.Context, t *asynq.Task) (err error) {
	if j == nil || j.Source == nil {
		return errors.New("follow-up digest: handler not configured")
	}
	payload, err := decodePayload(t)
	if err != nil {
		return err
	}
	tracker := j.Metrics.Track(TaskFollowUpDigest)
	defer func() { err = tracker.End(err) }()

	logger := loggerOrDefault(j.Logger).With(slog.String("job", TaskFollowUpDigest), slog.String("triggered_by", payload.TriggeredBy))
	customers, err := j.Source.FollowUpsDue(ctx)
	if err != nil {
		logger.Error("follow-up digest failed", slog.Any("error", err))
		return err
	}
	for _, c := range customers {
		attrs := []any{
			slog.String("customer_id", c.ID.String()),
			slog.String("company_name", c.CompanyName),
			slog.String("sales_rep", c.AssignedSalesRep),
		}
		if c.NextFollowUpDate != nil {
			attrs = append(attrs, slog.String("follow_up", c.NextFollowUpDate.String()))
		}
		logger.Info("follow-up due", attrs...)
	}
	j.Metrics.AddAlerts(jobmetrics.AlertFollowUpDue, len(customers))
	logger.Info("completed follow-up digest", slog.Int("customers", len(customers)))
	return nil
}
