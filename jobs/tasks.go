package jobs

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"

	// TaskReconcileLinks repairs orders whose invoice exists but is not linked.
	TaskReconcileLinks = "invoicing:reconcile_links"
	// TaskOverdueScan counts invoices more than thirty days past due.
	TaskOverdueScan = "invoicing:overdue_scan"
	// TaskFollowUpDigest logs customers whose follow-up date has passed.
	TaskFollowUpDigest = "crm:follow_up_digest"
)

// TaskPayload is attached to every scheduled task so runs can be traced
// back to their trigger.
type TaskPayload struct {
	TriggeredBy string    `json:"triggered_by"`
	RequestedAt time.Time `json:"requested_at"`
}

// TaskTypes lists every task the worker understands.
func TaskTypes() []string {
	return []string{TaskReconcileLinks, TaskOverdueScan, TaskFollowUpDigest}
}

// NewTask builds a task of a known type.
func NewTask(taskType, triggeredBy string, now time.Time) (*asynq.Task, error) {
	if !knownTask(taskType) {
		return nil, fmt.Errorf("jobs: unknown task type %q", taskType)
	}
	data, err := json.Marshal(TaskPayload{TriggeredBy: triggeredBy, RequestedAt: now.UTC()})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(taskType, data, asynq.Queue(QueueDefault), asynq.MaxRetry(3)), nil
}

func decodePayload(t *asynq.Task) (TaskPayload, error) {
	var payload TaskPayload
	if len(t.Payload()) == 0 {
		return payload, nil
	}
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return payload, fmt.Errorf("jobs: decode %s payload: %v: %w", t.Type(), err, asynq.SkipRetry)
	}
	return payload, nil
}

func knownTask(taskType string) bool {
	for _, known := range TaskTypes() {
		if known == taskType {
			return true
		}
	}
	return false
}
