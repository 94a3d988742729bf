package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"

	"github.com/comanda-pos/comanda/internal/inventory"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskLowStockAlert reports an ingredient that fell to its reorder threshold.
	TaskLowStockAlert = "inventory:low_stock_alert"
	// TaskIdempotencyCleanup purges expired idempotency keys.
	TaskIdempotencyCleanup = "maintenance:idempotency_cleanup"
)

// LowStockAlertPayload is the serialized form of a low stock event.
type LowStockAlertPayload struct {
	Event inventory.LowStockEvent `json:"event"`
}

// NewLowStockAlertTask constructs the alert task for evt.
func NewLowStockAlertTask(evt inventory.LowStockEvent) (*asynq.Task, error) {
	data, err := json.Marshal(LowStockAlertPayload{Event: evt})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskLowStockAlert, data, asynq.MaxRetry(3)), nil
}

// NewIdempotencyCleanupTask constructs the periodic cleanup task.
func NewIdempotencyCleanupTask() *asynq.Task {
	return asynq.NewTask(TaskIdempotencyCleanup, nil, asynq.MaxRetry(1))
}
