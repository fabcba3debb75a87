package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// TaskLedgerReconcile cross-checks stock balances against movement sums.
	TaskLedgerReconcile = "ledger:reconcile"
	// TaskIdempotencyCleanup prunes expired idempotency keys.
	TaskIdempotencyCleanup = "ops:idempotency_cleanup"
)

// ReconcilePayload scopes a reconcile run. StoreID 0 means all stores.
type ReconcilePayload struct {
	StoreID int64 `json:"store_id"`
}

// NewLedgerReconcileTask constructs a reconcile task.
func NewLedgerReconcileTask(payload ReconcilePayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskLedgerReconcile, data), nil
}

// CleanupPayload sets the retention window in hours.
type CleanupPayload struct {
	RetentionHours int `json:"retention_hours"`
}

// NewIdempotencyCleanupTask constructs a cleanup task.
func NewIdempotencyCleanupTask(payload CleanupPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskIdempotencyCleanup, data), nil
}
