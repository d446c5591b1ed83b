package jobs

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/ledgerly/ledgerly/internal/inventory"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskStockImport applies a batch of stock movements.
	TaskStockImport = "stock:import"
	// TaskLowStockScan refreshes the cached low-stock alerts.
	TaskLowStockScan = "stock:low_stock_scan"
	// TaskLedgerIntegrity folds every product's history and reports drift.
	TaskLedgerIntegrity = "stock:ledger_integrity"
	// TaskIdempotencyCleanup purges expired idempotency keys.
	TaskIdempotencyCleanup = "stock:idempotency_cleanup"
)

// Cron schedules for the periodic stock tasks.
const (
	LowStockScanSchedule       = "*/15 * * * *"
	LedgerIntegritySchedule    = "0 3 * * *"
	IdempotencyCleanupSchedule = "30 3 * * *"
)

// DefaultIdempotencyRetention is how long a claimed key blocks replays.
const DefaultIdempotencyRetention = 7 * 24 * time.Hour

// StockImportPayload describes a movement batch to apply in the background.
// BatchID scopes the per-row idempotency keys, so a retried task skips rows that
// already committed.
type StockImportPayload struct {
	BatchID   string                    `json:"batch_id,omitempty"`
	Source    string                    `json:"source,omitempty"`
	Atomic    bool                      `json:"atomic"`
	Movements []inventory.MovementInput `json:"movements"`
}

// NewStockImportTask constructs an Asynq task for a movement batch.
func NewStockImportTask(payload StockImportPayload) (*asynq.Task, error) {
	if len(payload.Movements) == 0 {
		return nil, fmt.Errorf("jobs: stock import requires at least one movement")
	}
	if payload.BatchID == "" {
		payload.BatchID = uuid.NewString()
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskStockImport, data), nil
}

// NewLowStockScanTask constructs the periodic alert refresh task.
func NewLowStockScanTask() *asynq.Task {
	return asynq.NewTask(TaskLowStockScan, nil)
}

// NewLedgerIntegrityTask constructs the periodic ledger verification task.
func NewLedgerIntegrityTask() *asynq.Task {
	return asynq.NewTask(TaskLedgerIntegrity, nil)
}

// IdempotencyCleanupPayload carries the retention window.
type IdempotencyCleanupPayload struct {
	RetentionHours int `json:"retention_hours"`
}

// NewIdempotencyCleanupTask constructs the periodic key purge task.
func NewIdempotencyCleanupTask(retention time.Duration) (*asynq.Task, error) {
	hours := int(retention / time.Hour)
	if hours <= 0 {
		return nil, fmt.Errorf("jobs: idempotency retention must be at least one hour")
	}
	data, err := json.Marshal(IdempotencyCleanupPayload{RetentionHours: hours})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskIdempotencyCleanup, data), nil
}
