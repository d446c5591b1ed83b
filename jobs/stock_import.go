package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/hibiken/asynq"

	"github.com/ledgerly/ledgerly/internal/inventory"
	jobmetrics "github.com/ledgerly/ledgerly/internal/jobs"
	"github.com/ledgerly/ledgerly/internal/shared"
)

// BatchRecorder applies movement batches.
type BatchRecorder interface {
	RecordBatch(ctx context.Context, inputs []inventory.MovementInput, opts inventory.BatchOptions) ([]inventory.BatchResult, error)
}

// StockImportJob applies imported movement batches through the ledger.
type StockImportJob struct {
	Ledger  BatchRecorder
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// NewStockImportJob initialises the import handler.
func NewStockImportJob(ledger BatchRecorder, logger *slog.Logger, metrics *jobmetrics.Metrics) *StockImportJob {
	return &StockImportJob{Ledger: ledger, Logger: logger, Metrics: metrics}
}

// Handle executes the import. Malformed payloads and atomic batches rejected on
// validation are not retried. Independent rows carry keys derived from the batch id,
// so a retry after a partial run does not apply committed rows twice.
func (j *StockImportJob) Handle(ctx context.Context, t *asynq.Task) (err error) {
	if j == nil || j.Ledger == nil {
		return errors.New("stock import: handler not configured")
	}
	var payload StockImportPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("stock import: decode payload: %v: %w", err, asynq.SkipRetry)
	}
	if len(payload.Movements) == 0 {
		return fmt.Errorf("stock import: empty batch: %w", asynq.SkipRetry)
	}

	tracker := j.Metrics.Track(TaskStockImport)
	defer func() { err = tracker.End(err) }()

	start := time.Now()
	logger := logOrDefault(j.Logger).With(
		slog.String("job", TaskStockImport),
		slog.String("source", payload.Source),
		slog.Bool("atomic", payload.Atomic),
		slog.Int("rows", len(payload.Movements)),
	)
	logger.Info("starting stock import")

	batchID := payload.BatchID
	if batchID == "" {
		batchID, _ = asynq.GetTaskID(ctx)
	}
	if batchID != "" && !payload.Atomic {
		for i := range payload.Movements {
			if payload.Movements[i].IdempotencyKey == "" {
				payload.Movements[i].IdempotencyKey = rowKey(batchID, i)
			}
		}
	}

	results, err := j.Ledger.RecordBatch(ctx, payload.Movements, inventory.BatchOptions{Atomic: payload.Atomic})
	if err != nil {
		logger.Error("stock import failed", slog.Any("error", err))
		if payload.Atomic {
			j.Metrics.AddImportRows("rejected", len(payload.Movements))
		}
		if errors.Is(err, shared.ErrValidation) || errors.Is(err, shared.ErrNotFound) {
			return fmt.Errorf("stock import: %w: %w", err, asynq.SkipRetry)
		}
		return err
	}

	applied, rejected, replayed := 0, 0, 0
	for _, r := range results {
		if errors.Is(r.Err, shared.ErrIdempotencyConflict) {
			replayed++
			continue
		}
		if r.Err != nil || r.Error != "" {
			rejected++
			logger.Warn("stock import row rejected", slog.Int("index", r.Index), slog.String("error", r.Error))
			continue
		}
		applied++
	}
	j.Metrics.AddImportRows("applied", applied)
	j.Metrics.AddImportRows("rejected", rejected)
	j.Metrics.AddImportRows("replayed", replayed)
	logger.Info("completed stock import",
		slog.Int("applied", applied),
		slog.Int("rejected", rejected),
		slog.Int("replayed", replayed),
		slog.Duration("duration", time.Since(start)),
	)
	return nil
}

// rowKey identifies one row of one import across task retries.
func rowKey(batchID string, index int) string {
	return "import:" + batchID + ":" + strconv.Itoa(index)
}

func logOrDefault(l *slog.Logger) *slog.Logger {
	if l == nil {
		return slog.Default()
	}
	return l
}
