package jobs

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/hibiken/asynq"

	"github.com/ledgerly/ledgerly/internal/inventory"
	jobmetrics "github.com/ledgerly/ledgerly/internal/jobs"
)

// LedgerVerifier folds every product's movement history.
type LedgerVerifier interface {
	VerifyAll(ctx context.Context) ([]inventory.VerifyReport, error)
}

// LedgerIntegrityJob reports products whose cached stock drifted from their ledger.
type LedgerIntegrityJob struct {
	Ledger  LedgerVerifier
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// NewLedgerIntegrityJob initialises the integrity handler.
func NewLedgerIntegrityJob(ledger LedgerVerifier, logger *slog.Logger, metrics *jobmetrics.Metrics) *LedgerIntegrityJob {
	return &LedgerIntegrityJob{Ledger: ledger, Logger: logger, Metrics: metrics}
}

// Handle verifies the ledger. Inconsistencies are reported, not repaired.
func (j *LedgerIntegrityJob) Handle(ctx context.Context, _ *asynq.Task) (err error) {
	if j == nil || j.Ledger == nil {
		return errors.New("ledger integrity: handler not configured")
	}
	tracker := j.Metrics.Track(TaskLedgerIntegrity)
	defer func() { err = tracker.End(err) }()

	start := time.Now()
	logger := logOrDefault(j.Logger).With(slog.String("job", TaskLedgerIntegrity))
	reports, err := j.Ledger.VerifyAll(ctx)
	if err != nil {
		logger.Error("ledger integrity check failed", slog.Int("verified", len(reports)), slog.Any("error", err))
		return err
	}

	bad := 0
	for _, r := range reports {
		if r.Consistent {
			continue
		}
		bad++
		logger.Warn("ledger inconsistency detected",
			slog.String("product_id", r.ProductID),
			slog.String("sku", r.SKU),
			slog.Int64("stock_qty", r.StockQty),
			slog.Int64("folded_qty", r.FoldedQty),
			slog.String("problems", strings.Join(r.Problems, "; ")),
		)
	}
	j.Metrics.AddInconsistencies(bad)
	logger.Info("completed ledger integrity check",
		slog.Int("products", len(reports)),
		slog.Int("inconsistent", bad),
		slog.Duration("duration", time.Since(start)),
	)
	return nil
}
