package jobs

import (
	"context"
	"errors"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/ledgerly/ledgerly/internal/inventory"
	jobmetrics "github.com/ledgerly/ledgerly/internal/jobs"
)

// AlertRefresher recomputes and caches low-stock alerts.
type AlertRefresher interface {
	RefreshAlerts(ctx context.Context) ([]inventory.Alert, error)
}

// LowStockScanJob keeps the alert cache warm between movements.
type LowStockScanJob struct {
	Ledger  AlertRefresher
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// NewLowStockScanJob initialises the scan handler.
func NewLowStockScanJob(ledger AlertRefresher, logger *slog.Logger, metrics *jobmetrics.Metrics) *LowStockScanJob {
	return &LowStockScanJob{Ledger: ledger, Logger: logger, Metrics: metrics}
}

// Handle refreshes the alerts and logs the products that are out of stock.
func (j *LowStockScanJob) Handle(ctx context.Context, _ *asynq.Task) (err error) {
	if j == nil || j.Ledger == nil {
		return errors.New("low stock scan: handler not configured")
	}
	tracker := j.Metrics.Track(TaskLowStockScan)
	defer func() { err = tracker.End(err) }()

	logger := logOrDefault(j.Logger).With(slog.String("job", TaskLowStockScan))
	alerts, err := j.Ledger.RefreshAlerts(ctx)
	if err != nil {
		logger.Error("low stock scan failed", slog.Any("error", err))
		return err
	}
	out := 0
	for _, a := range alerts {
		if a.OutOfStock {
			out++
			logger.Warn("product out of stock", slog.String("product_id", a.ProductID), slog.String("sku", a.SKU), slog.Int64("stock_qty", a.StockQty))
		}
	}
	logger.Info("completed low stock scan", slog.Int("low", len(alerts)), slog.Int("out_of_stock", out))
	return nil
}
