package perf

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"

	"github.com/ledgerly/ledgerly/internal/inventory"
	jobmetrics "github.com/ledgerly/ledgerly/internal/jobs"
	"github.com/ledgerly/ledgerly/jobs"
)

func TestStockImportThroughputAndReliability(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := jobmetrics.NewMetrics(reg)
	rig := newLedgerRig(t)
	job := jobs.NewStockImportJob(rig.ledger, nil, metrics)

	ids := []string{rig.product(t, "IMP-1"), rig.product(t, "IMP-2"), rig.product(t, "IMP-3")}
	for round := 0; round < 20; round++ {
		payload := jobs.StockImportPayload{Source: "bench"}
		for i := 0; i < 30; i++ {
			payload.Movements = append(payload.Movements, inventory.MovementInput{ProductID: ids[i%len(ids)], Kind: inventory.KindPurchase, Quantity: 1})
		}
		// one row per round is rejected by the sign rule
		payload.Movements = append(payload.Movements, inventory.MovementInput{ProductID: ids[0], Kind: inventory.KindSale, Quantity: 3})
		task, err := jobs.NewStockImportTask(payload)
		require.NoError(t, err)
		require.NoError(t, job.Handle(context.Background(), task))
	}

	families, err := reg.Gather()
	require.NoError(t, err)

	success := metricValue(t, families, "ledgerly_jobs_total", map[string]string{"job": jobs.TaskStockImport, "status": "success"})
	require.Equal(t, float64(20), success)
	applied := metricValue(t, families, "ledgerly_stock_import_rows_total", map[string]string{"outcome": "applied"})
	rejected := metricValue(t, families, "ledgerly_stock_import_rows_total", map[string]string{"outcome": "rejected"})
	require.Equal(t, float64(600), applied)
	require.Equal(t, float64(20), rejected)

	if mean := histogramMean(t, families, "ledgerly_job_duration_seconds", map[string]string{"job": jobs.TaskStockImport}); mean > 2.0 {
		t.Fatalf("stock import duration above budget: %f", mean)
	}

	reports, err := rig.ledger.VerifyAll(context.Background())
	require.NoError(t, err)
	for _, report := range reports {
		require.True(t, report.Consistent, report.Problems)
	}
}

func metricValue(t *testing.T, families []*dto.MetricFamily, name string, labels map[string]string) float64 {
	t.Helper()
	for _, fam := range families {
		if fam.GetName() != name {
			continue
		}
		for _, metric := range fam.GetMetric() {
			if hasLabels(metric, labels) {
				if fam.GetType() == dto.MetricType_COUNTER {
					return metric.GetCounter().GetValue()
				}
				if fam.GetType() == dto.MetricType_GAUGE {
					return metric.GetGauge().GetValue()
				}
			}
		}
	}
	t.Fatalf("metric %s with labels %v not found", name, labels)
	return 0
}

func histogramMean(t *testing.T, families []*dto.MetricFamily, name string, labels map[string]string) float64 {
	t.Helper()
	for _, fam := range families {
		if fam.GetName() != name {
			continue
		}
		for _, metric := range fam.GetMetric() {
			if hasLabels(metric, labels) {
				hist := metric.GetHistogram()
				if hist == nil || hist.GetSampleCount() == 0 {
					t.Fatalf("histogram %s missing samples", name)
				}
				return hist.GetSampleSum() / float64(hist.GetSampleCount())
			}
		}
	}
	t.Fatalf("histogram %s with labels %v not found", name, labels)
	return 0
}

func hasLabels(metric *dto.Metric, labels map[string]string) bool {
	for _, lp := range metric.GetLabel() {
		if val, ok := labels[lp.GetName()]; ok {
			if lp.GetValue() != val {
				return false
			}
		}
	}
	for key := range labels {
		found := false
		for _, lp := range metric.GetLabel() {
			if lp.GetName() == key {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
