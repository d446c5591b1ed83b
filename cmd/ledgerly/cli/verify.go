package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ledgerly/ledgerly/internal/inventory"
)

// LedgerVerifier replays every product's movement history.
type LedgerVerifier interface {
	VerifyAll(ctx context.Context) ([]inventory.VerifyReport, error)
}

// VerifyOptions defines available flags for the verify command.
type VerifyOptions struct {
	JSONOutput bool
	// All prints consistent products too.
	All    bool
	Stdout io.Writer
	Stderr io.Writer
}

// VerifySummary describes the JSON response for verify.
type VerifySummary struct {
	OK           bool                     `json:"ok"`
	Products     int                      `json:"products"`
	Inconsistent int                      `json:"inconsistent"`
	Reports      []inventory.VerifyReport `json:"reports"`
}

// ExitInconsistent is returned when at least one ledger does not fold to its stock counter.
const ExitInconsistent = 10

// VerifyCommand folds every ledger and prints the outcome.
func VerifyCommand(ctx context.Context, verifier LedgerVerifier, opts VerifyOptions) int {
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}
	reports, err := verifier.VerifyAll(ctx)
	if err != nil {
		_, _ = fmt.Fprintf(opts.Stderr, "verify: %v\n", err)
		return 1
	}
	summary := VerifySummary{Products: len(reports), Reports: []inventory.VerifyReport{}}
	for _, report := range reports {
		if !report.Consistent {
			summary.Inconsistent++
		}
		if opts.All || !report.Consistent {
			summary.Reports = append(summary.Reports, report)
		}
	}
	summary.OK = summary.Inconsistent == 0

	if opts.JSONOutput {
		if err := json.NewEncoder(opts.Stdout).Encode(summary); err != nil {
			_, _ = fmt.Fprintf(opts.Stderr, "verify: encode json: %v\n", err)
			return 1
		}
	} else {
		renderVerifyHuman(opts.Stdout, summary)
	}
	if !summary.OK {
		return ExitInconsistent
	}
	return 0
}

func renderVerifyHuman(w io.Writer, summary VerifySummary) {
	_, _ = fmt.Fprintf(w, "checked %d products, %d inconsistent\n", summary.Products, summary.Inconsistent)
	for _, report := range summary.Reports {
		status := "ok"
		if !report.Consistent {
			status = "DRIFT"
		}
		_, _ = fmt.Fprintf(w, "%-5s %-20s stock=%d folded=%d movements=%d\n",
			status, report.SKU, report.StockQty, report.FoldedQty, report.Movements)
		if len(report.Problems) > 0 {
			_, _ = fmt.Fprintf(w, "      %s\n", strings.Join(report.Problems, "\n      "))
		}
	}
}
