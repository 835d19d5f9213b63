package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kunal-ak23/university-tracker-sub000/internal/ledger"
)

var (
	rebuildDryRun       bool
	rebuildTruncateOnly bool
)

// rebuildCmd represents the rebuild command.
var rebuildCmd = &cobra.Command{
	Use:   "rebuild",
	Short: "Wipe the ledger and replay every source transaction",
	Long: `Rebuild truncates the ledger and replays the forward effect of every
qualifying source transaction in deterministic order (payments, OEM
payments, expenses), then recomputes running balances.

The ledger must not receive live events while a rebuild runs.

Example:
  ledgerctl rebuild --dry-run
  ledgerctl rebuild --truncate-only`,
	Run: runRebuild,
}

func init() {
	rebuildCmd.Flags().BoolVar(&rebuildDryRun, "dry-run", false, "Simulate without touching storage")
	rebuildCmd.Flags().BoolVar(&rebuildTruncateOnly, "truncate-only", false, "Wipe the ledger and skip replay")
}

func runRebuild(cmd *cobra.Command, args []string) {
	ctx := context.Background()

	eng, err := buildEngine(ctx)
	exitOnError(err, "initialize engine")
	defer eng.close()

	rebuilder := ledger.NewRebuilder(eng.sources, eng.store, eng.notifier, eng.logger)
	counts, err := rebuilder.Rebuild(ctx, ledger.RebuildOptions{
		DryRun:       rebuildDryRun,
		TruncateOnly: rebuildTruncateOnly,
	})
	exitOnError(err, "rebuild ledger")

	if rebuildDryRun {
		fmt.Println("dry run; nothing was written")
	}
	fmt.Printf("truncated lines:    %d\n", counts.Truncated)
	if !rebuildTruncateOnly {
		fmt.Printf("payment lines:      %d\n", counts.PaymentLines)
		fmt.Printf("oem payment lines:  %d\n", counts.OEMPaymentLines)
		fmt.Printf("expense lines:      %d\n", counts.ExpenseLines)
		fmt.Printf("skipped sources:    %d\n", counts.SkippedSources)
		fmt.Printf("total lines:        %d\n", counts.TotalLines())
	}
}
