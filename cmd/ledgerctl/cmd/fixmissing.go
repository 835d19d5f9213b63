package cmd

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/kunal-ak23/university-tracker-sub000/internal/ledger"
)

var (
	fixMissingDryRun       bool
	fixMissingUniversityID string
)

// fixMissingCmd represents the fix-missing command.
var fixMissingCmd = &cobra.Command{
	Use:   "fix-missing",
	Short: "Backfill ledger lines for unrecorded completed payments",
	Long: `Fix-missing scans completed payments and OEM payments and reconciles
any whose live ledger lines are absent or stale. Corrections are
append-only: stale lines are reversed, never edited.

Example:
  ledgerctl fix-missing --dry-run
  ledgerctl fix-missing --university-id 9f3b...`,
	Run: runFixMissing,
}

func init() {
	fixMissingCmd.Flags().BoolVar(&fixMissingDryRun, "dry-run", false, "Report without writing")
	fixMissingCmd.Flags().StringVar(&fixMissingUniversityID, "university-id", "", "Limit to one university scope")
}

func runFixMissing(cmd *cobra.Command, args []string) {
	ctx := context.Background()

	var scope *uuid.UUID
	if fixMissingUniversityID != "" {
		id, err := uuid.Parse(fixMissingUniversityID)
		exitOnError(err, "parse --university-id")
		scope = &id
	}

	eng, err := buildEngine(ctx)
	exitOnError(err, "initialize engine")
	defer eng.close()

	repairer := ledger.NewRepairer(eng.sources, eng.store, eng.notifier, eng.logger)
	counts, err := repairer.FixMissing(ctx, ledger.RepairOptions{
		DryRun:       fixMissingDryRun,
		UniversityID: scope,
	})
	exitOnError(err, "fix missing lines")

	if fixMissingDryRun {
		fmt.Println("dry run; nothing was written")
	}
	fmt.Printf("checked:  %d\n", counts.Checked)
	fmt.Printf("missing:  %d\n", counts.Missing)
	fmt.Printf("created:  %d\n", counts.Created)
	fmt.Printf("reversed: %d\n", counts.Reversed)
	fmt.Printf("skipped:  %d\n", counts.Skipped)
	fmt.Printf("errors:   %d\n", counts.Errors)
}
