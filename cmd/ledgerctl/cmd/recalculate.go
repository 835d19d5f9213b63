package cmd

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/kunal-ak23/university-tracker-sub000/internal/ledger"
)

var recalculateUniversityID string

// recalculateCmd represents the recalculate command.
var recalculateCmd = &cobra.Command{
	Use:   "recalculate",
	Short: "Recompute running balances",
	Long: `Recalculate replays the ledger lines of each university scope in
(transaction date, created at) order and rewrites their running balances.
Only the derived balance field is touched; lines are never modified.

Example:
  ledgerctl recalculate
  ledgerctl recalculate --university-id 9f3b...`,
	Run: runRecalculate,
}

func init() {
	recalculateCmd.Flags().StringVar(&recalculateUniversityID, "university-id", "", "Limit to one university scope")
}

func runRecalculate(cmd *cobra.Command, args []string) {
	ctx := context.Background()

	var scope *uuid.UUID
	if recalculateUniversityID != "" {
		id, err := uuid.Parse(recalculateUniversityID)
		exitOnError(err, "parse --university-id")
		scope = &id
	}

	eng, err := buildEngine(ctx)
	exitOnError(err, "initialize engine")
	defer eng.close()

	recalc := ledger.NewRecalculator(eng.store, eng.logger)
	updated, err := recalc.Recalculate(ctx, scope)
	exitOnError(err, "recalculate balances")

	fmt.Printf("updated lines: %d\n", updated)
}
