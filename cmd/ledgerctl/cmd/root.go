// Package cmd provides CLI commands for ledgerctl.
package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/kunal-ak23/university-tracker-sub000/internal/config"
	"github.com/kunal-ak23/university-tracker-sub000/internal/infra"
	"github.com/kunal-ak23/university-tracker-sub000/internal/ledger"
	"github.com/kunal-ak23/university-tracker-sub000/internal/logging"
	"github.com/kunal-ak23/university-tracker-sub000/internal/notification"
	"github.com/kunal-ak23/university-tracker-sub000/internal/source"
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "ledgerctl",
	Short: "Maintenance operations for the ledger engine",
	Long: `ledgerctl runs maintenance operations against the ledger database:

  rebuild      wipe the ledger and replay every source transaction
  recalculate  recompute running balances per scope
  fix-missing  backfill ledger lines for unrecorded completed payments

All commands read the same environment configuration as the server
(DATABASE_URL is required).

Example:
  ledgerctl rebuild --dry-run
  ledgerctl fix-missing --university-id 9f3b...`,
}

// Execute adds all child commands to the root command and sets flags
// appropriately. This is called by main.main().
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(rebuildCmd)
	rootCmd.AddCommand(recalculateCmd)
	rootCmd.AddCommand(fixMissingCmd)
}

// engine bundles the components a maintenance command works with.
type engine struct {
	sources  source.Repository
	store    ledger.Store
	notifier notification.Notifier
	logger   *slog.Logger
	close    func()
}

func buildEngine(ctx context.Context) (*engine, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL must be set for maintenance commands")
	}

	logger := logging.New(cfg.LogLevel)

	db, err := infra.NewPostgresPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	sources := source.NewPostgresRepository(db)
	if err := sources.Migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate source tables: %w", err)
	}
	store := ledger.NewPostgresStore(db)
	if err := store.Migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate ledger tables: %w", err)
	}

	return &engine{
		sources:  sources,
		store:    store,
		notifier: notification.NewLoggerNotifier(logger),
		logger:   logger,
		close:    db.Close,
	}, nil
}

func exitOnError(err error, msg string) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s: %v\n", msg, err)
		os.Exit(1)
	}
}
