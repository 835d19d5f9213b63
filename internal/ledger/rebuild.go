package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/kunal-ak23/university-tracker-sub000/internal/notification"
	"github.com/kunal-ak23/university-tracker-sub000/internal/source"
)

// Rebuilder regenerates the entire ledger store from the live set of source
// transactions. Only forward effects are replayed, in a fixed order
// (payments, then OEM payments, then expenses; each ordered by business
// date then created_at), so the result is exactly what continuous
// signal-driven recording would have produced for the same terminal state.
//
// Rebuild assumes exclusive access to the store; it is a maintenance
// operation, not something to run next to live reconciliation.
type Rebuilder struct {
	sources  source.Repository
	resolver *source.Resolver
	store    Store
	recorder *Recorder
	recalc   *Recalculator
	notifier notification.Notifier
	logger   *slog.Logger
}

// NewRebuilder constructs the rebuild driver.
func NewRebuilder(sources source.Repository, store Store, notifier notification.Notifier, logger *slog.Logger) *Rebuilder {
	return &Rebuilder{
		sources:  sources,
		resolver: source.NewResolver(sources),
		store:    store,
		recorder: NewRecorder(store, logger),
		recalc:   NewRecalculator(store, logger),
		notifier: notifier,
		logger:   logger,
	}
}

// RebuildOptions control the rebuild run. DryRun simulates everything,
// including truncation, without touching storage. TruncateOnly wipes the
// store and skips replay.
type RebuildOptions struct {
	DryRun       bool
	TruncateOnly bool
}

// RebuildCounts reports what a rebuild (or simulation) did.
type RebuildCounts struct {
	Truncated       int64
	PaymentLines    int
	OEMPaymentLines int
	ExpenseLines    int
	SkippedSources  int
}

// TotalLines is the number of lines created (or counted in dry-run mode).
func (c RebuildCounts) TotalLines() int {
	return c.PaymentLines + c.OEMPaymentLines + c.ExpenseLines
}

// Rebuild truncates the store and replays every source transaction's
// forward effect. Per-row attribution failures are skipped and counted,
// never fatal; storage failures abort with partial counts.
func (b *Rebuilder) Rebuild(ctx context.Context, opts RebuildOptions) (RebuildCounts, error) {
	var counts RebuildCounts

	if opts.DryRun {
		existing, err := b.store.Count(ctx)
		if err != nil {
			return counts, fmt.Errorf("count existing lines: %w", err)
		}
		counts.Truncated = existing
	} else {
		removed, err := b.store.Truncate(ctx)
		if err != nil {
			return counts, fmt.Errorf("truncate ledger: %w", err)
		}
		counts.Truncated = removed
	}
	b.logger.Info("ledger truncated", slog.Int64("lines", counts.Truncated), slog.Bool("dry_run", opts.DryRun))

	if opts.TruncateOnly {
		return counts, nil
	}

	if err := b.replayPayments(ctx, opts.DryRun, &counts); err != nil {
		return counts, err
	}
	if err := b.replayOEMPayments(ctx, opts.DryRun, &counts); err != nil {
		return counts, err
	}
	if err := b.replayExpenses(ctx, opts.DryRun, &counts); err != nil {
		return counts, err
	}

	if !opts.DryRun {
		if _, err := b.recalc.Recalculate(ctx, nil); err != nil {
			return counts, fmt.Errorf("recalculate balances: %w", err)
		}
	}

	b.logger.Info("ledger rebuild finished",
		slog.Bool("dry_run", opts.DryRun),
		slog.Int("payment_lines", counts.PaymentLines),
		slog.Int("oem_payment_lines", counts.OEMPaymentLines),
		slog.Int("expense_lines", counts.ExpenseLines),
		slog.Int("skipped_sources", counts.SkippedSources))
	return counts, nil
}

func (b *Rebuilder) replayPayments(ctx context.Context, dryRun bool, counts *RebuildCounts) error {
	payments, err := b.sources.ListPayments(ctx)
	if err != nil {
		return fmt.Errorf("list payments: %w", err)
	}
	for _, p := range payments {
		att, err := b.resolver.ForPayment(ctx, p)
		if err != nil {
			return fmt.Errorf("attribute payment %s: %w", p.ID, err)
		}
		effect := BuildPaymentEffect(p, att)
		n, err := b.replayEffect(ctx, dryRun, effect)
		if err != nil {
			return err
		}
		counts.PaymentLines += n
	}
	return nil
}

func (b *Rebuilder) replayOEMPayments(ctx context.Context, dryRun bool, counts *RebuildCounts) error {
	payments, err := b.sources.ListOEMPayments(ctx)
	if err != nil {
		return fmt.Errorf("list oem payments: %w", err)
	}
	for _, p := range payments {
		att, err := b.resolver.ForOEMPayment(ctx, p)
		if errors.Is(err, source.ErrNoOEM) {
			if p.Status == source.StatusCompleted {
				counts.SkippedSources++
				b.notifySkipped(ctx, SourceRef{Kind: KindOEMPayment, ID: p.ID})
			}
			continue
		}
		if err != nil {
			return fmt.Errorf("attribute oem payment %s: %w", p.ID, err)
		}
		effect := BuildOEMPaymentEffect(p, att)
		n, err := b.replayEffect(ctx, dryRun, effect)
		if err != nil {
			return err
		}
		counts.OEMPaymentLines += n
	}
	return nil
}

func (b *Rebuilder) replayExpenses(ctx context.Context, dryRun bool, counts *RebuildCounts) error {
	expenses, err := b.sources.ListExpenses(ctx)
	if err != nil {
		return fmt.Errorf("list expenses: %w", err)
	}
	for _, e := range expenses {
		att, err := b.resolver.ForExpense(ctx, e)
		if err != nil {
			return fmt.Errorf("attribute expense %s: %w", e.ID, err)
		}
		effect := BuildExpenseEffect(e, att)
		n, err := b.replayEffect(ctx, dryRun, effect)
		if err != nil {
			return err
		}
		counts.ExpenseLines += n
	}
	return nil
}

func (b *Rebuilder) replayEffect(ctx context.Context, dryRun bool, effect *Effect) (int, error) {
	if effect == nil || len(effect.Entries) == 0 {
		return 0, nil
	}
	if dryRun {
		return len(effect.Entries), nil
	}
	ids, err := b.recorder.RecordEffect(ctx, effect)
	if err != nil {
		return 0, fmt.Errorf("replay %s %s: %w", effect.Source.Kind, effect.Source.ID, err)
	}
	return len(ids), nil
}

func (b *Rebuilder) notifySkipped(ctx context.Context, ref SourceRef) {
	b.logger.Warn("rebuild skipped source without attribution",
		slog.String("source_kind", string(ref.Kind)),
		slog.String("source_id", ref.ID.String()))
	if b.notifier == nil {
		return
	}
	_ = b.notifier.Send(ctx, notification.Message{
		Kind:       notification.KindAttributionFailure,
		SourceKind: string(ref.Kind),
		SourceID:   ref.ID.String(),
		Body:       "skipped during rebuild: no OEM resolved",
	})
}
