package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/kunal-ak23/university-tracker-sub000/internal/notification"
	"github.com/kunal-ak23/university-tracker-sub000/internal/source"
)

// Repairer backfills ledger lines for completed payments that never made it
// into the ledger (historically possible when an event fired before the
// signal wiring existed, or when attribution failed and was later fixed).
// Stale lines are corrected the append-only way: reversal plus fresh
// forward lines, never in-place edits.
type Repairer struct {
	sources  source.Repository
	resolver *source.Resolver
	store    Store
	recorder *Recorder
	recalc   *Recalculator
	notifier notification.Notifier
	logger   *slog.Logger
}

// NewRepairer constructs the fix-missing driver.
func NewRepairer(sources source.Repository, store Store, notifier notification.Notifier, logger *slog.Logger) *Repairer {
	return &Repairer{
		sources:  sources,
		resolver: source.NewResolver(sources),
		store:    store,
		recorder: NewRecorder(store, logger),
		recalc:   NewRecalculator(store, logger),
		notifier: notifier,
		logger:   logger,
	}
}

// RepairOptions control the repair run. UniversityID limits the pass to
// payments attributing to one university.
type RepairOptions struct {
	DryRun       bool
	UniversityID *uuid.UUID
}

// RepairCounts reports what the pass found and did.
type RepairCounts struct {
	Checked  int
	Missing  int
	Created  int
	Reversed int
	Skipped  int
	Errors   int
}

// FixMissing scans completed payments and OEM payments and reconciles any
// whose live forward lines do not match their current state. Per-row
// failures are counted, logged and skipped.
func (r *Repairer) FixMissing(ctx context.Context, opts RepairOptions) (RepairCounts, error) {
	var counts RepairCounts

	payments, err := r.sources.ListPayments(ctx)
	if err != nil {
		return counts, fmt.Errorf("list payments: %w", err)
	}
	for _, p := range payments {
		if p.Status != source.StatusCompleted {
			continue
		}
		att, err := r.resolver.ForPayment(ctx, p)
		if err != nil {
			counts.Errors++
			r.logger.Error("repair: attribute payment", "payment_id", p.ID.String(), "error", err)
			continue
		}
		if opts.UniversityID != nil && (att.UniversityID == nil || *att.UniversityID != *opts.UniversityID) {
			continue
		}
		r.repairOne(ctx, BuildPaymentEffect(p, att), &counts, opts.DryRun)
	}

	oemPayments, err := r.sources.ListOEMPayments(ctx)
	if err != nil {
		return counts, fmt.Errorf("list oem payments: %w", err)
	}
	for _, p := range oemPayments {
		if p.Status != source.StatusCompleted {
			continue
		}
		att, err := r.resolver.ForOEMPayment(ctx, p)
		if errors.Is(err, source.ErrNoOEM) {
			counts.Skipped++
			r.notifySkipped(ctx, SourceRef{Kind: KindOEMPayment, ID: p.ID})
			continue
		}
		if err != nil {
			counts.Errors++
			r.logger.Error("repair: attribute oem payment", "oem_payment_id", p.ID.String(), "error", err)
			continue
		}
		if opts.UniversityID != nil && (att.UniversityID == nil || *att.UniversityID != *opts.UniversityID) {
			continue
		}
		r.repairOne(ctx, BuildOEMPaymentEffect(p, att), &counts, opts.DryRun)
	}

	if !opts.DryRun && (counts.Created > 0 || counts.Reversed > 0) {
		if _, err := r.recalc.Recalculate(ctx, opts.UniversityID); err != nil {
			return counts, fmt.Errorf("recalculate balances: %w", err)
		}
	}
	return counts, nil
}

func (r *Repairer) repairOne(ctx context.Context, effect *Effect, counts *RepairCounts, dryRun bool) {
	if effect == nil {
		return
	}
	counts.Checked++

	existing, err := r.store.LinesBySource(ctx, effect.Source)
	if err != nil {
		counts.Errors++
		r.logger.Error("repair: load lines", "source_id", effect.Source.ID.String(), "error", err)
		return
	}
	if effectMatchesLines(effect, liveForwardLines(existing)) {
		return
	}
	counts.Missing++

	if dryRun {
		r.logger.Info("repair: would reconcile",
			slog.String("source_kind", string(effect.Source.Kind)),
			slog.String("source_id", effect.Source.ID.String()))
		return
	}

	res, err := r.recorder.Reconcile(ctx, effect.Source, effect)
	if err != nil {
		counts.Errors++
		r.logger.Error("repair: reconcile", "source_id", effect.Source.ID.String(), "error", err)
		return
	}
	counts.Created += res.Recorded
	counts.Reversed += res.Reversed
}

func (r *Repairer) notifySkipped(ctx context.Context, ref SourceRef) {
	r.logger.Warn("repair skipped source without attribution",
		slog.String("source_kind", string(ref.Kind)),
		slog.String("source_id", ref.ID.String()))
	if r.notifier == nil {
		return
	}
	_ = r.notifier.Send(ctx, notification.Message{
		Kind:       notification.KindAttributionFailure,
		SourceKind: string(ref.Kind),
		SourceID:   ref.ID.String(),
		Body:       "skipped during repair: no OEM resolved",
	})
}
