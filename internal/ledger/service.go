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

// Service is the engine's entry point for business events. Given a source
// transaction id it reads the transaction's current state (or observes its
// absence), resolves attribution, builds the forward effect and hands both
// to the recorder, then refreshes running balances for the touched scopes.
//
// A failure here is always scoped to the triggering event; lines already
// committed for other transactions are never rolled back.
type Service struct {
	sources  source.Repository
	resolver *source.Resolver
	recorder *Recorder
	recalc   *Recalculator
	store    Store
	notifier notification.Notifier
	logger   *slog.Logger
}

// NewService wires the engine's components.
func NewService(sources source.Repository, store Store, notifier notification.Notifier, logger *slog.Logger) *Service {
	return &Service{
		sources:  sources,
		resolver: source.NewResolver(sources),
		recorder: NewRecorder(store, logger),
		recalc:   NewRecalculator(store, logger),
		store:    store,
		notifier: notifier,
		logger:   logger,
	}
}

// Recorder exposes the underlying recorder for replay drivers.
func (s *Service) Recorder() *Recorder { return s.recorder }

// Recalculator exposes the balance recalculator.
func (s *Service) Recalculator() *Recalculator { return s.recalc }

// ReconcilePayment reconciles the ledger with a payment's current state.
// A missing payment is treated as deleted: its live lines are reversed.
func (s *Service) ReconcilePayment(ctx context.Context, id uuid.UUID) (ReconcileResult, error) {
	ref := SourceRef{Kind: KindPayment, ID: id}

	var effect *Effect
	p, err := s.sources.Payment(ctx, id)
	switch {
	case errors.Is(err, source.ErrNotFound):
		// deleted; reversal-only
	case err != nil:
		return ReconcileResult{}, fmt.Errorf("load payment %s: %w", id, err)
	default:
		att, err := s.resolver.ForPayment(ctx, p)
		if err != nil {
			return ReconcileResult{}, fmt.Errorf("attribute payment %s: %w", id, err)
		}
		effect = BuildPaymentEffect(p, att)
	}

	return s.finish(ctx, ref, effect)
}

// ReconcileOEMPayment reconciles the ledger with an OEM payment's current
// state. When no OEM can be resolved for a qualifying payment the event is
// skipped and surfaced to operators; nothing is written.
func (s *Service) ReconcileOEMPayment(ctx context.Context, id uuid.UUID) (ReconcileResult, error) {
	ref := SourceRef{Kind: KindOEMPayment, ID: id}

	var effect *Effect
	p, err := s.sources.OEMPayment(ctx, id)
	switch {
	case errors.Is(err, source.ErrNotFound):
		// deleted; reversal-only
	case err != nil:
		return ReconcileResult{}, fmt.Errorf("load oem payment %s: %w", id, err)
	default:
		att, err := s.resolver.ForOEMPayment(ctx, p)
		if errors.Is(err, source.ErrNoOEM) {
			if p.Status == source.StatusCompleted {
				s.notifySkipped(ctx, ref, "no OEM could be resolved for completed OEM payment")
				return ReconcileResult{Skipped: true}, nil
			}
			// Non-qualifying anyway; fall through with no effect.
		} else if err != nil {
			return ReconcileResult{}, fmt.Errorf("attribute oem payment %s: %w", id, err)
		} else {
			effect = BuildOEMPaymentEffect(p, att)
		}
	}

	return s.finish(ctx, ref, effect)
}

// ReconcileExpense reconciles the ledger with an expense's current state.
func (s *Service) ReconcileExpense(ctx context.Context, id uuid.UUID) (ReconcileResult, error) {
	ref := SourceRef{Kind: KindExpense, ID: id}

	var effect *Effect
	e, err := s.sources.Expense(ctx, id)
	switch {
	case errors.Is(err, source.ErrNotFound):
		// deleted; reversal-only
	case err != nil:
		return ReconcileResult{}, fmt.Errorf("load expense %s: %w", id, err)
	default:
		att, err := s.resolver.ForExpense(ctx, e)
		if err != nil {
			return ReconcileResult{}, fmt.Errorf("attribute expense %s: %w", id, err)
		}
		effect = BuildExpenseEffect(e, att)
	}

	return s.finish(ctx, ref, effect)
}

func (s *Service) finish(ctx context.Context, ref SourceRef, effect *Effect) (ReconcileResult, error) {
	res, err := s.recorder.Reconcile(ctx, ref, effect)
	if err != nil {
		s.notifyFailed(ctx, ref, err)
		return ReconcileResult{}, err
	}
	if res.Skipped {
		return res, nil
	}

	s.logger.Info("ledger reconciled",
		slog.String("source_kind", string(ref.Kind)),
		slog.String("source_id", ref.ID.String()),
		slog.Int("reversed", res.Reversed),
		slog.Int("recorded", res.Recorded))

	if err := s.recalculateTouchedScopes(ctx, ref); err != nil {
		// Balances are derived data; the appended lines stand regardless.
		s.logger.Error("recalculate after reconcile", "error", err)
	}
	return res, nil
}

// recalculateTouchedScopes refreshes every university scope referenced by
// the source's lines, and the unscoped sequence when any line has no scope.
func (s *Service) recalculateTouchedScopes(ctx context.Context, ref SourceRef) error {
	lines, err := s.store.LinesBySource(ctx, ref)
	if err != nil {
		return err
	}

	seen := make(map[uuid.UUID]struct{})
	unscoped := false
	for _, line := range lines {
		if line.UniversityID == nil {
			unscoped = true
			continue
		}
		seen[*line.UniversityID] = struct{}{}
	}
	for scope := range seen {
		scope := scope
		if _, err := s.recalc.Recalculate(ctx, &scope); err != nil {
			return err
		}
	}
	if unscoped {
		if _, err := s.recalc.recalculateScope(ctx, Filter{OnlyUnscoped: true}); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) notifySkipped(ctx context.Context, ref SourceRef, reason string) {
	s.logger.Warn("ledger event skipped",
		slog.String("source_kind", string(ref.Kind)),
		slog.String("source_id", ref.ID.String()),
		slog.String("reason", reason))
	if s.notifier == nil {
		return
	}
	_ = s.notifier.Send(ctx, notification.Message{
		Kind:       notification.KindAttributionFailure,
		SourceKind: string(ref.Kind),
		SourceID:   ref.ID.String(),
		Body:       reason,
	})
}

func (s *Service) notifyFailed(ctx context.Context, ref SourceRef, err error) {
	if s.notifier == nil {
		return
	}
	_ = s.notifier.Send(ctx, notification.Message{
		Kind:       notification.KindReconcileFailure,
		SourceKind: string(ref.Kind),
		SourceID:   ref.ID.String(),
		Body:       err.Error(),
	})
}
