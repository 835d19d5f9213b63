package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/kunal-ak23/university-tracker-sub000/internal/ledger"
	"github.com/kunal-ak23/university-tracker-sub000/internal/source"
)

// Handler applies a business event: it upserts (or removes) the source
// record and then reconciles the ledger with the record's new state. Both
// steps are idempotent, so redelivered events are harmless.
type Handler struct {
	sources source.Repository
	svc     *ledger.Service
	logger  *slog.Logger
}

func NewHandler(sources source.Repository, svc *ledger.Service, logger *slog.Logger) *Handler {
	return &Handler{sources: sources, svc: svc, logger: logger}
}

// Handle dispatches one envelope. Unknown event types are logged and
// dropped rather than failing the stream.
func (h *Handler) Handle(ctx context.Context, env Envelope) error {
	switch env.Type {
	case TypePaymentSaved:
		var p source.Payment
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return fmt.Errorf("decode payment payload: %w", err)
		}
		if err := h.sources.SavePayment(ctx, p); err != nil {
			return fmt.Errorf("save payment %s: %w", p.ID, err)
		}
		return h.reconcilePayment(ctx, p.ID)

	case TypePaymentDeleted:
		id, err := deletedID(env)
		if err != nil {
			return err
		}
		if err := h.sources.DeletePayment(ctx, id); err != nil {
			return fmt.Errorf("delete payment %s: %w", id, err)
		}
		return h.reconcilePayment(ctx, id)

	case TypeOEMPaymentSaved:
		var p source.OEMPayment
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return fmt.Errorf("decode oem payment payload: %w", err)
		}
		if err := h.sources.SaveOEMPayment(ctx, p); err != nil {
			return fmt.Errorf("save oem payment %s: %w", p.ID, err)
		}
		return h.reconcileOEMPayment(ctx, p.ID)

	case TypeOEMPaymentDeleted:
		id, err := deletedID(env)
		if err != nil {
			return err
		}
		if err := h.sources.DeleteOEMPayment(ctx, id); err != nil {
			return fmt.Errorf("delete oem payment %s: %w", id, err)
		}
		return h.reconcileOEMPayment(ctx, id)

	case TypeExpenseSaved:
		var e source.Expense
		if err := json.Unmarshal(env.Payload, &e); err != nil {
			return fmt.Errorf("decode expense payload: %w", err)
		}
		if err := h.sources.SaveExpense(ctx, e); err != nil {
			return fmt.Errorf("save expense %s: %w", e.ID, err)
		}
		return h.reconcileExpense(ctx, e.ID)

	case TypeExpenseDeleted:
		id, err := deletedID(env)
		if err != nil {
			return err
		}
		if err := h.sources.DeleteExpense(ctx, id); err != nil {
			return fmt.Errorf("delete expense %s: %w", id, err)
		}
		return h.reconcileExpense(ctx, id)

	default:
		h.logger.Warn("dropping event of unknown type",
			slog.String("event_id", env.ID.String()),
			slog.String("type", string(env.Type)))
		return nil
	}
}

func (h *Handler) reconcilePayment(ctx context.Context, id uuid.UUID) error {
	if _, err := h.svc.ReconcilePayment(ctx, id); err != nil {
		return fmt.Errorf("reconcile payment %s: %w", id, err)
	}
	return nil
}

func (h *Handler) reconcileOEMPayment(ctx context.Context, id uuid.UUID) error {
	if _, err := h.svc.ReconcileOEMPayment(ctx, id); err != nil {
		return fmt.Errorf("reconcile oem payment %s: %w", id, err)
	}
	return nil
}

func (h *Handler) reconcileExpense(ctx context.Context, id uuid.UUID) error {
	if _, err := h.svc.ReconcileExpense(ctx, id); err != nil {
		return fmt.Errorf("reconcile expense %s: %w", id, err)
	}
	return nil
}

func deletedID(env Envelope) (uuid.UUID, error) {
	var d Deleted
	if err := json.Unmarshal(env.Payload, &d); err != nil {
		return uuid.Nil, fmt.Errorf("decode deleted payload: %w", err)
	}
	return d.ID, nil
}
