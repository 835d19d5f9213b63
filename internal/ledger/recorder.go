package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

// Recorder turns effects into stored lines and reconciles them against
// what was previously recorded for the same source transaction.
//
// Reconciliation appends, never edits: a changed forward effect is handled
// by appending reversal lines for the live forward lines and then appending
// the new forward lines, all in one atomic batch. Reversals always target
// the latest live forward lines and never another reversal.
type Recorder struct {
	store  Store
	logger *slog.Logger

	mapMu sync.Mutex
	muMap map[string]*sync.Mutex
}

// NewRecorder constructs a recorder over the given store.
func NewRecorder(store Store, logger *slog.Logger) *Recorder {
	return &Recorder{
		store:  store,
		logger: logger,
		muMap:  make(map[string]*sync.Mutex),
	}
}

// ReconcileResult reports what one reconciliation did.
type ReconcileResult struct {
	Reversed int
	Recorded int
	Skipped  bool
	LineIDs  []uuid.UUID
}

// RecordEffect appends the forward lines for an effect. Used on first
// observation of a qualifying transaction and during rebuild replay.
func (r *Recorder) RecordEffect(ctx context.Context, e *Effect) ([]uuid.UUID, error) {
	if e == nil || len(e.Entries) == 0 {
		return nil, nil
	}
	if err := validateEffect(e); err != nil {
		return nil, err
	}

	appended, err := r.store.AppendLines(ctx, forwardLines(e))
	if err != nil {
		return nil, fmt.Errorf("record effect for %s %s: %w", e.Source.Kind, e.Source.ID, err)
	}
	ids := make([]uuid.UUID, len(appended))
	for i, line := range appended {
		ids[i] = line.ID
	}
	return ids, nil
}

// Reconcile brings the stored lines for one source transaction in line with
// the given forward effect. A nil effect means the transaction no longer
// qualifies (or was deleted): only reversals are appended. Reconciliations
// for the same source transaction are serialized; a detected race is retried
// once against fresh state.
func (r *Recorder) Reconcile(ctx context.Context, ref SourceRef, effect *Effect) (ReconcileResult, error) {
	if effect != nil {
		if effect.Source != ref {
			return ReconcileResult{}, fmt.Errorf("effect source %v does not match ref %v", effect.Source, ref)
		}
		if err := validateEffect(effect); err != nil {
			return ReconcileResult{}, err
		}
	}

	mu := r.sourceLock(ref)
	mu.Lock()
	defer mu.Unlock()

	res, err := r.reconcileOnce(ctx, ref, effect)
	if errors.Is(err, ErrConcurrentModification) {
		r.logger.Warn("reconcile conflict, retrying",
			slog.String("source_kind", string(ref.Kind)),
			slog.String("source_id", ref.ID.String()))
		res, err = r.reconcileOnce(ctx, ref, effect)
	}
	if err != nil {
		return ReconcileResult{}, fmt.Errorf("reconcile %s %s: %w", ref.Kind, ref.ID, err)
	}
	return res, nil
}

func (r *Recorder) reconcileOnce(ctx context.Context, ref SourceRef, effect *Effect) (ReconcileResult, error) {
	existing, err := r.store.LinesBySource(ctx, ref)
	if err != nil {
		return ReconcileResult{}, err
	}
	live := liveForwardLines(existing)

	if effect != nil && effectMatchesLines(effect, live) {
		// Redundant save event; the ledger already reflects this state.
		return ReconcileResult{Skipped: true}, nil
	}

	var batch []Line
	for _, line := range live {
		batch = append(batch, reversalOf(line))
	}
	reversed := len(batch)

	recorded := 0
	if effect != nil {
		forwards := forwardLines(effect)
		batch = append(batch, forwards...)
		recorded = len(forwards)
	}

	if len(batch) == 0 {
		return ReconcileResult{Skipped: true}, nil
	}

	appended, err := r.store.AppendLines(ctx, batch)
	if err != nil {
		return ReconcileResult{}, err
	}

	res := ReconcileResult{Reversed: reversed, Recorded: recorded}
	for _, line := range appended {
		res.LineIDs = append(res.LineIDs, line.ID)
	}
	return res, nil
}

func (r *Recorder) sourceLock(ref SourceRef) *sync.Mutex {
	key := string(ref.Kind) + ":" + ref.ID.String()

	r.mapMu.Lock()
	defer r.mapMu.Unlock()
	if _, ok := r.muMap[key]; !ok {
		r.muMap[key] = &sync.Mutex{}
	}
	return r.muMap[key]
}

func validateEffect(e *Effect) error {
	for _, entry := range e.Entries {
		if !entry.Account.Valid() || !entry.EntryType.Valid() {
			return fmt.Errorf("effect for %s %s uses unknown account or entry type", e.Source.Kind, e.Source.ID)
		}
		if entry.Amount.IsNegative() {
			return fmt.Errorf("effect for %s %s has negative amount %s", e.Source.Kind, e.Source.ID, entry.Amount)
		}
	}
	if !e.Balanced() {
		return fmt.Errorf("effect for %s %s: %w", e.Source.Kind, e.Source.ID, ErrUnbalancedEffect)
	}
	return nil
}

// liveForwardLines returns the forward lines not cancelled by any reversal.
func liveForwardLines(lines []Line) []Line {
	reversed := make(map[uuid.UUID]struct{})
	for _, line := range lines {
		if line.Reversing && line.ReversedLineID != nil {
			reversed[*line.ReversedLineID] = struct{}{}
		}
	}

	var live []Line
	for _, line := range lines {
		if line.Reversing {
			continue
		}
		if _, done := reversed[line.ID]; done {
			continue
		}
		live = append(live, line)
	}
	return live
}

// effectMatchesLines reports whether the live forward lines already express
// the effect: same date and reference, and the same multiset of
// (account, entry type, amount) postings.
func effectMatchesLines(e *Effect, live []Line) bool {
	if len(live) != len(e.Entries) || len(live) == 0 {
		return false
	}

	matched := make([]bool, len(live))
	for _, entry := range e.Entries {
		found := false
		for i, line := range live {
			if matched[i] {
				continue
			}
			if line.Account == entry.Account &&
				line.EntryType == entry.EntryType &&
				line.Amount.Equal(entry.Amount) &&
				line.TransactionDate.Equal(e.TransactionDate) &&
				line.ReferenceNumber == e.ReferenceNumber {
				matched[i] = true
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

func forwardLines(e *Effect) []Line {
	lines := make([]Line, 0, len(e.Entries))
	for _, entry := range e.Entries {
		lines = append(lines, Line{
			Account:         entry.Account,
			EntryType:       entry.EntryType,
			Amount:          entry.Amount,
			TransactionDate: e.TransactionDate,
			TransactionType: e.TransactionType,
			Source:          e.Source,
			InvoiceID:       e.Attribution.InvoiceID,
			UniversityID:    e.Attribution.UniversityID,
			OEMID:           e.Attribution.OEMID,
			BillingID:       e.Attribution.BillingID,
			ReferenceNumber: e.ReferenceNumber,
			Description:     e.Description,
			Notes:           e.Notes,
		})
	}
	return lines
}

func reversalOf(line Line) Line {
	reversedID := line.ID
	return Line{
		Account:         line.Account,
		EntryType:       line.EntryType.Opposite(),
		Amount:          line.Amount,
		TransactionDate: line.TransactionDate,
		TransactionType: line.TransactionType,
		Source:          line.Source,
		InvoiceID:       line.InvoiceID,
		UniversityID:    line.UniversityID,
		OEMID:           line.OEMID,
		BillingID:       line.BillingID,
		ReferenceNumber: line.ReferenceNumber,
		Description:     "Reversal: " + line.Description,
		Notes:           line.Notes,
		Reversing:       true,
		ReversedLineID:  &reversedID,
	}
}
