package ledger

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kunal-ak23/university-tracker-sub000/internal/source"
)

// conflictingStore wraps a Store and fails AppendLines with
// ErrConcurrentModification a configured number of times before passing
// writes through, standing in for the Postgres partial-unique-index
// conflict.
type conflictingStore struct {
	Store

	mu        sync.Mutex
	conflicts int
	attempts  int
}

func (s *conflictingStore) AppendLines(ctx context.Context, lines []Line) ([]Line, error) {
	s.mu.Lock()
	s.attempts++
	if s.conflicts > 0 {
		s.conflicts--
		s.mu.Unlock()
		return nil, ErrConcurrentModification
	}
	s.mu.Unlock()
	return s.Store.AppendLines(ctx, lines)
}

func TestReconcileRetriesOnceAfterConflict(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	p := f.completedPayment(t, "100.00", "TXN-123", f.invoiceID)

	store := &conflictingStore{Store: f.store, conflicts: 1}
	recorder := NewRecorder(store, testLogger())

	att, err := source.NewResolver(f.repo).ForPayment(ctx, p)
	require.NoError(t, err)
	effect := BuildPaymentEffect(p, att)
	require.NotNil(t, effect)

	res, err := recorder.Reconcile(ctx, effect.Source, effect)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Recorded)
	assert.Equal(t, 2, store.attempts, "first attempt conflicts, the single retry lands")
	assert.Len(t, f.allLines(t), 2)
}

func TestReconcileSurfacesRepeatedConflict(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	p := f.completedPayment(t, "100.00", "TXN-123", f.invoiceID)

	store := &conflictingStore{Store: f.store, conflicts: 2}
	recorder := NewRecorder(store, testLogger())

	att, err := source.NewResolver(f.repo).ForPayment(ctx, p)
	require.NoError(t, err)
	effect := BuildPaymentEffect(p, att)
	require.NotNil(t, effect)

	_, err = recorder.Reconcile(ctx, effect.Source, effect)
	require.ErrorIs(t, err, ErrConcurrentModification)
	assert.Equal(t, 2, store.attempts, "exactly one retry before surfacing")
	assert.Empty(t, f.allLines(t), "no partial lines may be written")
}

// Eight goroutines race amendments of one payment. Serialization per source
// must keep the reversal pairing intact: every forward line is reversed at
// most once, and after the dust settles exactly one balanced live pair
// remains.
func TestConcurrentAmendmentsKeepReversalPairingIntact(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	p := f.completedPayment(t, "100.00", "TXN-RACE", f.invoiceID)
	_, err := f.svc.ReconcilePayment(ctx, p.ID)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			amended := p
			amended.Amount = dec(fmt.Sprintf("%d.00", 110+i*10))
			if err := f.repo.SavePayment(ctx, amended); err != nil {
				t.Errorf("save payment: %v", err)
				return
			}
			if _, err := f.svc.ReconcilePayment(ctx, amended.ID); err != nil {
				t.Errorf("reconcile payment: %v", err)
			}
		}(i)
	}
	wg.Wait()

	lines, err := f.store.LinesBySource(ctx, SourceRef{Kind: KindPayment, ID: p.ID})
	require.NoError(t, err)

	reversedBy := make(map[uuid.UUID]int)
	for _, line := range lines {
		if line.Reversing {
			require.NotNil(t, line.ReversedLineID)
			reversedBy[*line.ReversedLineID]++
		}
	}
	for id, n := range reversedBy {
		assert.Equal(t, 1, n, "line %s reversed more than once", id)
	}

	live := liveForwardLines(lines)
	require.Len(t, live, 2, "exactly one live pair survives the race")
	assert.True(t, live[0].Amount.Equal(live[1].Amount))

	// A quiescent reconcile settles the ledger on the repository's final
	// state without disturbing the committed history.
	final, err := f.repo.Payment(ctx, p.ID)
	require.NoError(t, err)
	_, err = f.svc.ReconcilePayment(ctx, p.ID)
	require.NoError(t, err)

	lines, err = f.store.LinesBySource(ctx, SourceRef{Kind: KindPayment, ID: p.ID})
	require.NoError(t, err)
	for _, line := range liveForwardLines(lines) {
		assert.True(t, line.Amount.Equal(final.Amount))
	}
}
