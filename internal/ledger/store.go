package ledger

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Filter narrows line reads. Zero value matches everything. OnlyUnscoped
// selects lines carrying no university attribution and wins over
// UniversityID.
type Filter struct {
	UniversityID *uuid.UUID
	SourceKind   *SourceKind
	OnlyUnscoped bool
}

// BalanceUpdate carries a recomputed running balance for one line. The
// balance is the only field a store will ever update in place.
type BalanceUpdate struct {
	LineID  uuid.UUID
	Balance decimal.Decimal
}

// Store is the append-only collection of ledger lines.
//
// The only writes are AppendLines (an atomic batch; either every line in the
// batch is committed or none), UpdateRunningBalances (derived data only) and
// Truncate (full wipe, rebuild's exclusive privilege). There is no update or
// delete of individual lines.
type Store interface {
	// AppendLines atomically persists a batch of new lines, assigning
	// CreatedAt and Position.
	AppendLines(ctx context.Context, lines []Line) ([]Line, error)

	// LinesBySource returns every line tied to one source transaction in
	// append order.
	LinesBySource(ctx context.Context, ref SourceRef) ([]Line, error)

	// Lines returns matching lines ordered by
	// (transaction_date, created_at, position) ascending.
	Lines(ctx context.Context, filter Filter) ([]Line, error)

	// Scopes returns the distinct university ids present on lines.
	Scopes(ctx context.Context) ([]uuid.UUID, error)

	// Count returns the total number of stored lines.
	Count(ctx context.Context) (int64, error)

	// UpdateRunningBalances persists recomputed balances.
	UpdateRunningBalances(ctx context.Context, updates []BalanceUpdate) error

	// Truncate deletes all lines and reports how many were removed.
	Truncate(ctx context.Context) (int64, error)
}
