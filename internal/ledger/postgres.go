package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/kunal-ak23/university-tracker-sub000/internal/accounts"
)

// PostgresStore persists ledger lines in PostgreSQL.
type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgresStore constructs a Postgres-backed ledger store.
func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate creates the ledger_lines table when absent.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.db.Exec(ctx, `CREATE TABLE IF NOT EXISTS ledger_lines (
        id UUID PRIMARY KEY,
        position BIGSERIAL NOT NULL,
        account TEXT NOT NULL,
        entry_type TEXT NOT NULL,
        amount NUMERIC(14,2) NOT NULL CHECK (amount >= 0),
        transaction_date DATE NOT NULL,
        transaction_type TEXT NOT NULL,
        source_kind TEXT NOT NULL,
        source_id UUID NOT NULL,
        invoice_id UUID,
        university_id UUID,
        oem_id UUID,
        billing_id UUID,
        reference_number TEXT NOT NULL DEFAULT '',
        description TEXT NOT NULL DEFAULT '',
        notes TEXT NOT NULL DEFAULT '',
        reversing BOOLEAN NOT NULL DEFAULT FALSE,
        reversed_line_id UUID,
        running_balance NUMERIC(14,2) NOT NULL DEFAULT 0,
        created_at TIMESTAMPTZ NOT NULL
    );
    CREATE INDEX IF NOT EXISTS idx_ledger_lines_source ON ledger_lines (source_kind, source_id);
    CREATE INDEX IF NOT EXISTS idx_ledger_lines_scope ON ledger_lines (university_id, transaction_date, created_at);
    CREATE UNIQUE INDEX IF NOT EXISTS idx_ledger_lines_reversed ON ledger_lines (reversed_line_id) WHERE reversed_line_id IS NOT NULL`)
	if err != nil {
		return fmt.Errorf("migrate ledger_lines: %w", err)
	}
	return nil
}

const lineColumns = `id, position, account, entry_type, amount, transaction_date, transaction_type,
    source_kind, source_id, invoice_id, university_id, oem_id, billing_id,
    reference_number, description, notes, reversing, reversed_line_id, running_balance, created_at`

func (s *PostgresStore) AppendLines(ctx context.Context, lines []Line) ([]Line, error) {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	now := time.Now().UTC()
	appended := make([]Line, 0, len(lines))
	for _, line := range lines {
		if line.ID == uuid.Nil {
			line.ID = uuid.New()
		}
		line.CreatedAt = now
		row := tx.QueryRow(ctx, `INSERT INTO ledger_lines
                (id, account, entry_type, amount, transaction_date, transaction_type,
                 source_kind, source_id, invoice_id, university_id, oem_id, billing_id,
                 reference_number, description, notes, reversing, reversed_line_id, running_balance, created_at)
            VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
            RETURNING position`,
			line.ID, string(line.Account), string(line.EntryType), line.Amount,
			line.TransactionDate, string(line.TransactionType),
			string(line.Source.Kind), line.Source.ID,
			line.InvoiceID, line.UniversityID, line.OEMID, line.BillingID,
			line.ReferenceNumber, line.Description, line.Notes,
			line.Reversing, line.ReversedLineID, line.RunningBalance, line.CreatedAt)
		if err := row.Scan(&line.Position); err != nil {
			// Two reconciliations racing on the same source produce duplicate
			// reversals of one forward line; the partial unique index turns
			// that into a conflict the loser can retry on.
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == "23505" {
				return nil, ErrConcurrentModification
			}
			return nil, fmt.Errorf("append ledger line: %w", err)
		}
		appended = append(appended, line)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return appended, nil
}

func (s *PostgresStore) LinesBySource(ctx context.Context, ref SourceRef) ([]Line, error) {
	rows, err := s.db.Query(ctx, `SELECT `+lineColumns+` FROM ledger_lines
        WHERE source_kind = $1 AND source_id = $2 ORDER BY position`, string(ref.Kind), ref.ID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanLines(rows)
}

func (s *PostgresStore) Lines(ctx context.Context, filter Filter) ([]Line, error) {
	query := `SELECT ` + lineColumns + ` FROM ledger_lines WHERE 1=1`
	args := []any{}
	if filter.OnlyUnscoped {
		query += " AND university_id IS NULL"
	} else if filter.UniversityID != nil {
		args = append(args, *filter.UniversityID)
		query += fmt.Sprintf(" AND university_id = $%d", len(args))
	}
	if filter.SourceKind != nil {
		args = append(args, string(*filter.SourceKind))
		query += fmt.Sprintf(" AND source_kind = $%d", len(args))
	}
	query += " ORDER BY transaction_date, created_at, position"

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanLines(rows)
}

func (s *PostgresStore) Scopes(ctx context.Context) ([]uuid.UUID, error) {
	rows, err := s.db.Query(ctx, `SELECT DISTINCT university_id FROM ledger_lines WHERE university_id IS NOT NULL`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func (s *PostgresStore) Count(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRow(ctx, `SELECT COUNT(*) FROM ledger_lines`).Scan(&count)
	return count, err
}

func (s *PostgresStore) UpdateRunningBalances(ctx context.Context, updates []BalanceUpdate) error {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	for _, u := range updates {
		if _, err := tx.Exec(ctx, `UPDATE ledger_lines SET running_balance = $1 WHERE id = $2`,
			u.Balance, u.LineID); err != nil {
			return fmt.Errorf("update running balance: %w", err)
		}
	}
	return tx.Commit(ctx)
}

func (s *PostgresStore) Truncate(ctx context.Context) (int64, error) {
	tag, err := s.db.Exec(ctx, `DELETE FROM ledger_lines`)
	if err != nil {
		return 0, fmt.Errorf("truncate ledger_lines: %w", err)
	}
	return tag.RowsAffected(), nil
}

func scanLines(rows pgx.Rows) ([]Line, error) {
	var out []Line
	for rows.Next() {
		var line Line
		var account, entryType, txnType, sourceKind string
		var amount, balance decimal.Decimal
		var createdAt time.Time
		if err := rows.Scan(&line.ID, &line.Position, &account, &entryType, &amount,
			&line.TransactionDate, &txnType, &sourceKind, &line.Source.ID,
			&line.InvoiceID, &line.UniversityID, &line.OEMID, &line.BillingID,
			&line.ReferenceNumber, &line.Description, &line.Notes,
			&line.Reversing, &line.ReversedLineID, &balance, &createdAt); err != nil {
			return nil, err
		}
		line.Account = accounts.Account(account)
		line.EntryType = accounts.EntryType(entryType)
		line.TransactionType = TransactionType(txnType)
		line.Source.Kind = SourceKind(sourceKind)
		line.Amount = amount
		line.RunningBalance = balance
		line.CreatedAt = createdAt.UTC()
		out = append(out, line)
	}
	return out, rows.Err()
}

var _ Store = (*PostgresStore)(nil)
