package source

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// PostgresRepository mirrors source-transaction state in PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a repository backed by PostgreSQL.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Migrate creates the source mirror tables when absent.
func (r *PostgresRepository) Migrate(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS src_payments (
            id UUID PRIMARY KEY,
            invoice_id UUID,
            name TEXT NOT NULL DEFAULT '',
            amount NUMERIC(14,2) NOT NULL,
            payment_date DATE NOT NULL,
            payment_method TEXT NOT NULL DEFAULT '',
            status TEXT NOT NULL,
            transaction_reference TEXT NOT NULL DEFAULT '',
            notes TEXT NOT NULL DEFAULT '',
            created_at TIMESTAMPTZ NOT NULL
        )`,
		`CREATE TABLE IF NOT EXISTS src_oem_payments (
            id UUID PRIMARY KEY,
            oem_id UUID,
            invoice_id UUID,
            billing_id UUID,
            amount NUMERIC(14,2) NOT NULL,
            payment_date DATE NOT NULL,
            payment_method TEXT NOT NULL DEFAULT '',
            status TEXT NOT NULL,
            reference_number TEXT NOT NULL DEFAULT '',
            description TEXT NOT NULL DEFAULT '',
            created_at TIMESTAMPTZ NOT NULL
        )`,
		`CREATE TABLE IF NOT EXISTS src_expenses (
            id UUID PRIMARY KEY,
            university_id UUID,
            amount NUMERIC(14,2) NOT NULL,
            category TEXT NOT NULL DEFAULT '',
            incurred_date DATE NOT NULL,
            description TEXT NOT NULL DEFAULT '',
            created_at TIMESTAMPTZ NOT NULL
        )`,
		`CREATE TABLE IF NOT EXISTS src_invoices (
            id UUID PRIMARY KEY,
            billing_id UUID
        )`,
		`CREATE TABLE IF NOT EXISTS src_billings (
            id UUID PRIMARY KEY
        )`,
		`CREATE TABLE IF NOT EXISTS src_billing_batches (
            billing_id UUID NOT NULL,
            batch_id UUID NOT NULL,
            position INT NOT NULL,
            PRIMARY KEY (billing_id, batch_id)
        )`,
		`CREATE TABLE IF NOT EXISTS src_batches (
            id UUID PRIMARY KEY,
            university_id UUID NOT NULL,
            contract_id UUID
        )`,
		`CREATE TABLE IF NOT EXISTS src_contracts (
            id UUID PRIMARY KEY,
            oem_id UUID
        )`,
	}
	for _, stmt := range statements {
		if _, err := r.db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migrate source tables: %w", err)
		}
	}
	return nil
}

func (r *PostgresRepository) Payment(ctx context.Context, id uuid.UUID) (Payment, error) {
	row := r.db.QueryRow(ctx, `SELECT id, invoice_id, name, amount, payment_date, payment_method,
            status, transaction_reference, notes, created_at
        FROM src_payments WHERE id = $1`, id)
	return scanPayment(row)
}

func (r *PostgresRepository) SavePayment(ctx context.Context, p Payment) error {
	_, err := r.db.Exec(ctx, `INSERT INTO src_payments
            (id, invoice_id, name, amount, payment_date, payment_method, status, transaction_reference, notes, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
        ON CONFLICT (id) DO UPDATE SET
            invoice_id = EXCLUDED.invoice_id,
            name = EXCLUDED.name,
            amount = EXCLUDED.amount,
            payment_date = EXCLUDED.payment_date,
            payment_method = EXCLUDED.payment_method,
            status = EXCLUDED.status,
            transaction_reference = EXCLUDED.transaction_reference,
            notes = EXCLUDED.notes`,
		p.ID, p.InvoiceID, p.Name, p.Amount, p.PaymentDate, p.PaymentMethod,
		string(p.Status), p.TransactionReference, p.Notes, p.CreatedAt.UTC())
	return err
}

func (r *PostgresRepository) DeletePayment(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.Exec(ctx, `DELETE FROM src_payments WHERE id = $1`, id)
	return err
}

func (r *PostgresRepository) ListPayments(ctx context.Context) ([]Payment, error) {
	rows, err := r.db.Query(ctx, `SELECT id, invoice_id, name, amount, payment_date, payment_method,
            status, transaction_reference, notes, created_at
        FROM src_payments ORDER BY payment_date, created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *PostgresRepository) OEMPayment(ctx context.Context, id uuid.UUID) (OEMPayment, error) {
	row := r.db.QueryRow(ctx, `SELECT id, oem_id, invoice_id, billing_id, amount, payment_date,
            payment_method, status, reference_number, description, created_at
        FROM src_oem_payments WHERE id = $1`, id)
	return scanOEMPayment(row)
}

func (r *PostgresRepository) SaveOEMPayment(ctx context.Context, p OEMPayment) error {
	_, err := r.db.Exec(ctx, `INSERT INTO src_oem_payments
            (id, oem_id, invoice_id, billing_id, amount, payment_date, payment_method, status, reference_number, description, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
        ON CONFLICT (id) DO UPDATE SET
            oem_id = EXCLUDED.oem_id,
            invoice_id = EXCLUDED.invoice_id,
            billing_id = EXCLUDED.billing_id,
            amount = EXCLUDED.amount,
            payment_date = EXCLUDED.payment_date,
            payment_method = EXCLUDED.payment_method,
            status = EXCLUDED.status,
            reference_number = EXCLUDED.reference_number,
            description = EXCLUDED.description`,
		p.ID, p.OEMID, p.InvoiceID, p.BillingID, p.Amount, p.PaymentDate,
		p.PaymentMethod, string(p.Status), p.ReferenceNumber, p.Description, p.CreatedAt.UTC())
	return err
}

func (r *PostgresRepository) DeleteOEMPayment(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.Exec(ctx, `DELETE FROM src_oem_payments WHERE id = $1`, id)
	return err
}

func (r *PostgresRepository) ListOEMPayments(ctx context.Context) ([]OEMPayment, error) {
	rows, err := r.db.Query(ctx, `SELECT id, oem_id, invoice_id, billing_id, amount, payment_date,
            payment_method, status, reference_number, description, created_at
        FROM src_oem_payments ORDER BY payment_date, created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []OEMPayment
	for rows.Next() {
		p, err := scanOEMPayment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *PostgresRepository) Expense(ctx context.Context, id uuid.UUID) (Expense, error) {
	row := r.db.QueryRow(ctx, `SELECT id, university_id, amount, category, incurred_date, description, created_at
        FROM src_expenses WHERE id = $1`, id)
	return scanExpense(row)
}

func (r *PostgresRepository) SaveExpense(ctx context.Context, e Expense) error {
	_, err := r.db.Exec(ctx, `INSERT INTO src_expenses
            (id, university_id, amount, category, incurred_date, description, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
        ON CONFLICT (id) DO UPDATE SET
            university_id = EXCLUDED.university_id,
            amount = EXCLUDED.amount,
            category = EXCLUDED.category,
            incurred_date = EXCLUDED.incurred_date,
            description = EXCLUDED.description`,
		e.ID, e.UniversityID, e.Amount, e.Category, e.IncurredDate, e.Description, e.CreatedAt.UTC())
	return err
}

func (r *PostgresRepository) DeleteExpense(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.Exec(ctx, `DELETE FROM src_expenses WHERE id = $1`, id)
	return err
}

func (r *PostgresRepository) ListExpenses(ctx context.Context) ([]Expense, error) {
	rows, err := r.db.Query(ctx, `SELECT id, university_id, amount, category, incurred_date, description, created_at
        FROM src_expenses ORDER BY incurred_date, created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Expense
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *PostgresRepository) Invoice(ctx context.Context, id uuid.UUID) (Invoice, error) {
	var inv Invoice
	err := r.db.QueryRow(ctx, `SELECT id, billing_id FROM src_invoices WHERE id = $1`, id).
		Scan(&inv.ID, &inv.BillingID)
	if errors.Is(err, pgx.ErrNoRows) {
		return Invoice{}, ErrNotFound
	}
	return inv, err
}

func (r *PostgresRepository) SaveInvoice(ctx context.Context, inv Invoice) error {
	_, err := r.db.Exec(ctx, `INSERT INTO src_invoices (id, billing_id) VALUES ($1, $2)
        ON CONFLICT (id) DO UPDATE SET billing_id = EXCLUDED.billing_id`, inv.ID, inv.BillingID)
	return err
}

func (r *PostgresRepository) Billing(ctx context.Context, id uuid.UUID) (Billing, error) {
	var exists bool
	if err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM src_billings WHERE id = $1)`, id).Scan(&exists); err != nil {
		return Billing{}, err
	}
	if !exists {
		return Billing{}, ErrNotFound
	}

	rows, err := r.db.Query(ctx, `SELECT batch_id FROM src_billing_batches WHERE billing_id = $1 ORDER BY position`, id)
	if err != nil {
		return Billing{}, err
	}
	defer rows.Close()

	b := Billing{ID: id}
	for rows.Next() {
		var batchID uuid.UUID
		if err := rows.Scan(&batchID); err != nil {
			return Billing{}, err
		}
		b.BatchIDs = append(b.BatchIDs, batchID)
	}
	return b, rows.Err()
}

func (r *PostgresRepository) SaveBilling(ctx context.Context, b Billing) error {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	if _, err := tx.Exec(ctx, `INSERT INTO src_billings (id) VALUES ($1) ON CONFLICT (id) DO NOTHING`, b.ID); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `DELETE FROM src_billing_batches WHERE billing_id = $1`, b.ID); err != nil {
		return err
	}
	for i, batchID := range b.BatchIDs {
		if _, err := tx.Exec(ctx, `INSERT INTO src_billing_batches (billing_id, batch_id, position) VALUES ($1, $2, $3)`,
			b.ID, batchID, i); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

func (r *PostgresRepository) Batch(ctx context.Context, id uuid.UUID) (Batch, error) {
	var b Batch
	err := r.db.QueryRow(ctx, `SELECT id, university_id, contract_id FROM src_batches WHERE id = $1`, id).
		Scan(&b.ID, &b.UniversityID, &b.ContractID)
	if errors.Is(err, pgx.ErrNoRows) {
		return Batch{}, ErrNotFound
	}
	return b, err
}

func (r *PostgresRepository) SaveBatch(ctx context.Context, b Batch) error {
	_, err := r.db.Exec(ctx, `INSERT INTO src_batches (id, university_id, contract_id) VALUES ($1, $2, $3)
        ON CONFLICT (id) DO UPDATE SET university_id = EXCLUDED.university_id, contract_id = EXCLUDED.contract_id`,
		b.ID, b.UniversityID, b.ContractID)
	return err
}

func (r *PostgresRepository) Contract(ctx context.Context, id uuid.UUID) (Contract, error) {
	var c Contract
	err := r.db.QueryRow(ctx, `SELECT id, oem_id FROM src_contracts WHERE id = $1`, id).
		Scan(&c.ID, &c.OEMID)
	if errors.Is(err, pgx.ErrNoRows) {
		return Contract{}, ErrNotFound
	}
	return c, err
}

func (r *PostgresRepository) SaveContract(ctx context.Context, c Contract) error {
	_, err := r.db.Exec(ctx, `INSERT INTO src_contracts (id, oem_id) VALUES ($1, $2)
        ON CONFLICT (id) DO UPDATE SET oem_id = EXCLUDED.oem_id`, c.ID, c.OEMID)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPayment(row rowScanner) (Payment, error) {
	var p Payment
	var status string
	var amount decimal.Decimal
	var createdAt time.Time
	err := row.Scan(&p.ID, &p.InvoiceID, &p.Name, &amount, &p.PaymentDate, &p.PaymentMethod,
		&status, &p.TransactionReference, &p.Notes, &createdAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Payment{}, ErrNotFound
	}
	if err != nil {
		return Payment{}, err
	}
	p.Amount = amount
	p.Status = Status(status)
	p.CreatedAt = createdAt.UTC()
	return p, nil
}

func scanOEMPayment(row rowScanner) (OEMPayment, error) {
	var p OEMPayment
	var status string
	var amount decimal.Decimal
	var createdAt time.Time
	err := row.Scan(&p.ID, &p.OEMID, &p.InvoiceID, &p.BillingID, &amount, &p.PaymentDate,
		&p.PaymentMethod, &status, &p.ReferenceNumber, &p.Description, &createdAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return OEMPayment{}, ErrNotFound
	}
	if err != nil {
		return OEMPayment{}, err
	}
	p.Amount = amount
	p.Status = Status(status)
	p.CreatedAt = createdAt.UTC()
	return p, nil
}

func scanExpense(row rowScanner) (Expense, error) {
	var e Expense
	var amount decimal.Decimal
	var createdAt time.Time
	err := row.Scan(&e.ID, &e.UniversityID, &amount, &e.Category, &e.IncurredDate, &e.Description, &createdAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Expense{}, ErrNotFound
	}
	if err != nil {
		return Expense{}, err
	}
	e.Amount = amount
	e.CreatedAt = createdAt.UTC()
	return e, nil
}

var _ Repository = (*PostgresRepository)(nil)
