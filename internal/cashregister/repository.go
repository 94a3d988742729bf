package cashregister

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/comanda-pos/comanda/internal/platform/db"
)

// singleOpenConstraint is the partial unique index allowing one OPEN row.
const singleOpenConstraint = "cash_registers_single_open"

// Store reads and writes registers through any pool or transaction.
type Store struct {
	q db.Querier
}

// NewStore binds a Store to a pool or pgx.Tx.
func NewStore(q db.Querier) *Store {
	return &Store{q: q}
}

// Repository persists registers in PostgreSQL.
type Repository struct {
	*Store
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{Store: NewStore(pool), pool: pool}
}

// TxRepository exposes transactional operations used by service.
type TxRepository interface {
	CurrentRegister(ctx context.Context) (Register, error)
	OpenRegisterForUpdate(ctx context.Context) (Register, error)
	InsertRegister(ctx context.Context, r Register) error
	CloseRegister(ctx context.Context, r Register) error
	InsertHistory(ctx context.Context, r Register, at time.Time) error
}

// WithTx executes the callback inside repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, NewStore(tx))
	})
}

const registerColumns = `id, opened_at, closed_at, opening_balance, closing_balance, total_sales, total_expenses,
	expected_balance, actual_balance, difference, status, user_id, notes`

// CurrentRegister returns the OPEN register.
func (s *Store) CurrentRegister(ctx context.Context) (Register, error) {
	return s.openRegister(ctx, ``)
}

// OpenRegisterForUpdate returns the OPEN register and locks its row until the
// transaction ends.
func (s *Store) OpenRegisterForUpdate(ctx context.Context) (Register, error) {
	return s.openRegister(ctx, ` FOR UPDATE`)
}

func (s *Store) openRegister(ctx context.Context, lock string) (Register, error) {
	reg, err := scanRegister(s.q.QueryRow(ctx, `SELECT `+registerColumns+` FROM cash_registers WHERE status = 'OPEN'`+lock))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Register{}, ErrNoOpenRegister
		}
		return Register{}, err
	}
	return reg, nil
}

// GetRegister loads a register by id.
func (s *Store) GetRegister(ctx context.Context, id string) (Register, error) {
	reg, err := scanRegister(s.q.QueryRow(ctx, `SELECT `+registerColumns+` FROM cash_registers WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Register{}, ErrRegisterNotFound
		}
		return Register{}, err
	}
	return reg, nil
}

// InsertRegister stores a new OPEN register. A concurrent open loses on the
// partial unique index and gets ErrRegisterAlreadyOpen.
func (s *Store) InsertRegister(ctx context.Context, r Register) error {
	_, err := s.q.Exec(ctx, `INSERT INTO cash_registers (`+registerColumns+`)
VALUES ($1, $2, NULL, $3, NULL, 0, 0, $3, NULL, NULL, $4, $5, $6)`,
		r.ID, r.OpenedAt, r.OpeningBalance, string(StatusOpen), r.UserID, r.Notes)
	if err != nil {
		if db.IsUniqueViolation(err, singleOpenConstraint) {
			return ErrRegisterAlreadyOpen
		}
		return fmt.Errorf("insert register: %w", err)
	}
	return nil
}

// AddSale adds amount to the OPEN register's sales in place.
func (s *Store) AddSale(ctx context.Context, id string, amount float64) (Register, error) {
	return s.addTotals(ctx, id, amount, 0)
}

// AddExpense adds amount to the OPEN register's expenses in place.
func (s *Store) AddExpense(ctx context.Context, id string, amount float64) (Register, error) {
	return s.addTotals(ctx, id, 0, amount)
}

func (s *Store) addTotals(ctx context.Context, id string, sales, expenses float64) (Register, error) {
	if sales < 0 || expenses < 0 {
		return Register{}, ErrInvalidAmount
	}
	reg, err := scanRegister(s.q.QueryRow(ctx, `UPDATE cash_registers
SET total_sales = total_sales + $2,
    total_expenses = total_expenses + $3,
    expected_balance = opening_balance + total_sales + $2 - total_expenses - $3
WHERE id = $1 AND status = 'OPEN'
RETURNING `+registerColumns, id, sales, expenses))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Register{}, ErrNoOpenRegister
		}
		return Register{}, fmt.Errorf("update register totals: %w", err)
	}
	return reg, nil
}

// CloseRegister writes the reconciliation of an OPEN register.
func (s *Store) CloseRegister(ctx context.Context, r Register) error {
	tag, err := s.q.Exec(ctx, `UPDATE cash_registers
SET closed_at = $2, closing_balance = $3, actual_balance = $3, difference = $4,
    expected_balance = $5, status = $6, notes = $7
WHERE id = $1 AND status = 'OPEN'`,
		r.ID, r.ClosedAt, r.ActualBalance, r.Difference, r.ExpectedBalance, string(StatusClosed), r.Notes)
	if err != nil {
		return fmt.Errorf("close register: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNoOpenRegister
	}
	return nil
}

// InsertHistory archives a closed register.
func (s *Store) InsertHistory(ctx context.Context, r Register, at time.Time) error {
	_, err := s.q.Exec(ctx, `INSERT INTO cash_register_history (`+registerColumns+`, archived_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		r.ID, r.OpenedAt, r.ClosedAt, r.OpeningBalance, r.ClosingBalance, r.TotalSales, r.TotalExpenses,
		r.ExpectedBalance, r.ActualBalance, r.Difference, string(r.Status), r.UserID, r.Notes, at)
	if err != nil {
		return fmt.Errorf("insert register history: %w", err)
	}
	return nil
}

// ListHistory returns archived registers, most recently closed first.
func (s *Store) ListHistory(ctx context.Context, limit int) ([]HistoryEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.q.Query(ctx, `SELECT `+registerColumns+`, archived_at FROM cash_register_history
ORDER BY archived_at DESC, id LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []HistoryEntry
	for rows.Next() {
		var (
			entry  HistoryEntry
			status string
		)
		r := &entry.Register
		if err := rows.Scan(&r.ID, &r.OpenedAt, &r.ClosedAt, &r.OpeningBalance, &r.ClosingBalance, &r.TotalSales,
			&r.TotalExpenses, &r.ExpectedBalance, &r.ActualBalance, &r.Difference, &status, &r.UserID, &r.Notes,
			&entry.ArchivedAt); err != nil {
			return nil, err
		}
		r.Status = Status(status)
		out = append(out, entry)
	}
	return out, rows.Err()
}

func scanRegister(row pgx.Row) (Register, error) {
	var (
		r      Register
		status string
	)
	err := row.Scan(&r.ID, &r.OpenedAt, &r.ClosedAt, &r.OpeningBalance, &r.ClosingBalance, &r.TotalSales,
		&r.TotalExpenses, &r.ExpectedBalance, &r.ActualBalance, &r.Difference, &status, &r.UserID, &r.Notes)
	r.Status = Status(status)
	return r, err
}
