package expenses

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/comanda-pos/comanda/internal/cashregister"
	"github.com/comanda-pos/comanda/internal/inventory"
	"github.com/comanda-pos/comanda/internal/platform/db"
)

// Store reads and writes expenses through any pool or transaction.
type Store struct {
	q db.Querier
}

// NewStore binds a Store to a pool or pgx.Tx.
func NewStore(q db.Querier) *Store {
	return &Store{q: q}
}

// TxRepository is the unit of work for creating an expense: the expense row,
// the register totals and an optional restock move together.
type TxRepository interface {
	inventory.StockWriter
	InsertExpense(ctx context.Context, e Expense) error
	OpenRegisterForUpdate(ctx context.Context) (cashregister.Register, error)
	AddExpense(ctx context.Context, registerID string, amount float64) (cashregister.Register, error)
}

type (
	registerStore  = cashregister.Store
	inventoryStore = inventory.Store
)

type txStore struct {
	*Store
	*registerStore
	*inventoryStore
}

// Repository persists expenses in PostgreSQL.
type Repository struct {
	*Store
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{Store: NewStore(pool), pool: pool}
}

// WithTx executes the callback inside repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, txStore{
			Store:          NewStore(tx),
			registerStore:  cashregister.NewStore(tx),
			inventoryStore: inventory.NewStore(tx),
		})
	})
}

const expenseColumns = `id, description, amount, category, date, COALESCE(cash_register_id, ''), user_id, notes,
	COALESCE(restock_ingredient_id, ''), COALESCE(restock_quantity, 0)`

// InsertExpense stores an expense row.
func (s *Store) InsertExpense(ctx context.Context, e Expense) error {
	var restockQty any
	if e.RestockIngredientID != "" {
		restockQty = e.RestockQuantity
	}
	_, err := s.q.Exec(ctx, `INSERT INTO expenses
(id, description, amount, category, date, cash_register_id, user_id, notes, restock_ingredient_id, restock_quantity)
VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), $7, $8, NULLIF($9, ''), $10)`,
		e.ID, e.Description, e.Amount, string(e.Category), e.Date, e.CashRegisterID, e.UserID, e.Notes,
		e.RestockIngredientID, restockQty)
	if err != nil {
		return fmt.Errorf("insert expense: %w", err)
	}
	return nil
}

// GetExpense loads an expense by id.
func (s *Store) GetExpense(ctx context.Context, id string) (Expense, error) {
	e, err := scanExpense(s.q.QueryRow(ctx, `SELECT `+expenseColumns+` FROM expenses WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Expense{}, ErrExpenseNotFound
		}
		return Expense{}, err
	}
	return e, nil
}

// ListExpenses returns expenses dated within [from, to], newest first.
func (s *Store) ListExpenses(ctx context.Context, from, to time.Time) ([]Expense, error) {
	rows, err := s.q.Query(ctx, `SELECT `+expenseColumns+` FROM expenses
WHERE date >= $1 AND date <= $2 ORDER BY date DESC, id`, from, to)
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

// SumExpenses totals expenses dated within [from, to].
func (s *Store) SumExpenses(ctx context.Context, from, to time.Time) (float64, error) {
	var total float64
	err := s.q.QueryRow(ctx, `SELECT COALESCE(SUM(amount), 0) FROM expenses WHERE date >= $1 AND date <= $2`,
		from, to).Scan(&total)
	return total, err
}

func scanExpense(row pgx.Row) (Expense, error) {
	var (
		e        Expense
		category string
	)
	err := row.Scan(&e.ID, &e.Description, &e.Amount, &category, &e.Date, &e.CashRegisterID, &e.UserID, &e.Notes,
		&e.RestockIngredientID, &e.RestockQuantity)
	e.Category = Category(category)
	return e, err
}
